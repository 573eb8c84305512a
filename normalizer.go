package blockloader

import (
	"strings"
	"unicode"
)

// nullTokens are cell values read as null, same as the pandas CSV reader.
var nullTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// CanonicalColumnName trims, lowercases and replaces inner whitespace with
// underscores, e.g. " Block Number " becomes "block_number".
func CanonicalColumnName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, name)
}

// Normalize renames raw columns onto schema, drops unknown columns and drops
// rows whose mandatory fields are missing or unparseable. Fields absent from
// the input are kept as null columns.
func Normalize(raw *RawRecordSet, schema *Schema) (*NormalizedRecordSet, error) {
	// positions[i] is the raw column feeding schema field i, or -1.
	positions := make([]int, schema.Len())
	for i := range positions {
		positions[i] = -1
	}

	overlap := 0
	for j, h := range raw.Header {
		i, ok := schema.Index(CanonicalColumnName(h))
		if !ok || positions[i] >= 0 {
			continue
		}
		positions[i] = j
		overlap++
	}

	if overlap == 0 {
		return nil, &SchemaMismatchError{Reason: "no input column matches the schema"}
	}

	var missing []string
	for _, name := range schema.Mandatory() {
		i, _ := schema.Index(name)
		if positions[i] < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaMismatchError{Missing: missing, Reason: "mandatory columns are absent"}
	}

	fields := schema.Fields()
	out := &NormalizedRecordSet{Schema: schema, Rows: make([]Record, 0, len(raw.Rows))}

	for _, row := range raw.Rows {
		rec := make(Record, len(fields))
		for i, j := range positions {
			if j < 0 || j >= len(row) {
				continue
			}
			if _, null := nullTokens[row[j]]; null {
				continue
			}
			rec[i] = row[j]
		}

		if !hasValidKeys(rec, fields, schema) {
			continue
		}

		out.Rows = append(out.Rows, rec)
	}

	return out, nil
}

func hasValidKeys(rec Record, fields []Field, schema *Schema) bool {
	for i, f := range fields {
		if !schema.isMandatory(f.Name) {
			continue
		}

		s, ok := rec[i].(string)
		if !ok {
			return false
		}

		var err error
		switch f.Type {
		case Integer:
			_, err = parseInteger(s)
		case Float:
			_, err = parseFloat(s)
		case Timestamp:
			_, err = parseTimestamp(s)
		}
		if err != nil {
			return false
		}
	}
	return true
}
