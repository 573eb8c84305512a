package blockloader

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/xerrors"
)

var (
	errNotIntegral = errors.New("not an integral number")
	errNotFinite   = errors.New("not a finite number")
)

// Coerce casts every value of norm to the type of its schema field.
//
// INTEGER and TIMESTAMP values that cannot be parsed become null, or fail with
// *TypeCoercionError on required fields. FLOAT values that cannot be parsed
// always become null. Values already holding the target type pass through
// unchanged, so coercing a TypedRecordSet again is a no-op.
func Coerce(norm *NormalizedRecordSet, schema *Schema) (*TypedRecordSet, error) {
	fields := schema.Fields()
	out := &TypedRecordSet{Schema: schema, Rows: make([]Record, len(norm.Rows))}

	for r, row := range norm.Rows {
		if len(row) != len(fields) {
			return nil, xerrors.Errorf("row %d has %d values for %d fields", r, len(row), len(fields))
		}

		rec := make(Record, len(fields))
		for i, f := range fields {
			v, err := castValue(f.Type, row[i])
			switch {
			case err != nil && !f.Required:
				continue
			case err != nil, v == nil && f.Required && f.Type != Float:
				return nil, &TypeCoercionError{Field: f.Name, Type: f.Type, Row: r, Value: row[i], Err: err}
			}
			rec[i] = v
		}
		out.Rows[r] = rec
	}

	return out, nil
}

// castValue returns nil without error for null input and for unparseable
// FLOAT and TIMESTAMP values.
func castValue(t FieldType, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}

	switch t {
	case Integer:
		switch x := v.(type) {
		case int64:
			return x, nil
		case string:
			return parseInteger(x)
		}
	case Float:
		switch x := v.(type) {
		case float64:
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, nil
			}
			return x, nil
		case string:
			f, err := parseFloat(x)
			if err != nil {
				return nil, nil
			}
			return f, nil
		}
	case String:
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprint(v)
		}
		// CSV readers fold CRLF inside quoted fields, so staged values use LF.
		return strings.ReplaceAll(s, "\r\n", "\n"), nil
	case Timestamp:
		switch x := v.(type) {
		case time.Time:
			return normalizeTime(x), nil
		case string:
			ts, err := parseTimestamp(x)
			if err != nil {
				return nil, nil
			}
			return ts, nil
		}
	}

	return nil, xerrors.Errorf("unsupported value %T for %s", v, t)
}

// parseInteger accepts plain integers and integral decimals such as "100.0".
func parseInteger(s string) (int64, error) {
	s = strings.TrimSpace(s)

	i, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return i, nil
	}

	f, ferr := strconv.ParseFloat(s, 64)
	if ferr != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, errNotIntegral
	}

	return int64(f), nil
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotFinite
	}
	return f, nil
}

// parseTimestamp parses most date-time layouts. Values without a zone are
// taken as UTC, so the result never depends on the host time zone.
func parseTimestamp(s string) (time.Time, error) {
	t, err := dateparse.ParseIn(strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return normalizeTime(t), nil
}

// normalizeTime keeps the precision BigQuery stores.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
