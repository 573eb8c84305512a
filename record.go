package blockloader

// RawRecordSet is a table as delivered by a dataset source.
// Header and cell values are untrusted.
type RawRecordSet struct {
	Header []string
	Rows   [][]string
}

// Record is a row aligned with the fields of a Schema.
// A nil element is a null value.
type Record []interface{}

// NormalizedRecordSet has columns named and ordered by its Schema.
// Values are nil or string.
type NormalizedRecordSet struct {
	Schema *Schema
	Rows   []Record
}

// TypedRecordSet has every value cast to its field type:
// int64 for INTEGER, float64 for FLOAT, string for STRING and
// time.Time in UTC for TIMESTAMP. Only nullable fields hold nil.
type TypedRecordSet struct {
	Schema *Schema
	Rows   []Record
}

// Column returns the values of the named field, or nil if the schema lacks it.
func (t *TypedRecordSet) Column(name string) []interface{} {
	i, ok := t.Schema.Index(name)
	if !ok {
		return nil
	}

	col := make([]interface{}, len(t.Rows))
	for j, r := range t.Rows {
		col[j] = r[i]
	}
	return col
}
