package blockloader

import (
	"cloud.google.com/go/bigquery"
)

// FieldType is a column type understood by both the coercer and BigQuery.
type FieldType string

// Supported field types.
const (
	Integer   FieldType = "INTEGER"
	Float     FieldType = "FLOAT"
	String    FieldType = "STRING"
	Timestamp FieldType = "TIMESTAMP"
)

// Field is a single column of a Schema.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
}

// Schema is an ordered list of fields shared by the transform and load stages.
// A Schema must not be modified after it is built.
type Schema struct {
	fields    []Field
	index     map[string]int
	mandatory []string
}

// NewSchema builds a Schema. Mandatory fields are the row keys: rows missing
// any of them are dropped by Normalize. Every mandatory field must exist in fields.
func NewSchema(fields []Field, mandatory ...string) *Schema {
	s := &Schema{
		fields:    make([]Field, len(fields)),
		index:     make(map[string]int, len(fields)),
		mandatory: append([]string(nil), mandatory...),
	}
	copy(s.fields, fields)

	for i, f := range s.fields {
		if _, dup := s.index[f.Name]; dup {
			panic("blockloader: duplicated field " + f.Name)
		}
		s.index[f.Name] = i
	}

	for _, name := range s.mandatory {
		if _, ok := s.index[name]; !ok {
			panic("blockloader: unknown mandatory field " + name)
		}
	}

	return s
}

// Fields returns a copy of the fields in declaration order.
func (s *Schema) Fields() []Field {
	fs := make([]Field, len(s.fields))
	copy(fs, s.fields)
	return fs
}

// Names returns field names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	return len(s.fields)
}

// Index returns the position of the named field.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Mandatory returns the names of the row key fields.
func (s *Schema) Mandatory() []string {
	return append([]string(nil), s.mandatory...)
}

func (s *Schema) isMandatory(name string) bool {
	for _, m := range s.mandatory {
		if m == name {
			return true
		}
	}
	return false
}

// BigQuerySchema converts the schema into a BigQuery table schema.
func (s *Schema) BigQuerySchema() bigquery.Schema {
	bs := make(bigquery.Schema, len(s.fields))
	for i, f := range s.fields {
		bs[i] = &bigquery.FieldSchema{
			Name:     f.Name,
			Type:     bigqueryFieldType(f.Type),
			Required: f.Required,
		}
	}
	return bs
}

func bigqueryFieldType(t FieldType) bigquery.FieldType {
	switch t {
	case Integer:
		return bigquery.IntegerFieldType
	case Float:
		return bigquery.FloatFieldType
	case Timestamp:
		return bigquery.TimestampFieldType
	default:
		return bigquery.StringFieldType
	}
}

// BlockSchema is the schema of the Ethereum block table.
// block_number and timestamp identify a row and are mandatory.
var BlockSchema = NewSchema([]Field{
	{Name: "block_number", Type: Integer, Required: true},
	{Name: "base_fee_per_gas", Type: Float},
	{Name: "difficulty", Type: Float},
	{Name: "extra_data", Type: String},
	{Name: "gas_limit", Type: Float},
	{Name: "gas_used", Type: Float},
	{Name: "hash", Type: String},
	{Name: "logs_bloom", Type: String},
	{Name: "miner", Type: String},
	{Name: "mix_hash", Type: String},
	{Name: "nonce", Type: String},
	{Name: "number", Type: Integer},
	{Name: "parent_hash", Type: String},
	{Name: "receipts_root", Type: String},
	{Name: "sha3_uncles", Type: String},
	{Name: "size", Type: Float},
	{Name: "state_root", Type: String},
	{Name: "timestamp", Type: Timestamp, Required: true},
	{Name: "total_difficulty", Type: Float},
	{Name: "transactions_root", Type: String},
	{Name: "uncle_rewards", Type: Float},
	{Name: "transaction_count", Type: Integer},
}, "block_number", "timestamp")
