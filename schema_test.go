package blockloader

import (
	"strings"
	"testing"

	"cloud.google.com/go/bigquery"
)

func TestBlockSchema(t *testing.T) {
	t.Parallel()

	want := "block_number:INTEGER,base_fee_per_gas:FLOAT,difficulty:FLOAT,extra_data:STRING," +
		"gas_limit:FLOAT,gas_used:FLOAT,hash:STRING,logs_bloom:STRING,miner:STRING,mix_hash:STRING," +
		"nonce:STRING,number:INTEGER,parent_hash:STRING,receipts_root:STRING,sha3_uncles:STRING," +
		"size:FLOAT,state_root:STRING,timestamp:TIMESTAMP,total_difficulty:FLOAT," +
		"transactions_root:STRING,uncle_rewards:FLOAT,transaction_count:INTEGER"

	var got []string
	for _, f := range BlockSchema.BigQuerySchema() {
		got = append(got, f.Name+":"+string(f.Type))
	}

	if s := strings.Join(got, ","); s != want {
		t.Errorf("unexpected schema\n got: %s\nwant: %s", s, want)
	}

	mandatory := BlockSchema.Mandatory()
	if len(mandatory) != 2 || mandatory[0] != "block_number" || mandatory[1] != "timestamp" {
		t.Errorf("unexpected mandatory fields %v", mandatory)
	}

	for _, f := range BlockSchema.BigQuerySchema() {
		required := f.Name == "block_number" || f.Name == "timestamp"
		if f.Required != required {
			t.Errorf("%s: Required should be %t", f.Name, required)
		}
	}
}

func TestSchema_immutable(t *testing.T) {
	t.Parallel()

	fs := BlockSchema.Fields()
	fs[0].Name = "changed"

	if BlockSchema.Names()[0] != "block_number" {
		t.Error("Fields must return a copy")
	}

	if bigqueryFieldType(Timestamp) != bigquery.TimestampFieldType {
		t.Error("TIMESTAMP should map to the BigQuery TIMESTAMP type")
	}
}

func TestNewSchema_panics(t *testing.T) {
	t.Parallel()

	cases := map[string]func(){
		"duplicated": func() {
			NewSchema([]Field{{Name: "a", Type: String}, {Name: "a", Type: String}})
		},
		"unknown mandatory": func() {
			NewSchema([]Field{{Name: "a", Type: String}}, "b")
		},
	}

	for name, f := range cases {
		f := f
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			f()
		})
	}
}

func TestParseTableRef(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want TableRef
		ok   bool
	}{
		{"p.d.t", TableRef{Project: "p", Dataset: "d", Table: "t"}, true},
		{"p:d.t", TableRef{Project: "p", Dataset: "d", Table: "t"}, true},
		{"d.t", TableRef{Dataset: "d", Table: "t"}, true},
		{"t", TableRef{}, false},
		{"p..t", TableRef{}, false},
		{"a.b.c.d", TableRef{}, false},
	}

	for _, c := range cases {
		got, err := ParseTableRef(c.in)
		if c.ok && (err != nil || got != c.want) {
			t.Errorf("ParseTableRef(%q) = %+v, %v; want %+v", c.in, got, err, c.want)
		}
		if !c.ok && err == nil {
			t.Errorf("ParseTableRef(%q) should fail", c.in)
		}
	}

	if s := (TableRef{Project: "p", Dataset: "d", Table: "t"}).String(); s != "p.d.t" {
		t.Errorf("unexpected String() %q", s)
	}
}
