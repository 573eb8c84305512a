package blockloader

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var testSchema = NewSchema([]Field{
	{Name: "id", Type: Integer, Required: true},
	{Name: "count", Type: Integer},
	{Name: "amount", Type: Float},
	{Name: "strict_amount", Type: Float, Required: true},
	{Name: "label", Type: String},
	{Name: "at", Type: Timestamp, Required: true},
	{Name: "seen_at", Type: Timestamp},
}, "id", "at")

func TestCoerce_lenientFloat(t *testing.T) {
	t.Parallel()

	raw := &RawRecordSet{
		Header: []string{"Block Number", "Timestamp", "Gas Used"},
		Rows:   [][]string{{"100", "2021-01-01T00:00:00Z", "abc"}},
	}

	norm, err := Normalize(raw, BlockSchema)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	typed, err := Coerce(norm, BlockSchema)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(typed.Rows) != 1 {
		t.Fatalf("Size of typed rows should be 1, but %d", len(typed.Rows))
	}

	if v := typed.Column("gas_used")[0]; v != nil {
		t.Errorf("gas_used should be null, but %v", v)
	}

	if v := typed.Column("block_number")[0]; v != int64(100) {
		t.Errorf("block_number should be 100, but %#v", v)
	}

	want := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	if v, ok := typed.Column("timestamp")[0].(time.Time); !ok || !v.Equal(want) {
		t.Errorf("timestamp should be %v, but %#v", want, typed.Column("timestamp")[0])
	}
}

func TestCoerce(t *testing.T) {
	t.Parallel()

	norm := &NormalizedRecordSet{
		Schema: testSchema,
		Rows: []Record{
			{"1", "2", "1.5", "2.5e3", "hello", "2021-01-01T00:00:00.1234567Z", "2021-01-02T12:04:05+09:00"},
			{"2.0", "x", "NaN", "bad", "", "2021-01-01 00:00:00", "not a date"},
			{"3", nil, nil, nil, nil, "2021-01-01T00:00:00Z", nil},
		},
	}

	typed, err := Coerce(norm, testSchema)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []Record{
		{
			int64(1), int64(2), 1.5, 2500.0, "hello",
			time.Date(2021, 1, 1, 0, 0, 0, 123456000, time.UTC),
			time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC),
		},
		{int64(2), nil, nil, nil, "", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), nil},
		{int64(3), nil, nil, nil, nil, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), nil},
	}

	if diff := cmp.Diff(want, typed.Rows); diff != "" {
		t.Errorf("typed rows mismatch (-want +got):\n%s", diff)
	}

	for i, r := range typed.Rows {
		for j, v := range r {
			if ts, ok := v.(time.Time); ok && ts.Location() != time.UTC {
				t.Errorf("row %d column %d is not in UTC: %v", i, j, ts)
			}
		}
	}
}

func TestCoerce_requiredField(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		row   Record
		field string
	}{
		{"unparseable integer", Record{"abc", nil, nil, nil, nil, "2021-01-01", nil}, "id"},
		{"null integer", Record{nil, nil, nil, nil, nil, "2021-01-01", nil}, "id"},
		{"fractional integer", Record{"1.5", nil, nil, nil, nil, "2021-01-01", nil}, "id"},
		{"unparseable timestamp", Record{"1", nil, nil, nil, nil, "not a date", nil}, "at"},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			norm := &NormalizedRecordSet{Schema: testSchema, Rows: []Record{c.row}}

			_, err := Coerce(norm, testSchema)

			var cerr *TypeCoercionError
			if !errors.As(err, &cerr) {
				t.Fatalf("expected TypeCoercionError but %v", err)
			}
			if cerr.Field != c.field {
				t.Errorf("expected field %q but %q", c.field, cerr.Field)
			}
		})
	}
}

func TestCoerce_idempotent(t *testing.T) {
	t.Parallel()

	norm := &NormalizedRecordSet{
		Schema: testSchema,
		Rows: []Record{
			{"1", "2", "1.5", "-3", "hello", "2021-01-01T09:00:00+09:00", "2021-01-02 03:04:05"},
			{"2", nil, "Inf", nil, "0x00", "2021-01-01 00:00:00.999999999", nil},
		},
	}

	once, err := Coerce(norm, testSchema)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	twice, err := Coerce(&NormalizedRecordSet{Schema: testSchema, Rows: once.Rows}, testSchema)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if diff := cmp.Diff(once.Rows, twice.Rows); diff != "" {
		t.Errorf("second coercion changed rows (-once +twice):\n%s", diff)
	}
}

func TestParseInteger(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in    string
		want  int64
		valid bool
	}{
		{"100", 100, true},
		{" -7 ", -7, true},
		{"100.0", 100, true},
		{"1e3", 1000, true},
		{"9223372036854775807", math.MaxInt64, true},
		{"100.5", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}

	for _, c := range cases {
		got, err := parseInteger(c.in)
		if c.valid && (err != nil || got != c.want) {
			t.Errorf("parseInteger(%q) = %d, %v; want %d", c.in, got, err, c.want)
		}
		if !c.valid && err == nil {
			t.Errorf("parseInteger(%q) should fail, but %d", c.in, got)
		}
	}
}
