package blockloader

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

// stagedTimeLayout is ISO-8601 in UTC with up to microsecond precision.
const stagedTimeLayout = "2006-01-02T15:04:05.999999Z07:00"

// StagedArtifact points to a staged file ready to be loaded.
type StagedArtifact struct {
	Location string
	Schema   *Schema
	RowCount int
}

// Stager writes typed records to a blob store as CSV.
type Stager struct {
	Store  BlobStore
	Bucket string
}

// Stage serializes typed and writes it to destinationName in the stager's
// bucket, replacing any previous object with the same name.
func (s *Stager) Stage(ctx context.Context, typed *TypedRecordSet, destinationName string) (*StagedArtifact, error) {
	l := log.Ctx(ctx)
	location := fmt.Sprintf("gs://%s/%s", s.Bucket, destinationName)

	buf := &bytes.Buffer{}
	if err := WriteStaged(buf, typed); err != nil {
		return nil, xerrors.Errorf("failed to serialize records for %s: %w", location, err)
	}
	l.Debug().Msgf("serialized %d rows into %d bytes", len(typed.Rows), buf.Len())

	if err := s.Store.Put(ctx, s.Bucket, destinationName, buf); err != nil {
		return nil, &StagingIOError{Location: location, Err: err}
	}

	return &StagedArtifact{
		Location: location,
		Schema:   typed.Schema,
		RowCount: len(typed.Rows),
	}, nil
}

// WriteStaged writes typed as CSV with a header row in schema order.
// Null values are written as empty fields.
func WriteStaged(w io.Writer, typed *TypedRecordSet) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(typed.Schema.Names()); err != nil {
		return err
	}

	line := make([]string, typed.Schema.Len())
	for i, rec := range typed.Rows {
		for j, v := range rec {
			s, err := formatValue(v)
			if err != nil {
				return xerrors.Errorf("row %d column %d: %w", i, j, err)
			}
			line[j] = s
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatValue(v interface{}) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case string:
		return x, nil
	case time.Time:
		return x.UTC().Format(stagedTimeLayout), nil
	default:
		return "", xerrors.Errorf("unexpected value type %T", v)
	}
}

// ReadStaged parses a file written by WriteStaged back into typed records.
// The header must list the schema fields in order.
func ReadStaged(r io.Reader, schema *Schema) (*TypedRecordSet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = schema.Len()

	header, err := cr.Read()
	if err != nil {
		return nil, xerrors.Errorf("failed to read header: %w", err)
	}
	for i, name := range schema.Names() {
		if header[i] != name {
			return nil, xerrors.Errorf("header column %d is %q, expected %q", i, header[i], name)
		}
	}

	fields := schema.Fields()
	out := &TypedRecordSet{Schema: schema}

	for n := 0; ; n++ {
		line, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, xerrors.Errorf("failed to read row %d: %w", n, err)
		}

		rec := make(Record, len(fields))
		for i, f := range fields {
			v, err := parseStagedValue(f.Type, line[i])
			if err != nil {
				return nil, xerrors.Errorf("row %d field %s: %w", n, f.Name, err)
			}
			rec[i] = v
		}
		out.Rows = append(out.Rows, rec)
	}

	return out, nil
}

func parseStagedValue(t FieldType, s string) (interface{}, error) {
	if s == "" {
		return nil, nil
	}

	switch t {
	case Integer:
		return strconv.ParseInt(s, 10, 64)
	case Float:
		return strconv.ParseFloat(s, 64)
	case Timestamp:
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, err
		}
		return ts.UTC(), nil
	default:
		return s, nil
	}
}
