package blockloader

import (
	"context"
	"io"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
	"golang.org/x/xerrors"
)

// DatasetSource yields a table of a dataset.
type DatasetSource interface {
	Fetch(ctx context.Context, datasetID, filePath string) (*RawRecordSet, error)
}

// ObjectSource is a DatasetSource reading a single file. The first parsed
// row is the header.
type ObjectSource struct {
	Extractor Extractor

	// Encoding is the source file encoding. Nil means UTF-8.
	Encoding encoding.Encoding

	// Parser defaults to CSVParser.
	Parser Parser
}

// Fetch extracts and parses datasetID/filePath.
func (s *ObjectSource) Fetch(ctx context.Context, datasetID, filePath string) (*RawRecordSet, error) {
	l := log.Ctx(ctx)

	rc, err := s.Extractor.Extract(ctx, datasetID, filePath)
	if err != nil {
		return nil, xerrors.Errorf("failed to extract: %w", err)
	}
	defer rc.Close()

	var r io.Reader = rc
	if s.Encoding != nil {
		r = transform.NewReader(r, s.Encoding.NewDecoder())
	}

	parser := s.Parser
	if parser == nil {
		parser = CSVParser()
	}

	rows, err := parser(ctx, r)
	if err != nil {
		l.Error().Msgf("failed to parse %s/%s: %v", datasetID, filePath, err)
		return nil, xerrors.Errorf("failed to parse: %w", err)
	}

	if len(rows) == 0 {
		return nil, xerrors.Errorf("%s/%s has no header row", datasetID, filePath)
	}

	return &RawRecordSet{Header: rows[0], Rows: rows[1:]}, nil
}

// LookupEncoding resolves an encoding by its WHATWG name such as "shift_jis".
// An empty name or "utf-8" returns nil.
func LookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" {
		return nil, nil
	}

	e, err := htmlindex.Get(name)
	if err != nil {
		return nil, xerrors.Errorf("unknown encoding %q: %w", name, err)
	}

	if n, _ := htmlindex.Name(e); n == "utf-8" {
		return nil, nil
	}

	return e, nil
}
