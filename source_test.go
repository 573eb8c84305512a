package blockloader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/encoding/japanese"
)

func TestObjectSource_file(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "ethereum-block-data"), 0o755); err != nil {
		t.Fatal(err)
	}
	body := "Block Number,Timestamp\n100,2021-01-01T00:00:00Z\n101\n"
	if err := os.WriteFile(filepath.Join(root, "ethereum-block-data", "block_data.csv"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	src := &ObjectSource{Extractor: &FileExtractor{Root: root}}

	raw, err := src.Fetch(context.Background(), "ethereum-block-data", "block_data.csv")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := &RawRecordSet{
		Header: []string{"Block Number", "Timestamp"},
		Rows:   [][]string{{"100", "2021-01-01T00:00:00Z"}, {"101"}},
	}
	if diff := cmp.Diff(want, raw); diff != "" {
		t.Errorf("raw record set mismatch (-want +got):\n%s", diff)
	}

	if _, err := src.Fetch(context.Background(), "ethereum-block-data", "missing.csv"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestObjectSource_encoding(t *testing.T) {
	t.Parallel()

	sjis, err := japanese.ShiftJIS.NewEncoder().String("Block Number,Miner\n100,マイナー\n")
	if err != nil {
		t.Fatal(err)
	}

	enc, err := LookupEncoding("shift_jis")
	if err != nil {
		t.Fatal(err)
	}

	src := &ObjectSource{Extractor: &testExtractor{body: sjis}, Encoding: enc, Parser: CSVParser()}

	raw, err := src.Fetch(context.Background(), "d", "f")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if raw.Rows[0][1] != "マイナー" {
		t.Errorf("expected decoded value but %q", raw.Rows[0][1])
	}
}

func TestObjectSource_empty(t *testing.T) {
	t.Parallel()

	src := &ObjectSource{Extractor: &testExtractor{}}

	if _, err := src.Fetch(context.Background(), "d", "f"); err == nil {
		t.Error("expected error for a file without header")
	}
}

func TestLookupEncoding(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "utf-8", "UTF8"} {
		enc, err := LookupEncoding(name)
		if err != nil || enc != nil {
			t.Errorf("LookupEncoding(%q) = %v, %v; want nil", name, enc, err)
		}
	}

	if _, err := LookupEncoding("klingon"); err == nil {
		t.Error("expected error for unknown encoding")
	}
}

func TestObjectSource_xls(t *testing.T) {
	t.Parallel()

	src := &ObjectSource{Extractor: &FileExtractor{Root: "."}, Parser: XLSParser()}

	raw, err := src.Fetch(context.Background(), "testdata", "block_data.xls")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := &RawRecordSet{
		Header: []string{"Block Number", "Timestamp", "Miner", "Gas Used"},
		Rows: [][]string{
			{"12965000", "2021-08-05 12:33:42", "0xm1", "30025257"},
			{"12965001", "2021-08-05 12:34:10", "0xm2", "1500000"},
		},
	}
	if diff := cmp.Diff(want, raw); diff != "" {
		t.Errorf("raw record set mismatch (-want +got):\n%s", diff)
	}
}

func TestXLSParser_notXLS(t *testing.T) {
	t.Parallel()

	if _, err := XLSParser()(context.Background(), strings.NewReader("Block Number,Timestamp\n")); err == nil {
		t.Error("expected error for a file which is not xls")
	}
}
