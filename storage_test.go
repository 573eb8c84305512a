package blockloader

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/api/option"
)

// testGCS serves multipart uploads and object listings of the JSON API.
type testGCS struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func bucketFromPath(path string) string {
	parts := strings.Split(path, "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "b" {
			return parts[i+1]
		}
	}
	return ""
}

func (g *testGCS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	bucket := bucketFromPath(r.URL.Path)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/o"):
		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
			http.Error(w, "multipart upload expected", http.StatusBadRequest)
			return
		}
		mr := multipart.NewReader(r.Body, params["boundary"])

		var meta struct {
			Name        string `json:"name"`
			ContentType string `json:"contentType"`
		}
		part, err := mr.NextPart()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := json.NewDecoder(part).Decode(&meta); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		part, err = mr.NextPart()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		body, err := io.ReadAll(part)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		g.objects[bucket+"/"+meta.Name] = body
		g.types[bucket+"/"+meta.Name] = meta.ContentType

		json.NewEncoder(w).Encode(map[string]interface{}{
			"bucket":      bucket,
			"name":        meta.Name,
			"contentType": meta.ContentType,
			"generation":  "7",
		})
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/o"):
		var items []map[string]interface{}
		var names []string
		for k := range g.objects {
			if strings.HasPrefix(k, bucket+"/") {
				names = append(names, strings.TrimPrefix(k, bucket+"/"))
			}
		}
		sort.Strings(names)
		for _, n := range names {
			items = append(items, map[string]interface{}{"bucket": bucket, "name": n})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"kind": "storage#objects", "items": items})
	default:
		http.Error(w, "unexpected request", http.StatusNotFound)
	}
}

func newTestGCSBlobStore(t *testing.T, g *testGCS) *GCSBlobStore {
	t.Helper()

	srv := httptest.NewServer(g)
	t.Cleanup(srv.Close)

	s, err := NewGCSBlobStore(context.Background(),
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func TestGCSBlobStore(t *testing.T) {
	t.Parallel()

	g := &testGCS{objects: map[string][]byte{}, types: map[string]string{}}
	s := newTestGCSBlobStore(t, g)
	ctx := context.Background()

	body := "block_number,timestamp\n100,2021-01-01T00:00:00Z\n"
	if err := s.Put(ctx, "staging", "blocks.csv", strings.NewReader(body)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := s.Put(ctx, "staging", "archive/blocks.csv", strings.NewReader(body)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if got := string(g.objects["staging/blocks.csv"]); got != body {
		t.Errorf("unexpected object body %q", got)
	}
	if got := g.types["staging/blocks.csv"]; got != "text/csv" {
		t.Errorf("content type should be text/csv, but %q", got)
	}

	names, err := s.List(ctx, "staging")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"archive/blocks.csv", "blocks.csv"}, names); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}
}

type failingReader struct {
	head string
	err  error
	done bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, r.err
	}
	r.done = true
	return copy(p, r.head), nil
}

func TestGCSBlobStore_Put_readError(t *testing.T) {
	t.Parallel()

	g := &testGCS{objects: map[string][]byte{}, types: map[string]string{}}
	s := newTestGCSBlobStore(t, g)

	readErr := errors.New("disk gone")
	err := s.Put(context.Background(), "staging", "blocks.csv", &failingReader{head: "block_number,timestamp\n100", err: readErr})
	if !errors.Is(err, readErr) {
		t.Fatalf("Put should fail with the read error, but %v", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.objects) != 0 {
		t.Errorf("a failed write must not commit an object, but got %v", g.objects)
	}
}
