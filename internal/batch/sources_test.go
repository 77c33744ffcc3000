package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/BerylCAtieno/finreport/internal/config"
	"github.com/BerylCAtieno/finreport/internal/export"
	"github.com/BerylCAtieno/finreport/internal/models"
	"github.com/BerylCAtieno/finreport/internal/utils"
)

func names(docs []models.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Name
	}
	return out
}

func TestLoadLocal(t *testing.T) {
	root := t.TempDir()
	write := func(rel, body string) string {
		p := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
		return p
	}

	single := write("single.pdf", "s")
	write("dir/b.pdf", "b")
	write("dir/a.PDF", "a")
	write("dir/notes.txt", "ignored")
	write("dir/nested/c.pdf", "c")

	docs, err := LoadLocal([]string{single, filepath.Join(root, "dir")})
	if err != nil {
		t.Fatalf("LoadLocal: %v", err)
	}

	want := []string{"single.pdf", "a.PDF", "b.pdf", "c.pdf"}
	if got := names(docs); !reflect.DeepEqual(got, want) {
		t.Errorf("names = %v, want %v", got, want)
	}
	if string(docs[0].Data) != "s" {
		t.Errorf("data = %q", docs[0].Data)
	}

	if _, err := LoadLocal([]string{filepath.Join(root, "missing.pdf")}); err == nil {
		t.Error("expected error for missing path")
	}
}

type memStore struct {
	objects map[string][]byte
	listErr error
}

func (m memStore) List(_ context.Context, prefix string) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m memStore) Upload(_ context.Context, key string, data []byte, _ string) error {
	m.objects[key] = data
	return nil
}

func (m memStore) Download(_ context.Context, key string) ([]byte, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func TestLoadS3(t *testing.T) {
	store := memStore{objects: map[string][]byte{
		"q1/b.pdf":     []byte("b"),
		"q1/a.pdf":     []byte("a"),
		"q1/readme.md": []byte("x"),
		"q2/c.pdf":     []byte("c"),
	}}

	docs, err := LoadS3(context.Background(), store, "q1/")
	if err != nil {
		t.Fatalf("LoadS3: %v", err)
	}
	if got := names(docs); !reflect.DeepEqual(got, []string{"a.pdf", "b.pdf"}) {
		t.Errorf("names = %v", got)
	}

	store.listErr = errors.New("access denied")
	if _, err := LoadS3(context.Background(), store, "q1/"); err == nil {
		t.Error("expected list error")
	}
}

func TestEncode(t *testing.T) {
	exp := export.NewExporter(utils.NewNopLogger())
	report := &models.Report{Results: []models.StructuredResult{{Filename: "a.pdf", Status: models.StatusOK}}}

	data, ctype, err := Encode(exp, report, config.FormatXLSX)
	if err != nil || ctype != export.ContentTypeXLSX || !bytes.HasPrefix(data, []byte("PK")) {
		t.Errorf("xlsx: ctype=%q err=%v", ctype, err)
	}

	data, ctype, err = Encode(exp, report, config.FormatJSON)
	if err != nil || ctype != "application/json" {
		t.Fatalf("json: ctype=%q err=%v", ctype, err)
	}
	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil || generic["total_files_processed"].(float64) != 1 {
		t.Errorf("json body = %s", data)
	}

	if _, _, err := Encode(exp, report, "csv"); err == nil {
		t.Error("expected error for unknown format")
	}
}
