package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BerylCAtieno/finreport/internal/config"
	"github.com/BerylCAtieno/finreport/internal/export"
	"github.com/BerylCAtieno/finreport/internal/models"
	"github.com/BerylCAtieno/finreport/internal/storage"
)

func isPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// LoadLocal reads the given files and every PDF found under the given
// directories. Files keep argument order; directory contents are sorted.
func LoadLocal(paths []string) ([]models.Document, error) {
	var docs []models.Document

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}

		if !info.IsDir() {
			doc, err := readFile(p)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
			continue
		}

		var found []string
		err = filepath.WalkDir(p, func(fp string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isPDF(d.Name()) {
				found = append(found, fp)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
		sort.Strings(found)

		for _, fp := range found {
			doc, err := readFile(fp)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	}

	return docs, nil
}

func readFile(p string) (models.Document, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return models.Document{Name: filepath.Base(p), Data: data}, nil
}

// LoadS3 downloads every PDF under prefix in key order.
func LoadS3(ctx context.Context, store storage.Storage, prefix string) ([]models.Document, error) {
	keys, err := store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	var docs []models.Document
	for _, key := range keys {
		if !isPDF(key) {
			continue
		}
		data, err := store.Download(ctx, key)
		if err != nil {
			return nil, err
		}
		docs = append(docs, models.Document{Name: path.Base(key), Data: data})
	}
	return docs, nil
}

// Encode renders the report in the requested format and returns the bytes
// with their content type.
func Encode(exporter *export.Exporter, report *models.Report, format string) ([]byte, string, error) {
	switch format {
	case config.FormatXLSX:
		data, err := exporter.XLSX(report)
		return data, export.ContentTypeXLSX, err
	case config.FormatJSON:
		data, err := json.MarshalIndent(export.Response(report), "", "  ")
		return data, "application/json", err
	default:
		return nil, "", fmt.Errorf("unknown format %q", format)
	}
}
