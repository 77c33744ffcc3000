package extractor

import (
	"fmt"
	"os"
	"path/filepath"
)

const stagedName = "source.pdf"

// scratch is a per-document working directory. Everything written for one
// document (the staged copy, a repaired copy, rendered pages) lives under it.
type scratch struct {
	dir string
}

func newScratch(base string) (*scratch, error) {
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch root: %w", err)
	}

	dir, err := os.MkdirTemp(base, "finreport-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	return &scratch{dir: dir}, nil
}

func (s *scratch) stage(data []byte) (string, error) {
	path := filepath.Join(s.dir, stagedName)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to stage document: %w", err)
	}
	return path, nil
}

func (s *scratch) remove() error {
	return os.RemoveAll(s.dir)
}
