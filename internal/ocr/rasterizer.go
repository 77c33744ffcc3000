package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Rasterizer renders PDF pages to PNG files with pdftoppm.
type Rasterizer struct {
	runner   Runner
	bin      string
	dpi      int
	maxPages int
}

func NewRasterizer(runner Runner, bin string, dpi, maxPages int) *Rasterizer {
	if bin == "" {
		bin = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 300
	}
	return &Rasterizer{runner: runner, bin: bin, dpi: dpi, maxPages: maxPages}
}

// Rasterize writes page images into outDir and returns their paths in page order.
func (r *Rasterizer) Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	const op = "Rasterize"

	if err := os.MkdirAll(outDir, 0o700); err != nil {
		return nil, NewOCRError(op, err, "creating page dir")
	}

	prefix := filepath.Join(outDir, "page")

	// pdftoppm -r 300 -png [-f 1 -l N] <in.pdf> <out/page>
	args := []string{"-r", strconv.Itoa(r.dpi), "-png"}
	if r.maxPages > 0 {
		args = append(args, "-f", "1", "-l", strconv.Itoa(r.maxPages))
	}
	args = append(args, pdfPath, prefix)

	if _, errb, err := r.runner.Run(ctx, r.bin, args...); err != nil {
		return nil, NewOCRError(op, err, truncate(strings.TrimSpace(string(errb)), 512))
	}

	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, NewOCRError(op, err, "listing rendered pages")
	}
	if len(matches) == 0 {
		return nil, NewOCRError(op, ErrNoPagesRendered, filepath.Base(pdfPath))
	}

	sortByPageNumber(matches)
	return matches, nil
}

// sortByPageNumber orders page-1.png, page-2.png ... page-10.png numerically.
func sortByPageNumber(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		return pageNumber(paths[i]) < pageNumber(paths[j])
	})
}

func pageNumber(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), ".png")
	idx := strings.LastIndex(base, "-")
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(base[idx+1:])
	if err != nil {
		return 0
	}
	return n
}

func (r *Rasterizer) String() string {
	return fmt.Sprintf("%s@%ddpi", r.bin, r.dpi)
}
