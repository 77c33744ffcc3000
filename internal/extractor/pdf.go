package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BerylCAtieno/finreport/internal/utils"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// pdfcpu otherwise writes a config dir under the user's home on first use.
	api.DisableConfigDir()
}

// PDFReader reads the embedded text layer of a PDF file.
type PDFReader struct {
	repair bool
	logger *utils.Logger
}

// NewPDFReader returns a reader. With repair set, a file the parser rejects is
// rewritten by pdfcpu in relaxed mode and parsed once more.
func NewPDFReader(repair bool, logger *utils.Logger) *PDFReader {
	return &PDFReader{repair: repair, logger: logger}
}

func (r *PDFReader) ReadText(ctx context.Context, path string) (string, int, error) {
	text, pages, err := readPlainText(ctx, path)
	if err == nil || !r.repair || ctx.Err() != nil {
		return text, pages, err
	}

	repaired := filepath.Join(filepath.Dir(path), "repaired.pdf")
	if rerr := repairPDF(path, repaired); rerr != nil {
		return "", 0, fmt.Errorf("%w (repair failed: %v)", err, rerr)
	}

	r.logger.Debug("Parsing repaired PDF", "path", repaired, "parse_error", err)
	return readPlainText(ctx, repaired)
}

func readPlainText(ctx context.Context, path string) (text string, numPages int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, numPages, err = "", 0, fmt.Errorf("PDF parser panic: %v", rec)
		}
	}()

	f, pdfReader, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create PDF reader: %w", err)
	}
	defer f.Close()

	var pages []string
	numPages = pdfReader.NumPage()

	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}

		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil || strings.TrimSpace(pageText) == "" {
			continue
		}

		pages = append(pages, pageText)
	}

	return strings.Join(pages, "\n"), numPages, nil
}

var optimizeFile = api.OptimizeFile

// repairPDF rewrites inPath in relaxed mode. pdfcpu panics are returned as errors.
func repairPDF(inPath, outPath string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("PDF repair panic: %v", rec)
		}
	}()

	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return optimizeFile(inPath, outPath, cfg)
}
