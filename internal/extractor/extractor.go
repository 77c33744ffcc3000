package extractor

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BerylCAtieno/finreport/internal/models"
	"github.com/BerylCAtieno/finreport/internal/utils"
)

// TextReader reads the text layer of a staged PDF.
type TextReader interface {
	ReadText(ctx context.Context, path string) (text string, pages int, err error)
}

// Recognizer runs OCR over a staged PDF. Intermediate files go under workDir.
// On failure it returns whatever text it recognised before the error.
type Recognizer interface {
	RecognizePDF(ctx context.Context, pdfPath, workDir string) (text string, pages int, err error)
}

type Config struct {
	ScratchDir    string
	MinTextLength int
}

type Extractor struct {
	cfg    Config
	reader TextReader
	ocr    Recognizer
	logger *utils.Logger
}

// New builds an extractor. A nil recognizer disables the OCR fallback.
func New(cfg Config, reader TextReader, recognizer Recognizer, logger *utils.Logger) *Extractor {
	return &Extractor{
		cfg:    cfg,
		reader: reader,
		ocr:    recognizer,
		logger: logger,
	}
}

// Extract returns the document text. Parser and OCR failures are absorbed and
// reported as warnings. Errors are returned only when the document cannot be
// staged on disk or ctx ends before extraction completes.
func (e *Extractor) Extract(ctx context.Context, doc models.Document) (models.Extraction, error) {
	start := time.Now()

	sc, err := newScratch(e.cfg.ScratchDir)
	if err != nil {
		return models.Extraction{}, err
	}
	defer func() {
		if err := sc.remove(); err != nil {
			e.logger.Warn("Failed to remove scratch dir", "dir", sc.dir, "error", err)
		}
	}()

	src, err := sc.stage(doc.Data)
	if err != nil {
		return models.Extraction{}, err
	}

	res := models.Extraction{Method: models.MethodPDFText}

	text, pages, readErr := e.reader.ReadText(ctx, src)
	if err := ctx.Err(); err != nil {
		return models.Extraction{}, err
	}
	res.Pages = pages
	if readErr != nil {
		e.logger.Warn("Primary text extraction failed", "filename", doc.Name, "error", readErr)
		res.Warnings = append(res.Warnings, "pdf-text: "+readErr.Error())
		text = ""
	}

	if readErr == nil && !e.belowThreshold(text) {
		res.Text = Normalize(text)
		res.Duration = time.Since(start)
		return res, nil
	}

	if e.ocr == nil {
		e.logger.Warn("Text layer too short and OCR is disabled", "filename", doc.Name)
		res.Warnings = append(res.Warnings, "ocr: disabled")
		res.Text = Normalize(text)
		res.Duration = time.Since(start)
		return res, nil
	}

	e.logger.Info("Falling back to OCR", "filename", doc.Name, "text_length", utf8.RuneCountInString(strings.TrimSpace(text)))

	ocrText, ocrPages, ocrErr := e.ocr.RecognizePDF(ctx, src, sc.dir)
	if err := ctx.Err(); err != nil {
		return models.Extraction{}, err
	}
	if ocrErr != nil {
		e.logger.Warn("OCR failed", "filename", doc.Name, "error", ocrErr)
		res.Warnings = append(res.Warnings, "pdf-ocr: "+ocrErr.Error())
	}

	if strings.TrimSpace(ocrText) != "" {
		res.Method = models.MethodPDFOCR
		res.Text = Normalize(ocrText)
		if ocrPages > 0 {
			res.Pages = ocrPages
		}
	} else {
		res.Text = Normalize(text)
	}

	res.Duration = time.Since(start)
	return res, nil
}

func (e *Extractor) belowThreshold(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) < e.cfg.MinTextLength
}
