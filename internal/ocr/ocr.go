package ocr

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/BerylCAtieno/finreport/internal/config"
	"github.com/BerylCAtieno/finreport/internal/utils"
)

// Engine recognises the text of a single page image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// Pipeline rasterizes a PDF and recognises its pages in order.
type Pipeline struct {
	raster  *Rasterizer
	engine  Engine
	timeout time.Duration
	logger  *utils.Logger
}

func NewPipeline(raster *Rasterizer, engine Engine, timeout time.Duration, logger *utils.Logger) *Pipeline {
	return &Pipeline{
		raster:  raster,
		engine:  engine,
		timeout: timeout,
		logger:  logger,
	}
}

// NewFromConfig wires the configured engine. It returns nil when OCR is disabled.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*Pipeline, error) {
	runner := NewExecRunner(logger)
	raster := NewRasterizer(runner, cfg.Pdftoppm, cfg.OCRDPI, cfg.OCRMaxPages)

	var engine Engine
	switch cfg.OCREngine {
	case config.OCREngineNone:
		return nil, nil
	case config.OCREngineVision:
		v, err := NewVisionEngine(ctx)
		if err != nil {
			return nil, err
		}
		engine = v
	default:
		engine = NewTesseractEngine(runner, cfg.Tesseract, cfg.TesseractLang, cfg.TessdataDir)
	}

	logger.Info("OCR fallback enabled", "engine", engine.Name(), "rasterizer", raster.String())
	return NewPipeline(raster, engine, cfg.OCRTimeout, logger), nil
}

// RecognizePDF renders pdfPath under workDir and recognises every page. When a
// page fails it stops and returns the text recognised so far with the error.
func (p *Pipeline) RecognizePDF(ctx context.Context, pdfPath, workDir string) (string, int, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	pages, err := p.raster.Rasterize(ctx, pdfPath, filepath.Join(workDir, "pages"))
	if err != nil {
		return "", 0, err
	}

	var parts []string
	for i, img := range pages {
		txt, err := p.engine.Recognize(ctx, img)
		if err != nil {
			return strings.Join(parts, "\n"), len(pages), NewOCRError("RecognizePDF", err, fmt.Sprintf("page %d", i+1))
		}
		txt = strings.TrimRight(txt, "\n")
		if strings.TrimSpace(txt) == "" {
			continue
		}
		parts = append(parts, txt)
	}

	text := strings.Join(parts, "\n")
	if text == "" {
		return "", len(pages), NewOCRError("RecognizePDF", ErrEmptyText, fmt.Sprintf("%d pages", len(pages)))
	}

	p.logger.Debug("OCR complete", "engine", p.engine.Name(), "pages", len(pages), "text_length", len(text))
	return text, len(pages), nil
}

// Close releases engine resources such as the Vision gRPC connection.
func (p *Pipeline) Close() error {
	if c, ok := p.engine.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
