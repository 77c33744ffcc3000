package ocr

import (
	"context"
	"regexp"
	"strings"
)

var reBoxNoise = regexp.MustCompile(`[|¦]{2,}`)

// TesseractEngine recognises a page image with the tesseract CLI.
type TesseractEngine struct {
	runner      Runner
	bin         string
	lang        string
	tessdataDir string
}

func NewTesseractEngine(runner Runner, bin, lang, tessdataDir string) *TesseractEngine {
	if bin == "" {
		bin = "tesseract"
	}
	if lang == "" {
		lang = "eng"
	}
	return &TesseractEngine{runner: runner, bin: bin, lang: lang, tessdataDir: tessdataDir}
}

func (t *TesseractEngine) Name() string { return "tesseract" }

func (t *TesseractEngine) Recognize(ctx context.Context, imagePath string) (string, error) {
	// tesseract <file> stdout -l <lang>
	args := []string{imagePath, "stdout", "-l", t.lang}
	if t.tessdataDir != "" {
		args = append(args, "--tessdata-dir", t.tessdataDir)
	}

	out, errb, err := t.runner.Run(ctx, t.bin, args...)
	if err != nil {
		return "", NewOCRError("tesseract", err, truncate(strings.TrimSpace(string(errb)), 512))
	}

	return reBoxNoise.ReplaceAllString(string(out), ""), nil
}
