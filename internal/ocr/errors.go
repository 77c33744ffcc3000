package ocr

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPagesRendered is returned when the rasterizer produced no page images.
	ErrNoPagesRendered = errors.New("no pages rendered")

	// ErrEmptyText is returned when every page was recognised but no text came back.
	ErrEmptyText = errors.New("OCR produced no text")

	// ErrEngineUnavailable is returned when the configured engine cannot be constructed.
	ErrEngineUnavailable = errors.New("OCR engine unavailable")
)

// OCRError wraps a failure with the operation that produced it.
type OCRError struct {
	Op      string
	Err     error
	Details string
}

func (e *OCRError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

func (e *OCRError) Unwrap() error {
	return e.Err
}

func NewOCRError(op string, err error, details string) *OCRError {
	return &OCRError{Op: op, Err: err, Details: details}
}
