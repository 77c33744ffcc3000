package models

import (
	"encoding/json"
	"time"
)

// Document is one uploaded file. It lives only for the duration of a request.
type Document struct {
	Name string
	Data []byte
}

const (
	MethodPDFText = "pdf-text"
	MethodPDFOCR  = "pdf-ocr"
)

// Extraction is the text pulled out of a document and how it was obtained.
type Extraction struct {
	Text     string
	Method   string
	Pages    int
	Warnings []string
	Duration time.Duration
}

type KeywordMatch struct {
	Keyword string `json:"keyword"`
	Value   string `json:"value"`
}

// ExtractedData holds exactly one of free-form text, keyword matches or a failure message.
type ExtractedData struct {
	Text    string
	Matches []KeywordMatch
	Failure string

	// NoContent is set when the filter found nothing financial in the document.
	NoContent bool
}

func TextData(text string) ExtractedData {
	return ExtractedData{Text: text}
}

func MatchData(matches []KeywordMatch) ExtractedData {
	return ExtractedData{Matches: matches}
}

func FailureData(message string) ExtractedData {
	return ExtractedData{Failure: message}
}

func (d ExtractedData) Failed() bool {
	return d.Failure != ""
}

func (d ExtractedData) MarshalJSON() ([]byte, error) {
	switch {
	case d.Failure != "":
		return json.Marshal(map[string]string{"error": d.Failure})
	case d.Matches != nil:
		return json.Marshal(d.Matches)
	default:
		return json.Marshal(d.Text)
	}
}

const (
	StatusOK        = "ok"
	StatusNoContent = "no_content"
	StatusFailed    = "failed"
)

type StructuredResult struct {
	Filename      string        `json:"file_name"`
	ExtractedData ExtractedData `json:"extracted_data"`
	Status        string        `json:"status"`
	TextSource    string        `json:"text_source,omitempty"`
}

// Report is the ordered batch output, one result per input document.
type Report struct {
	ID         string
	Strategy   string
	Results    []StructuredResult
	StartedAt  time.Time
	FinishedAt time.Time
}

func (r *Report) Count(status string) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

type ExtractResponse struct {
	Status              string             `json:"status"`
	TotalFilesProcessed int                `json:"total_files_processed"`
	Results             []StructuredResult `json:"results"`
}

// Run is the persisted summary of one batch. It never carries document contents.
type Run struct {
	ID         string    `json:"id" db:"id"`
	Strategy   string    `json:"strategy" db:"strategy"`
	TotalFiles int       `json:"total_files" db:"total_files"`
	Succeeded  int       `json:"succeeded" db:"succeeded"`
	NoContent  int       `json:"no_content" db:"no_content"`
	Failed     int       `json:"failed" db:"failed"`
	StartedAt  time.Time `json:"started_at" db:"started_at"`
	FinishedAt time.Time `json:"finished_at" db:"finished_at"`
}

func RunFromReport(r *Report) *Run {
	return &Run{
		ID:         r.ID,
		Strategy:   r.Strategy,
		TotalFiles: len(r.Results),
		Succeeded:  r.Count(StatusOK),
		NoContent:  r.Count(StatusNoContent),
		Failed:     r.Count(StatusFailed),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}
