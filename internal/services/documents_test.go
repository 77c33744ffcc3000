package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BerylCAtieno/finreport/internal/analyzer"
	"github.com/BerylCAtieno/finreport/internal/config"
	"github.com/BerylCAtieno/finreport/internal/extractor"
	"github.com/BerylCAtieno/finreport/internal/keywords"
	"github.com/BerylCAtieno/finreport/internal/models"
	"github.com/BerylCAtieno/finreport/internal/utils"
)

// textExtractor treats the document bytes as its text.
type textExtractor struct {
	delay    func(name string) time.Duration
	failFor  string
	inFlight int32
	maxSeen  int32
}

func (e *textExtractor) Extract(ctx context.Context, doc models.Document) (models.Extraction, error) {
	n := atomic.AddInt32(&e.inFlight, 1)
	defer atomic.AddInt32(&e.inFlight, -1)
	for {
		m := atomic.LoadInt32(&e.maxSeen)
		if n <= m || atomic.CompareAndSwapInt32(&e.maxSeen, m, n) {
			break
		}
	}

	if e.delay != nil {
		time.Sleep(e.delay(doc.Name))
	}
	if doc.Name == e.failFor {
		return models.Extraction{}, errors.New("failed to stage document: disk full")
	}
	return models.Extraction{Text: string(doc.Data), Method: models.MethodPDFText}, nil
}

type failingStructurer struct {
	analyzer.Structurer
	failOn string
}

func (s failingStructurer) Structure(ctx context.Context, text string) (models.ExtractedData, error) {
	if strings.Contains(text, s.failOn) {
		return models.ExtractedData{}, &analyzer.StructuringError{Model: "test", Err: errors.New("502 bad gateway")}
	}
	return s.Structurer.Structure(ctx, text)
}

type blockingStructurer struct{}

func (blockingStructurer) Name() string { return "llm" }

func (blockingStructurer) Structure(ctx context.Context, _ string) (models.ExtractedData, error) {
	<-ctx.Done()
	return models.ExtractedData{}, &analyzer.StructuringError{Model: "test", Err: ctx.Err()}
}

type memoryRuns struct {
	mu   sync.Mutex
	runs []models.Run
	err  error
}

func (m *memoryRuns) Create(_ context.Context, run *models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.runs = append(m.runs, *run)
	return nil
}

func (m *memoryRuns) ListRecent(_ context.Context, limit int) ([]models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.runs) {
		limit = len(m.runs)
	}
	return m.runs[:limit], nil
}

func patternStructurer() analyzer.Structurer {
	return analyzer.NewPatternAnalyzer(keywords.NewMatcher(config.DefaultKeywords))
}

func docs(texts ...string) []models.Document {
	out := make([]models.Document, len(texts))
	for i, text := range texts {
		out[i] = models.Document{Name: fmt.Sprintf("doc-%02d.pdf", i), Data: []byte(text)}
	}
	return out
}

func TestProcessPreservesInputOrder(t *testing.T) {
	ext := &textExtractor{
		// Earlier documents finish last.
		delay: func(name string) time.Duration {
			var i int
			fmt.Sscanf(name, "doc-%d.pdf", &i)
			return time.Duration(12-i) * 2 * time.Millisecond
		},
	}
	svc := NewReportServiceWithDeps(ext, patternStructurer(), nil, Options{Workers: 4}, utils.NewNopLogger())

	var texts []string
	for i := 0; i < 12; i++ {
		texts = append(texts, fmt.Sprintf("Revenue: %d", i))
	}
	input := docs(texts...)

	report, err := svc.Process(context.Background(), input)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(report.Results) != len(input) {
		t.Fatalf("rows = %d, want %d", len(report.Results), len(input))
	}
	for i, res := range report.Results {
		if res.Filename != input[i].Name {
			t.Errorf("row %d = %s, want %s", i, res.Filename, input[i].Name)
		}
		want := []models.KeywordMatch{{Keyword: "revenue", Value: fmt.Sprint(i)}}
		if !reflect.DeepEqual(res.ExtractedData.Matches, want) {
			t.Errorf("row %d data = %v, want %v", i, res.ExtractedData.Matches, want)
		}
	}
	if ext.maxSeen > 4 {
		t.Errorf("saw %d documents in flight, limit is 4", ext.maxSeen)
	}
}

func TestProcessFailureMarksOnlyThatRow(t *testing.T) {
	structurer := failingStructurer{Structurer: patternStructurer(), failOn: "POISON"}
	ext := &textExtractor{failFor: "doc-03.pdf"}
	svc := NewReportServiceWithDeps(ext, structurer, nil, Options{Workers: 2}, utils.NewNopLogger())

	report, err := svc.Process(context.Background(), docs(
		"Revenue: 100",
		"POISON Revenue: 200",
		"nothing financial",
		"Profit 5",
	))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	wantStatus := []string{models.StatusOK, models.StatusFailed, models.StatusNoContent, models.StatusFailed}
	for i, res := range report.Results {
		if res.Status != wantStatus[i] {
			t.Errorf("row %d status = %s, want %s", i, res.Status, wantStatus[i])
		}
	}

	if msg := report.Results[1].ExtractedData.Failure; !strings.Contains(msg, "502 bad gateway") {
		t.Errorf("structuring failure message = %q", msg)
	}
	if report.Results[1].TextSource != models.MethodPDFText {
		t.Errorf("failed row should keep its text source, got %q", report.Results[1].TextSource)
	}
	if msg := report.Results[3].ExtractedData.Failure; !strings.Contains(msg, "disk full") {
		t.Errorf("extraction failure message = %q", msg)
	}
	if !keywords.IsNoMatch(report.Results[2].ExtractedData.Matches) {
		t.Errorf("no-content row should carry the sentinel, got %v", report.Results[2].ExtractedData.Matches)
	}
}

func TestProcessDocumentTimeout(t *testing.T) {
	svc := NewReportServiceWithDeps(&textExtractor{}, blockingStructurer{}, nil,
		Options{Workers: 2, DocumentTimeout: 20 * time.Millisecond}, utils.NewNopLogger())

	report, err := svc.Process(context.Background(), docs("Revenue 1", "Revenue 2"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	for i, res := range report.Results {
		if res.Status != models.StatusFailed || !strings.Contains(res.ExtractedData.Failure, "timed out") {
			t.Errorf("row %d = %+v, want timeout failure", i, res)
		}
	}
}

func TestProcessCancelledContextKeepsRows(t *testing.T) {
	svc := NewReportServiceWithDeps(&textExtractor{}, patternStructurer(), nil, Options{Workers: 1}, utils.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := svc.Process(ctx, docs("Revenue 1", "Revenue 2", "Revenue 3"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(report.Results) != 3 || report.Count(models.StatusFailed) != 3 {
		t.Errorf("want 3 failed rows, got %+v", report.Results)
	}
}

func TestProcessEmptyBatch(t *testing.T) {
	svc := NewReportServiceWithDeps(&textExtractor{}, patternStructurer(), nil, Options{}, utils.NewNopLogger())

	_, err := svc.Process(context.Background(), nil)
	appErr, ok := utils.AsAppError(err)
	if !ok || appErr.StatusCode != http.StatusBadRequest {
		t.Errorf("err = %v, want 400 AppError", err)
	}
}

func TestProcessRecordsRun(t *testing.T) {
	runs := &memoryRuns{}
	svc := NewReportServiceWithDeps(&textExtractor{}, patternStructurer(), runs, Options{Workers: 2}, utils.NewNopLogger())

	report, err := svc.Process(context.Background(), docs("Revenue 1", "hello"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	got, err := svc.RecentRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("runs = %d, want 1", len(got))
	}
	if got[0].ID != report.ID || got[0].TotalFiles != 2 || got[0].Succeeded != 1 || got[0].NoContent != 1 {
		t.Errorf("unexpected run %+v", got[0])
	}
}

func TestAuditFailureDoesNotFailBatch(t *testing.T) {
	runs := &memoryRuns{err: errors.New("database is locked")}
	svc := NewReportServiceWithDeps(&textExtractor{}, patternStructurer(), runs, Options{}, utils.NewNopLogger())

	if _, err := svc.Process(context.Background(), docs("Revenue 1")); err != nil {
		t.Fatalf("audit error leaked: %v", err)
	}
}

func TestRecentRunsDisabled(t *testing.T) {
	svc := NewReportServiceWithDeps(&textExtractor{}, patternStructurer(), nil, Options{}, utils.NewNopLogger())

	_, err := svc.RecentRuns(context.Background(), 5)
	appErr, ok := utils.AsAppError(err)
	if !ok || appErr.StatusCode != http.StatusNotFound {
		t.Errorf("err = %v, want 404 AppError", err)
	}
}

// contentReader answers from the staged bytes, standing in for a PDF parser.
type contentReader map[string]string

func (r contentReader) ReadText(_ context.Context, path string) (string, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, err
	}
	return r[string(data)], 1, nil
}

type contentOCR map[string]string

func (o contentOCR) RecognizePDF(_ context.Context, path, _ string) (string, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, err
	}
	text, ok := o[string(data)]
	if !ok {
		return "", 0, errors.New("no pages rendered")
	}
	return text, 1, nil
}

func TestProcessTextAndScannedPDF(t *testing.T) {
	reader := contentReader{
		"pdf-a": "Acme Holdings annual statement for the year ended 31 December\nTotal Revenue: 50,000",
		"pdf-b": "",
	}
	ocr := contentOCR{"pdf-b": "Net Profit - 3,400\n"}
	ext := extractor.New(extractor.Config{ScratchDir: t.TempDir(), MinTextLength: 50}, reader, ocr, utils.NewNopLogger())
	svc := NewReportServiceWithDeps(ext, patternStructurer(), nil, Options{Workers: 2}, utils.NewNopLogger())

	report, err := svc.Process(context.Background(), []models.Document{
		{Name: "pdf-a.pdf", Data: []byte("pdf-a")},
		{Name: "pdf-b.pdf", Data: []byte("pdf-b")},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if len(report.Results) != 2 {
		t.Fatalf("rows = %d, want 2", len(report.Results))
	}

	a, b := report.Results[0], report.Results[1]
	if a.Filename != "pdf-a.pdf" || a.TextSource != models.MethodPDFText {
		t.Errorf("row 0 = %+v", a)
	}
	if want := []models.KeywordMatch{{Keyword: "revenue", Value: "50,000"}}; !reflect.DeepEqual(a.ExtractedData.Matches, want) {
		t.Errorf("row 0 matches = %v, want %v", a.ExtractedData.Matches, want)
	}
	if b.Filename != "pdf-b.pdf" || b.TextSource != models.MethodPDFOCR {
		t.Errorf("row 1 = %+v", b)
	}
	if want := []models.KeywordMatch{{Keyword: "profit", Value: "3,400"}}; !reflect.DeepEqual(b.ExtractedData.Matches, want) {
		t.Errorf("row 1 matches = %v, want %v", b.ExtractedData.Matches, want)
	}
}

// stalledReader blocks until the document deadline; stalledOCR does the same
// for scanned documents.
type stalledReader struct{ short bool }

func (r stalledReader) ReadText(ctx context.Context, _ string) (string, int, error) {
	if r.short {
		return "p.1", 1, nil
	}
	<-ctx.Done()
	return "", 0, ctx.Err()
}

// filteredOutStructurer answers like the LLM strategy when the line filter
// finds nothing.
type filteredOutStructurer struct{}

func (filteredOutStructurer) Name() string { return "llm" }

func (filteredOutStructurer) Structure(context.Context, string) (models.ExtractedData, error) {
	data := models.TextData(keywords.NoContentSentinel)
	data.NoContent = true
	return data, nil
}

type stalledOCR struct{}

func (stalledOCR) RecognizePDF(ctx context.Context, _, _ string) (string, int, error) {
	<-ctx.Done()
	return "", 0, ctx.Err()
}

func TestProcessTimeoutDuringExtractionFailsRow(t *testing.T) {
	for _, short := range []bool{false, true} {
		ext := extractor.New(extractor.Config{ScratchDir: t.TempDir(), MinTextLength: 50},
			stalledReader{short: short}, stalledOCR{}, utils.NewNopLogger())

		for _, structurer := range []analyzer.Structurer{patternStructurer(), filteredOutStructurer{}} {
			svc := NewReportServiceWithDeps(ext, structurer, nil,
				Options{Workers: 1, DocumentTimeout: 20 * time.Millisecond}, utils.NewNopLogger())

			report, err := svc.Process(context.Background(), docs("scan"))
			if err != nil {
				t.Fatalf("Process: %v", err)
			}
			res := report.Results[0]
			if res.Status != models.StatusFailed || !strings.Contains(res.ExtractedData.Failure, "processing timed out") {
				t.Errorf("short=%v %s: row = %+v, want timeout failure", short, structurer.Name(), res)
			}
		}
	}
}
