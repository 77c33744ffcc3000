package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BerylCAtieno/finreport/internal/analyzer"
	"github.com/BerylCAtieno/finreport/internal/config"
	"github.com/BerylCAtieno/finreport/internal/extractor"
	"github.com/BerylCAtieno/finreport/internal/models"
	"github.com/BerylCAtieno/finreport/internal/ocr"
	"github.com/BerylCAtieno/finreport/internal/repository"
	"github.com/BerylCAtieno/finreport/internal/utils"

	"golang.org/x/sync/errgroup"
)

type ReportService interface {
	Process(ctx context.Context, docs []models.Document) (*models.Report, error)
	RecentRuns(ctx context.Context, limit int) ([]models.Run, error)
	Close() error
}

// TextExtractor produces the text of one document.
type TextExtractor interface {
	Extract(ctx context.Context, doc models.Document) (models.Extraction, error)
}

type Options struct {
	Workers         int
	DocumentTimeout time.Duration
}

type reportService struct {
	extractor  TextExtractor
	structurer analyzer.Structurer
	runs       repository.RunRepository
	opts       Options
	closers    []func() error
	logger     *utils.Logger
}

// NewReportService wires the production pipeline from cfg. runs may be nil,
// in which case batch summaries are not recorded.
func NewReportService(ctx context.Context, cfg *config.Config, runs repository.RunRepository, logger *utils.Logger) (ReportService, error) {
	structurer, err := analyzer.New(cfg, logger)
	if err != nil {
		return nil, err
	}

	pipeline, err := ocr.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OCR: %w", err)
	}

	var recognizer extractor.Recognizer
	var closers []func() error
	if pipeline != nil {
		recognizer = pipeline
		closers = append(closers, pipeline.Close)
	}

	ext := extractor.New(extractor.Config{
		ScratchDir:    cfg.ScratchDir,
		MinTextLength: cfg.MinTextLength,
	}, extractor.NewPDFReader(cfg.PDFRepair, logger), recognizer, logger)

	svc := NewReportServiceWithDeps(ext, structurer, runs, Options{
		Workers:         cfg.Workers,
		DocumentTimeout: cfg.DocumentTimeout,
	}, logger)
	svc.(*reportService).closers = closers

	logger.Info("Report service ready", "strategy", structurer.Name(), "workers", cfg.Workers, "audit", runs != nil)
	return svc, nil
}

func NewReportServiceWithDeps(ext TextExtractor, structurer analyzer.Structurer, runs repository.RunRepository, opts Options, logger *utils.Logger) ReportService {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &reportService{
		extractor:  ext,
		structurer: structurer,
		runs:       runs,
		opts:       opts,
		logger:     logger,
	}
}

// Process runs every document through extract, filter and structure on a
// bounded pool. The report has exactly one row per document in input order; a
// document that fails gets a failure marker in its row and the batch goes on.
func (s *reportService) Process(ctx context.Context, docs []models.Document) (*models.Report, error) {
	if len(docs) == 0 {
		return nil, utils.NewBadRequestError("No files provided")
	}

	report := &models.Report{
		ID:        utils.GenerateID(),
		Strategy:  s.structurer.Name(),
		Results:   make([]models.StructuredResult, len(docs)),
		StartedAt: time.Now().UTC(),
	}

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)

	for i, doc := range docs {
		g.Go(func() error {
			report.Results[i] = s.processDocument(ctx, doc)
			return nil
		})
	}
	_ = g.Wait()

	report.FinishedAt = time.Now().UTC()

	s.logger.Info("Batch processed",
		"run_id", report.ID,
		"files", len(docs),
		"failed", report.Count(models.StatusFailed),
		"no_content", report.Count(models.StatusNoContent),
		"elapsed_ms", report.FinishedAt.Sub(report.StartedAt).Milliseconds())

	s.recordRun(ctx, report)

	return report, nil
}

func (s *reportService) processDocument(ctx context.Context, doc models.Document) (res models.StructuredResult) {
	res.Filename = doc.Name
	logger := s.logger.With("filename", doc.Name)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Document pipeline panicked", "panic", rec)
			res = failedResult(doc.Name, fmt.Errorf("internal error: %v", rec))
		}
	}()

	if err := ctx.Err(); err != nil {
		return failedResult(doc.Name, err)
	}

	if s.opts.DocumentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.DocumentTimeout)
		defer cancel()
	}

	extraction, err := s.extractor.Extract(ctx, doc)
	if err != nil {
		logger.Error("Failed to extract text", "error", err)
		return failedResult(doc.Name, err)
	}
	res.TextSource = extraction.Method

	data, err := s.structurer.Structure(ctx, extraction.Text)
	if err != nil {
		logger.Error("Failed to structure document", "error", err)
		failed := failedResult(doc.Name, err)
		failed.TextSource = extraction.Method
		return failed
	}

	res.ExtractedData = data
	res.Status = models.StatusOK
	if data.NoContent {
		res.Status = models.StatusNoContent
	}

	logger.Debug("Document processed",
		"status", res.Status,
		"text_source", extraction.Method,
		"pages", extraction.Pages,
		"text_length", len(extraction.Text),
		"warnings", len(extraction.Warnings))

	return res
}

func failedResult(name string, err error) models.StructuredResult {
	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "processing timed out: " + msg
	}
	return models.StructuredResult{
		Filename:      name,
		ExtractedData: models.FailureData(msg),
		Status:        models.StatusFailed,
	}
}

// recordRun persists the batch summary. Audit failures never affect the response.
func (s *reportService) recordRun(ctx context.Context, report *models.Report) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Create(context.WithoutCancel(ctx), models.RunFromReport(report)); err != nil {
		s.logger.Warn("Failed to record run", "run_id", report.ID, "error", err)
	}
}

func (s *reportService) RecentRuns(ctx context.Context, limit int) ([]models.Run, error) {
	if s.runs == nil {
		return nil, utils.NewNotFoundError("Run history is disabled")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	runs, err := s.runs.ListRecent(ctx, limit)
	if err != nil {
		s.logger.Error("Failed to list runs", "error", err)
		return nil, utils.NewInternalError("Failed to retrieve run history")
	}
	return runs, nil
}

func (s *reportService) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
