package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BerylCAtieno/finreport/internal/batch"
	"github.com/BerylCAtieno/finreport/internal/config"
	"github.com/BerylCAtieno/finreport/internal/export"
	"github.com/BerylCAtieno/finreport/internal/models"
	"github.com/BerylCAtieno/finreport/internal/services"
	"github.com/BerylCAtieno/finreport/internal/storage"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract [pdf-file|directory]...",
	Short: "Extract financial figures from PDFs into a report",
	Long: `Read PDF files (directories are searched recursively), extract
keyword/value pairs or LLM-structured text from each and write one report
row per file, in input order.

With --prefix the PDFs are downloaded from the configured S3 bucket instead.`,
	Example: `  # Spreadsheet for every PDF under ./reports
  finreport extract ./reports -o q3.xlsx

  # JSON report for two files using the LLM strategy
  EXTRACTION_STRATEGY=llm finreport extract a.pdf b.pdf --format json -o out.json

  # Batch from S3 and upload the report next to it
  finreport extract --prefix filings/2024/ --upload-key reports/2024.xlsx`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: REPORT_FILENAME, or stdout for json)")
	extractCmd.Flags().StringP("format", "f", "", "Report format: xlsx or json (default: RESPONSE_FORMAT)")
	extractCmd.Flags().String("prefix", "", "Read PDFs from this S3 prefix instead of local paths")
	extractCmd.Flags().String("upload-key", "", "Also upload the report to this S3 key")
	extractCmd.Flags().Int("workers", 0, "Concurrent documents (default: WORKERS)")
	extractCmd.Flags().Duration("timeout", 30*time.Minute, "Overall batch timeout")
}

func runExtract(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")
	prefix, _ := cmd.Flags().GetString("prefix")
	uploadKey, _ := cmd.Flags().GetString("upload-key")
	workers, _ := cmd.Flags().GetInt("workers")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	if format == "" {
		format = cfg.ResponseFormat
	}
	if format != config.FormatXLSX && format != config.FormatJSON {
		return fmt.Errorf("unknown format %q", format)
	}
	if output == "" && format == config.FormatXLSX {
		output = cfg.ReportFilename
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	if prefix == "" && len(args) == 0 {
		return errors.New("no input: pass PDF paths or --prefix")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var store storage.Storage
	if prefix != "" || uploadKey != "" {
		s, err := storage.NewS3Storage(ctx, cfg)
		if err != nil {
			return err
		}
		store = s
	}

	var (
		docs []models.Document
		err  error
	)
	if prefix != "" {
		docs, err = batch.LoadS3(ctx, store, prefix)
	} else {
		docs, err = batch.LoadLocal(args)
	}
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return errors.New("no PDF files found")
	}

	logger.Info("Starting extraction",
		"files", len(docs),
		"strategy", cfg.Strategy,
		"format", format,
		"workers", cfg.Workers,
	)

	runs, database, err := openRuns()
	if err != nil {
		return err
	}
	if database != nil {
		defer database.Close()
	}

	svc, err := services.NewReportService(ctx, cfg, runs, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	report, err := svc.Process(ctx, docs)
	if err != nil {
		return err
	}

	data, contentType, err := batch.Encode(export.NewExporter(logger), report, format)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if output == "" {
		if _, err := cmd.OutOrStdout().Write(append(data, '\n')); err != nil {
			return err
		}
	} else {
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		logger.Info("Report written", "path", output, "bytes", len(data))
	}

	if uploadKey != "" {
		if err := store.Upload(ctx, uploadKey, data, contentType); err != nil {
			return err
		}
		logger.Info("Report uploaded", "bucket", cfg.S3BucketName, "key", uploadKey)
	}

	logger.Info("Extraction finished",
		"run_id", report.ID,
		"ok", report.Count(models.StatusOK),
		"no_content", report.Count(models.StatusNoContent),
		"failed", report.Count(models.StatusFailed),
		"duration", report.FinishedAt.Sub(report.StartedAt).String(),
	)

	return nil
}
