package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("EXTRACTION_STRATEGY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("FINANCIAL_KEYWORDS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Strategy != StrategyPattern {
		t.Errorf("Strategy = %q, want %q", cfg.Strategy, StrategyPattern)
	}
	if cfg.ResponseFormat != FormatXLSX {
		t.Errorf("ResponseFormat = %q", cfg.ResponseFormat)
	}
	if cfg.MinTextLength != 50 {
		t.Errorf("MinTextLength = %d, want 50", cfg.MinTextLength)
	}
	if cfg.ReportFilename != "financial_report.xlsx" {
		t.Errorf("ReportFilename = %q", cfg.ReportFilename)
	}
	if !reflect.DeepEqual(cfg.Keywords, DefaultKeywords) {
		t.Errorf("Keywords = %v", cfg.Keywords)
	}
	if cfg.AuditEnabled() {
		t.Error("audit should be off without DATABASE_URL")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("EXTRACTION_STRATEGY", "LLM")
	t.Setenv("OPENROUTER_API_KEY", "sk-test")
	t.Setenv("RESPONSE_FORMAT", "json")
	t.Setenv("FINANCIAL_KEYWORDS", " Revenue, ,Net Profit ")
	t.Setenv("WORKERS", "8")
	t.Setenv("DOCUMENT_TIMEOUT", "45s")
	t.Setenv("PDF_REPAIR", "false")
	t.Setenv("DATABASE_URL", "data/runs.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Strategy != StrategyLLM || cfg.ResponseFormat != FormatJSON {
		t.Errorf("strategy/format = %q/%q", cfg.Strategy, cfg.ResponseFormat)
	}
	if want := []string{"revenue", "net profit"}; !reflect.DeepEqual(cfg.Keywords, want) {
		t.Errorf("Keywords = %v, want %v", cfg.Keywords, want)
	}
	if cfg.Workers != 8 || cfg.DocumentTimeout != 45*time.Second || cfg.PDFRepair {
		t.Errorf("unexpected values: workers=%d timeout=%s repair=%v", cfg.Workers, cfg.DocumentTimeout, cfg.PDFRepair)
	}
	if !cfg.AuditEnabled() {
		t.Error("audit should be on with DATABASE_URL")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "llm without key",
			env:  map[string]string{"EXTRACTION_STRATEGY": "llm", "OPENROUTER_API_KEY": ""},
			want: "OPENROUTER_API_KEY",
		},
		{
			name: "unknown strategy",
			env:  map[string]string{"EXTRACTION_STRATEGY": "magic"},
			want: "EXTRACTION_STRATEGY",
		},
		{
			name: "unknown format",
			env:  map[string]string{"RESPONSE_FORMAT": "csv"},
			want: "RESPONSE_FORMAT",
		},
		{
			name: "unknown ocr engine",
			env:  map[string]string{"OCR_ENGINE": "abbyy"},
			want: "OCR_ENGINE",
		},
		{
			name: "zero workers",
			env:  map[string]string{"WORKERS": "0"},
			want: "WORKERS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
