package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StrategyPattern = "pattern"
	StrategyLLM     = "llm"

	FormatXLSX = "xlsx"
	FormatJSON = "json"

	OCREngineTesseract = "tesseract"
	OCREngineVision    = "vision"
	OCREngineNone      = "none"
)

// DefaultKeywords are matched case-insensitively against extracted text.
var DefaultKeywords = []string{
	"revenue",
	"profit",
	"loss",
	"income",
	"expenses",
	"assets",
	"liabilities",
	"equity",
	"cash flow",
	"operating income",
	"net income",
	"gross profit",
	"ebitda",
	"tax",
	"debt",
}

// Config is built once at startup and passed by pointer. Nothing mutates it afterwards.
type Config struct {
	Port             string
	DatabaseURL      string
	LogLevel         string
	HTTPWriteTimeout time.Duration

	// Pipeline
	Strategy           string
	ResponseFormat     string
	Keywords           []string
	MinTextLength      int
	Workers            int
	DocumentTimeout    time.Duration
	StructuringTimeout time.Duration
	ScratchDir         string
	PDFRepair          bool
	ReportFilename     string

	// OCR
	OCREngine     string
	OCRTimeout    time.Duration
	Pdftoppm      string
	Tesseract     string
	TesseractLang string
	TessdataDir   string
	OCRDPI        int
	OCRMaxPages   int

	// S3
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3BucketName      string
	S3UseSSL          bool

	// OpenRouter
	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterBaseURL string

	// Upload limits
	MaxFileSize int64
	MaxFiles    int
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		HTTPWriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT", 5*time.Minute),

		Strategy:           strings.ToLower(getEnv("EXTRACTION_STRATEGY", StrategyPattern)),
		ResponseFormat:     strings.ToLower(getEnv("RESPONSE_FORMAT", FormatXLSX)),
		Keywords:           getEnvList("FINANCIAL_KEYWORDS", DefaultKeywords),
		MinTextLength:      getEnvInt("MIN_TEXT_LENGTH", 50),
		Workers:            getEnvInt("WORKERS", 4),
		DocumentTimeout:    getEnvDuration("DOCUMENT_TIMEOUT", 3*time.Minute),
		StructuringTimeout: getEnvDuration("STRUCTURING_TIMEOUT", 60*time.Second),
		ScratchDir:         getEnv("SCRATCH_DIR", os.TempDir()),
		PDFRepair:          getEnvBool("PDF_REPAIR", true),
		ReportFilename:     getEnv("REPORT_FILENAME", "financial_report.xlsx"),

		OCREngine:     strings.ToLower(getEnv("OCR_ENGINE", OCREngineTesseract)),
		OCRTimeout:    getEnvDuration("OCR_TIMEOUT", 2*time.Minute),
		Pdftoppm:      getEnv("PDFTOPPM_PATH", "pdftoppm"),
		Tesseract:     getEnv("TESSERACT_PATH", "tesseract"),
		TesseractLang: getEnv("TESSERACT_LANG", "eng"),
		TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
		OCRDPI:        getEnvInt("OCR_DPI", 300),
		OCRMaxPages:   getEnvInt("OCR_MAX_PAGES", 0),

		S3Endpoint:        getEnv("S3_ENDPOINT", "localhost:9000"),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", "minioadmin"),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", "minioadmin"),
		S3BucketName:      getEnv("S3_BUCKET_NAME", "documents"),
		S3UseSSL:          getEnvBool("S3_USE_SSL", false),

		OpenRouterAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterModel:   getEnv("OPENROUTER_MODEL", "openai/gpt-4o-mini"),
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),

		MaxFileSize: int64(getEnvInt("MAX_FILE_SIZE", 20<<20)),
		MaxFiles:    getEnvInt("MAX_FILES", 20),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Strategy {
	case StrategyPattern:
	case StrategyLLM:
		if c.OpenRouterAPIKey == "" {
			return fmt.Errorf("OPENROUTER_API_KEY is required when EXTRACTION_STRATEGY=%s", StrategyLLM)
		}
	default:
		return fmt.Errorf("unknown EXTRACTION_STRATEGY %q (want %s or %s)", c.Strategy, StrategyPattern, StrategyLLM)
	}

	if c.ResponseFormat != FormatXLSX && c.ResponseFormat != FormatJSON {
		return fmt.Errorf("unknown RESPONSE_FORMAT %q (want %s or %s)", c.ResponseFormat, FormatXLSX, FormatJSON)
	}

	switch c.OCREngine {
	case OCREngineTesseract, OCREngineVision, OCREngineNone:
	default:
		return fmt.Errorf("unknown OCR_ENGINE %q", c.OCREngine)
	}

	if len(c.Keywords) == 0 {
		return fmt.Errorf("FINANCIAL_KEYWORDS must name at least one keyword")
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be at least 1, got %d", c.Workers)
	}
	if c.MinTextLength < 0 {
		return fmt.Errorf("MIN_TEXT_LENGTH must not be negative")
	}
	if c.MaxFiles < 1 || c.MaxFileSize < 1 {
		return fmt.Errorf("MAX_FILES and MAX_FILE_SIZE must be positive")
	}

	return nil
}

// AuditEnabled reports whether batch summaries are persisted.
func (c *Config) AuditEnabled() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

// getEnvList splits a comma separated value, lowercasing and dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		out := make([]string, len(defaultValue))
		copy(out, defaultValue)
		return out
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
