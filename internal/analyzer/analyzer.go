package analyzer

import (
	"context"
	"fmt"

	"github.com/BerylCAtieno/finreport/internal/config"
	"github.com/BerylCAtieno/finreport/internal/keywords"
	"github.com/BerylCAtieno/finreport/internal/models"
	"github.com/BerylCAtieno/finreport/internal/utils"
)

// Structurer turns extracted document text into the document's extracted data.
type Structurer interface {
	Name() string
	Structure(ctx context.Context, text string) (models.ExtractedData, error)
}

// StructuringError is returned when the external structuring call fails.
type StructuringError struct {
	Model string
	Err   error
}

func (e *StructuringError) Error() string {
	return fmt.Sprintf("structuring with %s failed: %v", e.Model, e.Err)
}

func (e *StructuringError) Unwrap() error {
	return e.Err
}

// New returns the structurer selected by cfg.Strategy. Only one is ever active.
func New(cfg *config.Config, logger *utils.Logger) (Structurer, error) {
	switch cfg.Strategy {
	case config.StrategyPattern:
		return NewPatternAnalyzer(keywords.NewMatcher(cfg.Keywords)), nil
	case config.StrategyLLM:
		return NewOpenRouterAnalyzer(OpenRouterConfig{
			APIKey:  cfg.OpenRouterAPIKey,
			Model:   cfg.OpenRouterModel,
			BaseURL: cfg.OpenRouterBaseURL,
			Timeout: cfg.StructuringTimeout,
		}, keywords.NewLineFilter(cfg.Keywords), logger), nil
	default:
		return nil, fmt.Errorf("unknown extraction strategy %q", cfg.Strategy)
	}
}
