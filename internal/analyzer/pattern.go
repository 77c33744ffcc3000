package analyzer

import (
	"context"

	"github.com/BerylCAtieno/finreport/internal/keywords"
	"github.com/BerylCAtieno/finreport/internal/models"
)

type patternAnalyzer struct {
	matcher *keywords.Matcher
}

// NewPatternAnalyzer structures text locally from keyword matches.
func NewPatternAnalyzer(matcher *keywords.Matcher) Structurer {
	return &patternAnalyzer{matcher: matcher}
}

func (a *patternAnalyzer) Name() string { return "pattern" }

func (a *patternAnalyzer) Structure(_ context.Context, text string) (models.ExtractedData, error) {
	matches := a.matcher.Extract(text)

	data := models.MatchData(matches)
	data.NoContent = keywords.IsNoMatch(matches)
	return data, nil
}
