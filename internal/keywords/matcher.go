package keywords

import (
	"regexp"
	"strings"

	"github.com/BerylCAtieno/finreport/internal/models"
)

const (
	NoMatchKeyword = "No financial keywords found"
	NoMatchValue   = "N/A"
)

// Matcher pulls "keyword: 1,234" style pairs out of text.
type Matcher struct {
	patterns []keywordPattern
}

type keywordPattern struct {
	keyword string
	re      *regexp.Regexp
}

func NewMatcher(keywords []string) *Matcher {
	m := &Matcher{}
	for _, k := range normalizeKeywords(keywords) {
		m.patterns = append(m.patterns, keywordPattern{
			keyword: k,
			re:      regexp.MustCompile(`(?i)` + keywordExpr(k) + `\s*[:\-–]?\s*(\d[\d,]*)`),
		})
	}
	return m
}

// keywordExpr lets a multi-word keyword span any run of whitespace.
func keywordExpr(keyword string) string {
	words := strings.Fields(keyword)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(words, `\s+`)
}

// Extract returns every match grouped by keyword in configured order. When
// nothing matches it returns the single no-match sentinel.
func (m *Matcher) Extract(text string) []models.KeywordMatch {
	var matches []models.KeywordMatch
	for _, p := range m.patterns {
		for _, sub := range p.re.FindAllStringSubmatch(text, -1) {
			value := strings.TrimRight(sub[1], ",")
			matches = append(matches, models.KeywordMatch{Keyword: p.keyword, Value: value})
		}
	}

	if len(matches) == 0 {
		return []models.KeywordMatch{{Keyword: NoMatchKeyword, Value: NoMatchValue}}
	}
	return matches
}

// IsNoMatch reports whether matches is the no-match sentinel.
func IsNoMatch(matches []models.KeywordMatch) bool {
	return len(matches) == 1 && matches[0].Keyword == NoMatchKeyword && matches[0].Value == NoMatchValue
}
