package keywords

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// NoContentSentinel replaces the filtered text when no line mentions a keyword.
const NoContentSentinel = "No financial content detected"

// LineFilter keeps the lines of a text that mention at least one keyword.
type LineFilter struct {
	matcher  *ahocorasick.Matcher
	keywords []string
}

func NewLineFilter(keywords []string) *LineFilter {
	lowered := normalizeKeywords(keywords)
	return &LineFilter{
		matcher:  ahocorasick.NewStringMatcher(lowered),
		keywords: lowered,
	}
}

// Filter returns the matching lines joined by newlines and true, or the
// sentinel and false when nothing qualifies.
func (f *LineFilter) Filter(text string) (string, bool) {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if f.mentionsKeyword(line) {
			kept = append(kept, line)
		}
	}

	if len(kept) == 0 {
		return NoContentSentinel, false
	}
	return strings.Join(kept, "\n"), true
}

func (f *LineFilter) mentionsKeyword(line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	return len(f.matcher.MatchThreadSafe([]byte(strings.ToLower(line)))) > 0
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
