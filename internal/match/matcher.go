// Package match evaluates simple keywords and composite rules against an
// article, producing match records with surrounding context.
package match

import (
	"fmt"
	"strings"
	"time"

	"github.com/douwatch/douwatch/internal/logger"
	"github.com/douwatch/douwatch/internal/model"
	"github.com/douwatch/douwatch/internal/textnorm"
)

// ContextPadding is the context window size on each side of a match,
// in characters of the original text.
const ContextPadding = 150

// Overridable in tests for stable capture timestamps.
var timeNow = time.Now

// Matcher finds keyword and rule matches in article text. It is
// section-agnostic: callers restrict the rule set before invoking it.
type Matcher struct {
	padding int
	log     logger.Interface
}

// New creates a Matcher with the default context padding.
func New(log logger.Interface) *Matcher {
	return &Matcher{padding: ContextPadding, log: log}
}

// Find runs two independent passes over the article and concatenates the
// results: simple keywords against the body, then composite rules with their
// title gate. Context windows are always sliced from the original body text,
// located through the folded text's offset map, so positions stay correct
// when accented characters precede the match.
func (m *Matcher) Find(a *model.Article, date, section string, keywords []string, rules []model.MatchRule) []model.MatchEntry {
	folded := textnorm.Fold(a.Body)
	normTitle := a.NormalizedTitle
	if normTitle == "" {
		normTitle = textnorm.Normalize(a.Title)
	}
	captured := timeNow().Format(time.RFC3339)

	entry := func(label, context string) model.MatchEntry {
		return model.MatchEntry{
			Keyword:          label,
			Context:          context,
			Date:             date,
			Section:          section,
			URL:              a.URL,
			Title:            a.Title,
			CaptureTimestamp: captured,
		}
	}

	var matches []model.MatchEntry

	for _, kw := range keywords {
		for _, sp := range folded.Occurrences(kw) {
			matches = append(matches, entry(kw, folded.Window(sp, m.padding)))
		}
	}

	for _, rule := range rules {
		if len(rule.TitleTerms) > 0 && !titleGatePasses(normTitle, rule.TitleTerms) {
			continue
		}

		if len(rule.BodyTerms) == 0 {
			// Title-only rule: one synthetic match per article, no body scan.
			matches = append(matches, entry(rule.Name, fmt.Sprintf("Alerta de Título: %s", a.Title)))
			continue
		}

		for _, term := range rule.BodyTerms {
			for _, sp := range folded.Occurrences(term) {
				matches = append(matches, entry(rule.Name, folded.Window(sp, m.padding)))
			}
		}
	}

	if len(matches) > 0 {
		m.log.Debug("article produced matches", "url", a.URL, "count", len(matches))
	}
	return matches
}

// titleGatePasses reports whether any title term occurs in the normalized
// title. Terms that normalize to empty are skipped, since they would match
// every title.
func titleGatePasses(normTitle string, terms []string) bool {
	for _, t := range terms {
		n := textnorm.Normalize(t)
		if n == "" {
			continue
		}
		if strings.Contains(normTitle, n) {
			return true
		}
	}
	return false
}
