// Package discover finds published article URLs for a section and date by
// fetching the section's listing page and pulling article identifiers out of
// its embedded data blob.
package discover

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/douwatch/douwatch/internal/logger"
	"github.com/douwatch/douwatch/internal/model"
	"github.com/douwatch/douwatch/internal/textnorm"
)

// The listing page renders client-side from an embedded JSON-like blob whose
// surrounding syntax is not reliable enough for a full parse. Matching the
// field/value pair directly tolerates whatever wraps it.
var slugPattern = regexp.MustCompile(`"urlTitle"\s*:\s*"([^"]+)"`)

// readerPageMarker appears on every rendered listing page; its absence
// together with a missing data blob suggests the portal served something
// other than the reader.
const readerPageMarker = "Leitura dos Jornais"

// ContentFetcher retrieves a page body.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Candidate is a discovered article URL, annotated with the name of the rule
// whose title term kept it during pre-filtering ("wildcard" when no
// title-term rules are configured).
type Candidate struct {
	URL  string
	Rule string
}

// Discoverer lists article URLs for a section and date.
type Discoverer struct {
	fetcher ContentFetcher
	baseURL string
	cache   *gocache.Cache
	log     logger.Interface
}

// New creates a Discoverer. A positive cacheTTL enables an in-memory cache of
// listing pages so repeated ad-hoc searches for the same section and date
// within one process do not refetch. Article pages are never cached.
func New(fetcher ContentFetcher, baseURL string, cacheTTL time.Duration, log logger.Interface) *Discoverer {
	d := &Discoverer{
		fetcher: fetcher,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
	if cacheTTL > 0 {
		d.cache = gocache.New(cacheTTL, 2*cacheTTL)
	}
	return d
}

// ListingURL builds the listing page URL for a section and date.
func (d *Discoverer) ListingURL(section string, date time.Time) string {
	return fmt.Sprintf("%s/leiturajornal?secao=%s&data=%s", d.baseURL, section, date.Format("02-01-2006"))
}

// ArticleURL builds the canonical article URL for a slug.
func (d *Discoverer) ArticleURL(slug string) string {
	return fmt.Sprintf("%s/web/dou/-/%s", d.baseURL, slug)
}

// Discover fetches the section's listing page and returns the article URLs
// published there, deduplicated and in deterministic (sorted) order.
func (d *Discoverer) Discover(ctx context.Context, section string, date time.Time) ([]string, error) {
	listingURL := d.ListingURL(section, date)

	html, err := d.listingHTML(ctx, listingURL)
	if err != nil {
		return nil, fmt.Errorf("fetch listing for %s: %w", section, err)
	}

	if !strings.Contains(html, readerPageMarker) && !strings.Contains(html, "urlTitle") {
		d.log.Warn("listing page content looks suspicious",
			"url", listingURL, "length", len(html))
	}

	slugs := extractSlugs(html)
	if len(slugs) == 0 {
		if IsWorkingDay(date) {
			d.log.Warn("no article identifiers on a working day",
				"section", section, "date", date.Format("2006-01-02"), "url", listingURL)
		} else {
			d.log.Info("no publication expected on a non-working day",
				"section", section, "date", date.Format("2006-01-02"))
		}
		return nil, nil
	}

	urls := make([]string, len(slugs))
	for i, slug := range slugs {
		urls[i] = d.ArticleURL(slug)
	}
	d.log.Info("discovered article urls", "section", section, "count", len(urls))
	return urls, nil
}

func (d *Discoverer) listingHTML(ctx context.Context, listingURL string) (string, error) {
	if d.cache != nil {
		if cached, ok := d.cache.Get(listingURL); ok {
			d.log.Debug("listing page served from cache", "url", listingURL)
			return cached.(string), nil
		}
	}
	html, err := d.fetcher.Fetch(ctx, listingURL)
	if err != nil {
		return "", err
	}
	if d.cache != nil {
		d.cache.SetDefault(listingURL, html)
	}
	return html, nil
}

// extractSlugs pulls unique article identifiers from the listing markup and
// sorts them so downstream processing order is stable.
func extractSlugs(html string) []string {
	seen := make(map[string]bool)
	for _, m := range slugPattern.FindAllStringSubmatch(html, -1) {
		seen[m[1]] = true
	}
	slugs := make([]string, 0, len(seen))
	for s := range seen {
		slugs = append(slugs, s)
	}
	sort.Strings(slugs)
	return slugs
}

// Prefilter keeps only URLs whose slug contains a title term of some rule.
// This is a cost optimization before download: slugs are a lossy,
// hyphen-joined approximation of the title, so the full title/body match
// still runs on everything kept. When no rule defines title terms, every URL
// passes through as a wildcard candidate.
func (d *Discoverer) Prefilter(urls []string, rules []model.MatchRule) []Candidate {
	type namedTerms struct {
		name  string
		terms []string
	}
	var ruleTerms []namedTerms
	for _, r := range rules {
		var terms []string
		for _, t := range r.TitleTerms {
			if n := textnorm.Normalize(t); n != "" {
				terms = append(terms, n)
			}
		}
		if len(terms) > 0 {
			ruleTerms = append(ruleTerms, namedTerms{name: r.Name, terms: terms})
		}
	}

	if len(ruleTerms) == 0 {
		d.log.Debug("no title terms configured, keeping all urls", "count", len(urls))
		out := make([]Candidate, len(urls))
		for i, u := range urls {
			out[i] = Candidate{URL: u, Rule: "wildcard"}
		}
		return out
	}

	var kept []Candidate
	for _, u := range urls {
		slug := slugText(u)
		for _, rt := range ruleTerms {
			matched := false
			for _, term := range rt.terms {
				if strings.Contains(slug, term) {
					kept = append(kept, Candidate{URL: u, Rule: rt.name})
					matched = true
					break
				}
			}
			if matched {
				break
			}
		}
	}
	d.log.Info("prefiltered candidate urls", "kept", len(kept), "total", len(urls))
	return kept
}

// slugText converts a URL's slug into a normalized human-readable form:
// "…/web/dou/-/portaria-mjsp-n-123" becomes "portaria mjsp n 123".
func slugText(articleURL string) string {
	slug := articleURL
	if idx := strings.LastIndex(articleURL, "/-/"); idx >= 0 {
		slug = articleURL[idx+len("/-/"):]
	}
	return textnorm.Normalize(strings.ReplaceAll(slug, "-", " "))
}

// IsWorkingDay reports whether t falls on a weekday. It is a plain weekday
// heuristic with no holiday calendar.
func IsWorkingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}
