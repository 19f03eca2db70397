// Package pipeline drives the discovery→download→parse→match→persist flow.
//
// Sections are processed sequentially in sorted order, and article URLs
// sequentially in discovery order, so repeated runs over frozen input append
// matches in the same relative order. Failures are contained per unit of
// work: a broken article never stops its section, and a broken section never
// stops the run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/douwatch/douwatch/internal/discover"
	"github.com/douwatch/douwatch/internal/fetch"
	"github.com/douwatch/douwatch/internal/logger"
	"github.com/douwatch/douwatch/internal/match"
	"github.com/douwatch/douwatch/internal/model"
	"github.com/douwatch/douwatch/internal/parse"
	"github.com/douwatch/douwatch/internal/store"
	"github.com/douwatch/douwatch/internal/textnorm"
)

// Pipeline owns the component wiring and the per-run control flow.
type Pipeline struct {
	cfg        *model.Config
	fetcher    *fetch.Fetcher
	discoverer *discover.Discoverer
	matcher    *match.Matcher
	store      *store.Store
	log        logger.Interface
}

// RunResult summarizes one pipeline run.
type RunResult struct {
	Matches  []model.MatchEntry
	Sections int // sections processed (including empty ones)
	Articles int // articles fetched and matched
	Failures int // articles or sections that failed and were skipped
}

// New wires the pipeline components from configuration.
func New(cfg *model.Config, log logger.Interface) *Pipeline {
	fetcher := fetch.New(fetch.Options{
		Timeout:           cfg.HTTP.Timeout,
		UserAgent:         cfg.HTTP.UserAgent,
		MaxBodyBytes:      cfg.HTTP.MaxBodyBytes,
		MaxAttempts:       cfg.HTTP.MaxAttempts,
		RetryBaseDelay:    cfg.HTTP.RetryBaseDelay,
		RetryMaxDelay:     cfg.HTTP.RetryMaxDelay,
		ThrottleMin:       cfg.HTTP.ThrottleMin,
		ThrottleMax:       cfg.HTTP.ThrottleMax,
		RequestsPerSecond: cfg.HTTP.RequestsPerSecond,
		Burst:             cfg.HTTP.Burst,
		RespectRobots:     cfg.HTTP.RespectRobots,
		Proxy:             cfg.HTTP.Proxy,
	}, log.With("component", "fetch"))

	return &Pipeline{
		cfg:        cfg,
		fetcher:    fetcher,
		discoverer: discover.New(fetcher, cfg.Discovery.BaseURL, cfg.Discovery.ListingCacheTTL, log.With("component", "discover")),
		matcher:    match.New(log.With("component", "match")),
		store:      store.New(cfg.Storage.OutputDir, log.With("component", "store")),
		log:        log,
	}
}

// Run processes every target section for the given date. When persist is
// false the store is skipped and matches are only returned in memory (ad-hoc
// / dry-run mode). Partial completion is an accepted steady state; the only
// error returned is context cancellation.
func (p *Pipeline) Run(ctx context.Context, date time.Time, persist bool) (*RunResult, error) {
	res := &RunResult{}

	if !p.cfg.HasWork() {
		p.log.Warn("no keywords or rules configured, nothing to do")
		return res, nil
	}

	dateStr := date.Format("2006-01-02")
	p.log.Info("run started",
		"date", dateStr,
		"keywords", len(p.cfg.Keywords),
		"rules", len(p.cfg.Rules),
		"persist", persist)

	for _, section := range p.cfg.TargetSections() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := p.processSection(ctx, section, date, dateStr, persist, res); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Failures++
			p.log.Error("section processing failed", "section", section, "error", err.Error())
			continue
		}
		res.Sections++
	}

	p.log.Info("run finished",
		"date", dateStr,
		"sections", res.Sections,
		"articles", res.Articles,
		"matches", len(res.Matches),
		"failures", res.Failures)
	return res, nil
}

func (p *Pipeline) processSection(ctx context.Context, section string, date time.Time, dateStr string, persist bool, res *RunResult) error {
	p.log.Info("processing section", "section", section, "date", dateStr)

	urls, err := p.discoverer.Discover(ctx, section, date)
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}

	if p.cfg.Discovery.PrefilterTitles {
		candidates := p.discoverer.Prefilter(urls, p.cfg.RulesForSection(section))
		urls = urls[:0]
		for _, c := range candidates {
			urls = append(urls, c.URL)
		}
	}

	rules := p.cfg.RulesForSection(section)
	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.processArticle(ctx, url, section, dateStr, rules, persist, res); err != nil {
			res.Failures++
			p.log.Error("article processing failed", "url", url, "section", section, "error", err.Error())
			continue
		}
		res.Articles++
	}
	return nil
}

func (p *Pipeline) processArticle(ctx context.Context, url, section, dateStr string, rules []model.MatchRule, persist bool, res *RunResult) error {
	html, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return err
	}

	title := parse.Title(html)
	body := parse.Text(html)

	article := &model.Article{
		URL:             url,
		RawHTML:         html,
		Title:           title,
		NormalizedTitle: textnorm.Normalize(title),
		Body:            body,
		NormalizedBody:  textnorm.Normalize(body),
	}

	matches := p.matcher.Find(article, dateStr, section, p.cfg.Keywords, rules)
	if len(matches) == 0 {
		return nil
	}
	p.log.Info("matches found", "url", url, "count", len(matches))

	for _, m := range matches {
		if persist {
			if err := p.store.Save(m); err != nil {
				// Storage trouble loses this entry but not the run.
				p.log.Error("match save failed", "url", url, "keyword", m.Keyword, "error", err.Error())
				continue
			}
		}
		res.Matches = append(res.Matches, m)
	}
	return nil
}
