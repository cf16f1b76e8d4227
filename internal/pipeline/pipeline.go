// Package pipeline runs one prospecting pass: build queries, search, filter
// the results down to one per domain, then enrich each survivor.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FranksOps/prospector/internal/enrich"
	"github.com/FranksOps/prospector/internal/filter"
	"github.com/FranksOps/prospector/internal/metrics"
	"github.com/FranksOps/prospector/internal/query"
	"github.com/FranksOps/prospector/internal/report"
	"github.com/FranksOps/prospector/internal/serp"
	"github.com/FranksOps/prospector/internal/storage"
	"github.com/FranksOps/prospector/pkg/ratelimit"
	"github.com/google/uuid"
)

// Search progress fills [0, searchShare); enrichment fills the rest.
const searchShare = 33

// Progress receives operator-facing updates during a run.
type Progress interface {
	Status(msg string)
	Warn(msg string)
	Advance(percent int)
}

// NopProgress discards all updates.
type NopProgress struct{}

func (NopProgress) Status(string) {}
func (NopProgress) Warn(string)   {}
func (NopProgress) Advance(int)   {}

// Result is the output of one run.
type Result struct {
	RunID     string
	Prospects []*storage.Prospect
	Summary   report.Summary
}

// Pipeline orchestrates search, filtering and enrichment. Steps run one at a
// time; Limiter spaces search calls and should be shared with the Enricher
// so that every outbound request is throttled uniformly.
type Pipeline struct {
	SERPProvider serp.SERPProvider
	Enricher     *enrich.Enricher
	Filter       filter.Options
	// Limit is the per-query result count hint passed to the provider.
	Limit    int
	Limiter  *ratelimit.Limiter
	Progress Progress
	Logger   *slog.Logger
}

// Run executes one pass for niche. Failed searches and failed page visits
// degrade the output but do not abort; an error is returned only for an
// invalid setup or a cancelled ctx.
func (p *Pipeline) Run(ctx context.Context, niche string) (*Result, error) {
	if p.SERPProvider == nil {
		return nil, errors.New("pipeline: SERPProvider is nil")
	}
	if p.Enricher == nil || p.Enricher.Fetcher == nil {
		return nil, errors.New("pipeline: Enricher with a Fetcher is required")
	}
	niche = strings.TrimSpace(niche)
	if niche == "" {
		return nil, errors.New("pipeline: niche is empty")
	}

	progress := p.Progress
	if progress == nil {
		progress = NopProgress{}
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()
	res := &Result{RunID: uuid.New().String()}
	sum := &res.Summary
	sum.RunID = res.RunID
	sum.Niche = niche
	sum.StartTime = start.UTC()
	logger = logger.With("run_id", res.RunID)

	queries := query.Build(niche)
	sum.Queries = len(queries)

	var raw []serp.SearchResult
	for i, q := range queries {
		progress.Status(fmt.Sprintf("Searching: %s", q))
		if err := p.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("pipeline: search: %w", err)
		}

		results, err := p.SERPProvider.Search(ctx, q, p.Limit)
		metrics.RecordSearch(len(results), err)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("pipeline: search: %w", ctxErr)
			}
			sum.FailedQueries++
			logger.Warn("search failed", "query", q, "err", err)
			progress.Warn(fmt.Sprintf("Search failed for %q: %v", q, err))
			results = nil
		}
		logger.Debug("search complete", "query", q, "results", len(results))
		raw = append(raw, results...)
		progress.Advance((i + 1) * searchShare / len(queries))
	}

	survivors, counts := filter.Run(raw, p.Filter)
	sum.RawResults = counts.Input
	sum.UniqueURLs = counts.UniqueURLs
	sum.Filtered = counts.Filtered
	logger.Info("results filtered",
		"raw", counts.Input,
		"unique_urls", counts.UniqueURLs,
		"filtered", counts.Filtered,
		"domains", counts.Domains,
	)
	progress.Status(fmt.Sprintf("Enriching %d prospects", len(survivors)))

	prospects, stats, err := p.Enricher.Enrich(ctx, survivors, func(i int, prospect *storage.Prospect) {
		prospect.RunID = res.RunID
		progress.Advance(searchShare + (i+1)*(100-searchShare)/len(survivors))
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: enrich: %w", err)
	}
	res.Prospects = prospects

	sum.AddProspects(res.Prospects)
	sum.PagesOK = stats.PagesOK
	sum.PagesFailed = stats.PagesFailed
	sum.Challenges = stats.Challenges
	sum.EndTime = time.Now().UTC()
	sum.Duration = time.Since(start)

	progress.Advance(100)
	progress.Status(fmt.Sprintf("Done: %d prospects", len(res.Prospects)))
	logger.Info("run complete", "prospects", len(res.Prospects), "failed_queries", sum.FailedQueries, "duration", sum.Duration)
	return res, nil
}
