// Package enrich turns filtered search results into prospect rows by visiting
// each page once and pulling out emails and likely contact links.
package enrich

import (
	"context"
	"log/slog"
	"time"

	"github.com/FranksOps/prospector/internal/classify"
	"github.com/FranksOps/prospector/internal/extract"
	"github.com/FranksOps/prospector/internal/metrics"
	"github.com/FranksOps/prospector/internal/scraper"
	"github.com/FranksOps/prospector/internal/serp"
	"github.com/FranksOps/prospector/internal/storage"
	"github.com/FranksOps/prospector/pkg/ratelimit"
	"github.com/google/uuid"
)

// DefaultMaxEmails caps the addresses kept per prospect.
const DefaultMaxEmails = 5

// PageFetcher returns a page's text, or ok=false when the page is
// unavailable. Implementations must not panic or block past ctx.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (body string, ok bool)
}

// VisitFetcher is implemented by fetchers that expose the full visit, which
// lets the enricher report status codes and challenge pages.
type VisitFetcher interface {
	Fetch(ctx context.Context, url string) *scraper.Visit
}

var _ VisitFetcher = (*scraper.Fetcher)(nil)

// Outcome describes what happened while enriching one result.
type Outcome struct {
	Fetched   bool
	Challenge string
}

// Stats aggregates outcomes across a batch.
type Stats struct {
	PagesOK     int
	PagesFailed int
	Challenges  int
	Emails      int
}

// Add folds one outcome into the stats.
func (s *Stats) Add(p *storage.Prospect, o Outcome) {
	if o.Fetched {
		s.PagesOK++
	} else {
		s.PagesFailed++
	}
	if o.Challenge != "" {
		s.Challenges++
	}
	s.Emails += len(p.Emails)
}

// Enricher visits result pages. The zero value is not usable; Fetcher is
// required.
type Enricher struct {
	Fetcher PageFetcher
	// Limiter spaces page visits. Nil means no delay.
	Limiter *ratelimit.Limiter
	// MaxEmails caps emails per prospect; 0 means DefaultMaxEmails.
	MaxEmails int
	Logger    *slog.Logger
}

func (e *Enricher) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// Prospect visits r.URL and builds its prospect row. A failed visit still
// yields a row with empty emails and contact links. The only error is a
// cancelled ctx while waiting on the limiter.
func (e *Enricher) Prospect(ctx context.Context, r serp.SearchResult) (*storage.Prospect, Outcome, error) {
	if err := e.Limiter.Wait(ctx); err != nil {
		return nil, Outcome{}, err
	}

	p := &storage.Prospect{
		ID:           uuid.New().String(),
		Domain:       extract.Domain(r.URL),
		URL:          r.URL,
		Title:        r.Title,
		Snippet:      r.Snippet,
		Emails:       []string{},
		ContactLinks: []string{},
		CreatedAt:    time.Now().UTC(),
	}

	body, out := e.fetch(ctx, r.URL)
	if out.Fetched && body != "" {
		p.Emails = capEmails(extract.Emails(body), e.maxEmails())
		p.ContactLinks = classify.FindCandidateContactLinks(classify.ExtractLinks([]byte(body), r.URL))
	}

	metrics.ProspectsTotal.Inc()
	return p, out, nil
}

// Enrich builds one prospect per result, in input order. When each is
// non-nil it is called with the index of every prospect as soon as it is
// built, before the next page is visited.
func (e *Enricher) Enrich(ctx context.Context, results []serp.SearchResult, each func(i int, p *storage.Prospect)) ([]*storage.Prospect, Stats, error) {
	var stats Stats
	out := make([]*storage.Prospect, 0, len(results))
	for i, r := range results {
		p, o, err := e.Prospect(ctx, r)
		if err != nil {
			return out, stats, err
		}
		if each != nil {
			each(i, p)
		}
		stats.Add(p, o)
		out = append(out, p)
	}
	return out, stats, nil
}

func (e *Enricher) fetch(ctx context.Context, url string) (string, Outcome) {
	if vf, ok := e.Fetcher.(VisitFetcher); ok {
		v := vf.Fetch(ctx, url)
		if !v.OK() {
			e.logger().Warn("page unavailable", "url", url, "status", v.StatusCode, "challenge", v.Challenge, "err", v.Error)
			return "", Outcome{Challenge: v.Challenge}
		}
		return string(v.Body), Outcome{Fetched: true, Challenge: v.Challenge}
	}

	body, ok := e.Fetcher.FetchPage(ctx, url)
	if !ok {
		e.logger().Warn("page unavailable", "url", url)
	}
	return body, Outcome{Fetched: ok}
}

func (e *Enricher) maxEmails() int {
	if e.MaxEmails <= 0 {
		return DefaultMaxEmails
	}
	return e.MaxEmails
}

func capEmails(emails []string, n int) []string {
	if len(emails) > n {
		return emails[:n]
	}
	return emails
}
