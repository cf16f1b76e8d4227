// Package filter narrows raw search results to one candidate per domain.
//
// Stages run in a fixed order: URL dedupe, then exclusion and inclusion
// filters, then domain dedupe. Filtering before the domain collapse means the
// survivor for each domain is the first result that passed the filters.
package filter

import (
	"strings"

	"github.com/FranksOps/prospector/internal/extract"
	"github.com/FranksOps/prospector/internal/serp"
)

// DefaultExclude lists social and media platforms that never take guest posts.
const DefaultExclude = "facebook.com,pinterest.com,linkedin.com,instagram.com,twitter.com,t.co,youtube.com,medium.com,reddit.com,quora.com"

// DefaultInclude lists phrases a result must mention to be kept.
const DefaultInclude = "guest post,write for us,submit an article,contribute,editorial guidelines"

// Options configures the exclusion and inclusion stage. The zero value
// passes every result with a parseable domain.
type Options struct {
	// Exclude drops results whose domain contains any of these substrings.
	Exclude []string
	// OnlyComOrg keeps only domains ending in .com or .org.
	OnlyComOrg bool
	// Include keeps only results whose title, URL or snippet contains at
	// least one of these terms. Empty means no restriction.
	Include []string
}

// Counts records how many results survived each stage.
type Counts struct {
	Input      int
	UniqueURLs int
	Filtered   int
	Domains    int
}

// Run applies all stages in order and returns the survivors.
func Run(results []serp.SearchResult, opts Options) ([]serp.SearchResult, Counts) {
	c := Counts{Input: len(results)}

	deduped := DedupeURLs(results)
	c.UniqueURLs = len(deduped)

	filtered := Apply(deduped, opts)
	c.Filtered = len(filtered)

	survivors := DedupeDomains(filtered)
	c.Domains = len(survivors)

	return survivors, c
}

// DedupeURLs keeps the first occurrence of each exact URL and drops results
// with an empty URL.
func DedupeURLs(results []serp.SearchResult) []serp.SearchResult {
	seen := make(map[string]struct{}, len(results))
	out := make([]serp.SearchResult, 0, len(results))
	for _, r := range results {
		if r.URL == "" {
			continue
		}
		if _, ok := seen[r.URL]; ok {
			continue
		}
		seen[r.URL] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Apply drops results with no domain, an excluded domain, a disallowed TLD,
// or no include term, preserving order.
func Apply(results []serp.SearchResult, opts Options) []serp.SearchResult {
	exclude := lowered(opts.Exclude)
	include := lowered(opts.Include)

	out := make([]serp.SearchResult, 0, len(results))
	for _, r := range results {
		d := extract.Domain(r.URL)
		if d == "" {
			continue
		}
		if containsAny(d, exclude) {
			continue
		}
		if opts.OnlyComOrg && !strings.HasSuffix(d, ".com") && !strings.HasSuffix(d, ".org") {
			continue
		}
		if len(include) > 0 && !containsAny(haystack(r), include) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// DedupeDomains keeps the first result for each domain. Results without a
// domain are dropped.
func DedupeDomains(results []serp.SearchResult) []serp.SearchResult {
	seen := make(map[string]struct{}, len(results))
	out := make([]serp.SearchResult, 0, len(results))
	for _, r := range results {
		d := extract.Domain(r.URL)
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, r)
	}
	return out
}

func haystack(r serp.SearchResult) string {
	return strings.ToLower(r.Title + " " + r.URL + " " + r.Snippet)
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func lowered(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
