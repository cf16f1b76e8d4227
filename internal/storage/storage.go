package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Header is the fixed column order of exported prospect rows.
var Header = []string{"domain", "url", "title", "snippet", "emails", "contact_links"}

// ListSeparator joins emails and contact links in exported rows.
const ListSeparator = ";"

// Prospect is one enriched candidate site, created once per surviving domain.
type Prospect struct {
	ID           string    `json:"id"`
	RunID        string    `json:"run_id"`
	Domain       string    `json:"domain"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	Snippet      string    `json:"snippet"`
	Emails       []string  `json:"emails"`
	ContactLinks []string  `json:"contact_links"`
	CreatedAt    time.Time `json:"created_at"`
}

// Record renders the prospect in Header order, joining list fields with
// ListSeparator.
func (p *Prospect) Record() []string {
	return []string{
		p.Domain,
		p.URL,
		p.Title,
		p.Snippet,
		joinList(p.Emails),
		joinList(p.ContactLinks),
	}
}

// FromRecord parses a row written by Record.
func FromRecord(rec []string) (*Prospect, error) {
	if len(rec) != len(Header) {
		return nil, fmt.Errorf("storage: record has %d fields, want %d", len(rec), len(Header))
	}
	return &Prospect{
		Domain:       rec[0],
		URL:          rec[1],
		Title:        rec[2],
		Snippet:      rec[3],
		Emails:       splitList(rec[4]),
		ContactLinks: splitList(rec[5]),
	}, nil
}

// joinList joins values with ListSeparator.
func joinList(values []string) string {
	return strings.Join(values, ListSeparator)
}

// splitList reverses joinList. An empty string yields an empty slice.
func splitList(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ListSeparator)
}

// Filter narrows a Query.
type Filter struct {
	RunID  string
	Domain string
	Since  *time.Time
	Limit  int
	Offset int
}

// Match reports whether p passes the RunID, Domain and Since conditions.
func (f Filter) Match(p *Prospect) bool {
	if f.RunID != "" && p.RunID != f.RunID {
		return false
	}
	if f.Domain != "" && p.Domain != f.Domain {
		return false
	}
	if f.Since != nil && p.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Page applies Offset and Limit to an already ordered slice.
func (f Filter) Page(ps []*Prospect) []*Prospect {
	if f.Offset > 0 {
		if f.Offset >= len(ps) {
			return []*Prospect{}
		}
		ps = ps[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(ps) {
		ps = ps[:f.Limit]
	}
	return ps
}

// Backend stores and queries prospect rows.
type Backend interface {
	Save(ctx context.Context, p *Prospect) error
	Query(ctx context.Context, filter Filter) ([]*Prospect, error)
	Close() error
}
