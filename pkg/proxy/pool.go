// Package proxy rotates outbound page visits across a list of proxies and
// benches any proxy that keeps failing.
package proxy

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// ErrUnknownProxy is returned by Report for a URL that is not in the pool.
var ErrUnknownProxy = errors.New("proxy: not in pool")

// Config defines settings for the Pool.
type Config struct {
	// MaxFailures consecutive failures bench a proxy. Default 3.
	MaxFailures int
	// Cooldown is how long a benched proxy sits out. Default 5m.
	Cooldown time.Duration
}

type entry struct {
	url          *url.URL
	failures     int
	benchedUntil time.Time
}

// Pool hands out proxies round-robin. It is safe for concurrent use.
type Pool struct {
	mu      sync.Mutex
	entries []*entry
	next    int
	cfg     Config
}

// New creates a pool holding rawURLs. Zero config values get defaults.
func New(cfg Config, rawURLs ...string) (*Pool, error) {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	p := &Pool{cfg: cfg}
	if err := p.Add(rawURLs...); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadFile adds proxies from a file with one URL per line. Blank lines and
// lines starting with '#' are skipped.
func (p *Pool) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("proxy: %w", err)
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("proxy: read %s: %w", path, err)
	}
	return p.Add(urls...)
}

// Add parses and appends proxies. A missing scheme defaults to http.
func (p *Pool) Add(rawURLs ...string) error {
	parsed := make([]*entry, 0, len(rawURLs))
	for _, raw := range rawURLs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("proxy: parse %q: %w", raw, err)
		}
		if u.Host == "" {
			return fmt.Errorf("proxy: %q has no host", raw)
		}
		parsed = append(parsed, &entry{url: u})
	}

	p.mu.Lock()
	p.entries = append(p.entries, parsed...)
	p.mu.Unlock()
	return nil
}

// Len returns the number of proxies, benched or not.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Next returns the next proxy that is not benched, or nil when the pool is
// empty or every proxy is cooling down. Nil means connect directly.
func (p *Pool) Next() *url.URL {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for range p.entries {
		e := p.entries[p.next]
		p.next = (p.next + 1) % len(p.entries)

		if !e.benchedUntil.IsZero() && now.After(e.benchedUntil) {
			e.benchedUntil = time.Time{}
			e.failures = 0
		}
		if e.benchedUntil.IsZero() {
			return e.url
		}
	}
	return nil
}

// Report records the outcome of a request made through u. MaxFailures
// consecutive failures bench the proxy for Cooldown; a success clears the
// count.
func (p *Pool) Report(u *url.URL, ok bool) error {
	if u == nil {
		return errors.New("proxy: nil url")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	target := u.String()
	for _, e := range p.entries {
		if e.url.String() != target {
			continue
		}
		if ok {
			e.failures = 0
			return nil
		}
		e.failures++
		if e.failures >= p.cfg.MaxFailures {
			e.benchedUntil = time.Now().Add(p.cfg.Cooldown)
		}
		return nil
	}
	return ErrUnknownProxy
}
