package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/FranksOps/prospector/internal/extract"
	"github.com/FranksOps/prospector/internal/fingerprint"
	"github.com/FranksOps/prospector/internal/metrics"
	"github.com/FranksOps/prospector/pkg/httpclient"
	"github.com/FranksOps/prospector/pkg/proxy"
	"github.com/FranksOps/prospector/pkg/useragent"
	"github.com/google/uuid"
)

// maxBodyBytes bounds how much of a page is read.
const maxBodyBytes = 5 << 20

type contextKey string

// proxyKey carries the proxy chosen for one visit to the transport.
const proxyKey contextKey = "proxy_url"

// proxyFromContext routes a request through the proxy stored on its context,
// falling back to the environment.
func proxyFromContext(req *http.Request) (*url.URL, error) {
	if u, ok := req.Context().Value(proxyKey).(*url.URL); ok && u != nil {
		return u, nil
	}
	return http.ProxyFromEnvironment(req)
}

// FetchConfig configures page visits.
type FetchConfig struct {
	Timeout      time.Duration
	// MaxRedirects caps followed redirects: 0 means 10, negative follows none.
	MaxRedirects int
	UAPool       *useragent.Pool
	Fingerprint  fingerprint.Profile
	// RespectRobots refuses pages disallowed by the host's robots.txt.
	RespectRobots bool
	// Proxies rotates page visits across proxies. Nil connects directly.
	Proxies *proxy.Pool
	// Transport overrides the fingerprinted transport, mainly for tests.
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// Visit is the outcome of fetching one page.
type Visit struct {
	ID         string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
	Challenge  string // bot-protection vendor when the response is a challenge page
	FetchedAt  time.Time
	Error      string // non-empty if no usable HTTP response was received
}

// OK reports whether the visit produced a usable page.
func (v *Visit) OK() bool {
	return v.Error == "" && v.StatusCode > 0 && v.StatusCode < http.StatusBadRequest
}

// Fetcher performs single page visits. It never returns errors; failures are
// recorded on the Visit.
type Fetcher struct {
	config FetchConfig
	client *httpclient.Client
	robots *RobotsGate
	logger *slog.Logger
}

// NewFetcher initializes a Fetcher. One client is shared across visits so
// connections are pooled.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = 10
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	transport := cfg.Transport
	if transport == nil {
		t, err := fingerprint.Transport(cfg.Fingerprint, proxyFromContext)
		if err != nil {
			return nil, fmt.Errorf("scraper: setup transport: %w", err)
		}
		transport = t
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("scraper: create client: %w", err)
	}

	f := &Fetcher{
		config: cfg,
		client: client,
		logger: cfg.Logger,
	}
	if cfg.RespectRobots {
		f.robots = NewRobotsGate(client, cfg.UAPool.Next(), cfg.Logger)
	}
	return f, nil
}

// Fetch executes a GET request for targetURL and captures the response.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) *Visit {
	start := time.Now()
	visit := &Visit{
		ID:        uuid.New().String(),
		URL:       targetURL,
		FetchedAt: start.UTC(),
	}
	defer func() {
		visit.Duration = time.Since(start)
		metrics.RecordVisit(extract.Domain(targetURL), metrics.Visit{
			StatusCode: visit.StatusCode,
			Failed:     !visit.OK(),
			Challenge:  visit.Challenge,
			Bytes:      len(visit.Body),
			Duration:   visit.Duration,
		})
	}()

	ua := f.config.UAPool.Next()

	if f.robots != nil && !f.robots.Allowed(ctx, targetURL) {
		visit.Error = "disallowed by robots.txt"
		return visit
	}

	activeProxy := f.config.Proxies.Next()
	reqCtx := ctx
	if activeProxy != nil {
		reqCtx = context.WithValue(ctx, proxyKey, activeProxy)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, targetURL, nil)
	if err != nil {
		visit.Error = fmt.Sprintf("failed to create request: %v", err)
		return visit
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(reqCtx, req)
	if activeProxy != nil {
		f.reportProxy(activeProxy, err == nil)
	}
	if err != nil {
		visit.Error = fmt.Sprintf("request failed: %v", err)
		return visit
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		visit.Error = fmt.Sprintf("failed to read body: %v", err)
	}
	if len(body) > maxBodyBytes {
		body = body[:maxBodyBytes]
		f.logger.Debug("page body truncated", "url", targetURL, "limit_bytes", maxBodyBytes)
	}

	visit.StatusCode = resp.StatusCode
	visit.Header = resp.Header
	visit.Body = body
	visit.Challenge = DetectChallenge(resp.StatusCode, resp.Header, body)

	if visit.Challenge != "" {
		f.logger.Debug("challenge page detected", "url", targetURL, "vendor", visit.Challenge, "status", visit.StatusCode)
	}
	return visit
}

func (f *Fetcher) reportProxy(u *url.URL, ok bool) {
	if err := f.config.Proxies.Report(u, ok); err != nil {
		f.logger.Debug("proxy report failed", "proxy", u.Host, "err", err)
	}
	if !ok {
		metrics.ProxyFailuresTotal.WithLabelValues(u.Host).Inc()
	}
}

// FetchPage returns the page text, or ok=false when the page is unavailable:
// a transport failure, an HTTP status >= 400, or a robots.txt refusal.
func (f *Fetcher) FetchPage(ctx context.Context, targetURL string) (string, bool) {
	v := f.Fetch(ctx, targetURL)
	if !v.OK() {
		f.logger.Debug("page unavailable", "url", targetURL, "status", v.StatusCode, "err", v.Error)
		return "", false
	}
	return string(v.Body), true
}

// Close releases idle connections.
func (f *Fetcher) Close() {
	f.client.CloseIdleConnections()
}
