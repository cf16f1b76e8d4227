package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/FranksOps/prospector/pkg/httpclient"
	"github.com/temoto/robotstxt"
)

// RobotsGate answers whether a URL may be visited according to its host's
// robots.txt. Each host's file is fetched once and cached.
type RobotsGate struct {
	client    *httpclient.Client
	userAgent string
	logger    *slog.Logger

	mu    sync.Mutex
	cache map[string]*robotstxt.RobotsData
}

// NewRobotsGate creates a gate that evaluates rules for userAgent.
func NewRobotsGate(client *httpclient.Client, userAgent string, logger *slog.Logger) *RobotsGate {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsGate{
		client:    client,
		userAgent: userAgent,
		logger:    logger,
		cache:     make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether targetURL may be fetched. A robots.txt that cannot
// be retrieved or parsed allows everything; 4xx allows all and 5xx disallows
// all, as robotstxt.FromStatusAndBytes decides.
func (g *RobotsGate) Allowed(ctx context.Context, targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil || u.Host == "" {
		return true
	}

	data, err := g.rules(ctx, u.Scheme+"://"+u.Host)
	if err != nil {
		g.logger.Debug("robots.txt unavailable, allowing", "host", u.Host, "err", err)
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, g.userAgent)
}

func (g *RobotsGate) rules(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if data, ok := g.cache[origin]; ok {
		if data == nil {
			return nil, fmt.Errorf("cached failure for %s", origin)
		}
		return data, nil
	}

	data, err := g.fetch(ctx, origin)
	g.cache[origin] = data
	return data, err
}

func (g *RobotsGate) fetch(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return data, nil
}
