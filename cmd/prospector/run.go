package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/FranksOps/prospector/internal/config"
	"github.com/FranksOps/prospector/internal/enrich"
	"github.com/FranksOps/prospector/internal/fingerprint"
	"github.com/FranksOps/prospector/internal/metrics"
	"github.com/FranksOps/prospector/internal/pipeline"
	"github.com/FranksOps/prospector/internal/report"
	"github.com/FranksOps/prospector/internal/scraper"
	"github.com/FranksOps/prospector/internal/serp"
	"github.com/FranksOps/prospector/pkg/proxy"
	"github.com/FranksOps/prospector/pkg/ratelimit"
	"github.com/FranksOps/prospector/pkg/useragent"
)

func newRunCmd(a *app) *cobra.Command {
	var reportFormat string

	cmd := &cobra.Command{
		Use:   "run [niche]",
		Short: "Search a niche for prospects and export them",
		Long: "Runs the five guest-post queries for the niche, filters the results down to one per domain, " +
			"visits each page for emails and contact links, and writes the export file. " +
			"The niche argument overrides --niche and the config file.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				a.cfg.Niche = strings.TrimSpace(args[0])
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.run(cmd, reportFormat)
		},
	}

	f := cmd.Flags()
	f.String("api-key", "", "search API key")
	f.String("niche", "", "niche to prospect (default \"digital marketing\")")
	f.Int("limit", 0, "results per query, 10 to 100 (default 25)")
	f.Duration("delay", 0, "pause between requests, up to 5s (default 1.5s)")
	f.String("exclude", "", "comma-separated domain substrings to drop")
	f.String("include", "", "comma-separated terms a result must mention; empty keeps all")
	f.Bool("only-com-org", true, "keep only .com and .org domains")
	f.String("user-agent", "", "User-Agent for searches and page visits")
	f.Bool("rotate-user-agents", false, "rotate page visits through common browser User-Agents")
	f.String("tls-profile", "", "TLS fingerprint: go, chrome, firefox, safari, random")
	f.Bool("respect-robots", false, "skip pages disallowed by robots.txt")
	f.String("proxies", "", "comma-separated proxy URLs for page visits")
	f.String("proxy-file", "", "file with one proxy URL per line")
	f.StringP("output", "o", "", "export file (default prospects.csv)")
	f.String("format", "", "export format: csv or json")
	f.String("store", "", "history store driver: sqlite or postgres")
	f.String("dsn", "", "history store DSN")
	f.Int("metrics-port", 0, "serve Prometheus metrics on this port while running")
	f.StringVar(&reportFormat, "report", "text", "summary format: text, json or html")

	for name, key := range map[string]string{
		"api-key":            "serp.api_key",
		"niche":              "niche",
		"limit":              "limit",
		"delay":              "delay",
		"exclude":            "filter.exclude",
		"include":            "filter.include",
		"only-com-org":       "filter.only_com_org",
		"user-agent":         "fetch.user_agent",
		"rotate-user-agents": "fetch.rotate_user_agents",
		"tls-profile":        "fetch.tls_profile",
		"respect-robots":     "fetch.respect_robots",
		"proxies":            "fetch.proxies",
		"proxy-file":         "fetch.proxy_file",
		"output":             "output.path",
		"format":             "output.format",
		"store":              "store.driver",
		"dsn":                "store.dsn",
		"metrics-port":       "metrics.port",
	} {
		bindKey(f, name, key)
	}
	return cmd
}

func (a *app) run(cmd *cobra.Command, reportFormat string) error {
	ctx := cmd.Context()
	cfg := a.cfg

	profile, err := fingerprint.ParseProfile(cfg.Fetch.TLSProfile)
	if err != nil {
		return err
	}

	provider, err := serp.NewSerpAPI(serp.SerpAPIConfig{
		APIKey:    cfg.SERP.APIKey,
		Endpoint:  cfg.SERP.Endpoint,
		Engine:    cfg.SERP.Engine,
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   cfg.SERP.Timeout,
	})
	if err != nil {
		return err
	}

	proxies, err := proxyPool(cfg.Fetch)
	if err != nil {
		return err
	}
	if proxies != nil {
		a.logger.Info("rotating page visits through proxies", "count", proxies.Len())
	}

	agents := useragent.NewPool(cfg.Fetch.UserAgents())
	if agents.Len() > 1 {
		a.logger.Info("rotating page visits through user agents", "count", agents.Len())
	}

	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{
		Timeout:       cfg.Fetch.Timeout,
		MaxRedirects:  cfg.Fetch.MaxRedirects,
		UAPool:        agents,
		Fingerprint:   profile,
		RespectRobots: cfg.Fetch.RespectRobots,
		Proxies:       proxies,
		Logger:        a.logger,
	})
	if err != nil {
		return err
	}
	defer fetcher.Close()

	// One limiter spaces searches and page visits alike.
	limiter := ratelimit.NewLimiter(cfg.Delay, 0)

	p := &pipeline.Pipeline{
		SERPProvider: provider,
		Enricher: &enrich.Enricher{
			Fetcher: fetcher,
			Limiter: limiter,
			Logger:  a.logger,
		},
		Filter:   cfg.Filter.Options(),
		Limit:    cfg.Limit,
		Limiter:  limiter,
		Progress: &logProgress{logger: a.logger},
		Logger:   a.logger,
	}

	res, err := a.runWithMetrics(ctx, p)
	if err != nil {
		return err
	}

	if err := a.export(ctx, res); err != nil {
		return err
	}
	if cfg.Store.Driver != "" {
		if err := a.record(ctx, res); err != nil {
			return err
		}
	}

	return report.Write(cmd.OutOrStdout(), reportFormat, res.Summary)
}

// proxyPool builds the proxy rotation from config, or returns nil when no
// proxies are configured.
func proxyPool(cfg config.FetchConfig) (*proxy.Pool, error) {
	list := cfg.ProxyList()
	if len(list) == 0 && cfg.ProxyFile == "" {
		return nil, nil
	}
	pool, err := proxy.New(proxy.Config{}, list...)
	if err != nil {
		return nil, err
	}
	if cfg.ProxyFile != "" {
		if err := pool.LoadFile(cfg.ProxyFile); err != nil {
			return nil, err
		}
	}
	return pool, nil
}

// runWithMetrics runs the pipeline, serving /metrics alongside it when a
// metrics port is configured.
func (a *app) runWithMetrics(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Result, error) {
	if a.cfg.Metrics.Port <= 0 {
		return p.Run(ctx, a.cfg.Niche)
	}

	srv, err := metrics.Listen(a.cfg.Metrics.Port)
	if err != nil {
		return nil, err
	}
	a.logger.Info("serving metrics", "addr", srv.Addr())

	var res *pipeline.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Serve)
	g.Go(func() error {
		defer func() { _ = srv.Stop(context.Background()) }()
		var err error
		res, err = p.Run(gctx, a.cfg.Niche)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func (a *app) export(ctx context.Context, res *pipeline.Result) error {
	out := a.cfg.Output
	b, err := createExport(out)
	if err != nil {
		return err
	}
	if err := saveAll(ctx, b, res.Prospects); err != nil {
		_ = b.Close()
		return fmt.Errorf("write export: %w", err)
	}
	if err := b.Close(); err != nil {
		return fmt.Errorf("close export: %w", err)
	}
	a.logger.Info("export written", "path", out.Path, "format", out.Format, "rows", len(res.Prospects))
	return nil
}

func (a *app) record(ctx context.Context, res *pipeline.Result) error {
	st, err := openStore(ctx, a.cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	if err := saveAll(ctx, st, res.Prospects); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	a.logger.Info("history saved", "driver", a.cfg.Store.Driver, "run_id", res.RunID)
	return nil
}
