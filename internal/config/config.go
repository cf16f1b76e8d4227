// Package config loads prospector settings from a YAML file, PROSPECTOR_*
// environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/FranksOps/prospector/internal/filter"
	"github.com/FranksOps/prospector/internal/serp"
	"github.com/FranksOps/prospector/pkg/useragent"
)

// Bounds applied by Load.
const (
	MinLimit = 10
	MaxLimit = 100
	MaxDelay = 5 * time.Second
)

var (
	// ErrMissingAPIKey is returned by Validate when no search API key is set.
	ErrMissingAPIKey = errors.New("config: search API key is required (serp.api_key or PROSPECTOR_SERP_API_KEY)")
	// ErrEmptyNiche is returned by Validate when the niche is blank.
	ErrEmptyNiche = errors.New("config: niche must not be empty")
)

// Config holds the full application configuration.
type Config struct {
	SERP    SERPConfig    `yaml:"serp" mapstructure:"serp"`
	Niche   string        `yaml:"niche" mapstructure:"niche"`
	Limit   int           `yaml:"limit" mapstructure:"limit"`
	Delay   time.Duration `yaml:"delay" mapstructure:"delay"`
	Filter  FilterConfig  `yaml:"filter" mapstructure:"filter"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// SERPConfig configures the search provider.
type SERPConfig struct {
	APIKey   string        `yaml:"api_key" mapstructure:"api_key"`
	Endpoint string        `yaml:"endpoint" mapstructure:"endpoint"`
	Engine   string        `yaml:"engine" mapstructure:"engine"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// FilterConfig holds the comma-separated filter lists as entered.
type FilterConfig struct {
	Exclude    string `yaml:"exclude" mapstructure:"exclude"`
	OnlyComOrg bool   `yaml:"only_com_org" mapstructure:"only_com_org"`
	Include    string `yaml:"include" mapstructure:"include"`
}

// Options parses the lists into filter options.
func (f FilterConfig) Options() filter.Options {
	return filter.Options{
		Exclude:    ParseCSVList(f.Exclude),
		OnlyComOrg: f.OnlyComOrg,
		Include:    ParseCSVList(f.Include),
	}
}

// FetchConfig configures page visits.
type FetchConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	TLSProfile    string        `yaml:"tls_profile" mapstructure:"tls_profile"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	MaxRedirects  int           `yaml:"max_redirects" mapstructure:"max_redirects"`
	// Proxies is a comma-separated list of proxy URLs for page visits.
	Proxies   string `yaml:"proxies" mapstructure:"proxies"`
	ProxyFile string `yaml:"proxy_file" mapstructure:"proxy_file"`
	// RotateUserAgents cycles page visits through useragent.Browsers
	// instead of sending UserAgent.
	RotateUserAgents bool `yaml:"rotate_user_agents" mapstructure:"rotate_user_agents"`
}

// UserAgents returns the agents page visits rotate through.
func (f FetchConfig) UserAgents() []string {
	if f.RotateUserAgents {
		return useragent.Browsers
	}
	return []string{f.UserAgent}
}

// ProxyList splits Proxies on commas, keeping case since proxy URLs may
// carry credentials.
func (f FetchConfig) ProxyList() []string {
	out := []string{}
	for _, part := range strings.Split(f.Proxies, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// OutputConfig configures the exported artifact.
type OutputConfig struct {
	Path   string `yaml:"path" mapstructure:"path"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StoreConfig configures the optional run history database.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// MetricsConfig configures the Prometheus endpoint. Port 0 disables it.
type MetricsConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures the root logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// NewViper returns a viper instance with defaults, environment binding and,
// if present, the config file. An explicit configFile must exist; otherwise
// prospector.yaml is looked up in the working directory.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("prospector")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PROSPECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("serp.api_key", "")
	v.SetDefault("serp.endpoint", serp.DefaultEndpoint)
	v.SetDefault("serp.engine", "google")
	v.SetDefault("serp.timeout", 20*time.Second)
	v.SetDefault("niche", "digital marketing")
	v.SetDefault("limit", 25)
	v.SetDefault("delay", 1500*time.Millisecond)
	v.SetDefault("filter.exclude", filter.DefaultExclude)
	v.SetDefault("filter.only_com_org", true)
	v.SetDefault("filter.include", filter.DefaultInclude)
	v.SetDefault("fetch.timeout", 20*time.Second)
	v.SetDefault("fetch.user_agent", useragent.Default)
	v.SetDefault("fetch.tls_profile", "go")
	v.SetDefault("fetch.respect_robots", false)
	v.SetDefault("fetch.max_redirects", 10)
	v.SetDefault("fetch.proxies", "")
	v.SetDefault("fetch.proxy_file", "")
	v.SetDefault("fetch.rotate_user_agents", false)
	v.SetDefault("output.path", "prospects.csv")
	v.SetDefault("output.format", "csv")
	v.SetDefault("store.driver", "")
	v.SetDefault("store.dsn", "")
	v.SetDefault("metrics.port", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load unmarshals v into a Config and clamps Limit and Delay into range.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.Niche = strings.TrimSpace(cfg.Niche)
	cfg.SERP.APIKey = strings.TrimSpace(cfg.SERP.APIKey)
	cfg.Limit = clamp(cfg.Limit, MinLimit, MaxLimit)
	cfg.Delay = clamp(cfg.Delay, 0, MaxDelay)
	cfg.Output.Format = strings.ToLower(cfg.Output.Format)
	cfg.Store.Driver = strings.ToLower(cfg.Store.Driver)

	return &cfg, nil
}

// Validate checks the settings a prospecting run cannot start without.
func (c *Config) Validate() error {
	if c.SERP.APIKey == "" {
		return ErrMissingAPIKey
	}
	if strings.TrimSpace(c.Niche) == "" {
		return ErrEmptyNiche
	}
	switch c.Output.Format {
	case "csv", "json":
	default:
		return fmt.Errorf("config: unknown output format %q (want csv or json)", c.Output.Format)
	}
	switch c.Store.Driver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown store driver %q (want sqlite or postgres)", c.Store.Driver)
	}
	if c.Store.Driver != "" && c.Store.DSN == "" {
		return fmt.Errorf("config: store.dsn is required for driver %q", c.Store.Driver)
	}
	return nil
}

// ParseCSVList splits s on commas, trims and lowercases each entry, and drops
// empties.
func ParseCSVList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// NewLogger builds a slog logger writing to w in the configured format.
func NewLogger(cfg LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("config: parse log level: %w", err)
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("config: unknown log format %q", cfg.Format)
	}
}

func clamp[T int | time.Duration](v, lo, hi T) T {
	return min(max(v, lo), hi)
}
