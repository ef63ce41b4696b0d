package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for the catalog scraper.
type Config struct {
	Fetcher  FetcherConfig  `mapstructure:"fetcher"  yaml:"fetcher"`
	Parser   ParserConfig   `mapstructure:"parser"   yaml:"parser"`
	Sanitize SanitizeConfig `mapstructure:"sanitize" yaml:"sanitize"`
	Storage  StorageConfig  `mapstructure:"storage"  yaml:"storage"`
	Catalog  CatalogConfig  `mapstructure:"catalog"  yaml:"catalog"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  yaml:"metrics"`
}

// FetcherConfig controls the page fetcher.
type FetcherConfig struct {
	UserAgent       string        `mapstructure:"user_agent"        yaml:"user_agent"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"   yaml:"request_timeout"`
	PolitenessDelay time.Duration `mapstructure:"politeness_delay"  yaml:"politeness_delay"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
}

// ParserConfig selects the detail extraction engine.
type ParserConfig struct {
	Engine string `mapstructure:"engine" yaml:"engine"` // regex, css, xpath
}

// SanitizeConfig controls value cleanup.
type SanitizeConfig struct {
	UnescapeEntities bool `mapstructure:"unescape_entities" yaml:"unescape_entities"`
}

// StorageConfig controls output.
type StorageConfig struct {
	OutputDir string      `mapstructure:"output_dir" yaml:"output_dir"`
	Formats   []string    `mapstructure:"formats"    yaml:"formats"` // xlsx, csv
	Mongo     MongoConfig `mapstructure:"mongo"      yaml:"mongo"`
}

// MongoConfig controls the optional MongoDB mirror.
type MongoConfig struct {
	Enabled  bool   `mapstructure:"enabled"  yaml:"enabled"`
	URI      string `mapstructure:"uri"      yaml:"uri"`
	Database string `mapstructure:"database" yaml:"database"`
}

// CatalogConfig controls which categories run and where they live.
type CatalogConfig struct {
	BaseURL string   `mapstructure:"base_url" yaml:"base_url"`
	Only    []string `mapstructure:"only"     yaml:"only"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // text, json, pretty
}

// MetricsConfig controls the metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Fetcher: FetcherConfig{
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RequestTimeout:  30 * time.Second,
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    10,
		},
		Parser: ParserConfig{
			Engine: "regex",
		},
		Storage: StorageConfig{
			OutputDir: ".",
			Formats:   []string{"xlsx"},
			Mongo: MongoConfig{
				URI:      "mongodb://localhost:27017",
				Database: "zhongyi",
			},
		},
		Catalog: CatalogConfig{
			BaseURL: "https://www.zhiyuanzhongyi.com",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
