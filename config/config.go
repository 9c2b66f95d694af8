package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

const (
	DefaultFeedURL       = "https://raw.githubusercontent.com/jeevanmathewk/animalapp-data/main/animals.json"
	DefaultFavouritesKey = "jw_favourites_v1"
	DefaultCacheVersion  = "jwca-v2"
	DefaultFallbackPath  = "./index.html"
)

// DefaultAssets is the offline manifest pre-fetched when a cache generation
// installs.
var DefaultAssets = []string{
	"./",
	"./index.html",
	"./animals.html",
	"./animal.html",
	"./map.html",
	"./favourites.html",
	"./kids.html",
	"./styles.css",
	"./app.js",
	"./manifest.webmanifest",
	"./icons/icon-192.png",
	"./icons/icon-512.png",
}

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	Port    string `env:"PORT"                envDefault:"8080"`
	BaseURL string `env:"RENDER_EXTERNAL_URL"`
	GinMode string `env:"GIN_MODE"            envDefault:"release"`

	FeedURL       string `env:"ANIMALS_FEED_URL"`
	DataDir       string `env:"DATA_DIR"         envDefault:"./data"`
	FavouritesKey string `env:"FAVOURITES_KEY"`

	CacheVersion       string   `env:"CACHE_VERSION"`
	CacheAssets        []string `env:"CACHE_ASSETS"              envSeparator:","`
	CacheFallback      string   `env:"CACHE_FALLBACK"`
	CacheBackend       string   `env:"CACHE_BACKEND"             envDefault:"memory"`
	CachePath          string   `env:"CACHE_PATH"                envDefault:"./data/cache.db"`
	InstallConcurrency int      `env:"CACHE_INSTALL_CONCURRENCY" envDefault:"4"`

	ProxyPort   string `env:"PROXY_PORT"   envDefault:"8081"`
	ProxyOrigin string `env:"PROXY_ORIGIN"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

// Option adjusts a Config after the environment is parsed and before
// derived fields are filled, e.g. to apply command-line flags.
type Option func(*Config)

// Load parses the environment into a Config, applies opts and fills
// defaults for whatever is still empty.
func Load(opts ...Option) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.FeedURL == "" {
		c.FeedURL = DefaultFeedURL
	}
	if c.FavouritesKey == "" {
		c.FavouritesKey = DefaultFavouritesKey
	}
	if c.CacheVersion == "" {
		c.CacheVersion = DefaultCacheVersion
	}
	if c.CacheFallback == "" {
		c.CacheFallback = DefaultFallbackPath
	}
	if len(c.CacheAssets) == 0 {
		c.CacheAssets = append([]string(nil), DefaultAssets...)
	}
	if c.BaseURL == "" {
		c.BaseURL = fmt.Sprintf("http://localhost:%s", c.Port)
	}
	if c.ProxyOrigin == "" {
		c.ProxyOrigin = c.BaseURL
	}
	if c.InstallConcurrency <= 0 {
		c.InstallConcurrency = 1
	}
}

// Validate checks the fields every component relies on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.CacheVersion) == "" {
		return errors.New("cache version is required")
	}
	if strings.TrimSpace(c.FavouritesKey) == "" {
		return errors.New("favourites key is required")
	}
	if strings.TrimSpace(c.FeedURL) == "" {
		return errors.New("feed url is required")
	}
	switch c.CacheBackend {
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("unknown cache backend %q", c.CacheBackend)
	}
	return nil
}
