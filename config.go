package mypermobil

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes environment variables read by LoadConfig.
const EnvPrefix = "MYPERMOBIL_"

// Config is the file and environment form of the client options.
type Config struct {
	Application    string        `koanf:"application"`
	Email          string        `koanf:"email"`
	Region         string        `koanf:"region"`
	Token          string        `koanf:"token"`
	ExpirationDate string        `koanf:"expiration_date"`
	ProductID      string        `koanf:"product_id"`
	Timeout        time.Duration `koanf:"timeout"`
	CacheTTL       time.Duration `koanf:"cache_ttl"`
	ErrorTTL       time.Duration `koanf:"error_ttl"`
	CacheSize      int           `koanf:"cache_size"`
	RateLimit      float64       `koanf:"rate_limit"`
	RateBurst      int           `koanf:"rate_burst"`
	Debug          bool          `koanf:"debug"`
}

// LoadConfig reads path as YAML when it exists, then applies MYPERMOBIL_*
// environment variables on top. An empty path reads the environment only.
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, err
	}

	if !k.Exists("application") {
		k.Set("application", "mypermobil")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Options turns the non-zero fields into client options. With a token the
// session is seeded for Authenticate; otherwise only the account fields are.
func (cfg *Config) Options() []Option {
	var opts []Option

	if cfg.Email != "" {
		opts = append(opts, WithEmail(cfg.Email))
	}
	if cfg.Region != "" {
		opts = append(opts, WithRegion(cfg.Region))
	}
	if cfg.Token != "" {
		opts = append(opts, WithToken(cfg.Token))
	}
	if cfg.ExpirationDate != "" {
		opts = append(opts, WithExpirationDate(cfg.ExpirationDate))
	}
	if cfg.ProductID != "" {
		opts = append(opts, WithProductID(cfg.ProductID))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, WithTimeout(cfg.Timeout))
	}
	if cfg.CacheTTL > 0 {
		opts = append(opts, WithCacheTTL(cfg.CacheTTL))
	}
	if cfg.ErrorTTL > 0 {
		opts = append(opts, WithErrorTTL(cfg.ErrorTTL))
	}
	if cfg.CacheSize > 0 {
		opts = append(opts, WithLRUCache(cfg.CacheSize))
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		opts = append(opts, WithRateLimit(cfg.RateLimit, burst))
	}
	if cfg.Debug {
		opts = append(opts, WithSimpleLogger())
	}

	return opts
}

// NewFromConfig builds a client from cfg.
func NewFromConfig(cfg *Config, options ...Option) *Client {
	return New(cfg.Application, append(cfg.Options(), options...)...)
}
