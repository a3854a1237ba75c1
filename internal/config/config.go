// Package config resolves runtime settings in priority order: defaults, then
// an optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/berckan/tldscout/internal/batch"
	"github.com/berckan/tldscout/internal/checker"
	"github.com/berckan/tldscout/internal/models"
	"github.com/berckan/tldscout/internal/tld"
)

// Config is the resolved runtime configuration.
type Config struct {
	HTTPPort        int
	LogLevel        string
	ShutdownTimeout time.Duration

	Strategy       models.CheckMethod
	Nameserver     string
	DNS            models.QueryConfig
	Whois          models.QueryConfig
	WhoisRateLimit time.Duration

	Retry       models.RetryConfig
	Batch       batch.Options
	DefaultTLDs []string
}

// configFile mirrors configs/default.yaml.
type configFile struct {
	Server struct {
		HTTPPort          int    `yaml:"http_port"`
		LogLevel          string `yaml:"log_level"`
		ShutdownTimeoutMs int    `yaml:"shutdown_timeout_ms"`
	} `yaml:"server"`
	Check struct {
		Strategy    string             `yaml:"strategy"`
		DefaultTLDs []string           `yaml:"default_tlds"`
		Retry       models.RetryConfig `yaml:"retry"`
	} `yaml:"check"`
	DNS struct {
		Nameserver string       `yaml:"nameserver"`
		Query      *queryConfig `yaml:"query"`
	} `yaml:"dns"`
	Whois struct {
		RateLimitMs int          `yaml:"rate_limit_ms"`
		Query       *queryConfig `yaml:"query"`
	} `yaml:"whois"`
	Batch struct {
		Size           int   `yaml:"size"`
		MaxConcurrency int   `yaml:"max_concurrency"`
		DelayMs        *int  `yaml:"delay_ms"`
		FailFast       *bool `yaml:"fail_fast"`
	} `yaml:"batch"`
}

type queryConfig struct {
	TimeoutMs             int   `yaml:"timeout_ms"`
	MaxRetries            *int  `yaml:"max_retries"`
	RetryDelayMs          int   `yaml:"retry_delay_ms"`
	UseExponentialBackoff *bool `yaml:"use_exponential_backoff"`
}

func (q *queryConfig) apply(dst *models.QueryConfig) {
	if q == nil {
		return
	}
	if q.TimeoutMs > 0 {
		dst.TimeoutMs = q.TimeoutMs
	}
	if q.MaxRetries != nil {
		dst.MaxRetries = *q.MaxRetries
	}
	if q.RetryDelayMs > 0 {
		dst.RetryDelayMs = q.RetryDelayMs
	}
	if q.UseExponentialBackoff != nil {
		dst.UseExponentialBackoff = *q.UseExponentialBackoff
	}
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPPort:        8080,
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
		Strategy:        models.MethodHybrid,
		Nameserver:      "8.8.8.8:53",
		DNS:             models.DefaultDNSQueryConfig(),
		Whois:           models.DefaultWhoisQueryConfig(),
		WhoisRateLimit:  checker.DefaultRateLimitDelay,
		Retry:           models.DefaultRetryConfig(),
		Batch:           batch.DefaultOptions(),
		DefaultTLDs:     append([]string(nil), tld.DefaultTLDs...),
	}
}

// Load resolves configuration from defaults, the YAML file at path (skipped
// when path is empty or missing) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := cfg.applyFile(raw); err != nil {
				return Config{}, err
			}
		case !errors.Is(err, os.ErrNotExist):
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(raw []byte) error {
	var f configFile
	// Keys missing from the file keep their current values.
	f.Check.Retry = c.Retry
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if f.Server.HTTPPort > 0 {
		c.HTTPPort = f.Server.HTTPPort
	}
	if f.Server.LogLevel != "" {
		c.LogLevel = f.Server.LogLevel
	}
	if f.Server.ShutdownTimeoutMs > 0 {
		c.ShutdownTimeout = time.Duration(f.Server.ShutdownTimeoutMs) * time.Millisecond
	}

	if f.Check.Strategy != "" {
		c.Strategy = models.CheckMethod(strings.ToLower(f.Check.Strategy))
	}
	if len(f.Check.DefaultTLDs) > 0 {
		c.DefaultTLDs = f.Check.DefaultTLDs
	}
	c.Retry = f.Check.Retry

	if f.DNS.Nameserver != "" {
		c.Nameserver = f.DNS.Nameserver
	}
	f.DNS.Query.apply(&c.DNS)
	f.Whois.Query.apply(&c.Whois)
	if f.Whois.RateLimitMs > 0 {
		c.WhoisRateLimit = time.Duration(f.Whois.RateLimitMs) * time.Millisecond
	}

	if f.Batch.Size > 0 {
		c.Batch.BatchSize = f.Batch.Size
	}
	if f.Batch.MaxConcurrency > 0 {
		c.Batch.MaxConcurrency = f.Batch.MaxConcurrency
	}
	if f.Batch.DelayMs != nil {
		c.Batch.BatchDelay = time.Duration(*f.Batch.DelayMs) * time.Millisecond
	}
	if f.Batch.FailFast != nil {
		c.Batch.FailFast = *f.Batch.FailFast
	}
	return nil
}

func (c *Config) applyEnv() {
	c.HTTPPort = envInt("HTTP_PORT", envInt("PORT", c.HTTPPort))
	c.LogLevel = strings.ToLower(envOrDefault("LOG_LEVEL", c.LogLevel))
	c.Strategy = models.CheckMethod(strings.ToLower(envOrDefault("CHECK_STRATEGY", string(c.Strategy))))

	c.Nameserver = envOrDefault("DNS_NAMESERVER", c.Nameserver)
	c.DNS.TimeoutMs = envInt("DNS_TIMEOUT_MS", c.DNS.TimeoutMs)
	c.DNS.MaxRetries = envInt("DNS_MAX_RETRIES", c.DNS.MaxRetries)

	c.Whois.TimeoutMs = envInt("WHOIS_TIMEOUT_MS", c.Whois.TimeoutMs)
	c.Whois.MaxRetries = envInt("WHOIS_MAX_RETRIES", c.Whois.MaxRetries)
	c.WhoisRateLimit = time.Duration(envInt("WHOIS_RATE_LIMIT_MS", int(c.WhoisRateLimit/time.Millisecond))) * time.Millisecond

	c.Retry.MaxRetries = envInt("CHECK_MAX_RETRIES", c.Retry.MaxRetries)

	c.Batch.BatchSize = envInt("BATCH_SIZE", c.Batch.BatchSize)
	c.Batch.MaxConcurrency = envInt("BATCH_MAX_CONCURRENCY", c.Batch.MaxConcurrency)
	c.Batch.BatchDelay = time.Duration(envInt("BATCH_DELAY_MS", int(c.Batch.BatchDelay/time.Millisecond))) * time.Millisecond
	c.Batch.FailFast = envBool("BATCH_FAIL_FAST", c.Batch.FailFast)

	c.DefaultTLDs = envCSV("DEFAULT_TLDS", c.DefaultTLDs)
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	var errs []error
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("http port %d out of range", c.HTTPPort))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.Strategy {
	case models.MethodDNS, models.MethodWhois, models.MethodHybrid:
	default:
		errs = append(errs, fmt.Errorf("unknown check strategy %q", c.Strategy))
	}
	if c.DNS.MaxRetries < 0 || c.Whois.MaxRetries < 0 || c.Retry.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries must not be negative"))
	}
	if c.DNS.TimeoutMs <= 0 || c.Whois.TimeoutMs <= 0 {
		errs = append(errs, errors.New("query timeouts must be positive"))
	}
	if c.Retry.InitialDelayMs < 0 {
		errs = append(errs, errors.New("initial retry delay must not be negative"))
	}
	if c.Retry.UseExponentialBackoff && c.Retry.BackoffMultiplier != 0 && c.Retry.BackoffMultiplier <= 1 {
		errs = append(errs, fmt.Errorf("backoff multiplier %v must be greater than 1", c.Retry.BackoffMultiplier))
	}
	if c.Batch.BatchSize <= 0 {
		errs = append(errs, errors.New("batch size must be positive"))
	}
	if c.Batch.MaxConcurrency <= 0 {
		errs = append(errs, errors.New("batch max concurrency must be positive"))
	}
	if c.Batch.BatchDelay < 0 {
		errs = append(errs, errors.New("batch delay must not be negative"))
	}
	for _, t := range c.DefaultTLDs {
		if _, err := tld.NormalizeTLD(t); err != nil {
			errs = append(errs, fmt.Errorf("default tlds: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
