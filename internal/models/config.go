package models

// RetryConfig controls how a per-domain command retries a failed check.
type RetryConfig struct {
	MaxRetries            int     `json:"maxRetries" yaml:"max_retries"`
	InitialDelayMs        int     `json:"initialDelayMs" yaml:"initial_delay_ms"`
	UseExponentialBackoff bool    `json:"useExponentialBackoff" yaml:"use_exponential_backoff"`
	MaxDelayMs            int     `json:"maxDelayMs" yaml:"max_delay_ms"`
	BackoffMultiplier     float64 `json:"backoffMultiplier" yaml:"backoff_multiplier"`
}

// DefaultRetryConfig is bound to commands that are not given one.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:            2,
		InitialDelayMs:        1000,
		UseExponentialBackoff: true,
		MaxDelayMs:            10000,
		BackoffMultiplier:     2,
	}
}

// QueryConfig is the per-probe timeout and retry budget.
type QueryConfig struct {
	TimeoutMs             int  `json:"timeoutMs" yaml:"timeout_ms"`
	MaxRetries            int  `json:"maxRetries" yaml:"max_retries"`
	RetryDelayMs          int  `json:"retryDelayMs" yaml:"retry_delay_ms"`
	UseExponentialBackoff bool `json:"useExponentialBackoff" yaml:"use_exponential_backoff"`
}

// DefaultDNSQueryConfig is 5s per query, two retries from 500ms, backing off.
func DefaultDNSQueryConfig() QueryConfig {
	return QueryConfig{TimeoutMs: 5000, MaxRetries: 2, RetryDelayMs: 500, UseExponentialBackoff: true}
}

// DefaultWhoisQueryConfig is 10s per query, two retries from 1s, backing off.
func DefaultWhoisQueryConfig() QueryConfig {
	return QueryConfig{TimeoutMs: 10000, MaxRetries: 2, RetryDelayMs: 1000, UseExponentialBackoff: true}
}

// WithDefaults returns def when c is unset, otherwise c with invalid fields
// replaced from def.
func (c QueryConfig) WithDefaults(def QueryConfig) QueryConfig {
	if c == (QueryConfig{}) {
		return def
	}
	if c.TimeoutMs <= 0 {
		c.TimeoutMs = def.TimeoutMs
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.RetryDelayMs < 0 {
		c.RetryDelayMs = def.RetryDelayMs
	}
	return c
}
