// Package command binds one domain, one probe strategy and one retry policy
// into a unit of work with a small state machine.
package command

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/berckan/tldscout/internal/checker"
	"github.com/berckan/tldscout/internal/models"
	"github.com/berckan/tldscout/internal/retry"
	"github.com/berckan/tldscout/internal/tld"
)

// State represents the lifecycle stage of a command
type State string

const (
	StatePending   State = "pending"
	StateExecuting State = "executing"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Command checks a single domain.
type Command struct {
	id       string
	domain   string
	strategy checker.Probe
	registry *tld.Registry
	logger   *slog.Logger

	mu     sync.Mutex
	cfg    models.RetryConfig
	state  State
	result models.DomainResult
}

// New binds domain, strategy and cfg into a pending command. The registry's
// known suffixes decide where the base name ends; with a nil registry or no
// matching suffix the domain is split at its first dot.
func New(domain string, strategy checker.Probe, registry *tld.Registry, cfg models.RetryConfig, logger *slog.Logger) *Command {
	if logger == nil {
		logger = slog.Default()
	}
	return &Command{
		id:       uuid.NewString(),
		domain:   domain,
		strategy: strategy,
		registry: registry,
		cfg:      cfg,
		state:    StatePending,
		logger:   logger.With("component", "command"),
	}
}

// ID returns the command's unique id.
func (c *Command) ID() string { return c.id }

// Domain returns the domain as given to New.
func (c *Command) Domain() string { return c.domain }

// Status returns the current lifecycle state.
func (c *Command) Status() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Result returns the last accepted result.
func (c *Command) Result() models.DomainResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// RetryConfig returns the bound retry config.
func (c *Command) RetryConfig() models.RetryConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// UpdateRetryConfig replaces the retry config. Only allowed while pending.
func (c *Command) UpdateRetryConfig(cfg models.RetryConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePending {
		return ErrNotPending
	}
	c.cfg = cfg
	return nil
}

// Cancel marks the command cancelled unless it already completed. It does not
// interrupt a network call in flight; its result is discarded on arrival.
func (c *Command) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateCompleted || c.state == StateCancelled {
		return false
	}
	c.state = StateCancelled
	return true
}

// Execute runs a single attempt. A result with error status is returned
// together with a *CheckError.
func (c *Command) Execute(ctx context.Context) (models.DomainResult, error) {
	base, suffix, err := c.start()
	if err != nil {
		return c.reject(err)
	}
	res, err := c.attempt(ctx, base, suffix)
	return c.finish(res, err)
}

// ExecuteWithRetry runs attempts under the bound retry config. Exhausted
// retries yield an error-status result and a nil error; only validation
// failures and cancellation are returned as errors.
func (c *Command) ExecuteWithRetry(ctx context.Context) (models.DomainResult, error) {
	base, suffix, err := c.start()
	if err != nil {
		return c.reject(err)
	}

	policy := retry.FromRetryConfig(c.RetryConfig())
	res, retries, err := retry.Do(ctx, policy, func(ctx context.Context) (models.DomainResult, error) {
		if c.Status() == StateCancelled {
			return models.DomainResult{}, retry.Permanent(ErrCancelled)
		}
		return c.attempt(ctx, base, suffix)
	})
	if err != nil {
		var ce *CheckError
		if errors.As(err, &ce) {
			res = ce.Result
		} else {
			res = c.errorResult(base, suffix, err.Error())
		}
		c.logger.DebugContext(ctx, "check failed", "domain", c.domain, "retries", retries, "error", err.Error())
	}
	// Strategies retry internally; the command reports only its own retries.
	res.RetryCount = retries

	res, err = c.finish(res, err)
	if errors.Is(err, ErrCancelled) {
		return res, err
	}
	return res, nil
}

func (c *Command) start() (string, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateCancelled:
		return "", "", ErrCancelled
	case StatePending:
	default:
		return "", "", ErrNotPending
	}

	base, suffix, err := tld.ParseDomain(c.domain)
	if err != nil {
		c.state = StateFailed
		return "", "", retry.Permanent(&ValidationError{Domain: c.domain, Err: err})
	}
	c.state = StateExecuting
	base, suffix = c.split(base, suffix)
	return base, suffix, nil
}

// split moves the base/TLD boundary to the longest known suffix.
func (c *Command) split(base, suffix string) (string, string) {
	if c.registry == nil {
		return base, suffix
	}
	domain := base + suffix
	t, ok := c.registry.ExtractTLD(domain)
	if !ok {
		return base, suffix
	}
	b, _ := c.registry.ExtractBaseDomain(domain)
	return b, t
}

func (c *Command) attempt(ctx context.Context, base, suffix string) (models.DomainResult, error) {
	res := c.strategy.CheckDomain(ctx, base+suffix)
	res.BaseDomain = base
	res.TLD = suffix
	if res.Status == models.StatusError {
		return res, &CheckError{Result: res}
	}
	return res, nil
}

// finish records the outcome unless the command was cancelled meanwhile.
func (c *Command) finish(res models.DomainResult, err error) (models.DomainResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateCancelled || errors.Is(err, ErrCancelled) {
		c.state = StateCancelled
		return res, ErrCancelled
	}
	c.result = res
	if err != nil {
		c.state = StateFailed
	} else {
		c.state = StateCompleted
	}
	return res, err
}

// reject turns a start failure into an error result.
func (c *Command) reject(err error) (models.DomainResult, error) {
	res := c.errorResult("", "", err.Error())
	if errors.Is(err, ErrCancelled) || errors.Is(err, ErrNotPending) {
		return res, err
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		err = ve
	}
	c.mu.Lock()
	c.result = res
	c.mu.Unlock()
	return res, err
}

func (c *Command) errorResult(base, suffix, msg string) models.DomainResult {
	res := models.NewResult(c.domain, c.strategy.Method())
	if base != "" {
		res.Domain = base + suffix
	}
	res.BaseDomain = base
	res.TLD = suffix
	res.Resolve(models.StatusError, msg)
	return res
}
