// Package batch fans a list of domains out into sequential chunks, each
// checked with bounded concurrency, and aggregates the outcomes.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/berckan/tldscout/internal/checker"
	"github.com/berckan/tldscout/internal/command"
	"github.com/berckan/tldscout/internal/models"
	"github.com/berckan/tldscout/internal/retry"
	"github.com/berckan/tldscout/internal/tld"
)

// Options tune chunking and concurrency.
type Options struct {
	BatchSize      int
	MaxConcurrency int
	BatchDelay     time.Duration
	FailFast       bool
}

// DefaultOptions returns chunks of 10, five checks in flight and a 100ms
// pause between chunks.
func DefaultOptions() Options {
	return Options{BatchSize: 10, MaxConcurrency: 5, BatchDelay: 100 * time.Millisecond}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.BatchSize <= 0 {
		o.BatchSize = def.BatchSize
	}
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = def.MaxConcurrency
	}
	if o.BatchDelay < 0 {
		o.BatchDelay = 0
	}
	return o
}

// Outcome is what one command produced. Ran is false for domains skipped
// after a fail-fast abort or cancellation.
type Outcome struct {
	Result models.DomainResult
	Err    error
	Ran    bool
}

// Failed reports whether the outcome counts as a failure.
func (o Outcome) Failed() bool {
	return o.Err != nil || o.Result.Status == models.StatusError
}

// Controller schedules per-domain commands.
type Controller struct {
	strategy checker.Probe
	registry *tld.Registry
	retryCfg models.RetryConfig
	opts     Options
	logger   *slog.Logger
}

// NewController returns a controller running every domain through strategy.
// registry names the known suffixes used to split results into base and TLD;
// nil falls back to splitting at the first dot.
func NewController(strategy checker.Probe, registry *tld.Registry, retryCfg models.RetryConfig, opts Options, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		strategy: strategy,
		registry: registry,
		retryCfg: retryCfg,
		opts:     opts.withDefaults(),
		logger:   logger.With("component", "batch"),
	}
}

// Options returns the effective options after defaults were applied.
func (c *Controller) Options() Options { return c.opts }

// CheckDomains checks every domain and aggregates the batch result.
func (c *Controller) CheckDomains(ctx context.Context, domains []string) models.BatchResult {
	res, _ := c.Run(ctx, domains)
	return res
}

// Run checks every distinct domain and returns the aggregate together with
// each domain's outcome keyed by the normalized domain name. Results appear
// in input order regardless of completion order.
func (c *Controller) Run(ctx context.Context, domains []string) (models.BatchResult, map[string]Outcome) {
	start := time.Now()
	batchID := uuid.NewString()
	keys := dedupe(domains)
	outcomes := make([]Outcome, len(keys))

	c.logger.InfoContext(ctx, "batch started",
		"batch_id", batchID,
		"domains", len(keys),
		"batch_size", c.opts.BatchSize,
		"max_concurrency", c.opts.MaxConcurrency,
	)

	for lo := 0; lo < len(keys); lo += c.opts.BatchSize {
		if lo > 0 {
			if err := retry.Sleep(ctx, c.opts.BatchDelay); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}
		hi := min(lo+c.opts.BatchSize, len(keys))
		c.runChunk(ctx, keys[lo:hi], outcomes[lo:hi])

		if c.opts.FailFast && anyFailed(outcomes[lo:hi]) {
			c.logger.WarnContext(ctx, "batch aborted after failing chunk", "batch_id", batchID, "chunk_start", lo)
			break
		}
	}

	result := models.BatchResult{
		Successful:   []models.DomainResult{},
		Failed:       []models.BatchFailure{},
		TotalDomains: len(keys),
	}
	byDomain := make(map[string]Outcome, len(keys))
	for i, d := range keys {
		o := outcomes[i]
		if !o.Ran {
			continue
		}
		byDomain[d] = o
		switch {
		case o.Err != nil:
			result.Failed = append(result.Failed, models.BatchFailure{Domain: d, Error: o.Err.Error(), RetryCount: o.Result.RetryCount})
		case o.Result.Status == models.StatusError:
			result.Failed = append(result.Failed, models.BatchFailure{Domain: d, Error: o.Result.Error, RetryCount: o.Result.RetryCount})
		default:
			result.Successful = append(result.Successful, o.Result)
		}
	}
	result.SuccessRate = models.SuccessRate(len(result.Successful), result.TotalDomains)
	result.TotalExecutionTime = time.Since(start).Milliseconds()

	c.logger.InfoContext(ctx, "batch finished",
		"batch_id", batchID,
		"successful", len(result.Successful),
		"failed", len(result.Failed),
		"skipped", len(keys)-len(byDomain),
		"duration_ms", result.TotalExecutionTime,
	)
	return result, byDomain
}

// runChunk checks domains with at most MaxConcurrency commands in flight and
// returns once all of them settled.
func (c *Controller) runChunk(ctx context.Context, domains []string, out []Outcome) {
	var g errgroup.Group
	g.SetLimit(c.opts.MaxConcurrency)

	for i, d := range domains {
		g.Go(func() error {
			defer func() {
				if rec := recover(); rec != nil {
					c.logger.ErrorContext(ctx, "domain check panicked", "domain", d, "panic", rec)
					out[i] = Outcome{Err: fmt.Errorf("internal error: %v", rec), Ran: true}
				}
			}()
			cmd := command.New(d, c.strategy, c.registry, c.retryCfg, c.logger)
			res, err := cmd.ExecuteWithRetry(ctx)
			out[i] = Outcome{Result: res, Err: err, Ran: true}
			return nil
		})
	}
	_ = g.Wait()
}

func anyFailed(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if o.Ran && o.Failed() {
			return true
		}
	}
	return false
}

// dedupe keeps the first spelling of each domain, compared case-insensitively.
func dedupe(domains []string) []string {
	out := make([]string, 0, len(domains))
	seen := make(map[string]bool, len(domains))
	for _, d := range domains {
		key := strings.ToLower(strings.TrimSpace(d))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}
