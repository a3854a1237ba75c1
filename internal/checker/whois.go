package checker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/likexian/whois"

	"github.com/berckan/tldscout/internal/models"
	"github.com/berckan/tldscout/internal/retry"
)

const (
	DefaultRateLimitDelay = time.Second
	MinRateLimitDelay     = 100 * time.Millisecond
)

// WhoisClient fetches the raw WHOIS text for a domain.
type WhoisClient interface {
	Whois(ctx context.Context, domain string) (string, error)
}

type whoisTransport struct {
	client *whois.Client
}

// NewWhoisClient returns a WHOIS client that follows registrar referrals.
// The underlying client cannot be cancelled mid-query; callers bound it with
// their own timeout.
func NewWhoisClient(timeout time.Duration) WhoisClient {
	c := whois.NewClient()
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return &whoisTransport{client: c}
}

func (t *whoisTransport) Whois(ctx context.Context, domain string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return t.client.Whois(domain)
}

// WhoisProbe classifies raw WHOIS responses.
type WhoisProbe struct {
	client WhoisClient
	cfg    models.QueryConfig
	delay  atomic.Int64
	logger *slog.Logger
}

// NewWhoisProbe creates a WHOIS probe over client with the default rate
// limit delay. Zero fields of cfg take the WHOIS defaults.
func NewWhoisProbe(client WhoisClient, cfg models.QueryConfig, logger *slog.Logger) *WhoisProbe {
	p := &WhoisProbe{
		client: client,
		cfg:    cfg.WithDefaults(models.DefaultWhoisQueryConfig()),
		logger: componentLogger(logger, "whois_probe"),
	}
	p.delay.Store(int64(DefaultRateLimitDelay))
	return p
}

// SetRateLimitDelay sets the wait applied before every query, clamped to
// MinRateLimitDelay.
func (p *WhoisProbe) SetRateLimitDelay(d time.Duration) {
	if d < MinRateLimitDelay {
		d = MinRateLimitDelay
	}
	p.delay.Store(int64(d))
}

// RateLimitDelay returns the wait applied before every query.
func (p *WhoisProbe) RateLimitDelay() time.Duration {
	return time.Duration(p.delay.Load())
}

// Config returns the probe's effective query config.
func (p *WhoisProbe) Config() models.QueryConfig { return p.cfg }

// Method reports MethodWhois.
func (p *WhoisProbe) Method() models.CheckMethod { return models.MethodWhois }

// CheckDomain waits out the rate-limit delay, queries WHOIS and classifies
// the response.
func (p *WhoisProbe) CheckDomain(ctx context.Context, domain string) models.DomainResult {
	start := time.Now()
	result := models.NewResult(domain, models.MethodWhois)

	if err := retry.Sleep(ctx, p.RateLimitDelay()); err != nil {
		result.Resolve(models.StatusError, err.Error())
		result.Stamp(start)
		return result
	}

	verdict, retries, err := retry.Do(ctx, retry.FromQueryConfig(p.cfg), func(ctx context.Context) (Verdict, error) {
		raw, err := p.client.Whois(ctx, domain)
		if err != nil {
			p.logger.DebugContext(ctx, "whois query failed", "domain", domain, "error", err.Error())
			return Verdict{}, &ProbeError{Message: "WHOIS query failed: " + err.Error(), Transient: true, Err: err}
		}
		v, err := Classify(raw)
		if err != nil {
			p.logger.DebugContext(ctx, "whois response rejected", "domain", domain, "error", err.Error())
		}
		return v, err
	})
	result.RetryCount = retries
	if err != nil {
		result.Resolve(models.StatusError, err.Error())
	} else {
		result.Resolve(verdict.Status, "")
		if verdict.Status == models.StatusTaken {
			result.WhoisData = verdict.Data
		}
	}
	result.Stamp(start)
	return result
}
