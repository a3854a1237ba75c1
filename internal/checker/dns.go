package checker

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/berckan/tldscout/internal/models"
	"github.com/berckan/tldscout/internal/retry"
)

// Resolver is the subset of *net.Resolver the DNS probe needs.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// NewResolver returns a pure-Go resolver that sends every query to
// nameserver (host:port). An empty nameserver uses the system configuration.
func NewResolver(nameserver string, dialTimeout time.Duration) *net.Resolver {
	if nameserver == "" {
		return &net.Resolver{PreferGo: true}
	}
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			d := net.Dialer{Timeout: dialTimeout}
			return d.DialContext(ctx, network, nameserver)
		},
	}
}

// DNSProbe treats the absence of any DNS record as availability.
type DNSProbe struct {
	resolver Resolver
	cfg      models.QueryConfig
	logger   *slog.Logger
}

// NewDNSProbe creates a DNS probe over resolver. Zero fields of cfg take the
// DNS defaults.
func NewDNSProbe(resolver Resolver, cfg models.QueryConfig, logger *slog.Logger) *DNSProbe {
	return &DNSProbe{
		resolver: resolver,
		cfg:      cfg.WithDefaults(models.DefaultDNSQueryConfig()),
		logger:   componentLogger(logger, "dns_probe"),
	}
}

// Config returns the probe's effective query config.
func (p *DNSProbe) Config() models.QueryConfig { return p.cfg }

// Method reports MethodDNS.
func (p *DNSProbe) Method() models.CheckMethod { return models.MethodDNS }

// CheckDomain resolves A records for domain and classifies the outcome.
func (p *DNSProbe) CheckDomain(ctx context.Context, domain string) models.DomainResult {
	start := time.Now()
	result := models.NewResult(domain, models.MethodDNS)

	status, retries, err := retry.Do(ctx, retry.FromQueryConfig(p.cfg), func(ctx context.Context) (models.DomainStatus, error) {
		status, err := p.lookup(ctx, domain)
		if err != nil {
			p.logger.DebugContext(ctx, "dns attempt failed", "domain", domain, "error", err.Error())
		}
		return status, err
	})
	result.RetryCount = retries
	if err != nil {
		result.Resolve(models.StatusError, err.Error())
	} else {
		result.Resolve(status, "")
	}
	result.Stamp(start)
	return result
}

func (p *DNSProbe) lookup(ctx context.Context, domain string) (models.DomainStatus, error) {
	_, err := p.resolver.LookupIP(ctx, "ip4", domain)
	if err == nil {
		return models.StatusTaken, nil
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		switch {
		case dnsErr.IsNotFound:
			return models.StatusAvailable, nil
		case dnsErr.IsTimeout:
			return "", &ProbeError{Message: "DNS query timed out", Transient: true, Err: err}
		case isServerFailure(dnsErr):
			return "", &ProbeError{Message: "DNS server failure: " + dnsErr.Err, Transient: true, Err: err}
		}
	}
	if errors.Is(err, context.Canceled) {
		return "", err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "", &ProbeError{Message: "DNS query timed out", Transient: true, Err: err}
	}

	return p.fallback(ctx, domain), nil
}

// fallback looks for any AAAA or MX record. Anything going wrong here counts
// as no record.
func (p *DNSProbe) fallback(ctx context.Context, domain string) (status models.DomainStatus) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.WarnContext(ctx, "dns fallback panicked", "domain", domain, "panic", rec)
			status = models.StatusAvailable
		}
	}()

	if ips, err := p.resolver.LookupIP(ctx, "ip6", domain); err == nil && len(ips) > 0 {
		return models.StatusTaken
	}
	if mx, err := p.resolver.LookupMX(ctx, domain); err == nil && len(mx) > 0 {
		return models.StatusTaken
	}
	return models.StatusAvailable
}

func isServerFailure(err *net.DNSError) bool {
	if err.IsTemporary {
		return true
	}
	msg := strings.ToLower(err.Err)
	return strings.Contains(msg, "server misbehaving") ||
		strings.Contains(msg, "servfail") ||
		strings.Contains(msg, "refused")
}
