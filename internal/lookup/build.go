package lookup

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/berckan/tldscout/internal/batch"
	"github.com/berckan/tldscout/internal/checker"
	"github.com/berckan/tldscout/internal/config"
	"github.com/berckan/tldscout/internal/tld"
)

// NewFromConfig wires the resolver, WHOIS client, probes, strategy and batch
// controller described by cfg into a Service.
func NewFromConfig(cfg config.Config, registry *tld.Registry, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = tld.NewRegistry(cfg.DefaultTLDs)
	}

	dnsTimeout := time.Duration(cfg.DNS.TimeoutMs) * time.Millisecond
	resolver := checker.NewResolver(cfg.Nameserver, dnsTimeout)
	dns := checker.NewDNSProbe(resolver, cfg.DNS, logger)

	whoisTimeout := time.Duration(cfg.Whois.TimeoutMs) * time.Millisecond
	whois := checker.NewWhoisProbe(checker.NewWhoisClient(whoisTimeout), cfg.Whois, logger)
	whois.SetRateLimitDelay(cfg.WhoisRateLimit)

	strategy, err := checker.NewStrategy(cfg.Strategy, dns, whois, logger)
	if err != nil {
		return nil, fmt.Errorf("build strategy: %w", err)
	}

	ctrl := batch.NewController(strategy, registry, cfg.Retry, cfg.Batch, logger)
	logger.Info("lookup service ready",
		"strategy", string(strategy.Method()),
		"nameserver", cfg.Nameserver,
		"tlds", len(registry.TLDs()),
		"batch_size", cfg.Batch.BatchSize,
		"max_concurrency", cfg.Batch.MaxConcurrency,
	)
	return NewService(registry, ctrl, strategy.Method(), logger), nil
}
