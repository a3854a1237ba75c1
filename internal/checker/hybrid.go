package checker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/berckan/tldscout/internal/models"
)

// HybridProbe uses DNS as the fast path and WHOIS as the authority. DNS can
// only prove absence of records, so an available answer is trusted as is
// while a taken answer or a DNS failure is put to WHOIS.
type HybridProbe struct {
	dns    Probe
	whois  Probe
	logger *slog.Logger
}

// NewHybridProbe combines dns and whois under the hybrid decision policy.
func NewHybridProbe(dns, whois Probe, logger *slog.Logger) *HybridProbe {
	return &HybridProbe{dns: dns, whois: whois, logger: componentLogger(logger, "hybrid_probe")}
}

// Method reports MethodHybrid.
func (h *HybridProbe) Method() models.CheckMethod { return models.MethodHybrid }

// CheckDomain applies the DNS-then-WHOIS decision policy to domain.
func (h *HybridProbe) CheckDomain(ctx context.Context, domain string) models.DomainResult {
	start := time.Now()
	result := models.NewResult(domain, models.MethodHybrid)

	dnsRes := h.dns.CheckDomain(ctx, domain)
	result.RetryCount = dnsRes.RetryCount

	switch dnsRes.Status {
	case models.StatusAvailable:
		result.Resolve(models.StatusAvailable, "")

	case models.StatusTaken:
		w := h.whois.CheckDomain(ctx, domain)
		result.RetryCount += w.RetryCount
		if conclusive(w.Status) {
			result.Resolve(w.Status, "")
			result.WhoisData = w.WhoisData
			break
		}
		result.Resolve(models.StatusTaken, "")
		result.Note = "WHOIS confirmation inconclusive: " + describe(w)
		h.logger.DebugContext(ctx, "keeping dns verdict", "domain", domain, "whois_status", string(w.Status))

	default:
		w := h.whois.CheckDomain(ctx, domain)
		result.RetryCount += w.RetryCount
		// With no DNS verdict to fall back on, an inconclusive WHOIS is a failure.
		if conclusive(w.Status) {
			result.Resolve(w.Status, "")
			result.WhoisData = w.WhoisData
			result.Note = "DNS check failed: " + describe(dnsRes)
			break
		}
		result.Resolve(models.StatusError, fmt.Sprintf("DNS: %s; WHOIS: %s", describe(dnsRes), describe(w)))
	}

	result.Stamp(start)
	return result
}

func conclusive(s models.DomainStatus) bool {
	return s == models.StatusAvailable || s == models.StatusTaken
}

func describe(r models.DomainResult) string {
	if r.Error != "" {
		return r.Error
	}
	return string(r.Status)
}
