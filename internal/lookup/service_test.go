package lookup

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/berckan/tldscout/internal/batch"
	"github.com/berckan/tldscout/internal/checker"
	"github.com/berckan/tldscout/internal/models"
	"github.com/berckan/tldscout/internal/tld"
)

// scriptedProbe resolves every domain to a status chosen by its suffix.
type scriptedProbe struct {
	method   models.CheckMethod
	bySuffix map[string]models.DomainStatus
	fallback models.DomainStatus
	calls    atomic.Int32
}

func (p *scriptedProbe) Method() models.CheckMethod { return p.method }

func (p *scriptedProbe) CheckDomain(_ context.Context, domain string) models.DomainResult {
	p.calls.Add(1)
	status := p.fallback
	for suffix, s := range p.bySuffix {
		if strings.HasSuffix(domain, suffix) {
			status = s
		}
	}
	r := models.NewResult(domain, p.method)
	msg := ""
	if status == models.StatusError {
		msg = "DNS query timed out"
	}
	r.Resolve(status, msg)
	return r
}

func newService(t *testing.T, probe checker.Probe, registry *tld.Registry) *Service {
	t.Helper()
	ctrl := batch.NewController(probe, registry, models.RetryConfig{InitialDelayMs: 1}, batch.Options{BatchSize: 3, MaxConcurrency: 2, BatchDelay: 1}, nil)
	return NewService(registry, ctrl, probe.Method(), nil)
}

func TestCheckEndToEnd(t *testing.T) {
	t.Parallel()

	probe := &scriptedProbe{method: models.MethodDNS, fallback: models.StatusAvailable}
	svc := newService(t, probe, nil)

	resp, err := svc.Check(context.Background(), models.CheckRequest{BaseDomain: "test123", TLDs: []string{".com", ".net"}})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if len(resp.Results) != 2 || resp.Summary.Total != 2 {
		t.Fatalf("expected 2 results, got %d (summary %+v)", len(resp.Results), resp.Summary)
	}
	if resp.Results[0].Domain != "test123.com" || resp.Results[1].Domain != "test123.net" {
		t.Fatalf("unexpected domains %s, %s", resp.Results[0].Domain, resp.Results[1].Domain)
	}
	if resp.BaseDomain != "test123" || resp.Summary.Available != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestCheckMultipleTLDsDefaultsWhenEmpty(t *testing.T) {
	t.Parallel()

	probe := &scriptedProbe{method: models.MethodDNS, fallback: models.StatusTaken}
	svc := newService(t, probe, nil)

	results, err := svc.CheckMultipleTLDs(context.Background(), "Startup", []string{})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if len(results) != len(tld.DefaultTLDs) {
		t.Fatalf("expected %d results, got %d", len(tld.DefaultTLDs), len(results))
	}
	seen := map[string]bool{}
	for i, r := range results {
		if r.TLD != tld.DefaultTLDs[i] || r.BaseDomain != "startup" {
			t.Fatalf("result %d out of order: %+v", i, r)
		}
		if seen[r.TLD] {
			t.Fatalf("duplicate result for %s", r.TLD)
		}
		seen[r.TLD] = true
		if !r.Status.Terminal() {
			t.Fatalf("result %s left in %s", r.Domain, r.Status)
		}
	}
}

func TestCheckMultipleTLDsUsesInjectedRegistry(t *testing.T) {
	t.Parallel()

	probe := &scriptedProbe{method: models.MethodDNS, fallback: models.StatusAvailable}
	svc := newService(t, probe, tld.NewRegistry([]string{".xyz", ".co.uk"}))

	results, err := svc.CheckMultipleTLDs(context.Background(), "widget", nil)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if len(results) != 2 || results[1].Domain != "widget.co.uk" || results[1].TLD != ".co.uk" {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestCheckRejectsBadInput(t *testing.T) {
	t.Parallel()

	probe := &scriptedProbe{method: models.MethodDNS, fallback: models.StatusAvailable}
	svc := newService(t, probe, nil)

	for _, base := range []string{"", "   ", "-bad", "12345", "ab--cd", "has space"} {
		if _, err := svc.Check(context.Background(), models.CheckRequest{BaseDomain: base}); !errors.Is(err, tld.ErrInvalidInput) {
			t.Fatalf("base %q: expected ErrInvalidInput, got %v", base, err)
		}
	}
	if _, err := svc.Check(context.Background(), models.CheckRequest{BaseDomain: "fine", TLDs: []string{".c0m!"}}); !errors.Is(err, tld.ErrInvalidInput) {
		t.Fatalf("expected bad tld to be rejected, got %v", err)
	}
	if probe.calls.Load() != 0 {
		t.Fatalf("no probe should run for rejected input")
	}
}

func TestCheckEncodesPerDomainFailures(t *testing.T) {
	t.Parallel()

	probe := &scriptedProbe{
		method:   models.MethodDNS,
		fallback: models.StatusAvailable,
		bySuffix: map[string]models.DomainStatus{".io": models.StatusError, ".org": models.StatusTaken},
	}
	svc := newService(t, probe, nil)

	resp, err := svc.Check(context.Background(), models.CheckRequest{BaseDomain: "mixed", TLDs: []string{"com", "io", "org"}})
	if err != nil {
		t.Fatalf("per-domain failures must not fail the request: %v", err)
	}
	want := models.Summary{Total: 3, Available: 1, Taken: 1, Errors: 1}
	if resp.Summary != want {
		t.Fatalf("expected summary %+v, got %+v", want, resp.Summary)
	}
	if resp.Results[1].Error != "DNS query timed out" {
		t.Fatalf("expected error message to be kept, got %q", resp.Results[1].Error)
	}
}

func TestCheckMultipleTLDsCancelledContext(t *testing.T) {
	t.Parallel()

	probe := &scriptedProbe{method: models.MethodDNS, fallback: models.StatusAvailable}
	svc := newService(t, probe, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := svc.CheckMultipleTLDs(ctx, "late", []string{".com", ".net"})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected a result per tld, got %d", len(results))
	}
	for _, r := range results {
		if r.Status != models.StatusError || r.Error == "" {
			t.Fatalf("expected error result for %s, got %+v", r.Domain, r)
		}
	}
}

func TestHybridSkipsWhoisWhenDNSAvailable(t *testing.T) {
	t.Parallel()

	dns := &scriptedProbe{method: models.MethodDNS, fallback: models.StatusAvailable}
	whois := &scriptedProbe{method: models.MethodWhois, fallback: models.StatusTaken}
	strategy, err := checker.NewStrategy(models.MethodHybrid, dns, whois, nil)
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}
	svc := newService(t, strategy, nil)

	resp, err := svc.Check(context.Background(), models.CheckRequest{BaseDomain: "freshname", TLDs: []string{".com", ".dev"}})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if whois.calls.Load() != 0 {
		t.Fatalf("whois must not run when dns reports available")
	}
	for _, r := range resp.Results {
		if r.Status != models.StatusAvailable || r.CheckMethod != models.MethodHybrid {
			t.Fatalf("unexpected result %+v", r)
		}
	}
}

func TestCheckDomainsDelegatesToController(t *testing.T) {
	t.Parallel()

	probe := &scriptedProbe{method: models.MethodDNS, fallback: models.StatusTaken}
	svc := newService(t, probe, nil)

	res := svc.CheckDomains(context.Background(), []string{"good1.com", "bad@domain.com", "good2.com"})
	if len(res.Successful) != 2 || len(res.Failed) != 1 || res.TotalDomains != 3 {
		t.Fatalf("unexpected batch result %+v", res)
	}
}

func TestCheckDomainsSplitsAtKnownSuffix(t *testing.T) {
	t.Parallel()

	probe := &scriptedProbe{method: models.MethodDNS, fallback: models.StatusTaken}
	svc := newService(t, probe, tld.Extended())

	res := svc.CheckDomains(context.Background(), []string{"www.example.co.uk", "example.com"})
	if len(res.Successful) != 2 {
		t.Fatalf("unexpected batch result %+v", res)
	}
	first, second := res.Successful[0], res.Successful[1]
	if first.Domain != "www.example.co.uk" || first.BaseDomain != "www.example" || first.TLD != ".co.uk" {
		t.Fatalf("expected www.example + .co.uk, got %+v", first)
	}
	if second.BaseDomain != "example" || second.TLD != ".com" {
		t.Fatalf("expected example + .com, got %+v", second)
	}
}
