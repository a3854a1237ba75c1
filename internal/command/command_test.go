package command

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/berckan/tldscout/internal/models"
	"github.com/berckan/tldscout/internal/tld"
)

// stubProbe returns the scripted statuses in order, repeating the last.
type stubProbe struct {
	statuses []models.DomainStatus
	retries  int // reported by every result, as the strategy's own retries
	calls    atomic.Int32
	started  chan struct{}
	release  chan struct{}
}

func (s *stubProbe) Method() models.CheckMethod { return models.MethodHybrid }

func (s *stubProbe) CheckDomain(_ context.Context, domain string) models.DomainResult {
	n := int(s.calls.Add(1)) - 1
	if s.started != nil {
		close(s.started)
		<-s.release
	}
	status := s.statuses[min(n, len(s.statuses)-1)]
	r := models.NewResult(domain, models.MethodHybrid)
	msg := ""
	if status == models.StatusError {
		msg = "DNS query timed out"
	}
	r.Resolve(status, msg)
	r.RetryCount = s.retries
	return r
}

func noDelay(maxRetries int) models.RetryConfig {
	return models.RetryConfig{MaxRetries: maxRetries, InitialDelayMs: 1}
}

func TestExecuteWithRetrySuccess(t *testing.T) {
	t.Parallel()

	probe := &stubProbe{statuses: []models.DomainStatus{models.StatusAvailable}}
	cmd := New("Test123.com", probe, nil, noDelay(2), nil)
	if cmd.Status() != StatePending || cmd.ID() == "" {
		t.Fatalf("new command should be pending with an id")
	}

	res, err := cmd.ExecuteWithRetry(context.Background())
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if res.Status != models.StatusAvailable || res.BaseDomain != "test123" || res.TLD != ".com" {
		t.Fatalf("unexpected result %+v", res)
	}
	if cmd.Status() != StateCompleted || cmd.Result().Status != models.StatusAvailable {
		t.Fatalf("expected completed command, got %s", cmd.Status())
	}
	if res.RetryCount != 0 || probe.calls.Load() != 1 {
		t.Fatalf("unexpected retry accounting: %d retries, %d calls", res.RetryCount, probe.calls.Load())
	}
}

func TestExecuteWithRetryCountInvariant(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 4} {
		probe := &stubProbe{statuses: []models.DomainStatus{models.StatusError}}
		cmd := New("flaky.io", probe, nil, noDelay(n), nil)

		res, err := cmd.ExecuteWithRetry(context.Background())
		if err != nil {
			t.Fatalf("exhausted retries must not surface an error, got %v", err)
		}
		if got := int(probe.calls.Load()); got != n+1 {
			t.Fatalf("maxRetries=%d: expected %d attempts, got %d", n, n+1, got)
		}
		if res.RetryCount != n {
			t.Fatalf("maxRetries=%d: expected retryCount %d, got %d", n, n, res.RetryCount)
		}
		if res.Status != models.StatusError || res.Error == "" {
			t.Fatalf("expected terminal error result, got %+v", res)
		}
		if cmd.Status() != StateFailed {
			t.Fatalf("expected failed state, got %s", cmd.Status())
		}
	}
}

func TestRetryCountExcludesStrategyRetries(t *testing.T) {
	t.Parallel()

	failing := &stubProbe{statuses: []models.DomainStatus{models.StatusError}, retries: 2}
	res, err := New("servfail.com", failing, nil, noDelay(1), nil).ExecuteWithRetry(context.Background())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if failing.calls.Load() != 2 || res.RetryCount != 1 {
		t.Fatalf("expected 2 attempts and retryCount 1, got %d attempts and retryCount %d", failing.calls.Load(), res.RetryCount)
	}

	ok := &stubProbe{statuses: []models.DomainStatus{models.StatusTaken}, retries: 3}
	res, err = New("steady.com", ok, nil, noDelay(2), nil).ExecuteWithRetry(context.Background())
	if err != nil || res.RetryCount != 0 {
		t.Fatalf("first-attempt success should report no retries, got %d (%v)", res.RetryCount, err)
	}
}

func TestExecuteWithRetryRecovers(t *testing.T) {
	t.Parallel()

	probe := &stubProbe{statuses: []models.DomainStatus{models.StatusError, models.StatusTaken}}
	res, err := New("comeback.dev", probe, nil, noDelay(3), nil).ExecuteWithRetry(context.Background())
	if err != nil || res.Status != models.StatusTaken || res.RetryCount != 1 {
		t.Fatalf("expected taken after one retry, got %+v (%v)", res, err)
	}
}

func TestExecuteWithRetryBackoff(t *testing.T) {
	t.Parallel()

	probe := &stubProbe{statuses: []models.DomainStatus{models.StatusError}}
	cfg := models.RetryConfig{
		MaxRetries:            2,
		InitialDelayMs:        50,
		UseExponentialBackoff: true,
		MaxDelayMs:            1000,
		BackoffMultiplier:     2,
	}

	start := time.Now()
	if _, err := New("slow.com", probe, nil, cfg, nil).ExecuteWithRetry(context.Background()); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Fatalf("expected at least 150ms of backoff, got %s", elapsed)
	}
}

func TestValidationFailureIsNotRetried(t *testing.T) {
	t.Parallel()

	probe := &stubProbe{statuses: []models.DomainStatus{models.StatusAvailable}}
	cmd := New("bad@domain.com", probe, nil, noDelay(5), nil)

	res, err := cmd.ExecuteWithRetry(context.Background())
	var ve *ValidationError
	if !errors.As(err, &ve) || !errors.Is(err, tld.ErrInvalidDomain) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if probe.calls.Load() != 0 {
		t.Fatalf("strategy must not run for an invalid domain")
	}
	if res.Status != models.StatusError || res.RetryCount != 0 {
		t.Fatalf("expected error result without retries, got %+v", res)
	}
	if cmd.Status() != StateFailed {
		t.Fatalf("expected failed state, got %s", cmd.Status())
	}
}

func TestExecuteSingleAttempt(t *testing.T) {
	t.Parallel()

	probe := &stubProbe{statuses: []models.DomainStatus{models.StatusError}}
	cmd := New("once.com", probe, nil, noDelay(5), nil)

	res, err := cmd.Execute(context.Background())
	var ce *CheckError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CheckError, got %v", err)
	}
	if ce.Result.Domain != "once.com" || res.Status != models.StatusError {
		t.Fatalf("unexpected result %+v", res)
	}
	if probe.calls.Load() != 1 || cmd.Status() != StateFailed {
		t.Fatalf("single attempt expected: calls=%d state=%s", probe.calls.Load(), cmd.Status())
	}
	if _, err := cmd.Execute(context.Background()); !errors.Is(err, ErrNotPending) {
		t.Fatalf("re-running a finished command must fail, got %v", err)
	}
}

func TestCancelBeforeExecution(t *testing.T) {
	t.Parallel()

	probe := &stubProbe{statuses: []models.DomainStatus{models.StatusAvailable}}
	cmd := New("early.com", probe, nil, noDelay(1), nil)
	if !cmd.Cancel() {
		t.Fatalf("pending command should be cancellable")
	}
	if _, err := cmd.ExecuteWithRetry(context.Background()); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if probe.calls.Load() != 0 || cmd.Status() != StateCancelled {
		t.Fatalf("cancelled command must not run")
	}
}

func TestCancelDuringExecutionDiscardsResult(t *testing.T) {
	t.Parallel()

	probe := &stubProbe{
		statuses: []models.DomainStatus{models.StatusAvailable},
		started:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	cmd := New("inflight.com", probe, nil, noDelay(1), nil)

	done := make(chan error, 1)
	go func() {
		_, err := cmd.ExecuteWithRetry(context.Background())
		done <- err
	}()

	<-probe.started
	if cmd.Status() != StateExecuting {
		t.Fatalf("expected executing, got %s", cmd.Status())
	}
	cmd.Cancel()
	close(probe.release)

	if err := <-done; !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if cmd.Status() != StateCancelled {
		t.Fatalf("cancelled state must be terminal, got %s", cmd.Status())
	}
	if cmd.Result().Status != "" {
		t.Fatalf("cancelled command must not accept a result")
	}
}

func TestCancelAfterCompletion(t *testing.T) {
	t.Parallel()

	probe := &stubProbe{statuses: []models.DomainStatus{models.StatusTaken}}
	cmd := New("done.com", probe, nil, noDelay(0), nil)
	if _, err := cmd.ExecuteWithRetry(context.Background()); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if cmd.Cancel() {
		t.Fatalf("completed command must not be cancellable")
	}
	if cmd.Status() != StateCompleted {
		t.Fatalf("expected completed, got %s", cmd.Status())
	}
}

func TestUpdateRetryConfigOnlyWhilePending(t *testing.T) {
	t.Parallel()

	probe := &stubProbe{statuses: []models.DomainStatus{models.StatusTaken}}
	cmd := New("cfg.com", probe, nil, noDelay(0), nil)

	if err := cmd.UpdateRetryConfig(noDelay(3)); err != nil {
		t.Fatalf("pending update failed: %v", err)
	}
	if cmd.RetryConfig().MaxRetries != 3 {
		t.Fatalf("update not applied")
	}
	if _, err := cmd.ExecuteWithRetry(context.Background()); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := cmd.UpdateRetryConfig(noDelay(9)); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}
}

func TestRegistryDecidesBaseAndTLD(t *testing.T) {
	t.Parallel()

	cases := []struct {
		domain   string
		registry *tld.Registry
		base     string
		suffix   string
	}{
		{"www.example.co.uk", tld.Extended(), "www.example", ".co.uk"},
		{"shop.example.com", tld.Default(), "shop.example", ".com"},
		{"www.example.co.uk", nil, "www", ".example.co.uk"},
		{"www.example.zz", tld.Default(), "www", ".example.zz"},
	}
	for _, tc := range cases {
		probe := &stubProbe{statuses: []models.DomainStatus{models.StatusTaken}}
		res, err := New(tc.domain, probe, tc.registry, noDelay(0), nil).ExecuteWithRetry(context.Background())
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.domain, err)
		}
		if res.BaseDomain != tc.base || res.TLD != tc.suffix {
			t.Fatalf("%s: expected %q + %q, got %q + %q", tc.domain, tc.base, tc.suffix, res.BaseDomain, res.TLD)
		}
		if res.Domain != tc.domain {
			t.Fatalf("%s: checked %q instead", tc.domain, res.Domain)
		}
	}
}
