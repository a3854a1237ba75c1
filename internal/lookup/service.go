// Package lookup is the entry point used by the HTTP adapter and the CLI. It
// turns a base name and TLD list into domains, runs them through the batch
// controller and aggregates the per-domain outcomes into one response.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/berckan/tldscout/internal/batch"
	"github.com/berckan/tldscout/internal/command"
	"github.com/berckan/tldscout/internal/models"
	"github.com/berckan/tldscout/internal/tld"
)

// Service checks names across TLDs.
type Service struct {
	registry   *tld.Registry
	controller *batch.Controller
	method     models.CheckMethod
	logger     *slog.Logger
}

// NewService creates a service constructing names from registry and
// checking them through controller.
func NewService(registry *tld.Registry, controller *batch.Controller, method models.CheckMethod, logger *slog.Logger) *Service {
	if registry == nil {
		registry = tld.Default()
	}
	if method == "" {
		method = models.MethodHybrid
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		registry:   registry,
		controller: controller,
		method:     method,
		logger:     logger.With("component", "lookup"),
	}
}

// Registry returns the TLD registry used when a request names no TLDs.
func (s *Service) Registry() *tld.Registry { return s.registry }

// CheckMultipleTLDs checks base against every TLD (or the registry's list
// when tlds is empty). It returns exactly one result per distinct TLD, in
// TLD order, none of them left in the checking state.
func (s *Service) CheckMultipleTLDs(ctx context.Context, base string, tlds []string) ([]models.DomainResult, error) {
	name, err := tld.Normalize(base)
	if err != nil {
		return nil, err
	}
	if err := tld.ValidateBaseName(name); err != nil {
		return nil, err
	}
	domains, err := s.registry.ConstructDomains(name, tlds)
	if err != nil {
		return nil, err
	}

	_, outcomes := s.controller.Run(ctx, domains)

	results := make([]models.DomainResult, len(domains))
	for i, d := range domains {
		suffix := d[len(name):]
		o, ok := outcomes[d]
		switch {
		case !ok:
			results[i] = s.errorResult(name, suffix, skipReason(ctx))
		case o.Err != nil && o.Result.Status == "":
			results[i] = s.errorResult(name, suffix, o.Err.Error())
		default:
			r := o.Result
			if !r.Status.Terminal() {
				msg := "check did not complete"
				if o.Err != nil {
					msg = o.Err.Error()
				}
				r.Resolve(models.StatusError, msg)
			}
			results[i] = r
		}
		results[i].Domain = d
		results[i].BaseDomain = name
		results[i].TLD = suffix
	}
	return results, nil
}

// CheckDomains checks fully qualified domains and returns the batch aggregate.
func (s *Service) CheckDomains(ctx context.Context, domains []string) models.BatchResult {
	return s.controller.CheckDomains(ctx, domains)
}

// Check handles a multi-TLD request and summarizes the results. Only a
// missing or malformed base name fails the whole request.
func (s *Service) Check(ctx context.Context, req models.CheckRequest) (models.CheckResponse, error) {
	start := time.Now()
	results, err := s.CheckMultipleTLDs(ctx, req.BaseDomain, req.TLDs)
	if err != nil {
		s.logger.WarnContext(ctx, "check rejected", "base_domain", req.BaseDomain, "error", err.Error())
		return models.CheckResponse{}, err
	}

	resp := models.CheckResponse{
		BaseDomain:    results[0].BaseDomain,
		Results:       results,
		ExecutionTime: time.Since(start).Milliseconds(),
		Summary:       models.Summarize(results),
	}
	s.logger.InfoContext(ctx, "check completed",
		"base_domain", resp.BaseDomain,
		"total", resp.Summary.Total,
		"available", resp.Summary.Available,
		"taken", resp.Summary.Taken,
		"errors", resp.Summary.Errors,
		"duration_ms", resp.ExecutionTime,
	)
	return resp, nil
}

func (s *Service) errorResult(base, suffix, msg string) models.DomainResult {
	r := models.NewResult(base+suffix, s.method)
	r.Resolve(models.StatusError, msg)
	return r
}

func skipReason(ctx context.Context) string {
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "check skipped: request deadline exceeded"
		}
		return fmt.Sprintf("check skipped: %v", command.ErrCancelled)
	}
	return "check skipped after an earlier failure"
}
