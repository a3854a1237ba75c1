package checker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/berckan/tldscout/internal/models"
)

// Probe checks one fully qualified domain with one technique. Transient
// failures are retried internally; the returned result is always terminal.
type Probe interface {
	CheckDomain(ctx context.Context, domain string) models.DomainResult
	Method() models.CheckMethod
}

// ProbeError is a classified probe failure.
type ProbeError struct {
	Message   string
	Transient bool
	Err       error
}

func (e *ProbeError) Error() string   { return e.Message }
func (e *ProbeError) Unwrap() error   { return e.Err }
func (e *ProbeError) Retryable() bool { return e.Transient }

// NewStrategy picks the probe used for every domain of a request.
func NewStrategy(method models.CheckMethod, dns, whois Probe, logger *slog.Logger) (Probe, error) {
	switch method {
	case models.MethodDNS:
		return dns, nil
	case models.MethodWhois:
		return whois, nil
	case models.MethodHybrid, "":
		return NewHybridProbe(dns, whois, logger), nil
	default:
		return nil, fmt.Errorf("unknown check method %q", method)
	}
}

func componentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", component)
}
