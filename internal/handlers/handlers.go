package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/berckan/tldscout/internal/models"
	"github.com/berckan/tldscout/internal/tld"
)

// MaxBulkDomains caps a single bulk request.
const MaxBulkDomains = 50

// Checker is the lookup surface the HTTP adapter needs.
type Checker interface {
	Check(ctx context.Context, req models.CheckRequest) (models.CheckResponse, error)
	CheckDomains(ctx context.Context, domains []string) models.BatchResult
}

// Handler serves the JSON API.
type Handler struct {
	checker Checker
}

// NewHandler creates a handler answering requests through checker.
func NewHandler(checker Checker) *Handler {
	return &Handler{checker: checker}
}

// NewRouter registers the API routes and middleware stack.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)

	r.Route("/api", func(r chi.Router) {
		r.Post("/check", handler.checkDomain)
		r.Post("/check-bulk", handler.checkBulk)
	})
	return r
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// checkDomain checks one base name across the requested TLDs.
func (h *Handler) checkDomain(w http.ResponseWriter, r *http.Request) {
	var req models.CheckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	if strings.TrimSpace(req.BaseDomain) == "" {
		logOperationError(r.Context(), "check_domain", http.StatusBadRequest, "INVALID_INPUT", "baseDomain is required", nil)
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "baseDomain is required")
		return
	}

	resp, err := h.checker.Check(r.Context(), req)
	if err != nil {
		status, code, msg := mapError(err)
		logOperationError(r.Context(), "check_domain", status, code, msg, err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type bulkRequest struct {
	Domains []string `json:"domains"`
}

// checkBulk checks a list of fully qualified domains. Bare names get ".com".
func (h *Handler) checkBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}

	var domains []string
	for _, d := range req.Domains {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if !strings.Contains(d, ".") {
			d += ".com"
		}
		domains = append(domains, d)
	}
	if len(domains) == 0 {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "no domains provided")
		return
	}
	if len(domains) > MaxBulkDomains {
		domains = domains[:MaxBulkDomains]
	}

	writeJSON(w, http.StatusOK, h.checker.CheckDomains(r.Context(), domains))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return errors.New("request body must be valid JSON")
	}
	return nil
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, tld.ErrInvalidInput), errors.Is(err, tld.ErrInvalidDomain):
		return http.StatusBadRequest, "INVALID_INPUT", err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "CANCELLED", "request cancelled"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}
