package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"recon-cloud/internal/audit"
	"recon-cloud/internal/auth"
	"recon-cloud/internal/observability/metrics"
	recon "recon-cloud/internal/reconciliation/domain"
)

// ResultStore reads archived reconciliation results.
type ResultStore interface {
	GetByID(ctx context.Context, id string) (*recon.ReconciliationResult, error)
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]recon.ReconciliationResult, error)
}

// ResultHandler handles archived result APIs.
type ResultHandler struct {
	store       ResultStore
	auditLogger audit.Logger
}

// NewResultHandler constructs a handler.
func NewResultHandler(store ResultStore, auditLogger audit.Logger) (*ResultHandler, error) {
	if store == nil {
		return nil, errors.New("result handler: nil store")
	}
	return &ResultHandler{store: store, auditLogger: auditLogger}, nil
}

// ServeHTTP handles routes under /api/v1/results.
func (h *ResultHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/api/v1/results" && r.Method == http.MethodGet {
		h.handleList(w, r)
		return
	}
	if strings.HasPrefix(path, "/api/v1/results/") {
		rest := strings.TrimPrefix(path, "/api/v1/results/")
		parts := strings.Split(rest, "/")
		id := parts[0]
		if id == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if len(parts) == 1 && r.Method == http.MethodGet {
			h.handleGet(w, r, id)
			return
		}
		if len(parts) == 2 && r.Method == http.MethodGet {
			switch parts[1] {
			case "export.xlsx":
				h.handleExportXLSX(w, r, id)
				return
			case "export.pdf":
				h.handleExportPDF(w, r, id)
				return
			}
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *ResultHandler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	tenantID := auth.TenantIDFromContext(r.Context())
	results, err := h.store.ListByTenant(r.Context(), tenantID, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if results == nil {
		results = []recon.ReconciliationResult{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(results)
}

func (h *ResultHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	result, err := h.loadOwned(r, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func (h *ResultHandler) handleExportXLSX(w http.ResponseWriter, r *http.Request, id string) {
	start := time.Now()
	outcome := metrics.ResultSuccess
	defer func() {
		metrics.ObserveExport("xlsx", outcome, time.Since(start))
	}()

	result, err := h.loadOwned(r, id)
	if err != nil {
		outcome = metrics.ResultError
		respondServiceError(w, err)
		return
	}
	data, err := BuildResultXLSX(result)
	if err != nil {
		outcome = metrics.ResultError
		http.Error(w, "export xlsx error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	h.logAudit(r, result, "result.export", map[string]any{"format": "xlsx"})
}

func (h *ResultHandler) handleExportPDF(w http.ResponseWriter, r *http.Request, id string) {
	start := time.Now()
	outcome := metrics.ResultSuccess
	defer func() {
		metrics.ObserveExport("pdf", outcome, time.Since(start))
	}()

	result, err := h.loadOwned(r, id)
	if err != nil {
		outcome = metrics.ResultError
		respondServiceError(w, err)
		return
	}
	data, err := BuildResultPDF(result)
	if err != nil {
		outcome = metrics.ResultError
		http.Error(w, "export pdf error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	h.logAudit(r, result, "result.export", map[string]any{"format": "pdf"})
}

func (h *ResultHandler) loadOwned(r *http.Request, id string) (*recon.ReconciliationResult, error) {
	result, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if err := auth.EnsureTenant(auth.TenantIDFromContext(r.Context()), result.TenantID); err != nil {
		return nil, err
	}
	return result, nil
}

func (h *ResultHandler) logAudit(r *http.Request, result *recon.ReconciliationResult, action string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		return
	}
	payload, _ := json.Marshal(meta)
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		TenantID:     tenantID,
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "result",
		ResourceID:   result.ID,
		SessionID:    result.SessionID,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
