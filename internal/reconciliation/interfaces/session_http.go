package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"recon-cloud/internal/audit"
	"recon-cloud/internal/auth"
	"recon-cloud/internal/reconciliation/application"
	recon "recon-cloud/internal/reconciliation/domain"
)

// SessionHandler handles reconciliation session APIs.
type SessionHandler struct {
	service        *application.WorkflowService
	auditLogger    audit.Logger
	maxUploadBytes int64
}

// NewSessionHandler constructs a handler.
func NewSessionHandler(service *application.WorkflowService, auditLogger audit.Logger, maxUploadBytes int64) (*SessionHandler, error) {
	if service == nil {
		return nil, errors.New("session handler: nil service")
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 8 << 20
	}
	return &SessionHandler{service: service, auditLogger: auditLogger, maxUploadBytes: maxUploadBytes}, nil
}

// ServeHTTP handles routes under /api/v1/reconciliations.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/api/v1/reconciliations" {
		switch r.Method {
		case http.MethodPost:
			h.handleCreate(w, r)
		case http.MethodGet:
			h.handleList(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}
	if strings.HasPrefix(path, "/api/v1/reconciliations/") {
		rest := strings.TrimPrefix(path, "/api/v1/reconciliations/")
		h.handleByID(w, r, rest)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	tenantID := auth.TenantIDFromContext(r.Context())
	view, err := h.service.CreateSession(r.Context(), tenantID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(view)
	h.logAudit(r, view.ID, "reconciliation.create", nil)
}

func (h *SessionHandler) handleList(w http.ResponseWriter, r *http.Request) {
	tenantID := auth.TenantIDFromContext(r.Context())
	views := h.service.List(tenantID)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(views)
}

func (h *SessionHandler) handleByID(w http.ResponseWriter, r *http.Request, rest string) {
	if rest == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]

	if err := h.ensureOwnership(r, id); err != nil {
		respondServiceError(w, err)
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, r, id)
		case http.MethodDelete:
			h.handleAbandon(w, r, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}
	if len(parts) == 2 {
		switch parts[1] {
		case "import":
			if r.Method == http.MethodPost {
				h.handleImport(w, r, id)
				return
			}
		case "match":
			if r.Method == http.MethodPost {
				h.handleMatch(w, r, id)
				return
			}
		case "stage":
			if r.Method == http.MethodPost {
				h.handleStage(w, r, id)
				return
			}
		case "confirmation":
			if r.Method == http.MethodPatch {
				h.handleConfirmation(w, r, id)
				return
			}
		case "submit":
			if r.Method == http.MethodPost {
				h.handleSubmit(w, r, id)
				return
			}
		}
	}
	if len(parts) == 3 && parts[1] == "decisions" && r.Method == http.MethodPatch {
		h.handleDecision(w, r, id, parts[2])
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *SessionHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	view, err := h.service.View(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(view)
}

func (h *SessionHandler) handleImport(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		FileName string `json:"file_name"`
		Content  []byte `json:"content"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxUploadBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if len(req.Content) == 0 {
		http.Error(w, "empty statement file", http.StatusBadRequest)
		return
	}
	upload := recon.StatementUpload{FileName: req.FileName, Content: req.Content}
	if err := h.service.Import(r.Context(), id, upload); err != nil {
		respondServiceError(w, err)
		return
	}
	view, err := h.service.View(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(view)
	h.logAudit(r, id, "reconciliation.import", map[string]any{
		"file_name": req.FileName,
		"bytes":     len(req.Content),
	})
}

func (h *SessionHandler) handleMatch(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.service.Match(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	view, err := h.service.View(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(view)
	h.logAudit(r, id, "reconciliation.match", map[string]any{
		"matched":   view.Match.Matched,
		"unmatched": view.Match.Unmatched,
	})
}

func (h *SessionHandler) handleStage(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Action string `json:"action"`
		Stage  string `json:"stage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	var (
		view application.SessionView
		err  error
	)
	switch req.Action {
	case "advance":
		view, err = h.service.Advance(id)
	case "retreat":
		view, err = h.service.Retreat(id)
	case "jump":
		var stage recon.Stage
		stage, err = recon.ParseStage(req.Stage)
		if err == nil {
			view, err = h.service.JumpTo(id, stage)
		}
	default:
		http.Error(w, "unknown stage action", http.StatusBadRequest)
		return
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(view)
	h.logAudit(r, id, "reconciliation.stage", map[string]any{
		"action": req.Action,
		"stage":  view.Stage,
	})
}

func (h *SessionHandler) handleDecision(w http.ResponseWriter, r *http.Request, id, operationID string) {
	var req struct {
		Include       *bool   `json:"include"`
		TransactionID *string `json:"transaction_id"`
		Notes         *string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	update := application.DecisionUpdate{
		Include:       req.Include,
		TransactionID: req.TransactionID,
		Notes:         req.Notes,
	}
	view, err := h.service.UpdateDecision(id, operationID, update)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(view)
	h.logAudit(r, id, "reconciliation.decision", map[string]any{
		"operation_id": operationID,
	})
}

func (h *SessionHandler) handleConfirmation(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Acknowledged *bool   `json:"acknowledged"`
		Comments     *string `json:"comments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	update := application.ConfirmationUpdate{
		Acknowledged: req.Acknowledged,
		Comments:     req.Comments,
	}
	view, err := h.service.SetConfirmation(id, update)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(view)
}

func (h *SessionHandler) handleSubmit(w http.ResponseWriter, r *http.Request, id string) {
	result, err := h.service.Submit(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if result == nil {
		// A submission is already in flight.
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "pending"})
		return
	}
	_ = json.NewEncoder(w).Encode(result)
	h.logAudit(r, id, "reconciliation.submit", map[string]any{
		"result_id": result.ID,
	})
}

func (h *SessionHandler) handleAbandon(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.service.Abandon(id); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	h.logAudit(r, id, "reconciliation.abandon", nil)
}

func (h *SessionHandler) ensureOwnership(r *http.Request, id string) error {
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		return nil
	}
	view, err := h.service.View(id)
	if err != nil {
		return err
	}
	return auth.EnsureTenant(tenantID, view.TenantID)
}

func (h *SessionHandler) logAudit(r *http.Request, sessionID, action string, meta map[string]any) {
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
		ResourceType: "reconciliation",
		ResourceID:   sessionID,
		SessionID:    sessionID,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

func respondServiceError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, application.ErrSessionNotFound),
		errors.Is(err, recon.ErrResultNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, auth.ErrTenantMismatch):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, recon.ErrSessionClosed),
		errors.Is(err, recon.ErrStatementRequired),
		errors.Is(err, recon.ErrMatchingRequired),
		errors.Is(err, recon.ErrPendingDecisions),
		errors.Is(err, recon.ErrAcknowledgementRequired),
		errors.Is(err, recon.ErrAtInitialStage),
		errors.Is(err, recon.ErrAtFinalStage):
		http.Error(w, err.Error(), http.StatusConflict)
	case isRemoteError(err):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

func isRemoteError(err error) bool {
	var importErr *application.ImportError
	var matchErr *application.MatchError
	var subErr *application.SubmissionError
	return errors.As(err, &importErr) || errors.As(err, &matchErr) || errors.As(err, &subErr)
}
