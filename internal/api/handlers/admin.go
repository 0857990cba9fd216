package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/snapledger/reconcile/internal/audit"
	"github.com/snapledger/reconcile/internal/config"
	"github.com/snapledger/reconcile/internal/match"
	"github.com/snapledger/reconcile/internal/models"
	"github.com/snapledger/reconcile/internal/queue"
	"github.com/snapledger/reconcile/internal/tenant"
)

type AdminHandler struct {
	engine *match.Engine
	queue  *queue.Client
	audit  *audit.Service
	cfg    config.MatchingConfig
}

func NewAdminHandler(engine *match.Engine, q *queue.Client, auditSvc *audit.Service, cfg config.MatchingConfig) *AdminHandler {
	return &AdminHandler{engine: engine, queue: q, audit: auditSvc, cfg: cfg}
}

// Rescore enqueues a scoring run for every open document of the tenant,
// typically after tuning weights or swapping the embedding model.
func (h *AdminHandler) Rescore(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.IDFromContext(r.Context())

	n, err := h.engine.RescoreTenant(r.Context(), tenantID, h.queue)
	if err != nil {
		slog.Error("tenant rescore failed", "tenant_id", tenantID, "enqueued", n, "error", err)
		writeError(w, http.StatusInternalServerError, "rescore failed")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{"enqueued": n})
}

// ExpireSuggestions schedules the expiry sweep for pending suggestions
// older than the configured TTL.
func (h *AdminHandler) ExpireSuggestions(w http.ResponseWriter, r *http.Request) {
	olderThan := time.Now().Add(-h.cfg.SuggestionTTL)

	if err := h.queue.EnqueueSuggestionExpire(olderThan); err != nil {
		slog.Error("enqueue suggestion expiry failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to enqueue expiry")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":     "queued",
		"older_than": olderThan.Format(time.RFC3339),
	})
}

func (h *AdminHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	logs, err := h.audit.List(r.Context(), tenant.IDFromContext(r.Context()), limit, offset)
	if err != nil {
		slog.Error("list audit logs failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list audit logs")
		return
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"logs":   logs,
		"limit":  limit,
		"offset": offset,
	})
}
