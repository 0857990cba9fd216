package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/snapledger/reconcile/internal/models"
	"github.com/snapledger/reconcile/internal/reconcile"
	"github.com/snapledger/reconcile/internal/suggestion"
	"github.com/snapledger/reconcile/internal/tenant"
)

type SuggestionHandler struct {
	store       *suggestion.Store
	coordinator *reconcile.Coordinator
}

func NewSuggestionHandler(store *suggestion.Store, coordinator *reconcile.Coordinator) *SuggestionHandler {
	return &SuggestionHandler{store: store, coordinator: coordinator}
}

func (h *SuggestionHandler) ListForDocument(w http.ResponseWriter, r *http.Request) {
	documentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	suggestions, err := h.store.ListForDocument(r.Context(), tenant.IDFromContext(r.Context()), documentID)
	if err != nil {
		slog.Error("list suggestions failed", "document_id", documentID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list suggestions")
		return
	}
	if suggestions == nil {
		suggestions = []models.MatchSuggestion{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"suggestions": suggestions})
}

type confirmRequest struct {
	TransactionID string `json:"transaction_id"`
}

// Confirm links the document to the given transaction. Exactly one confirm
// wins per document; a second attempt gets 409.
func (h *SuggestionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	documentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	var body confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	transactionID, err := uuid.Parse(body.TransactionID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction_id")
		return
	}

	err = h.coordinator.Confirm(r.Context(), tenant.IDFromContext(r.Context()), documentID, transactionID, actorID(r))
	if h.writeDecisionError(w, err, documentID) {
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}

// Decline rejects one suggestion. The document stays open and its other
// suggestions are untouched.
func (h *SuggestionHandler) Decline(w http.ResponseWriter, r *http.Request) {
	documentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}
	suggestionID, err := uuid.Parse(chi.URLParam(r, "suggestionID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid suggestion id")
		return
	}

	err = h.coordinator.Decline(r.Context(), tenant.IDFromContext(r.Context()), documentID, suggestionID, actorID(r))
	if h.writeDecisionError(w, err, documentID) {
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "declined"})
}

func (h *SuggestionHandler) writeDecisionError(w http.ResponseWriter, err error, documentID uuid.UUID) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, reconcile.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, reconcile.ErrTenantMismatch):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, reconcile.ErrAlreadyResolved):
		writeError(w, http.StatusConflict, "already resolved")
	default:
		slog.Error("reconciliation decision failed", "document_id", documentID, "error", err)
		writeError(w, http.StatusInternalServerError, "decision failed")
	}
	return true
}

func actorID(r *http.Request) *uuid.UUID {
	if u := tenant.UserFromContext(r.Context()); u != nil {
		return &u.ID
	}
	return nil
}
