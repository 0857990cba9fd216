package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/snapledger/reconcile/internal/embedding"
	"github.com/snapledger/reconcile/internal/ledger"
	"github.com/snapledger/reconcile/internal/models"
	"github.com/snapledger/reconcile/internal/queue"
	"github.com/snapledger/reconcile/internal/tenant"
)

type TransactionHandler struct {
	ledger *ledger.Service
	queue  *queue.Client
}

func NewTransactionHandler(ledgerSvc *ledger.Service, q *queue.Client) *TransactionHandler {
	return &TransactionHandler{ledger: ledgerSvc, queue: q}
}

type createTransactionRequest struct {
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	BookedAt     string `json:"booked_at"`
	Counterparty string `json:"counterparty"`
	Description  string `json:"description"`
}

// Create ingests one ledger transaction and schedules its embedding so it
// becomes retrievable by the matcher.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amt, err := decimal.NewFromString(body.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	if body.Currency == "" {
		writeError(w, http.StatusBadRequest, "currency is required")
		return
	}
	bookedAt, err := time.Parse("2006-01-02", body.BookedAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booked_at, expected YYYY-MM-DD")
		return
	}

	txn, err := h.ledger.Create(r.Context(), ledger.CreateRequest{
		Amount:       amt,
		Currency:     strings.ToUpper(body.Currency),
		BookedAt:     bookedAt,
		Counterparty: body.Counterparty,
		Description:  body.Description,
	})
	if err != nil {
		slog.Error("create transaction failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create transaction")
		return
	}

	if err := h.queue.EnqueueEmbeddingGenerate(txn.TenantID, embedding.OwnerTransaction, txn.ID); err != nil {
		slog.Error("enqueue transaction embedding failed", "transaction_id", txn.ID, "error", err)
	}

	writeJSON(w, http.StatusCreated, txn)
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	txn, err := h.ledger.Get(r.Context(), tenant.IDFromContext(r.Context()), id)
	if errors.Is(err, ledger.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		slog.Error("get transaction failed", "transaction_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get transaction")
		return
	}

	writeJSON(w, http.StatusOK, txn)
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	txns, err := h.ledger.List(r.Context(), limit, offset)
	if err != nil {
		slog.Error("list transactions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	if txns == nil {
		txns = []models.Transaction{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txns,
		"limit":        limit,
		"offset":       offset,
	})
}
