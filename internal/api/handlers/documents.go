package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/snapledger/reconcile/internal/extract"
	"github.com/snapledger/reconcile/internal/inbox"
	"github.com/snapledger/reconcile/internal/models"
	"github.com/snapledger/reconcile/internal/queue"
	"github.com/snapledger/reconcile/internal/tenant"
)

const maxUploadSize = 20 << 20 // 20 MB

type DocumentHandler struct {
	inbox   *inbox.Service
	extract *extract.Service
	queue   *queue.Client
}

func NewDocumentHandler(inboxSvc *inbox.Service, extractSvc *extract.Service, q *queue.Client) *DocumentHandler {
	return &DocumentHandler{inbox: inboxSvc, extract: extractSvc, queue: q}
}

type createDocumentRequest struct {
	DisplayName  string `json:"display_name"`
	RawText      string `json:"raw_text"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	DocDate      string `json:"doc_date"`
	Description  string `json:"description"`
	Counterparty string `json:"counterparty"`
}

// Create accepts either a multipart file upload (PDF or plain text) or a
// JSON body with pre-extracted fields. Either way the document is stored
// and the extraction pipeline kicks off asynchronously.
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")

	var req inbox.CreateRequest
	var err error
	if strings.HasPrefix(contentType, "multipart/form-data") {
		req, err = h.parseUpload(r)
	} else {
		req, err = parseCreateJSON(r)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.inbox.Create(r.Context(), req)
	if err != nil {
		slog.Error("create document failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create document")
		return
	}

	if err := h.queue.EnqueueDocumentExtract(doc.TenantID, doc.ID); err != nil {
		slog.Error("enqueue extraction failed", "document_id", doc.ID, "error", err)
	}

	writeJSON(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) parseUpload(r *http.Request) (inbox.CreateRequest, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return inbox.CreateRequest{}, errors.New("invalid multipart form")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return inbox.CreateRequest{}, errors.New("missing file field")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		return inbox.CreateRequest{}, errors.New("failed to read file")
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
	text, err := h.extract.Text(data, ext)
	if err != nil {
		return inbox.CreateRequest{}, errors.New("unsupported or unreadable file: " + err.Error())
	}

	displayName := r.FormValue("display_name")
	if displayName == "" {
		displayName = header.Filename
	}

	return inbox.CreateRequest{
		DisplayName: displayName,
		RawText:     text,
	}, nil
}

func parseCreateJSON(r *http.Request) (inbox.CreateRequest, error) {
	var body createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return inbox.CreateRequest{}, errors.New("invalid request body")
	}
	if body.DisplayName == "" && body.RawText == "" {
		return inbox.CreateRequest{}, errors.New("display_name or raw_text is required")
	}

	req := inbox.CreateRequest{
		DisplayName:  body.DisplayName,
		RawText:      body.RawText,
		Description:  body.Description,
		Counterparty: body.Counterparty,
	}

	if body.Amount != "" {
		amt, err := decimal.NewFromString(body.Amount)
		if err != nil {
			return inbox.CreateRequest{}, errors.New("invalid amount")
		}
		req.Amount = &amt
	}
	if body.Currency != "" {
		cur := strings.ToUpper(body.Currency)
		req.Currency = &cur
	}
	if body.DocDate != "" {
		d, err := time.Parse("2006-01-02", body.DocDate)
		if err != nil {
			return inbox.CreateRequest{}, errors.New("invalid doc_date, expected YYYY-MM-DD")
		}
		req.DocDate = &d
	}

	return req, nil
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	doc, err := h.inbox.Get(r.Context(), tenant.IDFromContext(r.Context()), id)
	if errors.Is(err, inbox.ErrNotFound) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		slog.Error("get document failed", "document_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get document")
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	status := r.URL.Query().Get("status")

	docs, err := h.inbox.List(r.Context(), status, limit, offset)
	if err != nil {
		slog.Error("list documents failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"limit":     limit,
		"offset":    offset,
	})
}

// Process requests a (re)scoring run for the document. The run itself
// happens on the worker; this only enqueues.
func (h *DocumentHandler) Process(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	tenantID := tenant.IDFromContext(r.Context())
	doc, err := h.inbox.Get(r.Context(), tenantID, id)
	if errors.Is(err, inbox.ErrNotFound) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get document")
		return
	}

	switch doc.Status {
	case models.DocStatusDone, models.DocStatusArchived, models.DocStatusDeleted:
		writeError(w, http.StatusConflict, "document is already resolved")
		return
	}

	if err := h.queue.EnqueueMatchScore(tenantID, id); err != nil {
		slog.Error("enqueue scoring failed", "document_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to enqueue scoring")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
