package inbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/snapledger/reconcile/internal/extract"
	"github.com/snapledger/reconcile/internal/models"
	"github.com/snapledger/reconcile/internal/tenant"
)

var ErrNotFound = errors.New("document not found")

// Service owns inbox documents: ingested receipts and invoices waiting to
// be reconciled.
type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

type CreateRequest struct {
	DisplayName  string
	RawText      string
	Amount       *decimal.Decimal
	Currency     *string
	DocDate      *time.Time
	Description  string
	Counterparty string
}

const documentColumns = `id, tenant_id, display_name, amount, currency, doc_date,
	description, counterparty, raw_text, status, transaction_id, created_by, created_at, updated_at`

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Document, error) {
	tenantID := tenant.IDFromContext(ctx)
	user := tenant.UserFromContext(ctx)

	var userID *uuid.UUID
	if user != nil {
		userID = &user.ID
	}

	var doc models.Document
	err := s.db.QueryRow(ctx,
		`INSERT INTO documents
		   (tenant_id, display_name, amount, currency, doc_date, description, counterparty, raw_text, status, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+documentColumns,
		tenantID, req.DisplayName, req.Amount, req.Currency, req.DocDate,
		req.Description, req.Counterparty, req.RawText, models.DocStatusNew, userID,
	).Scan(scanTargets(&doc)...)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	return &doc, nil
}

func (s *Service) Get(ctx context.Context, tenantID, documentID uuid.UUID) (*models.Document, error) {
	var doc models.Document
	err := s.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1 AND tenant_id = $2`,
		documentID, tenantID,
	).Scan(scanTargets(&doc)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]models.Document, error) {
	tenantID := tenant.IDFromContext(ctx)

	query := `SELECT ` + documentColumns + ` FROM documents WHERE tenant_id = $1`
	args := []interface{}{tenantID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(scanTargets(&d)...); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *Service) SetStatus(ctx context.Context, documentID uuid.UUID, status string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE documents SET status = $1, updated_at = now() WHERE id = $2`,
		status, documentID,
	)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return nil
}

// ApplyExtraction writes the OCR/LLM-extracted fields onto the document.
// Missing fields stay as they were; extraction may fail partially and
// scoring proceeds with whatever is present.
func (s *Service) ApplyExtraction(ctx context.Context, documentID uuid.UUID, f extract.Fields) error {
	_, err := s.db.Exec(ctx,
		`UPDATE documents SET
		   display_name = COALESCE(NULLIF($2, ''), display_name),
		   amount       = COALESCE($3, amount),
		   currency     = COALESCE($4, currency),
		   doc_date     = COALESCE($5, doc_date),
		   description  = COALESCE(NULLIF($6, ''), description),
		   counterparty = COALESCE(NULLIF($7, ''), counterparty),
		   updated_at   = now()
		 WHERE id = $1`,
		documentID, f.DisplayName, f.Amount, f.Currency, f.Date, f.Description, f.Counterparty,
	)
	if err != nil {
		return fmt.Errorf("apply extraction: %w", err)
	}
	return nil
}

// ListOpenIDs returns documents of the tenant that are still eligible for
// (re)scoring, i.e. not done, archived or deleted.
func (s *Service) ListOpenIDs(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id FROM documents
		 WHERE tenant_id = $1 AND status NOT IN ('done', 'archived', 'deleted')`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list open documents: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan document id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// EmbeddingText composes the text a document's embedding is derived from.
func EmbeddingText(doc *models.Document) string {
	parts := []string{doc.DisplayName, doc.Counterparty, doc.Description}
	if doc.RawText != "" {
		parts = append(parts, truncateRunes(doc.RawText, 2000))
	}

	var nonEmpty []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, strings.TrimSpace(p))
		}
	}
	return strings.Join(nonEmpty, "\n")
}

// truncateRunes cuts s to at most max bytes without splitting a UTF-8
// rune; the stored source text must stay valid UTF-8.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func scanTargets(d *models.Document) []interface{} {
	return []interface{}{
		&d.ID, &d.TenantID, &d.DisplayName, &d.Amount, &d.Currency, &d.DocDate,
		&d.Description, &d.Counterparty, &d.RawText, &d.Status, &d.TransactionID,
		&d.CreatedBy, &d.CreatedAt, &d.UpdatedAt,
	}
}
