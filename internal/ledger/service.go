package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/snapledger/reconcile/internal/models"
	"github.com/snapledger/reconcile/internal/tenant"
)

var ErrNotFound = errors.New("transaction not found")

// Service reads ledger transactions for the matching engine and accepts
// ingests from the accounting side. The engine never mutates a
// transaction; it only links documents to them.
type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

type CreateRequest struct {
	Amount       decimal.Decimal
	Currency     string
	BookedAt     time.Time
	Counterparty string
	Description  string
}

const transactionColumns = `id, tenant_id, amount, currency, booked_at, counterparty, description, created_at`

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Transaction, error) {
	tenantID := tenant.IDFromContext(ctx)

	var t models.Transaction
	err := s.db.QueryRow(ctx,
		`INSERT INTO transactions (tenant_id, amount, currency, booked_at, counterparty, description)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+transactionColumns,
		tenantID, req.Amount, req.Currency, req.BookedAt, req.Counterparty, req.Description,
	).Scan(scanTargets(&t)...)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return &t, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Transaction, error) {
	var t models.Transaction
	err := s.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	).Scan(scanTargets(&t)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &t, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]models.Transaction, error) {
	tenantID := tenant.IDFromContext(ctx)

	rows, err := s.db.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE tenant_id = $1 ORDER BY booked_at DESC LIMIT $2 OFFSET $3`,
		tenantID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// GetByIDs resolves ANN hits to transaction rows, tenant-scoped.
func (s *Service) GetByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]models.Transaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE tenant_id = $1 AND id = ANY($2)`,
		tenantID, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("get transactions by ids: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// CandidatesByWindow is the deterministic pre-filter: transactions of the
// tenant whose booking date falls within the window around the document
// date, currency-matched when the document currency is known.
func (s *Service) CandidatesByWindow(ctx context.Context, tenantID uuid.UUID, date time.Time, currency *string, windowDays, limit int) ([]models.Transaction, error) {
	from := date.AddDate(0, 0, -windowDays)
	to := date.AddDate(0, 0, windowDays)

	query := `SELECT ` + transactionColumns + ` FROM transactions
		 WHERE tenant_id = $1 AND booked_at BETWEEN $2 AND $3`
	args := []interface{}{tenantID, from, to}
	if currency != nil && *currency != "" {
		query += ` AND currency = $4`
		args = append(args, *currency)
	}
	query += fmt.Sprintf(` ORDER BY booked_at LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("window candidates: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// EmbeddingText composes the text a transaction's embedding is derived
// from. Empty when the transaction has no descriptive text, in which case
// no embedding is written and scoring degrades to the remaining signals.
func EmbeddingText(t *models.Transaction) string {
	var parts []string
	for _, p := range []string{t.Counterparty, t.Description} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, "\n")
}

func collect(rows pgx.Rows) ([]models.Transaction, error) {
	var txns []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(scanTargets(&t)...); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func scanTargets(t *models.Transaction) []interface{} {
	return []interface{}{
		&t.ID, &t.TenantID, &t.Amount, &t.Currency, &t.BookedAt,
		&t.Counterparty, &t.Description, &t.CreatedAt,
	}
}
