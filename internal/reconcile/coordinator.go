package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/snapledger/reconcile/internal/audit"
	"github.com/snapledger/reconcile/internal/models"
)

// Coordinator applies the final reconciliation decision. Confirm and
// Decline run inside one database transaction with the affected rows
// locked, so two concurrent confirmations for the same document cannot
// both succeed: exactly one wins, the loser gets ErrAlreadyResolved.
type Coordinator struct {
	db       *pgxpool.Pool
	auditSvc *audit.Service
}

func NewCoordinator(db *pgxpool.Pool, auditSvc *audit.Service) *Coordinator {
	return &Coordinator{db: db, auditSvc: auditSvc}
}

// Confirm links the document to the transaction: the chosen suggestion
// becomes confirmed, every other suggestion for the document becomes
// unmatched, and the document advances to done.
func (c *Coordinator) Confirm(ctx context.Context, tenantID, documentID, transactionID uuid.UUID, actorID *uuid.UUID) error {
	if err := c.confirm(ctx, tenantID, documentID, transactionID, actorID); err != nil {
		return err
	}

	action := "confirm_match"
	if actorID == nil {
		action = "auto_match"
	}
	c.logAction(ctx, tenantID, actorID, action, documentID, transactionID)
	return nil
}

// AutoConfirm is the Confirm path taken by the decision policy when a
// suggestion clears the auto-match bar; recorded without a human actor.
func (c *Coordinator) AutoConfirm(ctx context.Context, tenantID, documentID, transactionID uuid.UUID) error {
	return c.Confirm(ctx, tenantID, documentID, transactionID, nil)
}

func (c *Coordinator) confirm(ctx context.Context, tenantID, documentID, transactionID uuid.UUID, actorID *uuid.UUID) error {
	tx, err := c.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var docTenant uuid.UUID
	var docStatus string
	err = tx.QueryRow(ctx,
		`SELECT tenant_id, status FROM documents WHERE id = $1 FOR UPDATE`,
		documentID,
	).Scan(&docTenant, &docStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock document: %w", err)
	}
	if docTenant != tenantID {
		return ErrTenantMismatch
	}
	if docStatus == models.DocStatusDone {
		return ErrAlreadyResolved
	}

	var suggestionID uuid.UUID
	var sgTenant uuid.UUID
	var sgStatus string
	err = tx.QueryRow(ctx,
		`SELECT id, tenant_id, status FROM match_suggestions
		 WHERE document_id = $1 AND transaction_id = $2 FOR UPDATE`,
		documentID, transactionID,
	).Scan(&suggestionID, &sgTenant, &sgStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock suggestion: %w", err)
	}
	if sgTenant != tenantID {
		return ErrTenantMismatch
	}
	if sgStatus != models.SuggestionPending {
		return ErrAlreadyResolved
	}

	if _, err := tx.Exec(ctx,
		`UPDATE match_suggestions
		 SET status = 'confirmed', resolved_by = $2, resolved_at = now(), updated_at = now()
		 WHERE id = $1`,
		suggestionID, actorID,
	); err != nil {
		return fmt.Errorf("confirm suggestion: %w", err)
	}

	// Competing suggestions are moot once the document is linked.
	if _, err := tx.Exec(ctx,
		`UPDATE match_suggestions
		 SET status = 'unmatched', updated_at = now()
		 WHERE document_id = $1 AND id <> $2 AND status = 'pending'`,
		documentID, suggestionID,
	); err != nil {
		return fmt.Errorf("supersede competing suggestions: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE documents
		 SET transaction_id = $2, status = 'done', updated_at = now()
		 WHERE id = $1`,
		documentID, transactionID,
	); err != nil {
		return fmt.Errorf("link document: %w", err)
	}

	return tx.Commit(ctx)
}

// Decline marks one suggestion declined. The document and its other
// suggestions are untouched; the document stays open for other candidates.
func (c *Coordinator) Decline(ctx context.Context, tenantID, documentID, suggestionID uuid.UUID, actorID *uuid.UUID) error {
	tx, err := c.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var sgTenant, sgDocument uuid.UUID
	var sgStatus string
	var transactionID uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT tenant_id, document_id, transaction_id, status
		 FROM match_suggestions WHERE id = $1 FOR UPDATE`,
		suggestionID,
	).Scan(&sgTenant, &sgDocument, &transactionID, &sgStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock suggestion: %w", err)
	}
	if sgTenant != tenantID {
		return ErrTenantMismatch
	}
	if sgDocument != documentID {
		return ErrNotFound
	}
	if sgStatus != models.SuggestionPending {
		return ErrAlreadyResolved
	}

	if _, err := tx.Exec(ctx,
		`UPDATE match_suggestions
		 SET status = 'declined', resolved_by = $2, resolved_at = now(), updated_at = now()
		 WHERE id = $1`,
		suggestionID, actorID,
	); err != nil {
		return fmt.Errorf("decline suggestion: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	c.logAction(ctx, tenantID, actorID, "decline_match", documentID, transactionID)
	return nil
}

func (c *Coordinator) logAction(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, action string, documentID, transactionID uuid.UUID) {
	if c.auditSvc == nil {
		return
	}
	err := c.auditSvc.Log(ctx, audit.LogEntry{
		TenantID:     tenantID,
		ActorID:      actorID,
		Action:       action,
		ResourceType: "document",
		ResourceID:   &documentID,
		Details:      map[string]interface{}{"transaction_id": transactionID.String()},
	})
	if err != nil {
		slog.Warn("audit log failed", "action", action, "document_id", documentID, "error", err)
	}
}
