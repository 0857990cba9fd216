package match

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/snapledger/reconcile/internal/embedding"
	"github.com/snapledger/reconcile/internal/models"
	"github.com/snapledger/reconcile/internal/reconcile"
	"github.com/snapledger/reconcile/internal/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDocs struct {
	docs     map[uuid.UUID]*models.Document
	statuses []string
}

func (f *fakeDocs) Get(_ context.Context, tenantID, documentID uuid.UUID) (*models.Document, error) {
	d, ok := f.docs[documentID]
	if !ok || d.TenantID != tenantID {
		return nil, errors.New("document not found")
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDocs) SetStatus(_ context.Context, documentID uuid.UUID, status string) error {
	f.docs[documentID].Status = status
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeDocs) ListOpenIDs(_ context.Context, tenantID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, d := range f.docs {
		if d.TenantID == tenantID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type fakeEmbeddings struct {
	records map[string]*embedding.Record
}

func embKey(ownerType string, ownerID uuid.UUID) string { return ownerType + "/" + ownerID.String() }

func (f *fakeEmbeddings) Get(_ context.Context, ownerType string, ownerID uuid.UUID) (*embedding.Record, bool, error) {
	rec, ok := f.records[embKey(ownerType, ownerID)]
	return rec, ok, nil
}

type fakeSink struct {
	upserts []models.MatchSuggestion
	kept    []uuid.UUID
}

func (f *fakeSink) Upsert(_ context.Context, s *models.MatchSuggestion) error {
	f.upserts = append(f.upserts, *s)
	return nil
}

func (f *fakeSink) DemoteMissing(_ context.Context, _ uuid.UUID, keep []uuid.UUID) error {
	f.kept = keep
	return nil
}

type fakeConfirmer struct {
	confirmed []uuid.UUID // transaction IDs, in call order
	err       error
}

func (f *fakeConfirmer) AutoConfirm(_ context.Context, _, _, transactionID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.confirmed = append(f.confirmed, transactionID)
	return nil
}

type fakeLocker struct {
	busy bool
}

func (f *fakeLocker) TryLock(_ context.Context, _ string, _ time.Duration) (bool, error) {
	return !f.busy, nil
}

func (f *fakeLocker) Unlock(_ context.Context, _ string) {}

type fakeTxnSource struct {
	txns []models.Transaction
}

func (f *fakeTxnSource) CandidatesByWindow(_ context.Context, tenantID uuid.UUID, date time.Time, currency *string, windowDays, _ int) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, t := range f.txns {
		days := date.Sub(t.BookedAt).Hours() / 24
		if days < 0 {
			days = -days
		}
		if days <= float64(windowDays) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTxnSource) GetByIDs(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]models.Transaction, error) {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []models.Transaction
	for _, t := range f.txns {
		if want[t.ID] && t.TenantID == tenantID {
			out = append(out, t)
		}
	}
	return out, nil
}

type fixture struct {
	engine    *Engine
	docs      *fakeDocs
	sink      *fakeSink
	confirmer *fakeConfirmer
	locker    *fakeLocker
	index     *vectorindex.BruteIndex
	txns      *fakeTxnSource
	emb       *fakeEmbeddings
	tenantID  uuid.UUID
}

func newFixture() *fixture {
	cfg := testMatchingConfig()
	cfg.TopK = 20
	cfg.DateWindowDays = 7
	cfg.CandidateLimit = 50

	fx := &fixture{
		docs:      &fakeDocs{docs: map[uuid.UUID]*models.Document{}},
		sink:      &fakeSink{},
		confirmer: &fakeConfirmer{},
		locker:    &fakeLocker{},
		index:     vectorindex.NewBruteIndex(),
		txns:      &fakeTxnSource{},
		emb:       &fakeEmbeddings{records: map[string]*embedding.Record{}},
		tenantID:  uuid.New(),
	}
	retriever := NewRetriever(fx.index, fx.txns, cfg)
	fx.engine = NewEngine(fx.docs, fx.emb, retriever, fx.sink, fx.confirmer, fx.locker, cfg)
	return fx
}

func (fx *fixture) addDocument(amount, currency, docDate, counterparty string, vec []float32) uuid.UUID {
	doc := docWith(amount, currency, docDate, counterparty)
	doc.ID = uuid.New()
	doc.TenantID = fx.tenantID
	doc.Status = models.DocStatusPending
	fx.docs.docs[doc.ID] = doc

	if vec != nil {
		fx.emb.records[embKey(embedding.OwnerDocument, doc.ID)] = &embedding.Record{
			OwnerType: embedding.OwnerDocument, OwnerID: doc.ID, TenantID: fx.tenantID, Vector: vec,
		}
	}
	return doc.ID
}

func (fx *fixture) addTransaction(tenantID uuid.UUID, amount, currency, bookedAt, counterparty string, vec []float32) uuid.UUID {
	txn := models.Transaction{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Amount:       decimal.RequireFromString(amount),
		Currency:     currency,
		BookedAt:     date(bookedAt),
		Counterparty: counterparty,
	}
	fx.txns.txns = append(fx.txns.txns, txn)

	if vec != nil {
		fx.emb.records[embKey(embedding.OwnerTransaction, txn.ID)] = &embedding.Record{
			OwnerType: embedding.OwnerTransaction, OwnerID: txn.ID, TenantID: tenantID, Vector: vec,
		}
		fx.index.Upsert(context.Background(), embedding.OwnerTransaction, txn.ID, tenantID, vec)
	}
	return txn.ID
}

func TestProcessDocumentAutoMatch(t *testing.T) {
	fx := newFixture()
	vec := []float32{0.6, 0.8, 0.0}

	docID := fx.addDocument("129.90", "EUR", "2026-03-01", "ACME GmbH", vec)
	txnID := fx.addTransaction(fx.tenantID, "-129.90", "EUR", "2026-03-01", "ACME GmbH", vec)

	err := fx.engine.ProcessDocument(context.Background(), fx.tenantID, docID)
	require.NoError(t, err)

	require.Len(t, fx.sink.upserts, 1)
	sg := fx.sink.upserts[0]
	assert.Equal(t, txnID, sg.TransactionID)
	assert.Equal(t, models.MatchTypeAuto, sg.MatchType)
	assert.InDelta(t, 1.0, sg.Confidence, 1e-6)

	require.Len(t, fx.confirmer.confirmed, 1)
	assert.Equal(t, txnID, fx.confirmer.confirmed[0])
}

func TestProcessDocumentOnlyLeadingSuggestionAutoMatches(t *testing.T) {
	fx := newFixture()
	vec := []float32{0.6, 0.8, 0.0}
	nearVec := []float32{0.6, 0.8, 0.1}

	docID := fx.addDocument("42.00", "EUR", "2026-03-01", "ACME GmbH", vec)
	best := fx.addTransaction(fx.tenantID, "42.00", "EUR", "2026-03-01", "ACME GmbH", vec)
	runnerUp := fx.addTransaction(fx.tenantID, "42.00", "EUR", "2026-03-01", "ACME GmbH", nearVec)

	err := fx.engine.ProcessDocument(context.Background(), fx.tenantID, docID)
	require.NoError(t, err)

	require.Len(t, fx.sink.upserts, 2)
	byTxn := map[uuid.UUID]models.MatchSuggestion{}
	for _, s := range fx.sink.upserts {
		byTxn[s.TransactionID] = s
	}

	assert.Equal(t, models.MatchTypeAuto, byTxn[best].MatchType)
	assert.Equal(t, models.MatchTypeHighConfidence, byTxn[runnerUp].MatchType)
	assert.Greater(t, byTxn[best].Confidence, byTxn[runnerUp].Confidence)

	require.Len(t, fx.confirmer.confirmed, 1)
	assert.Equal(t, best, fx.confirmer.confirmed[0])
}

func TestProcessDocumentSuggestedMatchKeepsDocumentOpen(t *testing.T) {
	fx := newFixture()

	// No embeddings: deterministic retrieval only, amount slightly off so
	// the pair cannot auto-match.
	docID := fx.addDocument("95.00", "EUR", "2026-03-01", "ACME GmbH", nil)
	txnID := fx.addTransaction(fx.tenantID, "100.00", "EUR", "2026-03-02", "ACME GmbH", nil)

	err := fx.engine.ProcessDocument(context.Background(), fx.tenantID, docID)
	require.NoError(t, err)

	require.Len(t, fx.sink.upserts, 1)
	assert.Equal(t, txnID, fx.sink.upserts[0].TransactionID)
	assert.NotEqual(t, models.MatchTypeAuto, fx.sink.upserts[0].MatchType)
	assert.Nil(t, fx.sink.upserts[0].EmbeddingScore)

	assert.Empty(t, fx.confirmer.confirmed)
	assert.Equal(t, models.DocStatusSuggestedMatch, fx.docs.docs[docID].Status)
}

func TestProcessDocumentNoCandidates(t *testing.T) {
	fx := newFixture()
	docID := fx.addDocument("95.00", "EUR", "2026-03-01", "ACME GmbH", nil)

	err := fx.engine.ProcessDocument(context.Background(), fx.tenantID, docID)
	require.NoError(t, err)

	assert.Empty(t, fx.sink.upserts)
	assert.Empty(t, fx.sink.kept)
	assert.Equal(t, models.DocStatusNoMatch, fx.docs.docs[docID].Status)
}

func TestProcessDocumentSkipsResolved(t *testing.T) {
	fx := newFixture()
	docID := fx.addDocument("95.00", "EUR", "2026-03-01", "ACME GmbH", nil)
	fx.docs.docs[docID].Status = models.DocStatusDone

	err := fx.engine.ProcessDocument(context.Background(), fx.tenantID, docID)
	require.NoError(t, err)

	assert.Empty(t, fx.docs.statuses)
	assert.Empty(t, fx.sink.upserts)
}

func TestProcessDocumentLockBusy(t *testing.T) {
	fx := newFixture()
	docID := fx.addDocument("95.00", "EUR", "2026-03-01", "ACME GmbH", nil)
	fx.locker.busy = true

	err := fx.engine.ProcessDocument(context.Background(), fx.tenantID, docID)
	assert.ErrorIs(t, err, ErrScoreInProgress)
	assert.Empty(t, fx.docs.statuses)
}

func TestProcessDocumentNeverCrossesTenants(t *testing.T) {
	fx := newFixture()
	vec := []float32{0.6, 0.8, 0.0}

	docID := fx.addDocument("42.00", "EUR", "2026-03-01", "ACME GmbH", vec)

	// Identical transaction, but it belongs to someone else. The window
	// fake deliberately ignores tenant so the engine's own gate is what
	// keeps it out.
	otherTenant := uuid.New()
	fx.addTransaction(otherTenant, "42.00", "EUR", "2026-03-01", "ACME GmbH", vec)

	err := fx.engine.ProcessDocument(context.Background(), fx.tenantID, docID)
	require.NoError(t, err)

	assert.Empty(t, fx.sink.upserts)
	assert.Empty(t, fx.confirmer.confirmed)
	assert.Equal(t, models.DocStatusNoMatch, fx.docs.docs[docID].Status)
}

func TestProcessDocumentAutoConfirmLostRace(t *testing.T) {
	fx := newFixture()
	vec := []float32{0.6, 0.8, 0.0}

	docID := fx.addDocument("129.90", "EUR", "2026-03-01", "ACME GmbH", vec)
	fx.addTransaction(fx.tenantID, "129.90", "EUR", "2026-03-01", "ACME GmbH", vec)

	// A lost confirm race is not a task failure; the document is resolved
	// either way. Same for the suggestion row disappearing under us.
	fx.confirmer.err = reconcile.ErrAlreadyResolved
	assert.NoError(t, fx.engine.ProcessDocument(context.Background(), fx.tenantID, docID))

	fx.confirmer.err = fmt.Errorf("lock suggestion: %w", reconcile.ErrNotFound)
	assert.NoError(t, fx.engine.ProcessDocument(context.Background(), fx.tenantID, docID))
}

func TestProcessDocumentAutoConfirmTransientErrorRetries(t *testing.T) {
	fx := newFixture()
	vec := []float32{0.6, 0.8, 0.0}

	docID := fx.addDocument("129.90", "EUR", "2026-03-01", "ACME GmbH", vec)
	fx.addTransaction(fx.tenantID, "129.90", "EUR", "2026-03-01", "ACME GmbH", vec)
	fx.confirmer.err = errors.New("connection refused")

	// An infrastructure failure must surface so the task is retried instead
	// of leaving the document stuck mid-scoring.
	err := fx.engine.ProcessDocument(context.Background(), fx.tenantID, docID)
	require.Error(t, err)
	assert.ErrorContains(t, err, "auto-confirm")
}

type fakeEnqueuer struct {
	enqueued []uuid.UUID
}

func (f *fakeEnqueuer) EnqueueMatchScore(_, documentID uuid.UUID) error {
	f.enqueued = append(f.enqueued, documentID)
	return nil
}

func TestRescoreTenant(t *testing.T) {
	fx := newFixture()
	fx.addDocument("10.00", "EUR", "2026-03-01", "A", nil)
	fx.addDocument("20.00", "EUR", "2026-03-02", "B", nil)

	enq := &fakeEnqueuer{}
	n, err := fx.engine.RescoreTenant(context.Background(), fx.tenantID, enq)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, enq.enqueued, 2)
}
