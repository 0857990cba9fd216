package workers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/snapledger/reconcile/internal/extract"
	"github.com/snapledger/reconcile/internal/models"
	"github.com/snapledger/reconcile/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDocStore struct {
	doc      *models.Document
	statuses []string
	applied  *extract.Fields
}

func (f *fakeDocStore) Get(_ context.Context, tenantID, documentID uuid.UUID) (*models.Document, error) {
	if f.doc == nil || f.doc.ID != documentID || f.doc.TenantID != tenantID {
		return nil, errors.New("document not found")
	}
	cp := *f.doc
	return &cp, nil
}

func (f *fakeDocStore) SetStatus(_ context.Context, _ uuid.UUID, status string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeDocStore) ApplyExtraction(_ context.Context, _ uuid.UUID, fields extract.Fields) error {
	f.applied = &fields
	return nil
}

type fakeParser struct {
	fields extract.Fields
	err    error
	calls  int
}

func (f *fakeParser) ParseFields(_ context.Context, _ string) (extract.Fields, error) {
	f.calls++
	return f.fields, f.err
}

type fakeEmbedEnqueuer struct {
	owners []string
}

func (f *fakeEmbedEnqueuer) EnqueueEmbeddingGenerate(_ uuid.UUID, ownerType string, _ uuid.UUID) error {
	f.owners = append(f.owners, ownerType)
	return nil
}

func extractTask(t *testing.T, tenantID, docID uuid.UUID) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(queue.DocumentExtractPayload{
		DocumentID: docID.String(),
		TenantID:   tenantID.String(),
	})
	require.NoError(t, err)
	return asynq.NewTask(queue.TypeDocumentExtract, data)
}

func TestExtractWorkerAppliesFieldsAndParksDocumentPending(t *testing.T) {
	tenantID, docID := uuid.New(), uuid.New()
	amt := decimal.RequireFromString("129.90")

	store := &fakeDocStore{doc: &models.Document{
		ID: docID, TenantID: tenantID, Status: models.DocStatusNew,
		RawText: "INVOICE\nACME GmbH\nTotal 129.90 EUR",
	}}
	parser := &fakeParser{fields: extract.Fields{DisplayName: "Invoice", Amount: &amt}}
	enq := &fakeEmbedEnqueuer{}

	w := NewExtractWorker(store, parser, enq)
	err := w.ProcessTask(context.Background(), extractTask(t, tenantID, docID))
	require.NoError(t, err)

	assert.Equal(t, []string{models.DocStatusProcessing, models.DocStatusPending}, store.statuses)
	require.NotNil(t, store.applied)
	assert.Equal(t, "Invoice", store.applied.DisplayName)
	assert.Equal(t, []string{"document"}, enq.owners)
}

func TestExtractWorkerToleratesParserFailure(t *testing.T) {
	tenantID, docID := uuid.New(), uuid.New()

	store := &fakeDocStore{doc: &models.Document{
		ID: docID, TenantID: tenantID, Status: models.DocStatusNew,
		RawText: "unreadable scan",
	}}
	parser := &fakeParser{err: errors.New("provider unavailable")}
	enq := &fakeEmbedEnqueuer{}

	// A failed parse is a degraded run, not a task failure: the document
	// still reaches pending and embedding is still scheduled.
	w := NewExtractWorker(store, parser, enq)
	err := w.ProcessTask(context.Background(), extractTask(t, tenantID, docID))
	require.NoError(t, err)

	assert.Nil(t, store.applied)
	assert.Equal(t, []string{models.DocStatusProcessing, models.DocStatusPending}, store.statuses)
	assert.Len(t, enq.owners, 1)
}

func TestExtractWorkerSkipsParserWithoutText(t *testing.T) {
	tenantID, docID := uuid.New(), uuid.New()

	store := &fakeDocStore{doc: &models.Document{
		ID: docID, TenantID: tenantID, Status: models.DocStatusNew,
	}}
	parser := &fakeParser{}
	enq := &fakeEmbedEnqueuer{}

	w := NewExtractWorker(store, parser, enq)
	err := w.ProcessTask(context.Background(), extractTask(t, tenantID, docID))
	require.NoError(t, err)

	assert.Zero(t, parser.calls)
	assert.Equal(t, []string{models.DocStatusProcessing, models.DocStatusPending}, store.statuses)
	assert.Len(t, enq.owners, 1)
}

func TestExtractWorkerRejectsMalformedPayload(t *testing.T) {
	w := NewExtractWorker(&fakeDocStore{}, &fakeParser{}, &fakeEmbedEnqueuer{})

	err := w.ProcessTask(context.Background(), asynq.NewTask(queue.TypeDocumentExtract, []byte("not json")))
	assert.Error(t, err)
}
