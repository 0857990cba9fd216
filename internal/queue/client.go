package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/snapledger/reconcile/internal/config"
)

type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) EnqueueDocumentExtract(tenantID, documentID uuid.UUID) error {
	return c.enqueue(TypeDocumentExtract, DocumentExtractPayload{
		DocumentID: documentID.String(),
		TenantID:   tenantID.String(),
	}, asynq.MaxRetry(3), asynq.Timeout(5*time.Minute))
}

func (c *Client) EnqueueEmbeddingGenerate(tenantID uuid.UUID, ownerType string, ownerID uuid.UUID) error {
	return c.enqueue(TypeEmbeddingGenerate, EmbeddingGeneratePayload{
		OwnerType: ownerType,
		OwnerID:   ownerID.String(),
		TenantID:  tenantID.String(),
	}, asynq.MaxRetry(5), asynq.Timeout(2*time.Minute))
}

func (c *Client) EnqueueMatchScore(tenantID, documentID uuid.UUID) error {
	return c.enqueue(TypeMatchScore, MatchScorePayload{
		DocumentID: documentID.String(),
		TenantID:   tenantID.String(),
	}, asynq.MaxRetry(5), asynq.Timeout(2*time.Minute))
}

func (c *Client) EnqueueSuggestionExpire(olderThan time.Time) error {
	return c.enqueue(TypeSuggestionExpire, SuggestionExpirePayload{
		OlderThan: olderThan.Format(time.RFC3339),
	}, asynq.MaxRetry(1), asynq.Timeout(time.Minute))
}

func (c *Client) enqueue(taskType string, payload interface{}, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	_, err = c.client.Enqueue(task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
