package queue

const (
	TypeDocumentExtract   = "document:extract"
	TypeEmbeddingGenerate = "embedding:generate"
	TypeMatchScore        = "match:score"
	TypeSuggestionExpire  = "suggestion:expire"
)

type DocumentExtractPayload struct {
	DocumentID string `json:"document_id"`
	TenantID   string `json:"tenant_id"`
}

type EmbeddingGeneratePayload struct {
	OwnerType string `json:"owner_type"` // "document" or "transaction"
	OwnerID   string `json:"owner_id"`
	TenantID  string `json:"tenant_id"`
}

type MatchScorePayload struct {
	DocumentID string `json:"document_id"`
	TenantID   string `json:"tenant_id"`
}

type SuggestionExpirePayload struct {
	OlderThan string `json:"older_than"` // RFC3339
}
