package extract

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/snapledger/reconcile/internal/config"
	"github.com/snapledger/reconcile/pkg/textextract"
)

// FieldParser turns raw document text into structured fields. It is a
// fallible external call; partial results are expected and fine.
type FieldParser interface {
	Parse(ctx context.Context, text string) (Fields, error)
	Name() string
}

type Service struct {
	parser  FieldParser
	timeout time.Duration
}

func NewService(cfg config.ExtractConfig) (*Service, error) {
	var parser FieldParser
	switch cfg.Provider {
	case "openai", "":
		parser = NewOpenAIParser(cfg.OpenAIKey, cfg.Model)
	case "anthropic":
		parser = NewAnthropicParser(cfg.AnthropicKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown extract provider %q", cfg.Provider)
	}
	return &Service{parser: parser, timeout: cfg.Timeout}, nil
}

// Text extracts plain text from an uploaded file.
func (s *Service) Text(data []byte, fileType string) (string, error) {
	result, err := textextract.Extract(bytes.NewReader(data), int64(len(data)), fileType)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return result.Content, nil
}

// ParseFields runs the configured LLM parser over the text.
func (s *Service) ParseFields(ctx context.Context, text string) (Fields, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.parser.Parse(ctx, text)
}
