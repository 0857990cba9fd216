package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Embedding EmbeddingConfig
	Extract   ExtractConfig
	Matching  MatchingConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
}

type EmbeddingConfig struct {
	OpenAIKey string
	Model     string
	Timeout   time.Duration
}

type ExtractConfig struct {
	Provider     string // "openai" or "anthropic"
	OpenAIKey    string
	AnthropicKey string
	Model        string
	Timeout      time.Duration
}

// MatchingConfig holds the tunables of the matching engine. The per-signal
// weight split is configuration, not hard-coded business meaning; weights
// are renormalized over the signals actually present for a pair.
type MatchingConfig struct {
	TopK             int // ANN shortlist size
	DateWindowDays   int // deterministic pre-filter window
	CandidateLimit   int // hard cap on the union candidate set
	DateDecayDays    int // linear decay window for the date score
	AutoThreshold    float64
	HighThreshold    float64
	SuggestThreshold float64
	WeightEmbedding  float64
	WeightAmount     float64
	WeightCurrency   float64
	WeightDate       float64
	WeightName       float64
	SuggestionTTL    time.Duration // pending suggestions older than this expire
	ANNTimeout       time.Duration
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	embedTimeout, err := getEnvDuration("EMBEDDING_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid EMBEDDING_TIMEOUT: %w", err)
	}

	extractTimeout, err := getEnvDuration("EXTRACT_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid EXTRACT_TIMEOUT: %w", err)
	}

	matching, err := loadMatching()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        port,
			CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "*"), ","),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Embedding: EmbeddingConfig{
			OpenAIKey: getEnv("OPENAI_API_KEY", ""),
			Model:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			Timeout:   embedTimeout,
		},
		Extract: ExtractConfig{
			Provider:     getEnv("EXTRACT_PROVIDER", "openai"),
			OpenAIKey:    getEnv("OPENAI_API_KEY", ""),
			AnthropicKey: getEnv("ANTHROPIC_API_KEY", ""),
			Model:        getEnv("EXTRACT_MODEL", ""),
			Timeout:      extractTimeout,
		},
		Matching: matching,
	}

	return cfg, nil
}

func loadMatching() (MatchingConfig, error) {
	var m MatchingConfig

	var err error
	if m.SuggestionTTL, err = getEnvDuration("MATCH_SUGGESTION_TTL", 30*24*time.Hour); err != nil {
		return m, fmt.Errorf("invalid MATCH_SUGGESTION_TTL: %w", err)
	}
	if m.ANNTimeout, err = getEnvDuration("MATCH_ANN_TIMEOUT", 5*time.Second); err != nil {
		return m, fmt.Errorf("invalid MATCH_ANN_TIMEOUT: %w", err)
	}
	if m.TopK, err = getEnvInt("MATCH_TOP_K", 20); err != nil {
		return m, fmt.Errorf("invalid MATCH_TOP_K: %w", err)
	}
	if m.DateWindowDays, err = getEnvInt("MATCH_DATE_WINDOW_DAYS", 7); err != nil {
		return m, fmt.Errorf("invalid MATCH_DATE_WINDOW_DAYS: %w", err)
	}
	if m.CandidateLimit, err = getEnvInt("MATCH_CANDIDATE_LIMIT", 50); err != nil {
		return m, fmt.Errorf("invalid MATCH_CANDIDATE_LIMIT: %w", err)
	}
	if m.DateDecayDays, err = getEnvInt("MATCH_DATE_DECAY_DAYS", 14); err != nil {
		return m, fmt.Errorf("invalid MATCH_DATE_DECAY_DAYS: %w", err)
	}
	if m.AutoThreshold, err = getEnvFloat("MATCH_AUTO_THRESHOLD", 0.95); err != nil {
		return m, fmt.Errorf("invalid MATCH_AUTO_THRESHOLD: %w", err)
	}
	if m.HighThreshold, err = getEnvFloat("MATCH_HIGH_THRESHOLD", 0.75); err != nil {
		return m, fmt.Errorf("invalid MATCH_HIGH_THRESHOLD: %w", err)
	}
	if m.SuggestThreshold, err = getEnvFloat("MATCH_SUGGEST_THRESHOLD", 0.40); err != nil {
		return m, fmt.Errorf("invalid MATCH_SUGGEST_THRESHOLD: %w", err)
	}
	if m.WeightEmbedding, err = getEnvFloat("MATCH_WEIGHT_EMBEDDING", 0.50); err != nil {
		return m, fmt.Errorf("invalid MATCH_WEIGHT_EMBEDDING: %w", err)
	}
	if m.WeightAmount, err = getEnvFloat("MATCH_WEIGHT_AMOUNT", 0.35); err != nil {
		return m, fmt.Errorf("invalid MATCH_WEIGHT_AMOUNT: %w", err)
	}
	if m.WeightCurrency, err = getEnvFloat("MATCH_WEIGHT_CURRENCY", 0.05); err != nil {
		return m, fmt.Errorf("invalid MATCH_WEIGHT_CURRENCY: %w", err)
	}
	if m.WeightDate, err = getEnvFloat("MATCH_WEIGHT_DATE", 0.05); err != nil {
		return m, fmt.Errorf("invalid MATCH_WEIGHT_DATE: %w", err)
	}
	if m.WeightName, err = getEnvFloat("MATCH_WEIGHT_NAME", 0.05); err != nil {
		return m, fmt.Errorf("invalid MATCH_WEIGHT_NAME: %w", err)
	}

	return m, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
