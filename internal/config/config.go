package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the plural-backend service.
type Config struct {
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Gemini    GeminiConfig
	Storage   StorageConfig
	Context   ContextConfig
	Worker    WorkerConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host      string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port      string `envconfig:"SERVER_PORT" default:"8080"`
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	DSN string `envconfig:"DATABASE_DSN" required:"true"`
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	URI string `envconfig:"REDIS_URI" required:"true"`
}

// GeminiConfig holds Gemini API configuration.
type GeminiConfig struct {
	APIKey     string `envconfig:"GEMINI_API_KEY" required:"true"`
	ChatModel  string `envconfig:"GEMINI_CHAT_MODEL" default:"gemini-2.0-flash"`
	EmbedModel string `envconfig:"GEMINI_EMBED_MODEL" default:"text-embedding-004"`
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	ImageBucket string `envconfig:"STORAGE_IMAGE_BUCKET" default:"quest-images"`
}

// ContextConfig tunes per-turn context selection. The similarity threshold
// and match count here apply to the per-turn retrieval call-site only; the
// general-purpose relevance query keeps its own looser defaults in the
// message repository.
type ContextConfig struct {
	MatchThreshold     float64       `envconfig:"CONTEXT_MATCH_THRESHOLD" default:"0.75"`
	MatchCount         int           `envconfig:"CONTEXT_MATCH_COUNT" default:"3"`
	RecencyCount       int           `envconfig:"CONTEXT_RECENCY_COUNT" default:"3"`
	MaxContextMessages int           `envconfig:"CONTEXT_MAX_MESSAGES" default:"7"`
	ImageFetchTimeout  time.Duration `envconfig:"CONTEXT_IMAGE_FETCH_TIMEOUT" default:"15s"`
	TurnTimeout        time.Duration `envconfig:"CONTEXT_TURN_TIMEOUT" default:"3m"`
}

// WorkerConfig holds background worker pool configuration.
type WorkerConfig struct {
	Count     int `envconfig:"WORKER_COUNT" default:"4"`
	QueueSize int `envconfig:"WORKER_QUEUE_SIZE" default:"64"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks configuration for logical errors beyond required fields.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Context.MaxContextMessages <= 0 {
		c.Context.MaxContextMessages = 7
	}
	if c.Worker.Count <= 0 {
		c.Worker.Count = 4
	}
	return nil
}
