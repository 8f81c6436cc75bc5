package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"docutrain"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"docutrain"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"redis:6379"`
	RedisDB   int    `envconfig:"REDIS_DB" default:"0"`

	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	// Remote processing pipeline (retrain/process/status endpoints).
	PipelineBaseURL      string `envconfig:"PIPELINE_BASE_URL" default:"http://pipeline:8000"`
	PipelineServiceToken string `envconfig:"PIPELINE_SERVICE_TOKEN"`

	// Object storage for attachment downloads.
	StorageEndpoint  string `envconfig:"STORAGE_ENDPOINT" default:"minio:9000"`
	StorageAccessKey string `envconfig:"STORAGE_ACCESS_KEY" default:"docutrain"`
	StorageSecretKey string `envconfig:"STORAGE_SECRET_KEY" default:"password"`
	StorageBucket    string `envconfig:"STORAGE_BUCKET" default:"downloads"`
	StoragePublicURL string `envconfig:"STORAGE_PUBLIC_URL" default:"http://minio:9000"`
	StorageUseSSL    bool   `envconfig:"STORAGE_USE_SSL" default:"false"`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`

	// Processing status tracking.
	StatusPollInterval    time.Duration `envconfig:"STATUS_POLL_INTERVAL" default:"2s"`
	DocumentsPollInterval time.Duration `envconfig:"DOCUMENTS_POLL_INTERVAL" default:"5s"`
	StuckThreshold        time.Duration `envconfig:"STUCK_THRESHOLD" default:"5m"`
	RealtimeChannel       string        `envconfig:"REALTIME_CHANNEL" default:"document_status"`

	// Server
	ServerPort      int           `envconfig:"SERVER_PORT" default:"8081"`
	AuditLogPath    string        `envconfig:"AUDIT_LOG_PATH" default:"data/logs/audit.log"`
	MaxUploadSizeMB int64         `envconfig:"MAX_UPLOAD_SIZE_MB" default:"50"`
	SessionTTL      time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	MigrationPath   string        `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Env vars may be set in the shell; .env is optional.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.PipelineBaseURL == "" {
		return fmt.Errorf("%w: PIPELINE_BASE_URL", ErrMissingRequired)
	}
	if c.StorageBucket == "" {
		return fmt.Errorf("%w: STORAGE_BUCKET", ErrMissingRequired)
	}
	if c.StatusPollInterval <= 0 {
		return fmt.Errorf("STATUS_POLL_INTERVAL must be positive")
	}
	return nil
}
