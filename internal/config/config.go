package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"puzzlepals/internal/credentials"
)

// Config holds application configuration
type Config struct {
	// Local durable store
	DatabasePath   string `env:"PUZZLEPALS_DB_PATH" envDefault:"./puzzlepals.db"`
	DatabaseDriver string `env:"PUZZLEPALS_DB_DRIVER" envDefault:"sqlite3"` // sqlite3 (cgo) or sqlite (pure Go)

	// Platform credential store
	CredentialsPath string `env:"PUZZLEPALS_CREDENTIALS_PATH"` // defaults to credentials.DefaultPath()

	// Local auth backend
	TokenSecret     string        `env:"PUZZLEPALS_TOKEN_SECRET" envDefault:"dev-secret-change-me"`
	TokenIssuer     string        `env:"PUZZLEPALS_TOKEN_ISSUER" envDefault:"puzzlepals"`
	AccessTokenTTL  time.Duration `env:"PUZZLEPALS_ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTokenTTL time.Duration `env:"PUZZLEPALS_REFRESH_TOKEN_TTL" envDefault:"720h"`

	// Remote store: memory, redis, s3, postgres, mysql, sqlite or none
	RemoteDriver      string `env:"PUZZLEPALS_REMOTE_DRIVER" envDefault:"none"`
	RemoteURL         string `env:"PUZZLEPALS_REMOTE_URL"`
	RemoteS3Bucket    string `env:"PUZZLEPALS_REMOTE_S3_BUCKET"`
	RemoteS3Region    string `env:"PUZZLEPALS_REMOTE_S3_REGION" envDefault:"us-east-1"`
	RemoteS3Prefix    string `env:"PUZZLEPALS_REMOTE_S3_PREFIX" envDefault:"puzzlepals"`
	RemoteS3Endpoint  string `env:"PUZZLEPALS_REMOTE_S3_ENDPOINT"` // optional, for MinIO
	RemoteS3PathStyle bool   `env:"PUZZLEPALS_REMOTE_S3_PATH_STYLE"`
	RemoteS3AccessKey string `env:"PUZZLEPALS_REMOTE_S3_ACCESS_KEY"`
	RemoteS3SecretKey string `env:"PUZZLEPALS_REMOTE_S3_SECRET_KEY"`

	// Sync orchestrator
	ProbeTimeout   time.Duration `env:"PUZZLEPALS_PROBE_TIMEOUT" envDefault:"3s"`
	RestoreTimeout time.Duration `env:"PUZZLEPALS_RESTORE_TIMEOUT" envDefault:"5s"`
	PushTimeout    time.Duration `env:"PUZZLEPALS_PUSH_TIMEOUT" envDefault:"10s"`
	SyncQueueSize  int           `env:"PUZZLEPALS_SYNC_QUEUE_SIZE" envDefault:"64"`
	SyncWorkers    int           `env:"PUZZLEPALS_SYNC_WORKERS" envDefault:"2"`

	// Guardian notifications (disabled when SESFromEmail is empty)
	AWSRegion    string `env:"PUZZLEPALS_AWS_REGION" envDefault:"us-east-1"`
	SESFromEmail string `env:"PUZZLEPALS_SES_FROM_EMAIL"`
	SESFromName  string `env:"PUZZLEPALS_SES_FROM_NAME" envDefault:"Puzzle Pals"`

	// PIN attempt limiting
	PinMaxAttempts int           `env:"PUZZLEPALS_PIN_MAX_ATTEMPTS" envDefault:"5"`
	PinWindow      time.Duration `env:"PUZZLEPALS_PIN_WINDOW" envDefault:"1m"`

	LogLevel string `env:"PUZZLEPALS_LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.CredentialsPath == "" {
		cfg.CredentialsPath = credentials.DefaultPath()
	}
	if cfg.SyncQueueSize < 1 {
		cfg.SyncQueueSize = 1
	}
	if cfg.SyncWorkers < 1 {
		cfg.SyncWorkers = 1
	}
	return cfg, nil
}
