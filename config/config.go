// config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration, read from the environment.
type Config struct {
	ListenAddr     string   `env:"LISTEN_ADDR" envDefault:":5200"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`

	DatabaseURL string `env:"DATABASE_URL,required"`

	// Token the gateway presents on every request.
	GatewayServiceToken string `env:"GATEWAY_SERVICE_TOKEN,required"`

	// Outbound service-to-service token (profile sync, wallet payouts).
	ServiceToken string `env:"SERVICE_TOKEN"`

	ProfileServiceURL  string        `env:"PROFILE_SERVICE_URL"`
	ProfileSyncPath    string        `env:"PROFILE_SYNC_PATH" envDefault:"/api/v1/public/profiles"`
	ProfileSyncEvery   time.Duration `env:"PROFILE_SYNC_INTERVAL" envDefault:"1m"`
	AuthServiceURL     string        `env:"AUTH_SERVICE_URL"`
	WalletServiceURL   string        `env:"WALLET_SERVICE_URL"`
	PayoutEvery        time.Duration `env:"PAYOUT_INTERVAL" envDefault:"1m"`
	PayoutBatchSize    int           `env:"PAYOUT_BATCH_SIZE" envDefault:"50"`
	SnapshotStreamTick time.Duration `env:"SNAPSHOT_STREAM_INTERVAL" envDefault:"2s"`

	R2 R2Config `envPrefix:"R2_"`
}

// R2Config holds Cloudflare R2 (S3 compatible) settings used for statements.
type R2Config struct {
	AccountID       string `env:"ACCOUNT_ID"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	AccessKeySecret string `env:"ACCESS_KEY_SECRET"`
	Bucket          string `env:"BUCKET_NAME"`
	CDNBaseURL      string `env:"CDN_BASE_URL"`
}

// Enabled reports whether enough R2 settings are present to build a client.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.Bucket != ""
}

// Load reads an optional .env file, then parses the environment.
// The returned bool is false when no .env file was found.
func Load(files ...string) (Config, bool, error) {
	dotenv := godotenv.Load(files...) == nil

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, dotenv, fmt.Errorf("parse env: %w", err)
	}
	if cfg.PayoutBatchSize <= 0 {
		return Config{}, dotenv, fmt.Errorf("PAYOUT_BATCH_SIZE must be positive, got %d", cfg.PayoutBatchSize)
	}
	return cfg, dotenv, nil
}
