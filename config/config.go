package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration, read from the environment.
type Config struct {
	DatabaseURL    string   `env:"DATABASE_URL,required,notEmpty"`
	HTTPAddr       string   `env:"HTTP_ADDR" envDefault:":5200"`
	GatewayToken   string   `env:"GATEWAY_TOKEN,required,notEmpty"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	MatchResultTimeout time.Duration `env:"MATCH_RESULT_TIMEOUT" envDefault:"24h"`
	CloseTickInterval  time.Duration `env:"CLOSE_TICK_INTERVAL" envDefault:"1m"`

	NotifyPollInterval time.Duration `env:"NOTIFY_POLL_INTERVAL" envDefault:"30s"`
	NotifyWebhookURL   string        `env:"NOTIFY_WEBHOOK_URL"`
	NotifyServiceToken string        `env:"NOTIFY_SERVICE_TOKEN"`
	NotifyMaxAttempts  int           `env:"NOTIFY_MAX_ATTEMPTS" envDefault:"5"`

	RabbitMQURL string `env:"RABBITMQ_URL"`

	UploadDir string `env:"UPLOAD_DIR" envDefault:"uploads"`
	R2        R2Config

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"true"`
}

// R2Config holds Cloudflare R2 credentials for player photos.
type R2Config struct {
	AccountID       string `env:"CLOUDFLARE_ACCOUNT_ID"`
	AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"R2_ACCESS_KEY_SECRET"`
	Bucket          string `env:"R2_BUCKET_NAME"`
	CDNBaseURL      string `env:"CDN_BASE_URL"`
}

// Enabled is true when enough is set to talk to R2.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

// Load parses the environment. Call godotenv first if a .env file should be honoured.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.CloseTickInterval <= 0 {
		return cfg, fmt.Errorf("CLOSE_TICK_INTERVAL must be positive, got %s", cfg.CloseTickInterval)
	}
	if cfg.NotifyPollInterval <= 0 {
		return cfg, fmt.Errorf("NOTIFY_POLL_INTERVAL must be positive, got %s", cfg.NotifyPollInterval)
	}
	return cfg, nil
}
