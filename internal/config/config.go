package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config carries everything the server reads from the environment. Defaults
// are chosen so the binary runs standalone with the in-memory store and no
// external services.
type Config struct {
	Port          int    `envconfig:"PORT" default:"8080"`
	AllowedOrigin string `envconfig:"ALLOWED_ORIGIN" default:"*"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL   string `envconfig:"DATABASE_URL"`
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	OutletID       string `envconfig:"OUTLET_ID" default:"main-outlet"`
	OutletTimezone string `envconfig:"OUTLET_TIMEZONE" default:"Asia/Jakarta"`

	ShopName           string  `envconfig:"SHOP_NAME" default:"Kedai POS"`
	TaxRatePercent     float64 `envconfig:"TAX_RATE_PERCENT" default:"10"`
	ServiceRatePercent float64 `envconfig:"SERVICE_RATE_PERCENT" default:"5"`

	WebhookURL            string `envconfig:"WEBHOOK_URL"`
	WebhookTimeoutSeconds int    `envconfig:"WEBHOOK_TIMEOUT_SECONDS" default:"5"`

	SummaryCacheTTLSeconds int `envconfig:"SUMMARY_CACHE_TTL_SECONDS" default:"20"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c Config) WebhookTimeout() time.Duration {
	return time.Duration(c.WebhookTimeoutSeconds) * time.Second
}

func (c Config) SummaryCacheTTL() time.Duration {
	return time.Duration(c.SummaryCacheTTLSeconds) * time.Second
}
