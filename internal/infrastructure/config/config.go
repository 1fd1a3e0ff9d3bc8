package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// JWTSecret verifies provider-issued session tokens.
	JWTSecret string `env:"JWT_SECRET"`

	// WebhookSecret is the provider's signing secret (whsec_... format).
	WebhookSecret    string        `env:"WEBHOOK_SECRET"`
	WebhookTolerance time.Duration `env:"WEBHOOK_TOLERANCE, default=5m"`

	CompanyName string `env:"COMPANY_NAME, default=Acme Corporation"`

	// SignInURL and ForbiddenURL are the two distinct redirect targets of
	// the request-path gate in redirect mode.
	SignInURL    string `env:"SIGN_IN_URL,   default=/sign-in"`
	ForbiddenURL string `env:"FORBIDDEN_URL, default=/unauthorized"`

	SyncAttemptTTL time.Duration `env:"SYNC_ATTEMPT_TTL, default=5m"`
	MailWorkers    int           `env:"MAIL_WORKERS,     default=4"`

	Mongo MongoConfig
	Redis RedisConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=crm_identity"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
