package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type (
	Config struct {
		Port           string   `env:"PORT" envDefault:"8080"`
		Environment    string   `env:"ENVIRONMENT" envDefault:"development"`
		BaseURL        string   `env:"BASE_URL" envDefault:"http://localhost:8080"`
		LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
		LogFormat      string   `env:"LOG_FORMAT" envDefault:"text"`
		AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
		DemoMode       bool     `env:"DEMO_MODE" envDefault:"false"`

		// Database
		DatabaseURL string `env:"DATABASE_URL"`

		// Local uploads
		UploadDir     string `env:"UPLOAD_DIR"`
		MaxUploadSize int64  `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"`

		// Object storage backend: "supabase" or "minio"
		StorageDriver string `env:"STORAGE_DRIVER" envDefault:"supabase"`

		OpenAIAPIKey string `env:"OPENAI_API_KEY"`
		GeminiAPIKey string `env:"GEMINI_API_KEY"`

		Supabase  SupabaseConfig  `envPrefix:"SUPABASE_"`
		Replicate ReplicateConfig `envPrefix:"REPLICATE_"`
		Stripe    StripeConfig    `envPrefix:"STRIPE_"`
		Usage     UsageConfig
		Redis     RedisConfig `envPrefix:"REDIS_"`
		Kafka     KafkaConfig `envPrefix:"KAFKA_"`
		Minio     MinioConfig `envPrefix:"MINIO_"`
	}

	SupabaseConfig struct {
		URL            string `env:"URL"`
		AnonKey        string `env:"ANON_KEY"`
		ServiceRoleKey string `env:"SERVICE_ROLE_KEY"`
		JWTSecret      string `env:"JWT_SECRET"`
		StorageBucket  string `env:"STORAGE_BUCKET" envDefault:"design-images"`
	}

	ReplicateConfig struct {
		APIKey              string        `env:"API_KEY"`
		BaseURL             string        `env:"API_BASE_URL" envDefault:"https://api.replicate.com/v1"`
		DesignModelVersion  string        `env:"DESIGN_MODEL_VERSION" envDefault:"76604baddc85b1b4616e1c6475eca080da339c8875bd4996705440484a6eac38"`
		BackupModelVersion  string        `env:"BACKUP_MODEL_VERSION" envDefault:"15a3689ee13b0d2616e98820eca31d4c3abcd36672df6afce5cb6feb1d66087d"`
		EnhanceModelVersion string        `env:"ENHANCE_MODEL_VERSION" envDefault:"42fed1c4974146d4d2414e2be2c5277c7fcf05fcc3a73abf41610695738c1d7b"`
		PollInterval        time.Duration `env:"POLL_INTERVAL" envDefault:"5s"`
		MaxPolls            int           `env:"MAX_POLLS" envDefault:"60"`
		RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	}

	StripeConfig struct {
		SecretKey      string `env:"SECRET_KEY"`
		WebhookSecret  string `env:"WEBHOOK_SECRET"`
		MonthlyPriceID string `env:"MONTHLY_PRICE_ID"`
		YearlyPriceID  string `env:"YEARLY_PRICE_ID"`
	}

	UsageConfig struct {
		FreePlanMaxUsage int           `env:"FREE_PLAN_MAX_USAGE" envDefault:"3"`
		CacheTTL         time.Duration `env:"SUBSCRIPTION_CACHE_TTL" envDefault:"60s"`
	}

	RedisConfig struct {
		URL string `env:"URL"`
	}

	KafkaConfig struct {
		Brokers []string `env:"BROKERS" envSeparator:","`
		Topic   string   `env:"TOPIC" envDefault:"design-jobs"`
	}

	MinioConfig struct {
		Endpoint  string `env:"ENDPOINT"`
		AccessKey string `env:"ACCESS_KEY"`
		SecretKey string `env:"SECRET_KEY"`
		Bucket    string `env:"BUCKET" envDefault:"design-images"`
		UseSSL    bool   `env:"USE_SSL" envDefault:"true"`
		PublicURL string `env:"PUBLIC_URL"`
	}
)

// Load reads an optional .env file and parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = os.TempDir()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case "supabase":
		if c.Supabase.URL == "" {
			return fmt.Errorf("SUPABASE_URL is required")
		}
		if c.Supabase.Key() == "" {
			return fmt.Errorf("SUPABASE_SERVICE_ROLE_KEY or SUPABASE_ANON_KEY is required")
		}
	case "minio":
		if c.Minio.Endpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT is required")
		}
		if c.Minio.Bucket == "" {
			return fmt.Errorf("MINIO_BUCKET is required")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.Replicate.PollInterval <= 0 {
		return fmt.Errorf("REPLICATE_POLL_INTERVAL must be positive")
	}
	if c.Replicate.MaxPolls <= 0 {
		return fmt.Errorf("REPLICATE_MAX_POLLS must be positive")
	}
	if c.Usage.FreePlanMaxUsage < 0 {
		return fmt.Errorf("FREE_PLAN_MAX_USAGE must not be negative")
	}
	return nil
}

// Key prefers the service role key; storage writes and usage updates need it.
func (s SupabaseConfig) Key() string {
	if s.ServiceRoleKey != "" {
		return s.ServiceRoleKey
	}
	return s.AnonKey
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
