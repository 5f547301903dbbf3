package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"interior-design-backend/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "supabase", cfg.StorageDriver)
	assert.Equal(t, 5*time.Second, cfg.Replicate.PollInterval)
	assert.Equal(t, 60, cfg.Replicate.MaxPolls)
	assert.Equal(t, "https://api.replicate.com/v1", cfg.Replicate.BaseURL)
	assert.Equal(t, 3, cfg.Usage.FreePlanMaxUsage)
	assert.Equal(t, "design-jobs", cfg.Kafka.Topic)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.NotEmpty(t, cfg.UploadDir)
}

func TestLoad_ProviderSections(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service")
	t.Setenv("REPLICATE_API_KEY", "r8_test")
	t.Setenv("REPLICATE_POLL_INTERVAL", "250ms")
	t.Setenv("STRIPE_MONTHLY_PRICE_ID", "price_month")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "service", cfg.Supabase.Key())
	assert.Equal(t, "r8_test", cfg.Replicate.APIKey)
	assert.Equal(t, 250*time.Millisecond, cfg.Replicate.PollInterval)
	assert.Equal(t, "price_month", cfg.Stripe.MonthlyPriceID)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestValidate(t *testing.T) {
	base := func() *config.Config {
		return &config.Config{
			StorageDriver: "supabase",
			Supabase:      config.SupabaseConfig{URL: "https://x.supabase.co", AnonKey: "anon"},
			Replicate:     config.ReplicateConfig{PollInterval: time.Second, MaxPolls: 60},
		}
	}

	assert.NoError(t, base().Validate())

	cfg := base()
	cfg.Supabase.URL = ""
	assert.ErrorContains(t, cfg.Validate(), "SUPABASE_URL")

	cfg = base()
	cfg.StorageDriver = "minio"
	assert.ErrorContains(t, cfg.Validate(), "MINIO_ENDPOINT")

	cfg = base()
	cfg.StorageDriver = "ftp"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Replicate.MaxPolls = 0
	assert.ErrorContains(t, cfg.Validate(), "REPLICATE_MAX_POLLS")
}
