// AngelaMos | 2026
// config_test.go

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/ragconvert")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	c, err := load("")
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, c.App.Environment)
	assert.Equal(t, 3, c.Billing.FreeLimit)
	assert.Equal(t, 9, c.Billing.SubscriptionPrice)
	assert.Equal(t, 100, c.Converter.MaxPDFPages)
	assert.Equal(t, 500_000, c.Converter.MaxTextChars)
	assert.Equal(t, 5000, c.Converter.MaxChunks)
	assert.Equal(t, 1000, c.Converter.ChunkSize)
	assert.Equal(t, 200, c.Converter.ChunkOverlap)
	assert.Equal(t, int64(32*1024*1024), c.Converter.MaxUploadBytes)
	assert.Equal(t, "paypro", c.Payment.Provider)
	assert.Equal(t, 10*time.Second, c.Payment.CancelTimeout)

	require.Contains(t, c.Billing.Policies, "paypro")
	assert.Equal(t, "cancelled", c.Billing.Policies["paypro"].Termination)
	assert.Equal(t, 32*24*time.Hour, c.Billing.Policies["paypro"].GracePeriod)
	assert.Equal(t, "inactive", c.Billing.Policies["wayforpay"].Termination)
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FREE_CONVERSIONS_LIMIT", "5")
	t.Setenv("MAX_PDF_PAGES", "20")
	t.Setenv("PAYMENT_PROVIDER", "wayforpay")

	c, err := load("")
	require.NoError(t, err)

	assert.Equal(t, 5, c.Billing.FreeLimit)
	assert.Equal(t, 20, c.Converter.MaxPDFPages)
	assert.Equal(t, "wayforpay", c.Payment.Provider)
}

func TestLoadRejectsMissingSecretOutsideDevelopment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENVIRONMENT", EnvProduction)

	_, err := load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paypro")

	t.Setenv("PAYPRO_SECRET_KEY", "validation-key")

	c, err := load("")
	require.NoError(t, err)
	assert.True(t, c.IsProduction())
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PAYMENT_PROVIDER", "stripe")

	_, err := load("")
	require.Error(t, err)
}

func TestValidateConverter(t *testing.T) {
	base := ConverterConfig{
		MaxUploadBytes: 1024,
		MaxPDFPages:    10,
		MaxTextChars:   1000,
		MaxChunks:      10,
		ChunkSize:      100,
		ChunkOverlap:   20,
	}
	require.NoError(t, validateConverter(base))

	bad := base
	bad.ChunkOverlap = 100
	assert.Error(t, validateConverter(bad))

	bad = base
	bad.ChunkSize = 0
	assert.Error(t, validateConverter(bad))

	bad = base
	bad.MaxChunks = 0
	assert.Error(t, validateConverter(bad))
}

func TestPaymentSecret(t *testing.T) {
	p := PaymentConfig{
		LiqPay:    LiqPayConfig{PrivateKey: "lp"},
		PayPro:    PayProConfig{SecretKey: "pp"},
		Paddle:    PaddleConfig{WebhookSecret: "pd"},
		WayForPay: WayForPayConfig{SecretKey: "wfp"},
	}

	for provider, want := range map[string]string{
		"liqpay":    "lp",
		"paypro":    "pp",
		"paddle":    "pd",
		"wayforpay": "wfp",
	} {
		got, ok := p.Secret(provider)
		assert.True(t, ok, provider)
		assert.Equal(t, want, got, provider)
	}

	_, ok := p.Secret("unknown")
	assert.False(t, ok)
}
