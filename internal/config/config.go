// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	JWT       JWTConfig       `koanf:"jwt"`
	Auth      AuthConfig      `koanf:"auth"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
	Payment   PaymentConfig   `koanf:"payment"`
	Billing   BillingConfig   `koanf:"billing"`
	Converter ConverterConfig `koanf:"converter"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
	KeyPrefix    string `koanf:"key_prefix"`
}

type JWTConfig struct {
	PrivateKeyPath    string        `koanf:"private_key_path"`
	AccessTokenExpire time.Duration `koanf:"access_token_expire"`
	Issuer            string        `koanf:"issuer"`
	Audience          string        `koanf:"audience"`
}

type AuthConfig struct {
	LoginMaxAttempts int           `koanf:"login_max_attempts"`
	LoginWindow      time.Duration `koanf:"login_window"`
}

type RateLimitConfig struct {
	Requests        int           `koanf:"requests"`
	Window          time.Duration `koanf:"window"`
	Burst           int           `koanf:"burst"`
	WebhookRequests int           `koanf:"webhook_requests"`
	WebhookBurst    int           `koanf:"webhook_burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

type PaymentConfig struct {
	Provider         string          `koanf:"provider"`
	PublicURL        string          `koanf:"public_url"`
	ResultURL        string          `koanf:"result_url"`
	AllowUnsignedDev bool            `koanf:"allow_unsigned_in_dev"`
	CancelTimeout    time.Duration   `koanf:"cancel_timeout"`
	MaxWebhookBytes  int64           `koanf:"max_webhook_bytes"`
	LiqPay           LiqPayConfig    `koanf:"liqpay"`
	PayPro           PayProConfig    `koanf:"paypro"`
	Paddle           PaddleConfig    `koanf:"paddle"`
	WayForPay        WayForPayConfig `koanf:"wayforpay"`
}

type LiqPayConfig struct {
	PublicKey   string `koanf:"public_key"`
	PrivateKey  string `koanf:"private_key"`
	Currency    string `koanf:"currency"`
	APIURL      string `koanf:"api_url"`
	CheckoutURL string `koanf:"checkout_url"`
}

type PayProConfig struct {
	ProductID   string `koanf:"product_id"`
	SecretKey   string `koanf:"secret_key"`
	CheckoutURL string `koanf:"checkout_url"`
}

type PaddleConfig struct {
	WebhookSecret string        `koanf:"webhook_secret"`
	APIKey        string        `koanf:"api_key"`
	APIURL        string        `koanf:"api_url"`
	PriceID       string        `koanf:"price_id"`
	MaxSkew       time.Duration `koanf:"max_skew"`
}

type WayForPayConfig struct {
	MerchantAccount  string `koanf:"merchant_account"`
	SecretKey        string `koanf:"secret_key"`
	MerchantPassword string `koanf:"merchant_password"`
	MerchantDomain   string `koanf:"merchant_domain"`
	Currency         string `koanf:"currency"`
	APIURL           string `koanf:"api_url"`
	PayURL           string `koanf:"pay_url"`
}

type BillingConfig struct {
	FreeLimit         int                     `koanf:"free_limit"`
	SubscriptionPrice int                     `koanf:"subscription_price"`
	DashboardURL      string                  `koanf:"dashboard_url"`
	Policies          map[string]PolicyConfig `koanf:"policies"`
}

// PolicyConfig decides what a termination event does for one provider and
// how long an activation lasts when the provider sends no next billing date.
type PolicyConfig struct {
	Termination string        `koanf:"termination"`
	GracePeriod time.Duration `koanf:"grace_period"`
}

type ConverterConfig struct {
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
	MaxPDFPages    int   `koanf:"max_pdf_pages"`
	MaxTextChars   int   `koanf:"max_text_chars"`
	MaxChunks      int   `koanf:"max_chunks"`
	ChunkSize      int   `koanf:"chunk_size"`
	ChunkOverlap   int   `koanf:"chunk_overlap"`
}

var (
	cfg  *Config
	once sync.Once
)

func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		cfg, loadErr = load(configPath)
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call Load() first")
	}
	return cfg
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func defaultValues() map[string]any {
	return map[string]any{
		"app.name":        "RAG Converter Pro",
		"app.version":     "1.0.0",
		"app.environment": EnvDevelopment,

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "60s",
		"server.write_timeout":    "120s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,
		"redis.key_prefix":     "ragconvert:",

		"jwt.access_token_expire": "1h",
		"jwt.issuer":              "ragconvert",
		"jwt.audience":            "ragconvert-api",
		"jwt.private_key_path":    "keys/private.pem",

		"auth.login_max_attempts": 5,
		"auth.login_window":       "5m",

		"rate_limit.requests":         200,
		"rate_limit.window":           "1m",
		"rate_limit.burst":            40,
		"rate_limit.webhook_requests": 600,
		"rate_limit.webhook_burst":    100,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "ragconvert",

		"payment.provider":              "paypro",
		"payment.public_url":            "http://localhost:8080",
		"payment.result_url":            "http://localhost:3000/dashboard",
		"payment.allow_unsigned_in_dev": false,
		"payment.cancel_timeout":        "10s",
		"payment.max_webhook_bytes":     65536,

		"payment.liqpay.currency":     "UAH",
		"payment.liqpay.api_url":      "https://www.liqpay.ua/api/request",
		"payment.liqpay.checkout_url": "https://www.liqpay.ua/api/3/checkout",

		"payment.paypro.product_id":   "126768",
		"payment.paypro.checkout_url": "https://store.payproglobal.com/checkout?products[1][id]=126768",

		"payment.paddle.api_url":  "https://api.paddle.com",
		"payment.paddle.max_skew": "5m",

		"payment.wayforpay.currency": "UAH",
		"payment.wayforpay.api_url":  "https://api.wayforpay.com/regularApi",
		"payment.wayforpay.pay_url":  "https://secure.wayforpay.com/pay",

		"billing.free_limit":         3,
		"billing.subscription_price": 9,
		"billing.dashboard_url":      "/dashboard",

		"billing.policies.liqpay.termination":     "cancelled",
		"billing.policies.liqpay.grace_period":    "720h",
		"billing.policies.paypro.termination":     "cancelled",
		"billing.policies.paypro.grace_period":    "768h",
		"billing.policies.paddle.termination":     "inactive",
		"billing.policies.paddle.grace_period":    "720h",
		"billing.policies.wayforpay.termination":  "inactive",
		"billing.policies.wayforpay.grace_period": "720h",

		"converter.max_upload_bytes": 32 * 1024 * 1024,
		"converter.max_pdf_pages":    100,
		"converter.max_text_chars":   500_000,
		"converter.max_chunks":       5000,
		"converter.chunk_size":       1000,
		"converter.chunk_overlap":    200,
	}
}

func loadDefaults(k *koanf.Koanf) error {
	for key, value := range defaultValues() {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"REDIS_URL":                   "redis.url",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"JWT_PRIVATE_KEY_PATH":        "jwt.private_key_path",
	"JWT_ACCESS_TOKEN_EXPIRE":     "jwt.access_token_expire",
	"JWT_ISSUER":                  "jwt.issuer",
	"JWT_AUDIENCE":                "jwt.audience",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",

	"PAYMENT_PROVIDER":            "payment.provider",
	"PUBLIC_URL":                  "payment.public_url",
	"PAYMENT_RESULT_URL":          "payment.result_url",
	"LIQPAY_PUBLIC_KEY":           "payment.liqpay.public_key",
	"LIQPAY_PRIVATE_KEY":          "payment.liqpay.private_key",
	"PAYPRO_PRODUCT_ID":           "payment.paypro.product_id",
	"PAYPRO_SECRET_KEY":           "payment.paypro.secret_key",
	"PAYPRO_CHECKOUT_URL":         "payment.paypro.checkout_url",
	"PADDLE_WEBHOOK_SECRET":       "payment.paddle.webhook_secret",
	"PADDLE_API_KEY":              "payment.paddle.api_key",
	"PADDLE_PRICE_ID":             "payment.paddle.price_id",
	"WAYFORPAY_MERCHANT_ACCOUNT":  "payment.wayforpay.merchant_account",
	"WAYFORPAY_SECRET_KEY":        "payment.wayforpay.secret_key",
	"WAYFORPAY_MERCHANT_PASSWORD": "payment.wayforpay.merchant_password",
	"WAYFORPAY_MERCHANT_DOMAIN":   "payment.wayforpay.merchant_domain",

	"FREE_CONVERSIONS_LIMIT": "billing.free_limit",
	"SUBSCRIPTION_PRICE":     "billing.subscription_price",
	"MAX_CONTENT_LENGTH":     "converter.max_upload_bytes",
	"MAX_PDF_PAGES":          "converter.max_pdf_pages",
	"MAX_TEXT_CHARS":         "converter.max_text_chars",
	"MAX_CHUNKS":             "converter.max_chunks",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.JWT.PrivateKeyPath == "" {
		return fmt.Errorf("JWT_PRIVATE_KEY_PATH is required")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.IsProduction() {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	if err := validatePayment(c); err != nil {
		return err
	}

	return validateConverter(c.Converter)
}

func validatePayment(c *Config) error {
	secret, ok := c.Payment.Secret(c.Payment.Provider)
	if !ok {
		return fmt.Errorf("unknown payment.provider %q", c.Payment.Provider)
	}

	// Unsigned webhooks are never acceptable outside development.
	if !c.IsDevelopment() && secret == "" {
		return fmt.Errorf(
			"payment secret for provider %q is required in %s",
			c.Payment.Provider,
			c.App.Environment,
		)
	}

	if c.Billing.FreeLimit < 0 {
		return fmt.Errorf("billing.free_limit must not be negative")
	}

	for name, p := range c.Billing.Policies {
		if p.Termination != "cancelled" && p.Termination != "inactive" {
			return fmt.Errorf(
				"billing.policies.%s.termination must be cancelled or inactive",
				name,
			)
		}
		if p.GracePeriod <= 0 {
			return fmt.Errorf(
				"billing.policies.%s.grace_period must be positive",
				name,
			)
		}
	}

	return nil
}

func validateConverter(c ConverterConfig) error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("converter.chunk_size must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("converter.chunk_overlap must be in [0, chunk_size)")
	}
	if c.MaxPDFPages <= 0 || c.MaxTextChars <= 0 || c.MaxChunks <= 0 {
		return fmt.Errorf("converter limits must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("converter.max_upload_bytes must be positive")
	}
	return nil
}

// Secret returns the webhook key material for the named provider.
func (p *PaymentConfig) Secret(provider string) (string, bool) {
	switch provider {
	case "liqpay":
		return p.LiqPay.PrivateKey, true
	case "paypro":
		return p.PayPro.SecretKey, true
	case "paddle":
		return p.Paddle.WebhookSecret, true
	case "wayforpay":
		return p.WayForPay.SecretKey, true
	default:
		return "", false
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
