package config

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	aws_pkg "pos-payment-service/pkg/aws"

	"github.com/joho/godotenv"
)

const (
	GatewayStripe = "stripe"
	GatewayDemo   = "demo"

	EventBusSNS   = "sns"
	EventBusKafka = "kafka"
	EventBusNone  = "none"
)

// Secrets Manager names read when AWS_USE_SECRETS=true.
const (
	secretDBCredentials = "payments/DB_CREDENTIALS"
	secretStripe        = "payments/STRIPE"
	secretStaffJWT      = "payments/STAFF_JWT_SECRET"
)

type Config struct {
	Port string
	Env  string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	Gateway             string
	StripeSecretKey     string
	StripeWebhookSecret string
	StripeAPIURL        string // only set to point the Stripe client at a mock
	DemoGatewayDelay    time.Duration
	DemoAutoSucceed     bool
	GatewayTimeout      time.Duration

	DefaultCurrency string
	DefaultTaxRate  float64

	RedisURL string

	EventBus              string
	PaymentSNSTopicARN    string
	KafkaBrokers          []string
	KafkaTopic            string
	PaymentEventsQueueURL string // SQS queue fed by the provider's EventBridge bus

	StaffJWTSecret string
	AllowedOrigins []string

	CloudWatchEnabled   bool
	CloudWatchNamespace string
	CloudWatchLogGroup  string

	UseSecrets bool
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// secretSource is the part of the Secrets Manager client config needs.
type secretSource interface {
	GetSecret(ctx context.Context, name string) (string, error)
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

// LoadConfig reads .env (if present) and the environment, applies the Secrets
// Manager override when enabled, and validates the result.
func LoadConfig(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}

	if cfg.UseSecrets {
		awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		applySecrets(ctx, cfg, aws_pkg.NewSecretsClient(awsCfg))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		Port:                  getEnv("PORT", "8087"),
		Env:                   getEnv("APP_ENV", "development"),
		PostgresUser:          os.Getenv("POSTGRES_USER"),
		PostgresPassword:      os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:            os.Getenv("POSTGRES_DB"),
		PostgresHost:          os.Getenv("POSTGRES_HOST"),
		PostgresPort:          getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:       getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone:      getEnv("POSTGRES_TIMEZONE", "UTC"),
		Gateway:               strings.ToLower(getEnv("PAYMENT_GATEWAY", GatewayStripe)),
		StripeSecretKey:       os.Getenv("STRIPE_API_KEY"),
		StripeWebhookSecret:   os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripeAPIURL:          os.Getenv("STRIPE_API_URL"),
		DefaultCurrency:       strings.ToLower(getEnv("DEFAULT_CURRENCY", "usd")),
		RedisURL:              os.Getenv("REDIS_URL"),
		EventBus:              strings.ToLower(getEnv("EVENT_BUS", EventBusSNS)),
		PaymentSNSTopicARN:    os.Getenv("PAYMENT_SNS_TOPIC_ARN"),
		KafkaBrokers:          splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:            getEnv("KAFKA_TOPIC", "payment-events"),
		PaymentEventsQueueURL: os.Getenv("PAYMENT_EVENTS_QUEUE_URL"),
		StaffJWTSecret:        os.Getenv("STAFF_JWT_SECRET"),
		AllowedOrigins:        splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		CloudWatchEnabled:     os.Getenv("CLOUDWATCH_ENABLED") == "true",
		CloudWatchNamespace:   getEnv("CLOUDWATCH_NAMESPACE", "POSPayments"),
		CloudWatchLogGroup:    getEnv("CLOUDWATCH_LOG_GROUP", "/pos/payments"),
		UseSecrets:            os.Getenv("AWS_USE_SECRETS") == "true",
		DemoAutoSucceed:       os.Getenv("DEMO_AUTO_SUCCEED") == "true",
	}

	var err error
	if cfg.DemoGatewayDelay, err = getDuration("DEMO_GATEWAY_DELAY", 300*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.GatewayTimeout, err = getDuration("GATEWAY_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.DefaultTaxRate, err = getFloat("DEFAULT_TAX_RATE", 0.08); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applySecrets overrides credentials with values from Secrets Manager. Missing
// secrets leave the environment values in place.
func applySecrets(ctx context.Context, cfg *Config, sm secretSource) {
	if m, err := sm.GetSecretMap(ctx, secretDBCredentials); err == nil {
		override(&cfg.PostgresUser, m["POSTGRES_USER"])
		override(&cfg.PostgresPassword, m["POSTGRES_PASSWORD"])
		override(&cfg.PostgresDB, m["POSTGRES_DB"])
		override(&cfg.PostgresHost, m["POSTGRES_HOST"])
		override(&cfg.PostgresPort, m["POSTGRES_PORT"])
	}
	if m, err := sm.GetSecretMap(ctx, secretStripe); err == nil {
		override(&cfg.StripeSecretKey, m["STRIPE_API_KEY"])
		override(&cfg.StripeWebhookSecret, m["STRIPE_WEBHOOK_SECRET"])
	}
	if v, err := sm.GetSecret(ctx, secretStaffJWT); err == nil {
		override(&cfg.StaffJWTSecret, v)
	}
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate rejects configurations the service must not start with.
func (c *Config) Validate() error {
	var errs []error
	if c.PostgresUser == "" || c.PostgresPassword == "" || c.PostgresDB == "" || c.PostgresHost == "" {
		errs = append(errs, errors.New("database config incomplete"))
	}

	switch c.Gateway {
	case GatewayStripe:
		if c.StripeSecretKey == "" || c.StripeWebhookSecret == "" {
			errs = append(errs, errors.New("STRIPE_API_KEY and STRIPE_WEBHOOK_SECRET are required"))
		}
	case GatewayDemo:
		if c.IsProduction() {
			errs = append(errs, errors.New("demo gateway is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown PAYMENT_GATEWAY %q", c.Gateway))
	}

	switch c.EventBus {
	case EventBusSNS:
		if c.PaymentSNSTopicARN == "" {
			errs = append(errs, errors.New("PAYMENT_SNS_TOPIC_ARN is required for the sns event bus"))
		}
	case EventBusKafka:
		if len(c.KafkaBrokers) == 0 || c.KafkaTopic == "" {
			errs = append(errs, errors.New("KAFKA_BROKERS and KAFKA_TOPIC are required for the kafka event bus"))
		}
	case EventBusNone:
	default:
		errs = append(errs, fmt.Errorf("unknown EVENT_BUS %q", c.EventBus))
	}

	if c.IsProduction() && c.StaffJWTSecret == "" {
		errs = append(errs, errors.New("STAFF_JWT_SECRET is required in production"))
	}
	if math.IsNaN(c.DefaultTaxRate) || c.DefaultTaxRate < 0 || c.DefaultTaxRate > 1 {
		errs = append(errs, fmt.Errorf("DEFAULT_TAX_RATE %v must be between 0 and 1", c.DefaultTaxRate))
	}
	if c.GatewayTimeout <= 0 {
		errs = append(errs, errors.New("GATEWAY_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(p), "/")); p != "" {
			out = append(out, p)
		}
	}
	return out
}
