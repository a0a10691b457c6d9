package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	HTTP      ServerConfig
	MySQL     MySQLConfig
	Log       LogConfig
	Braintree BraintreeConfig
	Stripe    StripeConfig
	Basket    BasketConfig
	Jobs      JobsConfig
}

type AppConfig struct {
	ServiceName string
	// SiteURL is reported as donation_url on records built from webhooks,
	// where no landing page is known.
	SiteURL string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type BraintreeConfig struct {
	MerchantID  string
	PublicKey   string
	PrivateKey  string
	UseSandbox  bool
	HTTPTimeout time.Duration

	// MerchantAccounts maps a currency code to the merchant account that
	// settles it; PaypalMicroAccounts maps currencies with a dedicated
	// micropayment account.
	MerchantAccounts    map[string]string
	PaypalMicroAccounts map[string]string

	// Plans maps a currency code to the subscription plan billed in it.
	Plans map[string]string

	FraudSiteID string
}

type StripeConfig struct {
	APIKey                    string
	WebhookSecret             string
	SignatureToleranceSeconds int64
	HTTPTimeout               time.Duration
}

type BasketConfig struct {
	APIRootURL     string
	SQSQueueURL    string
	AWSRegion      string
	AWSAccessKeyID string
	AWSSecretKey   string
	HTTPTimeout    time.Duration
}

type JobsConfig struct {
	WorkerInterval time.Duration
	BatchSize      int32
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "donations-service"),
			SiteURL:     getEnv("APP_SITE_URL", ""),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Braintree: BraintreeConfig{
			MerchantID:          getEnv("BRAINTREE_MERCHANT_ID", ""),
			PublicKey:           getEnv("BRAINTREE_PUBLIC_KEY", ""),
			PrivateKey:          getEnv("BRAINTREE_PRIVATE_KEY", ""),
			UseSandbox:          getBoolEnv("BRAINTREE_USE_SANDBOX", false),
			HTTPTimeout:         getSecondsEnv("BRAINTREE_HTTP_TIMEOUT_SECONDS", 10*time.Second),
			MerchantAccounts:    getMapEnv("BRAINTREE_MERCHANT_ACCOUNTS"),
			PaypalMicroAccounts: getMapEnv("BRAINTREE_PAYPAL_MICRO_ACCOUNTS"),
			Plans:               getMapEnv("BRAINTREE_PLANS"),
			FraudSiteID:         getEnv("BRAINTREE_FRAUD_SITE_ID", "mofo"),
		},
		Stripe: StripeConfig{
			APIKey:                    getEnv("STRIPE_API_KEY", ""),
			WebhookSecret:             getEnv("STRIPE_WEBHOOK_SECRET", ""),
			SignatureToleranceSeconds: int64(getIntEnv("STRIPE_SIGNATURE_TOLERANCE_SECONDS", 300)),
			HTTPTimeout:               getSecondsEnv("STRIPE_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Basket: BasketConfig{
			APIRootURL:     getEnv("BASKET_API_ROOT_URL", ""),
			SQSQueueURL:    getEnv("BASKET_SQS_QUEUE_URL", ""),
			AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
			AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
			AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
			HTTPTimeout:    getSecondsEnv("BASKET_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Jobs: JobsConfig{
			WorkerInterval: getSecondsEnv("JOBS_WORKER_INTERVAL_SECONDS", 5*time.Second),
			BatchSize:      int32(getIntEnv("JOBS_BATCH_SIZE", 50)),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

// getMapEnv parses "key:value,key:value" pairs, e.g.
// BRAINTREE_PLANS="usd:usd-plan,eur:eur-plan".
func getMapEnv(key string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(os.Getenv(key), ",") {
		k, v, found := strings.Cut(strings.TrimSpace(pair), ":")
		if !found {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
