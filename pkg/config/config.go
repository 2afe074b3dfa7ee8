package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv       = "STOREFRONT_APP_ENV"
	EnvPort         = "STOREFRONT_APP_PORT"
	EnvDBDSN        = "STOREFRONT_DB_DSN"
	EnvDBHost       = "STOREFRONT_DB_HOST"
	EnvDBUser       = "STOREFRONT_DB_USER"
	EnvDBName       = "STOREFRONT_DB_NAME"
	EnvRedisURL     = "STOREFRONT_REDIS_URL"
	EnvJWTSecret    = "STOREFRONT_JWT_SECRET"
	EnvSiteURL      = "STOREFRONT_SITE_URL"
	EnvPayPalID     = "STOREFRONT_PAYPAL_CLIENT_ID"
	EnvPayPalSecret = "STOREFRONT_PAYPAL_CLIENT_SECRET"
	EnvPayPalEnv    = "STOREFRONT_PAYPAL_ENV"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	FeatureFlags  FeatureFlagsConfig
	Storefront    StorefrontConfig
	Cart          CartConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	PayPal        PayPalConfig
	GCP           GCPConfig
	Notifications NotificationsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Storefront.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"STOREFRONT_DB_DSN"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"STOREFRONT_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig describes how admin bearer tokens issued by the identity provider are verified.
type JWTConfig struct {
	Secret    string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer    string `envconfig:"STOREFRONT_JWT_ISSUER"`
	Audience  string `envconfig:"STOREFRONT_JWT_AUDIENCE" default:"authenticated"`
	AdminRole string `envconfig:"STOREFRONT_JWT_ADMIN_ROLE" default:"admin"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

// StorefrontConfig holds the public facing shop settings.
type StorefrontConfig struct {
	SiteURL         string `envconfig:"STOREFRONT_SITE_URL" required:"true"`
	DefaultCurrency string `envconfig:"STOREFRONT_DEFAULT_CURRENCY" default:"USD"`
	BrandName       string `envconfig:"STOREFRONT_BRAND_NAME" default:"Storefront"`
}

func (s StorefrontConfig) validate() error {
	parsed, err := url.Parse(strings.TrimSpace(s.SiteURL))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", EnvSiteURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute url", EnvSiteURL)
	}
	return nil
}

// BaseURL returns the site url without a trailing slash.
func (s StorefrontConfig) BaseURL() string {
	return strings.TrimRight(strings.TrimSpace(s.SiteURL), "/")
}

type CartConfig struct {
	TTL time.Duration `envconfig:"STOREFRONT_CART_TTL" default:"720h"`
}

// RateLimitConfig throttles the unauthenticated write surfaces per client IP and,
// for checkout, per customer email.
type RateLimitConfig struct {
	Window             time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_WINDOW" default:"1m"`
	PaymentIPLimit     int           `envconfig:"STOREFRONT_RATE_LIMIT_PAYMENT_IP" default:"20"`
	CheckoutIPLimit    int           `envconfig:"STOREFRONT_RATE_LIMIT_CHECKOUT_IP" default:"10"`
	CheckoutEmailLimit int           `envconfig:"STOREFRONT_RATE_LIMIT_CHECKOUT_EMAIL" default:"5"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// PayPalConfig is optional at boot; the payment endpoints report a configuration error
// when the credentials are missing.
type PayPalConfig struct {
	ClientID     string        `envconfig:"STOREFRONT_PAYPAL_CLIENT_ID"`
	ClientSecret string        `envconfig:"STOREFRONT_PAYPAL_CLIENT_SECRET"`
	Env          string        `envconfig:"STOREFRONT_PAYPAL_ENV" default:"sandbox"`
	BaseURL      string        `envconfig:"STOREFRONT_PAYPAL_BASE_URL"`
	Timeout      time.Duration `envconfig:"STOREFRONT_PAYPAL_TIMEOUT" default:"15s"`
	// CaptureLock is raised to cover a full capture at Timeout per request.
	CaptureLock  time.Duration `envconfig:"STOREFRONT_PAYPAL_CAPTURE_LOCK_TTL"`
}

// Environment returns the normalized PayPal environment (sandbox/live).
func (p PayPalConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(p.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

// HasCredentials reports whether both client id and secret are configured.
func (p PayPalConfig) HasCredentials() bool {
	return strings.TrimSpace(p.ClientID) != "" && strings.TrimSpace(p.ClientSecret) != ""
}

type GCPConfig struct {
	ProjectID string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
}

type NotificationsConfig struct {
	Enabled    bool   `envconfig:"STOREFRONT_NOTIFICATIONS_ENABLED" default:"false"`
	OrderTopic string `envconfig:"STOREFRONT_PUBSUB_ORDER_TOPIC" default:"storefront-order-events"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
