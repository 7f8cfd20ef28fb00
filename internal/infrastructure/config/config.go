package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Storefront StorefrontConfig
	Shipping   ShippingConfig
	Webhook    WebhookConfig
	Carrier    CarrierConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
}

// StorefrontConfig holds settings for the upstream commerce platform's
// admin API.
type StorefrontConfig struct {
	// Scheme is the URL scheme for admin API calls. Overridable for tests.
	Scheme string
	// APIVersion is the admin API version segment, e.g. "2024-01".
	APIVersion string
	// Timeout bounds a single admin API request.
	Timeout time.Duration
	// RetryMaxAttempts caps retries of idempotent admin API reads.
	RetryMaxAttempts int
	// RetryBaseDelay is the initial backoff delay between retries.
	RetryBaseDelay time.Duration
	// FulfillTimeout bounds a background fulfillment call.
	FulfillTimeout time.Duration
}

// ShippingConfig holds settings for the internal shipping rate engine.
type ShippingConfig struct {
	// EngineURL is the base URL of the rate engine service.
	EngineURL string
	// Timeout bounds a single rate computation request.
	Timeout time.Duration
	// MinDeliveryDays and MaxDeliveryDays bound the delivery-window estimate
	// reported back to the platform.
	MinDeliveryDays int
	MaxDeliveryDays int
}

// WebhookConfig holds inbound webhook settings.
type WebhookConfig struct {
	// Secret is the shared HMAC secret for signature verification.
	Secret string
	// RejectInvalidSignature makes the endpoint answer 401 on a bad
	// signature instead of logging and processing anyway.
	RejectInvalidSignature bool
	// DedupEnabled turns on delivery-ID deduplication.
	DedupEnabled bool
}

// CarrierConfig holds carrier-service registration settings.
type CarrierConfig struct {
	// ServiceName is the canonical name of our carrier-service registration.
	ServiceName string
	// CallbackURL is the canonical rate callback endpoint, publicly
	// reachable by the platform.
	CallbackURL string
	// ReconcileOnStartup runs a reconcile sweep over all active shop
	// connections when the server starts.
	ReconcileOnStartup bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with STORELINK_ prefix (e.g., STORELINK_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("STORELINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Storefront: StorefrontConfig{
			Scheme:           v.GetString("storefront.scheme"),
			APIVersion:       v.GetString("storefront.api_version"),
			Timeout:          v.GetDuration("storefront.timeout"),
			RetryMaxAttempts: v.GetInt("storefront.retry_max_attempts"),
			RetryBaseDelay:   v.GetDuration("storefront.retry_base_delay"),
			FulfillTimeout:   v.GetDuration("storefront.fulfill_timeout"),
		},
		Shipping: ShippingConfig{
			EngineURL:       v.GetString("shipping.engine_url"),
			Timeout:         v.GetDuration("shipping.timeout"),
			MinDeliveryDays: v.GetInt("shipping.min_delivery_days"),
			MaxDeliveryDays: v.GetInt("shipping.max_delivery_days"),
		},
		Webhook: WebhookConfig{
			Secret:                 v.GetString("webhook.secret"),
			RejectInvalidSignature: v.GetBool("webhook.reject_invalid_signature"),
			DedupEnabled:           v.GetBool("webhook.dedup_enabled"),
		},
		Carrier: CarrierConfig{
			ServiceName:        v.GetString("carrier.service_name"),
			CallbackURL:        v.GetString("carrier.callback_url"),
			ReconcileOnStartup: v.GetBool("carrier.reconcile_on_startup"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "storelink-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "storelink"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 5 << 20 // 5MB, order payloads can be large
	}
	if cfg.Storefront.Scheme == "" {
		cfg.Storefront.Scheme = "https"
	}
	if cfg.Storefront.APIVersion == "" {
		cfg.Storefront.APIVersion = "2024-01"
	}
	if cfg.Storefront.Timeout == 0 {
		cfg.Storefront.Timeout = 10 * time.Second
	}
	if cfg.Storefront.RetryMaxAttempts == 0 {
		cfg.Storefront.RetryMaxAttempts = 3
	}
	if cfg.Storefront.RetryBaseDelay == 0 {
		cfg.Storefront.RetryBaseDelay = 500 * time.Millisecond
	}
	if cfg.Storefront.FulfillTimeout == 0 {
		cfg.Storefront.FulfillTimeout = 15 * time.Second
	}
	if cfg.Shipping.Timeout == 0 {
		cfg.Shipping.Timeout = 8 * time.Second
	}
	if cfg.Shipping.MinDeliveryDays == 0 {
		cfg.Shipping.MinDeliveryDays = 2
	}
	if cfg.Shipping.MaxDeliveryDays == 0 {
		cfg.Shipping.MaxDeliveryDays = 7
	}
	if cfg.Carrier.ServiceName == "" {
		cfg.Carrier.ServiceName = "StoreLink Shipping"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Shipping.MaxDeliveryDays < c.Shipping.MinDeliveryDays {
		return fmt.Errorf("shipping.max_delivery_days (%d) cannot be less than shipping.min_delivery_days (%d)",
			c.Shipping.MaxDeliveryDays, c.Shipping.MinDeliveryDays)
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Webhook.Secret == "" {
			return fmt.Errorf("webhook.secret is required in production")
		}
		if c.Storefront.Scheme != "https" {
			return fmt.Errorf("storefront.scheme must be https in production")
		}
		if c.Carrier.CallbackURL == "" {
			return fmt.Errorf("carrier.callback_url is required in production")
		}
		if !strings.HasPrefix(c.Carrier.CallbackURL, "https://") {
			return fmt.Errorf("carrier.callback_url must be an https URL in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis host:port address.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
