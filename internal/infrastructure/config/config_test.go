package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"STORELINK_APP_NAME":                os.Getenv("STORELINK_APP_NAME"),
		"STORELINK_APP_ENV":                 os.Getenv("STORELINK_APP_ENV"),
		"STORELINK_APP_PORT":                os.Getenv("STORELINK_APP_PORT"),
		"STORELINK_DATABASE_HOST":           os.Getenv("STORELINK_DATABASE_HOST"),
		"STORELINK_DATABASE_PORT":           os.Getenv("STORELINK_DATABASE_PORT"),
		"STORELINK_DATABASE_USER":           os.Getenv("STORELINK_DATABASE_USER"),
		"STORELINK_DATABASE_PASSWORD":       os.Getenv("STORELINK_DATABASE_PASSWORD"),
		"STORELINK_DATABASE_DBNAME":         os.Getenv("STORELINK_DATABASE_DBNAME"),
		"STORELINK_DATABASE_SSLMODE":        os.Getenv("STORELINK_DATABASE_SSLMODE"),
		"STORELINK_DATABASE_MAX_OPEN_CONNS": os.Getenv("STORELINK_DATABASE_MAX_OPEN_CONNS"),
		"STORELINK_DATABASE_MAX_IDLE_CONNS": os.Getenv("STORELINK_DATABASE_MAX_IDLE_CONNS"),
		"STORELINK_WEBHOOK_SECRET":          os.Getenv("STORELINK_WEBHOOK_SECRET"),
		"STORELINK_STOREFRONT_SCHEME":       os.Getenv("STORELINK_STOREFRONT_SCHEME"),
		"STORELINK_SHIPPING_ENGINE_URL":     os.Getenv("STORELINK_SHIPPING_ENGINE_URL"),
		"STORELINK_SHIPPING_MIN_DELIVERY_DAYS": os.Getenv("STORELINK_SHIPPING_MIN_DELIVERY_DAYS"),
		"STORELINK_SHIPPING_MAX_DELIVERY_DAYS": os.Getenv("STORELINK_SHIPPING_MAX_DELIVERY_DAYS"),
		"STORELINK_CARRIER_SERVICE_NAME":       os.Getenv("STORELINK_CARRIER_SERVICE_NAME"),
		"STORELINK_CARRIER_CALLBACK_URL":       os.Getenv("STORELINK_CARRIER_CALLBACK_URL"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "storelink-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "storelink", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, "https", cfg.Storefront.Scheme)
		assert.Equal(t, "2024-01", cfg.Storefront.APIVersion)
		assert.Equal(t, 10*time.Second, cfg.Storefront.Timeout)
		assert.Equal(t, 3, cfg.Storefront.RetryMaxAttempts)
		assert.Equal(t, 2, cfg.Shipping.MinDeliveryDays)
		assert.Equal(t, 7, cfg.Shipping.MaxDeliveryDays)
		assert.Equal(t, "StoreLink Shipping", cfg.Carrier.ServiceName)
		assert.False(t, cfg.Webhook.RejectInvalidSignature)
	})

	t.Run("loads values from environment variables with STORELINK prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("STORELINK_APP_NAME", "test-app")
		os.Setenv("STORELINK_APP_ENV", "testing")
		os.Setenv("STORELINK_APP_PORT", "9000")
		os.Setenv("STORELINK_DATABASE_HOST", "testdb.local")
		os.Setenv("STORELINK_DATABASE_PORT", "5433")
		os.Setenv("STORELINK_DATABASE_USER", "testuser")
		os.Setenv("STORELINK_DATABASE_PASSWORD", "testpass")
		os.Setenv("STORELINK_DATABASE_DBNAME", "testdb")
		os.Setenv("STORELINK_DATABASE_SSLMODE", "require")
		os.Setenv("STORELINK_WEBHOOK_SECRET", "hush")
		os.Setenv("STORELINK_SHIPPING_ENGINE_URL", "http://shipping.internal:9090")
		os.Setenv("STORELINK_CARRIER_SERVICE_NAME", "Acme Rates")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "testing", cfg.App.Env)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testuser", cfg.Database.User)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, "testdb", cfg.Database.DBName)
		assert.Equal(t, "require", cfg.Database.SSLMode)
		assert.Equal(t, "hush", cfg.Webhook.Secret)
		assert.Equal(t, "http://shipping.internal:9090", cfg.Shipping.EngineURL)
		assert.Equal(t, "Acme Rates", cfg.Carrier.ServiceName)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv()
		os.Setenv("STORELINK_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("STORELINK_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("zero MaxOpenConns uses default", func(t *testing.T) {
		clearEnv()
		os.Setenv("STORELINK_DATABASE_MAX_OPEN_CONNS", "0")

		cfg, err := Load()
		require.NoError(t, err)
		// 0 is treated as "not set", so default (25) is used
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	})

	t.Run("validates MaxIdleConns cannot be negative", func(t *testing.T) {
		clearEnv()
		os.Setenv("STORELINK_DATABASE_MAX_IDLE_CONNS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})

	t.Run("validates delivery window ordering", func(t *testing.T) {
		clearEnv()
		os.Setenv("STORELINK_SHIPPING_MIN_DELIVERY_DAYS", "9")
		os.Setenv("STORELINK_SHIPPING_MAX_DELIVERY_DAYS", "3")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_delivery_days")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	originalEnv := map[string]string{
		"STORELINK_APP_ENV":              os.Getenv("STORELINK_APP_ENV"),
		"STORELINK_DATABASE_PASSWORD":    os.Getenv("STORELINK_DATABASE_PASSWORD"),
		"STORELINK_DATABASE_SSLMODE":     os.Getenv("STORELINK_DATABASE_SSLMODE"),
		"STORELINK_WEBHOOK_SECRET":       os.Getenv("STORELINK_WEBHOOK_SECRET"),
		"STORELINK_STOREFRONT_SCHEME":    os.Getenv("STORELINK_STOREFRONT_SCHEME"),
		"STORELINK_CARRIER_CALLBACK_URL": os.Getenv("STORELINK_CARRIER_CALLBACK_URL"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	// Helper to set valid production base config
	setValidProductionBase := func() {
		os.Setenv("STORELINK_APP_ENV", "production")
		os.Setenv("STORELINK_DATABASE_PASSWORD", "secure-password")
		os.Setenv("STORELINK_DATABASE_SSLMODE", "require")
		os.Setenv("STORELINK_WEBHOOK_SECRET", "shared-hmac-secret")
		os.Setenv("STORELINK_CARRIER_CALLBACK_URL", "https://api.example.com/api/v1/rates")
	}

	t.Run("requires database.password in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("STORELINK_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Setenv("STORELINK_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("requires webhook.secret in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("STORELINK_WEBHOOK_SECRET")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "webhook.secret is required in production")
	})

	t.Run("requires https storefront scheme in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Setenv("STORELINK_STOREFRONT_SCHEME", "http")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storefront.scheme must be https in production")
	})

	t.Run("requires https carrier callback URL in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("STORELINK_CARRIER_CALLBACK_URL")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "carrier.callback_url is required in production")

		os.Setenv("STORELINK_CARRIER_CALLBACK_URL", "http://api.example.com/api/v1/rates")
		_, err = Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be an https URL")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost")
		assert.Contains(t, dsn, "5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		// URL-encoded password should be in the DSN
		assert.Contains(t, dsn, "pass%40word%23123")
	})

	t.Run("handles empty password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.NotEmpty(t, dsn)
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", cfg.Addr())
}
