package config

import (
	"maps"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalRequiredConfig provides database and Redis config needed for all tests
func minimalRequiredConfig() map[string]string {
	return map[string]string{
		"MIMIR_DB_HOST":        "localhost",
		"MIMIR_DB_PORT":        "5432",
		"MIMIR_DB_NAME":        "mimir_test",
		"MIMIR_DB_USER":        "test_user",
		"MIMIR_DB_PASSWORD":    "test_pass",
		"MIMIR_REDIS_HOST":     "localhost",
		"MIMIR_REDIS_PORT":     "6379",
		"MIMIR_REDIS_PASSWORD": "redis_password_123",
	}
}

// mergeEnvVars merges additional env vars with minimal required config
func mergeEnvVars(additional map[string]string) map[string]string {
	result := minimalRequiredConfig()
	maps.Copy(result, additional)
	return result
}

// validProductionConfig returns a complete valid production configuration
// with all required database, Redis, and control plane settings for production tests
func validProductionConfig() map[string]string {
	return map[string]string{
		// App
		"MIMIR_APP_ENV": "production",

		// Database
		"MIMIR_DB_HOST":     "prod-db.example.com",
		"MIMIR_DB_PORT":     "5432",
		"MIMIR_DB_NAME":     "mimir_prod",
		"MIMIR_DB_USER":     "prod_user",
		"MIMIR_DB_PASSWORD": "SuperSecure123!",
		"MIMIR_DB_SSL_MODE": "require",

		// Redis
		"MIMIR_REDIS_HOST":        "prod-redis.example.com",
		"MIMIR_REDIS_PORT":        "6379",
		"MIMIR_REDIS_PASSWORD":    "RedisSecure123!",
		"MIMIR_REDIS_TLS_ENABLED": "true",

		// Control Plane
		"MIMIR_SERVER_CONTROL_API_KEY_HASH":  "5dec7e1c36e8ec7f526cfa8ff6dc788daad76f6dd34467662eb47990dca6b55d",
		"MIMIR_SERVER_CONTROL_TLS_ENABLED":   "true",
		"MIMIR_SERVER_CONTROL_TLS_CERT_FILE": "/certs/control-cert.pem",
		"MIMIR_SERVER_CONTROL_TLS_KEY_FILE":  "/certs/control-key.pem",
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		want    func(t *testing.T, cfg *Config)
		wantErr bool
	}{
		{
			name:    "Should use defaults when no env vars are set",
			envVars: minimalRequiredConfig(),
			want: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "mimir", cfg.App.Name)
				assert.Equal(t, "dev", cfg.App.Version)
				assert.Equal(t, "development", cfg.App.Environment)
				assert.Equal(t, "info", cfg.App.LogLevel)
				assert.Equal(t, "text", cfg.App.LogFormat)
				assert.Equal(t, 30*time.Second, cfg.App.ShutdownTimeout)
				assert.Equal(t, "8080", cfg.Server.Control.Port)
				assert.Equal(t, "8081", cfg.Server.Data.Port)
				assert.Equal(t, 1024, cfg.Provider.CacheCapacity)
				assert.Equal(t, time.Hour, cfg.Provider.CacheTTL)
				assert.True(t, cfg.Watcher.Enabled)
				assert.Equal(t, 30*time.Second, cfg.Watcher.Interval)
			},
			wantErr: false,
		},
		{
			name: "Should load all custom environment variables correctly",
			envVars: mergeEnvVars(map[string]string{
				"MIMIR_APP_NAME":             "test-app",
				"MIMIR_APP_VERSION":          "1.0.0",
				"MIMIR_APP_ENV":              "staging",
				"MIMIR_APP_LOG_LEVEL":        "debug",
				"MIMIR_APP_LOG_FORMAT":       "json",
				"MIMIR_APP_SHUTDOWN_TIMEOUT": "60s",
				"MIMIR_SERVER_CONTROL_PORT":  "9090",
				"MIMIR_SERVER_DATA_PORT":     "8091",
				"MIMIR_WATCHER_ENABLED":      "false",
				"MIMIR_WATCHER_INTERVAL":     "10s",
				"MIMIR_PROVIDER_CACHE_TTL":   "15m",
			}),
			want: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "test-app", cfg.App.Name)
				assert.Equal(t, "1.0.0", cfg.App.Version)
				assert.Equal(t, "staging", cfg.App.Environment)
				assert.Equal(t, "debug", cfg.App.LogLevel)
				assert.Equal(t, "json", cfg.App.LogFormat)
				assert.Equal(t, 60*time.Second, cfg.App.ShutdownTimeout)
				assert.Equal(t, "9090", cfg.Server.Control.Port)
				assert.Equal(t, "8091", cfg.Server.Data.Port)
				assert.False(t, cfg.Watcher.Enabled)
				assert.Equal(t, 10*time.Second, cfg.Watcher.Interval)
				assert.Equal(t, 15*time.Minute, cfg.Provider.CacheTTL)
			},
			wantErr: false,
		},
		{
			name: "Should fail validation on invalid environment value",
			envVars: mergeEnvVars(map[string]string{
				"MIMIR_APP_ENV": "invalid",
			}),
			wantErr: true,
		},
		{
			name: "Should fail validation on invalid log level",
			envVars: mergeEnvVars(map[string]string{
				"MIMIR_APP_LOG_LEVEL": "trace",
			}),
			wantErr: true,
		},
		{
			name: "Should fail validation on invalid log format",
			envVars: mergeEnvVars(map[string]string{
				"MIMIR_APP_LOG_FORMAT": "xml",
			}),
			wantErr: true,
		},
		{
			name: "Should pass validation in staging environment",
			envVars: mergeEnvVars(map[string]string{
				"MIMIR_APP_ENV": "staging",
			}),
			want: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "staging", cfg.App.Environment)
			},
			wantErr: false,
		},
		{
			name: "Should allow missing passwords in non-production environments",
			envVars: mergeEnvVars(map[string]string{
				"MIMIR_APP_ENV":        "development",
				"MIMIR_DB_PASSWORD":    "", // Empty password OK in development
				"MIMIR_REDIS_PASSWORD": "", // Empty password OK in development
			}),
			want: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.App.Environment)
				assert.Equal(t, "", cfg.Database.Password)
				assert.Equal(t, "", cfg.Redis.Password)
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup: Set environment variables for this test
			// t.Setenv automatically prevents parallel execution and cleans up after the test
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			// Execute
			cfg, err := Load()

			// Assert
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			if tt.want != nil {
				tt.want(t, cfg)
			}
		})
	}
}
