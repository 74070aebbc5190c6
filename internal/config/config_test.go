package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:                      "3000",
		Env:                       "development",
		JWTAccessSecret:           "access-secret-at-least-32-characters",
		JWTRefreshSecret:          "refresh-secret-at-least-32-characters",
		JWTAccessExpiresInMinutes: 30,
		JWTRefreshExpiresInDays:   30,
		DBPassword:                "secure-password",
		DBSSLMode:                 "require",
		DBConnMaxLifetimeMinutes:  5,
		TracingSampleRatio:        1,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"Valid development", func(c *Config) {}, false},
		{"Missing port", func(c *Config) { c.Port = "" }, true},
		{"Missing access secret", func(c *Config) { c.JWTAccessSecret = "" }, true},
		{"Missing refresh secret", func(c *Config) { c.JWTRefreshSecret = "" }, true},
		{"Identical secrets", func(c *Config) { c.JWTRefreshSecret = c.JWTAccessSecret }, true},
		{"Zero access expiry", func(c *Config) { c.JWTAccessExpiresInMinutes = 0 }, true},
		{"Negative refresh expiry", func(c *Config) { c.JWTRefreshExpiresInDays = -1 }, true},
		{"Sample ratio above one", func(c *Config) { c.TracingSampleRatio = 1.5 }, true},
		{"Bootstrap username without password", func(c *Config) { c.BootstrapUsername = "admin" }, true},
		{"Bootstrap pair", func(c *Config) {
			c.BootstrapUsername = "admin"
			c.BootstrapPassword = "secret"
		}, false},
		{"Production valid", func(c *Config) { c.Env = "production" }, false},
		{"Production default secrets", func(c *Config) {
			c.Env = "production"
			c.JWTAccessSecret = defaultAccessSecret
		}, true},
		{"Production short secret", func(c *Config) {
			c.Env = "prod"
			c.JWTRefreshSecret = "short"
		}, true},
		{"Production weak DB password", func(c *Config) {
			c.Env = "production"
			c.DBPassword = "password"
		}, true},
		{"Production SSL disabled", func(c *Config) {
			c.Env = "production"
			c.DBSSLMode = "disable"
		}, true},
		{"Development SSL disabled", func(c *Config) { c.DBSSLMode = "disable" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("JWT_ACCESS_EXPIRES_IN_MINUTES", "15")
	t.Setenv("PORT", "4321")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, 15, c.JWTAccessExpiresInMinutes)
	assert.Equal(t, "4321", c.Port)
	assert.Equal(t, 30, c.JWTRefreshExpiresInDays)
	assert.NotEqual(t, c.JWTAccessSecret, c.JWTRefreshSecret)
}

func TestLoadConfig_MissingProfileFile(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "staging-does-not-exist")

	_, err := LoadConfig()
	assert.Error(t, err)
}
