// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultAccessSecret  = "dev-access-secret-change-in-production"
	defaultRefreshSecret = "dev-refresh-secret-change-in-production"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT" yaml:"port"`
	Env            string `mapstructure:"APP_ENV" yaml:"app_env"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS" yaml:"feature_flags"`

	DBHost                        string `mapstructure:"DB_HOST" yaml:"db_host"`
	DBPort                        string `mapstructure:"DB_PORT" yaml:"db_port"`
	DBUser                        string `mapstructure:"DB_USER" yaml:"db_user"`
	DBPassword                    string `mapstructure:"DB_PASSWORD" yaml:"-"`
	DBName                        string `mapstructure:"DB_NAME" yaml:"db_name"`
	DBSSLMode                     string `mapstructure:"DB_SSLMODE" yaml:"db_sslmode"`
	DBSchemaMode                  string `mapstructure:"DB_SCHEMA_MODE" yaml:"db_schema_mode"`
	DBAutoMigrateAllowDestructive bool   `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE" yaml:"db_automigrate_allow_destructive"`
	DBMaxOpenConns                int    `mapstructure:"DB_MAX_OPEN_CONNS" yaml:"db_max_open_conns"`
	DBMaxIdleConns                int    `mapstructure:"DB_MAX_IDLE_CONNS" yaml:"db_max_idle_conns"`
	DBConnMaxLifetimeMinutes      int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES" yaml:"db_conn_max_lifetime_minutes"`

	RedisURL string `mapstructure:"REDIS_URL" yaml:"redis_url"`

	JWTAccessSecret           string `mapstructure:"JWT_ACCESS_SECRET" yaml:"-"`
	JWTRefreshSecret          string `mapstructure:"JWT_REFRESH_SECRET" yaml:"-"`
	JWTAccessExpiresInMinutes int    `mapstructure:"JWT_ACCESS_EXPIRES_IN_MINUTES" yaml:"jwt_access_expires_in_minutes"`
	JWTRefreshExpiresInDays   int    `mapstructure:"JWT_REFRESH_EXPIRES_IN_DAYS" yaml:"jwt_refresh_expires_in_days"`
	BcryptCost                int    `mapstructure:"BCRYPT_COST" yaml:"bcrypt_cost"`

	TracingEnabled     bool    `mapstructure:"TRACING_ENABLED" yaml:"tracing_enabled"`
	TracingExporter    string  `mapstructure:"TRACING_EXPORTER" yaml:"tracing_exporter"`
	OTLPEndpoint       string  `mapstructure:"OTLP_ENDPOINT" yaml:"otlp_endpoint"`
	TracingSampleRatio float64 `mapstructure:"TRACING_SAMPLE_RATIO" yaml:"tracing_sample_ratio"`

	BootstrapUsername string `mapstructure:"BOOTSTRAP_USERNAME" yaml:"bootstrap_username"`
	BootstrapPassword string `mapstructure:"BOOTSTRAP_PASSWORD" yaml:"-"`
}

// IsProduction reports whether the config targets a production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// LoadConfig loads application configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	// .env is optional; real environment variables always win.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	viper.SetDefault("PORT", "3000")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	viper.SetDefault("FEATURE_FLAGS", "registration=on")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "blog")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "blog")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")
	viper.SetDefault("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE", false)
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("JWT_ACCESS_SECRET", defaultAccessSecret)
	viper.SetDefault("JWT_REFRESH_SECRET", defaultRefreshSecret)
	viper.SetDefault("JWT_ACCESS_EXPIRES_IN_MINUTES", 30)
	viper.SetDefault("JWT_REFRESH_EXPIRES_IN_DAYS", 30)
	viper.SetDefault("BCRYPT_COST", 10)
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLE_RATIO", 1.0)
	viper.SetDefault("BOOTSTRAP_USERNAME", "")
	viper.SetDefault("BOOTSTRAP_PASSWORD", "")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.DBSchemaMode = strings.ToLower(strings.TrimSpace(c.DBSchemaMode))
	c.TracingExporter = strings.ToLower(strings.TrimSpace(c.TracingExporter))
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTAccessSecret == "" || c.JWTRefreshSecret == "" {
		return errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are required")
	}
	if c.JWTAccessSecret == c.JWTRefreshSecret {
		return errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if c.JWTAccessExpiresInMinutes <= 0 {
		return errors.New("JWT_ACCESS_EXPIRES_IN_MINUTES must be positive")
	}
	if c.JWTRefreshExpiresInDays <= 0 {
		return errors.New("JWT_REFRESH_EXPIRES_IN_DAYS must be positive")
	}
	if c.DBConnMaxLifetimeMinutes < 0 {
		return errors.New("DB_CONN_MAX_LIFETIME_MINUTES must not be negative")
	}
	if c.TracingSampleRatio < 0 || c.TracingSampleRatio > 1 {
		return errors.New("TRACING_SAMPLE_RATIO must be between 0 and 1")
	}
	if (c.BootstrapUsername == "") != (c.BootstrapPassword == "") {
		return errors.New("BOOTSTRAP_USERNAME and BOOTSTRAP_PASSWORD must be set together")
	}

	if c.IsProduction() {
		if c.JWTAccessSecret == defaultAccessSecret || c.JWTRefreshSecret == defaultRefreshSecret {
			return errors.New("JWT secrets must be changed from the default values in production")
		}
		if len(c.JWTAccessSecret) < 32 || len(c.JWTRefreshSecret) < 32 {
			return errors.New("JWT secrets must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable SSL in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTAccessSecret) < 32 || len(c.JWTRefreshSecret) < 32 {
		log.Println("WARNING: JWT secrets are shorter than 32 characters. Use stronger secrets in production.")
	}

	return nil
}
