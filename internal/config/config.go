package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath   = "CONFIG_PATH"
	EnvDBConnection = "DB_CONNECTION"
	EnvJWTSecret    = "JWT_SECRET"
	EnvJWTExpiry    = "JWT_EXPIRY"
	EnvRedisAddr    = "REDIS_ADDR"
	EnvBaseURL      = "BASE_URL"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// LoadDatabaseDSN reads the database DSN from the YAML config file. The
// DB_CONNECTION environment variable takes precedence.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	// fileConfig maps the YAML fields needed for DSN resolution.
	type fileConfig struct {
		DatabaseDSN string `yaml:"database-dsn"`
		Database    struct {
			DSN string `yaml:"dsn"`
		} `yaml:"database"`
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// defaultJWTExpiry is used when the config omits or invalidates JWT expiry.
const defaultJWTExpiry = 2 * time.Hour

// LoadJWTConfig loads JWT settings from the YAML config file with env overrides.
func LoadJWTConfig(configPath string) (JWTConfig, error) {
	// fileConfig maps the YAML fields needed for JWT settings.
	type fileConfig struct {
		JWT JWTConfig `yaml:"jwt"`
	}

	result := JWTConfig{Expiry: defaultJWTExpiry}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.JWT
		}
	}

	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		result.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			result.Expiry = expiry
		}
	}

	if result.Expiry <= 0 {
		result.Expiry = defaultJWTExpiry
	}
	return result, nil
}

// SMTPConfig holds mail delivery settings.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// LoadSMTPConfig loads SMTP settings from the YAML config file. Missing
// settings fall back to a local capture server on port 1025.
func LoadSMTPConfig(configPath string) (SMTPConfig, error) {
	// fileConfig maps the YAML fields needed for SMTP settings.
	type fileConfig struct {
		SMTP SMTPConfig `yaml:"smtp"`
	}

	result := SMTPConfig{Host: "localhost", Port: 1025, From: "noreply@example.com"}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			if strings.TrimSpace(cfg.SMTP.Host) != "" {
				result.Host = strings.TrimSpace(cfg.SMTP.Host)
			}
			if cfg.SMTP.Port > 0 {
				result.Port = cfg.SMTP.Port
			}
			result.Username = cfg.SMTP.Username
			result.Password = cfg.SMTP.Password
			if strings.TrimSpace(cfg.SMTP.From) != "" {
				result.From = strings.TrimSpace(cfg.SMTP.From)
			}
		}
	}
	return result, nil
}

// RedisConfig holds the shared-cache settings for the OTP store and rate limiter.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Enabled reports whether a Redis backend is configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// LoadRedisConfig loads Redis settings from the YAML config file with env overrides.
func LoadRedisConfig(configPath string) (RedisConfig, error) {
	// fileConfig maps the YAML fields needed for Redis settings.
	type fileConfig struct {
		Redis RedisConfig `yaml:"redis"`
	}

	var result RedisConfig

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.Redis
		}
	}

	if addr := strings.TrimSpace(os.Getenv(EnvRedisAddr)); addr != "" {
		result.Addr = addr
	}
	if result.DB < 0 {
		result.DB = 0
	}
	return result, nil
}

// ServerConfig holds listener and invite-URL settings.
type ServerConfig struct {
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base-url"`
}

// LoadServerConfig loads server settings from the YAML config file with env overrides.
func LoadServerConfig(configPath string) (ServerConfig, error) {
	// fileConfig maps the YAML fields needed for server settings.
	type fileConfig struct {
		Server ServerConfig `yaml:"server"`
	}

	result := ServerConfig{Port: 3000}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			if cfg.Server.Port > 0 {
				result.Port = cfg.Server.Port
			}
			result.BaseURL = strings.TrimSpace(cfg.Server.BaseURL)
		}
	}

	if baseURL := strings.TrimSpace(os.Getenv(EnvBaseURL)); baseURL != "" {
		result.BaseURL = baseURL
	}
	if result.BaseURL == "" {
		result.BaseURL = fmt.Sprintf("http://localhost:%d", result.Port)
	}
	return result, nil
}
