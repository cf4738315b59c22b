package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for file configuration.
const DefaultConfigFile = "settingsadmin.yaml"

// DefaultEnvFile is the dotenv file loaded before the environment overlay.
const DefaultEnvFile = ".env"

// Load returns a Config using the hierarchy: defaults < file < .env < ENV.
// The config file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML or TOML path using the
// hierarchy: defaults < file < .env < ENV. The file is optional.
func LoadFrom(path string) (*Config, error) {
	cfg := Defaults()

	if err := loadFile(&cfg, path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}

	if err := loadDotEnv(DefaultEnvFile); err != nil {
		return nil, fmt.Errorf("config dotenv: %w", err)
	}
	loadEnv(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadFile reads the config file and unmarshals it over cfg. Files ending in
// .toml are decoded as TOML, everything else as YAML.
// Returns nil if the file does not exist.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if strings.HasSuffix(strings.ToLower(path), ".toml") {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// loadDotEnv populates the process environment from a dotenv file without
// overriding variables that are already set. A missing file is ignored.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "SETTINGSADMIN_PORT")
	setList(&cfg.Server.CORSOrigins, "SETTINGSADMIN_CORS_ORIGINS")
	setInt64(&cfg.Server.MaxBodyBytes, "SETTINGSADMIN_MAX_BODY_BYTES")

	setString(&cfg.UI.Port, "SETTINGSADMIN_UI_PORT")
	setString(&cfg.UI.APIURL, "SETTINGSADMIN_API_URL")
	setInt(&cfg.UI.PageSize, "SETTINGSADMIN_UI_PAGE_SIZE")
	setDuration(&cfg.UI.StaleTime, "SETTINGSADMIN_UI_STALE_TIME")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "SETTINGSADMIN_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "SETTINGSADMIN_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "SETTINGSADMIN_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "SETTINGSADMIN_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "SETTINGSADMIN_PG_HEALTH_CHECK")

	setString(&cfg.NATS.URL, "NATS_URL")

	// Cache
	setInt64(&cfg.Cache.L1MaxSizeMB, "SETTINGSADMIN_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Backend, "SETTINGSADMIN_CACHE_L2_BACKEND")
	setString(&cfg.Cache.L2Bucket, "SETTINGSADMIN_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "SETTINGSADMIN_CACHE_L2_TTL")

	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")

	setString(&cfg.Logging.Level, "SETTINGSADMIN_LOG_LEVEL")
	setString(&cfg.Logging.Service, "SETTINGSADMIN_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "SETTINGSADMIN_LOG_ASYNC")

	setString(&cfg.OTel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.OTel.ServiceName, "OTEL_SERVICE_NAME")
	setBool(&cfg.OTel.Insecure, "SETTINGSADMIN_OTEL_INSECURE")

	setInt(&cfg.Breaker.MaxFailures, "SETTINGSADMIN_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "SETTINGSADMIN_BREAKER_TIMEOUT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setList splits a comma-separated value, dropping empty entries.
func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
