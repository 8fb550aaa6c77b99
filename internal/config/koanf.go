package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/canvasboard/config.yaml",
}

const ConfigPathEnvVar = "CONFIG_PATH"

const defaultSessionSecret = "change-me-in-production"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "5000",
			FrontendURL:     "http://localhost:3000",
			CORSOrigins:     []string{"http://localhost:3000"},
			BodyLimit:       12 * 1024 * 1024,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Database: DatabaseConfig{
			Driver:         "mongo",
			URI:            "mongodb://localhost:27017",
			Name:           "whiteboard",
			Transactions:   false,
			EnsureIndexes:  true,
			ConnectTimeout: 10 * time.Second,
			AppUser:        "whiteboard_user",
		},
		Session: SessionConfig{
			Secret:     defaultSessionSecret,
			TTL:        7 * 24 * time.Hour,
			CookieName: "whiteboard_session",
		},
		MinIO: MinIOConfig{
			Enabled:  false,
			Endpoint: "localhost:9000",
			Bucket:   "whiteboard-assets",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Burst:   10,
			Window:  time.Minute,
		},
		Audit: AuditConfig{
			QueueSize: 1000,
		},
	}
}

// Load layers defaults, an optional YAML file and environment variables, in
// that order of precedence, then validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"port":             "server.port",
	"server_port":      "server.port",
	"frontend_url":     "server.frontend_url",
	"cors_origins":     "server.cors_origins",
	"body_limit":       "server.body_limit",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	"database_driver":       "database.driver",
	"mongo_uri":             "database.uri",
	"mongodb_uri":           "database.uri",
	"mongo_database":        "database.name",
	"mongo_transactions":    "database.transactions",
	"mongo_ensure_indexes":  "database.ensure_indexes",
	"mongo_connect_timeout": "database.connect_timeout",
	"mongo_app_user":        "database.app_user",
	"mongo_app_password":    "database.app_password",

	"jwt_secret":     "session.secret",
	"session_secret": "session.secret",
	"session_ttl":    "session.ttl",
	"cookie_name":    "session.cookie_name",
	"cookie_secure":  "session.cookie_secure",

	"minio_enabled":         "minio.enabled",
	"minio_endpoint":        "minio.endpoint",
	"minio_public_endpoint": "minio.public_endpoint",
	"minio_access_key":      "minio.access_key",
	"minio_secret_key":      "minio.secret_key",
	"minio_bucket":          "minio.bucket",
	"minio_use_ssl":         "minio.use_ssl",

	"google_client_id":     "google.client_id",
	"google_client_secret": "google.client_secret",
	"google_redirect_url":  "google.redirect_url",

	"log_level":  "logging.level",
	"log_format": "logging.format",

	"rate_limit_enabled": "rate_limit.enabled",
	"rate_limit_burst":   "rate_limit.burst",
	"rate_limit_window":  "rate_limit.window",

	"audit_queue_size": "audit.queue_size",
}

// envTransformFunc maps known environment variables onto config paths and
// drops everything else.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
