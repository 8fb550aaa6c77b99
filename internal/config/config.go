package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Session   SessionConfig   `koanf:"session"`
	MinIO     MinIOConfig     `koanf:"minio"`
	Google    GoogleConfig    `koanf:"google"`
	Logging   LoggingConfig   `koanf:"logging"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Audit     AuditConfig     `koanf:"audit"`
}

type ServerConfig struct {
	Port            string        `koanf:"port"`
	FrontendURL     string        `koanf:"frontend_url"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	BodyLimit       int           `koanf:"body_limit"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"`
}

type DatabaseConfig struct {
	// Driver is "mongo" or "memory".
	Driver         string        `koanf:"driver"`
	URI            string        `koanf:"uri"`
	Name           string        `koanf:"name"`
	Transactions   bool          `koanf:"transactions"`
	EnsureIndexes  bool          `koanf:"ensure_indexes"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	AppUser        string        `koanf:"app_user"`
	AppPassword    string        `koanf:"app_password"`
}

type SessionConfig struct {
	Secret       string        `koanf:"secret"`
	TTL          time.Duration `koanf:"ttl"`
	CookieName   string        `koanf:"cookie_name"`
	CookieSecure bool          `koanf:"cookie_secure"`
}

type MinIOConfig struct {
	Enabled        bool   `koanf:"enabled"`
	Endpoint       string `koanf:"endpoint"`
	PublicEndpoint string `koanf:"public_endpoint"`
	AccessKey      string `koanf:"access_key"`
	SecretKey      string `koanf:"secret_key"`
	Bucket         string `koanf:"bucket"`
	UseSSL         bool   `koanf:"use_ssl"`
}

type GoogleConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	RedirectURL  string `koanf:"redirect_url"`
}

func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type RateLimitConfig struct {
	Enabled bool          `koanf:"enabled"`
	Burst   int           `koanf:"burst"`
	Window  time.Duration `koanf:"window"`
}

type AuditConfig struct {
	QueueSize int `koanf:"queue_size"`
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	switch c.Database.Driver {
	case "mongo":
		if c.Database.URI == "" {
			errs = append(errs, errors.New("database.uri is required for the mongo driver"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be mongo or memory, got %q", c.Database.Driver))
	}
	if c.Database.Name == "" {
		errs = append(errs, errors.New("database.name is required"))
	}
	if c.Session.Secret == "" {
		errs = append(errs, errors.New("session.secret is required"))
	}
	if strings.EqualFold(c.Server.Environment, "production") && c.Session.Secret == defaultSessionSecret {
		errs = append(errs, errors.New("session.secret must be changed in production"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session.ttl must be positive"))
	}
	if c.MinIO.Enabled && (c.MinIO.Endpoint == "" || c.MinIO.Bucket == "") {
		errs = append(errs, errors.New("minio.endpoint and minio.bucket are required when minio is enabled"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}
	if c.RateLimit.Enabled && (c.RateLimit.Burst <= 0 || c.RateLimit.Window <= 0) {
		errs = append(errs, errors.New("rate_limit.burst and rate_limit.window must be positive"))
	}

	return errors.Join(errs...)
}
