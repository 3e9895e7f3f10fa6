package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage and metadata backend identifiers.
const (
	StorageDisk  = "disk"
	StorageMinIO = "minio"

	MetadataMongo    = "mongo"
	MetadataPostgres = "postgres"
)

// DefaultAllowedTypes is the ingest allow-list.
var DefaultAllowedTypes = []string{
	"text/plain",
	"image/jpeg",
	"image/png",
	"application/json",
	"application/pdf",
	"image/gif",
	"text/csv",
}

// DefaultViewableTypes lists the types served inline by the view endpoint.
var DefaultViewableTypes = []string{
	"text/plain",
	"application/json",
	"application/pdf",
	"image/jpeg",
	"image/png",
	"image/gif",
}

// Config aggregates runtime configuration for the FileDrop API.
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Storage  StorageConfig
	Metadata MetadataConfig
	Mongo    MongoConfig
	Postgres PostgresConfig
	MinIO    MinIOConfig
	Redis    RedisConfig
	Tracing  TracingConfig
	Metrics  MetricsConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig selects the log level and encoder.
type LogConfig struct {
	Level  string
	Format string
}

// StorageConfig describes where uploaded bytes go and which types are accepted.
type StorageConfig struct {
	Backend        string
	Root           string
	MaxUploadBytes int64
	AllowedTypes   []string
	ViewableTypes  []string
}

// MetadataConfig selects the record store.
type MetadataConfig struct {
	Backend  string
	CacheTTL time.Duration
}

// MongoConfig contains MongoDB connection details.
type MongoConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	AuthSource string
	Collection string
}

// URI returns the MongoDB connection string.
func (m MongoConfig) URI() string {
	u := url.URL{
		Scheme: "mongodb",
		Host:   fmt.Sprintf("%s:%d", m.Host, m.Port),
		Path:   "/" + m.Database,
	}
	if m.User != "" {
		u.User = url.UserPassword(m.User, m.Password)
		if m.AuthSource != "" {
			u.RawQuery = url.Values{"authSource": []string{m.AuthSource}}.Encode()
		}
	}
	return u.String()
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(p.User), url.QueryEscape(p.Password), p.Host, p.Port, p.Database, p.SSLMode)
}

// MinIOConfig carries MinIO connection and bucket information.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
}

// RedisConfig enables the record cache when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// TracingConfig groups OpenTelemetry exporter settings.
type TracingConfig struct {
	Endpoint    string
	ServiceName string
}

// Enabled reports whether an OTLP endpoint was configured.
func (t TracingConfig) Enabled() bool {
	return t.Endpoint != ""
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:         getString("FILEDROP_API_HOST", "0.0.0.0"),
			Port:         getInt("FILEDROP_API_PORT", 3000),
			ReadTimeout:  getDuration("FILEDROP_API_READ_TIMEOUT", 60*time.Second),
			WriteTimeout: getDuration("FILEDROP_API_WRITE_TIMEOUT", 10*time.Minute),
			IdleTimeout:  getDuration("FILEDROP_API_IDLE_TIMEOUT", 60*time.Second),
			CORSOrigins:  getList("FILEDROP_CORS_ORIGINS", []string{"*"}),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getString("LOG_LEVEL", "info")),
			Format: strings.ToLower(getString("LOG_FORMAT", "json")),
		},
		Storage: StorageConfig{
			Backend:        strings.ToLower(getString("FILEDROP_STORAGE_BACKEND", StorageDisk)),
			Root:           getString("UPLOAD_DIR", "uploads"),
			MaxUploadBytes: getInt64("FILEDROP_MAX_UPLOAD_BYTES", 100*1024*1024),
			AllowedTypes:   getList("FILEDROP_ALLOWED_TYPES", DefaultAllowedTypes),
			ViewableTypes:  getList("FILEDROP_VIEWABLE_TYPES", DefaultViewableTypes),
		},
		Metadata: MetadataConfig{
			Backend:  strings.ToLower(getString("FILEDROP_METADATA_BACKEND", MetadataMongo)),
			CacheTTL: getDuration("FILEDROP_CACHE_TTL", 5*time.Minute),
		},
		Mongo: MongoConfig{
			Host:       getString("MONGO_HOST", "localhost"),
			Port:       getInt("MONGO_PORT", 27017),
			User:       getString("MONGO_USER", ""),
			Password:   getString("MONGO_PASSWORD", ""),
			Database:   getString("MONGO_DB", "filedrop"),
			AuthSource: getString("MONGO_AUTH_SOURCE", "admin"),
			Collection: getString("MONGO_COLLECTION", "files"),
		},
		Postgres: PostgresConfig{
			Host:     getString("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "filedrop"),
			Password: getString("POSTGRES_PASSWORD", "change-me"),
			Database: getString("POSTGRES_DB", "filedrop"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
		},
		MinIO: MinIOConfig{
			Endpoint:        getString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getString("MINIO_ROOT_USER", "filedrop"),
			SecretAccessKey: getString("MINIO_ROOT_PASSWORD", "change-me-strong-password"),
			Bucket:          getString("MINIO_BUCKET", "filedrop"),
			UseSSL:          getBool("MINIO_USE_SSL", false),
			Region:          getString("MINIO_REGION", ""),
		},
		Redis: RedisConfig{
			Addr:     getString("REDIS_ADDR", ""),
			Password: getString("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
		Tracing: TracingConfig{
			Endpoint:    getString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName: getString("OTEL_SERVICE_NAME", "filedrop"),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("FILEDROP_METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Storage.Backend {
	case StorageDisk:
		if strings.TrimSpace(c.Storage.Root) == "" {
			return fmt.Errorf("UPLOAD_DIR must not be empty")
		}
	case StorageMinIO:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Metadata.Backend {
	case MetadataMongo, MetadataPostgres:
	default:
		return fmt.Errorf("unknown metadata backend %q", c.Metadata.Backend)
	}

	if c.Storage.MaxUploadBytes <= 0 {
		return fmt.Errorf("FILEDROP_MAX_UPLOAD_BYTES must be positive")
	}
	if len(c.Storage.AllowedTypes) == 0 {
		return fmt.Errorf("FILEDROP_ALLOWED_TYPES must not be empty")
	}
	return nil
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

// getList splits a comma-separated variable, dropping blanks.
func getList(key string, fallback []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}
