package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Query         QueryConfig
	LocalEngines  LocalEnginesConfig
	Connections   ConnectionsConfig
	Share         ShareConfig
	Export        ExportConfig
	ObjectStore   ObjectStoreConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxBodyBytes   int64
	AllowedOrigins []string
}

type QueryConfig struct {
	// Timeout bounds each adapter call. Zero leaves calls unbounded.
	Timeout time.Duration
}

// LocalEnginesConfig controls the engines that run inside the server process.
type LocalEnginesConfig struct {
	Enabled bool
	// DataDir holds every database file the local engines may open.
	DataDir string
}

type ConnectionsConfig struct {
	Path string
}

type ShareConfig struct {
	BaseURL string
}

type ExportConfig struct {
	DefaultFormat      string
	ObjectStoreEnabled bool
}

type ObjectStoreConfig struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("SQLPEEK_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid SQLPEEK_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "SQLPEEK_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLPEEK_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SQLPEEK_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SQLPEEK_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SQLPEEK_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyInt64(lookup, "SQLPEEK_HTTP_MAX_BODY_BYTES", &cfg.HTTP.MaxBodyBytes); err != nil {
		return Config{}, err
	}
	if err := applyList(lookup, "SQLPEEK_HTTP_ALLOWED_ORIGINS", &cfg.HTTP.AllowedOrigins); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SQLPEEK_QUERY_TIMEOUT", &cfg.Query.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "SQLPEEK_LOCAL_ENGINES_ENABLED", &cfg.LocalEngines.Enabled); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLPEEK_LOCAL_DATA_DIR", &cfg.LocalEngines.DataDir); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLPEEK_CONNECTIONS_PATH", &cfg.Connections.Path); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLPEEK_SHARE_BASE_URL", &cfg.Share.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLPEEK_EXPORT_DEFAULT_FORMAT", &cfg.Export.DefaultFormat); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "SQLPEEK_EXPORT_OBJECTSTORE_ENABLED", &cfg.Export.ObjectStoreEnabled); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLPEEK_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLPEEK_OBJECTSTORE_REGION", &cfg.ObjectStore.Region); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLPEEK_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLPEEK_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLPEEK_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "SQLPEEK_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLPEEK_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "SQLPEEK_OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "SQLPEEK_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "SQLPEEK_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if cfg.HTTP.MaxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("SQLPEEK_HTTP_MAX_BODY_BYTES must be positive")
	}
	if cfg.Query.Timeout < 0 {
		return Config{}, fmt.Errorf("SQLPEEK_QUERY_TIMEOUT must not be negative")
	}
	if cfg.LocalEngines.Enabled && cfg.LocalEngines.DataDir == "" {
		return Config{}, fmt.Errorf("SQLPEEK_LOCAL_DATA_DIR is required when local engines are enabled")
	}
	switch strings.ToLower(cfg.Export.DefaultFormat) {
	case "xlsx", "csv", "parquet":
		cfg.Export.DefaultFormat = strings.ToLower(cfg.Export.DefaultFormat)
	default:
		return Config{}, fmt.Errorf("invalid SQLPEEK_EXPORT_DEFAULT_FORMAT: %q", cfg.Export.DefaultFormat)
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "sqlpeek-api"},
		HTTP: HTTPConfig{
			Address:        ":3001",
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   5 * time.Minute,
			IdleTimeout:    60 * time.Second,
			MaxBodyBytes:   10 << 20,
			AllowedOrigins: []string{"*"},
		},
		LocalEngines: LocalEnginesConfig{
			Enabled: false,
			DataDir: "data",
		},
		Connections: ConnectionsConfig{
			Path: "connections.yaml",
		},
		Share: ShareConfig{
			BaseURL: "http://localhost:5173/",
		},
		Export: ExportConfig{
			DefaultFormat:      "xlsx",
			ObjectStoreEnabled: false,
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "sqlpeek-exports",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			UseSSL:           false,
			Prefix:           "",
			AutoCreateBucket: true,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":13001"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Connections.Path = ""
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.HTTP.AllowedOrigins = nil
		cfg.Query.Timeout = 5 * time.Minute
		cfg.ObjectStore.UseSSL = true
		cfg.ObjectStore.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyList(lookup LookupFunc, key string, dst *[]string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	values := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	*dst = values
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
