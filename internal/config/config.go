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
	Store         StoreConfig
	Ingest        IngestConfig
	ObjectStore   ObjectStoreConfig
	AI            AIConfig
	CORS          CORSConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type StoreConfig struct {
	Path         string
	QueryTimeout time.Duration
}

// IngestConfig controls the one-shot CSV load performed at startup.
// Source is "file" for a local gzip CSV path or "s3" for an object-store key.
type IngestConfig struct {
	Enabled   bool
	Source    string
	Path      string
	ObjectKey string
}

type ObjectStoreConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Prefix          string
}

type AIConfig struct {
	Endpoint           string
	APIKey             string
	Model              string
	PrimaryModel       string
	PrimaryDeployment  string
	FallbackDeployment string
	Temperature        float64
	Timeout            time.Duration
}

type CORSConfig struct {
	AllowedOrigins string
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
	if raw, ok := lookup("FOOTFALL_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid FOOTFALL_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "FOOTFALL_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FOOTFALL_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "FOOTFALL_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "FOOTFALL_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "FOOTFALL_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FOOTFALL_STORE_PATH", &cfg.Store.Path); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "FOOTFALL_STORE_QUERY_TIMEOUT", &cfg.Store.QueryTimeout); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "FOOTFALL_INGEST_ENABLED", &cfg.Ingest.Enabled); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FOOTFALL_INGEST_SOURCE", &cfg.Ingest.Source); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FOOTFALL_INGEST_PATH", &cfg.Ingest.Path); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FOOTFALL_INGEST_OBJECT_KEY", &cfg.Ingest.ObjectKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FOOTFALL_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FOOTFALL_OBJECTSTORE_REGION", &cfg.ObjectStore.Region); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FOOTFALL_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FOOTFALL_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FOOTFALL_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "FOOTFALL_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FOOTFALL_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FOOTFALL_AI_ENDPOINT", &cfg.AI.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FOOTFALL_AI_API_KEY", &cfg.AI.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FOOTFALL_AI_MODEL", &cfg.AI.Model); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FOOTFALL_AI_PRIMARY_MODEL", &cfg.AI.PrimaryModel); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FOOTFALL_AI_PRIMARY_DEPLOYMENT", &cfg.AI.PrimaryDeployment); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FOOTFALL_AI_FALLBACK_DEPLOYMENT", &cfg.AI.FallbackDeployment); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "FOOTFALL_AI_TEMPERATURE", &cfg.AI.Temperature); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "FOOTFALL_AI_TIMEOUT", &cfg.AI.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "FOOTFALL_CORS_ALLOWED_ORIGINS", &cfg.CORS.AllowedOrigins); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "FOOTFALL_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "FOOTFALL_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if cfg.Store.Path == "" {
		return Config{}, fmt.Errorf("store path is required")
	}
	if cfg.Ingest.Enabled {
		switch cfg.Ingest.Source {
		case "file":
			if cfg.Ingest.Path == "" {
				return Config{}, fmt.Errorf("ingest path is required for file source")
			}
		case "s3":
			if cfg.Ingest.ObjectKey == "" {
				return Config{}, fmt.Errorf("ingest object key is required for s3 source")
			}
		default:
			return Config{}, fmt.Errorf("invalid FOOTFALL_INGEST_SOURCE: %q", cfg.Ingest.Source)
		}
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "footfall-api"},
		HTTP: HTTPConfig{
			Address:      ":5001",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Store: StoreConfig{
			Path:         "footfall.db",
			QueryTimeout: 10 * time.Second,
		},
		Ingest: IngestConfig{
			Enabled: false,
			Source:  "file",
			Path:    "data/florida_complexes.csv.gz",
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:        "localhost:9000",
			Region:          "us-east-1",
			Bucket:          "footfall",
			AccessKeyID:     "minio",
			SecretAccessKey: "miniostorage",
			UseSSL:          false,
			Prefix:          "",
		},
		AI: AIConfig{
			Endpoint:           "https://api.openai.com/v1",
			Model:              "gpt-4-1106-preview",
			PrimaryModel:       "gpt-4",
			PrimaryDeployment:  "gpt-4",
			FallbackDeployment: "gpt-4-t",
			Temperature:        0.1,
			Timeout:            90 * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: "*",
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":15001"
		cfg.Store.Path = ":memory:"
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.ObjectStore.UseSSL = true
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

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
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
