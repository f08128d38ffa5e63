package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// Store backends selectable via config.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port           string   `yaml:"port"`
	LogLevel       string   `yaml:"logLevel"`
	PublicBaseURL  string   `yaml:"publicBaseURL"`
	StoreBackend   string   `yaml:"storeBackend"`
	DatabaseURL    string   `yaml:"databaseURL"`
	RedisAddr      string   `yaml:"redisAddr"`
	RedisPassword  string   `yaml:"redisPassword"`
	MinioEndpoint  string   `yaml:"minioEndpoint"`
	MinioAccessKey string   `yaml:"minioAccessKey"`
	MinioSecretKey string   `yaml:"minioSecretKey"`
	MinioBucket    string   `yaml:"minioBucket"`
	MinioUseSSL    bool     `yaml:"minioUseSSL"`
	TokenSecret    string   `yaml:"tokenSecret"`
	MaxUploadBytes int64    `yaml:"maxUploadBytes"`
	FragmentSize   int      `yaml:"fragmentSize"`
	DebounceMs     int      `yaml:"debounceMs"`
	TrustedProxies []string `yaml:"trustedProxies"`
	CreateLimit    int      `yaml:"createLimit"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("PUBLIC_BASE_URL"); v != "" {
		cfg.PublicBaseURL = v
	}
	if v := os.Getenv("ROOM_STORE_BACKEND"); v != "" {
		cfg.StoreBackend = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v == "true" {
		cfg.MinioUseSSL = true
	}
	if v := os.Getenv("PAGEPAIR_TOKEN_SECRET"); v != "" {
		cfg.TokenSecret = v
	}
	if v := os.Getenv("ROOM_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("ROOM_FRAGMENT_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FragmentSize = n
		}
	}
	if v := os.Getenv("ROOM_DEBOUNCE_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DebounceMs = n
		}
	}
	if v := os.Getenv("ROOM_TRUSTED_PROXIES"); v != "" {
		cfg.TrustedProxies = splitCSV(v)
	}
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = BackendPostgres
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.TokenSecret == "" {
		return errors.New("config: tokenSecret is required (set in config.yaml or PAGEPAIR_TOKEN_SECRET)")
	}
	switch cfg.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return errors.New("config: databaseURL is required for the postgres backend")
		}
		if cfg.RedisAddr == "" {
			return errors.New("config: redisAddr is required for the postgres backend")
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", cfg.StoreBackend)
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
