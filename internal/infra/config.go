package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv            string        `validate:"required"`
	Port              string        `validate:"required,numeric"`
	GenerationBaseURL string        `validate:"required,url"`
	GenerationAPIKey  string        `validate:"required"`
	GenerationTimeout time.Duration `validate:"min=1000000000"`
	DatabaseURL       string
	CatalogFile       string
	CatalogCacheTTL   time.Duration
	GeoIPDBPath       string
	DefaultLocale     string `validate:"oneof=vi en"`
	AllowedOrigins    []string
	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration
	HTTPIdleTimeout   time.Duration
	RateLimitPerMin   int   `validate:"min=0"`
	SessionIdleTTL    time.Duration
	MaxUploadBytes    int64 `validate:"min=1"`
}

var configValidator = validator.New()

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		GenerationBaseURL: strings.TrimRight(getEnv("GENERATION_API_URL", "http://localhost:8000"), "/"),
		GenerationAPIKey:  strings.TrimSpace(os.Getenv("API_KEY_TOKEN")),
		GenerationTimeout: time.Second * time.Duration(getEnvInt("GENERATION_TIMEOUT_SECONDS", 360)),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		CatalogFile:       os.Getenv("CATALOG_FILE"),
		CatalogCacheTTL:   time.Second * time.Duration(getEnvInt("CATALOG_CACHE_TTL_SECONDS", 300)),
		GeoIPDBPath:       os.Getenv("GEOIP_DB_PATH"),
		DefaultLocale:     strings.ToLower(getEnv("DEFAULT_LOCALE", "vi")),
		AllowedOrigins:    splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 60)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 420)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		SessionIdleTTL:    time.Minute * time.Duration(getEnvInt("SESSION_IDLE_TTL_MINUTES", 60)),
		MaxUploadBytes:    int64(getEnvInt("MAX_UPLOAD_MB", 20)) << 20,
	}

	if cfg.GenerationAPIKey == "" {
		return nil, fmt.Errorf("API_KEY_TOKEN is required")
	}
	if err := configValidator.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs with developer defaults.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
