package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port        string
	Env         string
	CORSOrigins []string
	ClientDir   string

	// Storage
	UploadDir  string
	OutputDir  string
	OutputTTL  time.Duration
	UploadTTL  time.Duration
	JanitorInt time.Duration

	// Limits
	MaxTemplateSizeMB  int
	MaxTextLength      int
	GenerateRatePerMin int

	// LLM
	HTTPReferer       string
	LLMMaxAttempts    int
	LLMInitialBackoff time.Duration

	// Optional backing services
	RedisURL      string
	DatabaseURL   string
	MigrationsDir string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Env:         getEnvOrDefault("ENV", "development"),
		CORSOrigins: splitList(getEnvOrDefault("CORS_ORIGINS", "*")),
		ClientDir:   getEnvOrDefault("CLIENT_DIR", "../client/dist"),

		UploadDir:  getEnvOrDefault("UPLOAD_DIR", "./uploads"),
		OutputDir:  getEnvOrDefault("OUTPUT_DIR", "./output"),
		OutputTTL:  getEnvAsDurationOrDefault("OUTPUT_TTL", time.Hour),
		UploadTTL:  getEnvAsDurationOrDefault("UPLOAD_TTL", time.Hour),
		JanitorInt: getEnvAsDurationOrDefault("JANITOR_INTERVAL", 10*time.Minute),

		MaxTemplateSizeMB:  getEnvAsIntOrDefault("MAX_TEMPLATE_SIZE_MB", 50),
		MaxTextLength:      getEnvAsIntOrDefault("MAX_TEXT_LENGTH", 50000),
		GenerateRatePerMin: getEnvAsIntOrDefault("GENERATE_RATE_PER_MINUTE", 10),

		HTTPReferer:       getEnvOrDefault("HTTP_REFERER", "http://localhost:3001"),
		LLMMaxAttempts:    getEnvAsIntOrDefault("LLM_MAX_ATTEMPTS", 3),
		LLMInitialBackoff: getEnvAsDurationOrDefault("LLM_INITIAL_BACKOFF", 2*time.Second),

		RedisURL:      getEnvOrDefault("REDIS_URL", ""),
		DatabaseURL:   getEnvOrDefault("DATABASE_URL", ""),
		MigrationsDir: getEnvOrDefault("MIGRATIONS_DIR", "migrations"),
	}

	return cfg
}

// MaxTemplateBytes is the upload limit for template files.
func (c *Config) MaxTemplateBytes() int64 {
	return int64(c.MaxTemplateSizeMB) * 1024 * 1024
}

func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
