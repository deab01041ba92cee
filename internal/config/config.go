package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	APIBaseURL          string // remote Commenergy API, e.g. https://api.commenergy.example/v1
	APITimeout          time.Duration
	SessionSecret       string
	DatabaseURL         string
	RedisURL            string
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string
	SentryDSN           string
	LogLevel            string
	CacheTTL            time.Duration
	DraftTTL            time.Duration
	BulkConcurrency     int
	MaxUploadBytes      int64
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("API_TIMEOUT_SECONDS", 15)
	viper.SetDefault("CACHE_TTL_SECONDS", 60)
	viper.SetDefault("DRAFT_TTL_HOURS", 12)
	viper.SetDefault("BULK_UPDATE_CONCURRENCY", 8)
	viper.SetDefault("MAX_UPLOAD_MB", 10)

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}

	concurrency := viper.GetInt("BULK_UPDATE_CONCURRENCY")
	if concurrency < 1 {
		concurrency = 1
	}

	return &Config{
		Env:                 env,
		Port:                viper.GetString("PORT"),
		APIBaseURL:          strings.TrimRight(viper.GetString("API_BASE_URL"), "/"),
		APITimeout:          time.Duration(viper.GetInt("API_TIMEOUT_SECONDS")) * time.Second,
		SessionSecret:       viper.GetString("SESSION_SECRET"),
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
		SentryDSN:           viper.GetString("SENTRY_DSN"),
		LogLevel:            viper.GetString("LOG_LEVEL"),
		CacheTTL:            time.Duration(viper.GetInt("CACHE_TTL_SECONDS")) * time.Second,
		DraftTTL:            time.Duration(viper.GetInt("DRAFT_TTL_HOURS")) * time.Hour,
		BulkConcurrency:     concurrency,
		MaxUploadBytes:      int64(viper.GetInt("MAX_UPLOAD_MB")) << 20,
	}, nil
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
