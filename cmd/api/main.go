package main

import (
	"context"
	"net/http"

	"commenergy-backend/internal/config"
	"commenergy-backend/internal/interfaces/router"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var fiberApp *fiber.App
var appCfg *config.Config
var startupDB *gorm.DB
var startupRdb *redis.Client
var flushSentry func()

func init() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load: " + err.Error())
	}
	appCfg = cfg
	config.SetupLogging(cfg)
	flushSentry, err = config.SetupSentry(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("sentry init failed, errors will not be reported")
	}
	app, db, rdb, err := router.CreateApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("app create")
	}
	fiberApp = app
	startupDB = db
	startupRdb = rdb
}

func Handler(w http.ResponseWriter, r *http.Request) {
	adaptor.FiberApp(fiberApp)(w, r)
}

func main() {
	defer flushSentry()
	port := appCfg.Port

	if startupDB != nil {
		sqlDB, err := startupDB.DB()
		if err != nil {
			log.Fatal().Err(err).Msg("Postgres: get DB")
		}
		if err := sqlDB.Ping(); err != nil {
			log.Fatal().Err(err).Msg("Postgres connection failed")
		}
		log.Info().Msg("Postgres connected")
	}
	if err := startupRdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	log.Info().Msg("Redis connected")
	if appCfg.APIBaseURL == "" {
		log.Warn().Msg("API_BASE_URL not set: every remote call will fail with 503")
	}
	log.Info().Str("port", port).Str("env", appCfg.Env).Str("remote", appCfg.APIBaseURL).Msg("Server running")
	log.Info().Msgf("Health check: http://localhost:%s/health/json", port)

	if err := fiberApp.Listen(":" + port); err != nil {
		log.Fatal().Err(err).Msg("listen")
	}
}
