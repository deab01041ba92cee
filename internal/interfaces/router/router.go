package router

import (
	authsvc "commenergy-backend/internal/application/auth"
	commsvc "commenergy-backend/internal/application/communities"
	docsvc "commenergy-backend/internal/application/documents"
	exportsvc "commenergy-backend/internal/application/export"
	sharingsvc "commenergy-backend/internal/application/sharing"
	versionsvc "commenergy-backend/internal/application/versions"
	"commenergy-backend/internal/config"
	"commenergy-backend/internal/infrastructure/cache"
	"commenergy-backend/internal/infrastructure/commenergyapi"
	"commenergy-backend/internal/infrastructure/database"
	authhandler "commenergy-backend/internal/interfaces/handlers/auth"
	commhandler "commenergy-backend/internal/interfaces/handlers/communities"
	dochandler "commenergy-backend/internal/interfaces/handlers/documents"
	exporthandler "commenergy-backend/internal/interfaces/handlers/exports"
	healthhandler "commenergy-backend/internal/interfaces/handlers/health"
	sharinghandler "commenergy-backend/internal/interfaces/handlers/sharing"
	versionhandler "commenergy-backend/internal/interfaces/handlers/versions"
	"commenergy-backend/internal/middleware"
	"commenergy-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp wires config, stores, services and routes. The database is
// optional; without DATABASE_URL commits are not recorded and cannot be retried.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	sessionCfg := middleware.SessionConfig{
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.IsProduction(),
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, nil, err
	}

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
	} else {
		log.Warn().Msg("DATABASE_URL not set: sharing commits will not be recorded")
	}

	api := commenergyapi.New(cfg.APIBaseURL, cfg.APITimeout)
	sessions := &authsvc.SessionStore{Rdb: rdb}
	drafts := &sharingsvc.RedisDraftStore{Rdb: rdb, TTL: cfg.DraftTTL}
	responseCache := &cache.Cache{Rdb: rdb, TTL: cfg.CacheTTL}

	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		EnableTrustedProxyCheck: true,
		BodyLimit:               int(cfg.MaxUploadBytes) + 1<<20,
		ErrorHandler: middleware.NewErrorHandler(middleware.ErrorHandlerConfig{
			Sessions: sessions,
			Drafts:   drafts,
			Cookie:   sessionCfg,
			Rdb:      rdb,
		}),
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		API:            api,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	if db != nil {
		hh.DB = &gormDBPinger{db: db}
	}
	app.Get("/", hh.Dashboard)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	// Services
	auths := &authsvc.Service{API: api, Sessions: sessions, Drafts: drafts}
	comms := &commsvc.Service{API: api, Cache: responseCache}
	shs := &sharingsvc.Service{
		API:         api,
		Cache:       responseCache,
		Drafts:      drafts,
		Concurrency: cfg.BulkConcurrency,
	}
	if db != nil {
		shs.Commits = &sharingsvc.GormCommitStore{DB: db}
	}
	vs := &versionsvc.Service{API: api, Cache: responseCache, Drafts: shs}
	es := &exportsvc.Service{Rows: shs, Communities: comms}
	ds := &docsvc.Service{API: api, Cache: responseCache, MaxBytes: cfg.MaxUploadBytes}

	// Auth
	ah := &authhandler.Handlers{Service: auths, Config: sessionCfg}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", ah.Login)
	authGroup.Post("/forgot-password", ah.ForgotPassword)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)
	authGroup.Delete("/sessions", ah.LogoutAll)

	view := middleware.AuthorizePermission(constants.ViewData)
	edit := middleware.AuthorizePermission(constants.EditSharings)
	manageVersions := middleware.AuthorizePermission(constants.ManageVersions)
	manageDocs := middleware.AuthorizePermission(constants.ManageDocuments)

	cg := app.Group("/api/v1/communities", middleware.RequireAuth())

	// Communities
	ch := &commhandler.Handlers{Service: comms}
	cg.Get("/", view, ch.List)
	cg.Get("/:id", view, ch.Get)
	cg.Get("/:id/community-contracts", view, ch.Contracts)
	cg.Get("/:id/terms-agreements/:termsId", view, ch.TermsAgreement)

	// Draft and commits
	sh := &sharinghandler.Handlers{Service: shs}
	cg.Get("/:id/draft", view, sh.Draft)
	cg.Put("/:id/draft/contracts/:ccId/sharing", edit, sh.EditSharing)
	cg.Put("/:id/draft/contracts/:ccId/fee", edit, sh.EditFee)
	cg.Post("/:id/draft/reset", edit, sh.Reset)
	cg.Post("/:id/draft/commit", edit, sh.Commit)
	cg.Get("/:id/sharing-commits/:commitId", view, sh.GetCommit)
	cg.Post("/:id/sharing-commits/:commitId/retry", edit, sh.Retry)

	// Sharing versions
	vh := &versionhandler.Handlers{Service: vs}
	cg.Get("/:id/sharing-versions", view, vh.List)
	cg.Post("/:id/sharing-versions", manageVersions, vh.Create)
	cg.Patch("/:id/sharing-versions/:versionId/production", manageVersions, vh.SetProduction)
	cg.Delete("/:id/sharing-versions/:versionId", manageVersions, vh.Delete)

	// Export
	eh := &exporthandler.Handlers{Service: es}
	cg.Get("/:id/export", view, eh.Export)

	// Documents
	dh := &dochandler.Handlers{Service: ds}
	cg.Get("/:id/documents", view, dh.List)
	cg.Post("/:id/documents", manageDocs, dh.Upload)
	cg.Delete("/:id/documents/:documentId", manageDocs, dh.Delete)

	return app, db, rdb, nil
}
