package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/prompthive/server/internal/api/handlers"
	"github.com/prompthive/server/internal/api/middleware"
	"github.com/prompthive/server/internal/assets"
	"github.com/prompthive/server/internal/audit"
	"github.com/prompthive/server/internal/auth"
	"github.com/prompthive/server/internal/backup"
	"github.com/prompthive/server/internal/cache"
	"github.com/prompthive/server/internal/config"
	"github.com/prompthive/server/internal/library"
	"github.com/prompthive/server/internal/queue"
	"github.com/prompthive/server/internal/storage"
	"github.com/prompthive/server/internal/store/postgres"
	"github.com/prompthive/server/internal/transfer"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client
	cfg   *config.Config
	jwt   *auth.JWTMiddleware
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) *Router {
	st := postgres.New(db)
	return &Router{
		mux:   chi.NewRouter(),
		db:    db,
		redis: rdb,
		cfg:   cfg,
		jwt:   auth.NewJWTMiddleware(cfg.Auth.JWTSecret, st),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// Initialize services
	st := postgres.New(rt.db)
	uploads := storage.NewLocalStorage(rt.cfg.Uploads.Dir)
	assetSvc := assets.NewService(uploads)
	librarySvc := library.NewService(st, assetSvc)
	importer := transfer.NewImporter(st, assetSvc)
	exporter := transfer.NewExporter(st, assetSvc)
	backupSvc := backup.NewService(st, assetSvc, rt.cfg.Backup.Dir)
	auditSvc := audit.NewService(rt.db)
	queueClient := queue.NewClient(rt.cfg.Redis)
	cacheSvc := cache.NewCache(rt.redis)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.jwt.Authenticate)

		promptH := handlers.NewPromptHandler(librarySvc)
		r.Route("/prompts", func(r chi.Router) {
			r.Post("/", promptH.Create)
			r.Get("/", promptH.List)
			r.Get("/{id}", promptH.Get)
			r.Delete("/{id}", promptH.Delete)
		})

		collectionH := handlers.NewCollectionHandler(librarySvc)
		r.Route("/collections", func(r chi.Router) {
			r.Get("/", collectionH.List)
			r.Post("/", collectionH.Create)
			r.Put("/{id}/parent", collectionH.Move)
			r.Delete("/{id}", collectionH.Delete)
		})

		tagH := handlers.NewTagHandler(librarySvc)
		r.Get("/tags", tagH.List)

		auditH := handlers.NewAuditHandler(auditSvc)
		r.Get("/audit", auditH.Recent)

		transferH := handlers.NewTransferHandler(importer, exporter, cacheSvc, auditSvc)
		r.Route("/transfer", func(r chi.Router) {
			r.Post("/import", transferH.Import)
			r.Get("/progress", transferH.Progress)
			r.Delete("/progress", transferH.ResetProgress)
			r.Post("/export/v2", transferH.ExportV2)
			r.Post("/export/zero", transferH.ExportZero)
		})

		backupH := handlers.NewBackupHandler(backupSvc, queueClient, auditSvc)
		r.Route("/backup", func(r chi.Router) {
			r.Post("/run", backupH.Run)
			r.Post("/sweep", backupH.Sweep)
			r.Get("/files", backupH.Files)
			r.Post("/restore", backupH.Restore)
		})
	})

	return r
}
