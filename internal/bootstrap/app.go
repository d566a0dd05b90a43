package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"verifycert-backend/certificate/convert"
	"verifycert-backend/certificate/pipeline"
	"verifycert-backend/certificate/stamp"
	"verifycert-backend/internal/batches"
	"verifycert-backend/internal/documents"
	"verifycert-backend/internal/services/health"
	"verifycert-backend/internal/shared/config"
	"verifycert-backend/internal/shared/server"
	"verifycert-backend/internal/shared/storage/db"
	"verifycert-backend/internal/shared/storage/object"
	localstore "verifycert-backend/internal/shared/storage/object/local"
	miniostore "verifycert-backend/internal/shared/storage/object/minio"
	s3store "verifycert-backend/internal/shared/storage/object/s3"
	"verifycert-backend/internal/shared/telemetry"
	"verifycert-backend/internal/stats"
	"verifycert-backend/internal/templates"
	"verifycert-backend/internal/verification"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	Store     object.ObjectStore
	Converter convert.Converter
	Pipeline  *pipeline.Pipeline
	Cache     *verification.RedisCache
	Janitor   *batches.Janitor

	TemplatesRepo       templates.Repo
	DocumentsRepo       documents.Repo
	TemplatesService    *templates.Service
	DocumentsService    *documents.Service
	BatchProcessor      *batches.Processor
	VerificationService *verification.Service
	StatsService        *stats.Service
	HealthService       *health.Service
}

// Build prepares every dependency and wires the router. Callers must Close the App.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	telemetry.SetLevel(cfg.LogLevel)
	ctx := context.Background()

	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	app := &App{
		Config:    cfg,
		DB:        sqlDB,
		Store:     store,
		Converter: buildConverter(cfg),
	}
	buildServices(app)
	app.HealthService = buildHealth(app)

	app.Janitor = batches.NewJanitor(cfg.WorkDir, cfg.ArchiveTTL)
	if err := app.Janitor.Start(cfg.ArchiveSweepSchedule); err != nil {
		app.Close()
		return nil, fmt.Errorf("start archive janitor: %w", err)
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:              cfg,
		TemplateHandler:     templates.NewHandler(app.TemplatesService, cfg.MaxUploadBytes),
		DocumentHandler:     documents.NewHandler(app.DocumentsService, cfg.PublicBaseURL),
		BatchHandler:        batches.NewHandler(app.BatchProcessor, cfg.MaxUploadBytes),
		VerificationHandler: verification.NewHandler(app.VerificationService),
		StatsHandler:        stats.NewHandler(app.StatsService),
		HealthHandler:       health.NewHandler(app.HealthService),
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":         cfg.Env,
		"store":       cfg.ObjectStoreType,
		"converter":   cfg.Converter,
		"database":    sqlDB != nil,
		"verifyCache": app.Cache != nil,
	})
	return app, nil
}

// Close stops background work and releases connections.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Janitor != nil {
		a.Janitor.Stop()
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			telemetry.Warn("bootstrap.redis_close_failed", map[string]any{"error": err})
		}
	}
	closeDB(a.DB)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_missing", map[string]any{"fallback": "memory"})
			return nil, nil
		}
		return nil, errors.New("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_connect_failed", map[string]any{"fallback": "memory", "error": err})
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		return miniostore.New(ctx, miniostore.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildConverter(cfg config.Config) convert.Converter {
	if cfg.Converter == "builtin" {
		return convert.NewBuiltin()
	}
	soffice := convert.NewSoffice(cfg.SofficePath)
	if _, err := soffice.Resolve(); err != nil {
		// Generation reports converter_unavailable until soffice is installed.
		telemetry.Warn("bootstrap.soffice_missing", map[string]any{"error": err})
	}
	return soffice
}

func buildServices(app *App) {
	cfg := app.Config
	if app.DB != nil {
		app.TemplatesRepo = &templates.PGRepo{DB: app.DB}
		app.DocumentsRepo = &documents.PGRepo{DB: app.DB}
	} else {
		app.TemplatesRepo = templates.NewMemoryRepo()
		app.DocumentsRepo = documents.NewMemoryRepo()
	}

	stamper := stamp.New(cfg.QRSize, stamp.Position{X: cfg.QRDefaultX, Y: cfg.QRDefaultY})
	app.Pipeline = pipeline.New(app.Converter, stamper, cfg.PublicBaseURL)

	app.TemplatesService = &templates.Service{
		Repo:      app.TemplatesRepo,
		Store:     app.Store,
		Previewer: app.Converter,
		WorkDir:   cfg.WorkDir,
	}
	app.DocumentsService = &documents.Service{
		Repo:      app.DocumentsRepo,
		Store:     app.Store,
		Templates: app.TemplatesService,
		Pipeline:  app.Pipeline,
		WorkDir:   cfg.WorkDir,
	}
	app.BatchProcessor = &batches.Processor{
		Templates: app.TemplatesService,
		Runner:    app.Pipeline,
		Documents: app.DocumentsService,
		WorkDir:   cfg.WorkDir,
	}

	app.VerificationService = &verification.Service{
		Documents: app.DocumentsRepo,
		Templates: app.TemplatesRepo,
	}
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		app.Cache = verification.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.VerifyCacheTTL)
		app.VerificationService.Cache = app.Cache
	}

	app.StatsService = stats.NewService(app.TemplatesRepo, app.DocumentsRepo)
}

func buildHealth(app *App) *health.Service {
	svc := health.NewService()
	if app.DB != nil {
		svc.Register("database", func(ctx context.Context) error { return db.Ping(ctx, app.DB) })
	}
	svc.Register("object_store", app.Store.Ping)
	if soffice, ok := app.Converter.(*convert.Soffice); ok {
		svc.Register("converter", func(context.Context) error {
			_, err := soffice.Resolve()
			return err
		})
	}
	svc.Register("work_dir", func(context.Context) error {
		marker, err := os.CreateTemp(app.Config.WorkDir, ".health-*")
		if err != nil {
			return err
		}
		name := marker.Name()
		marker.Close()
		return os.Remove(filepath.Clean(name))
	})
	if app.Cache != nil {
		svc.Register("redis", app.Cache.Ping)
	}
	return svc
}

func closeDB(sqlDB *sql.DB) {
	if sqlDB == nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		telemetry.Warn("bootstrap.database_close_failed", map[string]any{"error": err})
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
