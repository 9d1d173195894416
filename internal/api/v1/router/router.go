package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"app/internal/api/v1/handler"
	"app/internal/config"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/service"
	"app/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// New wires the database pool, blob store, repositories, services and
// handlers into an http.Handler. The progress service is returned as well
// so the caller can feed it judged records from the Pub/Sub subscriber.
func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *pgxpool.Pool, service.ProgressService, error) {
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	dsn := cfg.DBConnectionString
	// In a development environment, we want to ensure that SSL is disabled for
	// local testing. In production, the connection string should be provided
	// with the correct SSL settings.
	if cfg.IsLocalDev() && !strings.Contains(dsn, "sslmode") {
		dsn += dsnSeparator(dsn) + "sslmode=disable"
	}
	// Non-development environments sit behind a transaction pooler like
	// pgbouncer, so force the simple query protocol to avoid issues with
	// server-side prepared statements.
	if !cfg.IsLocalDev() && !strings.Contains(dsn, "default_query_exec_mode") {
		dsn += dsnSeparator(dsn) + "default_query_exec_mode=simple_protocol"
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to parse DB connection string")
		return nil, nil, nil, err
	}
	poolCfg.MaxConns = 25
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open DB pool")
		return nil, nil, nil, err
	}
	if err := pool.Ping(context.Background()); err != nil {
		logger.Error().Err(err).Msg("Failed to ping DB")
		pool.Close()
		return nil, nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	s3Client, err := storage.NewS3Client(context.Background(), cfg)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize S3 client")
		pool.Close()
		return nil, nil, nil, err
	}
	blob := storage.NewS3BlobStore(s3Client, cfg.S3Bucket, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())

	courseRepo := repository.NewCourseRepo(pool)
	enrollRepo := repository.NewEnrollmentRepo(pool)
	platformRepo := repository.NewPlatformRepo(pool)

	courseSvc := service.NewCourseService(courseRepo, enrollRepo, blob, logger)
	enrollSvc := service.NewEnrollmentService(courseRepo, enrollRepo, logger)
	progressSvc := service.NewProgressService(courseRepo, enrollRepo, logger)
	fileSvc := service.NewFileService(courseRepo, blob, service.FileQuota{
		MaxCount:     cfg.CourseFilesMax,
		MaxTotalSize: cfg.CourseFilesSizeMax,
	}, logger)

	courseHandler := handler.NewCourseHandler(courseSvc, enrollSvc, progressSvc, platformRepo, validate, logger)
	fileHandler := handler.NewFileHandler(fileSvc, courseSvc, platformRepo, validate, logger)

	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret, logger)

	apiV1Mux := http.NewServeMux()
	courseHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	fileHandler.RegisterRoutes(apiV1Mux, authMiddleware)

	mux := http.NewServeMux()
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "db unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(logger)(c.Handler(mux)), pool, progressSvc, nil
}

func dsnSeparator(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		if strings.Contains(dsn, "?") {
			return "&"
		}
		return "?"
	}
	return " "
}
