package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/resource-allocator/api/swagger"
	"github.com/noah-isme/resource-allocator/internal/handler"
	"github.com/noah-isme/resource-allocator/internal/middleware"
	"github.com/noah-isme/resource-allocator/internal/models"
	"github.com/noah-isme/resource-allocator/internal/repository"
	"github.com/noah-isme/resource-allocator/internal/service"
	"github.com/noah-isme/resource-allocator/pkg/cache"
	"github.com/noah-isme/resource-allocator/pkg/config"
	"github.com/noah-isme/resource-allocator/pkg/database"
	"github.com/noah-isme/resource-allocator/pkg/jobs"
	"github.com/noah-isme/resource-allocator/pkg/logger"
	corsmiddleware "github.com/noah-isme/resource-allocator/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/resource-allocator/pkg/middleware/requestid"
	"github.com/noah-isme/resource-allocator/pkg/storage"
)

const exportsQueue = "exports"

// @title Resource Allocator API
// @version 1.0.0
// @description Timetable, exam seating, invigilation and substitute allocation for academic departments.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Warn("redis unavailable, timetable reads are uncached", zap.Error(err))
	} else {
		redisRepo := repository.NewCacheRepository(client, logger.Named(logr, "cache"))
		defer redisRepo.Close() //nolint:errcheck
		cacheRepo = redisRepo
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Allocator.TimetableCacheTTL, logger.Named(logr, "cache"), cacheRepo != nil)

	validate := validator.New()

	facultyRepo := repository.NewFacultyRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	coverageRepo := repository.NewCoverageRepository(db)
	examRepo := repository.NewExamRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	seatingRepo := repository.NewSeatingRepository(db)
	invigilationRepo := repository.NewInvigilationRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)

	timetableSvc := service.NewTimetableService(
		subjectRepo, facultyRepo, roomRepo, coverageRepo, timetableRepo, db, cacheSvc, metrics, validate,
		logger.Named(logr, "timetable"),
		service.TimetableServiceConfig{
			Enabled:             cfg.Allocator.Enabled,
			CacheTTL:            cfg.Allocator.TimetableCacheTTL,
			MaxHoursPerSubject:  cfg.Allocator.MaxHoursPerSubject,
			DefaultAcademicYear: cfg.Allocator.DefaultAcademicYear,
			DepartmentHourMatch: cfg.Allocator.DepartmentHourMatch,
		},
	)
	seatingSvc := service.NewSeatingService(examRepo, studentRepo, roomRepo, seatingRepo, db, metrics, validate,
		logger.Named(logr, "seating"),
		service.SeatingServiceConfig{Enabled: cfg.Allocator.Enabled, Columns: cfg.Allocator.SeatingColumns},
	)
	invigilationSvc := service.NewInvigilationService(examRepo, facultyRepo, roomRepo, seatingRepo, invigilationRepo, leaveRepo, db, metrics, validate,
		logger.Named(logr, "invigilation"), cfg.Allocator.Enabled)
	leaveSvc := service.NewLeaveService(leaveRepo, facultyRepo, timetableRepo, db, metrics, validate, logger.Named(logr, "leave"))

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("init export storage", zap.Error(err))
	}
	exportSvc := service.NewExportService(
		service.ExportSources{Timetables: timetableSvc, Seating: seatingSvc, Rosters: invigilationSvc, Faculty: facultyRepo},
		store,
		storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
		service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Exports.SignedURLTTL},
		logger.Named(logr, "export"), nil, nil,
	)

	// The job service is both the producer for the queue and its failure sink, so the queue
	// is built first with a hook that resolves the service lazily.
	var exportJobSvc *service.ExportJobService
	worker := service.NewExportWorker(exportJobRepo, exportSvc, logger.Named(logr, "export-worker"))
	queue := jobs.NewQueue(exportsQueue, worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logger.Named(logr, "queue"),
		OnFailure: func(job jobs.Job, err error) {
			metrics.RecordJobFailure(exportsQueue)
			exportJobSvc.MarkFailed(job, err)
		},
	})
	exportJobSvc = service.NewExportJobService(exportJobRepo, queue, exportSvc, validate, logger.Named(logr, "export-jobs"),
		service.ExportJobServiceConfig{
			Enabled:         cfg.Exports.Enabled,
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
		},
	)
	if cfg.Exports.Enabled {
		queue.Start(ctx)
		defer queue.Stop()
		exportJobSvc.RecoverPendingJobs(ctx)
		exportJobSvc.StartCleanup(ctx)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), routeDeps{
		verifier:     middleware.NewTokenVerifier(cfg.JWT.Secret, cfg.JWT.Issuer),
		timetables:   handler.NewTimetableHandler(timetableSvc),
		exams:        handler.NewExamHandler(seatingSvc, invigilationSvc),
		leaves:       handler.NewLeaveHandler(leaveSvc),
		exports:      handler.NewExportHandler(exportJobSvc, logger.Named(logr, "export-handler")),
		observations: metricsHandler,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type routeDeps struct {
	verifier     *middleware.TokenVerifier
	timetables   *handler.TimetableHandler
	exams        *handler.ExamHandler
	leaves       *handler.LeaveHandler
	exports      *handler.ExportHandler
	observations *handler.MetricsHandler
}

func registerRoutes(api *gin.RouterGroup, deps routeDeps) {
	// Signed download tokens carry their own expiry and HMAC.
	api.GET("/exports/download/:token", deps.exports.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.verifier))

	planners := middleware.RequireRoles(models.RoleAdmin, models.RolePrincipal, models.RoleHOD)
	everyone := middleware.RequireRoles(models.RoleAdmin, models.RolePrincipal, models.RoleHOD, models.RoleFaculty)

	timetables := secured.Group("/timetables")
	timetables.POST("/generate", planners, deps.timetables.Generate)
	timetables.POST("/generate-priority", planners, deps.timetables.GeneratePriority)
	timetables.GET("", everyone, deps.timetables.Get)

	exams := secured.Group("/exams/:id")
	exams.POST("/seating", planners, deps.exams.AllocateSeating)
	exams.GET("/seating", everyone, deps.exams.Seating)
	exams.POST("/invigilators", planners, deps.exams.AllocateInvigilators)
	exams.GET("/invigilators", everyone, deps.exams.Invigilators)

	leaves := secured.Group("/leaves")
	leaves.POST("", middleware.RequireRoles(models.RoleFaculty, models.RoleHOD), deps.leaves.Apply)
	leaves.GET("", everyone, deps.leaves.List)
	leaves.DELETE("/:id", middleware.RequireRoles(models.RoleFaculty, models.RoleHOD), deps.leaves.Cancel)
	secured.POST("/substitutes/search", planners, deps.leaves.SearchSubstitute)

	exports := secured.Group("/exports")
	exports.POST("", everyone, deps.exports.Enqueue)
	exports.GET("/:id", everyone, deps.exports.Status)

	secured.GET("/metrics/summary", planners, deps.observations.Snapshot)
}
