package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mamadbah2/haccp/internal/archive"
	"github.com/mamadbah2/haccp/internal/config"
	"github.com/mamadbah2/haccp/internal/domain/models"
	"github.com/mamadbah2/haccp/internal/lock"
	"github.com/mamadbah2/haccp/internal/metrics"
	"github.com/mamadbah2/haccp/internal/repository/mongodb"
	"github.com/mamadbah2/haccp/internal/repository/sheets"
	"github.com/mamadbah2/haccp/internal/scheduler"
	"github.com/mamadbah2/haccp/internal/server/handlers"
	"github.com/mamadbah2/haccp/internal/server/router"
	"github.com/mamadbah2/haccp/internal/service/conformity"
	"github.com/mamadbah2/haccp/internal/service/intake"
	reportingsvc "github.com/mamadbah2/haccp/internal/service/reporting"
	"github.com/mamadbah2/haccp/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	mongoRepo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, logger.Named(baseLogger, "repo.mongodb"))
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()
	if err := mongoRepo.EnsureIndexes(ctx); err != nil {
		baseLogger.Fatal("failed to ensure mongodb indexes", zap.Error(err))
	}

	var (
		zones   models.ZoneDirectory   = mongoRepo
		tenants models.TenantDirectory = mongoRepo
	)
	if cfg.Directory.Backend == config.DirectorySheets {
		sheetDir, err := sheets.NewDirectory(ctx, cfg.Sheets, logger.Named(baseLogger, "repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets directory", zap.Error(err))
		}
		zones, tenants = sheetDir, sheetDir
	}

	policy, err := conformity.LoadPolicy(cfg.Intake.PolicyFile)
	if err != nil {
		baseLogger.Fatal("failed to load conformity policy", zap.Error(err))
	}

	store, closeStore, err := newArchive(ctx, cfg.Archive, logger.Named(baseLogger, "archive"))
	if err != nil {
		baseLogger.Fatal("failed to init archive store", zap.Error(err))
	}
	defer closeStore()

	locker, closeLocker := newLocker(cfg.Lock, logger.Named(baseLogger, "lock"))
	defer closeLocker()

	synth := reportingsvc.NewSynthesizer(mongoRepo, zones, cfg.Reporting.Location, logger.Named(baseLogger, "svc.synthesizer"))
	reportingSvc := reportingsvc.NewService(synth, store, locker, logger.Named(baseLogger, "svc.reporting"))
	intakeSvc := intake.NewService(mongoRepo, zones, policy, intake.Options{AllowUntenanted: cfg.Intake.AllowUntenanted}, m, logger.Named(baseLogger, "svc.intake"))

	engine := router.New(
		handlers.NewObservationHandler(intakeSvc, logger.Named(baseLogger, "handlers.observations")),
		handlers.NewReportHandler(reportingSvc, logger.Named(baseLogger, "handlers.reports")),
		handlers.NewHealthHandler(mongoRepo, logger.Named(baseLogger, "handlers.health")),
		registry,
		logger.Named(baseLogger, "router"),
	)

	sched := scheduler.NewScheduler(cfg.Reporting, reportingSvc, tenants, store, m, logger.Named(baseLogger, "scheduler"))
	if err := sched.Start(ctx); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Reporting.CycleTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newArchive(ctx context.Context, cfg config.ArchiveConfig, log *zap.Logger) (archive.Store, func(), error) {
	noop := func() {}

	switch cfg.Backend {
	case config.ArchiveFilesystem:
		store, err := archive.NewFileStore(cfg.Dir, log)
		return store, noop, err
	case config.ArchiveGCS:
		client, err := archive.NewGCSClient(ctx, cfg.GCSCredentialsJSON)
		if err != nil {
			return nil, noop, err
		}
		store, err := archive.NewGCSStore(ctx, client, cfg.GCSBucket, cfg.GCSPrefix, log)
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		return store, func() { _ = client.Close() }, nil
	case config.ArchiveS3:
		opts := archive.S3Options{
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		}
		client, err := archive.NewS3Client(ctx, opts)
		if err != nil {
			return nil, noop, err
		}
		store, err := archive.NewS3Store(client, opts, log)
		return store, noop, err
	}
	return nil, noop, fmt.Errorf("unsupported archive backend %q", cfg.Backend)
}

func newLocker(cfg config.LockConfig, log *zap.Logger) (lock.Locker, func()) {
	if cfg.Backend != config.LockRedis {
		return lock.NewLocal(), func() {}
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	log.Info("using redis report lock", zap.String("address", cfg.RedisAddr))
	return lock.NewRedis(rdb, cfg.TTL, log), func() { _ = rdb.Close() }
}
