package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/rpattn/fieldtrack/internal/activity"
	"github.com/rpattn/fieldtrack/internal/api"
	"github.com/rpattn/fieldtrack/internal/catalog"
	"github.com/rpattn/fieldtrack/internal/config"
	"github.com/rpattn/fieldtrack/internal/db"
	"github.com/rpattn/fieldtrack/internal/entityloader"
	"github.com/rpattn/fieldtrack/internal/export"
	"github.com/rpattn/fieldtrack/internal/logging"
	"github.com/rpattn/fieldtrack/internal/mutation"
	"github.com/rpattn/fieldtrack/internal/opscope"
	"github.com/rpattn/fieldtrack/internal/repository"
	"github.com/rpattn/fieldtrack/internal/tracking"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	if cfg.Source != "" {
		log.WithField("file", cfg.Source).Info("loaded configuration")
	} else {
		log.Info("no config.yaml found, using defaults and environment")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.RunMigrations(cfg.Database, log.WithField("phase", opscope.PhaseInstall.String())); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}

	conn, err := db.NewConnection(ctx, cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer conn.Close()

	orgRepo := repository.NewOrganizationRepository(conn.Pool)
	schemaRepo := repository.NewEntitySchemaRepository(conn)
	entityRepo := repository.NewEntityRepository(conn.Pool)
	configRepo := repository.NewTrackingConfigurationRepository(conn.Pool)
	noteRepo := repository.NewAuditNoteRepository(conn.Pool)

	var publisher activity.Publisher
	if cfg.Redis.Addr != "" {
		client, err := activity.NewRedisClient(ctx, cfg.Redis.Addr, log)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}
		defer client.Close()
		publisher = activity.NewRedisPublisher(client, cfg.Redis.Channel)
	} else {
		log.Info("redis.addr not set, activity feed fan-out disabled")
	}
	feed := activity.NewFeed(noteRepo, publisher, log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	schemaCatalog := catalog.New(schemaRepo, cfg.Tracking.CatalogCacheSize, cfg.Tracking.CatalogCacheTTL)
	interceptor := tracking.NewInterceptor(tracking.Options{
		Finder:          configRepo,
		Catalog:         schemaCatalog,
		Reader:          entityRepo,
		Names:           entityloader.NewNameResolver(entityRepo),
		Poster:          feed,
		Logger:          log,
		Metrics:         tracking.NewMetrics(registry),
		DiffWorkers:     cfg.Tracking.DiffWorkers,
		DefaultLocale:   cfg.Tracking.DefaultLocale,
		DefaultTimeZone: cfg.Tracking.DefaultTimeZone,
	})
	pipeline := mutation.NewPipeline(entityRepo, interceptor)

	router := api.NewRouter(api.Deps{
		Organizations: orgRepo,
		Schemas:       schemaRepo,
		Entities:      entityRepo,
		Configs:       configRepo,
		Notes:         noteRepo,
		Writer:        pipeline,
		Catalog:       schemaCatalog,
		Export:        export.NewHTTPHandler(export.NewService(noteRepo, schemaRepo)),
		Metrics:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Logger:        log,
		CORSOrigins:   cfg.HTTP.CORSOrigins,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.HTTP.Addr).Info("starting fieldtrack server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}

	log.Info("server exited")
}
