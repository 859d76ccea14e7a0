package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/kakaoad/internal/bridge"
	"example.com/kakaoad/internal/config"
	"example.com/kakaoad/internal/ingest"
	"example.com/kakaoad/internal/logging"
	"example.com/kakaoad/internal/platform/android"
	"example.com/kakaoad/internal/platform/ios"
	"example.com/kakaoad/internal/sink"
	"example.com/kakaoad/internal/sink/httpsink"
	"example.com/kakaoad/internal/sink/redisq"
	spg "example.com/kakaoad/internal/storage/postgres"
	"example.com/kakaoad/internal/tracker"
	transport "example.com/kakaoad/internal/transport/http"
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	logger.Info("config loaded", "port", cfg.Port, "sinks", cfg.Sinks)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	writers, ready, closeSinks, err := buildSinks(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("sinks: %v", err)
	}
	defer closeSinks()

	// the ingest loop outlives ctx long enough to flush on shutdown
	ingestCtx, stopIngest := context.WithCancel(context.Background())
	ingestor := ingest.NewIngestor(writers, cfg.QueueMaxSize, cfg.BatchMaxSize, cfg.BatchMaxWait, logger)
	ingestor.Start(ingestCtx)
	logger.Info("ingest started", "queue", cfg.QueueMaxSize, "batch", cfg.BatchMaxSize, "wait", cfg.BatchMaxWait)

	auth, err := ios.ParseAuthorizationStatus(cfg.IOSAuthorization)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	androidPlatform := android.New(cfg.AndroidStringsPath, logger)
	iosPlatform := ios.New(ios.Options{
		InfoPlistPath:  cfg.IOSInfoPlistPath,
		OSMajorVersion: cfg.IOSMajorVersion,
		Authorizer:     ios.StaticAuthorizer(auth),
		PromptTimeout:  cfg.IOSPromptTimeout,
	}, logger)

	modules := map[string]*bridge.Module{
		android.Name: bridge.NewModule(bridge.NewFacade(androidPlatform, tracker.New(android.Name, ingestor, logger), logger)),
		ios.Name:     bridge.NewModule(bridge.NewFacade(iosPlatform, tracker.New(ios.Name, ingestor, logger), logger)),
	}

	deps := &transport.ServerDeps{
		Cfg:     cfg,
		Modules: modules,
		Ready:   ready,
		Now:     func() time.Time { return time.Now().UTC() },
		Logger:  logger,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           deps.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.IOSPromptTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(shutdownCtx)

	stopIngest()
	select {
	case <-ingestor.Done():
	case <-shutdownCtx.Done():
		logger.Warn("ingest did not drain before shutdown deadline")
	}
	logger.Info("stopped")
}

// buildSinks connects every configured sink and returns them as one writer.
func buildSinks(ctx context.Context, cfg config.Config, logger *slog.Logger) (sink.Multi, func(context.Context) error, func(), error) {
	var (
		writers sink.Multi
		checks  []func(context.Context) error
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	for _, name := range cfg.Sinks {
		switch name {
		case config.SinkLog:
			writers = append(writers, sink.Log{Logger: logger.With("component", "sink")})

		case config.SinkPostgres:
			db, err := spg.Connect(ctx, cfg.PostgresDSN, logger)
			if err != nil {
				closeAll()
				return nil, nil, nil, err
			}
			closers = append(closers, db.Close)
			if err := db.RunMigration(ctx, cfg.MigrationPath); err != nil {
				closeAll()
				return nil, nil, nil, err
			}
			logger.Info("postgres sink ready")
			writers = append(writers, spg.NewWriter(db))
			checks = append(checks, db.Ready)

		case config.SinkRedis:
			pub, err := redisq.Connect(cfg.RedisURL, cfg.RedisQueue)
			if err != nil {
				closeAll()
				return nil, nil, nil, err
			}
			closers = append(closers, func() { _ = pub.Close() })
			logger.Info("redis sink ready", "queue", cfg.RedisQueue)
			writers = append(writers, pub)
			checks = append(checks, pub.Ping)

		case config.SinkHTTP:
			writers = append(writers, httpsink.New(cfg.CollectorURL, cfg.CollectorTimeout))
			logger.Info("http sink ready", "url", cfg.CollectorURL)
		}
	}

	ready := func(ctx context.Context) error {
		for _, c := range checks {
			if err := c(ctx); err != nil {
				return err
			}
		}
		return nil
	}
	return writers, ready, closeAll, nil
}
