package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quadra_financeiro/internal/adapters/opener"
	"quadra_financeiro/internal/config"
	"quadra_financeiro/internal/handlers"
	"quadra_financeiro/internal/logging"
	"quadra_financeiro/internal/repository/audit"
	"quadra_financeiro/internal/repository/imports"
	"quadra_financeiro/internal/server"
	"quadra_financeiro/internal/services/importer"
	"quadra_financeiro/internal/services/importer/processors"
	"quadra_financeiro/internal/services/ledger"
	"quadra_financeiro/internal/transport/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	log, err := logging.New(settings.LogLevel, settings.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	if err := run(settings, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(settings config.Settings, log *zap.Logger) error {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	setupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := config.Init(setupCtx, settings, log)
	defer cfg.Close(context.Background())

	store, err := cfg.OpenStore(setupCtx, log)
	if err != nil {
		return err
	}
	if err := cfg.CheckConnections(setupCtx); err != nil {
		log.Warn("[BOOT] connection check", zap.Error(err))
	}

	led := ledger.New(store, audit.New(cfg.Mongo, log), log)
	records := imports.NewRepo(cfg.Mongo, log)

	var s3Op *opener.S3Opener
	bucket := ""
	if cfg.S3.Ready() {
		s3Op = opener.NewS3Opener(cfg.S3.Client, log)
		bucket = cfg.S3.Bucket
	}
	open := opener.NewSourceRouter(opener.NewHTTPOpener(nil, log), s3Op, bucket)
	reg := processors.Registry(processors.NewBaseProcessor(led, records, log))

	h := handlers.New(handlers.Deps{
		Ledger:    led,
		Importer:  importer.NewService(open, reg, records, cfg.ImportBatchSize, log),
		Records:   records,
		Mongo:     cfg.Mongo,
		S3:        cfg.S3,
		Logger:    log,
		BatchSize: cfg.ImportBatchSize,
	})

	opts := server.Options{CORSOrigins: cfg.CORSOrigins, Logger: log}
	if cfg.Auth.Enabled {
		opts.Tokens = auth.NewTokens(cfg.Auth.Secret, cfg.Auth.Issuer)
	}

	gin.SetMode(gin.ReleaseMode)
	srv := server.NewServer(cfg.Port, h, server.NewRouter(h, opts))

	log.Info("[BOOT] listening",
		zap.String("port", cfg.Port),
		zap.String("store", store.Name()),
		zap.Bool("mongo", cfg.Mongo.Ready()),
		zap.Bool("s3", cfg.S3.Ready()),
		zap.Bool("auth", cfg.Auth.Enabled),
	)
	return srv.Run(runCtx)
}
