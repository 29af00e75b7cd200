// Command bootstrap_sheets creates the alugueis and transacoes worksheets,
// with their header rows, in the configured spreadsheet backend.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"quadra_financeiro/internal/config"
	"quadra_financeiro/internal/logging"

	"go.uber.org/zap"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	log, err := logging.New(settings.LogLevel, "console")
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	// an unreachable backend must fail here, not fall back to memory
	settings.OfflineFallback = false

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg := config.Init(ctx, settings, log)
	defer cfg.Close(context.Background())

	store, err := cfg.OpenStore(ctx, log)
	if err != nil {
		log.Fatal("bootstrap failed", zap.String("backend", settings.Backend), zap.Error(err))
	}
	if err := store.Ping(ctx); err != nil {
		log.Fatal("store not readable after bootstrap", zap.Error(err))
	}
	log.Info("worksheets ready", zap.String("backend", store.Name()))
	if cfg.GSheets != nil {
		log.Info("share the spreadsheet with the service account",
			zap.String("client_email", cfg.GSheets.ClientEmail),
			zap.String("spreadsheet_id", cfg.GSheets.SpreadsheetID),
		)
	}
}
