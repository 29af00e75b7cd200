package config

import (
	"context"
	"fmt"

	"quadra_financeiro/internal/adapters/tabular"
	"quadra_financeiro/internal/config/connections/gsheets"
	"quadra_financeiro/internal/config/connections/postgres"
	"quadra_financeiro/internal/config/connections/sqlite"
	"quadra_financeiro/internal/ports"
	"quadra_financeiro/internal/repository/database"
	"quadra_financeiro/internal/repository/localdb"
	"quadra_financeiro/internal/repository/sheets"

	"go.uber.org/zap"
)

type initializer interface {
	Init(ctx context.Context) error
}

// OpenStore connects the configured Record Store backend and prepares its
// tables or worksheets. With OfflineFallback set, a backend that cannot be
// reached is replaced by an in-memory workbook.
func (c *Config) OpenStore(ctx context.Context, log *zap.Logger) (ports.Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	store, err := c.openBackend(ctx, log)
	if err == nil {
		if in, ok := store.(initializer); ok {
			err = in.Init(ctx)
		}
	}
	if err == nil {
		log.Info("[CONFIG][STORE] ready", zap.String("backend", store.Name()))
		return store, nil
	}
	if !c.OfflineFallback || c.Backend == BackendMemory {
		return nil, fmt.Errorf("open %s store: %w", c.Backend, err)
	}

	log.Warn("[CONFIG][STORE] backend unreachable, running offline in memory",
		zap.String("backend", c.Backend), zap.Error(err))
	mem := c.sheetsStore(tabular.NewMemory(), BackendMemory, log)
	if err := mem.Init(ctx); err != nil {
		return nil, err
	}
	return mem, nil
}

func (c *Config) openBackend(ctx context.Context, log *zap.Logger) (ports.Store, error) {
	switch c.Backend {
	case BackendPostgres:
		pg, err := postgres.NewConnection(ctx, c.Settings.Postgres)
		if err != nil {
			return nil, err
		}
		c.Postgres = pg
		return database.NewStore(pg, log).WithTables(c.Tables.Rentals, c.Tables.Transactions), nil

	case BackendSQLite:
		db, err := sqlite.NewConnection(c.Settings.SQLite)
		if err != nil {
			return nil, err
		}
		c.SQLite = db
		return localdb.NewStore(db.DB, log), nil

	case BackendSheets:
		gs, err := gsheets.NewConnection(ctx, c.Settings.GSheets)
		if err != nil {
			return nil, err
		}
		c.GSheets = gs
		return c.sheetsStore(tabular.NewGoogleSheets(gs.Service, gs.SpreadsheetID), BackendSheets, log), nil

	case BackendXLSX:
		if !c.S3.Ready() {
			return nil, fmt.Errorf("xlsx backend needs S3")
		}
		blob := tabular.S3Blob{Client: c.S3.Client, Bucket: c.S3.Bucket, Key: c.XLSXKey}
		return c.sheetsStore(tabular.NewXLSX(blob), BackendXLSX, log), nil

	case BackendMemory:
		return c.sheetsStore(tabular.NewMemory(), BackendMemory, log), nil
	}
	return nil, fmt.Errorf("unknown backend %q", c.Backend)
}

func (c *Config) sheetsStore(wb ports.Workbook, name string, log *zap.Logger) *sheets.Store {
	interval := c.Sheets.MinInterval
	if name == BackendMemory {
		// nothing remote to protect
		interval = 0
	}
	return sheets.NewStore(wb, sheets.Options{
		Name:        name,
		TTL:         c.Sheets.CacheTTL,
		MinInterval: interval,
		MaxAttempts: c.Sheets.MaxAttempts,
		Logger:      log,
	})
}
