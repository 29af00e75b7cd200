package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"quadra_financeiro/internal/config/connections/gsheets"
	"quadra_financeiro/internal/config/connections/mongo"
	"quadra_financeiro/internal/config/connections/postgres"
	"quadra_financeiro/internal/config/connections/s3"
	"quadra_financeiro/internal/config/connections/sqlite"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendSheets   = "sheets"
	BackendXLSX     = "xlsx"
	BackendMemory   = "memory"
)

type SheetsTuning struct {
	CacheTTL    time.Duration
	MinInterval time.Duration
	MaxAttempts int
}

type Auth struct {
	Enabled bool
	Secret  string
	Issuer  string
	TTL     time.Duration
}

// Settings is everything read from the environment, before any connection
// is attempted.
type Settings struct {
	Port            string
	Backend         string
	OfflineFallback bool
	LogLevel        string
	LogFormat       string
	CORSOrigins     []string
	ImportBatchSize int
	XLSXKey         string
	Tables          Tables
	Sheets          SheetsTuning
	Auth            Auth

	Postgres postgres.ConnectionInfo
	SQLite   sqlite.ConnectionInfo
	GSheets  gsheets.ConnectionInfo
	Mongo    mongo.ConnectionInfo
	S3       s3.ConnectionInfo

	MongoEnabled bool
	S3Enabled    bool
}

type Tables struct {
	Rentals      string
	Transactions string
}

type Config struct {
	Settings

	S3       *s3.S3
	Mongo    *mongo.Mongo
	Postgres *postgres.Postgres
	SQLite   *sqlite.SQLite
	GSheets  *gsheets.GSheets
}

// Load reads .env (when present) and the process environment.
func Load() (Settings, error) {
	_ = godotenv.Load()

	s := Settings{
		Port:            getenv("SERVER_PORT", "8070"),
		Backend:         strings.ToLower(getenv("STORAGE_BACKEND", BackendSQLite)),
		OfflineFallback: getbool("OFFLINE_FALLBACK", true),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogFormat:       getenv("LOG_FORMAT", "json"),
		CORSOrigins:     splitList(getenv("CORS_ORIGINS", "*")),
		XLSXKey:         getenv("XLSX_KEY", "gestao_quadra.xlsx"),
		Tables: Tables{
			Rentals:      getenv("PG_RENTALS_TABLE", "alugueis"),
			Transactions: getenv("PG_TRANSACTIONS_TABLE", "transacoes"),
		},
		Auth: Auth{
			Enabled: getbool("AUTH_ENABLED", false),
			Secret:  os.Getenv("JWT_SECRET"),
			Issuer:  getenv("JWT_ISSUER", "quadra_financeiro"),
		},
		Postgres: postgres.ConnectionInfo{
			DSN:      os.Getenv("PG_DSN"),
			Host:     getenv("PG_HOST", "127.0.0.1"),
			Port:     getenv("PG_PORT", "5432"),
			User:     getenv("PG_USER", "postgres"),
			Password: getenv("PG_PASSWORD", "postgres"),
			DB:       getenv("PG_DB", "quadra"),
			SSLMode:  getenv("PG_SSLMODE", "disable"),
		},
		SQLite: sqlite.ConnectionInfo{
			Path:  getenv("SQLITE_PATH", "gestao.db"),
			Debug: getbool("SQLITE_DEBUG", false),
		},
		GSheets: gsheets.ConnectionInfo{
			SpreadsheetID: os.Getenv("GS_SPREADSHEET_ID"),
			Account: gsheets.ServiceAccount{
				Type:         getenv("GS_TYPE", "service_account"),
				ProjectID:    os.Getenv("GS_PROJECT_ID"),
				PrivateKeyID: os.Getenv("GS_PRIVATE_KEY_ID"),
				PrivateKey:   os.Getenv("GS_PRIVATE_KEY"),
				ClientEmail:  os.Getenv("GS_CLIENT_EMAIL"),
				ClientID:     os.Getenv("GS_CLIENT_ID"),
				TokenURI:     os.Getenv("GS_TOKEN_URI"),
			},
		},
		Mongo: mongo.ConnectionInfo{
			URI:        os.Getenv("MONGO_URI"),
			Scheme:     getenv("MONGO_SCHEME", "mongodb"),
			User:       os.Getenv("MONGO_USER"),
			Password:   os.Getenv("MONGO_PASSWORD"),
			Host:       getenv("MONGO_HOST", "127.0.0.1"),
			Port:       getenv("MONGO_PORT", "27017"),
			DB:         getenv("MONGO_DB", "quadra"),
			AuthSource: os.Getenv("MONGO_AUTH_SOURCE"),
		},
		S3: s3.ConnectionInfo{
			Endpoint:  getenv("AWS_ENDPOINT", "http://localhost:9000"),
			AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			Region:    getenv("AWS_DEFAULT_REGION", "us-east-1"),
			Bucket:    getenv("AWS_BUCKET", "quadra"),
			UseSSL:    getbool("AWS_USE_SSL", false),
		},
		MongoEnabled: getbool("MONGO_ENABLED", false),
		S3Enabled:    getbool("S3_ENABLED", false),
	}

	var errs []error
	var err error
	if s.ImportBatchSize, err = getint("IMPORT_BATCH_SIZE", 1000); err != nil {
		errs = append(errs, err)
	}
	if s.Sheets.CacheTTL, err = getduration("SHEETS_CACHE_TTL", 5*time.Minute); err != nil {
		errs = append(errs, err)
	}
	if s.Sheets.MinInterval, err = getduration("SHEETS_MIN_INTERVAL", time.Second); err != nil {
		errs = append(errs, err)
	}
	if s.Sheets.MaxAttempts, err = getint("SHEETS_MAX_ATTEMPTS", 3); err != nil {
		errs = append(errs, err)
	}
	if s.Auth.TTL, err = getduration("JWT_TTL", 24*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if maxConns, err := getint("PG_MAX_CONNS", 0); err != nil {
		errs = append(errs, err)
	} else {
		s.Postgres.MaxConns = int32(maxConns)
	}

	switch s.Backend {
	case BackendPostgres, BackendSQLite, BackendSheets, BackendXLSX, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND %q: expected postgres, sqlite, sheets, xlsx or memory", s.Backend))
	}
	if s.Auth.Enabled && s.Auth.Secret == "" {
		errs = append(errs, errors.New("AUTH_ENABLED requires JWT_SECRET"))
	}
	if s.Backend == BackendXLSX {
		s.S3Enabled = true
	}

	return s, errors.Join(errs...)
}

// Init connects the optional services the settings ask for. A failed
// optional connection is logged and left nil; the record store backend is
// opened later by OpenStore.
func Init(ctx context.Context, s Settings, log *zap.Logger) *Config {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Config{Settings: s}

	if s.S3Enabled {
		s3c, err := s3.NewConnection(s.S3)
		if err == nil {
			err = s3c.EnsureBucket(ctx)
		}
		if err != nil {
			log.Warn("[CONFIG][S3] connect failed, uploads disabled", zap.Error(err))
		} else {
			c.S3 = s3c
			log.Info("[CONFIG][S3] connected", zap.String("bucket", s3c.Bucket))
		}
	}

	if s.MongoEnabled {
		mg, err := mongo.NewConnection(ctx, s.Mongo)
		if err != nil {
			log.Warn("[CONFIG][MONGO] connect failed, audit and import records disabled", zap.Error(err))
		} else {
			c.Mongo = mg
			log.Info("[CONFIG][MONGO] connected", zap.String("db", s.Mongo.DB))
		}
	}

	return c
}

// CheckConnections pings every connection that is open.
func (c *Config) CheckConnections(ctx context.Context) error {
	var errs []error

	if c.Postgres != nil {
		if c.Postgres.Pool == nil {
			errs = append(errs, errors.New("postgres not initialized"))
		} else if err := c.Postgres.Pool.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("postgres ping failed: %w", err))
		}
	}

	if c.SQLite != nil {
		if db, err := c.SQLite.DB.DB(); err != nil {
			errs = append(errs, fmt.Errorf("sqlite handle: %w", err))
		} else if err := db.PingContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("sqlite ping failed: %w", err))
		}
	}

	if c.Mongo != nil {
		if err := c.Mongo.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongo ping failed: %w", err))
		}
	}

	if c.S3 != nil {
		if err := c.S3.Ping(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Close releases every open connection.
func (c *Config) Close(ctx context.Context) {
	c.Postgres.Close()
	_ = c.SQLite.Close()
	_ = c.Mongo.Close(ctx)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getbool(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getint(k string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def, fmt.Errorf("%s: expected a non-negative integer, got %q", k, v)
	}
	return n, nil
}

func getduration(k string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def, fmt.Errorf("%s: expected a duration such as 1s, got %q", k, v)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
