package sqlite

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type ConnectionInfo struct {
	Path string
	// Debug turns on gorm's SQL logging.
	Debug bool
}

type SQLite struct {
	DB   *gorm.DB
	Path string
}

func NewConnection(info ConnectionInfo) (*SQLite, error) {
	if info.Path == "" {
		info.Path = "gestao.db"
	}
	if dir := filepath.Dir(info.Path); dir != "." && info.Path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite dir: %w", err)
		}
	}

	level := logger.Silent
	if info.Debug {
		level = logger.Info
	}
	db, err := gorm.Open(sqlite.Open(info.Path), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("error trying to connect to database: %w", err)
	}

	// one writer at a time; sqlite serializes writes anyway
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return &SQLite{DB: db, Path: info.Path}, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
