// Package gormstore implements store.OrderStore on Gorm with a SQLite or
// Postgres backend selected by configuration.
package gormstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"exeq/internal/store/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

type GormStore struct {
	db *gorm.DB
}

// Open builds a store for the given driver ("sqlite" or "postgres") and DSN.
// For sqlite the DSN is a file path; pragmas for WAL mode and busy timeout
// are applied automatically.
func Open(driver, dsn string) (*GormStore, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("database dsn cannot be empty")
	}

	var dialector gorm.Dialector
	switch driver {
	case "", "sqlite":
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		dialector = &sqlite.Dialector{
			DriverName: "sqlite",
			DSN:        fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", dsn),
		}
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	return New(db)
}

// New wraps an existing gorm connection, running migrations. Used by tests
// with an in-memory database.
func New(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db cannot be nil")
	}
	models := []interface{}{
		&model.OrderModel{},
		&model.TradeModel{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(4)
		sqlDB.SetMaxIdleConns(4)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
