package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

var (
	ErrDriverUnsupported = errors.New("storage: driver is not supported")
	ErrDSNRequired       = errors.New("storage: dsn required")
)

// Config captures how to open the relational store backing the bun repositories.
type Config struct {
	// Driver is "sqlite3" or "postgres". "sqlite" and "pg" are accepted aliases.
	Driver       string
	DSN          string
	MaxOpenConns int
}

// NewBunDB opens a *bun.DB with the dialect that matches the driver.
func NewBunDB(cfg Config) (*bun.DB, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, ErrDSNRequired
	}
	driver, err := normalizeDriver(cfg.Driver, dsn)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	switch driver {
	case "postgres":
		return bun.NewDB(sqlDB, pgdialect.New()), nil
	default:
		// shared-cache in-memory databases vanish once every connection closes
		if strings.Contains(dsn, "mode=memory") && cfg.MaxOpenConns == 0 {
			sqlDB.SetMaxOpenConns(1)
		}
		return bun.NewDB(sqlDB, sqlitedialect.New()), nil
	}
}

func normalizeDriver(driver, dsn string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3":
		return "sqlite3", nil
	case "postgres", "postgresql", "pg":
		return "postgres", nil
	case "":
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			return "postgres", nil
		}
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrDriverUnsupported, driver)
	}
}
