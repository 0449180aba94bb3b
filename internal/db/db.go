package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"strings"

	"github.com/doakesbacon/sqlalchemy-challenge/internal/config"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// RequiredTables are the tables every climate dataset must provide.
var RequiredTables = []string{"measurement", "station"}

// Open opens the dataset read-only and returns the connection pool shared by
// all requests. The file must already exist.
func Open(cfg config.Config) (*sql.DB, error) {
	dsn := buildDSN(cfg)

	var (
		db  *sql.DB
		err error
	)
	if cfg.LogSQL {
		drv, lookupErr := lookupDriver(cfg.Driver)
		if lookupErr != nil {
			return nil, lookupErr
		}
		connector, connErr := NewLoggingConnector(drv, dsn, slog.Default())
		if connErr != nil {
			return nil, connErr
		}
		db = sql.OpenDB(connector)
	} else {
		db, err = sql.Open(cfg.Driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns >= 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return db, nil
}

func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

// CheckSchema fails when one of RequiredTables is missing.
func CheckSchema(ctx context.Context, db *sql.DB) error {
	for _, table := range RequiredTables {
		var n int
		err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&n)
		if err != nil {
			return fmt.Errorf("check table %s: %w", table, err)
		}
		if n == 0 {
			return fmt.Errorf("dataset has no %q table", table)
		}
	}
	return nil
}

func buildDSN(cfg config.Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}

	// The dataset is reference data: open it read-only and refuse writes on
	// every pooled connection.
	var params []string
	switch cfg.Driver {
	case config.DriverModernc:
		params = []string{
			"mode=ro",
			"_pragma=query_only(1)",
			"_pragma=busy_timeout(5000)",
		}
	default:
		params = []string{
			"mode=ro",
			"_query_only=true",
			"_busy_timeout=5000",
		}
	}

	path := cfg.Path
	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&")
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&"))
}

// lookupDriver returns the driver registered under name without connecting.
func lookupDriver(name string) (driver.Driver, error) {
	handle, err := sql.Open(name, "")
	if err != nil {
		return nil, fmt.Errorf("db driver %q: %w", name, err)
	}
	drv := handle.Driver()
	_ = handle.Close()
	return drv, nil
}
