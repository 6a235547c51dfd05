package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Options configures the connection pool.
type Options struct {
	Driver          string
	DSN             string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// Open creates the pool for opts.Driver and verifies connectivity within
// opts.ConnectTimeout.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (*SQLStore, error) {
	dsn, err := buildDSN(opts)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(opts.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns >= 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	pingCtx := ctx
	if opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	s, err := NewSQLStore(db, opts.Driver, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func buildDSN(opts Options) (string, error) {
	switch opts.Driver {
	case DriverPostgres:
		if opts.DSN == "" {
			return "", fmt.Errorf("postgres requires a DSN")
		}
		return opts.DSN, nil
	case DriverSQLite:
		return buildSQLiteDSN(opts)
	default:
		return "", fmt.Errorf("unsupported sql driver %q", opts.Driver)
	}
}

func buildSQLiteDSN(opts Options) (string, error) {
	if opts.DSN != "" {
		return opts.DSN, nil
	}

	path := opts.SQLitePath
	if path == "" {
		return "", fmt.Errorf("sqlite requires SQLITE_PATH or a DSN")
	}
	dir := filepath.Dir(strings.TrimPrefix(path, "file:"))
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	// busy_timeout covers overlapping runs racing on the same file.
	params := []string{
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
