package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/i474232898/air-quality-ingest/internal/airquality"
)

// TableName is the reading table managed by the pipeline.
const TableName = "air_readings"

// requiredColumns must all exist for the table to be usable.
var requiredColumns = []string{"id", "timestamp", "pm10", "pm2_5", "dust", "inserted_at"}

// SQLStore is a database/sql backed airquality.Store. The *sql.DB is the
// connection pool; each run acquires one connection through Acquire.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  *slog.Logger
}

var _ airquality.Store = (*SQLStore)(nil)

// NewSQLStore wraps an open pool. driver selects the SQL dialect
// ("postgres" or "sqlite3").
func NewSQLStore(db *sql.DB, driver string, logger *slog.Logger) (*SQLStore, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStore{db: db, dialect: d, logger: logger}, nil
}

// DB exposes the underlying pool.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Close closes the pool.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// EnsureSchema creates the table if absent, then checks that the existing
// table has every required column and a unique index on timestamp alone.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.createTable); err != nil {
		return fmt.Errorf("create %s: %w", TableName, err)
	}

	columns, err := s.columns(ctx)
	if err != nil {
		return fmt.Errorf("inspect %s columns: %w", TableName, err)
	}
	for _, c := range requiredColumns {
		if !columns[c] {
			return &airquality.SchemaError{Table: TableName, Reason: fmt.Sprintf("missing column %q", c)}
		}
	}

	ok, err := s.hasUniqueTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("inspect %s indexes: %w", TableName, err)
	}
	if !ok {
		return &airquality.SchemaError{Table: TableName, Reason: "no unique constraint on timestamp"}
	}
	return nil
}

func (s *SQLStore) columns(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.getColumns, TableName)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("close column rows", "error", err)
		}
	}()

	out := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}

func (s *SQLStore) hasUniqueTimestamp(ctx context.Context) (bool, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.getUniqueIndexes, TableName)
	if err != nil {
		return false, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("close index rows", "error", err)
		}
	}()

	indexes := make(map[string][]string)
	for rows.Next() {
		var index string
		var column sql.NullString
		if err := rows.Scan(&index, &column); err != nil {
			return false, err
		}
		indexes[index] = append(indexes[index], column.String)
	}
	if err := rows.Err(); err != nil {
		return false, err
	}

	for _, cols := range indexes {
		if len(cols) == 1 && cols[0] == "timestamp" {
			return true, nil
		}
	}
	return false, nil
}

// Acquire checks out one pooled connection for the duration of a run.
func (s *SQLStore) Acquire(ctx context.Context) (airquality.Session, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &sqlSession{conn: conn, dialect: s.dialect}, nil
}

// Range returns readings with from <= timestamp <= to, oldest first.
// limit <= 0 means no limit.
func (s *SQLStore) Range(ctx context.Context, from, to time.Time, limit int) ([]airquality.Reading, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.getReadings,
		s.dialect.encodeTime(from),
		s.dialect.encodeTime(to),
		s.dialect.encodeLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("close readings rows", "error", err)
		}
	}()
	return scanReadings(rows)
}

func scanReadings(rows *sql.Rows) ([]airquality.Reading, error) {
	var out []airquality.Reading
	for rows.Next() {
		var ts any
		var pm10, pm25, dust sql.NullFloat64
		if err := rows.Scan(&ts, &pm10, &pm25, &dust); err != nil {
			return nil, err
		}
		t, err := decodeTime(ts)
		if err != nil {
			return nil, err
		}
		out = append(out, airquality.Reading{
			Timestamp: t,
			PM10:      floatPtr(pm10),
			PM25:      floatPtr(pm25),
			Dust:      floatPtr(dust),
		})
	}
	return out, rows.Err()
}

type sqlSession struct {
	conn    *sql.Conn
	dialect dialect
}

// InsertIfAbsent runs one autocommit insert guarded by the unique timestamp
// constraint. Zero affected rows means the timestamp already existed.
func (s *sqlSession) InsertIfAbsent(ctx context.Context, r airquality.Reading) (bool, error) {
	res, err := s.conn.ExecContext(ctx, s.dialect.insertReading,
		s.dialect.encodeTime(r.Timestamp),
		nullable(r.PM10),
		nullable(r.PM25),
		nullable(r.Dust),
	)
	if err != nil {
		return false, fmt.Errorf("insert reading: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *sqlSession) Close() error {
	err := s.conn.Close()
	if errors.Is(err, sql.ErrConnDone) {
		return nil
	}
	return err
}

func nullable(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
