package store

import (
	_ "embed"
	"fmt"
	"time"
)

//go:embed sql/sqlite/create-table.sql
var sqliteCreateTableSQL string

//go:embed sql/sqlite/insert-reading.sql
var sqliteInsertReadingSQL string

//go:embed sql/sqlite/get-readings.sql
var sqliteGetReadingsSQL string

//go:embed sql/sqlite/get-columns.sql
var sqliteGetColumnsSQL string

//go:embed sql/sqlite/get-unique-indexes.sql
var sqliteGetUniqueIndexesSQL string

//go:embed sql/postgres/create-table.sql
var postgresCreateTableSQL string

//go:embed sql/postgres/insert-reading.sql
var postgresInsertReadingSQL string

//go:embed sql/postgres/get-readings.sql
var postgresGetReadingsSQL string

//go:embed sql/postgres/get-columns.sql
var postgresGetColumnsSQL string

//go:embed sql/postgres/get-unique-indexes.sql
var postgresGetUniqueIndexesSQL string

// Driver names accepted by Open and NewSQLStore.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
	DriverMemory   = "memory"
)

// timestampLayout is fixed width so SQLite text timestamps sort and compare
// in time order.
const timestampLayout = "2006-01-02T15:04:05Z"

type dialect struct {
	createTable      string
	insertReading    string
	getReadings      string
	getColumns       string
	getUniqueIndexes string
	encodeTime       func(time.Time) interface{}
	encodeLimit      func(int) interface{} // limit <= 0 maps to "no limit"
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite:
		return dialect{
			createTable:      sqliteCreateTableSQL,
			insertReading:    sqliteInsertReadingSQL,
			getReadings:      sqliteGetReadingsSQL,
			getColumns:       sqliteGetColumnsSQL,
			getUniqueIndexes: sqliteGetUniqueIndexesSQL,
			encodeTime: func(t time.Time) interface{} {
				return t.UTC().Format(timestampLayout)
			},
			encodeLimit: func(n int) interface{} {
				if n <= 0 {
					return int64(-1)
				}
				return int64(n)
			},
		}, nil
	case DriverPostgres:
		return dialect{
			createTable:      postgresCreateTableSQL,
			insertReading:    postgresInsertReadingSQL,
			getReadings:      postgresGetReadingsSQL,
			getColumns:       postgresGetColumnsSQL,
			getUniqueIndexes: postgresGetUniqueIndexesSQL,
			encodeTime: func(t time.Time) interface{} {
				return t.UTC().Truncate(time.Second)
			},
			// LIMIT NULL is LIMIT ALL
			encodeLimit: func(n int) interface{} {
				if n <= 0 {
					return nil
				}
				return int64(n)
			},
		}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported sql driver %q", driver)
	}
}

// decodeTime accepts the shapes drivers return for the timestamp column.
func decodeTime(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return parseStoredTime(t)
	case []byte:
		return parseStoredTime(string(t))
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp type %T", v)
	}
}

func parseStoredTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
