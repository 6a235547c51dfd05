package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

type AppConfig struct {
	AppEnv   string     `validate:"oneof=dev prod"`
	LogLevel slog.Level `validate:"-"`
	Port     string     `validate:"required,numeric"`

	// Coordinate readings are fetched for.
	Latitude  float64 `validate:"latitude"`
	Longitude float64 `validate:"longitude"`

	// PastDays is the lookback window requested on every run.
	PastDays int `validate:"min=1,max=92"`

	// Timezone the provider renders timestamps in. Storage is always UTC.
	Timezone string         `validate:"required"`
	Location *time.Location `validate:"-"`

	AirQualityBaseURL string        `validate:"required,url"`
	HTTPTimeout       time.Duration `validate:"gt=0"`

	// FetchInterval controls how often the ingestion run is triggered.
	FetchInterval time.Duration `validate:"gte=1m"`
	RunTimeout    time.Duration `validate:"gt=0"`

	Database DatabaseConfig
}

type DatabaseConfig struct {
	Driver string `validate:"oneof=postgres sqlite3 memory"`
	DSN    string
	// DSNSource names the candidate that produced DSN, for startup logs.
	DSNSource  string
	SQLitePath string

	MaxOpenConns    int           `validate:"gte=0"`
	MaxIdleConns    int           `validate:"gte=0"`
	ConnMaxLifetime time.Duration `validate:"gte=0"`
	ConnectTimeout  time.Duration `validate:"gt=0"`
}

// LoadFromEnv loads an optional .env file, then reads the process environment.
func LoadFromEnv() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	return Load(EnvLookup)
}

// Load reads configuration through lookup with sensible defaults.
func Load(lookup LookupFunc) (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	cfg.AppEnv = getenvDefault(lookup, "APP_ENV", "dev")

	cfg.LogLevel, err = parseLogLevel(getenvDefault(lookup, "LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	cfg.Port = getenvDefault(lookup, "PORT", "8080")

	if cfg.Latitude, err = getenvFloat(lookup, "LATITUDE", 27.9576); err != nil {
		return nil, err
	}
	if cfg.Longitude, err = getenvFloat(lookup, "LONGITUDE", -15.5995); err != nil {
		return nil, err
	}
	if cfg.PastDays, err = getenvInt(lookup, "PAST_DAYS", 1); err != nil {
		return nil, err
	}

	cfg.Timezone = getenvDefault(lookup, "TIMEZONE", "Europe/London")
	cfg.Location, err = time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}

	cfg.AirQualityBaseURL = getenvDefault(lookup, "AIRQUALITY_BASE_URL", "https://air-quality-api.open-meteo.com")

	if cfg.HTTPTimeout, err = getenvDuration(lookup, "HTTP_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.FetchInterval, err = getenvDuration(lookup, "FETCH_INTERVAL", "1h"); err != nil {
		return nil, err
	}
	if cfg.RunTimeout, err = getenvDuration(lookup, "RUN_TIMEOUT", "2m"); err != nil {
		return nil, err
	}

	if cfg.Database, err = loadDatabase(lookup); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadDatabase(lookup LookupFunc) (DatabaseConfig, error) {
	db := DatabaseConfig{
		Driver:     getenvDefault(lookup, "DB_DRIVER", "postgres"),
		SQLitePath: getenvDefault(lookup, "SQLITE_PATH", "data/airquality.db"),
	}

	switch db.Driver {
	case "postgres":
		db.DSN, db.DSNSource, _ = Resolve(postgresSources(lookup)...)
	case "sqlite3":
		db.DSN, db.DSNSource, _ = Resolve(Key(lookup, "DATABASE_URL"))
	}

	var err error
	if db.MaxOpenConns, err = getenvInt(lookup, "DB_MAX_OPEN_CONNS", 4); err != nil {
		return db, err
	}
	if db.MaxIdleConns, err = getenvInt(lookup, "DB_MAX_IDLE_CONNS", 2); err != nil {
		return db, err
	}
	if db.ConnMaxLifetime, err = getenvDuration(lookup, "DB_CONN_MAX_LIFETIME", "30m"); err != nil {
		return db, err
	}
	if db.ConnectTimeout, err = getenvDuration(lookup, "DB_CONNECT_TIMEOUT", "5s"); err != nil {
		return db, err
	}
	return db, nil
}

func getenvDefault(lookup LookupFunc, key, def string) string {
	if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func getenvInt(lookup LookupFunc, key string, def int) (int, error) {
	v := getenvDefault(lookup, key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getenvFloat(lookup LookupFunc, key string, def float64) (float64, error) {
	v := getenvDefault(lookup, key, "")
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}

func getenvDuration(lookup LookupFunc, key, def string) (time.Duration, error) {
	v := getenvDefault(lookup, key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
