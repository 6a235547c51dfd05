package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(MapLookup(nil))
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 27.9576, cfg.Latitude)
	assert.Equal(t, -15.5995, cfg.Longitude)
	assert.Equal(t, 1, cfg.PastDays)
	assert.Equal(t, "Europe/London", cfg.Timezone)
	assert.Equal(t, "Europe/London", cfg.Location.String())
	assert.Equal(t, "https://air-quality-api.open-meteo.com", cfg.AirQualityBaseURL)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, time.Hour, cfg.FetchInterval)
	assert.Equal(t, 2*time.Minute, cfg.RunTimeout)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "localhost", cfg.Database.DSNSource)
	assert.Contains(t, cfg.Database.DSN, "host=localhost port=5433")
	assert.Equal(t, 5*time.Second, cfg.Database.ConnectTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(MapLookup(map[string]string{
		"APP_ENV":        "prod",
		"LOG_LEVEL":      "debug",
		"PORT":           "9090",
		"LATITUDE":       "40.4168",
		"LONGITUDE":      "-3.7038",
		"PAST_DAYS":      "3",
		"TIMEZONE":       "UTC",
		"FETCH_INTERVAL": "30m",
		"DB_DRIVER":      "sqlite3",
		"SQLITE_PATH":    "/tmp/aq.db",
	}))
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.AppEnv)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 40.4168, cfg.Latitude)
	assert.Equal(t, 3, cfg.PastDays)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 30*time.Minute, cfg.FetchInterval)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "/tmp/aq.db", cfg.Database.SQLitePath)
	assert.Empty(t, cfg.Database.DSN)
}

func TestLoad_DSNCascade(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		wantSource string
		wantDSN    string
	}{
		{
			name:       "database url wins",
			env:        map[string]string{"DATABASE_URL": "postgres://u:p@cloud:5432/aq", "AM_I_IN_DOCKER": "1"},
			wantSource: "DATABASE_URL",
			wantDSN:    "postgres://u:p@cloud:5432/aq",
		},
		{
			name:       "docker internal host",
			env:        map[string]string{"AM_I_IN_DOCKER": "true", "DB_USER": "admin", "DB_PASSWORD": "secret"},
			wantSource: "docker",
			wantDSN:    "host=db port=5432 user=admin password=secret dbname=airquality sslmode=disable",
		},
		{
			name:       "user and database name are quoted",
			env:        map[string]string{"DB_USER": "air admin", "DB_PASSWORD": "p w", "DB_NAME": "o'brien"},
			wantSource: "localhost",
			wantDSN:    `host=localhost port=5433 user='air admin' password='p w' dbname='o\'brien' sslmode=disable`,
		},
		{
			name:       "blank database url falls through",
			env:        map[string]string{"DATABASE_URL": "  "},
			wantSource: "localhost",
			wantDSN:    "host=localhost port=5433 user=postgres password='' dbname=airquality sslmode=disable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(MapLookup(tt.env))
			require.NoError(t, err)
			assert.Equal(t, tt.wantSource, cfg.Database.DSNSource)
			assert.Equal(t, tt.wantDSN, cfg.Database.DSN)
			if tt.wantSource != "DATABASE_URL" {
				_, err := pq.NewConnector(cfg.Database.DSN)
				assert.NoError(t, err, "lib/pq rejects %q", cfg.Database.DSN)
			}
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"app env":        {"APP_ENV": "staging"},
		"log level":      {"LOG_LEVEL": "loud"},
		"past days zero": {"PAST_DAYS": "0"},
		"past days text": {"PAST_DAYS": "one"},
		"latitude":       {"LATITUDE": "123"},
		"timezone":       {"TIMEZONE": "Mars/Olympus"},
		"interval":       {"FETCH_INTERVAL": "hourly"},
		"short interval": {"FETCH_INTERVAL": "10s"},
		"driver":         {"DB_DRIVER": "mysql"},
		"base url":       {"AIRQUALITY_BASE_URL": "not a url"},
		"port":           {"PORT": "http"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(MapLookup(env))
			assert.Error(t, err)
		})
	}
}

func TestResolve(t *testing.T) {
	lookup := MapLookup(map[string]string{"B": "b-value", "EMPTY": "", "FLAG": "1"})

	v, from, ok := Resolve(Key(lookup, "A"), Key(lookup, "EMPTY"), Key(lookup, "B"), Default("fallback", "x"))
	require.True(t, ok)
	assert.Equal(t, "b-value", v)
	assert.Equal(t, "B", from)

	v, from, ok = Resolve(When(lookup, "NOFLAG", "skipped", "s"), When(lookup, "FLAG", "flagged", "f"))
	require.True(t, ok)
	assert.Equal(t, "f", v)
	assert.Equal(t, "flagged", from)

	_, _, ok = Resolve(Key(lookup, "A"), Source{Name: "nil lookup"})
	assert.False(t, ok)

	_, _, ok = Resolve()
	assert.False(t, ok)
}

func TestQuoteDSNValue(t *testing.T) {
	assert.Equal(t, "''", quoteDSNValue(""))
	assert.Equal(t, "plain", quoteDSNValue("plain"))
	assert.Equal(t, `'with space'`, quoteDSNValue("with space"))
	assert.Equal(t, `'it\'s'`, quoteDSNValue("it's"))
}
