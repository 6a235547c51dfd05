package config

import (
	"fmt"
	"os"
	"strings"
)

// LookupFunc reads a configuration key. os.LookupEnv satisfies it; tests
// pass a map-backed lookup instead of mutating the environment.
type LookupFunc func(key string) (string, bool)

// Source is one candidate for a configuration value.
type Source struct {
	Name   string
	Lookup func() (string, bool)
}

// Resolve returns the value of the first source that is present and
// non-blank, together with that source's name.
func Resolve(sources ...Source) (value string, from string, ok bool) {
	for _, src := range sources {
		if src.Lookup == nil {
			continue
		}
		if v, present := src.Lookup(); present && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), src.Name, true
		}
	}
	return "", "", false
}

// Key reads key through lookup.
func Key(lookup LookupFunc, key string) Source {
	return Source{
		Name:   key,
		Lookup: func() (string, bool) { return lookup(key) },
	}
}

// When yields value only if the flag key is set through lookup.
func When(lookup LookupFunc, flag, name, value string) Source {
	return Source{
		Name: name,
		Lookup: func() (string, bool) {
			v, ok := lookup(flag)
			if !ok || strings.TrimSpace(v) == "" {
				return "", false
			}
			return value, true
		},
	}
}

// Default always yields value.
func Default(name, value string) Source {
	return Source{
		Name:   name,
		Lookup: func() (string, bool) { return value, true },
	}
}

// MapLookup adapts a map to a LookupFunc.
func MapLookup(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// postgresSources lists the DSN candidates in priority order: an explicit
// DATABASE_URL, the compose-internal host when AM_I_IN_DOCKER is set, then
// the host-mapped localhost port.
func postgresSources(lookup LookupFunc) []Source {
	user := getenvDefault(lookup, "DB_USER", "postgres")
	password := getenvDefault(lookup, "DB_PASSWORD", "")
	name := getenvDefault(lookup, "DB_NAME", "airquality")
	sslmode := getenvDefault(lookup, "DB_SSLMODE", "disable")

	dsn := func(host, port string) string {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			quoteDSNValue(host), quoteDSNValue(port), quoteDSNValue(user),
			quoteDSNValue(password), quoteDSNValue(name), quoteDSNValue(sslmode))
	}

	return []Source{
		Key(lookup, "DATABASE_URL"),
		When(lookup, "AM_I_IN_DOCKER", "docker", dsn(
			getenvDefault(lookup, "DB_DOCKER_HOST", "db"),
			getenvDefault(lookup, "DB_DOCKER_PORT", "5432"),
		)),
		Default("localhost", dsn(
			getenvDefault(lookup, "DB_HOST", "localhost"),
			getenvDefault(lookup, "DB_PORT", "5433"),
		)),
	}
}

// quoteDSNValue quotes a key/value DSN value for lib/pq.
func quoteDSNValue(v string) string {
	if v == "" {
		return "''"
	}
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// EnvLookup is the process-environment LookupFunc.
var EnvLookup LookupFunc = os.LookupEnv
