package airquality

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var errEmptyTime = errors.New("empty timestamp")

// Layouts accepted for provider timestamps. Zone-less layouts are read in the
// configured provider zone.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTimestamp parses a provider timestamp and returns it in UTC,
// truncated to the second. A string of decimal digits is unix seconds.
// Wall-clock layouts without an offset are ambiguous for the repeated hour
// of a DST fall-back in loc; Go resolves them to the first occurrence.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmptyTime
	}
	if isUnixSeconds(s) {
		sec, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("unix timestamp %q: %w", s, err)
		}
		return time.Unix(sec, 0).UTC(), nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timeLayouts {
		if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
			return ts.UTC().Truncate(time.Second), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format %q", s)
}

func isUnixSeconds(s string) bool {
	if strings.HasPrefix(s, "-") {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Normalize converts one raw record into a Reading. Absent or non-finite
// values stay nil; they are never coerced to zero.
func Normalize(rec RawRecord, loc *time.Location) (Reading, error) {
	ts, err := ParseTimestamp(rec.Time, loc)
	if err != nil {
		return Reading{}, err
	}
	return Reading{
		Timestamp: ts,
		PM10:      value(rec.Values, FieldPM10),
		PM25:      value(rec.Values, FieldPM25),
		Dust:      value(rec.Values, FieldDust),
	}, nil
}

func value(values map[string]*float64, key string) *float64 {
	v, ok := values[key]
	if !ok || v == nil {
		return nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	out := *v
	return &out
}

// normalizeAll splits records into valid readings and per-record rejections.
// Input order is preserved.
func normalizeAll(records []RawRecord, loc *time.Location) ([]Reading, []error) {
	readings := make([]Reading, 0, len(records))
	var rejected []error
	for i, rec := range records {
		r, err := Normalize(rec, loc)
		if err != nil {
			rejected = append(rejected, &NormalizationError{Index: i, Time: rec.Time, Err: err})
			continue
		}
		readings = append(readings, r)
	}
	return readings, rejected
}
