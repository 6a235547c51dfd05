package airquality

import (
	"time"

	"github.com/google/uuid"
)

// Field names used by the upstream provider and the store.
const (
	FieldPM10 = "pm10"
	FieldPM25 = "pm2_5"
	FieldDust = "dust"
)

// Fields lists the hourly series requested from the provider, in column order.
var Fields = []string{FieldPM10, FieldPM25, FieldDust}

// Coordinate is the fixed geographic point readings are fetched for.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RawRecord is one hourly slot as returned by a Fetcher, before normalization.
// A missing key or a nil value in Values means the provider omitted the slot.
type RawRecord struct {
	Time   string
	Values map[string]*float64
}

// Reading is one normalized sensor observation. Timestamp is always UTC.
type Reading struct {
	Timestamp time.Time `json:"timestamp"`
	PM10      *float64  `json:"pm10"`
	PM25      *float64  `json:"pm2_5"`
	Dust      *float64  `json:"dust"`
}

// RunStatus is the terminal status of an IngestionRun.
type RunStatus string

const (
	StatusSuccess RunStatus = "success"
	StatusPartial RunStatus = "partial"
	StatusFailed  RunStatus = "failed"
)

// IngestionRun summarizes one pipeline execution. It is reported, never stored.
type IngestionRun struct {
	ID         uuid.UUID `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	Requested int `json:"requested"`
	Inserted  int `json:"inserted"`
	Skipped   int `json:"skipped"`
	Rejected  int `json:"rejected"`
	Failed    int `json:"failed"`

	Status RunStatus `json:"status"`

	// Errors holds the per-record NormalizationError and WriteError values.
	Errors []error `json:"-"`
}

func newRun(now time.Time) IngestionRun {
	return IngestionRun{
		ID:        uuid.New(),
		StartedAt: now,
		Status:    StatusSuccess,
	}
}

// Duration is the wall time between start and finish.
func (r IngestionRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// FieldStats is the null-aware aggregate for one concentration series.
type FieldStats struct {
	Count int      `json:"count"`
	Mean  *float64 `json:"mean"`
	Min   *float64 `json:"min"`
	Max   *float64 `json:"max"`
}

// Latest is the most recent reading in a range with its derived indices.
// Band is empty and AQI nil when the inputs they need are missing.
type Latest struct {
	Reading
	Band Band     `json:"band,omitempty"`
	AQI  *float64 `json:"aqi"`
}

// Summary aggregates readings over a time range. Latest is nil for an
// empty range.
type Summary struct {
	From     time.Time  `json:"from"`
	To       time.Time  `json:"to"`
	Readings int        `json:"readings"`
	PM10     FieldStats `json:"pm10"`
	PM25     FieldStats `json:"pm2_5"`
	Dust     FieldStats `json:"dust"`
	Latest   *Latest    `json:"latest"`
}
