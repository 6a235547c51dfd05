package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/air-quality-ingest/internal/airquality"
	"github.com/sony/gobreaker"
)

// DefaultOpenMeteoBaseURL is the public Open-Meteo air-quality host.
const DefaultOpenMeteoBaseURL = "https://air-quality-api.open-meteo.com"

const openMeteoPath = "/v1/air-quality"

var (
	errMissingHourly = errors.New("payload has no hourly section")
	errMissingTime   = errors.New("payload has no hourly.time series")
	errPastDays      = errors.New("past_days must be at least 1")
)

// OpenMeteoProvider implements airquality.Fetcher for the Open-Meteo
// air-quality API.
type OpenMeteoProvider struct {
	name     string
	baseURL  string
	timezone string
	client   *http.Client
	circuit  *gobreaker.CircuitBreaker
}

// NewOpenMeteoProvider creates a provider. The client's Timeout bounds every
// request; timezone is the IANA zone the provider renders hourly.time in.
func NewOpenMeteoProvider(client *http.Client, baseURL, timezone string) *OpenMeteoProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo-airquality",
		MaxRequests: 1,
		Interval:    1 * time.Hour,
		Timeout:     10 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	if baseURL == "" {
		baseURL = DefaultOpenMeteoBaseURL
	}
	if timezone == "" {
		timezone = "UTC"
	}

	return &OpenMeteoProvider{
		name:     "openmeteo",
		baseURL:  strings.TrimRight(baseURL, "/"),
		timezone: timezone,
		client:   client,
		circuit:  cb,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// Fetch requests the last pastDays of hourly pm10, pm2_5 and dust readings.
// Every failure is returned as *airquality.FetchError and no records.
func (p *OpenMeteoProvider) Fetch(ctx context.Context, coord airquality.Coordinate, pastDays int) ([]airquality.RawRecord, error) {
	if pastDays < 1 {
		return nil, p.fail("request", errPastDays)
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(coord.Latitude, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(coord.Longitude, 'f', -1, 64))
		values.Set("hourly", strings.Join(airquality.Fields, ","))
		values.Set("timezone", p.timezone)
		// Epoch seconds stay unambiguous across DST changes; local
		// wall-clock times repeat an hour on the autumn transition.
		values.Set("timeformat", "unixtime")
		values.Set("past_days", strconv.Itoa(pastDays))

		u := fmt.Sprintf("%s%s?%s", p.baseURL, openMeteoPath, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequest(ctx, p.client, p.circuit, buildRequest)
	if err != nil {
		return nil, p.fail("request", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Hourly map[string]json.RawMessage `json:"hourly"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, p.fail("decode", err)
	}

	records, err := parseHourly(payload.Hourly)
	if err != nil {
		return nil, p.fail("decode", err)
	}
	return records, nil
}

func (p *OpenMeteoProvider) fail(op string, err error) error {
	return &airquality.FetchError{Op: p.name + " " + op, Err: err}
}

// parseHourly turns index-aligned hourly series into records.
func parseHourly(hourly map[string]json.RawMessage) ([]airquality.RawRecord, error) {
	if hourly == nil {
		return nil, errMissingHourly
	}

	rawTime, ok := hourly["time"]
	if !ok || isNull(rawTime) {
		return nil, errMissingTime
	}
	times, err := parseTimes(rawTime)
	if err != nil {
		return nil, fmt.Errorf("hourly.time: %w", err)
	}

	series := make(map[string][]*float64, len(airquality.Fields))
	for _, field := range airquality.Fields {
		raw, ok := hourly[field]
		if !ok || isNull(raw) {
			return nil, fmt.Errorf("payload has no hourly.%s series", field)
		}
		var values []*float64
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, fmt.Errorf("hourly.%s: %w", field, err)
		}
		if len(values) != len(times) {
			return nil, fmt.Errorf("hourly.%s has %d values for %d timestamps", field, len(values), len(times))
		}
		series[field] = values
	}

	records := make([]airquality.RawRecord, len(times))
	for i, ts := range times {
		values := make(map[string]*float64, len(series))
		for field, vs := range series {
			values[field] = vs[i]
		}
		records[i] = airquality.RawRecord{Time: ts, Values: values}
	}
	return records, nil
}

// parseTimes accepts hourly.time as epoch seconds (timeformat=unixtime) or
// as ISO-8601 strings. Epoch values are kept as their decimal text.
func parseTimes(raw json.RawMessage) ([]string, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}

	times := make([]string, len(items))
	for i, item := range items {
		item = bytes.TrimSpace(item)
		switch {
		case isNull(item):
			return nil, fmt.Errorf("index %d: null timestamp", i)
		case item[0] == '"':
			if err := json.Unmarshal(item, &times[i]); err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
		default:
			var sec int64
			if err := json.Unmarshal(item, &sec); err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			times[i] = strconv.FormatInt(sec, 10)
		}
	}
	return times, nil
}

// isNull reports a JSON null, which decodes into a nil slice without error.
func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
