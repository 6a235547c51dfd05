package airquality

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	tests := []struct {
		in   string
		loc  *time.Location
		want time.Time
	}{
		{"2025-01-01T00:00", time.UTC, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2025-01-01T00:00:30", time.UTC, time.Date(2025, 1, 1, 0, 0, 30, 0, time.UTC)},
		{"2025-01-01 13:15", time.UTC, time.Date(2025, 1, 1, 13, 15, 0, 0, time.UTC)},
		// Summer time in London is UTC+1.
		{"2025-07-01T12:00", london, time.Date(2025, 7, 1, 11, 0, 0, 0, time.UTC)},
		// An explicit offset wins over the configured zone.
		{"2025-07-01T12:00:00+02:00", london, time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)},
		{"2025-01-01T00:00:00.750Z", nil, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		// Unix seconds ignore the configured zone, including across the
		// London fall-back where 01:00 local happens twice.
		{"1761436800", london, time.Date(2025, 10, 26, 0, 0, 0, 0, time.UTC)},
		{"1761440400", london, time.Date(2025, 10, 26, 1, 0, 0, 0, time.UTC)},
		{"0", time.UTC, time.Unix(0, 0).UTC()},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in, tt.loc)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseTimestamp_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "-", "2025-13-01T00:00", "01/01/2025", "tomorrow", "99999999999999999999"} {
		_, err := ParseTimestamp(in, time.UTC)
		assert.Error(t, err, "input %q", in)
	}
}

func TestNormalize_NullsAreNotZero(t *testing.T) {
	r, err := Normalize(RawRecord{
		Time: "2025-01-01T00:00",
		Values: map[string]*float64{
			FieldPM10: f(0),
			FieldPM25: nil,
		},
	}, time.UTC)
	require.NoError(t, err)

	require.NotNil(t, r.PM10)
	assert.Equal(t, 0.0, *r.PM10)
	assert.Nil(t, r.PM25)
	assert.Nil(t, r.Dust)
}

func TestNormalize_NonFiniteBecomesNull(t *testing.T) {
	r, err := Normalize(RawRecord{
		Time: "2025-01-01T00:00",
		Values: map[string]*float64{
			FieldPM10: f(math.NaN()),
			FieldPM25: f(math.Inf(1)),
			FieldDust: f(3),
		},
	}, time.UTC)
	require.NoError(t, err)
	assert.Nil(t, r.PM10)
	assert.Nil(t, r.PM25)
	require.NotNil(t, r.Dust)
	assert.Equal(t, 3.0, *r.Dust)
}

func TestNormalize_CopiesValues(t *testing.T) {
	v := 7.0
	rec := RawRecord{Time: "2025-01-01T00:00", Values: map[string]*float64{FieldPM10: &v}}
	r, err := Normalize(rec, time.UTC)
	require.NoError(t, err)

	v = 8
	assert.Equal(t, 7.0, *r.PM10)
}
