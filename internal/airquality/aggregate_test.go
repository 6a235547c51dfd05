package airquality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	readings := []Reading{
		{Timestamp: base, PM10: f(3), PM25: f(1)},
		{Timestamp: base, PM10: f(9), Dust: f(2)},
		{Timestamp: base, PM10: f(6)},
	}

	sum := Summarize(base, base, readings)
	assert.Equal(t, 3, sum.Readings)

	require.Equal(t, 3, sum.PM10.Count)
	assert.Equal(t, 6.0, *sum.PM10.Mean)
	assert.Equal(t, 3.0, *sum.PM10.Min)
	assert.Equal(t, 9.0, *sum.PM10.Max)

	require.Equal(t, 1, sum.PM25.Count)
	assert.Equal(t, 1.0, *sum.PM25.Mean)

	require.Equal(t, 1, sum.Dust.Count)
	assert.Equal(t, 2.0, *sum.Dust.Mean)
}

func TestSummarize_Empty(t *testing.T) {
	sum := Summarize(base, base, nil)
	assert.Equal(t, 0, sum.Readings)
	assert.Equal(t, FieldStats{}, sum.PM10)
	assert.Nil(t, sum.Latest)
}

func TestSummarize_LatestCarriesBandAndAQI(t *testing.T) {
	readings := []Reading{
		{Timestamp: base.Add(2 * time.Hour), PM10: f(60), PM25: f(30)},
		{Timestamp: base, PM10: f(5), PM25: f(1)},
		{Timestamp: base.Add(time.Hour), PM10: f(7)},
	}

	sum := Summarize(base, base.Add(2*time.Hour), readings)
	require.NotNil(t, sum.Latest)
	assert.True(t, sum.Latest.Timestamp.Equal(base.Add(2*time.Hour)))
	assert.Equal(t, BandModerate, sum.Latest.Band)
	require.NotNil(t, sum.Latest.AQI)
	assert.InDelta(t, 54.0, *sum.Latest.AQI, 1e-9)
}

func TestSummarize_LatestWithoutPM10HasNoBand(t *testing.T) {
	sum := Summarize(base, base, []Reading{{Timestamp: base, PM25: f(12), Dust: f(3)}})
	require.NotNil(t, sum.Latest)
	assert.Empty(t, sum.Latest.Band)
	assert.Nil(t, sum.Latest.AQI)
	assert.Nil(t, sum.Latest.PM10)
}
