package airquality

// Band is a qualitative air-quality level derived from PM10 (µg/m³).
type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandModerate  Band = "moderate"
	BandPoor      Band = "poor"
	BandSevere    Band = "severe"
)

// Band upper bounds are inclusive.
var pm10Bands = []struct {
	max  float64
	band Band
}{
	{20, BandExcellent},
	{50, BandGood},
	{100, BandModerate},
	{200, BandPoor},
}

// PM10Band classifies a PM10 concentration. A nil value has no band.
func PM10Band(pm10 *float64) (Band, bool) {
	if pm10 == nil {
		return "", false
	}
	for _, b := range pm10Bands {
		if *pm10 <= b.max {
			return b.band, true
		}
	}
	return BandSevere, true
}

// SimpleAQI is a communication index, not a regulatory one:
// max(1.4 * pm2.5, 0.9 * pm10). It needs both values.
func SimpleAQI(pm10, pm25 *float64) *float64 {
	if pm10 == nil || pm25 == nil {
		return nil
	}
	v := max(*pm25*1.4, *pm10*0.9)
	return &v
}
