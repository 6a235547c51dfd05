package airquality

import "time"

// Summarize aggregates readings per field. Nil values are excluded from the
// count, mean, min and max of their field.
func Summarize(from, to time.Time, readings []Reading) Summary {
	var pm10, pm25, dust accumulator
	var latest *Reading
	for i, r := range readings {
		pm10.add(r.PM10)
		pm25.add(r.PM25)
		dust.add(r.Dust)
		if latest == nil || r.Timestamp.After(latest.Timestamp) {
			latest = &readings[i]
		}
	}
	return Summary{
		From:     from,
		To:       to,
		Readings: len(readings),
		PM10:     pm10.stats(),
		PM25:     pm25.stats(),
		Dust:     dust.stats(),
		Latest:   newLatest(latest),
	}
}

func newLatest(r *Reading) *Latest {
	if r == nil {
		return nil
	}
	band, _ := PM10Band(r.PM10)
	return &Latest{
		Reading: *r,
		Band:    band,
		AQI:     SimpleAQI(r.PM10, r.PM25),
	}
}

type accumulator struct {
	n        int
	sum      float64
	min, max float64
}

func (a *accumulator) add(v *float64) {
	if v == nil {
		return
	}
	if a.n == 0 || *v < a.min {
		a.min = *v
	}
	if a.n == 0 || *v > a.max {
		a.max = *v
	}
	a.sum += *v
	a.n++
}

func (a *accumulator) stats() FieldStats {
	if a.n == 0 {
		return FieldStats{}
	}
	mean := a.sum / float64(a.n)
	lo, hi := a.min, a.max
	return FieldStats{Count: a.n, Mean: &mean, Min: &lo, Max: &hi}
}
