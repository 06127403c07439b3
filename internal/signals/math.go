package signals

import "math"

// round rounds to specified decimal places
func round(value float64, places int) float64 {
	mult := math.Pow(10, float64(places))
	return math.Round(value*mult) / mult
}

// sma calculates the simple moving average of the last n values.
// ok is false when fewer than n values are available.
func sma(values []float64, n int) (float64, bool) {
	if len(values) < n || n <= 0 {
		return 0, false
	}
	sum := 0.0
	for i := len(values) - n; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(n), true
}

// ratio returns a/b, or nil when either side is missing or b is zero
func ratio(a, b *float64) *float64 {
	if a == nil || b == nil || *b == 0 {
		return nil
	}
	r := *a / *b
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return nil
	}
	return &r
}

// pctChange calculates the fractional change from old to new.
// ok is false when old is zero.
func pctChange(old, newVal float64) (float64, bool) {
	if old == 0 {
		return 0, false
	}
	return (newVal - old) / math.Abs(old), true
}
