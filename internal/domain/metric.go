package domain

import "math"

// Pace returns minutes per kilometre rounded to two decimals.
// Callers must pass validated, strictly positive input.
func Pace(distance, duration float64) float64 {
	return Round2(duration / distance)
}

// Speed returns kilometres per hour rounded to two decimals.
// Callers must pass validated, strictly positive input.
func Speed(distance, duration float64) float64 {
	return Round2(distance / duration)
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// degenerate reports whether a distance/duration pair cannot yield a finite metric.
func degenerate(distance, duration float64) bool {
	return !finite(distance) || !finite(duration) || distance <= 0 || duration <= 0
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
