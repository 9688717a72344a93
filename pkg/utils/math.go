// Package utils provides shared utilities for rounding and logging.
package utils

import "math"

// Round rounds x to the given number of decimal places, halves away from zero.
func Round(x float64, places int) float64 {
	if places < 0 {
		return x
	}
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
