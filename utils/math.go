package utils

import (
	"math"
)

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// Float64AlmostEqual reports whether a and b differ by at most epsilon.
func Float64AlmostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

// ClampFloat64 limits v to [lo, hi].
func ClampFloat64(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CheckUnitInterval returns a RangeError when v is not in [0, 1] or is NaN.
func CheckUnitInterval(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return NewRangeError(name, v, 0, 1)
	}
	return nil
}
