package utils

import "math"

// SafeDiv returns 0 instead of NaN/Inf when b is zero.
func SafeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func Max0(i int) int {
	if i < 0 {
		return 0
	}
	return i
}

func MaxF(f float64) float64 {
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func Round2(f float64) float64 { return math.Round(f*100) / 100 }
func Round3(f float64) float64 { return math.Round(f*1000) / 1000 }
