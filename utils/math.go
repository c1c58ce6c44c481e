package utils

import "math"

// RoundMoney rounds an amount to whole cents, matching decimal(15,2) columns.
func RoundMoney(val float64) float64 {
	return math.Round(val*100) / 100
}
