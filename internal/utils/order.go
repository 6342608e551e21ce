package utils

import (
	"math"
)

// CalculateMaxQuantity calculates the maximum quantity that can be bought
// with the given balance at the given price.
func CalculateMaxQuantity(balance float64, price float64) float64 {
	if price <= 0 || balance <= 0 {
		return 0
	}

	return balance / price
}

// RoundToDecimalPrecision rounds the quantity down to the specified decimal
// precision. Rounding down keeps the order notional within the balance it
// was sized against.
func RoundToDecimalPrecision(quantity float64, decimalPrecision int) float64 {
	multiplier := math.Pow10(decimalPrecision)

	return math.Floor(quantity*multiplier) / multiplier
}
