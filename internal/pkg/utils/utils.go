package utils

import (
	"math"
	"time"
)

func RoundToTwoDecimals(v float64) float64 {
	return math.Round(v*100) / 100
}

// PerHour переводит частоту в секунду в частоту в час
func PerHour(ratePerSecond float64) float64 {
	return RoundToTwoDecimals(ratePerSecond * 3600.)
}

// Seconds длительность в секундах с двумя знаками
func Seconds(d time.Duration) float64 {
	return RoundToTwoDecimals(d.Seconds())
}
