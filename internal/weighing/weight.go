package weighing

import (
	"errors"
	"math"
	"strings"
)

// MaxWeightKg bounds any single weight accepted from an operator or the indicator.
const MaxWeightKg = 1_000_000

var (
	ErrAlreadyCompleted = errors.New("record already has a second weight")
	ErrInvalidWeight    = errors.New("weight must be greater than zero and within scale capacity")
	ErrNoLiveWeight     = errors.New("no fresh live weight available")
)

// WithinCapacity reports whether kg is finite and at most MaxWeightKg.
func WithinCapacity(kg float64) bool {
	return !math.IsNaN(kg) && !math.IsInf(kg, 0) && kg <= MaxWeightKg
}

// NetWeight is the billable mass of a two-step weighing.
func NetWeight(first, second float64) float64 {
	return first - second
}

// FinalNetWeight is the billable mass of a single-step weighing against a known empty weight.
func FinalNetWeight(current, empty float64) float64 {
	return current - empty
}

// PriceFor looks a vehicle type up in the price table. Unknown types cost nothing.
func PriceFor(prices map[string]float64, vehicleType string) float64 {
	key := NormalizeVehicleType(vehicleType)
	if key == "" {
		return 0
	}
	if p, ok := prices[key]; ok {
		return p
	}
	for k, p := range prices {
		if NormalizeVehicleType(k) == key {
			return p
		}
	}
	return 0
}

// NormalizeVehicleType is the key form used by the price table.
func NormalizeVehicleType(vehicleType string) string {
	return strings.ToLower(strings.TrimSpace(vehicleType))
}
