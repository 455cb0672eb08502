// Package pricing computes what a customer pays for a reservation.
//
// Prices are rounded to four decimal places with round-half-to-even
// (banker's rounding).  The same rounding helper is used by the
// recommender so that every rounded value in the service follows one
// rule.
package pricing

import (
	"math"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// Discount returns the fraction taken off the base price for tier.
// Unknown tiers get no discount.
func Discount(tier model.Tier) float64 {
	switch tier {
	case model.TierPremium:
		return 0.25
	case model.TierVIP:
		return 0.5
	default:
		return 0.0
	}
}

// ReservationPrice returns base × (1 − discount(tier)) rounded to 4
// decimal places.
func ReservationPrice(base float64, tier model.Tier) float64 {
	return Round(base*(1-Discount(tier)), 4)
}

// Round rounds x to the given number of decimal places, resolving
// halves to the nearest even digit.
func Round(x float64, places int) float64 {
	p := math.Pow10(places)
	return math.RoundToEven(x*p) / p
}
