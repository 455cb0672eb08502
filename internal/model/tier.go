package model

import "strings"

// Tier is the customer category.  Its textual form matches the
// values stored in the "class" column of the seed data.
type Tier string

const (
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
	TierVIP     Tier = "vip"
)

// Tiers lists every valid tier in ascending discount order.
var Tiers = []Tier{TierBasic, TierPremium, TierVIP}

// Valid reports whether t is one of the enumerated tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierBasic, TierPremium, TierVIP:
		return true
	}
	return false
}

// ParseTier normalises s (trim, lower case) and reports whether the
// result is a valid tier.
func ParseTier(s string) (Tier, bool) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

func (t Tier) String() string { return string(t) }
