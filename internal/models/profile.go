package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tier is the course-access package a profile has purchased.
type Tier string

const (
	TierNone     Tier = "none"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// PurchasableTiers lists the tiers that can be bought, in ascending price order.
var PurchasableTiers = []Tier{TierSilver, TierGold, TierPlatinum}

// ParseTier maps a raw package_type value to a Tier. Empty input maps to TierNone.
func ParseTier(s string) (Tier, bool) {
	switch Tier(s) {
	case "", TierNone:
		return TierNone, true
	case TierSilver, TierGold, TierPlatinum:
		return Tier(s), true
	}
	return "", false
}

// Purchasable reports whether t is one of silver, gold or platinum.
func (t Tier) Purchasable() bool {
	return t == TierSilver || t == TierGold || t == TierPlatinum
}

// PackagePrices are the list prices (before GST) charged per tier.
var PackagePrices = map[Tier]decimal.Decimal{
	TierSilver:   decimal.NewFromInt(2950),
	TierGold:     decimal.NewFromInt(5310),
	TierPlatinum: decimal.NewFromInt(8850),
}

type Profile struct {
	ID               uuid.UUID        `json:"id"`
	Email            string           `json:"email"`
	FullName         string           `json:"full_name"`
	ReferralCode     string           `json:"referral_code"`
	ReferredBy       *uuid.UUID       `json:"referred_by,omitempty"`
	PackageType      Tier             `json:"package_type"`
	PackagePrice     *decimal.Decimal `json:"package_price,omitempty"`
	TotalEarnings    decimal.Decimal  `json:"total_earnings"`
	AvailableBalance decimal.Decimal  `json:"available_balance"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Referral is the public view of a profile listed under its referrer.
type Referral struct {
	ID          uuid.UUID  `json:"id"`
	FullName    string     `json:"full_name"`
	Email       string     `json:"email"`
	PackageType Tier       `json:"package_type"`
	ReferredBy  *uuid.UUID `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
}
