package commission

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rajulearn/backend/internal/models"
)

// Rate is the pair of amounts paid out for one (referrer tier, purchaser tier) combination.
type Rate struct {
	Direct   decimal.Decimal `json:"direct"`
	Indirect decimal.Decimal `json:"indirect"`
}

type tierPair struct {
	referrer  models.Tier
	purchaser models.Tier
}

// RateTable is an immutable lookup built once by NewRateTable.
type RateTable struct {
	rates map[tierPair]Rate
}

// NewRateTable copies rows into a RateTable and checks that every
// purchasable (referrer, purchaser) pair is present with non-negative amounts.
func NewRateTable(rows map[models.Tier]map[models.Tier]Rate) (*RateTable, error) {
	rates := make(map[tierPair]Rate, len(models.PurchasableTiers)*len(models.PurchasableTiers))
	for _, ref := range models.PurchasableTiers {
		for _, pur := range models.PurchasableTiers {
			r, ok := rows[ref][pur]
			if !ok {
				return nil, fmt.Errorf("rate table: missing %s->%s", ref, pur)
			}
			if r.Direct.IsNegative() || r.Indirect.IsNegative() {
				return nil, fmt.Errorf("rate table: negative amount for %s->%s", ref, pur)
			}
			rates[tierPair{ref, pur}] = r
		}
	}
	return &RateTable{rates: rates}, nil
}

// Lookup returns the rate for a referrer tier and purchaser tier.
func (t *RateTable) Lookup(referrer, purchaser models.Tier) (Rate, bool) {
	r, ok := t.rates[tierPair{referrer, purchaser}]
	return r, ok
}

// Rows returns a copy of the table keyed by referrer tier, then purchaser tier.
func (t *RateTable) Rows() map[models.Tier]map[models.Tier]Rate {
	out := make(map[models.Tier]map[models.Tier]Rate, len(models.PurchasableTiers))
	for p, r := range t.rates {
		if out[p.referrer] == nil {
			out[p.referrer] = make(map[models.Tier]Rate, len(models.PurchasableTiers))
		}
		out[p.referrer][p.purchaser] = r
	}
	return out
}

func rate(direct, indirect string) Rate {
	return Rate{Direct: decimal.RequireFromString(direct), Indirect: decimal.RequireFromString(indirect)}
}

// DefaultRates is the production commission schedule.
// platinum->platinum indirect (1000) does not follow the 30% pattern of the
// other rows; it is kept as published pending product confirmation.
func DefaultRates() map[models.Tier]map[models.Tier]Rate {
	return map[models.Tier]map[models.Tier]Rate{
		models.TierSilver: {
			models.TierSilver:   rate("1000", "300"),
			models.TierGold:     rate("1500", "450"),
			models.TierPlatinum: rate("2000", "600"),
		},
		models.TierGold: {
			models.TierSilver:   rate("1200", "360"),
			models.TierGold:     rate("2250", "675"),
			models.TierPlatinum: rate("3000", "900"),
		},
		models.TierPlatinum: {
			models.TierSilver:   rate("1500", "450"),
			models.TierGold:     rate("3375", "1012.5"),
			models.TierPlatinum: rate("5625", "1000"),
		},
	}
}

// MustDefaultRateTable builds the default table and panics if it is incomplete.
func MustDefaultRateTable() *RateTable {
	t, err := NewRateTable(DefaultRates())
	if err != nil {
		panic(err)
	}
	return t
}
