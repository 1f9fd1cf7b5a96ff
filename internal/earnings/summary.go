package earnings

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rajulearn/backend/internal/models"
)

// Summary aggregates the commissions paid to one profile.
type Summary struct {
	Total     decimal.Decimal `json:"total"`
	Pending   decimal.Decimal `json:"pending"`
	Paid      decimal.Decimal `json:"paid"`
	Direct    decimal.Decimal `json:"direct"`
	Indirect  decimal.Decimal `json:"indirect"`
	ThisMonth decimal.Decimal `json:"this_month"`
	Count     int             `json:"count"`
	Average   decimal.Decimal `json:"average"`
}

// Summarize totals commissions. ThisMonth counts commissions created in the
// calendar month of now, in now's location.
func Summarize(commissions []*models.Commission, now time.Time) Summary {
	var s Summary
	year, month, _ := now.Date()
	for _, c := range commissions {
		s.Total = s.Total.Add(c.Amount)
		s.Count++
		switch c.Status {
		case models.CommissionStatusPending:
			s.Pending = s.Pending.Add(c.Amount)
		case models.CommissionStatusPaid:
			s.Paid = s.Paid.Add(c.Amount)
		}
		switch c.Kind {
		case models.CommissionDirect:
			s.Direct = s.Direct.Add(c.Amount)
		case models.CommissionIndirect:
			s.Indirect = s.Indirect.Add(c.Amount)
		}
		if y, m, _ := c.CreatedAt.In(now.Location()).Date(); y == year && m == month {
			s.ThisMonth = s.ThisMonth.Add(c.Amount)
		}
	}
	if s.Count > 0 {
		s.Average = s.Total.Div(decimal.NewFromInt(int64(s.Count))).Round(2)
	}
	return s
}
