package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	OrderStatusCreated   = "created"
	OrderStatusCompleted = "completed"
)

// PaymentOrder is created by the checkout flow before the gateway is invoked.
type PaymentOrder struct {
	ID           string          `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	PackageType  Tier            `json:"package_type"`
	ReferralCode string          `json:"referral_code,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Currency     string          `json:"currency"`
	Status       string          `json:"status"`
	PaymentID    *string         `json:"payment_id,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
