package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommissionKind distinguishes the immediate referrer from the second level.
type CommissionKind string

const (
	CommissionDirect   CommissionKind = "direct"
	CommissionIndirect CommissionKind = "indirect"
)

// Commission statuses. Only pending is written by the engine; the rest belong to payouts.
const (
	CommissionStatusPending   = "pending"
	CommissionStatusCompleted = "completed"
	CommissionStatusPaid      = "paid"
)

// Commission is an append-only record of one amount owed to one beneficiary
// for one purchase. (PurchaserID, BeneficiaryID, Kind) is unique.
type Commission struct {
	ID            uuid.UUID       `json:"id"`
	PurchaserID   uuid.UUID       `json:"from_user_id"`
	BeneficiaryID uuid.UUID       `json:"to_user_id"`
	Kind          CommissionKind  `json:"commission_type"`
	Amount        decimal.Decimal `json:"amount"`
	PackageType   Tier            `json:"package_type"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Transaction types written to the audit log.
const (
	TransactionCommissionEarned = "commission_earned"
	TransactionPackagePurchase  = "package_purchase"
)

const TransactionStatusCompleted = "completed"

// Transaction is a human-readable audit line for a balance-affecting event.
type Transaction struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	CommissionID *uuid.UUID      `json:"commission_id,omitempty"`
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}
