package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/rajulearn/backend/internal/commission"
	"github.com/rajulearn/backend/internal/models"
)

// Reader is the read side of the ledger used by the earnings views.
type Reader interface {
	ListCommissionsByBeneficiary(ctx context.Context, userID uuid.UUID) ([]*models.Commission, error)
	ListTransactionsByUser(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error)
}

var (
	_ commission.LedgerStore = (*Repository)(nil)
	_ Reader                 = (*Repository)(nil)
)
