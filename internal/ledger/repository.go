package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rajulearn/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertCommission runs inside the caller's transaction. It returns false,
// writing nothing, when a commission for the same purchaser, beneficiary and
// kind is already recorded.
func (r *Repository) InsertCommission(ctx context.Context, tx pgx.Tx, c *models.Commission) (bool, error) {
	err := tx.QueryRow(ctx, `
		INSERT INTO commissions (id, from_user_id, to_user_id, commission_type, amount, package_type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (from_user_id, to_user_id, commission_type) DO NOTHING
		RETURNING created_at
	`, c.ID, c.PurchaserID, c.BeneficiaryID, c.Kind, c.Amount, c.PackageType, c.Status).Scan(&c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertTransaction appends a transaction line inside the caller's transaction.
func (r *Repository) InsertTransaction(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO transactions (id, user_id, commission_id, type, amount, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, t.ID, t.UserID, t.CommissionID, t.Type, t.Amount, t.Description, t.Status).Scan(&t.CreatedAt)
}

// ListCommissionsByBeneficiary returns the commissions paid to userID, newest first.
func (r *Repository) ListCommissionsByBeneficiary(ctx context.Context, userID uuid.UUID) ([]*models.Commission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, from_user_id, to_user_id, commission_type, amount, package_type, status, created_at
		FROM commissions WHERE to_user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Commission
	for rows.Next() {
		var c models.Commission
		if err := rows.Scan(&c.ID, &c.PurchaserID, &c.BeneficiaryID, &c.Kind, &c.Amount, &c.PackageType, &c.Status, &c.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}

// ListTransactionsByUser returns userID's transaction lines, newest first.
func (r *Repository) ListTransactionsByUser(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, commission_id, type, amount, description, status, created_at
		FROM transactions WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.CommissionID, &t.Type, &t.Amount, &t.Description, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}
