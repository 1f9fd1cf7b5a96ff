package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rajulearn/backend/internal/models"
)

var (
	ErrOrderNotFound         = errors.New("payment order not found")
	ErrOrderAlreadyCompleted = errors.New("payment order already completed")
)

type OrderRepo struct {
	pool *pgxpool.Pool
}

func NewOrderRepo(pool *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

// GetByID returns ErrOrderNotFound when no order has the gateway id.
func (r *OrderRepo) GetByID(ctx context.Context, id string) (*models.PaymentOrder, error) {
	var o models.PaymentOrder
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, package_type, referral_code, amount, total_amount, currency, status, payment_id, completed_at, created_at
		FROM payment_orders WHERE id = $1
	`, id).Scan(&o.ID, &o.UserID, &o.PackageType, &o.ReferralCode, &o.Amount, &o.TotalAmount, &o.Currency, &o.Status, &o.PaymentID, &o.CompletedAt, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// MarkCompleted moves a created order to completed inside the caller's
// transaction. A second completion returns ErrOrderAlreadyCompleted.
func (r *OrderRepo) MarkCompleted(ctx context.Context, tx pgx.Tx, id, paymentID string) (*models.PaymentOrder, error) {
	var o models.PaymentOrder
	err := tx.QueryRow(ctx, `
		UPDATE payment_orders
		SET status = $2, payment_id = $3, completed_at = now()
		WHERE id = $1 AND status = $4
		RETURNING id, user_id, package_type, referral_code, amount, total_amount, currency, status, payment_id, completed_at, created_at
	`, id, models.OrderStatusCompleted, paymentID, models.OrderStatusCreated).Scan(&o.ID, &o.UserID, &o.PackageType, &o.ReferralCode, &o.Amount, &o.TotalAmount, &o.Currency, &o.Status, &o.PaymentID, &o.CompletedAt, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderAlreadyCompleted
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}
