package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rajulearn/backend/internal/models"
)

// ErrProfileNotFound is returned by writes that target a missing profile.
var ErrProfileNotFound = errors.New("profile not found")

const profileColumns = `id, email, full_name, referral_code, referred_by, package_type, package_price, total_earnings, available_balance, created_at, updated_at`

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.ReferralCode, &p.ReferredBy, &p.PackageType, &p.PackagePrice, &p.TotalEarnings, &p.AvailableBalance, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByReferralCode returns (nil, nil) when no profile owns code.
func (r *ProfileRepo) FindByReferralCode(ctx context.Context, code string) (*models.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE referral_code = $1`, code))
}

// FindByID returns (nil, nil) when the profile does not exist.
func (r *ProfileRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
}

// IncrementEarnings adds amount to both earnings counters in a single
// statement, so concurrent credits to one profile never lose an update.
func (r *ProfileRepo) IncrementEarnings(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount decimal.Decimal) error {
	tag, err := tx.Exec(ctx, `
		UPDATE profiles
		SET total_earnings = total_earnings + $1, available_balance = available_balance + $1, updated_at = now()
		WHERE id = $2
	`, amount, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("increment earnings %s: %w", id, ErrProfileNotFound)
	}
	return nil
}

// ApplyPackagePurchase records the purchased tier and price. referredBy is
// only stored when the profile has no referrer yet.
func (r *ProfileRepo) ApplyPackagePurchase(ctx context.Context, tx pgx.Tx, id uuid.UUID, tier models.Tier, price decimal.Decimal, referredBy *uuid.UUID) error {
	tag, err := tx.Exec(ctx, `
		UPDATE profiles
		SET package_type = $2, package_price = $3, referred_by = COALESCE(referred_by, $4), updated_at = now()
		WHERE id = $1
	`, id, tier, price, referredBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("apply package %s: %w", id, ErrProfileNotFound)
	}
	return nil
}

// ListReferredBy returns the profiles whose referrer is one of ids, newest first.
func (r *ProfileRepo) ListReferredBy(ctx context.Context, ids []uuid.UUID) ([]*models.Referral, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, full_name, email, package_type, referred_by, created_at
		FROM profiles WHERE referred_by = ANY($1) ORDER BY created_at DESC
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Referral
	for rows.Next() {
		var ref models.Referral
		if err := rows.Scan(&ref.ID, &ref.FullName, &ref.Email, &ref.PackageType, &ref.ReferredBy, &ref.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &ref)
	}
	return list, rows.Err()
}
