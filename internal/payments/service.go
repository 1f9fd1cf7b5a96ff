package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/rajulearn/backend/internal/execution"
	"github.com/rajulearn/backend/internal/models"
	"github.com/rajulearn/backend/internal/repository"
)

var (
	ErrInvalidSignature = errors.New("invalid payment signature")
	ErrUnknownPackage   = errors.New("order has no purchasable package")
)

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore is the minimal order repository interface for order completion.
type OrderStore interface {
	GetByID(ctx context.Context, id string) (*models.PaymentOrder, error)
	MarkCompleted(ctx context.Context, tx pgx.Tx, id, paymentID string) (*models.PaymentOrder, error)
}

// ProfileStore is the minimal profile repository interface for order completion.
type ProfileStore interface {
	FindByReferralCode(ctx context.Context, code string) (*models.Profile, error)
	ApplyPackagePurchase(ctx context.Context, tx pgx.Tx, id uuid.UUID, tier models.Tier, price decimal.Decimal, referredBy *uuid.UUID) error
}

// TransactionStore appends audit lines.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
}

// InsertCommissionJobFunc enqueues commission processing inside tx.
type InsertCommissionJobFunc func(ctx context.Context, tx pgx.Tx, args execution.ProcessCommissionArgs) error

// Completion is the outcome of CompleteOrder. AlreadyCompleted is set when
// the order had been completed by an earlier verification.
type Completion struct {
	Order            *models.PaymentOrder
	AlreadyCompleted bool
}

type Service struct {
	pool      TxBeginner
	orders    OrderStore
	profiles  ProfileStore
	ledger    TransactionStore
	insertJob InsertCommissionJobFunc
	secret    string
	logger    *slog.Logger
}

func NewService(pool TxBeginner, orders OrderStore, profiles ProfileStore, ledger TransactionStore, insertJob InsertCommissionJobFunc, secret string, logger *slog.Logger) (*Service, error) {
	if secret == "" {
		return nil, errors.New("payments: key secret is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		pool:      pool,
		orders:    orders,
		profiles:  profiles,
		ledger:    ledger,
		insertJob: insertJob,
		secret:    secret,
		logger:    logger,
	}, nil
}

// CompleteOrder verifies the gateway signature and, in one transaction,
// marks the order completed, grants the purchased package, records the
// upstream referrer, writes the package_purchase line and enqueues the
// commission job. Verifying an already completed order changes nothing.
func (s *Service) CompleteOrder(ctx context.Context, orderID, paymentID, signature string) (*Completion, error) {
	if !VerifySignature(s.secret, orderID, paymentID, signature) {
		return nil, ErrInvalidSignature
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderStatusCompleted {
		return &Completion{Order: order, AlreadyCompleted: true}, nil
	}
	if !order.PackageType.Purchasable() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPackage, order.PackageType)
	}
	price := models.PackagePrices[order.PackageType]

	code := strings.TrimSpace(order.ReferralCode)
	var referredBy *uuid.UUID
	if code != "" {
		referrer, err := s.profiles.FindByReferralCode(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("resolve referral code: %w", err)
		}
		if referrer != nil && referrer.ID != order.UserID {
			referredBy = &referrer.ID
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	completed, err := s.orders.MarkCompleted(ctx, tx, orderID, paymentID)
	if errors.Is(err, repository.ErrOrderAlreadyCompleted) {
		return &Completion{Order: order, AlreadyCompleted: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mark order completed: %w", err)
	}
	if err := s.profiles.ApplyPackagePurchase(ctx, tx, order.UserID, order.PackageType, price, referredBy); err != nil {
		return nil, fmt.Errorf("apply package: %w", err)
	}
	if err := s.ledger.InsertTransaction(ctx, tx, &models.Transaction{
		ID:          uuid.New(),
		UserID:      order.UserID,
		Type:        models.TransactionPackagePurchase,
		Amount:      price,
		Description: fmt.Sprintf("Purchased %s package", order.PackageType),
		Status:      models.TransactionStatusCompleted,
	}); err != nil {
		return nil, fmt.Errorf("record purchase: %w", err)
	}
	if err := s.insertJob(ctx, tx, execution.ProcessCommissionArgs{
		PurchaserID:  order.UserID,
		PackageTier:  order.PackageType,
		ReferralCode: code,
	}); err != nil {
		return nil, fmt.Errorf("enqueue commission: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("order completed", "order_id", orderID, "user_id", order.UserID, "package", order.PackageType, "referred", referredBy != nil)
	return &Completion{Order: completed}, nil
}
