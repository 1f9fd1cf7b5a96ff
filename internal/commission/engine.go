package commission

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/rajulearn/backend/internal/models"
)

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ProfileDirectory resolves referrers and credits their balances.
// Find methods return (nil, nil) when no profile matches.
type ProfileDirectory interface {
	FindByReferralCode(ctx context.Context, code string) (*models.Profile, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	IncrementEarnings(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount decimal.Decimal) error
}

// LedgerStore appends commission and transaction records.
// InsertCommission returns false when a record with the same
// (purchaser, beneficiary, kind) already exists.
type LedgerStore interface {
	InsertCommission(ctx context.Context, tx pgx.Tx, c *models.Commission) (bool, error)
	InsertTransaction(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
}

// Notifier is told about every leg that was credited by this process.
type Notifier interface {
	CommissionCredited(ctx context.Context, c *models.Commission)
}

// Notifiers fans a notification out to several notifiers.
type Notifiers []Notifier

func (ns Notifiers) CommissionCredited(ctx context.Context, c *models.Commission) {
	for _, n := range ns {
		n.CommissionCredited(ctx, c)
	}
}

// Result reports the commission amounts for one purchase. A replayed leg was
// already recorded by an earlier call and credited nothing this time.
type Result struct {
	DirectAmount     decimal.Decimal `json:"directCommission"`
	IndirectAmount   decimal.Decimal `json:"indirectCommission"`
	DirectReplayed   bool            `json:"directReplayed,omitempty"`
	IndirectReplayed bool            `json:"indirectReplayed,omitempty"`
}

type Options struct {
	// StoreTimeout bounds each store call. Defaults to 5s.
	StoreTimeout time.Duration
	// RetryDelay is the pause before the single retry. Defaults to 100ms.
	RetryDelay time.Duration
	Notifier   Notifier
	Logger     *slog.Logger
}

// Engine computes and records the two-level commission fan-out of a purchase.
type Engine struct {
	pool         TxBeginner
	profiles     ProfileDirectory
	ledger       LedgerStore
	rates        *RateTable
	notifier     Notifier
	log          *slog.Logger
	storeTimeout time.Duration
	retryDelay   time.Duration
}

func NewEngine(pool TxBeginner, profiles ProfileDirectory, ledger LedgerStore, rates *RateTable, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 100 * time.Millisecond
	}
	return &Engine{
		pool:         pool,
		profiles:     profiles,
		ledger:       ledger,
		rates:        rates,
		notifier:     opts.Notifier,
		log:          opts.Logger,
		storeTimeout: opts.StoreTimeout,
		retryDelay:   opts.RetryDelay,
	}
}

// Rates returns the engine's rate table.
func (e *Engine) Rates() *RateTable { return e.rates }

// ProcessPurchase credits the referrer behind referralCode, and that
// referrer's own referrer, for purchaserID buying tier.
//
// An empty referral code is an organic signup and returns a zero Result.
// Unknown codes and ineligible referrers return a recoverable *Error with a
// zero Result. A failure on the direct leg returns ErrPersistence; failures
// on the indirect leg are logged and never returned.
//
// The work is detached from ctx cancellation so a disconnecting caller
// cannot leave a half-applied commission tree.
func (e *Engine) ProcessPurchase(ctx context.Context, purchaserID uuid.UUID, tier models.Tier, referralCode string) (Result, error) {
	ctx = context.WithoutCancel(ctx)
	code := strings.TrimSpace(referralCode)
	if code == "" {
		return Result{}, nil
	}

	var referrer *models.Profile
	err := e.withRetry(ctx, "find referrer", func(ctx context.Context) error {
		var err error
		referrer, err = e.profiles.FindByReferralCode(ctx, code)
		return err
	})
	if err != nil {
		return Result{}, &Error{Code: CodePersistence, Err: fmt.Errorf("find referrer: %w", err)}
	}
	if referrer == nil {
		e.log.Warn("referral code not found", "purchaser_id", purchaserID, "referral_code", code)
		return Result{}, &Error{Code: CodeInvalidReferralCode, Err: fmt.Errorf("no profile for code %q", code)}
	}
	if referrer.ID == purchaserID {
		e.log.Warn("self referral ignored", "purchaser_id", purchaserID, "referral_code", code)
		return Result{}, &Error{Code: CodeInvalidReferralCode, Err: fmt.Errorf("code %q belongs to the purchaser", code)}
	}
	if !referrer.PackageType.Purchasable() {
		e.log.Warn("referrer has no package", "purchaser_id", purchaserID, "referrer_id", referrer.ID)
		return Result{}, &Error{Code: CodeReferrerNotEligible, Err: fmt.Errorf("referrer %s has no package", referrer.ID)}
	}

	rate, ok := e.rates.Lookup(referrer.PackageType, tier)
	if !ok {
		e.log.Error("rate table has no entry", "referrer_tier", referrer.PackageType, "purchaser_tier", tier)
		return Result{}, &Error{Code: CodeConfiguration, Err: fmt.Errorf("no rate for %s->%s", referrer.PackageType, tier)}
	}

	direct := newCommission(purchaserID, referrer.ID, models.CommissionDirect, rate.Direct, tier)
	replayed, err := e.creditLeg(ctx, direct)
	if err != nil {
		e.log.Error("direct commission failed", "purchaser_id", purchaserID, "referrer_id", referrer.ID, "error", err)
		return Result{}, &Error{Code: CodePersistence, Err: fmt.Errorf("direct leg: %w", err)}
	}
	res := Result{DirectAmount: rate.Direct, DirectReplayed: replayed}

	if referrer.ReferredBy != nil {
		e.creditIndirect(ctx, &res, purchaserID, tier, *referrer.ReferredBy, rate.Indirect)
	}
	return res, nil
}

func (e *Engine) creditIndirect(ctx context.Context, res *Result, purchaserID uuid.UUID, tier models.Tier, upstreamID uuid.UUID, amount decimal.Decimal) {
	var upstream *models.Profile
	err := e.withRetry(ctx, "find indirect referrer", func(ctx context.Context) error {
		var err error
		upstream, err = e.profiles.FindByID(ctx, upstreamID)
		return err
	})
	if err != nil {
		e.log.Error("indirect referrer lookup failed", "purchaser_id", purchaserID, "upstream_id", upstreamID, "error", err)
		return
	}
	if upstream == nil || upstream.ID == purchaserID || !upstream.PackageType.Purchasable() {
		e.log.Info("indirect commission skipped", "purchaser_id", purchaserID, "upstream_id", upstreamID)
		return
	}

	c := newCommission(purchaserID, upstream.ID, models.CommissionIndirect, amount, tier)
	replayed, err := e.creditLeg(ctx, c)
	if err != nil {
		e.log.Error("indirect commission failed", "purchaser_id", purchaserID, "upstream_id", upstream.ID, "error", err)
		return
	}
	res.IndirectAmount = amount
	res.IndirectReplayed = replayed
}

// creditLeg records the commission, its transaction line and the balance
// credit in one database transaction. It reports replayed=true, writing
// nothing, when the commission already exists.
func (e *Engine) creditLeg(ctx context.Context, c *models.Commission) (replayed bool, err error) {
	err = e.withRetry(ctx, "credit "+string(c.Kind), func(ctx context.Context) error {
		tx, err := e.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		inserted, err := e.ledger.InsertCommission(ctx, tx, c)
		if err != nil {
			return err
		}
		if !inserted {
			replayed = true
			return nil
		}
		replayed = false
		commissionID := c.ID
		if err := e.ledger.InsertTransaction(ctx, tx, &models.Transaction{
			ID:           uuid.New(),
			UserID:       c.BeneficiaryID,
			CommissionID: &commissionID,
			Type:         models.TransactionCommissionEarned,
			Amount:       c.Amount,
			Description:  fmt.Sprintf("%s referral commission from %s package purchase", kindLabel(c.Kind), c.PackageType),
			Status:       models.TransactionStatusCompleted,
		}); err != nil {
			return err
		}
		if err := e.profiles.IncrementEarnings(ctx, tx, c.BeneficiaryID, c.Amount); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		return false, err
	}
	if replayed {
		e.log.Info("commission already recorded", "kind", c.Kind, "purchaser_id", c.PurchaserID, "beneficiary_id", c.BeneficiaryID)
		return true, nil
	}
	e.log.Info("commission credited", "kind", c.Kind, "purchaser_id", c.PurchaserID, "beneficiary_id", c.BeneficiaryID, "amount", c.Amount.String())
	if e.notifier != nil {
		e.notifier.CommissionCredited(ctx, c)
	}
	return false, nil
}

func newCommission(purchaserID, beneficiaryID uuid.UUID, kind models.CommissionKind, amount decimal.Decimal, tier models.Tier) *models.Commission {
	return &models.Commission{
		ID:            uuid.New(),
		PurchaserID:   purchaserID,
		BeneficiaryID: beneficiaryID,
		Kind:          kind,
		Amount:        amount,
		PackageType:   tier,
		Status:        models.CommissionStatusPending,
	}
}

func kindLabel(k models.CommissionKind) string {
	if k == models.CommissionIndirect {
		return "Indirect"
	}
	return "Direct"
}
