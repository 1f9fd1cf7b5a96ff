package earnings

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rajulearn/backend/internal/ledger"
	"github.com/rajulearn/backend/internal/models"
)

// ErrProfileNotFound is returned when the authenticated user has no profile.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileReader is the read side of the profile directory.
type ProfileReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	ListReferredBy(ctx context.Context, ids []uuid.UUID) ([]*models.Referral, error)
}

// Cache stores rendered overviews per profile.
type Cache interface {
	Get(ctx context.Context, userID uuid.UUID) (*Overview, bool, error)
	Set(ctx context.Context, userID uuid.UUID, o *Overview) error
}

// Overview is everything the earnings page shows for one profile.
type Overview struct {
	ProfileID         uuid.UUID             `json:"profile_id"`
	PackageType       models.Tier           `json:"package_type"`
	ReferralCode      string                `json:"referral_code"`
	TotalEarnings     decimal.Decimal       `json:"total_earnings"`
	AvailableBalance  decimal.Decimal       `json:"available_balance"`
	Summary           Summary               `json:"summary"`
	Commissions       []*models.Commission  `json:"commissions"`
	Transactions      []*models.Transaction `json:"transactions"`
	DirectReferrals   []*models.Referral    `json:"direct_referrals"`
	IndirectReferrals []*models.Referral    `json:"indirect_referrals"`
}

type Service struct {
	profiles ProfileReader
	ledger   ledger.Reader
	cache    Cache
	now      func() time.Time
	log      *slog.Logger
}

// NewService returns an earnings service. cache may be nil.
func NewService(profiles ProfileReader, ledger ledger.Reader, cache Cache, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{profiles: profiles, ledger: ledger, cache: cache, now: time.Now, log: log}
}

// Overview assembles userID's earnings page. Cache failures fall through to
// the database.
func (s *Service) Overview(ctx context.Context, userID uuid.UUID) (*Overview, error) {
	if s.cache != nil {
		o, ok, err := s.cache.Get(ctx, userID)
		if err != nil {
			s.log.Warn("earnings cache read failed", "user_id", userID, "error", err)
		} else if ok {
			return o, nil
		}
	}

	p, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	commissions, err := s.ledger.ListCommissionsByBeneficiary(ctx, userID)
	if err != nil {
		return nil, err
	}
	transactions, err := s.ledger.ListTransactionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	direct, err := s.profiles.ListReferredBy(ctx, []uuid.UUID{userID})
	if err != nil {
		return nil, err
	}
	var indirect []*models.Referral
	if len(direct) > 0 {
		ids := make([]uuid.UUID, len(direct))
		for i, r := range direct {
			ids[i] = r.ID
		}
		if indirect, err = s.profiles.ListReferredBy(ctx, ids); err != nil {
			return nil, err
		}
	}

	o := &Overview{
		ProfileID:         p.ID,
		PackageType:       p.PackageType,
		ReferralCode:      p.ReferralCode,
		TotalEarnings:     p.TotalEarnings,
		AvailableBalance:  p.AvailableBalance,
		Summary:           Summarize(commissions, s.now()),
		Commissions:       nonNil(commissions),
		Transactions:      nonNil(transactions),
		DirectReferrals:   nonNil(direct),
		IndirectReferrals: nonNil(indirect),
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, o); err != nil {
			s.log.Warn("earnings cache write failed", "user_id", userID, "error", err)
		}
	}
	return o, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
