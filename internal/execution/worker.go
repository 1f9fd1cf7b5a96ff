package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/rajulearn/backend/internal/commission"
	"github.com/rajulearn/backend/internal/models"
)

// ProcessCommissionArgs is enqueued in the same transaction that completes a
// package purchase, so every paid order eventually reaches the engine.
type ProcessCommissionArgs struct {
	PurchaserID  uuid.UUID   `json:"purchaser_id"`
	PackageTier  models.Tier `json:"package_tier"`
	ReferralCode string      `json:"referral_code"`
}

func (ProcessCommissionArgs) Kind() string { return "process_commission" }

func (ProcessCommissionArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: 10,
		UniqueOpts:  river.UniqueOpts{ByArgs: true},
	}
}

// CommissionProcessor is the part of the engine the worker drives.
type CommissionProcessor interface {
	ProcessPurchase(ctx context.Context, purchaserID uuid.UUID, tier models.Tier, referralCode string) (commission.Result, error)
}

type ProcessCommissionWorker struct {
	river.WorkerDefaults[ProcessCommissionArgs]
	engine CommissionProcessor
	logger *slog.Logger
}

func NewProcessCommissionWorker(engine CommissionProcessor, logger *slog.Logger) *ProcessCommissionWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessCommissionWorker{engine: engine, logger: logger}
}

func (w *ProcessCommissionWorker) Timeout(*river.Job[ProcessCommissionArgs]) time.Duration {
	return 30 * time.Second
}

// Work completes the job for credited, replayed and recoverable outcomes,
// cancels it on a configuration error and returns persistence errors so
// River retries with backoff. Retries are safe because each leg is
// idempotent.
func (w *ProcessCommissionWorker) Work(ctx context.Context, job *river.Job[ProcessCommissionArgs]) error {
	args := job.Args

	res, err := w.engine.ProcessPurchase(ctx, args.PurchaserID, args.PackageTier, args.ReferralCode)
	switch {
	case err == nil:
		w.logger.Info("commission job done",
			"job_id", job.ID, "purchaser_id", args.PurchaserID,
			"direct", res.DirectAmount.String(), "indirect", res.IndirectAmount.String(),
			"direct_replayed", res.DirectReplayed, "indirect_replayed", res.IndirectReplayed)
		return nil
	case commission.Recoverable(err):
		w.logger.Warn("commission not applicable", "job_id", job.ID, "purchaser_id", args.PurchaserID, "code", commission.ErrorCode(err))
		return nil
	case errors.Is(err, commission.ErrConfiguration):
		w.logger.Error("commission job cancelled", "job_id", job.ID, "purchaser_id", args.PurchaserID, "error", err)
		return river.JobCancel(err)
	default:
		return fmt.Errorf("process commission for %s (attempt %d): %w", args.PurchaserID, job.Attempt, err)
	}
}
