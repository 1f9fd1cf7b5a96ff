package commission

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// isTransient reports whether a store error is worth one more attempt.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "08000", "08003", "08006", "57P01":
			return true
		}
		return false
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}

// withRetry runs fn with a per-call timeout and retries once on a transient error.
func (e *Engine) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= 2; attempt++ {
		if attempt > 1 {
			e.log.Warn("retrying store call", "op", op, "error", err)
			time.Sleep(e.retryDelay)
		}
		callCtx, cancel := context.WithTimeout(ctx, e.storeTimeout)
		err = fn(callCtx)
		cancel()
		if !isTransient(err) {
			return err
		}
	}
	return err
}
