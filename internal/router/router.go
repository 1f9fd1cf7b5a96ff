package router

import (
	"net/http"

	"github.com/rajulearn/backend/internal/earnings"
	"github.com/rajulearn/backend/internal/handlers"
	"github.com/rajulearn/backend/internal/middleware"
	"github.com/rajulearn/backend/internal/validate"
)

// Config carries the handlers and auth dependencies of the /api/v1 surface.
type Config struct {
	Commissions     *handlers.CommissionHandler
	Payments        *handlers.PaymentHandler
	Earnings        *earnings.Handler
	Tokens          middleware.TokenValidator
	Validator       middleware.BodyValidator
	InternalKeyHash string
}

// New returns an http.Handler that serves API under /api/v1.
// Middleware chains:
//
//	calculate: InternalKeyAuth -> ValidateBody -> Calculate
//	verify:    ValidateBody -> Verify
//	earnings:  BearerAuth -> GetMine
func New(cfg Config) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	internal := middleware.InternalKeyAuth(cfg.InternalKeyHash)
	bearer := middleware.BearerAuth(cfg.Tokens)

	mux.Handle("POST "+base+"/commissions/calculate", internal(
		middleware.ValidateBody(cfg.Validator, validate.CalculateCommission)(http.HandlerFunc(cfg.Commissions.Calculate))))
	mux.HandleFunc("GET "+base+"/rates", cfg.Commissions.ListRates)

	mux.Handle("POST "+base+"/payments/verify",
		middleware.ValidateBody(cfg.Validator, validate.VerifyPayment)(http.HandlerFunc(cfg.Payments.Verify)))

	mux.Handle("GET "+base+"/earnings/me", bearer(http.HandlerFunc(cfg.Earnings.GetMine)))

	return mux
}
