package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rajulearn/backend/internal/commission"
	"github.com/rajulearn/backend/internal/metrics"
	"github.com/rajulearn/backend/internal/models"
)

// PurchaseProcessor is the engine operation behind the calculate endpoint.
type PurchaseProcessor interface {
	ProcessPurchase(ctx context.Context, purchaserID uuid.UUID, tier models.Tier, referralCode string) (commission.Result, error)
}

// CommissionHandler serves /api/v1/commissions and /api/v1/rates.
type CommissionHandler struct {
	Engine PurchaseProcessor
	Rates  *commission.RateTable
	Logger *slog.Logger
}

// --- POST /api/v1/commissions/calculate ---

type calculateRequest struct {
	NewUserID   string  `json:"newUserId"`
	PackageType string  `json:"packageType"`
	ReferredBy  *string `json:"referredBy"`
}

type calculateResponse struct {
	Success bool `json:"success"`
	commission.Result
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// Calculate runs the commission fan-out for one purchase. Unknown codes and
// ineligible referrers are reported with success=false and 200, since the
// purchase itself stands.
func (h *CommissionHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	purchaserID, err := uuid.Parse(req.NewUserID)
	if err != nil {
		http.Error(w, `{"error":"invalid newUserId"}`, http.StatusBadRequest)
		return
	}
	tier, ok := models.ParseTier(strings.ToLower(strings.TrimSpace(req.PackageType)))
	if !ok || !tier.Purchasable() {
		http.Error(w, `{"error":"packageType must be silver, gold or platinum"}`, http.StatusBadRequest)
		return
	}
	var code string
	if req.ReferredBy != nil {
		code = *req.ReferredBy
	}

	res, err := h.Engine.ProcessPurchase(r.Context(), purchaserID, tier, code)
	metrics.RecordOutcome("http", commission.ErrorCode(err))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, calculateResponse{Success: true, Result: res})
	case commission.Recoverable(err):
		writeJSON(w, http.StatusOK, calculateResponse{Success: false, Result: res, Code: commission.ErrorCode(err), Error: recoverableMessage(err)})
	case errors.Is(err, commission.ErrConfiguration):
		h.Logger.Error("commission configuration", "purchaser_id", purchaserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, calculateResponse{Code: commission.CodeConfiguration, Error: "commission configuration error"})
	default:
		h.Logger.Error("commission persistence", "purchaser_id", purchaserID, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, calculateResponse{Code: commission.ErrorCode(err), Error: "commission could not be recorded"})
	}
}

func recoverableMessage(err error) string {
	if errors.Is(err, commission.ErrReferrerNotEligible) {
		return "referrer has no active package"
	}
	return "invalid referral code"
}

// --- GET /api/v1/rates ---

// ListRates returns the commission schedule keyed by referrer tier, then purchaser tier.
func (h *CommissionHandler) ListRates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Rates.Rows())
}
