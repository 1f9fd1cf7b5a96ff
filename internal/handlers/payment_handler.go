package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rajulearn/backend/internal/payments"
	"github.com/rajulearn/backend/internal/repository"
)

// OrderCompleter finishes a paid order.
type OrderCompleter interface {
	CompleteOrder(ctx context.Context, orderID, paymentID, signature string) (*payments.Completion, error)
}

// PaymentHandler serves /api/v1/payments endpoints.
type PaymentHandler struct {
	Payments OrderCompleter
	Logger   *slog.Logger
}

// --- POST /api/v1/payments/verify ---

type verifyRequest struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
}

// Verify checks the gateway callback and completes the order. Commission
// processing happens afterwards in the background job.
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	c, err := h.Payments.CompleteOrder(r.Context(), req.OrderID, req.PaymentID, req.Signature)
	switch {
	case errors.Is(err, payments.ErrInvalidSignature):
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid signature"})
		return
	case errors.Is(err, repository.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "order not found"})
		return
	case errors.Is(err, payments.ErrUnknownPackage):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"success": false, "error": "order has an unknown package"})
		return
	case err != nil:
		h.Logger.Error("complete order", "order_id", req.OrderID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "payment could not be recorded"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"orderId":          c.Order.ID,
		"packageType":      c.Order.PackageType,
		"alreadyProcessed": c.AlreadyCompleted,
	})
}
