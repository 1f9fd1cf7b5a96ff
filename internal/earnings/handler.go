package earnings

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/rajulearn/backend/internal/middleware"
)

// OverviewReader is implemented by *Service.
type OverviewReader interface {
	Overview(ctx context.Context, userID uuid.UUID) (*Overview, error)
}

type Handler struct {
	svc OverviewReader
	log *slog.Logger
}

func NewHandler(svc OverviewReader, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /api/v1/earnings/me
func (h *Handler) GetMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	if userID == uuid.Nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	o, err := h.svc.Overview(r.Context(), userID)
	if errors.Is(err, ErrProfileNotFound) {
		http.Error(w, `{"error":"profile not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("earnings overview failed", "user_id", userID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
