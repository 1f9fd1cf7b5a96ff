package main

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/rajulearn/backend/internal/metrics"
)

// RegisterOpsRoutes adds /metrics and /healthz to the given mux. rdb may be nil.
func RegisterOpsRoutes(mux *http.ServeMux, pool *pgxpool.Pool, rdb *redis.Client) {
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"postgres": "ok", "redis": "disabled"}
		code := http.StatusOK
		if err := pool.Ping(ctx); err != nil {
			status["postgres"] = "unreachable"
			code = http.StatusServiceUnavailable
		}
		if rdb != nil {
			status["redis"] = "ok"
			if err := rdb.Ping(ctx).Err(); err != nil {
				status["redis"] = "unreachable"
			}
		}
		writeJSON(w, code, status)
	})
}
