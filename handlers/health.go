package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"freshcart-api/queue"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// QueueInspector is implemented by the job queue; when the Redis pinger also
// satisfies it the health report includes queue depths.
type QueueInspector interface {
	Stats(ctx context.Context) (queue.Stats, error)
}

type HealthHandler struct {
	db      Pinger
	redis   Pinger
	started time.Time
}

func NewHealthHandler(db, redis Pinger) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, started: time.Now()}
}

type healthStatus struct {
	Status    string       `json:"status"`
	Time      string       `json:"time"`
	Database  string       `json:"database"`
	Redis     string       `json:"redis"`
	Uptime    string       `json:"uptime"`
	GoVersion string       `json:"go_version"`
	Jobs      *queue.Stats `json:"jobs,omitempty"`
}

// Health reports "degraded" with 503 when either backing store is unreachable.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	health := healthStatus{
		Status:    "ok",
		Time:      time.Now().Format(time.RFC3339),
		Database:  "connected",
		Redis:     "connected",
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		GoVersion: runtime.Version(),
	}

	dbCtx, dbCancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer dbCancel()
	if err := h.db.Ping(dbCtx); err != nil {
		health.Status = "degraded"
		health.Database = "error"
	}

	redisCtx, redisCancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer redisCancel()
	if err := h.redis.Ping(redisCtx); err != nil {
		health.Status = "degraded"
		health.Redis = "error"
	} else if inspector, ok := h.redis.(QueueInspector); ok {
		if stats, err := inspector.Stats(redisCtx); err == nil {
			health.Jobs = &stats
		}
	}

	status := http.StatusOK
	if health.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(health)
}
