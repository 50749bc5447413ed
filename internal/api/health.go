package api

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// pgPinger matches pgxpool.Pool (and the pgxmock pool in tests).
type pgPinger interface {
	Ping(ctx context.Context) error
}

type redisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

type HealthHandler struct {
	pg            pgPinger
	redis         redisPinger
	llmConfigured bool
	knowledgeSize int
}

func NewHealthHandler(pg pgPinger, rdb redisPinger, llmConfigured bool, knowledgeSize int) *HealthHandler {
	return &HealthHandler{
		pg:            pg,
		redis:         rdb,
		llmConfigured: llmConfigured,
		knowledgeSize: knowledgeSize,
	}
}

// Check reports per-dependency health. The ledger and session store
// are probed live; the LLM is only checked for configuration since a
// probe would spend tokens.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	services := map[string]string{
		"api": "healthy",
	}
	status := "healthy"

	pgCtx, pgCancel := context.WithTimeout(ctx, time.Second)
	err := h.pg.Ping(pgCtx)
	pgCancel()
	if err != nil {
		services["postgres"] = "down"
		status = "degraded"
	} else {
		services["postgres"] = "healthy"
	}

	redisCtx, redisCancel := context.WithTimeout(ctx, time.Second)
	err = h.redis.Ping(redisCtx).Err()
	redisCancel()
	if err != nil {
		services["redis"] = "down"
		status = "degraded"
	} else {
		services["redis"] = "healthy"
	}

	if h.llmConfigured {
		services["openai"] = "configured"
	} else {
		services["openai"] = "not_configured"
		status = "degraded"
	}

	if h.knowledgeSize > 0 {
		services["knowledge_base"] = "healthy"
	} else {
		services["knowledge_base"] = "empty"
	}

	httpStatus := http.StatusOK
	if status != "healthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Services:  services,
	})
}
