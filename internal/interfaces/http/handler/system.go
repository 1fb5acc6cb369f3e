package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/logger"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/interfaces/http/dto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// Pinger is anything whose liveness can be checked
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves operational endpoints
type SystemHandler struct {
	BaseHandler
	db      Pinger
	redis   redis.UniversalClient
	version string
}

// NewSystemHandler creates a new system handler. A nil redis client reports
// redis as disabled.
func NewSystemHandler(db Pinger, redisClient redis.UniversalClient, version string) *SystemHandler {
	return &SystemHandler{db: db, redis: redisClient, version: version}
}

// Health godoc
// @Summary      Health check
// @Description  Report database and redis reachability
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=HealthData}
// @Failure      503 {object} dto.Response{data=HealthData}
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	reqLog := logger.FromGin(c)
	data := HealthData{Status: "healthy", Database: "up", Redis: "disabled", Version: h.version}
	if err := h.db.Ping(ctx); err != nil {
		reqLog.Warn("Health check failed", zap.String("component", "database"), zap.Error(err))
		data.Database = "down"
		data.Status = "unhealthy"
	}
	if h.redis != nil {
		data.Redis = "up"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			reqLog.Warn("Health check failed", zap.String("component", "redis"), zap.Error(err))
			data.Redis = "down"
			data.Status = "unhealthy"
		}
	}

	status := http.StatusOK
	if data.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, dto.NewSuccessResponse(data))
}
