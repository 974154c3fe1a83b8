package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"aimsite/internal/bootstrap"
)

// HealthHandler reports service liveness plus the state of every backing
// dependency; a degraded dependency turns the whole check 503 so load
// balancers stop routing here.
type HealthHandler struct {
	app *bootstrap.App
}

type dependencyStatus struct {
	OK        bool   `json:"ok"`
	LatencyMS int64  `json:"latency_ms"`
	Message   string `json:"message,omitempty"`
}

func NewHealthHandler(app *bootstrap.App) *HealthHandler {
	return &HealthHandler{app: app}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	deps := gin.H{
		"mysql":    timed(func() error { return h.pingMySQL(ctx) }),
		"redis":    timed(func() error { return h.app.Redis.Ping(ctx).Err() }),
		"rabbitmq": timed(h.checkBroker),
	}

	statusCode := http.StatusOK
	for _, d := range deps {
		if !d.(dependencyStatus).OK {
			statusCode = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(statusCode, gin.H{
		"app":          h.app.Config.App.Name,
		"env":          h.app.Config.App.Env,
		"uptime_sec":   int(time.Since(h.app.StartedAt).Seconds()),
		"dependencies": deps,
	})
}

func timed(check func() error) dependencyStatus {
	start := time.Now()
	err := check()
	status := dependencyStatus{
		OK:        err == nil,
		LatencyMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		status.Message = err.Error()
	}
	return status
}

func (h *HealthHandler) pingMySQL(ctx context.Context) error {
	sqlDB, err := h.app.MySQL.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (h *HealthHandler) checkBroker() error {
	if h.app.MQConn == nil || h.app.MQConn.IsClosed() {
		return errors.New("connection closed")
	}
	return nil
}
