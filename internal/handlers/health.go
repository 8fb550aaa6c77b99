package handlers

import (
	"context"
	"time"

	"github.com/canvasboard/backend/pkg/logger"
	"github.com/canvasboard/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

const healthPingTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	DB Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{DB: db}
}

// Health reports liveness. The process is up even when the database is not,
// so the status code stays 200 and the database state is reported in the body.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthPingTimeout)
	defer cancel()

	database := "up"
	if err := h.DB.Ping(ctx); err != nil {
		database = "down"
		logger.Warn("health_database_down", map[string]interface{}{"error": err.Error()})
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"status":    "ok",
		"database":  database,
		"timestamp": time.Now().UTC(),
	})
}
