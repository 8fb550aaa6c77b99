package handlers

import (
	"strings"

	"github.com/canvasboard/backend/internal/middleware"
	"github.com/canvasboard/backend/internal/models"
	"github.com/canvasboard/backend/internal/services"
	"github.com/canvasboard/backend/pkg/logger"
	"github.com/canvasboard/backend/pkg/utils"
	"github.com/canvasboard/backend/pkg/validation"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func parseObjectID(value string) (bson.ObjectID, error) {
	return bson.ObjectIDFromHex(strings.TrimSpace(value))
}

func getRequestID(c *fiber.Ctx) string {
	return middleware.GetRequestID(c)
}

// internalError logs err and answers with a generic 500.
func internalError(c *fiber.Ctx, action string, err error, details map[string]interface{}) error {
	if user := middleware.GetCurrentUser(c); user != nil {
		logger.ErrorWithUser(user.ID.Hex(), action, err, details)
	} else {
		logger.Error(action, err, details)
	}
	return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
}

func validationError(c *fiber.Ctx, verr *validation.RequestValidationError) error {
	return utils.Error(c, fiber.StatusBadRequest, verr.First())
}

func boardAudit(c *fiber.Ctx, user *models.User, action string, board *models.Board, details map[string]interface{}) services.AuditEntry {
	boardID := board.ID
	return services.AuditEntry{
		UserID:    &user.ID,
		Action:    action,
		BoardID:   &boardID,
		Details:   details,
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	}
}
