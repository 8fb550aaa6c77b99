package middleware

import (
	"errors"
	"strings"

	"github.com/canvasboard/backend/internal/authz"
	"github.com/canvasboard/backend/internal/services"
	"github.com/canvasboard/backend/pkg/logger"
	"github.com/canvasboard/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// BoardHandler receives the board named by the :id route parameter together
// with the caller's role on it.
type BoardHandler func(c *fiber.Ctx, access *services.BoardAccess) error

type BoardAccess struct {
	Access *services.AccessService
}

func NewBoardAccess(access *services.AccessService) *BoardAccess {
	return &BoardAccess{Access: access}
}

// Require resolves the board and checks action against the caller's role
// before running next. It must run after RequireAuth.
func (b *BoardAccess) Require(action authz.Action, next BoardHandler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetCurrentUser(c)
		if user == nil {
			return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
		}

		boardID, err := bson.ObjectIDFromHex(strings.TrimSpace(c.Params("id")))
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid board id")
		}

		access, err := b.Access.Authorize(c.UserContext(), boardID, user.ID, action)
		if err != nil {
			return RenderAccessError(c, err, map[string]interface{}{
				"board_id": boardID.Hex(),
				"action":   string(action),
			})
		}
		return next(c, access)
	}
}

// RequireShareLink resolves the board named by the :token route parameter and
// checks action against the link's permission. Callers that write must run
// RequireAuth first so the change has an author.
func (b *BoardAccess) RequireShareLink(action authz.Action, next BoardHandler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Params("token"))
		if token == "" {
			return utils.Error(c, fiber.StatusNotFound, "board not found")
		}

		access, err := b.Access.AuthorizeShareLink(c.UserContext(), token, action)
		if err != nil {
			return RenderAccessError(c, err, map[string]interface{}{
				"share_link": true,
				"action":     string(action),
			})
		}
		return next(c, access)
	}
}

// RenderAccessError maps access resolution failures onto responses.
func RenderAccessError(c *fiber.Ctx, err error, details map[string]interface{}) error {
	switch {
	case errors.Is(err, services.ErrBoardNotFound):
		return utils.Error(c, fiber.StatusNotFound, "board not found")
	case errors.Is(err, services.ErrAccessDenied):
		return utils.Error(c, fiber.StatusForbidden, "you do not have permission to perform this action")
	default:
		logger.Error("board_access_failed", err, details)
		return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
	}
}
