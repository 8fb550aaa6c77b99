package handlers

import (
	"github.com/canvasboard/backend/internal/services"
	"github.com/canvasboard/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultActivityPageSize = 20
	maxActivityPageSize     = 100
)

// Activity lists the board's audit entries, newest first.
func (h *BoardsHandler) Activity(c *fiber.Ctx, access *services.BoardAccess) error {
	p := utils.ParsePagination(c, defaultActivityPageSize, maxActivityPageSize)

	entries, total, err := h.Store.ListAuditLogs(c.UserContext(), access.Board.ID, p.Offset, p.Limit)
	if err != nil {
		return internalError(c, "activity_list_failed", err, map[string]interface{}{"board_id": access.Board.ID.Hex()})
	}
	return utils.Paginated(c, entries, p.Page, p.Limit, total)
}
