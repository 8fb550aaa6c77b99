package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/canvasboard/backend/internal/authz"
	"github.com/canvasboard/backend/internal/middleware"
	"github.com/canvasboard/backend/internal/models"
	"github.com/canvasboard/backend/internal/services"
	"github.com/canvasboard/backend/internal/store"
	"github.com/canvasboard/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type createShareLinkRequest struct {
	Permissions models.ShareLinkPermission `json:"permissions"`
}

type shareLinkResponse struct {
	Token       string                     `json:"token"`
	Permissions models.ShareLinkPermission `json:"permissions"`
	CreatedAt   time.Time                  `json:"createdAt"`
	URL         string                     `json:"url"`
}

func newShareToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (h *BoardsHandler) CreateShareLink(c *fiber.Ctx, access *services.BoardAccess) error {
	user := middleware.GetCurrentUser(c)
	board := access.Board

	var req createShareLinkRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
		}
	}
	if req.Permissions == "" {
		req.Permissions = models.ShareLinkView
	}
	if !req.Permissions.Valid() {
		return utils.Error(c, fiber.StatusBadRequest, "permissions must be view or edit")
	}

	link := models.ShareLink{
		Token:       newShareToken(),
		Permissions: req.Permissions,
		CreatedBy:   user.ID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.Store.AddShareLink(c.UserContext(), board.ID, link); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "board not found")
		}
		return internalError(c, "share_link_create_failed", err, map[string]interface{}{"board_id": board.ID.Hex()})
	}

	h.Audit.LogAsync(boardAudit(c, user, services.AuditShareLinkCreate, board, map[string]interface{}{
		"permissions": string(link.Permissions),
	}))

	return utils.Success(c, fiber.StatusCreated, shareLinkResponse{
		Token:       link.Token,
		Permissions: link.Permissions,
		CreatedAt:   link.CreatedAt,
		URL:         h.FrontendURL + "/shared/" + link.Token,
	})
}

func (h *BoardsHandler) RevokeShareLink(c *fiber.Ctx, access *services.BoardAccess) error {
	user := middleware.GetCurrentUser(c)
	board := access.Board
	token := strings.TrimSpace(c.Params("token"))

	if err := h.Store.RemoveShareLink(c.UserContext(), board.ID, token, user.ID, time.Now().UTC()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "share link not found")
		}
		return internalError(c, "share_link_revoke_failed", err, map[string]interface{}{"board_id": board.ID.Hex()})
	}

	h.Audit.LogAsync(boardAudit(c, user, services.AuditShareLinkRevoke, board, nil))
	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "share link revoked"})
}

// GetShared serves a board to anyone holding one of its share tokens.
func (h *BoardsHandler) GetShared(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Params("token"))
	if token == "" {
		return utils.Error(c, fiber.StatusNotFound, "board not found")
	}

	access, err := h.Access.AuthorizeShareLink(c.UserContext(), token, authz.ActionView)
	if err != nil {
		return middleware.RenderAccessError(c, err, map[string]interface{}{"share_link": true})
	}

	view, err := services.PopulateBoard(c.UserContext(), h.Store, access.Board, models.ViewOptions{Elements: true})
	if err != nil {
		return internalError(c, "board_populate_failed", err, map[string]interface{}{"board_id": access.Board.ID.Hex()})
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"board": view, "userRole": access.Role})
}
