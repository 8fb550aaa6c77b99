package handlers

import (
	"errors"
	"time"

	"github.com/canvasboard/backend/internal/middleware"
	"github.com/canvasboard/backend/internal/models"
	"github.com/canvasboard/backend/internal/services"
	"github.com/canvasboard/backend/internal/store"
	"github.com/canvasboard/backend/pkg/logger"
	"github.com/canvasboard/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type addCollaboratorRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AddCollaborator grants a registered user a role on the board. Inviting an
// existing collaborator again changes their role.
func (h *BoardsHandler) AddCollaborator(c *fiber.Ctx, access *services.BoardAccess) error {
	user := middleware.GetCurrentUser(c)
	board := access.Board

	var req addCollaboratorRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	email := store.NormalizeEmail(req.Email)
	if email == "" {
		return utils.Error(c, fiber.StatusBadRequest, "email is required")
	}
	role, err := models.ParseCollaboratorRole(req.Role)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid role, must be editor or viewer")
	}

	invitee, err := h.Store.GetUserByEmail(c.UserContext(), email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "user not found with this email")
		}
		return internalError(c, "collaborator_lookup_failed", err, nil)
	}
	if invitee.ID == user.ID || invitee.ID == board.Owner {
		return utils.Error(c, fiber.StatusBadRequest, "cannot add yourself as collaborator")
	}

	_, existed := board.RoleOf(invitee.ID)
	now := time.Now().UTC()
	err = h.Store.UpsertCollaborator(c.UserContext(), board.ID, models.Collaborator{
		User:     invitee.ID,
		Role:     role,
		AddedBy:  user.ID,
		JoinedAt: now,
	}, now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "board not found")
		}
		return internalError(c, "collaborator_add_failed", err, map[string]interface{}{"board_id": board.ID.Hex()})
	}

	change := "added"
	if existed {
		change = "updated"
	}
	h.Metrics.RecordCollaboratorChange(change)
	logger.InfoWithUser(user.ID.Hex(), "collaborator_"+change, map[string]interface{}{
		"board_id":        board.ID.Hex(),
		"collaborator_id": invitee.ID.Hex(),
		"role":            string(role),
	})
	h.Audit.LogAsync(boardAudit(c, user, services.AuditCollaboratorAdd, board, map[string]interface{}{
		"collaborator_id": invitee.ID.Hex(),
		"role":            string(role),
		"change":          change,
	}))

	return h.renderCollaborators(c, board.ID)
}

// RemoveCollaborator succeeds even when the user holds no role on the board.
func (h *BoardsHandler) RemoveCollaborator(c *fiber.Ctx, access *services.BoardAccess) error {
	user := middleware.GetCurrentUser(c)
	board := access.Board

	collaboratorID, err := parseObjectID(c.Params("userId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	if err := h.Store.RemoveCollaborator(c.UserContext(), board.ID, collaboratorID, user.ID, time.Now().UTC()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "board not found")
		}
		return internalError(c, "collaborator_remove_failed", err, map[string]interface{}{"board_id": board.ID.Hex()})
	}

	h.Metrics.RecordCollaboratorChange("removed")
	h.Audit.LogAsync(boardAudit(c, user, services.AuditCollaboratorRemove, board, map[string]interface{}{
		"collaborator_id": collaboratorID.Hex(),
	}))

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "collaborator removed"})
}

func (h *BoardsHandler) renderCollaborators(c *fiber.Ctx, boardID bson.ObjectID) error {
	board, err := h.Store.GetBoard(c.UserContext(), boardID)
	if err != nil {
		return internalError(c, "board_reload_failed", err, map[string]interface{}{"board_id": boardID.Hex()})
	}
	view, err := services.PopulateBoard(c.UserContext(), h.Store, board, models.ViewOptions{})
	if err != nil {
		return internalError(c, "board_populate_failed", err, map[string]interface{}{"board_id": boardID.Hex()})
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"collaborators": view.Collaborators})
}
