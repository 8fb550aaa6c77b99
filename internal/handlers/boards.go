package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/canvasboard/backend/internal/metrics"
	"github.com/canvasboard/backend/internal/middleware"
	"github.com/canvasboard/backend/internal/models"
	"github.com/canvasboard/backend/internal/services"
	"github.com/canvasboard/backend/internal/storage"
	"github.com/canvasboard/backend/internal/store"
	"github.com/canvasboard/backend/pkg/logger"
	"github.com/canvasboard/backend/pkg/utils"
	"github.com/canvasboard/backend/pkg/validation"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultBoardPageSize = 10
	maxBoardPageSize     = 100
	assetCleanupTimeout  = 30 * time.Second
)

type BoardsHandler struct {
	Store       store.Store
	Access      *services.AccessService
	Objects     storage.ObjectStore
	Audit       *services.AuditService
	Metrics     metrics.Recorder
	FrontendURL string
}

func NewBoardsHandler(s store.Store, access *services.AccessService, objects storage.ObjectStore, audit *services.AuditService, recorder metrics.Recorder, frontendURL string) *BoardsHandler {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &BoardsHandler{
		Store:       s,
		Access:      access,
		Objects:     objects,
		Audit:       audit,
		Metrics:     recorder,
		FrontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

type settingsRequest struct {
	IsPublic      *bool         `json:"isPublic"`
	AllowComments *bool         `json:"allowComments"`
	Theme         *models.Theme `json:"theme" validate:"omitempty,oneof=light dark"`
}

func (s *settingsRequest) applyTo(settings *models.BoardSettings) {
	if s == nil {
		return
	}
	if s.IsPublic != nil {
		settings.IsPublic = *s.IsPublic
	}
	if s.AllowComments != nil {
		settings.AllowComments = *s.AllowComments
	}
	if s.Theme != nil {
		settings.Theme = *s.Theme
	}
}

type createBoardRequest struct {
	Title       string           `json:"title" validate:"notblank,max=200"`
	Description string           `json:"description" validate:"max=2000"`
	Settings    *settingsRequest `json:"settings"`
}

type updateBoardRequest struct {
	Title       *string          `json:"title" validate:"omitempty,max=200"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
	Settings    *settingsRequest `json:"settings"`
}

type boardListPagination struct {
	Page               int   `json:"page"`
	Limit              int   `json:"limit"`
	OwnedTotal         int64 `json:"ownedTotal"`
	CollaborativeTotal int64 `json:"collaborativeTotal"`
	OwnedPages         int   `json:"ownedPages"`
	CollaborativePages int   `json:"collaborativePages"`
}

func (h *BoardsHandler) List(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}
	p := utils.ParsePagination(c, defaultBoardPageSize, maxBoardPageSize)
	ctx := c.UserContext()

	owned, err := h.Store.ListOwnedBoards(ctx, user.ID, p.Offset, p.Limit)
	if err != nil {
		return internalError(c, "boards_list_owned_failed", err, nil)
	}
	collaborative, err := h.Store.ListCollaborativeBoards(ctx, user.ID, p.Offset, p.Limit)
	if err != nil {
		return internalError(c, "boards_list_collaborative_failed", err, nil)
	}

	ownedViews, err := services.PopulateBoards(ctx, h.Store, owned.Boards)
	if err != nil {
		return internalError(c, "boards_populate_failed", err, nil)
	}
	collaborativeViews, err := services.PopulateBoards(ctx, h.Store, collaborative.Boards)
	if err != nil {
		return internalError(c, "boards_populate_failed", err, nil)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"ownedBoards":         ownedViews,
		"collaborativeBoards": collaborativeViews,
		"pagination": boardListPagination{
			Page:               p.Page,
			Limit:              p.Limit,
			OwnedTotal:         owned.Total,
			CollaborativeTotal: collaborative.Total,
			OwnedPages:         utils.TotalPages(owned.Total, p.Limit),
			CollaborativePages: utils.TotalPages(collaborative.Total, p.Limit),
		},
	})
}

func (h *BoardsHandler) Create(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	var req createBoardRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if verr := validation.ValidateStruct(&req); verr != nil {
		return validationError(c, verr)
	}

	settings := models.DefaultBoardSettings()
	req.Settings.applyTo(&settings)

	now := time.Now().UTC()
	board := &models.Board{
		Title:          req.Title,
		Description:    req.Description,
		Owner:          user.ID,
		Settings:       settings,
		Collaborators:  []models.Collaborator{},
		Elements:       []models.Element{},
		CreatedAt:      now,
		LastModified:   now,
		LastModifiedBy: user.ID,
	}
	if err := h.Store.CreateBoard(c.UserContext(), board); err != nil {
		return internalError(c, "board_create_failed", err, map[string]interface{}{"title": req.Title})
	}

	h.Metrics.RecordBoardCreated()
	logger.InfoWithUser(user.ID.Hex(), "board_created", map[string]interface{}{
		"board_id": board.ID.Hex(),
		"title":    board.Title,
	})
	h.Audit.LogAsync(boardAudit(c, user, services.AuditBoardCreate, board, map[string]interface{}{
		"title": board.Title,
	}))

	view, err := services.PopulateBoard(c.UserContext(), h.Store, board, models.ViewOptions{Elements: true, ShareLinks: true})
	if err != nil {
		return internalError(c, "board_populate_failed", err, nil)
	}
	return utils.Success(c, fiber.StatusCreated, fiber.Map{"board": view})
}

func (h *BoardsHandler) Get(c *fiber.Ctx, access *services.BoardAccess) error {
	view, err := services.PopulateBoard(c.UserContext(), h.Store, access.Board, models.ViewOptions{
		Elements:   true,
		ShareLinks: access.IsOwner(),
	})
	if err != nil {
		return internalError(c, "board_populate_failed", err, map[string]interface{}{"board_id": access.Board.ID.Hex()})
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"board": view, "userRole": access.Role})
}

func (h *BoardsHandler) Update(c *fiber.Ctx, access *services.BoardAccess) error {
	user := middleware.GetCurrentUser(c)

	var req updateBoardRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		return validationError(c, verr)
	}

	board := access.Board
	changed := []string{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return utils.Error(c, fiber.StatusBadRequest, "board title cannot be empty")
		}
		board.Title = title
		changed = append(changed, "title")
	}
	if req.Description != nil {
		board.Description = strings.TrimSpace(*req.Description)
		changed = append(changed, "description")
	}
	if req.Settings != nil {
		req.Settings.applyTo(&board.Settings)
		changed = append(changed, "settings")
	}
	board.Touch(user.ID, time.Now().UTC())

	if err := h.Store.UpdateBoardDetails(c.UserContext(), board); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "board not found")
		}
		return internalError(c, "board_update_failed", err, map[string]interface{}{"board_id": board.ID.Hex()})
	}

	h.Audit.LogAsync(boardAudit(c, user, services.AuditBoardUpdate, board, map[string]interface{}{
		"fields": changed,
	}))

	view, err := services.PopulateBoard(c.UserContext(), h.Store, board, models.ViewOptions{Elements: true, ShareLinks: true})
	if err != nil {
		return internalError(c, "board_populate_failed", err, nil)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"board": view})
}

func (h *BoardsHandler) Delete(c *fiber.Ctx, access *services.BoardAccess) error {
	user := middleware.GetCurrentUser(c)
	board := access.Board

	if err := h.Store.DeleteBoard(c.UserContext(), board.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "board not found")
		}
		return internalError(c, "board_delete_failed", err, map[string]interface{}{"board_id": board.ID.Hex()})
	}

	h.Metrics.RecordBoardDeleted()
	h.removeAssets(board.ID.Hex())
	logger.InfoWithUser(user.ID.Hex(), "board_deleted", map[string]interface{}{
		"board_id": board.ID.Hex(),
	})
	h.Audit.LogAsync(boardAudit(c, user, services.AuditBoardDelete, board, map[string]interface{}{
		"title": board.Title,
	}))

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "board deleted"})
}

// removeAssets drops the board's object prefix. Failures are logged only.
func (h *BoardsHandler) removeAssets(boardID string) {
	if h.Objects == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), assetCleanupTimeout)
	defer cancel()

	removed, err := h.Objects.DeletePrefix(ctx, storage.BoardPrefix(boardID))
	if err != nil {
		logger.Error("board_assets_cleanup_failed", err, map[string]interface{}{
			"board_id": boardID,
			"removed":  removed,
		})
	}
}
