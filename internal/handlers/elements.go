package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/canvasboard/backend/internal/middleware"
	"github.com/canvasboard/backend/internal/models"
	"github.com/canvasboard/backend/internal/services"
	"github.com/canvasboard/backend/internal/store"
	"github.com/canvasboard/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	defaultElementPageSize = 100
	maxElementPageSize     = 1000
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// Digit strings shorter than this are read as years, not Unix milliseconds.
const minUnixMilliDigits = 10

// parseTimestamp accepts RFC 3339, a date, a year, or Unix milliseconds.
func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if len(value) >= minUnixMilliDigits {
		if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), nil
		}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}

type elementsPagination struct {
	Current int `json:"current"`
	Limit   int `json:"limit"`
	Total   int `json:"total"`
	Pages   int `json:"pages"`
}

type elementsMetadata struct {
	LastModified  time.Time            `json:"lastModified"`
	UserRole      models.BoardRole     `json:"userRole"`
	ElementTypes  []models.ElementType `json:"elementTypes"`
	TotalElements int                  `json:"totalElements"`
}

func filterElements(elements []models.Element, elementType models.ElementType, since *time.Time) []models.Element {
	filtered := make([]models.Element, 0, len(elements))
	for _, e := range elements {
		if elementType != "" && e.Type != elementType {
			continue
		}
		if since != nil && !e.LastChange().After(*since) {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

func distinctTypes(elements []models.Element) []models.ElementType {
	seen := make(map[models.ElementType]struct{})
	types := []models.ElementType{}
	for _, e := range elements {
		if _, ok := seen[e.Type]; ok {
			continue
		}
		seen[e.Type] = struct{}{}
		types = append(types, e.Type)
	}
	return types
}

func (h *BoardsHandler) GetElements(c *fiber.Ctx, access *services.BoardAccess) error {
	board := access.Board

	var since *time.Time
	if raw := c.Query("lastModified"); raw != "" {
		t, err := parseTimestamp(raw)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid lastModified timestamp")
		}
		since = &t
	}

	filtered := filterElements(board.Elements, models.ElementType(strings.TrimSpace(c.Query("type"))), since)
	p := utils.ParsePagination(c, defaultElementPageSize, maxElementPageSize)
	page := utils.PageSlice(filtered, p)

	creators := make([]bson.ObjectID, 0, len(page))
	for _, e := range page {
		if e.CreatedBy != nil {
			creators = append(creators, *e.CreatedBy)
		}
	}
	dir, err := services.LoadDirectory(c.UserContext(), h.Store, creators)
	if err != nil {
		return internalError(c, "element_creators_lookup_failed", err, map[string]interface{}{"board_id": board.ID.Hex()})
	}

	total := len(filtered)
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"boardId":    board.ID,
		"boardTitle": board.Title,
		"elements":   models.ElementsWithCreators(page, dir),
		"pagination": elementsPagination{
			Current: p.Page,
			Limit:   p.Limit,
			Total:   total,
			Pages:   utils.TotalPages(int64(total), p.Limit),
		},
		"metadata": elementsMetadata{
			LastModified:  board.LastModified,
			UserRole:      access.Role,
			ElementTypes:  distinctTypes(filtered),
			TotalElements: len(board.Elements),
		},
	})
}

type replaceElementsRequest struct {
	Elements *[]models.Element `json:"elements"`
}

// ReplaceElements overwrites the whole element list. Concurrent writers are
// not reconciled; the last write wins.
func (h *BoardsHandler) ReplaceElements(c *fiber.Ctx, access *services.BoardAccess) error {
	user := middleware.GetCurrentUser(c)
	board := access.Board

	var req replaceElementsRequest
	if err := c.BodyParser(&req); err != nil || req.Elements == nil {
		return utils.Error(c, fiber.StatusBadRequest, "elements must be an array")
	}

	now := time.Now().UTC()
	elements := *req.Elements
	for i := range elements {
		if err := elements[i].Validate(); err != nil {
			return utils.Error(c, fiber.StatusBadRequest, fmt.Sprintf("element %d: %s", i, err.Error()))
		}
		if elements[i].ID == "" {
			elements[i].ID = uuid.NewString()
		}
		if elements[i].CreatedBy == nil {
			creator := user.ID
			elements[i].CreatedBy = &creator
		}
		if elements[i].CreatedAt.IsZero() {
			elements[i].CreatedAt = now
		}
		updatedAt := now
		elements[i].UpdatedAt = &updatedAt
	}

	if err := h.Store.ReplaceElements(c.UserContext(), board.ID, elements, user.ID, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "board not found")
		}
		return internalError(c, "elements_replace_failed", err, map[string]interface{}{"board_id": board.ID.Hex()})
	}

	h.Metrics.RecordElementsReplaced(len(elements))
	h.Audit.LogAsync(boardAudit(c, user, services.AuditElementsReplace, board, map[string]interface{}{
		"count": len(elements),
	}))

	return utils.Success(c, fiber.StatusOK, fiber.Map{"elements": elements})
}
