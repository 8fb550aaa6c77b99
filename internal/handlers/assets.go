package handlers

import (
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/canvasboard/backend/internal/metrics"
	"github.com/canvasboard/backend/internal/middleware"
	"github.com/canvasboard/backend/internal/services"
	"github.com/canvasboard/backend/internal/storage"
	"github.com/canvasboard/backend/pkg/logger"
	"github.com/canvasboard/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	maxAssetSize       = 10 * 1024 * 1024
	assetURLExpiry     = 15 * time.Minute
	assetStorageOffMsg = "asset storage is not configured"
)

type AssetsHandler struct {
	Objects storage.ObjectStore
	Audit   *services.AuditService
	Metrics metrics.Recorder
}

func NewAssetsHandler(objects storage.ObjectStore, audit *services.AuditService, recorder metrics.Recorder) *AssetsHandler {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &AssetsHandler{Objects: objects, Audit: audit, Metrics: recorder}
}

type assetResponse struct {
	AssetID     string `json:"assetId"`
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	URL         string `json:"url"`
}

func assetExtension(filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != "" && len(ext) <= 6 {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

func (h *AssetsHandler) Upload(c *fiber.Ctx, access *services.BoardAccess) error {
	if h.Objects == nil {
		return utils.Error(c, fiber.StatusServiceUnavailable, assetStorageOffMsg)
	}
	user := middleware.GetCurrentUser(c)
	board := access.Board

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "file is required")
	}
	if fileHeader.Size > maxAssetSize {
		return utils.Error(c, fiber.StatusRequestEntityTooLarge, "file exceeds the 10 MB limit")
	}
	contentType := fileHeader.Header.Get(fiber.HeaderContentType)
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}
	if !strings.HasPrefix(contentType, "image/") {
		return utils.Error(c, fiber.StatusBadRequest, "only image uploads are allowed")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "failed reading upload")
	}
	defer file.Close()

	assetID := uuid.NewString() + assetExtension(fileHeader.Filename, contentType)
	key := storage.AssetKey(board.ID.Hex(), assetID)
	if err := h.Objects.Upload(c.UserContext(), key, file, fileHeader.Size, contentType); err != nil {
		return internalError(c, "asset_upload_failed", err, map[string]interface{}{"board_id": board.ID.Hex()})
	}

	url, err := h.Objects.PresignedGetURL(c.UserContext(), key, assetURLExpiry)
	if err != nil {
		return internalError(c, "asset_presign_failed", err, map[string]interface{}{"key": key})
	}

	h.Metrics.RecordAssetUploaded(fileHeader.Size)
	logger.InfoWithUser(user.ID.Hex(), "asset_uploaded", map[string]interface{}{
		"board_id": board.ID.Hex(),
		"key":      key,
		"size":     fileHeader.Size,
	})
	h.Audit.LogAsync(boardAudit(c, user, services.AuditAssetUpload, board, map[string]interface{}{
		"key":          key,
		"content_type": contentType,
		"size":         fileHeader.Size,
	}))

	return utils.Success(c, fiber.StatusCreated, assetResponse{
		AssetID:     assetID,
		Key:         key,
		ContentType: contentType,
		Size:        fileHeader.Size,
		URL:         url,
	})
}

// Get redirects to a short-lived presigned URL for the asset.
func (h *AssetsHandler) Get(c *fiber.Ctx, access *services.BoardAccess) error {
	if h.Objects == nil {
		return utils.Error(c, fiber.StatusServiceUnavailable, assetStorageOffMsg)
	}

	assetID := strings.TrimSpace(c.Params("assetId"))
	if assetID == "" || strings.ContainsAny(assetID, `/\`) || strings.Contains(assetID, "..") {
		return utils.Error(c, fiber.StatusBadRequest, "invalid asset id")
	}
	key := storage.AssetKey(access.Board.ID.Hex(), assetID)

	exists, err := h.Objects.Exists(c.UserContext(), key)
	if err != nil {
		return internalError(c, "asset_stat_failed", err, map[string]interface{}{"key": key})
	}
	if !exists {
		return utils.Error(c, fiber.StatusNotFound, "asset not found")
	}

	url, err := h.Objects.PresignedGetURL(c.UserContext(), key, assetURLExpiry)
	if err != nil {
		return internalError(c, "asset_presign_failed", err, map[string]interface{}{"key": key})
	}
	return c.Redirect(url, fiber.StatusFound)
}
