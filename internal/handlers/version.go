package handlers

import (
	"github.com/canvasboard/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

// Version is the server version, injected at build time:
//
//	go build -ldflags "-X github.com/canvasboard/backend/internal/handlers.Version=1.2.3"
var Version = "dev"

const (
	serviceName = "whiteboard-api"
	apiVersion  = "v1"
)

type versionResponse struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	APIVersion string `json:"apiVersion"`
}

func GetVersion(c *fiber.Ctx) error {
	return utils.Success(c, fiber.StatusOK, versionResponse{
		Name:       serviceName,
		Version:    Version,
		APIVersion: apiVersion,
	})
}
