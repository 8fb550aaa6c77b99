package handlers

import (
	"github.com/canvasboard/backend/internal/authz"
	"github.com/canvasboard/backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

type Routes struct {
	Health *HealthHandler
	Auth   *AuthHandler
	Boards *BoardsHandler
	Assets *AssetsHandler

	AuthMiddleware *middleware.AuthMiddleware
	BoardAccess    *middleware.BoardAccess
	// AuthLimiter guards register and login; nil disables it.
	AuthLimiter fiber.Handler
}

func withLimiter(limiter fiber.Handler, handler fiber.Handler) []fiber.Handler {
	if limiter == nil {
		return []fiber.Handler{handler}
	}
	return []fiber.Handler{limiter, handler}
}

func RegisterRoutes(app *fiber.App, r Routes) {
	requireAuth := r.AuthMiddleware.RequireAuth
	require := r.BoardAccess.Require

	api := app.Group("/api")
	api.Get("/", GetVersion)
	api.Get("/version", GetVersion)
	api.Get("/health", r.Health.Health)

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", withLimiter(r.AuthLimiter, r.Auth.Register)...)
	authRoutes.Post("/login", withLimiter(r.AuthLimiter, r.Auth.Login)...)
	authRoutes.Post("/logout", requireAuth, r.Auth.Logout)
	authRoutes.Get("/me", requireAuth, r.Auth.Me)
	authRoutes.Get("/google", r.Auth.GoogleLogin)
	authRoutes.Get("/google/callback", r.Auth.GoogleCallback)

	api.Get("/shared/:token", r.Boards.GetShared)
	api.Get("/shared/:token/elements", r.BoardAccess.RequireShareLink(authz.ActionView, r.Boards.GetElements))
	api.Put("/shared/:token/elements", requireAuth, r.BoardAccess.RequireShareLink(authz.ActionEdit, r.Boards.ReplaceElements))

	boardRoutes := api.Group("/boards", requireAuth)
	boardRoutes.Get("/", r.Boards.List)
	boardRoutes.Post("/", r.Boards.Create)
	boardRoutes.Get("/:id", require(authz.ActionView, r.Boards.Get))
	boardRoutes.Put("/:id", require(authz.ActionManage, r.Boards.Update))
	boardRoutes.Delete("/:id", require(authz.ActionDelete, r.Boards.Delete))
	boardRoutes.Get("/:id/elements", require(authz.ActionView, r.Boards.GetElements))
	boardRoutes.Put("/:id/elements", require(authz.ActionEdit, r.Boards.ReplaceElements))
	boardRoutes.Post("/:id/collaborators", require(authz.ActionManage, r.Boards.AddCollaborator))
	boardRoutes.Delete("/:id/collaborators/:userId", require(authz.ActionManage, r.Boards.RemoveCollaborator))
	boardRoutes.Post("/:id/share-links", require(authz.ActionManage, r.Boards.CreateShareLink))
	boardRoutes.Delete("/:id/share-links/:token", require(authz.ActionManage, r.Boards.RevokeShareLink))
	boardRoutes.Get("/:id/activity", require(authz.ActionManage, r.Boards.Activity))
	boardRoutes.Post("/:id/assets", require(authz.ActionEdit, r.Assets.Upload))
	boardRoutes.Get("/:id/assets/:assetId", require(authz.ActionView, r.Assets.Get))
}
