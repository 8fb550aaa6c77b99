package middleware

import (
	"errors"
	"strings"

	"github.com/canvasboard/backend/internal/config"
	"github.com/canvasboard/backend/internal/models"
	"github.com/canvasboard/backend/internal/services"
	"github.com/canvasboard/backend/internal/store"
	"github.com/canvasboard/backend/pkg/logger"
	"github.com/canvasboard/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

const (
	currentUserKey = "currentUser"
	sessionIDKey   = "sessionID"
	userIDKey      = "userID"
)

type AuthMiddleware struct {
	Users      store.UserStore
	Sessions   *services.SessionService
	CookieName string
}

func NewAuthMiddleware(users store.UserStore, sessions *services.SessionService, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{Users: users, Sessions: sessions, CookieName: cookieName}
}

func CORS(cfg config.ServerConfig) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.CORSOrigins, ","),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: true,
	})
}

// tokenFromRequest prefers the Authorization header and falls back to the
// session cookie.
func (a *AuthMiddleware) tokenFromRequest(c *fiber.Ctx) (string, bool) {
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		scheme, token, found := strings.Cut(strings.TrimSpace(authHeader), " ")
		token = strings.TrimSpace(token)
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return "", false
		}
		return token, true
	}
	if token := c.Cookies(a.CookieName); token != "" {
		return token, true
	}
	return "", false
}

func (a *AuthMiddleware) RequireAuth(c *fiber.Ctx) error {
	token, ok := a.tokenFromRequest(c)
	if !ok {
		logger.Warn("auth_missing_token", map[string]interface{}{
			"ip":   c.IP(),
			"path": c.Path(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	session, err := a.Sessions.Authenticate(c.UserContext(), token)
	if err != nil {
		if errors.Is(err, services.ErrInvalidSession) {
			logger.Warn("auth_invalid_session", map[string]interface{}{
				"ip":   c.IP(),
				"path": c.Path(),
			})
			return utils.Error(c, fiber.StatusUnauthorized, "invalid or expired session")
		}
		logger.Error("auth_session_lookup_failed", err, map[string]interface{}{"path": c.Path()})
		return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
	}

	user, err := a.Users.GetUser(c.UserContext(), session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Warn("auth_user_not_found", map[string]interface{}{
				"ip":      c.IP(),
				"path":    c.Path(),
				"user_id": session.UserID.Hex(),
			})
			return utils.Error(c, fiber.StatusUnauthorized, "user not found")
		}
		logger.Error("auth_user_lookup_failed", err, map[string]interface{}{"path": c.Path()})
		return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
	}

	c.Locals(currentUserKey, user)
	c.Locals(sessionIDKey, session.ID)
	c.Locals(userIDKey, user.ID.Hex())
	return c.Next()
}

func GetCurrentUser(c *fiber.Ctx) *models.User {
	user, ok := c.Locals(currentUserKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

func GetSessionID(c *fiber.Ctx) string {
	id, _ := c.Locals(sessionIDKey).(string)
	return id
}

func GetRequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}
