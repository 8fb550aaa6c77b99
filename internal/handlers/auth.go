package handlers

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/canvasboard/backend/internal/config"
	"github.com/canvasboard/backend/internal/middleware"
	"github.com/canvasboard/backend/internal/models"
	"github.com/canvasboard/backend/internal/services"
	"github.com/canvasboard/backend/internal/store"
	"github.com/canvasboard/backend/pkg/logger"
	"github.com/canvasboard/backend/pkg/utils"
	"github.com/canvasboard/backend/pkg/validation"
	"github.com/gofiber/fiber/v2"
)

const oauthStateCookie = "whiteboard_oauth_state"

type AuthHandler struct {
	Users       store.UserStore
	Sessions    *services.SessionService
	Audit       *services.AuditService
	Google      *services.GoogleOAuthService
	Session     config.SessionConfig
	FrontendURL string
}

func NewAuthHandler(users store.UserStore, sessions *services.SessionService, audit *services.AuditService, google *services.GoogleOAuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		Users:       users,
		Sessions:    sessions,
		Audit:       audit,
		Google:      google,
		Session:     cfg.Session,
		FrontendURL: strings.TrimRight(cfg.Server.FrontendURL, "/"),
	}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,notblank,max=100"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Email = store.NormalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if verr := validation.ValidateStruct(&req); verr != nil {
		return validationError(c, verr)
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return internalError(c, "password_hash_failed", err, nil)
	}

	now := time.Now().UTC()
	user := &models.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.Users.CreateUser(c.UserContext(), user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return utils.Error(c, fiber.StatusConflict, "email already registered")
		}
		return internalError(c, "user_create_failed", err, map[string]interface{}{"email": req.Email})
	}

	logger.Info("user_registered", map[string]interface{}{
		"user_id": user.ID.Hex(),
		"email":   user.Email,
	})
	h.Audit.LogAsync(services.AuditEntry{
		UserID:    &user.ID,
		Action:    services.AuditUserRegister,
		Details:   map[string]interface{}{"email": user.Email},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return h.startSession(c, user, fiber.StatusCreated)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Email = store.NormalizeEmail(req.Email)
	if verr := validation.ValidateStruct(&req); verr != nil {
		return utils.Error(c, fiber.StatusBadRequest, "email and password are required")
	}

	user, err := h.Users.GetUserByEmail(c.UserContext(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Warn("login_failed_user_not_found", map[string]interface{}{
				"email": req.Email,
				"ip":    c.IP(),
			})
			return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
		}
		return internalError(c, "login_user_lookup_failed", err, nil)
	}

	if user.PasswordHash == "" || !utils.CheckPassword(req.Password, user.PasswordHash) {
		logger.Warn("login_failed_invalid_password", map[string]interface{}{
			"user_id": user.ID.Hex(),
			"ip":      c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	logger.Info("user_login", map[string]interface{}{
		"user_id": user.ID.Hex(),
		"ip":      c.IP(),
	})
	h.Audit.LogAsync(services.AuditEntry{
		UserID:    &user.ID,
		Action:    services.AuditUserLogin,
		Details:   map[string]interface{}{"method": "password"},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return h.startSession(c, user, fiber.StatusOK)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	if err := h.Sessions.Revoke(c.UserContext(), middleware.GetSessionID(c)); err != nil && !errors.Is(err, store.ErrNotFound) {
		return internalError(c, "session_revoke_failed", err, nil)
	}
	h.clearCookie(c, h.Session.CookieName)

	h.Audit.LogAsync(services.AuditEntry{
		UserID:    &user.ID,
		Action:    services.AuditUserLogout,
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "logged out"})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}
	return utils.Success(c, fiber.StatusOK, user)
}

func (h *AuthHandler) GoogleLogin(c *fiber.Ctx) error {
	if !h.Google.Enabled() {
		return utils.Error(c, fiber.StatusServiceUnavailable, "google login is not configured")
	}

	state, err := h.Google.GenerateState()
	if err != nil {
		return internalError(c, "oauth_state_failed", err, nil)
	}
	authURL, err := h.Google.AuthCodeURL(state.Nonce)
	if err != nil {
		return internalError(c, "oauth_url_failed", err, nil)
	}

	c.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Value:    state.Nonce,
		Path:     "/",
		Expires:  state.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.Session.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"url": authURL})
}

func (h *AuthHandler) GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	expected := c.Cookies(oauthStateCookie)
	h.clearCookie(c, oauthStateCookie)

	if code == "" {
		return h.loginRedirectError(c, "authorization code is required")
	}
	if state == "" || expected == "" || state != expected {
		logger.Warn("oauth_state_mismatch", map[string]interface{}{"ip": c.IP()})
		return h.loginRedirectError(c, "invalid oauth state")
	}

	profile, err := h.Google.Exchange(c.UserContext(), code)
	if err != nil {
		logger.Warn("oauth_callback_failed", map[string]interface{}{
			"ip":    c.IP(),
			"error": err.Error(),
		})
		return h.loginRedirectError(c, "google sign-in failed")
	}
	profile.Email = store.NormalizeEmail(profile.Email)

	user, created, err := services.ResolveGoogleUser(c.UserContext(), h.Users, profile)
	if err != nil {
		logger.Error("oauth_user_resolve_failed", err, map[string]interface{}{"email": profile.Email})
		return h.loginRedirectError(c, "google sign-in failed")
	}

	action := services.AuditUserLogin
	if created {
		action = services.AuditUserRegister
	}
	h.Audit.LogAsync(services.AuditEntry{
		UserID:    &user.ID,
		Action:    action,
		Details:   map[string]interface{}{"method": "google"},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	issued, err := h.Sessions.Issue(c.UserContext(), user, c.IP(), c.Get(fiber.HeaderUserAgent))
	if err != nil {
		logger.Error("oauth_session_failed", err, map[string]interface{}{"user_id": user.ID.Hex()})
		return h.loginRedirectError(c, "google sign-in failed")
	}
	h.setSessionCookie(c, issued)

	logger.Info("oauth_login_success", map[string]interface{}{
		"user_id":  user.ID.Hex(),
		"provider": "google",
		"created":  created,
	})

	return c.Redirect(h.FrontendURL + "/auth/callback?token=" + url.QueryEscape(issued.Token))
}

func (h *AuthHandler) startSession(c *fiber.Ctx, user *models.User, status int) error {
	issued, err := h.Sessions.Issue(c.UserContext(), user, c.IP(), c.Get(fiber.HeaderUserAgent))
	if err != nil {
		return internalError(c, "session_issue_failed", err, map[string]interface{}{"user_id": user.ID.Hex()})
	}
	h.setSessionCookie(c, issued)
	return utils.Success(c, status, fiber.Map{"token": issued.Token, "user": user})
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, issued *services.IssuedSession) {
	c.Cookie(&fiber.Cookie{
		Name:     h.Session.CookieName,
		Value:    issued.Token,
		Path:     "/",
		Expires:  issued.Session.Expires,
		HTTPOnly: true,
		Secure:   h.Session.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.Session.CookieSecure,
	})
}

func (h *AuthHandler) loginRedirectError(c *fiber.Ctx, message string) error {
	return c.Redirect(h.FrontendURL + "/login?error=" + url.QueryEscape(message))
}
