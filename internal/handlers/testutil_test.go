package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/canvasboard/backend/internal/authz"
	"github.com/canvasboard/backend/internal/config"
	"github.com/canvasboard/backend/internal/middleware"
	"github.com/canvasboard/backend/internal/models"
	"github.com/canvasboard/backend/internal/services"
	"github.com/canvasboard/backend/internal/storage"
	"github.com/canvasboard/backend/internal/store"
	"github.com/canvasboard/backend/pkg/logger"
	"github.com/canvasboard/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type testEnv struct {
	app      *fiber.App
	store    *store.MemoryStore
	sessions *services.SessionService
	objects  *fakeObjectStore
}

var testSetupOnce sync.Once

type envOptions struct {
	withoutStorage bool
}

func setupTestEnv(t *testing.T) *testEnv {
	return setupTestEnvWith(t, envOptions{})
}

func setupTestEnvWith(t *testing.T, opts envOptions) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		logger.Init(logger.Config{Level: "error", Output: io.Discard})
		utils.ConfigureJWT("test-secret")
	})

	s := store.NewMemoryStore()
	enforcer, err := authz.NewEnforcer()
	if err != nil {
		t.Fatalf("failed creating enforcer: %v", err)
	}

	cfg := &config.Config{
		Server: config.ServerConfig{FrontendURL: "http://localhost:3000"},
		Session: config.SessionConfig{
			TTL:        time.Hour,
			CookieName: "whiteboard_session",
		},
	}

	sessions := services.NewSessionService(s, cfg.Session.TTL)
	auditService := services.NewAuditService(s, 100)
	t.Cleanup(auditService.Close)
	accessService := services.NewAccessService(s, enforcer)

	objects := newFakeObjectStore()
	var objectStore storage.ObjectStore = objects
	if opts.withoutStorage {
		objectStore = nil
	}

	app := fiber.New(fiber.Config{ErrorHandler: utils.ErrorHandler, BodyLimit: 12 * 1024 * 1024})
	app.Use(recover.New())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	RegisterRoutes(app, Routes{
		Health:         NewHealthHandler(s),
		Auth:           NewAuthHandler(s, sessions, auditService, services.NewGoogleOAuthService(cfg.Google), cfg),
		Boards:         NewBoardsHandler(s, accessService, objectStore, auditService, nil, cfg.Server.FrontendURL),
		Assets:         NewAssetsHandler(objectStore, auditService, nil),
		AuthMiddleware: middleware.NewAuthMiddleware(s, sessions, cfg.Session.CookieName),
		BoardAccess:    middleware.NewBoardAccess(accessService),
	})

	return &testEnv{app: app, store: s, sessions: sessions, objects: objects}
}

func createTestUser(t *testing.T, env *testEnv, email string) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword("password123")
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}
	user := &models.User{
		Email:        email,
		Name:         strings.Split(email, "@")[0],
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := env.store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	issued, err := env.sessions.Issue(context.Background(), user, "127.0.0.1", "test")
	if err != nil {
		t.Fatalf("failed issuing session: %v", err)
	}
	return user, issued.Token
}

func createTestBoard(t *testing.T, env *testEnv, owner *models.User, title string, public bool) *models.Board {
	t.Helper()

	now := time.Now().UTC()
	settings := models.DefaultBoardSettings()
	settings.IsPublic = public
	board := &models.Board{
		Title:          title,
		Owner:          owner.ID,
		Settings:       settings,
		CreatedAt:      now,
		LastModified:   now,
		LastModifiedBy: owner.ID,
	}
	if err := env.store.CreateBoard(context.Background(), board); err != nil {
		t.Fatalf("failed creating test board: %v", err)
	}
	return board
}

func addTestCollaborator(t *testing.T, env *testEnv, board *models.Board, user *models.User, role models.BoardRole) {
	t.Helper()
	now := time.Now().UTC()
	err := env.store.UpsertCollaborator(context.Background(), board.ID, models.Collaborator{
		User:     user.ID,
		Role:     role,
		AddedBy:  board.Owner,
		JoinedAt: now,
	}, now)
	if err != nil {
		t.Fatalf("failed adding collaborator: %v", err)
	}
}

func mustGetBoard(t *testing.T, env *testEnv, id bson.ObjectID) *models.Board {
	t.Helper()
	board, err := env.store.GetBoard(context.Background(), id)
	if err != nil {
		t.Fatalf("failed loading board %s: %v", id.Hex(), err)
	}
	return board
}

func mustGetUser(t *testing.T, env *testEnv, id bson.ObjectID) *models.User {
	t.Helper()
	user, err := env.store.GetUser(context.Background(), id)
	if err != nil {
		t.Fatalf("failed loading user %s: %v", id.Hex(), err)
	}
	return user
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func dataMap(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %+v", body)
	}
	return data
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d body=%s", expected, resp.StatusCode, string(raw))
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["message"].(string); got != expected {
		t.Fatalf("expected message %q, got %q", expected, got)
	}
}

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

type fakeObject struct {
	data        []byte
	contentType string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string]fakeObject)}
}

func (f *fakeObjectStore) Upload(_ context.Context, objectName string, reader io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[objectName] = fakeObject{data: data, contentType: contentType}
	return nil
}

func (f *fakeObjectStore) Exists(_ context.Context, objectName string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[objectName]
	return ok, nil
}

func (f *fakeObjectStore) PresignedGetURL(_ context.Context, objectName string, _ time.Duration) (string, error) {
	return "https://assets.test/" + objectName + "?signature=test", nil
}

func (f *fakeObjectStore) DeletePrefix(_ context.Context, prefix string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	removed := 0
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			delete(f.objects, key)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeObjectStore) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for key := range f.objects {
		keys = append(keys, key)
	}
	return keys
}
