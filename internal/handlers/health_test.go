package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthAndRoot(t *testing.T) {
	env := setupTestEnv(t)

	resp := performRequest(t, env.app, http.MethodGet, "/api/health", nil, nil)
	assertStatus(t, resp, http.StatusOK)
	data := dataMap(t, decodeJSONMap(t, resp))
	if data["status"] != "ok" || data["database"] != "up" {
		t.Fatalf("unexpected health payload %+v", data)
	}

	resp = performRequest(t, env.app, http.MethodGet, "/api", nil, nil)
	assertStatus(t, resp, http.StatusOK)
	if name := dataMap(t, decodeJSONMap(t, resp))["name"]; name != serviceName {
		t.Fatalf("expected service name, got %v", name)
	}

	resp = performRequest(t, env.app, http.MethodGet, "/api/does-not-exist", nil, nil)
	assertStatus(t, resp, http.StatusNotFound)
	if success, _ := decodeJSONMap(t, resp)["success"].(bool); success {
		t.Fatal("expected error envelope for unknown routes")
	}
}

func TestHealthReportsDatabaseDown(t *testing.T) {
	app := fiber.New()
	app.Get("/api/health", NewHealthHandler(failingPinger{}).Health)

	resp := performRequest(t, app, http.MethodGet, "/api/health", nil, nil)
	assertStatus(t, resp, http.StatusOK)
	if db := dataMap(t, decodeJSONMap(t, resp))["database"]; db != "down" {
		t.Fatalf("expected database down, got %v", db)
	}
}
