package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"testing"

	"github.com/canvasboard/backend/internal/models"
)

func multipartFile(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("failed creating multipart part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed writing multipart content: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed closing multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestUploadAndFetchAsset(t *testing.T) {
	env := setupTestEnv(t)
	owner, token := createTestUser(t, env, "asset-owner@test.com")
	viewer, viewerToken := createTestUser(t, env, "asset-viewer@test.com")
	board := createTestBoard(t, env, owner, "Assets", false)
	addTestCollaborator(t, env, board, viewer, models.RoleViewer)

	body, contentType := multipartFile(t, "Diagram.PNG", "image/png", []byte("\x89PNG fake"))
	headers := authHeaders(token)
	headers["Content-Type"] = contentType
	resp := performRequest(t, env.app, http.MethodPost, "/api/boards/"+board.ID.Hex()+"/assets", body, headers)
	assertStatus(t, resp, http.StatusCreated)

	data := dataMap(t, decodeJSONMap(t, resp))
	key, _ := data["key"].(string)
	assetID, _ := data["assetId"].(string)
	if !strings.HasPrefix(key, "boards/"+board.ID.Hex()+"/") || !strings.HasSuffix(assetID, ".png") {
		t.Fatalf("unexpected asset key %q id %q", key, assetID)
	}
	if data["contentType"] != "image/png" {
		t.Fatalf("expected image/png, got %v", data["contentType"])
	}
	if keys := env.objects.keys(); len(keys) != 1 || keys[0] != key {
		t.Fatalf("expected object stored under %q, got %v", key, keys)
	}

	resp = performRequest(t, env.app, http.MethodGet, "/api/boards/"+board.ID.Hex()+"/assets/"+assetID, nil, authHeaders(viewerToken))
	assertStatus(t, resp, http.StatusFound)
	if location := resp.Header.Get("Location"); location != "https://assets.test/"+key+"?signature=test" {
		t.Fatalf("unexpected redirect %q", location)
	}

	resp = performRequest(t, env.app, http.MethodGet, "/api/boards/"+board.ID.Hex()+"/assets/missing.png", nil, authHeaders(viewerToken))
	assertStatus(t, resp, http.StatusNotFound)
}

func TestUploadAssetRules(t *testing.T) {
	env := setupTestEnv(t)
	owner, token := createTestUser(t, env, "asset-rules@test.com")
	viewer, viewerToken := createTestUser(t, env, "asset-rules-viewer@test.com")
	board := createTestBoard(t, env, owner, "Rules", false)
	addTestCollaborator(t, env, board, viewer, models.RoleViewer)
	path := "/api/boards/" + board.ID.Hex() + "/assets"

	body, contentType := multipartFile(t, "notes.txt", "text/plain", []byte("hello"))
	headers := authHeaders(token)
	headers["Content-Type"] = contentType
	resp := performRequest(t, env.app, http.MethodPost, path, body, headers)
	assertStatus(t, resp, http.StatusBadRequest)
	assertEnvelopeError(t, decodeJSONMap(t, resp), "only image uploads are allowed")

	body, contentType = multipartFile(t, "big.png", "image/png", bytes.Repeat([]byte("a"), maxAssetSize+1))
	headers["Content-Type"] = contentType
	resp = performRequest(t, env.app, http.MethodPost, path, body, headers)
	assertStatus(t, resp, http.StatusRequestEntityTooLarge)

	body, contentType = multipartFile(t, "ok.png", "image/png", []byte("png"))
	viewerHeaders := authHeaders(viewerToken)
	viewerHeaders["Content-Type"] = contentType
	resp = performRequest(t, env.app, http.MethodPost, path, body, viewerHeaders)
	assertStatus(t, resp, http.StatusForbidden)

	resp = performJSONRequest(t, env.app, http.MethodPost, path, map[string]any{}, authHeaders(token))
	assertStatus(t, resp, http.StatusBadRequest)

	if keys := env.objects.keys(); len(keys) != 0 {
		t.Fatalf("expected nothing stored, got %v", keys)
	}
}

func TestAssetsWithoutStorage(t *testing.T) {
	env := setupTestEnvWith(t, envOptions{withoutStorage: true})
	owner, token := createTestUser(t, env, "nostorage@test.com")
	board := createTestBoard(t, env, owner, "No storage", false)

	body, contentType := multipartFile(t, "a.png", "image/png", []byte("png"))
	headers := authHeaders(token)
	headers["Content-Type"] = contentType
	resp := performRequest(t, env.app, http.MethodPost, "/api/boards/"+board.ID.Hex()+"/assets", body, headers)
	assertStatus(t, resp, http.StatusServiceUnavailable)

	resp = performRequest(t, env.app, http.MethodDelete, "/api/boards/"+board.ID.Hex(), nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
}
