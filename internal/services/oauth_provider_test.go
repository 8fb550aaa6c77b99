package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/canvasboard/backend/internal/config"
	"github.com/canvasboard/backend/internal/models"
	"github.com/canvasboard/backend/internal/store"
)

func TestGoogleOAuthService_GenerateState(t *testing.T) {
	service := NewGoogleOAuthService(config.GoogleConfig{ClientID: "id", ClientSecret: "secret"})

	state1, err := service.GenerateState()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state2, _ := service.GenerateState()
	if state1.Nonce == "" || state1.Nonce == state2.Nonce {
		t.Fatal("expected unique non-empty nonces")
	}
	if state1.ExpiresAt.Before(time.Now()) {
		t.Error("expected expiresAt to be in the future")
	}
}

func TestGoogleOAuthService_Disabled(t *testing.T) {
	service := NewGoogleOAuthService(config.GoogleConfig{})
	if service.Enabled() {
		t.Fatal("expected service without credentials to be disabled")
	}
	if _, err := service.AuthCodeURL("state"); !errors.Is(err, ErrOAuthDisabled) {
		t.Fatalf("expected ErrOAuthDisabled, got %v", err)
	}
}

func TestGoogleOAuthService_AuthCodeURL(t *testing.T) {
	service := NewGoogleOAuthService(config.GoogleConfig{
		ClientID:     "google-client-id",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:5000/api/auth/google/callback",
	})

	url, err := service.AuthCodeURL("nonce-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"accounts.google.com", "client_id=google-client-id", "state=nonce-123"} {
		if !strings.Contains(url, want) {
			t.Errorf("expected %q in %s", want, url)
		}
	}
}

func TestGoogleOAuthService_UserInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"g-1","email":"Jane@Example.com","name":"Jane","picture":"https://p.test/j.png","verified_email":true}`))
	}))
	defer srv.Close()

	service := NewGoogleOAuthService(config.GoogleConfig{ClientID: "id", ClientSecret: "secret"})
	service.UserInfoURL = srv.URL

	profile, err := service.userInfo(context.Background(), srv.Client())
	if err != nil {
		t.Fatalf("userInfo error = %v", err)
	}
	if profile.ID != "g-1" || profile.Email != "Jane@Example.com" || !profile.VerifiedEmail {
		t.Fatalf("unexpected profile %+v", profile)
	}
}

func TestGoogleOAuthService_UserInfoError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	service := NewGoogleOAuthService(config.GoogleConfig{ClientID: "id", ClientSecret: "secret"})
	service.UserInfoURL = srv.URL

	if _, err := service.userInfo(context.Background(), srv.Client()); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestResolveGoogleUser(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	profile := &GoogleProfile{ID: "g-1", Email: "new@example.com", Name: "New", Picture: "https://p.test/n.png"}
	created, isNew, err := ResolveGoogleUser(ctx, s, profile)
	if err != nil || !isNew {
		t.Fatalf("expected user to be created, got %v %v", isNew, err)
	}

	again, isNew, err := ResolveGoogleUser(ctx, s, profile)
	if err != nil || isNew || again.ID != created.ID {
		t.Fatalf("expected lookup by google id, got %+v %v %v", again, isNew, err)
	}

	existing := &models.User{Email: "x@example.com", Name: "X", PasswordHash: "hash"}
	if err := s.CreateUser(ctx, existing); err != nil {
		t.Fatalf("failed creating user: %v", err)
	}
	linked, isNew, err := ResolveGoogleUser(ctx, s, &GoogleProfile{ID: "g-2", Email: "X@Example.com", Picture: "https://p.test/x.png"})
	if err != nil || isNew {
		t.Fatalf("expected existing account to be linked, got %v %v", isNew, err)
	}
	if linked.ID != existing.ID || linked.GoogleID != "g-2" {
		t.Fatalf("expected google id linked to existing user, got %+v", linked)
	}
}
