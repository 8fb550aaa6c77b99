package utils

import (
	"testing"
	"time"

	"github.com/canvasboard/backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func configureJWTForTest(t *testing.T, secret string) {
	t.Helper()

	originalSecret := append([]byte(nil), jwtSecret...)
	t.Cleanup(func() {
		jwtSecret = originalSecret
	})

	ConfigureJWT(secret)
}

func TestConfigureJWT(t *testing.T) {
	configureJWTForTest(t, "initial-secret")

	ConfigureJWT("")

	if got := string(jwtSecret); got != "initial-secret" {
		t.Fatalf("expected jwt secret to remain %q, got %q", "initial-secret", got)
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	configureJWTForTest(t, "roundtrip-secret")

	user := &models.User{ID: bson.NewObjectID(), Email: "user@example.com"}

	token, err := GenerateToken(user, "session-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("expected token generation to succeed, got error: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("expected token validation to succeed, got error: %v", err)
	}
	if claims.UserID != user.ID.Hex() {
		t.Fatalf("expected claims userID %s, got %s", user.ID.Hex(), claims.UserID)
	}
	if claims.ID != "session-1" {
		t.Fatalf("expected session id %q, got %q", "session-1", claims.ID)
	}
}

func TestValidateTokenRejections(t *testing.T) {
	configureJWTForTest(t, "reject-secret")
	user := &models.User{ID: bson.NewObjectID(), Email: "user@example.com"}

	t.Run("expired token", func(t *testing.T) {
		token, err := GenerateToken(user, "session-1", time.Now().Add(-time.Minute))
		if err != nil {
			t.Fatalf("failed generating token: %v", err)
		}
		if _, err := ValidateToken(token); err == nil {
			t.Fatal("expected expired token to be rejected")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := GenerateToken(user, "session-1", time.Now().Add(time.Hour))
		if err != nil {
			t.Fatalf("failed generating token: %v", err)
		}
		ConfigureJWT("another-secret")
		if _, err := ValidateToken(token); err == nil {
			t.Fatal("expected token signed with another secret to be rejected")
		}
	})

	t.Run("missing session id", func(t *testing.T) {
		ConfigureJWT("reject-secret")
		claims := Claims{
			UserID: user.ID.Hex(),
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret)
		if err != nil {
			t.Fatalf("failed signing token: %v", err)
		}
		if _, err := ValidateToken(token); err == nil {
			t.Fatal("expected token without session id to be rejected")
		}
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}
	if !CheckPassword("correct horse", hash) {
		t.Fatal("expected password to match its hash")
	}
	if CheckPassword("wrong", hash) {
		t.Fatal("expected wrong password to be rejected")
	}
	if CheckPassword("anything", "") {
		t.Fatal("expected empty hash to be rejected")
	}
}
