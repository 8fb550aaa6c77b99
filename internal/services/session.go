package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/canvasboard/backend/internal/models"
	"github.com/canvasboard/backend/internal/store"
	"github.com/canvasboard/backend/pkg/utils"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var ErrInvalidSession = errors.New("invalid or expired session")

// SessionService issues tokens backed by session documents and checks that
// the session behind a token still exists.
type SessionService struct {
	Store store.SessionStore
	TTL   time.Duration
	now   func() time.Time
}

func NewSessionService(sessions store.SessionStore, ttl time.Duration) *SessionService {
	return &SessionService{Store: sessions, TTL: ttl, now: func() time.Time { return time.Now().UTC() }}
}

type IssuedSession struct {
	Token   string
	Session *models.Session
}

func (s *SessionService) Issue(ctx context.Context, user *models.User, ip, userAgent string) (*IssuedSession, error) {
	now := s.now()
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		IPAddress: ip,
		UserAgent: userAgent,
		CreatedAt: now,
		Expires:   now.Add(s.TTL),
	}
	if err := s.Store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	token, err := utils.GenerateToken(user, session.ID, session.Expires)
	if err != nil {
		_ = s.Store.DeleteSession(ctx, session.ID)
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &IssuedSession{Token: token, Session: session}, nil
}

// Authenticate validates the token signature and the session behind it and
// returns the session owner's id.
func (s *SessionService) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	claims, err := utils.ValidateToken(token)
	if err != nil {
		return nil, ErrInvalidSession
	}
	userID, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, ErrInvalidSession
	}

	session, err := s.Store.GetSession(ctx, claims.ID, s.now())
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrInvalidSession
	}
	return session, nil
}

func (s *SessionService) Revoke(ctx context.Context, sessionID string) error {
	return s.Store.DeleteSession(ctx, sessionID)
}
