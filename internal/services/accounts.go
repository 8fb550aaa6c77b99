package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/canvasboard/backend/internal/models"
	"github.com/canvasboard/backend/internal/store"
)

// ResolveGoogleUser finds the user behind a Google profile: first by Google
// id, then by email (linking the account), otherwise it creates one.
func ResolveGoogleUser(ctx context.Context, users store.UserStore, profile *GoogleProfile) (*models.User, bool, error) {
	user, err := users.GetUserByGoogleID(ctx, profile.ID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	user, err = users.GetUserByEmail(ctx, profile.Email)
	if err == nil {
		if err := users.LinkGoogleAccount(ctx, user.ID, profile.ID, profile.Picture); err != nil {
			return nil, false, err
		}
		linked, err := users.GetUser(ctx, user.ID)
		return linked, false, err
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name = strings.SplitN(profile.Email, "@", 2)[0]
	}
	now := time.Now().UTC()
	user = &models.User{
		Email:     profile.Email,
		Name:      name,
		Avatar:    profile.Picture,
		GoogleID:  profile.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := users.CreateUser(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}
