// Package store persists users, boards, sessions and audit entries.
//
// Board documents are the source of truth for ownership and collaboration.
// The users' boards and collaborations arrays are derived indexes that every
// cascade keeps in step inside one unit of work; RebuildUserIndexes repairs
// them from the boards collection.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/canvasboard/backend/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate key")
)

type BoardPage struct {
	Boards []models.Board
	Total  int64
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id bson.ObjectID) (*models.User, error)
	// GetUserByEmail matches case-insensitively on the full address.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	LinkGoogleAccount(ctx context.Context, userID bson.ObjectID, googleID, avatar string) error
	GetUsers(ctx context.Context, ids []bson.ObjectID) ([]models.User, error)
}

type BoardStore interface {
	// CreateBoard inserts the board and appends it to the owner's boards.
	CreateBoard(ctx context.Context, board *models.Board) error
	GetBoard(ctx context.Context, id bson.ObjectID) (*models.Board, error)
	GetBoardByShareToken(ctx context.Context, token string) (*models.Board, error)
	// List calls sort by lastModified descending, newest first.
	ListOwnedBoards(ctx context.Context, userID bson.ObjectID, offset, limit int) (BoardPage, error)
	ListCollaborativeBoards(ctx context.Context, userID bson.ObjectID, offset, limit int) (BoardPage, error)
	// UpdateBoardDetails writes title, description, settings and the
	// lastModified pair from board.
	UpdateBoardDetails(ctx context.Context, board *models.Board) error
	ReplaceElements(ctx context.Context, boardID bson.ObjectID, elements []models.Element, actor bson.ObjectID, now time.Time) error
	// DeleteBoard removes the board and every user-side reference to it.
	DeleteBoard(ctx context.Context, boardID bson.ObjectID) error
	// UpsertCollaborator adds the collaborator to the board and the mirrored
	// collaboration to the user, or updates the role on both when present.
	UpsertCollaborator(ctx context.Context, boardID bson.ObjectID, collaborator models.Collaborator, now time.Time) error
	RemoveCollaborator(ctx context.Context, boardID, userID, actor bson.ObjectID, now time.Time) error
	AddShareLink(ctx context.Context, boardID bson.ObjectID, link models.ShareLink) error
	RemoveShareLink(ctx context.Context, boardID bson.ObjectID, token string, actor bson.ObjectID, now time.Time) error
	// RebuildUserIndexes recomputes every user's boards and collaborations
	// from the boards collection and returns how many users were rewritten.
	RebuildUserIndexes(ctx context.Context) (int, error)
}

type SessionStore interface {
	CreateSession(ctx context.Context, session *models.Session) error
	// GetSession ignores sessions that expired before now.
	GetSession(ctx context.Context, id string, now time.Time) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

type AuditStore interface {
	InsertAuditLog(ctx context.Context, entry *models.AuditLog) error
	ListAuditLogs(ctx context.Context, boardID bson.ObjectID, offset, limit int) ([]models.AuditLog, int64, error)
}

type Store interface {
	UserStore
	BoardStore
	SessionStore
	AuditStore

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// NormalizeEmail is the stored form of an email address.
func NormalizeEmail(email string) string {
	return toLowerTrim(email)
}
