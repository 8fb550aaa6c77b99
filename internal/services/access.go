package services

import (
	"context"
	"errors"

	"github.com/canvasboard/backend/internal/authz"
	"github.com/canvasboard/backend/internal/models"
	"github.com/canvasboard/backend/internal/store"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	ErrBoardNotFound = errors.New("board not found")
	ErrAccessDenied  = errors.New("access denied")
)

// BoardAccess is a board together with the role the caller holds on it.
type BoardAccess struct {
	Board *models.Board
	Role  models.BoardRole
}

func (a *BoardAccess) IsOwner() bool {
	return a.Role == models.RoleOwner
}

type AccessService struct {
	Boards   store.BoardStore
	Enforcer *authz.Enforcer
}

func NewAccessService(boards store.BoardStore, enforcer *authz.Enforcer) *AccessService {
	return &AccessService{Boards: boards, Enforcer: enforcer}
}

// RoleFor is the role userID holds on board. Strangers get viewer on public
// boards and nothing otherwise.
func RoleFor(board *models.Board, userID bson.ObjectID) (models.BoardRole, bool) {
	if role, ok := board.RoleOf(userID); ok {
		return role, true
	}
	if board.Settings.IsPublic {
		return models.RoleViewer, true
	}
	return "", false
}

// Authorize loads the board and checks that userID may perform action on it.
func (a *AccessService) Authorize(ctx context.Context, boardID, userID bson.ObjectID, action authz.Action) (*BoardAccess, error) {
	board, err := a.Boards.GetBoard(ctx, boardID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBoardNotFound
	}
	if err != nil {
		return nil, err
	}

	role, ok := RoleFor(board, userID)
	if !ok {
		return nil, ErrAccessDenied
	}
	if err := a.check(role, action); err != nil {
		return nil, err
	}
	return &BoardAccess{Board: board, Role: role}, nil
}

// AuthorizeShareLink resolves a share token to its board with the link's role.
func (a *AccessService) AuthorizeShareLink(ctx context.Context, token string, action authz.Action) (*BoardAccess, error) {
	board, err := a.Boards.GetBoardByShareToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBoardNotFound
	}
	if err != nil {
		return nil, err
	}
	link, ok := board.ShareLink(token)
	if !ok {
		return nil, ErrBoardNotFound
	}

	role := link.Permissions.Role()
	if err := a.check(role, action); err != nil {
		return nil, err
	}
	return &BoardAccess{Board: board, Role: role}, nil
}

func (a *AccessService) check(role models.BoardRole, action authz.Action) error {
	allowed, err := a.Enforcer.Allowed(role, action)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrAccessDenied
	}
	return nil
}
