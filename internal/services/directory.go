package services

import (
	"context"

	"github.com/canvasboard/backend/internal/models"
	"github.com/canvasboard/backend/internal/store"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// LoadDirectory fetches the users behind ids in one query.
func LoadDirectory(ctx context.Context, users store.UserStore, ids []bson.ObjectID) (models.UserDirectory, error) {
	wanted := make([]bson.ObjectID, 0, len(ids))
	for _, id := range ids {
		if !id.IsZero() {
			wanted = append(wanted, id)
		}
	}

	found, err := users.GetUsers(ctx, wanted)
	if err != nil {
		return nil, err
	}
	dir := make(models.UserDirectory, len(found))
	for i := range found {
		dir[found[i].ID] = &found[i]
	}
	return dir, nil
}

// PopulateBoard renders a board with its owner, collaborators and, when
// opts.Elements is set, element creators resolved.
func PopulateBoard(ctx context.Context, users store.UserStore, board *models.Board, opts models.ViewOptions) (*models.BoardView, error) {
	dir, err := LoadDirectory(ctx, users, board.ReferencedUsers(opts.Elements))
	if err != nil {
		return nil, err
	}
	return models.NewBoardView(board, dir, opts), nil
}

// PopulateBoards renders a page of boards with a single user lookup.
func PopulateBoards(ctx context.Context, users store.UserStore, boards []models.Board) ([]*models.BoardView, error) {
	var ids []bson.ObjectID
	for i := range boards {
		ids = append(ids, boards[i].ReferencedUsers(false)...)
	}
	dir, err := LoadDirectory(ctx, users, ids)
	if err != nil {
		return nil, err
	}

	views := make([]*models.BoardView, 0, len(boards))
	for i := range boards {
		views = append(views, models.NewBoardView(&boards[i], dir, models.ViewOptions{}))
	}
	return views, nil
}
