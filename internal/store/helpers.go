package store

import (
	"strings"

	"github.com/canvasboard/backend/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func toLowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type userIndex struct {
	boards         []bson.ObjectID
	collaborations []models.Collaboration
}

// deriveUserIndexes computes the user-side mirror of a set of boards.
func deriveUserIndexes(boards []models.Board) map[bson.ObjectID]*userIndex {
	out := make(map[bson.ObjectID]*userIndex)
	get := func(id bson.ObjectID) *userIndex {
		idx, ok := out[id]
		if !ok {
			idx = &userIndex{boards: []bson.ObjectID{}, collaborations: []models.Collaboration{}}
			out[id] = idx
		}
		return idx
	}

	for _, b := range boards {
		get(b.Owner).boards = append(get(b.Owner).boards, b.ID)
		for _, c := range b.Collaborators {
			if c.User == b.Owner {
				continue
			}
			idx := get(c.User)
			idx.collaborations = append(idx.collaborations, models.Collaboration{
				BoardID:  b.ID,
				Role:     c.Role,
				JoinedAt: c.JoinedAt,
			})
		}
	}
	return out
}
