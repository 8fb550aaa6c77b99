package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type CollaboratorView struct {
	User     *UserSummary `json:"user"`
	Role     BoardRole    `json:"role"`
	AddedBy  *UserSummary `json:"addedBy,omitempty"`
	JoinedAt time.Time    `json:"joinedAt"`
}

// BoardView is a board with its user references resolved to display fields.
type BoardView struct {
	ID             bson.ObjectID      `json:"id"`
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	Owner          *UserSummary       `json:"owner"`
	Settings       BoardSettings      `json:"settings"`
	Collaborators  []CollaboratorView `json:"collaborators"`
	Elements       []Element          `json:"elements"`
	ShareLinks     []ShareLink        `json:"shareLinks,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	LastModified   time.Time          `json:"lastModified"`
	LastModifiedBy *UserSummary       `json:"lastModifiedBy,omitempty"`
}

// UserDirectory resolves user ids to summaries; unknown ids yield an
// id-only summary.
type UserDirectory map[bson.ObjectID]*User

func (d UserDirectory) Summary(id bson.ObjectID) *UserSummary {
	if id.IsZero() {
		return nil
	}
	if u, ok := d[id]; ok && u != nil {
		return u.Summary()
	}
	return &UserSummary{ID: id}
}

type ViewOptions struct {
	// Elements resolves element creators; without it createdBy stays an id.
	Elements   bool
	ShareLinks bool
}

func NewBoardView(b *Board, users UserDirectory, opts ViewOptions) *BoardView {
	view := &BoardView{
		ID:             b.ID,
		Title:          b.Title,
		Description:    b.Description,
		Owner:          users.Summary(b.Owner),
		Settings:       b.Settings,
		Collaborators:  CollaboratorViews(b.Collaborators, users),
		CreatedAt:      b.CreatedAt,
		LastModified:   b.LastModified,
		LastModifiedBy: users.Summary(b.LastModifiedBy),
	}
	if opts.Elements {
		view.Elements = ElementsWithCreators(b.Elements, users)
	} else {
		view.Elements = append([]Element{}, b.Elements...)
	}
	if opts.ShareLinks {
		view.ShareLinks = b.ShareLinks
	}
	return view
}

func CollaboratorViews(collaborators []Collaborator, users UserDirectory) []CollaboratorView {
	views := make([]CollaboratorView, 0, len(collaborators))
	for _, c := range collaborators {
		views = append(views, CollaboratorView{
			User:     users.Summary(c.User),
			Role:     c.Role,
			AddedBy:  users.Summary(c.AddedBy),
			JoinedAt: c.JoinedAt,
		})
	}
	return views
}

func ElementsWithCreators(elements []Element, users UserDirectory) []Element {
	out := make([]Element, len(elements))
	for i, e := range elements {
		if e.CreatedBy != nil {
			e.Creator = users.Summary(*e.CreatedBy)
		}
		out[i] = e
	}
	return out
}

// ReferencedUsers lists every user id a board view needs.
func (b *Board) ReferencedUsers(withElements bool) []bson.ObjectID {
	ids := []bson.ObjectID{b.Owner, b.LastModifiedBy}
	for _, c := range b.Collaborators {
		ids = append(ids, c.User, c.AddedBy)
	}
	if withElements {
		for _, e := range b.Elements {
			if e.CreatedBy != nil {
				ids = append(ids, *e.CreatedBy)
			}
		}
	}
	return ids
}
