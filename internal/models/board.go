package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

type BoardSettings struct {
	IsPublic      bool  `bson:"isPublic" json:"isPublic"`
	AllowComments bool  `bson:"allowComments" json:"allowComments"`
	Theme         Theme `bson:"theme" json:"theme"`
}

func DefaultBoardSettings() BoardSettings {
	return BoardSettings{IsPublic: false, AllowComments: true, Theme: ThemeLight}
}

type Collaborator struct {
	User     bson.ObjectID `bson:"user" json:"user"`
	Role     BoardRole     `bson:"role" json:"role"`
	AddedBy  bson.ObjectID `bson:"addedBy" json:"addedBy"`
	JoinedAt time.Time     `bson:"joinedAt" json:"joinedAt"`
}

type ShareLinkPermission string

const (
	ShareLinkView ShareLinkPermission = "view"
	ShareLinkEdit ShareLinkPermission = "edit"
)

func (p ShareLinkPermission) Valid() bool {
	return p == ShareLinkView || p == ShareLinkEdit
}

// Role is the board role granted to whoever presents the link.
func (p ShareLinkPermission) Role() BoardRole {
	if p == ShareLinkEdit {
		return RoleEditor
	}
	return RoleViewer
}

type ShareLink struct {
	Token       string              `bson:"token" json:"token"`
	Permissions ShareLinkPermission `bson:"permissions" json:"permissions"`
	CreatedBy   bson.ObjectID       `bson:"createdBy" json:"createdBy"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
}

type Board struct {
	ID             bson.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title          string         `bson:"title" json:"title"`
	Description    string         `bson:"description" json:"description"`
	Owner          bson.ObjectID  `bson:"owner" json:"owner"`
	Settings       BoardSettings  `bson:"settings" json:"settings"`
	Collaborators  []Collaborator `bson:"collaborators" json:"collaborators"`
	Elements       []Element      `bson:"elements" json:"elements"`
	ShareLinks     []ShareLink    `bson:"shareLinks,omitempty" json:"shareLinks,omitempty"`
	CreatedAt      time.Time      `bson:"createdAt" json:"createdAt"`
	LastModified   time.Time      `bson:"lastModified" json:"lastModified"`
	LastModifiedBy bson.ObjectID  `bson:"lastModifiedBy" json:"lastModifiedBy"`
}

func (b *Board) IsOwner(userID bson.ObjectID) bool {
	return b.Owner == userID
}

// CollaboratorIndex returns the position of userID in Collaborators or -1.
func (b *Board) CollaboratorIndex(userID bson.ObjectID) int {
	for i := range b.Collaborators {
		if b.Collaborators[i].User == userID {
			return i
		}
	}
	return -1
}

// RoleOf reports the explicit role userID holds on the board. Public
// visibility is not taken into account.
func (b *Board) RoleOf(userID bson.ObjectID) (BoardRole, bool) {
	if b.IsOwner(userID) {
		return RoleOwner, true
	}
	if i := b.CollaboratorIndex(userID); i >= 0 {
		return b.Collaborators[i].Role, true
	}
	return "", false
}

func (b *Board) ShareLink(token string) (*ShareLink, bool) {
	for i := range b.ShareLinks {
		if b.ShareLinks[i].Token == token {
			return &b.ShareLinks[i], true
		}
	}
	return nil, false
}

func (b *Board) Touch(actor bson.ObjectID, now time.Time) {
	b.LastModified = now
	b.LastModifiedBy = actor
}
