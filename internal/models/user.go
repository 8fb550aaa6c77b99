package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Collaboration mirrors a Collaborator entry on the user side.
type Collaboration struct {
	BoardID  bson.ObjectID `bson:"boardId" json:"boardId"`
	Role     BoardRole     `bson:"role" json:"role"`
	JoinedAt time.Time     `bson:"joinedAt" json:"joinedAt"`
}

type User struct {
	ID             bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	Email          string          `bson:"email" json:"email"`
	Name           string          `bson:"name" json:"name"`
	Avatar         string          `bson:"avatar,omitempty" json:"avatar,omitempty"`
	PasswordHash   string          `bson:"passwordHash,omitempty" json:"-"`
	GoogleID       string          `bson:"googleId,omitempty" json:"-"`
	Boards         []bson.ObjectID `bson:"boards" json:"boards"`
	Collaborations []Collaboration `bson:"collaborations" json:"collaborations"`
	CreatedAt      time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// UserSummary is the subset of a user embedded in board responses.
type UserSummary struct {
	ID     bson.ObjectID `json:"id"`
	Name   string        `json:"name"`
	Email  string        `json:"email"`
	Avatar string        `json:"avatar,omitempty"`
}

func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar}
}
