package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Session backs an issued token. Documents are removed by the TTL index on
// expires; readers must still treat an expired document as absent.
type Session struct {
	ID        string        `bson:"_id" json:"id"`
	UserID    bson.ObjectID `bson:"userId" json:"userId"`
	IPAddress string        `bson:"ipAddress,omitempty" json:"ipAddress,omitempty"`
	UserAgent string        `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
	Expires   time.Time     `bson:"expires" json:"expires"`
}

func (s *Session) Expired(now time.Time) bool {
	return !s.Expires.After(now)
}
