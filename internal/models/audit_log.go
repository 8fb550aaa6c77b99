package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// AuditLog is an append-only record of a mutating board operation.
type AuditLog struct {
	ID        bson.ObjectID          `bson:"_id,omitempty" json:"id"`
	UserID    *bson.ObjectID         `bson:"userId,omitempty" json:"userId,omitempty"`
	Action    string                 `bson:"action" json:"action"`
	BoardID   *bson.ObjectID         `bson:"boardId,omitempty" json:"boardId,omitempty"`
	Details   map[string]interface{} `bson:"details,omitempty" json:"details,omitempty"`
	IPAddress string                 `bson:"ipAddress" json:"ipAddress"`
	RequestID string                 `bson:"requestId,omitempty" json:"requestId,omitempty"`
	CreatedAt time.Time              `bson:"createdAt" json:"createdAt"`
}
