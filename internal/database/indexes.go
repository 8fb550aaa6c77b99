package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// IndexSpec is a named index on one collection.
type IndexSpec struct {
	Collection string
	Model      mongo.IndexModel
}

func Indexes() []IndexSpec {
	return []IndexSpec{
		{UsersCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_unique").SetUnique(true),
		}},
		{UsersCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "googleId", Value: 1}},
			Options: options.Index().SetName("googleId_unique").SetUnique(true).SetSparse(true),
		}},
		{BoardsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "owner", Value: 1}},
			Options: options.Index().SetName("owner"),
		}},
		{BoardsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "collaborators.user", Value: 1}},
			Options: options.Index().SetName("collaborators_user"),
		}},
		{BoardsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "shareLinks.token", Value: 1}},
			Options: options.Index().SetName("shareLinks_token").SetSparse(true),
		}},
		{BoardsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("createdAt_desc"),
		}},
		{BoardsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "lastModified", Value: -1}},
			Options: options.Index().SetName("lastModified_desc"),
		}},
		{SessionsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "expires", Value: 1}},
			Options: options.Index().SetName("expires_ttl").SetExpireAfterSeconds(0),
		}},
		{SessionsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetName("userId"),
		}},
		{AuditLogsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "boardId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("boardId_createdAt"),
		}},
	}
}

// EnsureIndexes creates every declared index. Creating an index that already
// exists with the same options is a no-op on the server.
func EnsureIndexes(ctx context.Context, db *mongo.Database) (int, error) {
	byCollection := make(map[string][]mongo.IndexModel)
	var order []string
	for _, idx := range Indexes() {
		if _, ok := byCollection[idx.Collection]; !ok {
			order = append(order, idx.Collection)
		}
		byCollection[idx.Collection] = append(byCollection[idx.Collection], idx.Model)
	}

	total := 0
	for _, name := range order {
		names, err := db.Collection(name).Indexes().CreateMany(ctx, byCollection[name])
		if err != nil {
			return total, fmt.Errorf("create indexes on %s: %w", name, err)
		}
		total += len(names)
	}
	return total, nil
}
