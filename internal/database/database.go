package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/canvasboard/backend/internal/config"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	UsersCollection     = "users"
	BoardsCollection    = "boards"
	SessionsCollection  = "sessions"
	AuditLogsCollection = "audit_logs"
)

// Collections lists every collection the application owns.
var Collections = []string{UsersCollection, BoardsCollection, SessionsCollection, AuditLogsCollection}

func Connect(ctx context.Context, cfg config.DatabaseConfig) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName("whiteboard").
		SetConnectTimeout(cfg.ConnectTimeout).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// EnsureCollections creates any missing application collection.
func EnsureCollections(ctx context.Context, db *mongo.Database) ([]string, error) {
	existing, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}

	var created []string
	for _, name := range Collections {
		if have[name] {
			continue
		}
		if err := db.CreateCollection(ctx, name); err != nil {
			var cmdErr mongo.CommandError
			if errors.As(err, &cmdErr) && cmdErr.Code == codeNamespaceExists {
				continue
			}
			return created, fmt.Errorf("create collection %s: %w", name, err)
		}
		created = append(created, name)
	}
	return created, nil
}

const (
	codeNamespaceExists = 48
	codeUserExists      = 51003
)

// EnsureAppUser creates a readWrite user on db. It reports false when the
// user already exists.
func EnsureAppUser(ctx context.Context, db *mongo.Database, user, password string) (bool, error) {
	if user == "" || password == "" {
		return false, errors.New("app user and password are required")
	}

	cmd := bson.D{
		{Key: "createUser", Value: user},
		{Key: "pwd", Value: password},
		{Key: "roles", Value: bson.A{
			bson.D{{Key: "role", Value: "readWrite"}, {Key: "db", Value: db.Name()}},
		}},
	}
	if err := db.RunCommand(ctx, cmd).Err(); err != nil {
		var cmdErr mongo.CommandError
		if errors.As(err, &cmdErr) && cmdErr.Code == codeUserExists {
			return false, nil
		}
		return false, fmt.Errorf("create user %s: %w", user, err)
	}
	return true, nil
}
