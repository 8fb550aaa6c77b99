package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/canvasboard/backend/internal/database"
	"github.com/canvasboard/backend/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

type MongoStore struct {
	client       *mongo.Client
	db           *mongo.Database
	users        *mongo.Collection
	boards       *mongo.Collection
	sessions     *mongo.Collection
	auditLogs    *mongo.Collection
	transactions bool
}

// NewMongoStore wraps a connected client. With transactions enabled every
// cascade runs in a multi-document transaction, which needs a replica set.
func NewMongoStore(client *mongo.Client, dbName string, transactions bool) *MongoStore {
	db := client.Database(dbName)
	return &MongoStore{
		client:       client,
		db:           db,
		users:        db.Collection(database.UsersCollection),
		boards:       db.Collection(database.BoardsCollection),
		sessions:     db.Collection(database.SessionsCollection),
		auditLogs:    db.Collection(database.AuditLogsCollection),
		transactions: transactions,
	}
}

func (s *MongoStore) Database() *mongo.Database {
	return s.db
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// unitOfWork runs fn inside a transaction when enabled. Without transactions
// the steps run in order; callers write the board side first.
func (s *MongoStore) unitOfWork(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions {
		return fn(ctx)
	}
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(txCtx context.Context) (interface{}, error) {
		return nil, fn(txCtx)
	})
	return err
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return err
	}
}

// Users

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = NormalizeEmail(user.Email)
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}
	if user.Boards == nil {
		user.Boards = []bson.ObjectID{}
	}
	if user.Collaborations == nil {
		user.Collaborations = []models.Collaboration{}
	}
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		return translate(err)
	}
	return nil
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := s.users.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *MongoStore) GetUser(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": NormalizeEmail(email)})
}

func (s *MongoStore) GetUserByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	if googleID == "" {
		return nil, ErrNotFound
	}
	return s.findUser(ctx, bson.M{"googleId": googleID})
}

func (s *MongoStore) LinkGoogleAccount(ctx context.Context, userID bson.ObjectID, googleID, avatar string) error {
	set := bson.M{"googleId": googleID, "updatedAt": time.Now().UTC()}
	filter := bson.M{"_id": userID}
	res, err := s.users.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	if avatar != "" {
		_, err = s.users.UpdateOne(ctx,
			bson.M{"_id": userID, "$or": bson.A{bson.M{"avatar": ""}, bson.M{"avatar": bson.M{"$exists": false}}}},
			bson.M{"$set": bson.M{"avatar": avatar}},
		)
	}
	return translate(err)
}

func (s *MongoStore) GetUsers(ctx context.Context, ids []bson.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	cursor, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"passwordHash": 0}))
	if err != nil {
		return nil, err
	}
	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Boards

func (s *MongoStore) CreateBoard(ctx context.Context, board *models.Board) error {
	if board.ID.IsZero() {
		board.ID = bson.NewObjectID()
	}
	if board.Collaborators == nil {
		board.Collaborators = []models.Collaborator{}
	}
	if board.Elements == nil {
		board.Elements = []models.Element{}
	}

	return s.unitOfWork(ctx, func(ctx context.Context) error {
		if _, err := s.boards.InsertOne(ctx, board); err != nil {
			return fmt.Errorf("insert board: %w", translate(err))
		}
		res, err := s.users.UpdateOne(ctx,
			bson.M{"_id": board.Owner},
			bson.M{"$push": bson.M{"boards": board.ID}},
		)
		if err != nil {
			return fmt.Errorf("link board to owner: %w", err)
		}
		if res.MatchedCount == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *MongoStore) findBoard(ctx context.Context, filter bson.M) (*models.Board, error) {
	var board models.Board
	if err := s.boards.FindOne(ctx, filter).Decode(&board); err != nil {
		return nil, translate(err)
	}
	return &board, nil
}

func (s *MongoStore) GetBoard(ctx context.Context, id bson.ObjectID) (*models.Board, error) {
	return s.findBoard(ctx, bson.M{"_id": id})
}

func (s *MongoStore) GetBoardByShareToken(ctx context.Context, token string) (*models.Board, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return s.findBoard(ctx, bson.M{"shareLinks.token": token})
}

func (s *MongoStore) listBoards(ctx context.Context, filter bson.M, offset, limit int) (BoardPage, error) {
	total, err := s.boards.CountDocuments(ctx, filter)
	if err != nil {
		return BoardPage{}, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "lastModified", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(max(offset, 0)))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.boards.Find(ctx, filter, opts)
	if err != nil {
		return BoardPage{}, err
	}
	boards := []models.Board{}
	if err := cursor.All(ctx, &boards); err != nil {
		return BoardPage{}, err
	}
	return BoardPage{Boards: boards, Total: total}, nil
}

func (s *MongoStore) ListOwnedBoards(ctx context.Context, userID bson.ObjectID, offset, limit int) (BoardPage, error) {
	return s.listBoards(ctx, bson.M{"owner": userID}, offset, limit)
}

func (s *MongoStore) ListCollaborativeBoards(ctx context.Context, userID bson.ObjectID, offset, limit int) (BoardPage, error) {
	return s.listBoards(ctx, bson.M{"collaborators.user": userID}, offset, limit)
}

func (s *MongoStore) updateBoard(ctx context.Context, filter bson.M, update bson.M) error {
	res, err := s.boards.UpdateOne(ctx, filter, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) UpdateBoardDetails(ctx context.Context, board *models.Board) error {
	return s.updateBoard(ctx, bson.M{"_id": board.ID}, bson.M{"$set": bson.M{
		"title":          board.Title,
		"description":    board.Description,
		"settings":       board.Settings,
		"lastModified":   board.LastModified,
		"lastModifiedBy": board.LastModifiedBy,
	}})
}

func (s *MongoStore) ReplaceElements(ctx context.Context, boardID bson.ObjectID, elements []models.Element, actor bson.ObjectID, now time.Time) error {
	if elements == nil {
		elements = []models.Element{}
	}
	return s.updateBoard(ctx, bson.M{"_id": boardID}, bson.M{"$set": bson.M{
		"elements":       elements,
		"lastModified":   now,
		"lastModifiedBy": actor,
	}})
}

func (s *MongoStore) DeleteBoard(ctx context.Context, boardID bson.ObjectID) error {
	return s.unitOfWork(ctx, func(ctx context.Context) error {
		res, err := s.boards.DeleteOne(ctx, bson.M{"_id": boardID})
		if err != nil {
			return fmt.Errorf("delete board: %w", err)
		}
		if res.DeletedCount == 0 {
			return ErrNotFound
		}
		if _, err := s.users.UpdateMany(ctx,
			bson.M{"boards": boardID},
			bson.M{"$pull": bson.M{"boards": boardID}},
		); err != nil {
			return fmt.Errorf("unlink owned board: %w", err)
		}
		if _, err := s.users.UpdateMany(ctx,
			bson.M{"collaborations.boardId": boardID},
			bson.M{"$pull": bson.M{"collaborations": bson.M{"boardId": boardID}}},
		); err != nil {
			return fmt.Errorf("unlink collaborations: %w", err)
		}
		return nil
	})
}

func (s *MongoStore) UpsertCollaborator(ctx context.Context, boardID bson.ObjectID, collaborator models.Collaborator, now time.Time) error {
	userID := collaborator.User
	touch := bson.M{"lastModified": now, "lastModifiedBy": collaborator.AddedBy}

	return s.unitOfWork(ctx, func(ctx context.Context) error {
		setRole := bson.M{"collaborators.$.role": collaborator.Role}
		for k, v := range touch {
			setRole[k] = v
		}
		res, err := s.boards.UpdateOne(ctx,
			bson.M{"_id": boardID, "collaborators.user": userID},
			bson.M{"$set": setRole},
		)
		if err != nil {
			return fmt.Errorf("update collaborator role: %w", err)
		}
		if res.MatchedCount == 0 {
			err = s.updateBoard(ctx,
				bson.M{"_id": boardID, "collaborators.user": bson.M{"$ne": userID}},
				bson.M{"$push": bson.M{"collaborators": collaborator}, "$set": touch},
			)
			if err != nil {
				return fmt.Errorf("add collaborator: %w", err)
			}
		}

		res, err = s.users.UpdateOne(ctx,
			bson.M{"_id": userID, "collaborations.boardId": boardID},
			bson.M{"$set": bson.M{"collaborations.$.role": collaborator.Role}},
		)
		if err != nil {
			return fmt.Errorf("update collaboration role: %w", err)
		}
		if res.MatchedCount > 0 {
			return nil
		}
		res, err = s.users.UpdateOne(ctx,
			bson.M{"_id": userID},
			bson.M{"$push": bson.M{"collaborations": models.Collaboration{
				BoardID:  boardID,
				Role:     collaborator.Role,
				JoinedAt: collaborator.JoinedAt,
			}}},
		)
		if err != nil {
			return fmt.Errorf("add collaboration: %w", err)
		}
		if res.MatchedCount == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *MongoStore) RemoveCollaborator(ctx context.Context, boardID, userID, actor bson.ObjectID, now time.Time) error {
	return s.unitOfWork(ctx, func(ctx context.Context) error {
		err := s.updateBoard(ctx, bson.M{"_id": boardID}, bson.M{
			"$pull": bson.M{"collaborators": bson.M{"user": userID}},
			"$set":  bson.M{"lastModified": now, "lastModifiedBy": actor},
		})
		if err != nil {
			return err
		}
		if _, err := s.users.UpdateOne(ctx,
			bson.M{"_id": userID},
			bson.M{"$pull": bson.M{"collaborations": bson.M{"boardId": boardID}}},
		); err != nil {
			return fmt.Errorf("remove collaboration: %w", err)
		}
		return nil
	})
}

func (s *MongoStore) AddShareLink(ctx context.Context, boardID bson.ObjectID, link models.ShareLink) error {
	return s.updateBoard(ctx, bson.M{"_id": boardID}, bson.M{
		"$push": bson.M{"shareLinks": link},
		"$set":  bson.M{"lastModified": link.CreatedAt, "lastModifiedBy": link.CreatedBy},
	})
}

func (s *MongoStore) RemoveShareLink(ctx context.Context, boardID bson.ObjectID, token string, actor bson.ObjectID, now time.Time) error {
	return s.updateBoard(ctx, bson.M{"_id": boardID, "shareLinks.token": token}, bson.M{
		"$pull": bson.M{"shareLinks": bson.M{"token": token}},
		"$set":  bson.M{"lastModified": now, "lastModifiedBy": actor},
	})
}

func (s *MongoStore) RebuildUserIndexes(ctx context.Context) (int, error) {
	cursor, err := s.boards.Find(ctx, bson.M{},
		options.Find().
			SetProjection(bson.M{"owner": 1, "collaborators": 1, "createdAt": 1}).
			SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return 0, fmt.Errorf("scan boards: %w", err)
	}
	var boards []models.Board
	if err := cursor.All(ctx, &boards); err != nil {
		return 0, fmt.Errorf("scan boards: %w", err)
	}
	derived := deriveUserIndexes(boards)

	userCursor, err := s.users.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return 0, fmt.Errorf("scan users: %w", err)
	}
	defer userCursor.Close(ctx)

	updated := 0
	for userCursor.Next(ctx) {
		var u struct {
			ID bson.ObjectID `bson:"_id"`
		}
		if err := userCursor.Decode(&u); err != nil {
			return updated, fmt.Errorf("decode user: %w", err)
		}
		idx, ok := derived[u.ID]
		if !ok {
			idx = &userIndex{boards: []bson.ObjectID{}, collaborations: []models.Collaboration{}}
		}
		if _, err := s.users.UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$set": bson.M{
			"boards":         idx.boards,
			"collaborations": idx.collaborations,
		}}); err != nil {
			return updated, fmt.Errorf("rewrite user %s: %w", u.ID.Hex(), err)
		}
		updated++
	}
	if err := userCursor.Err(); err != nil {
		return updated, fmt.Errorf("scan users: %w", err)
	}
	return updated, nil
}

// Sessions

func (s *MongoStore) CreateSession(ctx context.Context, session *models.Session) error {
	_, err := s.sessions.InsertOne(ctx, session)
	return translate(err)
}

func (s *MongoStore) GetSession(ctx context.Context, id string, now time.Time) (*models.Session, error) {
	var session models.Session
	err := s.sessions.FindOne(ctx, bson.M{"_id": id, "expires": bson.M{"$gt": now}}).Decode(&session)
	if err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

func (s *MongoStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.sessions.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// Audit

func (s *MongoStore) InsertAuditLog(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID.IsZero() {
		entry.ID = bson.NewObjectID()
	}
	_, err := s.auditLogs.InsertOne(ctx, entry)
	return err
}

func (s *MongoStore) ListAuditLogs(ctx context.Context, boardID bson.ObjectID, offset, limit int) ([]models.AuditLog, int64, error) {
	filter := bson.M{"boardId": boardID}
	total, err := s.auditLogs.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(max(offset, 0)))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.auditLogs.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	entries := []models.AuditLog{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

var (
	_ Store = (*MongoStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
