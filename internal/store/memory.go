package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/canvasboard/backend/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// MemoryStore keeps everything in process. It backs the handler tests and the
// "memory" database driver used for local development.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[bson.ObjectID]*models.User
	boards   map[bson.ObjectID]*models.Board
	sessions map[string]*models.Session
	audit    []models.AuditLog
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[bson.ObjectID]*models.User),
		boards:   make(map[bson.ObjectID]*models.Board),
		sessions: make(map[string]*models.Session),
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Close(context.Context) error {
	return nil
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Boards = append([]bson.ObjectID{}, u.Boards...)
	c.Collaborations = append([]models.Collaboration{}, u.Collaborations...)
	return &c
}

func cloneBoard(b *models.Board) *models.Board {
	c := *b
	c.Collaborators = append([]models.Collaborator{}, b.Collaborators...)
	c.ShareLinks = append([]models.ShareLink(nil), b.ShareLinks...)
	c.Elements = make([]models.Element, len(b.Elements))
	for i, e := range b.Elements {
		if e.Payload != nil {
			payload := make(map[string]interface{}, len(e.Payload))
			for k, v := range e.Payload {
				payload[k] = v
			}
			e.Payload = payload
		}
		e.Creator = nil
		c.Elements[i] = e
	}
	return &c
}

// Users

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Email = NormalizeEmail(user.Email)
	for _, u := range s.users {
		if u.Email == user.Email || (user.GoogleID != "" && u.GoogleID == user.GoogleID) {
			return ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}
	if user.Boards == nil {
		user.Boards = []bson.ObjectID{}
	}
	if user.Collaborations == nil {
		user.Collaborations = []models.Collaboration{}
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id bson.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = NormalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetUserByGoogleID(_ context.Context, googleID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if googleID != "" && u.GoogleID == googleID {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) LinkGoogleAccount(_ context.Context, userID bson.ObjectID, googleID, avatar string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range s.users {
		if id != userID && other.GoogleID == googleID {
			return ErrDuplicate
		}
	}
	u.GoogleID = googleID
	if u.Avatar == "" {
		u.Avatar = avatar
	}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) GetUsers(_ context.Context, ids []bson.ObjectID) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.User, 0, len(ids))
	seen := make(map[bson.ObjectID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if u, ok := s.users[id]; ok {
			out = append(out, *cloneUser(u))
		}
	}
	return out, nil
}

// Boards

func (s *MemoryStore) CreateBoard(_ context.Context, board *models.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.users[board.Owner]
	if !ok {
		return ErrNotFound
	}
	if board.ID.IsZero() {
		board.ID = bson.NewObjectID()
	}
	if board.Collaborators == nil {
		board.Collaborators = []models.Collaborator{}
	}
	if board.Elements == nil {
		board.Elements = []models.Element{}
	}
	s.boards[board.ID] = cloneBoard(board)
	owner.Boards = append(owner.Boards, board.ID)
	return nil
}

func (s *MemoryStore) GetBoard(_ context.Context, id bson.ObjectID) (*models.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boards[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBoard(b), nil
}

func (s *MemoryStore) GetBoardByShareToken(_ context.Context, token string) (*models.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if token == "" {
		return nil, ErrNotFound
	}
	for _, b := range s.boards {
		if _, ok := b.ShareLink(token); ok {
			return cloneBoard(b), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) listBoards(match func(*models.Board) bool, offset, limit int) BoardPage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Board
	for _, b := range s.boards {
		if match(b) {
			matched = append(matched, b)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].LastModified.Equal(matched[j].LastModified) {
			return matched[i].LastModified.After(matched[j].LastModified)
		}
		return matched[i].ID.Hex() > matched[j].ID.Hex()
	})

	page := BoardPage{Boards: []models.Board{}, Total: int64(len(matched))}
	if offset < 0 || offset >= len(matched) {
		return page
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	for _, b := range matched[offset:end] {
		page.Boards = append(page.Boards, *cloneBoard(b))
	}
	return page
}

func (s *MemoryStore) ListOwnedBoards(_ context.Context, userID bson.ObjectID, offset, limit int) (BoardPage, error) {
	return s.listBoards(func(b *models.Board) bool { return b.Owner == userID }, offset, limit), nil
}

func (s *MemoryStore) ListCollaborativeBoards(_ context.Context, userID bson.ObjectID, offset, limit int) (BoardPage, error) {
	return s.listBoards(func(b *models.Board) bool { return b.CollaboratorIndex(userID) >= 0 }, offset, limit), nil
}

func (s *MemoryStore) UpdateBoardDetails(_ context.Context, board *models.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.boards[board.ID]
	if !ok {
		return ErrNotFound
	}
	b.Title = board.Title
	b.Description = board.Description
	b.Settings = board.Settings
	b.LastModified = board.LastModified
	b.LastModifiedBy = board.LastModifiedBy
	return nil
}

func (s *MemoryStore) ReplaceElements(_ context.Context, boardID bson.ObjectID, elements []models.Element, actor bson.ObjectID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.boards[boardID]
	if !ok {
		return ErrNotFound
	}
	replaced := cloneBoard(&models.Board{Elements: elements})
	b.Elements = replaced.Elements
	b.Touch(actor, now)
	return nil
}

func (s *MemoryStore) DeleteBoard(_ context.Context, boardID bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.boards[boardID]; !ok {
		return ErrNotFound
	}
	delete(s.boards, boardID)
	for _, u := range s.users {
		u.Boards = removeID(u.Boards, boardID)
		u.Collaborations = removeCollaboration(u.Collaborations, boardID)
	}
	return nil
}

func (s *MemoryStore) UpsertCollaborator(_ context.Context, boardID bson.ObjectID, collaborator models.Collaborator, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.boards[boardID]
	if !ok {
		return ErrNotFound
	}
	u, ok := s.users[collaborator.User]
	if !ok {
		return ErrNotFound
	}

	if i := b.CollaboratorIndex(collaborator.User); i >= 0 {
		b.Collaborators[i].Role = collaborator.Role
	} else {
		b.Collaborators = append(b.Collaborators, collaborator)
	}
	b.Touch(collaborator.AddedBy, now)

	updated := false
	for i := range u.Collaborations {
		if u.Collaborations[i].BoardID == boardID {
			u.Collaborations[i].Role = collaborator.Role
			updated = true
		}
	}
	if !updated {
		u.Collaborations = append(u.Collaborations, models.Collaboration{
			BoardID:  boardID,
			Role:     collaborator.Role,
			JoinedAt: collaborator.JoinedAt,
		})
	}
	return nil
}

func (s *MemoryStore) RemoveCollaborator(_ context.Context, boardID, userID, actor bson.ObjectID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.boards[boardID]
	if !ok {
		return ErrNotFound
	}
	kept := b.Collaborators[:0]
	for _, c := range b.Collaborators {
		if c.User != userID {
			kept = append(kept, c)
		}
	}
	b.Collaborators = kept
	b.Touch(actor, now)

	if u, ok := s.users[userID]; ok {
		u.Collaborations = removeCollaboration(u.Collaborations, boardID)
	}
	return nil
}

func (s *MemoryStore) AddShareLink(_ context.Context, boardID bson.ObjectID, link models.ShareLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.boards[boardID]
	if !ok {
		return ErrNotFound
	}
	b.ShareLinks = append(b.ShareLinks, link)
	b.Touch(link.CreatedBy, link.CreatedAt)
	return nil
}

func (s *MemoryStore) RemoveShareLink(_ context.Context, boardID bson.ObjectID, token string, actor bson.ObjectID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.boards[boardID]
	if !ok {
		return ErrNotFound
	}
	for i := range b.ShareLinks {
		if b.ShareLinks[i].Token == token {
			b.ShareLinks = append(b.ShareLinks[:i], b.ShareLinks[i+1:]...)
			b.Touch(actor, now)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) RebuildUserIndexes(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	boards := make([]models.Board, 0, len(s.boards))
	for _, b := range s.boards {
		boards = append(boards, *b)
	}
	sort.Slice(boards, func(i, j int) bool { return boards[i].CreatedAt.Before(boards[j].CreatedAt) })
	derived := deriveUserIndexes(boards)

	for id, u := range s.users {
		idx, ok := derived[id]
		if !ok {
			idx = &userIndex{boards: []bson.ObjectID{}, collaborations: []models.Collaboration{}}
		}
		u.Boards = idx.boards
		u.Collaborations = idx.collaborations
	}
	return len(s.users), nil
}

// Sessions

func (s *MemoryStore) CreateSession(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; ok {
		return ErrDuplicate
	}
	c := *session
	s.sessions[session.ID] = &c
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, id string, now time.Time) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok || sess.Expired(now) {
		return nil, ErrNotFound
	}
	c := *sess
	return &c, nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// Audit

func (s *MemoryStore) InsertAuditLog(_ context.Context, entry *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID.IsZero() {
		entry.ID = bson.NewObjectID()
	}
	s.audit = append(s.audit, *entry)
	return nil
}

func (s *MemoryStore) ListAuditLogs(_ context.Context, boardID bson.ObjectID, offset, limit int) ([]models.AuditLog, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.AuditLog
	for i := len(s.audit) - 1; i >= 0; i-- {
		e := s.audit[i]
		if e.BoardID != nil && *e.BoardID == boardID {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	if offset < 0 || offset >= len(matched) {
		return []models.AuditLog{}, total, nil
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}

func removeID(ids []bson.ObjectID, id bson.ObjectID) []bson.ObjectID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func removeCollaboration(list []models.Collaboration, boardID bson.ObjectID) []models.Collaboration {
	out := list[:0]
	for _, c := range list {
		if c.BoardID != boardID {
			out = append(out, c)
		}
	}
	return out
}
