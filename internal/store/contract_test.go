package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/canvasboard/backend/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// runStoreContract exercises behavior every Store implementation must share.
// corrupt wipes a user's derived board indexes the way a half-applied
// cascade would leave them.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store, corrupt func(s Store) func(*testing.T, bson.ObjectID)) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("board cascades", func(t *testing.T) { testBoardCascades(t, newStore(t)) })
	t.Run("collaborator upsert", func(t *testing.T) { testCollaboratorUpsert(t, newStore(t)) })
	t.Run("listing", func(t *testing.T) { testListing(t, newStore(t)) })
	t.Run("share links", func(t *testing.T) { testShareLinks(t, newStore(t)) })
	t.Run("sessions", func(t *testing.T) { testSessions(t, newStore(t)) })
	t.Run("audit", func(t *testing.T) { testAudit(t, newStore(t)) })
	t.Run("repair", func(t *testing.T) {
		s := newStore(t)
		testRepair(t, s, corrupt(s))
	})
}

func mustCreateUser(t *testing.T, s Store, email string) *models.User {
	t.Helper()
	now := time.Now().UTC()
	u := &models.User{Email: email, Name: email, CreatedAt: now, UpdatedAt: now}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%s) error = %v", email, err)
	}
	return u
}

func mustCreateBoard(t *testing.T, s Store, owner *models.User, title string, modified time.Time) *models.Board {
	t.Helper()
	b := &models.Board{
		Title:          title,
		Owner:          owner.ID,
		Settings:       models.DefaultBoardSettings(),
		CreatedAt:      modified,
		LastModified:   modified,
		LastModifiedBy: owner.ID,
	}
	if err := s.CreateBoard(context.Background(), b); err != nil {
		t.Fatalf("CreateBoard(%s) error = %v", title, err)
	}
	return b
}

func mustGetUser(t *testing.T, s Store, id bson.ObjectID) *models.User {
	t.Helper()
	u, err := s.GetUser(context.Background(), id)
	if err != nil {
		t.Fatalf("GetUser error = %v", err)
	}
	return u
}

func testUsers(t *testing.T, s Store) {
	ctx := context.Background()
	u := mustCreateUser(t, s, "Alice@Example.com")

	if u.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", u.Email)
	}
	found, err := s.GetUserByEmail(ctx, "ALICE@example.COM")
	if err != nil || found.ID != u.ID {
		t.Fatalf("expected case-insensitive lookup, got %v %v", found, err)
	}
	if _, err := s.GetUserByEmail(ctx, "alice@example"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for partial email, got %v", err)
	}

	dup := &models.User{Email: "alice@example.com", Name: "again"}
	if err := s.CreateUser(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	if err := s.LinkGoogleAccount(ctx, u.ID, "g-123", "https://avatar.test/a.png"); err != nil {
		t.Fatalf("LinkGoogleAccount error = %v", err)
	}
	byGoogle, err := s.GetUserByGoogleID(ctx, "g-123")
	if err != nil || byGoogle.ID != u.ID || byGoogle.Avatar != "https://avatar.test/a.png" {
		t.Fatalf("unexpected google lookup: %+v %v", byGoogle, err)
	}

	other := mustCreateUser(t, s, "bob@example.com")
	users, err := s.GetUsers(ctx, []bson.ObjectID{u.ID, other.ID, u.ID, bson.NewObjectID()})
	if err != nil {
		t.Fatalf("GetUsers error = %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
}

func testBoardCascades(t *testing.T, s Store) {
	ctx := context.Background()
	owner := mustCreateUser(t, s, "owner@example.com")
	collab := mustCreateUser(t, s, "collab@example.com")
	now := time.Now().UTC().Truncate(time.Millisecond)

	board := mustCreateBoard(t, s, owner, "Plan", now)
	if got := mustGetUser(t, s, owner.ID).Boards; len(got) != 1 || got[0] != board.ID {
		t.Fatalf("expected board on owner, got %v", got)
	}

	err := s.UpsertCollaborator(ctx, board.ID, models.Collaborator{
		User: collab.ID, Role: models.RoleEditor, AddedBy: owner.ID, JoinedAt: now,
	}, now)
	if err != nil {
		t.Fatalf("UpsertCollaborator error = %v", err)
	}
	if got := mustGetUser(t, s, collab.ID).Collaborations; len(got) != 1 || got[0].BoardID != board.ID {
		t.Fatalf("expected mirrored collaboration, got %v", got)
	}

	if err := s.DeleteBoard(ctx, board.ID); err != nil {
		t.Fatalf("DeleteBoard error = %v", err)
	}
	if _, err := s.GetBoard(ctx, board.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted board to be gone, got %v", err)
	}
	if got := mustGetUser(t, s, owner.ID).Boards; len(got) != 0 {
		t.Fatalf("expected owner boards cleared, got %v", got)
	}
	if got := mustGetUser(t, s, collab.ID).Collaborations; len(got) != 0 {
		t.Fatalf("expected collaborations cleared, got %v", got)
	}
	if err := s.DeleteBoard(ctx, board.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func testCollaboratorUpsert(t *testing.T, s Store) {
	ctx := context.Background()
	owner := mustCreateUser(t, s, "owner@example.com")
	collab := mustCreateUser(t, s, "collab@example.com")
	now := time.Now().UTC().Truncate(time.Millisecond)
	board := mustCreateBoard(t, s, owner, "Plan", now)

	for _, role := range []models.BoardRole{models.RoleViewer, models.RoleEditor} {
		err := s.UpsertCollaborator(ctx, board.ID, models.Collaborator{
			User: collab.ID, Role: role, AddedBy: owner.ID, JoinedAt: now,
		}, now)
		if err != nil {
			t.Fatalf("UpsertCollaborator(%s) error = %v", role, err)
		}
	}

	got, err := s.GetBoard(ctx, board.ID)
	if err != nil {
		t.Fatalf("GetBoard error = %v", err)
	}
	if len(got.Collaborators) != 1 || got.Collaborators[0].Role != models.RoleEditor {
		t.Fatalf("expected single editor collaborator, got %+v", got.Collaborators)
	}
	collabs := mustGetUser(t, s, collab.ID).Collaborations
	if len(collabs) != 1 || collabs[0].Role != models.RoleEditor {
		t.Fatalf("expected single editor collaboration, got %+v", collabs)
	}

	later := now.Add(time.Minute)
	if err := s.RemoveCollaborator(ctx, board.ID, collab.ID, owner.ID, later); err != nil {
		t.Fatalf("RemoveCollaborator error = %v", err)
	}
	got, _ = s.GetBoard(ctx, board.ID)
	if len(got.Collaborators) != 0 {
		t.Fatalf("expected no collaborators, got %+v", got.Collaborators)
	}
	if !got.LastModified.Equal(later) || got.LastModifiedBy != owner.ID {
		t.Fatalf("expected lastModified bumped, got %v by %v", got.LastModified, got.LastModifiedBy)
	}
	if collabs := mustGetUser(t, s, collab.ID).Collaborations; len(collabs) != 0 {
		t.Fatalf("expected collaboration removed, got %+v", collabs)
	}

	if err := s.RemoveCollaborator(ctx, bson.NewObjectID(), collab.ID, owner.ID, later); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown board, got %v", err)
	}
}

func testListing(t *testing.T, s Store) {
	ctx := context.Background()
	owner := mustCreateUser(t, s, "owner@example.com")
	base := time.Now().UTC().Truncate(time.Millisecond)

	var ids []bson.ObjectID
	for i := 0; i < 5; i++ {
		b := mustCreateBoard(t, s, owner, "Board", base.Add(time.Duration(i)*time.Minute))
		ids = append(ids, b.ID)
	}

	page, err := s.ListOwnedBoards(ctx, owner.ID, 2, 2)
	if err != nil {
		t.Fatalf("ListOwnedBoards error = %v", err)
	}
	if page.Total != 5 {
		t.Fatalf("expected total 5, got %d", page.Total)
	}
	if len(page.Boards) != 2 || page.Boards[0].ID != ids[2] || page.Boards[1].ID != ids[1] {
		t.Fatalf("expected boards 3 and 2 newest-first, got %+v", page.Boards)
	}

	collab, err := s.ListCollaborativeBoards(ctx, owner.ID, 0, 10)
	if err != nil {
		t.Fatalf("ListCollaborativeBoards error = %v", err)
	}
	if collab.Total != 0 || len(collab.Boards) != 0 {
		t.Fatalf("expected no collaborative boards, got %+v", collab)
	}

	elements := []models.Element{{Type: models.ElementRectangle, Payload: map[string]interface{}{"x": 1.5}, CreatedAt: base}}
	if err := s.ReplaceElements(ctx, ids[0], elements, owner.ID, base.Add(time.Hour)); err != nil {
		t.Fatalf("ReplaceElements error = %v", err)
	}
	page, _ = s.ListOwnedBoards(ctx, owner.ID, 0, 1)
	if page.Boards[0].ID != ids[0] {
		t.Fatal("expected the most recently modified board first")
	}
	b, _ := s.GetBoard(ctx, ids[0])
	if len(b.Elements) != 1 || b.Elements[0].Payload["x"] != 1.5 {
		t.Fatalf("expected stored element payload, got %+v", b.Elements)
	}
}

func testShareLinks(t *testing.T, s Store) {
	ctx := context.Background()
	owner := mustCreateUser(t, s, "owner@example.com")
	now := time.Now().UTC().Truncate(time.Millisecond)
	board := mustCreateBoard(t, s, owner, "Shared", now)

	link := models.ShareLink{Token: "tok-1", Permissions: models.ShareLinkEdit, CreatedBy: owner.ID, CreatedAt: now}
	if err := s.AddShareLink(ctx, board.ID, link); err != nil {
		t.Fatalf("AddShareLink error = %v", err)
	}
	found, err := s.GetBoardByShareToken(ctx, "tok-1")
	if err != nil || found.ID != board.ID {
		t.Fatalf("expected board by token, got %v %v", found, err)
	}
	if err := s.RemoveShareLink(ctx, board.ID, "tok-1", owner.ID, now); err != nil {
		t.Fatalf("RemoveShareLink error = %v", err)
	}
	if _, err := s.GetBoardByShareToken(ctx, "tok-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected revoked token to be gone, got %v", err)
	}
	if err := s.RemoveShareLink(ctx, board.ID, "tok-1", owner.ID, now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown token, got %v", err)
	}
}

func testSessions(t *testing.T, s Store) {
	ctx := context.Background()
	owner := mustCreateUser(t, s, "owner@example.com")
	now := time.Now().UTC().Truncate(time.Millisecond)

	live := &models.Session{ID: "live", UserID: owner.ID, CreatedAt: now, Expires: now.Add(time.Hour)}
	stale := &models.Session{ID: "stale", UserID: owner.ID, CreatedAt: now, Expires: now.Add(-time.Second)}
	for _, sess := range []*models.Session{live, stale} {
		if err := s.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession error = %v", err)
		}
	}

	if _, err := s.GetSession(ctx, "live", now); err != nil {
		t.Fatalf("expected live session, got %v", err)
	}
	if _, err := s.GetSession(ctx, "stale", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired session to be rejected, got %v", err)
	}
	if err := s.DeleteSession(ctx, "live"); err != nil {
		t.Fatalf("DeleteSession error = %v", err)
	}
	if _, err := s.GetSession(ctx, "live", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted session to be gone, got %v", err)
	}
}

func testAudit(t *testing.T, s Store) {
	ctx := context.Background()
	boardID := bson.NewObjectID()
	otherBoard := bson.NewObjectID()
	base := time.Now().UTC().Truncate(time.Millisecond)

	for i, id := range []bson.ObjectID{boardID, boardID, otherBoard, boardID} {
		id := id
		entry := &models.AuditLog{Action: "board.update", BoardID: &id, CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if err := s.InsertAuditLog(ctx, entry); err != nil {
			t.Fatalf("InsertAuditLog error = %v", err)
		}
	}

	entries, total, err := s.ListAuditLogs(ctx, boardID, 0, 2)
	if err != nil {
		t.Fatalf("ListAuditLogs error = %v", err)
	}
	if total != 3 || len(entries) != 2 {
		t.Fatalf("expected 2 of 3 entries, got %d of %d", len(entries), total)
	}
	if !entries[0].CreatedAt.After(entries[1].CreatedAt) {
		t.Fatal("expected newest entries first")
	}
}

func testRepair(t *testing.T, s Store, corrupt func(t *testing.T, userID bson.ObjectID)) {
	ctx := context.Background()
	owner := mustCreateUser(t, s, "owner@example.com")
	collab := mustCreateUser(t, s, "collab@example.com")
	now := time.Now().UTC().Truncate(time.Millisecond)
	board := mustCreateBoard(t, s, owner, "Plan", now)
	if err := s.UpsertCollaborator(ctx, board.ID, models.Collaborator{
		User: collab.ID, Role: models.RoleViewer, AddedBy: owner.ID, JoinedAt: now,
	}, now); err != nil {
		t.Fatalf("UpsertCollaborator error = %v", err)
	}
	corrupt(t, owner.ID)
	corrupt(t, collab.ID)

	n, err := s.RebuildUserIndexes(ctx)
	if err != nil {
		t.Fatalf("RebuildUserIndexes error = %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 users rewritten, got %d", n)
	}
	if got := mustGetUser(t, s, owner.ID).Boards; len(got) != 1 || got[0] != board.ID {
		t.Fatalf("expected owner index rebuilt, got %v", got)
	}
	collabs := mustGetUser(t, s, collab.ID).Collaborations
	if len(collabs) != 1 || collabs[0].Role != models.RoleViewer {
		t.Fatalf("expected collaboration rebuilt, got %+v", collabs)
	}
}
