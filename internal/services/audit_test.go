package services

import (
	"context"
	"testing"

	"github.com/canvasboard/backend/internal/store"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestAuditService_LogAsyncPersists(t *testing.T) {
	s := store.NewMemoryStore()
	audit := NewAuditService(s, 10)

	boardID := bson.NewObjectID()
	userID := bson.NewObjectID()
	audit.LogAsync(AuditEntry{UserID: &userID, Action: AuditBoardCreate, BoardID: &boardID, IPAddress: "10.0.0.1"})
	audit.LogAsync(AuditEntry{UserID: &userID, Action: AuditBoardUpdate, BoardID: &boardID, Details: map[string]interface{}{"title": "x"}})
	audit.Close()

	entries, total, err := s.ListAuditLogs(context.Background(), boardID, 0, 10)
	if err != nil {
		t.Fatalf("ListAuditLogs error = %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 entries, got %d", total)
	}
	for _, e := range entries {
		if e.CreatedAt.IsZero() {
			t.Fatal("expected createdAt to be stamped")
		}
	}
}

func TestAuditService_LogAfterCloseIsDropped(t *testing.T) {
	s := store.NewMemoryStore()
	audit := NewAuditService(s, 1)
	audit.Close()
	audit.Close()

	boardID := bson.NewObjectID()
	audit.LogAsync(AuditEntry{Action: AuditBoardDelete, BoardID: &boardID})

	_, total, _ := s.ListAuditLogs(context.Background(), boardID, 0, 10)
	if total != 0 {
		t.Fatalf("expected no entries after close, got %d", total)
	}
}
