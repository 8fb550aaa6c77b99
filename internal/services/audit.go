package services

import (
	"context"
	"sync"
	"time"

	"github.com/canvasboard/backend/internal/models"
	"github.com/canvasboard/backend/internal/store"
	"github.com/canvasboard/backend/pkg/logger"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	AuditBoardCreate        = "board.create"
	AuditBoardUpdate        = "board.update"
	AuditBoardDelete        = "board.delete"
	AuditElementsReplace    = "board.elements_replace"
	AuditCollaboratorAdd    = "collaborator.add"
	AuditCollaboratorRemove = "collaborator.remove"
	AuditShareLinkCreate    = "share_link.create"
	AuditShareLinkRevoke    = "share_link.revoke"
	AuditAssetUpload        = "asset.upload"
	AuditUserRegister       = "user.register"
	AuditUserLogin          = "user.login"
	AuditUserLogout         = "user.logout"
	auditInsertTimeout      = 5 * time.Second
	defaultAuditQueueSize   = 1000
)

type AuditEntry struct {
	UserID    *bson.ObjectID
	Action    string
	BoardID   *bson.ObjectID
	Details   map[string]interface{}
	IPAddress string
	RequestID string
}

// AuditService persists audit entries off the request path. Entries are
// dropped with a warning when the queue is full.
type AuditService struct {
	Store store.AuditStore
	queue chan models.AuditLog
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewAuditService(auditStore store.AuditStore, queueSize int) *AuditService {
	if queueSize <= 0 {
		queueSize = defaultAuditQueueSize
	}
	s := &AuditService{
		Store: auditStore,
		queue: make(chan models.AuditLog, queueSize),
	}
	s.wg.Add(1)
	go s.processQueue()
	return s
}

func (s *AuditService) LogAsync(entry AuditEntry) {
	row := models.AuditLog{
		UserID:    entry.UserID,
		Action:    entry.Action,
		BoardID:   entry.BoardID,
		Details:   entry.Details,
		IPAddress: entry.IPAddress,
		RequestID: entry.RequestID,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}

	select {
	case s.queue <- row:
	default:
		logger.Warn("audit_queue_full", map[string]interface{}{
			"action":  entry.Action,
			"dropped": true,
		})
	}
}

func (s *AuditService) processQueue() {
	defer s.wg.Done()
	for row := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), auditInsertTimeout)
		err := s.Store.InsertAuditLog(ctx, &row)
		cancel()
		if err != nil {
			logger.Error("audit_log_insert_failed", err, map[string]interface{}{
				"audit_action": row.Action,
			})
		}
	}
}

// Close stops accepting entries and waits for the queue to drain.
func (s *AuditService) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
