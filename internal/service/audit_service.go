package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/skolara-api/internal/models"
	"github.com/noah-isme/skolara-api/pkg/jobs"
)

type auditLogRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditService records mutating API actions asynchronously. Entries are
// enqueued from middleware and written by a worker pool so audit persistence
// never sits on the request path.
type AuditService struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAuditService wires the audit queue to the repository-backed handler.
func NewAuditService(repo auditLogRepository, workers, bufferSize int, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}

	handler := func(ctx context.Context, job jobs.Job) error {
		entry, ok := job.Payload.(*models.AuditLog)
		if !ok {
			return fmt.Errorf("unexpected audit payload type %T", job.Payload)
		}
		return repo.CreateAuditLog(ctx, entry)
	}

	queue := jobs.NewQueue("audit", handler, jobs.QueueConfig{
		Workers:    workers,
		BufferSize: bufferSize,
		Logger:     logger,
	})

	return &AuditService{queue: queue, logger: logger}
}

// Start launches the audit workers.
func (s *AuditService) Start(ctx context.Context) {
	if s == nil {
		return
	}
	s.queue.Start(ctx)
}

// Stop drains the audit workers.
func (s *AuditService) Stop() {
	if s == nil {
		return
	}
	s.queue.Stop()
}

// Record enqueues an audit entry. Failures are logged, never surfaced to the
// request that triggered the entry.
func (s *AuditService) Record(entry *models.AuditLog) {
	if s == nil || entry == nil {
		return
	}
	if err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: "audit_log", Payload: entry}); err != nil {
		s.logger.Warn("failed to enqueue audit entry", zap.String("action", entry.Action), zap.Error(err))
	}
}
