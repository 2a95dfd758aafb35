package services

import (
	"context"

	"github.com/sjperalta/society-ledger/internal/jobs"
	"github.com/sjperalta/society-ledger/internal/models"
	"github.com/sjperalta/society-ledger/internal/repository"
	"github.com/sjperalta/society-ledger/pkg/logger"
)

// Audit actions
const (
	AuditCreate = "CREATE"
	AuditUpdate = "UPDATE"
	AuditDelete = "DELETE"
	AuditClose  = "CLOSE"
	AuditPay    = "PAY"
	AuditClaim  = "CLAIM"
	AuditAdjust = "ADJUST"
)

type requestMetaKey struct{}

// RequestMeta identifies the caller of a mutating operation for the audit trail
type RequestMeta struct {
	ActorID   uint
	IPAddress string
	UserAgent string
}

// WithRequestMeta attaches caller details to ctx
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFrom returns the caller details stored in ctx
func RequestMetaFrom(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}

type AuditService struct {
	repo   repository.AuditRepository
	worker *jobs.Worker
}

// NewAuditService creates the audit trail writer. With a nil worker entries
// are written synchronously.
func NewAuditService(repo repository.AuditRepository, worker *jobs.Worker) *AuditService {
	return &AuditService{repo: repo, worker: worker}
}

// Log records an audit entry. Call it after the audited transaction has
// committed; a failed write is logged and never fails the operation.
func (s *AuditService) Log(ctx context.Context, action, entity string, entityID uint, details string) {
	meta := RequestMetaFrom(ctx)
	entry := &models.AuditLog{
		ActorID:   meta.ActorID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Details:   details,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	log := logger.FromContext(ctx)

	write := func(ctx context.Context) error {
		if err := s.repo.Create(ctx, entry); err != nil {
			log.Error("Failed to write audit log", "action", action, "entity", entity, "entity_id", entityID, "error", err)
			return err
		}
		return nil
	}

	if s.worker == nil {
		_ = write(context.WithoutCancel(ctx))
		return
	}
	// Shutdown drains the queue with a cancelled context; the write still has to land
	s.worker.Enqueue(func(ctx context.Context) error {
		return write(context.WithoutCancel(ctx))
	})
}

// List retrieves audit logs with filters
func (s *AuditService) List(ctx context.Context, query *repository.ListQuery) ([]models.AuditLog, int64, error) {
	logs, total, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, 0, persistenceError("list audit logs", err)
	}
	return logs, total, nil
}
