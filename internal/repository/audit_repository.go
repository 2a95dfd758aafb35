package repository

import (
	"context"

	"github.com/sjperalta/society-ledger/internal/models"
	"gorm.io/gorm"
)

// AuditRepository defines the interface for audit trail data access
type AuditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
	List(ctx context.Context, query *ListQuery) ([]models.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

var auditSortColumns = map[string]string{
	"created_at": "created_at",
	"action":     "action",
	"entity":     "entity",
}

// List returns audit rows newest first, optionally filtered by entity and entity_id
func (r *auditRepository) List(ctx context.Context, query *ListQuery) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	db := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if entity := query.Filters["entity"]; entity != "" {
		db = db.Where("entity = ?", entity)
	}
	if entityID := query.Filters["entity_id"]; entityID != "" {
		db = db.Where("entity_id = ?", entityID)
	}
	if action := query.Filters["action"]; action != "" {
		db = db.Where("action = ?", action)
	}

	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.orderBy(db, auditSortColumns, "created_at DESC, id DESC").
		Offset(query.Offset()).
		Limit(query.PerPage).
		Find(&logs).Error
	return logs, total, err
}
