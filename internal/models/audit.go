package models

import (
	"time"
)

// AuditLog represents a system audit entry
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ActorID   uint      `gorm:"not null;default:0" json:"actor_id"`
	Action    string    `gorm:"size:50;not null" json:"action"` // CREATE, UPDATE, DELETE, CLOSE, CLAIM, ADJUST
	Entity    string    `gorm:"size:50;not null" json:"entity"` // LedgerEntry, Loan, MaturityRecord
	EntityID  uint      `json:"entity_id"`
	Details   string    `gorm:"type:text" json:"details"`
	IPAddress string    `gorm:"size:45" json:"ip_address"`
	UserAgent string    `gorm:"size:255" json:"user_agent"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}

// All lists every persisted model, in dependency order, for AutoMigrate
func All() []interface{} {
	return []interface{}{
		&Member{},
		&Loan{},
		&LedgerEntry{},
		&MaturityRecord{},
		&AuditLog{},
	}
}
