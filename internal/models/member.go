package models

import (
	"time"

	"gorm.io/gorm"
)

// Member is a society member. Deposit totals and balances are never stored
// on the member; they are aggregated from ledger entries on read.
type Member struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	MemberCode  string    `gorm:"size:32;uniqueIndex;not null" json:"member_code"`
	FullName    string    `gorm:"size:160;not null" json:"full_name"`
	Phone       string    `gorm:"size:32" json:"phone"`
	Status      string    `gorm:"size:16;not null;default:active;index" json:"status"`
	JoiningDate time.Time `gorm:"not null" json:"joining_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Member status constants
const (
	MemberStatusActive   = "active"
	MemberStatusInactive = "inactive"
)

// TableName specifies the table name for Member
func (Member) TableName() string {
	return "members"
}

// BeforeCreate hook for setting defaults
func (m *Member) BeforeCreate(tx *gorm.DB) error {
	if m.Status == "" {
		m.Status = MemberStatusActive
	}
	return nil
}

// IsActive returns true if the member participates in batch refreshes
func (m *Member) IsActive() bool {
	return m.Status == MemberStatusActive
}
