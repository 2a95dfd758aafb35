package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Loan is a member loan. LoanAmount is fixed at issuance; RemainingBalance
// only moves through installment application and never goes below zero.
type Loan struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	MemberID         uint            `gorm:"not null;index" json:"member_id"`
	LoanAmount       decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"loan_amount"`
	RemainingBalance decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"remaining_balance"`
	InterestRate     decimal.Decimal `gorm:"type:numeric(10,6);not null" json:"interest_rate"` // Monthly
	Status           string          `gorm:"size:16;not null;default:active;index" json:"status"`
	NextDueDate      time.Time       `gorm:"not null;index" json:"next_due_date"`
	OverrideEnabled  bool            `gorm:"not null;default:false" json:"override_enabled"`
	Notes            *string         `gorm:"type:text" json:"notes,omitempty"`
	ClosedAt         *time.Time      `json:"closed_at,omitempty"`
	CloseReason      *string         `gorm:"type:text" json:"close_reason,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	// Associations
	Member *Member `gorm:"foreignKey:MemberID" json:"-"`
}

// Loan status constants
const (
	LoanStatusActive = "active"
	LoanStatusClosed = "closed"
)

// TableName specifies the table name for Loan
func (Loan) TableName() string {
	return "loans"
}

// BeforeCreate hook for setting defaults
func (l *Loan) BeforeCreate(tx *gorm.DB) error {
	if l.Status == "" {
		l.Status = LoanStatusActive
	}
	return nil
}

// IsActive returns true if the loan still accepts installments
func (l *Loan) IsActive() bool {
	return l.Status == LoanStatusActive
}

// IsOverdue returns true if an active loan has passed its due date
func (l *Loan) IsOverdue(now time.Time) bool {
	return l.IsActive() && l.NextDueDate.Before(now)
}

// ClosedByAdmin returns true if the loan was force-closed rather than repaid
func (l *Loan) ClosedByAdmin() bool {
	return l.Status == LoanStatusClosed && l.CloseReason != nil
}
