package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerEntry is one passbook row: a single calendar cash event for a member.
// A MIXED entry carries both a deposit and an installment component.
type LedgerEntry struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Reference       string          `gorm:"size:36;uniqueIndex;not null" json:"reference"`
	MemberID        uint            `gorm:"not null;index" json:"member_id"`
	EntryType       string          `gorm:"size:16;not null;index" json:"entry_type"`
	TransactionDate time.Time       `gorm:"not null;index" json:"transaction_date"`
	DepositAmount   decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"deposit_amount"` // Negative for expenses
	LoanInstallment decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"loan_installment"`
	InterestAuto    decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"interest_auto"` // Informational only
	FineAuto        decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"fine_auto"`
	Mode            string          `gorm:"size:16;not null;default:cash" json:"mode"`
	LoanRequestID   *uint           `gorm:"index" json:"loan_request_id,omitempty"`
	Description     string          `gorm:"type:text" json:"description"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	// Associations
	Member *Member `gorm:"foreignKey:MemberID" json:"-"`
	Loan   *Loan   `gorm:"foreignKey:LoanRequestID" json:"-"`
}

// Entry kind constants
const (
	EntryKindDeposit     = "DEPOSIT"
	EntryKindInstallment = "INSTALLMENT"
	EntryKindFine        = "FINE"
	EntryKindExpense     = "EXPENSE"
	EntryKindOther       = "OTHER"
	EntryKindMixed       = "MIXED"
)

// Payment mode constants
const (
	ModeCash   = "cash"
	ModeBank   = "bank"
	ModeUPI    = "upi"
	ModeCheque = "cheque"
)

// IsValidEntryKind reports whether kind is one of the supported entry kinds
func IsValidEntryKind(kind string) bool {
	switch kind {
	case EntryKindDeposit, EntryKindInstallment, EntryKindFine, EntryKindExpense, EntryKindOther, EntryKindMixed:
		return true
	}
	return false
}

// IsValidMode reports whether mode is a supported payment mode
func IsValidMode(mode string) bool {
	switch mode {
	case ModeCash, ModeBank, ModeUPI, ModeCheque:
		return true
	}
	return false
}

// TableName specifies the table name for LedgerEntry
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// BeforeCreate hook for setting defaults
func (e *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.Reference == "" {
		e.Reference = uuid.NewString()
	}
	if e.Mode == "" {
		e.Mode = ModeCash
	}
	return nil
}

// HasInstallment returns true if the entry pays down a loan
func (e *LedgerEntry) HasInstallment() bool {
	return e.LoanInstallment.IsPositive()
}
