package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MaturityRecord is the materialized maturity projection of a member.
// There is at most one record per member.
type MaturityRecord struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	MemberID         uint            `gorm:"not null;uniqueIndex" json:"member_id"`
	TotalDeposit     decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"total_deposit"`
	StartDate        time.Time       `gorm:"not null" json:"start_date"`
	MaturityDate     time.Time       `gorm:"not null;index" json:"maturity_date"`
	MonthsCompleted  int             `gorm:"not null;default:0" json:"months_completed"`
	RemainingMonths  int             `gorm:"not null;default:0" json:"remaining_months"`
	CurrentInterest  decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"current_interest"`
	FullInterest     decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"full_interest"`
	AdjustedInterest decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"adjusted_interest"`
	LoanAdjustment   decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"loan_adjustment"`
	NetPayable       decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"net_payable"`
	ManualOverride   bool            `gorm:"not null;default:false" json:"manual_override"`
	AdjustmentReason *string         `gorm:"type:text" json:"adjustment_reason,omitempty"`
	Status           string          `gorm:"size:16;not null;default:active;index" json:"status"`
	ClaimedAt        *time.Time      `json:"claimed_at,omitempty"`
	PayoutEntryID    *uint           `json:"payout_entry_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	// Associations
	Member *Member `gorm:"foreignKey:MemberID" json:"-"`
}

// Maturity status constants
const (
	MaturityStatusActive  = "active"
	MaturityStatusMatured = "matured"
	MaturityStatusClaimed = "claimed"
)

// TableName specifies the table name for MaturityRecord
func (MaturityRecord) TableName() string {
	return "maturity_records"
}

// BeforeCreate hook for setting defaults
func (r *MaturityRecord) BeforeCreate(tx *gorm.DB) error {
	if r.Status == "" {
		r.Status = MaturityStatusActive
	}
	return nil
}

// MayClaim returns true if the payout can be claimed
func (r *MaturityRecord) MayClaim() bool {
	return r.Status == MaturityStatusMatured
}

// IsClaimed returns true once the payout has been claimed
func (r *MaturityRecord) IsClaimed() bool {
	return r.Status == MaturityStatusClaimed
}

// PayableInterest is the interest the payout uses: the admin-adjusted value
// when overridden, the accrued value otherwise.
func (r *MaturityRecord) PayableInterest() decimal.Decimal {
	if r.ManualOverride {
		return r.AdjustedInterest
	}
	return r.CurrentInterest
}

// ComputeNetPayable derives the payout from the stored fields, floored at zero
func (r *MaturityRecord) ComputeNetPayable() decimal.Decimal {
	net := r.TotalDeposit.Add(r.PayableInterest()).Sub(r.LoanAdjustment)
	if net.IsNegative() {
		return decimal.Zero
	}
	return net.Round(2)
}
