package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/society-ledger/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LoanRepository defines the interface for loan data access
type LoanRepository interface {
	Create(ctx context.Context, loan *models.Loan) error
	Update(ctx context.Context, loan *models.Loan) error
	FindByID(ctx context.Context, id uint) (*models.Loan, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*models.Loan, error)
	FindByMember(ctx context.Context, memberID uint, includeClosed bool) ([]models.Loan, error)
	FindActiveByMemberForUpdate(ctx context.Context, memberID uint) ([]models.Loan, error)
	FindActive(ctx context.Context) ([]models.Loan, error)
	FindOverdue(ctx context.Context, now time.Time) ([]models.Loan, error)
	SumActiveRemaining(ctx context.Context, memberID uint) (decimal.Decimal, error)
}

type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Create(loan).Error
}

func (r *loanRepository) Update(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Save(loan).Error
}

func (r *loanRepository) FindByID(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// FindByIDForUpdate loads the loan and locks its row so competing
// installments on the same loan serialize instead of overwriting each other.
func (r *loanRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) FindByMember(ctx context.Context, memberID uint, includeClosed bool) ([]models.Loan, error) {
	var loans []models.Loan
	db := r.db.WithContext(ctx).Where("member_id = ?", memberID)
	if !includeClosed {
		db = db.Where("status = ?", models.LoanStatusActive)
	}
	err := db.Order("created_at DESC, id DESC").Find(&loans).Error
	return loans, err
}

// FindActiveByMemberForUpdate locks every active loan of the member
func (r *loanRepository) FindActiveByMemberForUpdate(ctx context.Context, memberID uint) ([]models.Loan, error) {
	var loans []models.Loan
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("member_id = ? AND status = ?", memberID, models.LoanStatusActive).
		Order("id ASC").
		Find(&loans).Error
	return loans, err
}

func (r *loanRepository) FindActive(ctx context.Context) ([]models.Loan, error) {
	var loans []models.Loan
	err := r.db.WithContext(ctx).
		Where("status = ?", models.LoanStatusActive).
		Order("next_due_date ASC, id ASC").
		Find(&loans).Error
	return loans, err
}

// FindOverdue returns active loans whose due date has passed
func (r *loanRepository) FindOverdue(ctx context.Context, now time.Time) ([]models.Loan, error) {
	var loans []models.Loan
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_due_date < ?", models.LoanStatusActive, now).
		Order("next_due_date ASC, id ASC").
		Find(&loans).Error
	return loans, err
}

// SumActiveRemaining is the member's pending loan amount
func (r *loanRepository) SumActiveRemaining(ctx context.Context, memberID uint) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}

	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Select("COALESCE(SUM(remaining_balance), 0) AS total").
		Where("member_id = ? AND status = ?", memberID, models.LoanStatusActive).
		Scan(&result).Error

	return result.Total, err
}
