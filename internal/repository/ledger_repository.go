package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/society-ledger/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerRepository defines the interface for passbook entry data access
type LedgerRepository interface {
	Create(ctx context.Context, entry *models.LedgerEntry) error
	Update(ctx context.Context, entry *models.LedgerEntry) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*models.LedgerEntry, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*models.LedgerEntry, error)
	FindByMember(ctx context.Context, memberID uint, limit int) ([]models.LedgerEntry, error)
	FindByLoan(ctx context.Context, loanID uint) ([]models.LedgerEntry, error)
	CountByMember(ctx context.Context, memberID uint) (int64, error)
	SumDeposits(ctx context.Context, memberID uint) (decimal.Decimal, error)
	SumInstallments(ctx context.Context, memberID uint) (decimal.Decimal, error)
	SumFines(ctx context.Context, memberID uint) (decimal.Decimal, error)
	SumInstallmentsForLoans(ctx context.Context, loanIDs []uint) (decimal.Decimal, error)
}

// ledgerRepository handles database operations for passbook entries
type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *ledgerRepository) Update(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

func (r *ledgerRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.LedgerEntry{}, id).Error
}

func (r *ledgerRepository) FindByID(ctx context.Context, id uint) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).First(&entry, id).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindByIDForUpdate loads the entry and locks its row until the transaction ends
func (r *ledgerRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&entry, id).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindByMember returns the member's passbook, newest first
func (r *ledgerRepository) FindByMember(ctx context.Context, memberID uint, limit int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("transaction_date DESC, created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// FindByLoan returns the entries linked to a loan, oldest first
func (r *ledgerRepository) FindByLoan(ctx context.Context, loanID uint) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("loan_request_id = ?", loanID).
		Order("transaction_date ASC, created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *ledgerRepository) CountByMember(ctx context.Context, memberID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("member_id = ?", memberID).
		Count(&count).Error
	return count, err
}

// SumDeposits sums the signed deposit column; expenses count negatively
func (r *ledgerRepository) SumDeposits(ctx context.Context, memberID uint) (decimal.Decimal, error) {
	return r.sumColumn(ctx, "deposit_amount", "member_id = ?", memberID)
}

func (r *ledgerRepository) SumInstallments(ctx context.Context, memberID uint) (decimal.Decimal, error) {
	return r.sumColumn(ctx, "loan_installment", "member_id = ?", memberID)
}

func (r *ledgerRepository) SumFines(ctx context.Context, memberID uint) (decimal.Decimal, error) {
	return r.sumColumn(ctx, "fine_auto", "member_id = ?", memberID)
}

func (r *ledgerRepository) SumInstallmentsForLoans(ctx context.Context, loanIDs []uint) (decimal.Decimal, error) {
	if len(loanIDs) == 0 {
		return decimal.Zero, nil
	}
	return r.sumColumn(ctx, "loan_installment", "loan_request_id IN ?", loanIDs)
}

func (r *ledgerRepository) sumColumn(ctx context.Context, column, where string, args ...interface{}) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}

	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Select("COALESCE(SUM("+column+"), 0) AS total").
		Where(where, args...).
		Scan(&result).Error

	return result.Total, err
}
