package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/society-ledger/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaturityRepository defines the interface for maturity record data access
type MaturityRepository interface {
	Create(ctx context.Context, record *models.MaturityRecord) error
	Update(ctx context.Context, record *models.MaturityRecord) error
	FindByID(ctx context.Context, id uint) (*models.MaturityRecord, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*models.MaturityRecord, error)
	FindByMember(ctx context.Context, memberID uint) (*models.MaturityRecord, error)
	FindByMemberForUpdate(ctx context.Context, memberID uint) (*models.MaturityRecord, error)
	FindMaturingBetween(ctx context.Context, from, to time.Time) ([]models.MaturityRecord, error)
	FindByPayoutEntry(ctx context.Context, entryID uint) (*models.MaturityRecord, error)
	MarkClaimed(ctx context.Context, id uint, netPayable decimal.Decimal, claimedAt time.Time) (bool, error)
	SetPayoutEntry(ctx context.Context, id, entryID uint) error
}

type maturityRepository struct {
	db *gorm.DB
}

// NewMaturityRepository creates a new maturity record repository
func NewMaturityRepository(db *gorm.DB) MaturityRepository {
	return &maturityRepository{db: db}
}

func (r *maturityRepository) Create(ctx context.Context, record *models.MaturityRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *maturityRepository) Update(ctx context.Context, record *models.MaturityRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *maturityRepository) FindByID(ctx context.Context, id uint) (*models.MaturityRecord, error) {
	var record models.MaturityRecord
	err := r.db.WithContext(ctx).First(&record, id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *maturityRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.MaturityRecord, error) {
	var record models.MaturityRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&record, id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *maturityRepository) FindByMember(ctx context.Context, memberID uint) (*models.MaturityRecord, error) {
	var record models.MaturityRecord
	err := r.db.WithContext(ctx).Where("member_id = ?", memberID).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *maturityRepository) FindByMemberForUpdate(ctx context.Context, memberID uint) (*models.MaturityRecord, error) {
	var record models.MaturityRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("member_id = ?", memberID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindMaturingBetween returns active records whose maturity date falls in [from, to]
func (r *maturityRepository) FindMaturingBetween(ctx context.Context, from, to time.Time) ([]models.MaturityRecord, error) {
	var records []models.MaturityRecord
	err := r.db.WithContext(ctx).
		Where("status = ? AND maturity_date >= ? AND maturity_date <= ?", models.MaturityStatusActive, from, to).
		Order("maturity_date ASC, id ASC").
		Find(&records).Error
	return records, err
}

// FindByPayoutEntry returns the claimed record whose payout was posted as entryID
func (r *maturityRepository) FindByPayoutEntry(ctx context.Context, entryID uint) (*models.MaturityRecord, error) {
	var record models.MaturityRecord
	err := r.db.WithContext(ctx).Where("payout_entry_id = ?", entryID).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// MarkClaimed flips a matured record to claimed. It reports false when the
// record was no longer matured, so a concurrent or repeated claim cannot
// flip it twice.
func (r *maturityRepository) MarkClaimed(ctx context.Context, id uint, netPayable decimal.Decimal, claimedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.MaturityRecord{}).
		Where("id = ? AND status = ?", id, models.MaturityStatusMatured).
		Updates(map[string]interface{}{
			"status":      models.MaturityStatusClaimed,
			"net_payable": netPayable,
			"claimed_at":  claimedAt,
			"updated_at":  claimedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *maturityRepository) SetPayoutEntry(ctx context.Context, id, entryID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.MaturityRecord{}).
		Where("id = ?", id).
		Update("payout_entry_id", entryID).Error
}
