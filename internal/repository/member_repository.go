package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/sjperalta/society-ledger/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDuplicateMemberCode is returned when another member already holds the code
var ErrDuplicateMemberCode = errors.New("member code already exists")

// MemberRepository defines the interface for member data access
type MemberRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Member, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*models.Member, error)
	FindByCode(ctx context.Context, code string) (*models.Member, error)
	Create(ctx context.Context, member *models.Member) error
	Update(ctx context.Context, member *models.Member) error
	List(ctx context.Context, query *ListQuery) ([]models.Member, int64, error)
	FindActiveIDs(ctx context.Context) ([]uint, error)
}

type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) FindByID(ctx context.Context, id uint) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).First(&member, id).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// FindByIDForUpdate loads the member and locks its row until the transaction ends
func (r *memberRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&member, id).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepository) FindByCode(ctx context.Context, code string) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).Where("member_code = ?", code).First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepository) Create(ctx context.Context, member *models.Member) error {
	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		if isDuplicateKeyError(err, "members_member_code_key") || isDuplicateKeyError(err, "idx_members_member_code") {
			return ErrDuplicateMemberCode
		}
		return err
	}
	return nil
}

func (r *memberRepository) Update(ctx context.Context, member *models.Member) error {
	return r.db.WithContext(ctx).Save(member).Error
}

var memberSortColumns = map[string]string{
	"member_code":  "member_code",
	"full_name":    "full_name",
	"joining_date": "joining_date",
	"created_at":   "created_at",
}

func (r *memberRepository) List(ctx context.Context, query *ListQuery) ([]models.Member, int64, error) {
	var members []models.Member
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Member{})

	if status := query.Filters["status"]; status != "" {
		db = db.Where("status = ?", status)
	}
	if query.Search != "" {
		search := "%" + strings.ToLower(query.Search) + "%"
		db = db.Where("LOWER(full_name) LIKE ? OR LOWER(member_code) LIKE ?", search, search)
	}

	// Count on a separate session so the main query is not altered by Count()
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.orderBy(db, memberSortColumns, "member_code ASC").
		Offset(query.Offset()).
		Limit(query.PerPage).
		Find(&members).Error
	return members, total, err
}

// FindActiveIDs returns the ids of all active members, oldest first
func (r *memberRepository) FindActiveIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("status = ?", models.MemberStatusActive).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}
