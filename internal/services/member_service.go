package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sjperalta/society-ledger/internal/models"
	"github.com/sjperalta/society-ledger/internal/repository"
)

// CreateMemberRequest registers a member
type CreateMemberRequest struct {
	MemberCode  string
	FullName    string
	Phone       string
	JoiningDate time.Time
}

// MemberService handles the member registry. Members are never deleted;
// deactivating one removes it from batch refreshes.
type MemberService struct {
	repo  repository.MemberRepository
	audit *AuditService
}

func NewMemberService(repo repository.MemberRepository, audit *AuditService) *MemberService {
	return &MemberService{repo: repo, audit: audit}
}

func (s *MemberService) Create(ctx context.Context, req CreateMemberRequest) (*models.Member, error) {
	code := strings.ToUpper(strings.TrimSpace(req.MemberCode))
	name := strings.TrimSpace(req.FullName)
	if code == "" || name == "" {
		return nil, ErrInvalidInput.WithDetails(map[string]any{"reason": "member_code and full_name are required"})
	}
	joined := req.JoiningDate
	if joined.IsZero() {
		joined = now()
	}
	if joined.After(now()) {
		return nil, ErrInvalidInput.WithDetails(map[string]any{"field": "joining_date", "reason": "must not be in the future"})
	}

	if _, err := s.repo.FindByCode(ctx, code); err == nil {
		return nil, ErrDuplicateMemberCode.WithDetails(map[string]any{"member_code": code})
	} else if !repository.IsNotFound(err) {
		return nil, persistenceError("check member code", err)
	}

	member := &models.Member{
		MemberCode:  code,
		FullName:    name,
		Phone:       strings.TrimSpace(req.Phone),
		Status:      models.MemberStatusActive,
		JoiningDate: joined.UTC(),
	}
	if err := s.repo.Create(ctx, member); err != nil {
		if errors.Is(err, repository.ErrDuplicateMemberCode) {
			return nil, ErrDuplicateMemberCode.WithDetails(map[string]any{"member_code": code})
		}
		return nil, persistenceError("create member", err)
	}

	s.audit.Log(ctx, AuditCreate, "Member", member.ID, fmt.Sprintf("member %s (%s) registered", member.MemberCode, member.FullName))
	return member, nil
}

func (s *MemberService) FindByID(ctx context.Context, id uint) (*models.Member, error) {
	member, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, ErrMemberNotFound, "load member")
	}
	return member, nil
}

func (s *MemberService) List(ctx context.Context, query *repository.ListQuery) ([]models.Member, int64, error) {
	members, total, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, 0, persistenceError("list members", err)
	}
	return members, total, nil
}

// SetStatus activates or deactivates a member
func (s *MemberService) SetStatus(ctx context.Context, id uint, status string) (*models.Member, error) {
	if status != models.MemberStatusActive && status != models.MemberStatusInactive {
		return nil, ErrInvalidInput.WithDetails(map[string]any{"field": "status", "reason": "must be active or inactive"})
	}
	member, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if member.Status == status {
		return member, nil
	}

	previous := member.Status
	member.Status = status
	if err := s.repo.Update(ctx, member); err != nil {
		return nil, persistenceError("update member", err)
	}
	s.audit.Log(ctx, AuditUpdate, "Member", member.ID, fmt.Sprintf("status %s -> %s", previous, status))
	return member, nil
}
