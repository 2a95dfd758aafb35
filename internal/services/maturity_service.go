package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/society-ledger/internal/config"
	"github.com/sjperalta/society-ledger/internal/models"
	"github.com/sjperalta/society-ledger/internal/repository"
	"github.com/sjperalta/society-ledger/internal/statemachine"
	"github.com/sjperalta/society-ledger/pkg/logger"
)

// maturityMonth is the fixed month length used to count completed months
const maturityMonth = 30 * 24 * time.Hour

// MaturityProjection is the payout a member would receive, computed from current state
type MaturityProjection struct {
	MemberID        uint            `json:"member_id"`
	StartDate       time.Time       `json:"start_date"`
	MaturityDate    time.Time       `json:"maturity_date"`
	TotalDeposits   decimal.Decimal `json:"total_deposits"`
	PendingLoan     decimal.Decimal `json:"pending_loan"`
	MonthsCompleted int             `json:"months_completed"`
	RemainingMonths int             `json:"remaining_months"`
	MonthlyRate     decimal.Decimal `json:"monthly_rate"`
	CurrentInterest decimal.Decimal `json:"current_interest"`
	FullInterest    decimal.Decimal `json:"full_interest"`
	NetPayable      decimal.Decimal `json:"net_payable"`
	Status          string          `json:"status"`
	CalculatedAt    time.Time       `json:"calculated_at"`
}

// ClaimResult is the outcome of a maturity claim
type ClaimResult struct {
	Record  *models.MaturityRecord `json:"record"`
	Entry   *models.LedgerEntry    `json:"entry,omitempty"`
	Payout  decimal.Decimal        `json:"payout"`
	Message string                 `json:"message"`
}

// MaturityBatchResult tallies a refresh of every active member
type MaturityBatchResult struct {
	Total     int                  `json:"total"`
	Updated   int                  `json:"updated"`
	Skipped   int                  `json:"skipped"`
	Failed    int                  `json:"failed"`
	Cancelled bool                 `json:"cancelled"`
	Errors    []MaturityBatchError `json:"errors"`
	StartedAt time.Time            `json:"started_at"`
	Duration  time.Duration        `json:"duration_ns"`
}

// MaturityBatchError is one member's failure in a batch
type MaturityBatchError struct {
	MemberID uint   `json:"member_id"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// MaturityService projects, materializes and pays out member maturity
type MaturityService struct {
	store  repository.Store
	rules  config.Lending
	ledger *LedgerService
	audit  *AuditService
}

func NewMaturityService(store repository.Store, rules config.Lending, ledger *LedgerService, audit *AuditService) *MaturityService {
	return &MaturityService{store: store, rules: rules, ledger: ledger, audit: audit}
}

// CalculateMaturity projects the member's maturity without writing anything
func (s *MaturityService) CalculateMaturity(ctx context.Context, memberID uint) (*MaturityProjection, error) {
	repos := s.store.Repos()
	member, err := repos.Member.FindByID(ctx, memberID)
	if err != nil {
		return nil, lookupError(err, ErrMemberNotFound, "load member")
	}
	return s.project(ctx, repos, member.ID, member.JoiningDate, now())
}

// project computes simple (non-compounding) interest on the deposit total:
// deposits × monthly rate × completed months
func (s *MaturityService) project(ctx context.Context, r *repository.Repositories, memberID uint, start, at time.Time) (*MaturityProjection, error) {
	deposits, err := s.ledger.depositsIn(ctx, r, memberID)
	if err != nil {
		return nil, err
	}
	pending, err := r.Loan.SumActiveRemaining(ctx, memberID)
	if err != nil {
		return nil, persistenceError("sum pending loans", err)
	}

	months := 0
	if elapsed := at.Sub(start); elapsed > 0 {
		months = int(elapsed / maturityMonth)
	}
	remaining := s.rules.MaturityTenureMonths - months
	if remaining < 0 {
		remaining = 0
	}

	p := &MaturityProjection{
		MemberID:        memberID,
		StartDate:       start,
		MaturityDate:    start.AddDate(0, s.rules.MaturityTenureMonths, 0),
		TotalDeposits:   deposits,
		PendingLoan:     pending,
		MonthsCompleted: months,
		RemainingMonths: remaining,
		MonthlyRate:     s.rules.MaturityMonthlyRate,
		CurrentInterest: interestFor(deposits, s.rules.MaturityMonthlyRate, months),
		FullInterest:    interestFor(deposits, s.rules.MaturityMonthlyRate, s.rules.MaturityTenureMonths),
		Status:          models.MaturityStatusActive,
		CalculatedAt:    at,
	}
	p.NetPayable = floorZero(deposits.Add(p.CurrentInterest).Sub(pending)).Round(2)
	if !at.Before(p.MaturityDate) {
		p.Status = models.MaturityStatusMatured
	}
	return p, nil
}

func interestFor(deposits, rate decimal.Decimal, months int) decimal.Decimal {
	if !deposits.IsPositive() {
		return decimal.Zero
	}
	return deposits.Mul(rate).Mul(decimal.NewFromInt(int64(months))).Round(2)
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// CreateOrUpdateMaturityRecord upserts the member's record. The start date
// is fixed when the record is first created; claimed records are never
// recomputed and manual interest adjustments are kept.
func (s *MaturityService) CreateOrUpdateMaturityRecord(ctx context.Context, memberID uint, manualOverride bool) (*models.MaturityRecord, error) {
	var record *models.MaturityRecord
	var created bool
	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		member, err := r.Member.FindByID(ctx, memberID)
		if err != nil {
			return lookupError(err, ErrMemberNotFound, "load member")
		}

		record, err = r.Maturity.FindByMemberForUpdate(ctx, memberID)
		switch {
		case repository.IsNotFound(err):
			created = true
			record = &models.MaturityRecord{
				MemberID:  memberID,
				StartDate: member.JoiningDate,
				Status:    models.MaturityStatusActive,
			}
		case err != nil:
			return persistenceError("load maturity record", err)
		case record.IsClaimed():
			return ErrMaturityAlreadyClaimed.WithDetails(map[string]any{"record_id": record.ID})
		}

		projection, err := s.project(ctx, r, memberID, record.StartDate, now())
		if err != nil {
			return err
		}
		if err := s.applyProjection(ctx, record, projection, manualOverride); err != nil {
			return err
		}

		if created {
			err = r.Maturity.Create(ctx, record)
		} else {
			err = r.Maturity.Update(ctx, record)
		}
		if err != nil {
			return persistenceError("save maturity record", err)
		}
		return nil
	})
	if err != nil {
		return nil, persistenceError("refresh maturity record", err)
	}

	logger.FromContext(ctx).Debug("Maturity record refreshed",
		"record_id", record.ID, "member_id", memberID, "created", created,
		"status", record.Status, "net_payable", record.NetPayable)
	return record, nil
}

// applyProjection copies computed values onto the record. Status only moves forward.
func (s *MaturityService) applyProjection(ctx context.Context, record *models.MaturityRecord, p *MaturityProjection, manualOverride bool) error {
	record.TotalDeposit = p.TotalDeposits
	record.MaturityDate = p.MaturityDate
	record.MonthsCompleted = p.MonthsCompleted
	record.RemainingMonths = p.RemainingMonths
	record.CurrentInterest = p.CurrentInterest
	record.FullInterest = p.FullInterest
	record.LoanAdjustment = p.PendingLoan

	if manualOverride && !record.ManualOverride {
		record.ManualOverride = true
		if record.AdjustedInterest.IsZero() {
			record.AdjustedInterest = p.CurrentInterest
		}
	}
	record.NetPayable = record.ComputeNetPayable()

	if p.Status == models.MaturityStatusMatured && record.Status == models.MaturityStatusActive {
		if err := statemachine.NewMaturityFSM(record).Mature(ctx); err != nil {
			return ErrMaturityNotMatured.Wrap(err)
		}
	}
	return nil
}

// ClaimMaturity pays out a matured record. The claimed status is committed
// before the payout deposit is posted, so a retried or concurrent claim is
// rejected instead of paying twice.
func (s *MaturityService) ClaimMaturity(ctx context.Context, recordID uint) (*ClaimResult, error) {
	var record *models.MaturityRecord
	var payout decimal.Decimal
	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		var err error
		record, err = r.Maturity.FindByIDForUpdate(ctx, recordID)
		if err != nil {
			return lookupError(err, ErrMaturityRecordNotFound, "load maturity record")
		}
		if record.IsClaimed() {
			return ErrMaturityAlreadyClaimed.WithDetails(map[string]any{"record_id": record.ID})
		}
		if !record.MayClaim() {
			return ErrMaturityNotMatured.WithDetails(map[string]any{
				"record_id":     record.ID,
				"status":        record.Status,
				"maturity_date": record.MaturityDate,
			})
		}

		payout = record.ComputeNetPayable()
		claimedAt := now()
		flipped, err := r.Maturity.MarkClaimed(ctx, record.ID, payout, claimedAt)
		if err != nil {
			return persistenceError("mark maturity claimed", err)
		}
		if !flipped {
			return ErrMaturityAlreadyClaimed.WithDetails(map[string]any{"record_id": record.ID})
		}
		if err := statemachine.NewMaturityFSM(record).Claim(ctx, claimedAt); err != nil {
			return ErrMaturityNotMatured.Wrap(err)
		}
		record.NetPayable = payout
		return nil
	})
	if err != nil {
		return nil, persistenceError("claim maturity", err)
	}

	log := logger.FromContext(ctx)
	result := &ClaimResult{Record: record, Payout: payout}
	s.audit.Log(ctx, AuditClaim, "MaturityRecord", record.ID,
		fmt.Sprintf("maturity claimed by member %d, payout %s", record.MemberID, payout.StringFixed(2)))

	if !payout.IsPositive() {
		result.Message = "Maturity claimed; nothing to pay out after loan adjustment"
		log.Info("Maturity claimed without payout", "record_id", record.ID, "member_id", record.MemberID)
		return result, nil
	}

	posted, err := s.ledger.CreateEntry(ctx, CreateEntryRequest{
		MemberID:    record.MemberID,
		Kind:        models.EntryKindDeposit,
		Amount:      payout,
		Mode:        models.ModeBank,
		Description: fmt.Sprintf("Maturity payout for record #%d", record.ID),
	})
	if err != nil {
		log.Error("Maturity claimed but payout entry failed", "record_id", record.ID, "member_id", record.MemberID, "payout", payout, "error", err)
		return nil, persistenceError("post maturity payout", err)
	}

	if err := s.store.Repos().Maturity.SetPayoutEntry(ctx, record.ID, posted.Entry.ID); err != nil {
		log.Error("Failed to link payout entry to maturity record", "record_id", record.ID, "entry_id", posted.Entry.ID, "error", err)
		return nil, persistenceError("link payout entry", err)
	}
	record.PayoutEntryID = &posted.Entry.ID

	result.Entry = posted.Entry
	result.Message = fmt.Sprintf("Maturity payout of %s credited to member %d", payout.StringFixed(2), record.MemberID)
	log.Info("Maturity claimed", "record_id", record.ID, "member_id", record.MemberID, "payout", payout, "entry_id", posted.Entry.ID)
	return result, nil
}

// UpdateAllMaturityRecords refreshes every active member in its own
// transaction. A member's failure is counted and never stops the batch.
func (s *MaturityService) UpdateAllMaturityRecords(ctx context.Context) (*MaturityBatchResult, error) {
	result := &MaturityBatchResult{StartedAt: now(), Errors: []MaturityBatchError{}}
	log := logger.FromContext(ctx)

	ids, err := s.store.Repos().Member.FindActiveIDs(ctx)
	if err != nil {
		return result, persistenceError("list active members", err)
	}
	result.Total = len(ids)

	for _, id := range ids {
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}

		_, err := s.CreateOrUpdateMaturityRecord(ctx, id, false)
		switch {
		case err == nil:
			result.Updated++
		case errors.Is(err, ErrMaturityAlreadyClaimed):
			result.Skipped++
		default:
			result.Failed++
			result.Errors = append(result.Errors, batchError(id, err))
			log.Warn("Maturity refresh failed for member", "member_id", id, "error", err)
		}
	}

	result.Duration = time.Since(result.StartedAt)
	log.Info("Maturity refresh finished",
		"total", result.Total, "updated", result.Updated, "skipped", result.Skipped,
		"failed", result.Failed, "cancelled", result.Cancelled, "duration", result.Duration)
	return result, nil
}

func batchError(memberID uint, err error) MaturityBatchError {
	be := MaturityBatchError{MemberID: memberID, Code: "INTERNAL_ERROR", Message: "refresh failed"}
	var typed *Error
	if errors.As(err, &typed) {
		be.Code = typed.Code
		be.Message = typed.Message
	}
	return be
}

// GetMembersApproachingMaturity lists active records maturing within the window
func (s *MaturityService) GetMembersApproachingMaturity(ctx context.Context) ([]models.MaturityRecord, error) {
	from := now()
	to := from.AddDate(0, s.rules.MaturityWindowMonths, 0)
	records, err := s.store.Repos().Maturity.FindMaturingBetween(ctx, from, to)
	if err != nil {
		return nil, persistenceError("list approaching maturity", err)
	}
	return records, nil
}

// AdjustMaturityInterest overrides the interest used for the payout
func (s *MaturityService) AdjustMaturityInterest(ctx context.Context, recordID uint, interest decimal.Decimal, reason string) (*models.MaturityRecord, error) {
	if interest.IsNegative() {
		return nil, ErrInvalidAmount.WithDetails(map[string]any{"field": "interest", "reason": "must not be negative"})
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrInvalidInput.WithDetails(map[string]any{"field": "reason", "reason": "is required"})
	}

	var record *models.MaturityRecord
	var previous decimal.Decimal
	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		var err error
		record, err = r.Maturity.FindByIDForUpdate(ctx, recordID)
		if err != nil {
			return lookupError(err, ErrMaturityRecordNotFound, "load maturity record")
		}
		if record.IsClaimed() {
			return ErrMaturityAlreadyClaimed.WithDetails(map[string]any{"record_id": record.ID})
		}

		previous = record.PayableInterest()
		record.AdjustedInterest = interest.Round(2)
		record.ManualOverride = true
		record.AdjustmentReason = &reason
		record.NetPayable = record.ComputeNetPayable()

		if err := r.Maturity.Update(ctx, record); err != nil {
			return persistenceError("save maturity record", err)
		}
		return nil
	})
	if err != nil {
		return nil, persistenceError("adjust maturity interest", err)
	}

	logger.FromContext(ctx).Info("Maturity interest adjusted",
		"record_id", recordID, "previous", previous, "interest", record.AdjustedInterest)
	s.audit.Log(ctx, AuditAdjust, "MaturityRecord", recordID,
		fmt.Sprintf("interest %s -> %s: %s", previous.StringFixed(2), record.AdjustedInterest.StringFixed(2), reason))

	return record, nil
}

// GetMaturityRecord returns the stored record of a member
func (s *MaturityService) GetMaturityRecord(ctx context.Context, memberID uint) (*models.MaturityRecord, error) {
	record, err := s.store.Repos().Maturity.FindByMember(ctx, memberID)
	if err != nil {
		return nil, lookupError(err, ErrMaturityRecordNotFound, "load maturity record")
	}
	return record, nil
}
