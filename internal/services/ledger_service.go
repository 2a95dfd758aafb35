package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/society-ledger/internal/config"
	"github.com/sjperalta/society-ledger/internal/models"
	"github.com/sjperalta/society-ledger/internal/repository"
	"github.com/sjperalta/society-ledger/internal/statemachine"
	"github.com/sjperalta/society-ledger/pkg/logger"
)

// CreateEntryRequest records one cash event. Amount is used by every kind
// except MIXED, which reads the split fields instead.
type CreateEntryRequest struct {
	MemberID          uint
	Kind              string
	Amount            decimal.Decimal
	DepositAmount     decimal.Decimal
	InstallmentAmount decimal.Decimal
	InterestAmount    decimal.Decimal
	FineAmount        decimal.Decimal
	LoanID            *uint
	Mode              string
	TransactionDate   time.Time
	Description       string
}

// CreateEntryResult reports the entry and which derived positions moved
type CreateEntryResult struct {
	Entry          *models.LedgerEntry `json:"entry"`
	Loan           *models.Loan        `json:"loan,omitempty"`
	LoanUpdated    bool                `json:"loan_updated"`
	LoanClosed     bool                `json:"loan_closed"`
	DepositUpdated bool                `json:"deposit_updated"`
}

// UpdateEntryRequest changes the monetary fields of an entry. Nil fields are left unchanged.
type UpdateEntryRequest struct {
	EntryID           uint
	MemberID          uint
	DepositAmount     *decimal.Decimal
	InstallmentAmount *decimal.Decimal
	FineAmount        *decimal.Decimal
	LoanID            *uint
	Mode              *string
	TransactionDate   *time.Time
	Description       *string
}

// UpdateEntryResult reports the updated entry and the loan reversal applied to it
type UpdateEntryResult struct {
	Entry               *models.LedgerEntry `json:"entry"`
	Loan                *models.Loan        `json:"loan,omitempty"`
	PreviousInstallment decimal.Decimal     `json:"previous_installment"`
	PreviousBalance     *decimal.Decimal    `json:"previous_balance,omitempty"`
	LoanUpdated         bool                `json:"loan_updated"`
	LoanClosed          bool                `json:"loan_closed"`
	LoanReopened        bool                `json:"loan_reopened"`
}

// DeleteEntryResult reports the deleted entry and any loan balance restored by it
type DeleteEntryResult struct {
	Entry       *models.LedgerEntry `json:"entry"`
	Loan        *models.Loan        `json:"loan,omitempty"`
	LoanUpdated bool                `json:"loan_updated"`
}

// MemberSummary is the member's financial position, aggregated on read
type MemberSummary struct {
	MemberID          uint            `json:"member_id"`
	MemberCode        string          `json:"member_code"`
	FullName          string          `json:"full_name"`
	TotalDeposits     decimal.Decimal `json:"total_deposits"`
	TotalInstallments decimal.Decimal `json:"total_installments"`
	TotalFines        decimal.Decimal `json:"total_fines"`
	CurrentBalance    decimal.Decimal `json:"current_balance"`
	OutstandingLoan   decimal.Decimal `json:"outstanding_loan"`
	ActiveLoans       int             `json:"active_loans"`
	EntryCount        int64           `json:"entry_count"`
}

// LedgerService records member cash movements and is the only writer of
// loan balance changes caused by installments
type LedgerService struct {
	store repository.Store
	rules config.Lending
	audit *AuditService
}

func NewLedgerService(store repository.Store, rules config.Lending, audit *AuditService) *LedgerService {
	return &LedgerService{store: store, rules: rules, audit: audit}
}

// CreateEntry records a cash event and applies its loan effect in one transaction
func (s *LedgerService) CreateEntry(ctx context.Context, req CreateEntryRequest) (*CreateEntryResult, error) {
	if err := validateCreateEntry(&req); err != nil {
		return nil, err
	}

	var result *CreateEntryResult
	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		var err error
		result, err = s.createEntry(ctx, r, req)
		return err
	})
	if err != nil {
		return nil, persistenceError("create ledger entry", err)
	}

	logger.FromContext(ctx).Info("Ledger entry created",
		"entry_id", result.Entry.ID, "member_id", req.MemberID, "kind", req.Kind,
		"loan_updated", result.LoanUpdated, "loan_closed", result.LoanClosed)
	s.audit.Log(ctx, AuditCreate, "LedgerEntry", result.Entry.ID,
		fmt.Sprintf("%s entry %s for member %d", req.Kind, result.Entry.Reference, req.MemberID))

	return result, nil
}

func validateCreateEntry(req *CreateEntryRequest) error {
	if req.MemberID == 0 {
		return ErrInvalidInput.WithDetails(map[string]any{"field": "member_id"})
	}
	if !models.IsValidEntryKind(req.Kind) {
		return ErrInvalidEntryKind.WithDetails(map[string]any{"kind": req.Kind})
	}
	if req.Mode == "" {
		req.Mode = models.ModeCash
	}
	if !models.IsValidMode(req.Mode) {
		return ErrInvalidMode.WithDetails(map[string]any{"mode": req.Mode})
	}

	amounts := map[string]*decimal.Decimal{
		"amount":             &req.Amount,
		"deposit_amount":     &req.DepositAmount,
		"installment_amount": &req.InstallmentAmount,
		"interest_amount":    &req.InterestAmount,
		"fine_amount":        &req.FineAmount,
	}
	for field, amount := range amounts {
		if amount.IsNegative() {
			return ErrInvalidAmount.WithDetails(map[string]any{"field": field, "reason": "must not be negative"})
		}
		*amount = amount.Round(2)
	}

	if req.Kind == models.EntryKindMixed {
		if !req.DepositAmount.IsPositive() && !req.InstallmentAmount.IsPositive() {
			return ErrInvalidAmount.WithDetails(map[string]any{"field": "deposit_amount", "reason": "a mixed entry needs a deposit or an installment"})
		}
	} else if !req.Amount.IsPositive() {
		return ErrInvalidAmount.WithDetails(map[string]any{"field": "amount", "reason": "must be greater than zero"})
	}
	return nil
}

func (s *LedgerService) createEntry(ctx context.Context, r *repository.Repositories, req CreateEntryRequest) (*CreateEntryResult, error) {
	if _, err := r.Member.FindByID(ctx, req.MemberID); err != nil {
		return nil, lookupError(err, ErrMemberNotFound, "load member")
	}

	txDate := req.TransactionDate
	if txDate.IsZero() {
		txDate = now()
	}

	entry := &models.LedgerEntry{
		MemberID:        req.MemberID,
		EntryType:       req.Kind,
		TransactionDate: txDate,
		Mode:            req.Mode,
		Description:     req.Description,
	}
	result := &CreateEntryResult{Entry: entry}

	switch req.Kind {
	case models.EntryKindDeposit, models.EntryKindOther:
		entry.DepositAmount = req.Amount
		result.DepositUpdated = true

	case models.EntryKindExpense:
		entry.DepositAmount = req.Amount.Neg()
		result.DepositUpdated = true

	case models.EntryKindFine:
		entry.FineAuto = req.Amount
		if req.LoanID != nil {
			loan, err := r.Loan.FindByID(ctx, *req.LoanID)
			if err != nil {
				return nil, lookupError(err, ErrLoanNotFound, "load loan")
			}
			if loan.MemberID != req.MemberID {
				return nil, ErrLoanNotFound
			}
			entry.LoanRequestID = &loan.ID
		}

	case models.EntryKindInstallment:
		if err := s.applyNewInstallment(ctx, r, entry, req.LoanID, req.Amount, result); err != nil {
			return nil, err
		}

	case models.EntryKindMixed:
		entry.DepositAmount = req.DepositAmount
		entry.FineAuto = req.FineAmount
		result.DepositUpdated = req.DepositAmount.IsPositive()
		if req.InstallmentAmount.IsPositive() {
			if err := s.applyNewInstallment(ctx, r, entry, req.LoanID, req.InstallmentAmount, result); err != nil {
				return nil, err
			}
			if req.InterestAmount.IsPositive() {
				entry.InterestAuto = req.InterestAmount
			}
		}
	}

	if err := r.Ledger.Create(ctx, entry); err != nil {
		return nil, persistenceError("save ledger entry", err)
	}
	return result, nil
}

// applyNewInstallment links entry to the member's active loan and deducts
// the full nominal amount from its balance
func (s *LedgerService) applyNewInstallment(ctx context.Context, r *repository.Repositories, entry *models.LedgerEntry, loanID *uint, amount decimal.Decimal, result *CreateEntryResult) error {
	loan, err := lockActiveLoan(ctx, r, entry.MemberID, loanID)
	if err != nil {
		return err
	}

	entry.InterestAuto = s.installmentInterest(loan.RemainingBalance)
	entry.LoanInstallment = amount
	entry.LoanRequestID = &loan.ID

	closed, err := s.setLoanBalance(ctx, r, loan, loan.RemainingBalance.Sub(amount))
	if err != nil {
		return err
	}

	result.Loan = loan
	result.LoanUpdated = true
	result.LoanClosed = closed
	return nil
}

// installmentInterest is informational and never reduces the loan
func (s *LedgerService) installmentInterest(balance decimal.Decimal) decimal.Decimal {
	return balance.Mul(s.rules.LoanMonthlyRate).Round(2)
}

// setLoanBalance clamps the new balance at zero, moves the loan between
// active and closed to match and saves it. It reports whether the loan closed.
func (s *LedgerService) setLoanBalance(ctx context.Context, r *repository.Repositories, loan *models.Loan, balance decimal.Decimal) (bool, error) {
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	loan.RemainingBalance = balance.Round(2)

	closed := false
	lfsm := statemachine.NewLoanFSM(loan)
	switch {
	case loan.RemainingBalance.IsZero() && loan.IsActive():
		if err := lfsm.Settle(ctx, now()); err != nil {
			return false, ErrLoanClosed.Wrap(err)
		}
		closed = true
	case loan.RemainingBalance.IsPositive() && !loan.IsActive():
		if err := lfsm.Reopen(ctx, now().AddDate(0, 0, s.rules.LoanTermDays)); err != nil {
			return false, ErrLoanClosed.Wrap(err).WithDetails(map[string]any{"loan_id": loan.ID})
		}
	}

	if err := r.Loan.Update(ctx, loan); err != nil {
		return false, persistenceError("update loan balance", err)
	}
	return closed, nil
}

// lockActiveLoan locks the loan an installment should pay down: the given
// loan when loanID is set, otherwise the member's only active loan
func lockActiveLoan(ctx context.Context, r *repository.Repositories, memberID uint, loanID *uint) (*models.Loan, error) {
	if loanID != nil {
		loan, err := r.Loan.FindByIDForUpdate(ctx, *loanID)
		if err != nil {
			return nil, lookupError(err, ErrLoanNotFound, "load loan")
		}
		if loan.MemberID != memberID {
			return nil, ErrLoanNotFound
		}
		if !loan.IsActive() {
			return nil, ErrNoActiveLoan.WithDetails(map[string]any{"loan_id": loan.ID})
		}
		return loan, nil
	}

	loans, err := r.Loan.FindActiveByMemberForUpdate(ctx, memberID)
	if err != nil {
		return nil, persistenceError("load active loans", err)
	}
	switch len(loans) {
	case 0:
		return nil, ErrNoActiveLoan
	case 1:
		return &loans[0], nil
	default:
		ids := make([]uint, len(loans))
		for i, l := range loans {
			ids[i] = l.ID
		}
		return nil, ErrMultipleActiveLoans.WithDetails(map[string]any{"loan_ids": ids})
	}
}

// UpdateEntry changes an entry's amounts. A changed installment first
// reverses the old amount on its loan and then applies the new one, so the
// balance becomes max(0, B + old - new). Loan and entry are saved in the same
// transaction.
func (s *LedgerService) UpdateEntry(ctx context.Context, req UpdateEntryRequest) (*UpdateEntryResult, error) {
	for field, amount := range map[string]*decimal.Decimal{
		"deposit_amount":     req.DepositAmount,
		"installment_amount": req.InstallmentAmount,
		"fine_amount":        req.FineAmount,
	} {
		if amount != nil && amount.IsNegative() {
			return nil, ErrInvalidAmount.WithDetails(map[string]any{"field": field, "reason": "must not be negative"})
		}
	}
	if req.Mode != nil && !models.IsValidMode(*req.Mode) {
		return nil, ErrInvalidMode.WithDetails(map[string]any{"mode": *req.Mode})
	}

	var result *UpdateEntryResult
	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		var err error
		result, err = s.updateEntry(ctx, r, req)
		return err
	})
	if err != nil {
		return nil, persistenceError("update ledger entry", err)
	}

	logger.FromContext(ctx).Info("Ledger entry updated",
		"entry_id", req.EntryID, "member_id", req.MemberID,
		"previous_installment", result.PreviousInstallment, "installment", result.Entry.LoanInstallment,
		"loan_updated", result.LoanUpdated)
	s.audit.Log(ctx, AuditUpdate, "LedgerEntry", req.EntryID,
		fmt.Sprintf("installment %s -> %s, deposit %s", result.PreviousInstallment.StringFixed(2),
			result.Entry.LoanInstallment.StringFixed(2), result.Entry.DepositAmount.StringFixed(2)))

	return result, nil
}

func (s *LedgerService) updateEntry(ctx context.Context, r *repository.Repositories, req UpdateEntryRequest) (*UpdateEntryResult, error) {
	entry, err := r.Ledger.FindByIDForUpdate(ctx, req.EntryID)
	if err != nil {
		return nil, lookupError(err, ErrEntryNotFound, "load ledger entry")
	}
	if entry.MemberID != req.MemberID {
		return nil, ErrEntryNotOwned
	}

	if err := guardPayoutEntry(ctx, r, entry.ID); err != nil {
		return nil, err
	}
	if req.LoanID != nil && entry.LoanRequestID != nil && entry.HasInstallment() && *req.LoanID != *entry.LoanRequestID {
		return nil, ErrLoanReassignment.WithDetails(map[string]any{
			"field":        "loan_id",
			"loan_id":      *entry.LoanRequestID,
			"requested_id": *req.LoanID,
		})
	}

	result := &UpdateEntryResult{Entry: entry, PreviousInstallment: entry.LoanInstallment}
	oldInstallment := entry.LoanInstallment
	newInstallment := oldInstallment
	if req.InstallmentAmount != nil {
		newInstallment = req.InstallmentAmount.Round(2)
	}

	if !newInstallment.Equal(oldInstallment) {
		if err := s.reapplyInstallment(ctx, r, entry, req.LoanID, oldInstallment, newInstallment, result); err != nil {
			return nil, err
		}
	}

	if req.DepositAmount != nil {
		deposit := req.DepositAmount.Round(2)
		if entry.EntryType == models.EntryKindExpense {
			deposit = deposit.Neg()
		}
		entry.DepositAmount = deposit
	}
	if req.FineAmount != nil {
		entry.FineAuto = req.FineAmount.Round(2)
	}
	if req.Mode != nil {
		entry.Mode = *req.Mode
	}
	if req.TransactionDate != nil {
		entry.TransactionDate = *req.TransactionDate
	}
	if req.Description != nil {
		entry.Description = *req.Description
	}

	if entry.DepositAmount.IsZero() && entry.LoanInstallment.IsZero() && entry.FineAuto.IsZero() {
		return nil, ErrInvalidAmount.WithDetails(map[string]any{"reason": "entry must carry at least one non-zero amount"})
	}
	entry.EntryType = deriveEntryKind(entry)

	if err := r.Ledger.Update(ctx, entry); err != nil {
		return nil, persistenceError("save ledger entry", err)
	}
	return result, nil
}

// reapplyInstallment moves the entry's loan effect from oldAmount to newAmount
func (s *LedgerService) reapplyInstallment(ctx context.Context, r *repository.Repositories, entry *models.LedgerEntry, loanID *uint, oldAmount, newAmount decimal.Decimal, result *UpdateEntryResult) error {
	var loan *models.Loan
	var reversed decimal.Decimal

	if oldAmount.IsPositive() && entry.LoanRequestID != nil {
		var err error
		loan, err = r.Loan.FindByIDForUpdate(ctx, *entry.LoanRequestID)
		if err != nil {
			return lookupError(err, ErrLoanNotFound, "load loan")
		}
		if loan.ClosedByAdmin() {
			return ErrEntryLinkedToClosedLoan.WithDetails(map[string]any{"loan_id": loan.ID})
		}
		reversed = loan.RemainingBalance.Add(oldAmount)
	} else {
		var err error
		loan, err = lockActiveLoan(ctx, r, entry.MemberID, loanID)
		if err != nil {
			return err
		}
		reversed = loan.RemainingBalance
		entry.LoanRequestID = &loan.ID
	}

	previous := loan.RemainingBalance
	wasActive := loan.IsActive()

	closed, err := s.setLoanBalance(ctx, r, loan, reversed.Sub(newAmount))
	if err != nil {
		return err
	}

	entry.LoanInstallment = newAmount
	if newAmount.IsPositive() {
		entry.InterestAuto = s.installmentInterest(reversed)
	} else {
		entry.InterestAuto = decimal.Zero
	}

	result.Loan = loan
	result.PreviousBalance = &previous
	result.LoanUpdated = true
	result.LoanClosed = closed
	result.LoanReopened = !wasActive && loan.IsActive()
	return nil
}

// guardPayoutEntry rejects changes to an entry that records a maturity payout
func guardPayoutEntry(ctx context.Context, r *repository.Repositories, entryID uint) error {
	record, err := r.Maturity.FindByPayoutEntry(ctx, entryID)
	switch {
	case err == nil:
		return ErrEntryIsMaturityPayout.WithDetails(map[string]any{"record_id": record.ID, "entry_id": entryID})
	case repository.IsNotFound(err):
		return nil
	default:
		return persistenceError("load maturity record", err)
	}
}

// deriveEntryKind keeps the kind consistent with the components an entry carries
func deriveEntryKind(entry *models.LedgerEntry) string {
	switch {
	case entry.LoanInstallment.IsPositive() && !entry.DepositAmount.IsZero():
		return models.EntryKindMixed
	case entry.LoanInstallment.IsPositive():
		return models.EntryKindInstallment
	case entry.EntryType == models.EntryKindInstallment || entry.EntryType == models.EntryKindMixed:
		if entry.DepositAmount.IsPositive() {
			return models.EntryKindDeposit
		}
		return models.EntryKindFine
	default:
		return entry.EntryType
	}
}

// DeleteEntry removes a member's entry. Entries of a closed loan are kept;
// an installment on an active loan is given back to the loan balance.
func (s *LedgerService) DeleteEntry(ctx context.Context, entryID, memberID uint) (*DeleteEntryResult, error) {
	var result *DeleteEntryResult
	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		entry, err := r.Ledger.FindByIDForUpdate(ctx, entryID)
		if err != nil {
			return lookupError(err, ErrEntryNotFound, "load ledger entry")
		}
		if entry.MemberID != memberID {
			return ErrEntryNotOwned
		}
		if err := guardPayoutEntry(ctx, r, entry.ID); err != nil {
			return err
		}
		result = &DeleteEntryResult{Entry: entry}

		if entry.LoanRequestID != nil {
			loan, err := r.Loan.FindByIDForUpdate(ctx, *entry.LoanRequestID)
			if err != nil {
				return lookupError(err, ErrLoanNotFound, "load loan")
			}
			if !loan.IsActive() {
				return ErrEntryLinkedToClosedLoan.WithDetails(map[string]any{"loan_id": loan.ID})
			}
			if entry.HasInstallment() {
				if _, err := s.setLoanBalance(ctx, r, loan, loan.RemainingBalance.Add(entry.LoanInstallment)); err != nil {
					return err
				}
				result.Loan = loan
				result.LoanUpdated = true
			}
		}

		if err := r.Ledger.Delete(ctx, entry.ID); err != nil {
			return persistenceError("delete ledger entry", err)
		}
		return nil
	})
	if err != nil {
		return nil, persistenceError("delete ledger entry", err)
	}

	logger.FromContext(ctx).Info("Ledger entry deleted", "entry_id", entryID, "member_id", memberID, "loan_updated", result.LoanUpdated)
	s.audit.Log(ctx, AuditDelete, "LedgerEntry", entryID,
		fmt.Sprintf("%s entry %s deleted", result.Entry.EntryType, result.Entry.Reference))

	return result, nil
}

// GetTotalDeposits sums the member's signed deposits; expenses reduce it
func (s *LedgerService) GetTotalDeposits(ctx context.Context, memberID uint) (decimal.Decimal, error) {
	return s.memberSum(ctx, memberID, "sum deposits", s.store.Repos().Ledger.SumDeposits)
}

func (s *LedgerService) GetTotalInstallments(ctx context.Context, memberID uint) (decimal.Decimal, error) {
	return s.memberSum(ctx, memberID, "sum installments", s.store.Repos().Ledger.SumInstallments)
}

// GetCurrentBalance is total deposits minus total installments
func (s *LedgerService) GetCurrentBalance(ctx context.Context, memberID uint) (decimal.Decimal, error) {
	deposits, err := s.GetTotalDeposits(ctx, memberID)
	if err != nil {
		return decimal.Zero, err
	}
	installments, err := s.GetTotalInstallments(ctx, memberID)
	if err != nil {
		return decimal.Zero, err
	}
	return deposits.Sub(installments), nil
}

func (s *LedgerService) memberSum(ctx context.Context, memberID uint, action string, sum func(context.Context, uint) (decimal.Decimal, error)) (decimal.Decimal, error) {
	if err := s.ensureMember(ctx, memberID); err != nil {
		return decimal.Zero, err
	}
	total, err := sum(ctx, memberID)
	if err != nil {
		return decimal.Zero, persistenceError(action, err)
	}
	return total, nil
}

// depositsIn reads the deposit total through the caller's repositories,
// so a transaction sees its own writes
func (s *LedgerService) depositsIn(ctx context.Context, r *repository.Repositories, memberID uint) (decimal.Decimal, error) {
	total, err := r.Ledger.SumDeposits(ctx, memberID)
	if err != nil {
		return decimal.Zero, persistenceError("sum deposits", err)
	}
	return total, nil
}

// GetTransactionHistory returns the newest entries first. A non-positive
// limit uses the default; larger limits are capped.
func (s *LedgerService) GetTransactionHistory(ctx context.Context, memberID uint, limit int) ([]models.LedgerEntry, error) {
	if err := s.ensureMember(ctx, memberID); err != nil {
		return nil, err
	}
	entries, err := s.store.Repos().Ledger.FindByMember(ctx, memberID, s.historyLimit(limit))
	if err != nil {
		return nil, persistenceError("load transaction history", err)
	}
	return entries, nil
}

func (s *LedgerService) historyLimit(limit int) int {
	switch {
	case limit <= 0:
		return s.rules.HistoryDefaultLimit
	case limit > s.rules.HistoryMaxLimit:
		return s.rules.HistoryMaxLimit
	default:
		return limit
	}
}

// GetMemberSummary aggregates the member's whole position
func (s *LedgerService) GetMemberSummary(ctx context.Context, memberID uint) (*MemberSummary, error) {
	repos := s.store.Repos()
	member, err := repos.Member.FindByID(ctx, memberID)
	if err != nil {
		return nil, lookupError(err, ErrMemberNotFound, "load member")
	}

	summary := &MemberSummary{MemberID: member.ID, MemberCode: member.MemberCode, FullName: member.FullName}
	if summary.TotalDeposits, err = repos.Ledger.SumDeposits(ctx, memberID); err != nil {
		return nil, persistenceError("sum deposits", err)
	}
	if summary.TotalInstallments, err = repos.Ledger.SumInstallments(ctx, memberID); err != nil {
		return nil, persistenceError("sum installments", err)
	}
	if summary.TotalFines, err = repos.Ledger.SumFines(ctx, memberID); err != nil {
		return nil, persistenceError("sum fines", err)
	}
	if summary.OutstandingLoan, err = repos.Loan.SumActiveRemaining(ctx, memberID); err != nil {
		return nil, persistenceError("sum outstanding loans", err)
	}
	if summary.EntryCount, err = repos.Ledger.CountByMember(ctx, memberID); err != nil {
		return nil, persistenceError("count entries", err)
	}
	active, err := repos.Loan.FindByMember(ctx, memberID, false)
	if err != nil {
		return nil, persistenceError("load active loans", err)
	}
	summary.ActiveLoans = len(active)
	summary.CurrentBalance = summary.TotalDeposits.Sub(summary.TotalInstallments)

	return summary, nil
}

func (s *LedgerService) ensureMember(ctx context.Context, memberID uint) error {
	if _, err := s.store.Repos().Member.FindByID(ctx, memberID); err != nil {
		return lookupError(err, ErrMemberNotFound, "load member")
	}
	return nil
}
