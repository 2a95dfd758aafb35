package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/society-ledger/internal/config"
	"github.com/sjperalta/society-ledger/internal/models"
	"github.com/sjperalta/society-ledger/internal/repository"
	"github.com/sjperalta/society-ledger/internal/statemachine"
	"github.com/sjperalta/society-ledger/pkg/logger"
)

// LoanValidation is the underwriting decision for a requested amount. The
// ceiling, deposits and existing loans are filled in whether or not the
// request is approved.
type LoanValidation struct {
	Approved        bool            `json:"approved"`
	Code            string          `json:"code,omitempty"`
	Reason          string          `json:"reason,omitempty"`
	OverrideApplied bool            `json:"override_applied"`
	RequestedAmount decimal.Decimal `json:"requested_amount"`
	MaxLoanAmount   decimal.Decimal `json:"max_loan_amount"`
	TotalDeposits   decimal.Decimal `json:"total_deposits"`
	ExistingLoans   []models.Loan   `json:"existing_loans"`
}

// CreateLoanRequest asks for a new loan. Override bypasses the ceiling,
// the single active loan rule and the minimum amount.
type CreateLoanRequest struct {
	MemberID uint
	Amount   decimal.Decimal
	Override bool
	Notes    string
}

// LoanPaymentResult reports how a payment was split
type LoanPaymentResult struct {
	Loan      *models.Loan    `json:"loan"`
	Interest  decimal.Decimal `json:"interest"`
	Principal decimal.Decimal `json:"principal"`
	Closed    bool            `json:"closed"`
}

// LoanDetail is a loan with the entries that paid it down
type LoanDetail struct {
	Loan      *models.Loan         `json:"loan"`
	Entries   []models.LedgerEntry `json:"entries"`
	TotalPaid decimal.Decimal      `json:"total_paid"`
	Overdue   bool                 `json:"overdue"`
}

// LoanStats aggregates a member's loans
type LoanStats struct {
	MemberID       uint            `json:"member_id"`
	TotalLoans     int             `json:"total_loans"`
	ActiveLoans    int             `json:"active_loans"`
	ClosedLoans    int             `json:"closed_loans"`
	OverdueLoans   int             `json:"overdue_loans"`
	TotalPrincipal decimal.Decimal `json:"total_principal"`
	TotalRemaining decimal.Decimal `json:"total_remaining"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
}

// LoanService underwrites loans and tracks their lifecycle
type LoanService struct {
	store  repository.Store
	rules  config.Lending
	ledger *LedgerService
	audit  *AuditService
}

func NewLoanService(store repository.Store, rules config.Lending, ledger *LedgerService, audit *AuditService) *LoanService {
	return &LoanService{store: store, rules: rules, ledger: ledger, audit: audit}
}

// ValidateLoanRequest decides whether amount may be lent to the member
func (s *LoanService) ValidateLoanRequest(ctx context.Context, memberID uint, amount decimal.Decimal, override bool) (*LoanValidation, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount.WithDetails(map[string]any{"field": "amount", "reason": "must be greater than zero"})
	}
	repos := s.store.Repos()
	if _, err := repos.Member.FindByID(ctx, memberID); err != nil {
		return nil, lookupError(err, ErrMemberNotFound, "load member")
	}
	existing, err := repos.Loan.FindByMember(ctx, memberID, false)
	if err != nil {
		return nil, persistenceError("load active loans", err)
	}
	return s.evaluate(ctx, repos, memberID, amount.Round(2), override, existing)
}

// evaluate applies the underwriting rules in priority order: ceiling,
// existing active loan, minimum amount
func (s *LoanService) evaluate(ctx context.Context, r *repository.Repositories, memberID uint, amount decimal.Decimal, override bool, activeLoans []models.Loan) (*LoanValidation, error) {
	deposits, err := s.ledger.depositsIn(ctx, r, memberID)
	if err != nil {
		return nil, err
	}

	if activeLoans == nil {
		activeLoans = []models.Loan{}
	}
	v := &LoanValidation{
		Approved:        true,
		RequestedAmount: amount,
		TotalDeposits:   deposits,
		MaxLoanAmount:   deposits.Mul(s.rules.LoanToDepositRatio).Round(2),
		ExistingLoans:   activeLoans,
	}
	if v.MaxLoanAmount.IsNegative() {
		v.MaxLoanAmount = decimal.Zero
	}

	var rejection *Error
	switch {
	case amount.GreaterThan(v.MaxLoanAmount):
		rejection = ErrLoanExceedsCeiling
		v.Reason = fmt.Sprintf("loan amount exceeds the maximum of %s (%s%% of deposits)",
			v.MaxLoanAmount.StringFixed(2), s.rules.LoanToDepositRatio.Mul(decimal.NewFromInt(100)).String())
	case len(activeLoans) > 0:
		rejection = ErrActiveLoanExists
		v.Reason = "member already has an active loan"
	case amount.LessThan(s.rules.LoanMinAmount):
		rejection = ErrLoanBelowMinimum
		v.Reason = fmt.Sprintf("minimum loan amount is %s", s.rules.LoanMinAmount.StringFixed(2))
	}

	if rejection != nil {
		if override {
			v.OverrideApplied = true
			v.Reason = "override: " + v.Reason
		} else {
			v.Approved = false
			v.Code = rejection.Code
		}
	}
	return v, nil
}

// rejectionError turns a declined validation into its typed error
func rejectionError(v *LoanValidation) error {
	var base *Error
	switch v.Code {
	case ErrLoanExceedsCeiling.Code:
		base = ErrLoanExceedsCeiling
	case ErrActiveLoanExists.Code:
		base = ErrActiveLoanExists
	default:
		base = ErrLoanBelowMinimum
	}

	ids := make([]uint, len(v.ExistingLoans))
	for i, l := range v.ExistingLoans {
		ids[i] = l.ID
	}
	rejected := base.WithDetails(map[string]any{
		"requested_amount":  v.RequestedAmount,
		"max_loan_amount":   v.MaxLoanAmount,
		"total_deposits":    v.TotalDeposits,
		"existing_loan_ids": ids,
	})
	rejected.Message = v.Reason
	return rejected
}

// CreateLoan re-validates the request with the member row locked and issues the loan
func (s *LoanService) CreateLoan(ctx context.Context, req CreateLoanRequest) (*models.Loan, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount.WithDetails(map[string]any{"field": "amount", "reason": "must be greater than zero"})
	}
	amount := req.Amount.Round(2)

	var loan *models.Loan
	var decision *LoanValidation
	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		if _, err := r.Member.FindByIDForUpdate(ctx, req.MemberID); err != nil {
			return lookupError(err, ErrMemberNotFound, "lock member")
		}
		active, err := r.Loan.FindActiveByMemberForUpdate(ctx, req.MemberID)
		if err != nil {
			return persistenceError("load active loans", err)
		}

		decision, err = s.evaluate(ctx, r, req.MemberID, amount, req.Override, active)
		if err != nil {
			return err
		}
		if !decision.Approved {
			return rejectionError(decision)
		}

		issued := now()
		loan = &models.Loan{
			MemberID:         req.MemberID,
			LoanAmount:       amount,
			RemainingBalance: amount,
			InterestRate:     s.rules.LoanMonthlyRate,
			Status:           models.LoanStatusActive,
			NextDueDate:      issued.AddDate(0, 0, s.rules.LoanTermDays),
			OverrideEnabled:  req.Override,
		}
		if notes := strings.TrimSpace(req.Notes); notes != "" {
			loan.Notes = &notes
		}
		if err := r.Loan.Create(ctx, loan); err != nil {
			return persistenceError("create loan", err)
		}
		return nil
	})
	if err != nil {
		return nil, persistenceError("create loan", err)
	}

	logger.FromContext(ctx).Info("Loan created",
		"loan_id", loan.ID, "member_id", req.MemberID, "amount", amount,
		"max_loan_amount", decision.MaxLoanAmount, "override", decision.OverrideApplied)
	s.audit.Log(ctx, AuditCreate, "Loan", loan.ID,
		fmt.Sprintf("loan of %s issued to member %d (ceiling %s, override %t)",
			amount.StringFixed(2), req.MemberID, decision.MaxLoanAmount.StringFixed(2), decision.OverrideApplied))

	return loan, nil
}

// UpdateLoanBalance applies a payment interest first: the interest due is
// balance × rate and only the remainder reduces the principal. This is a
// separate rule from ledger installments, which deduct the full amount.
func (s *LoanService) UpdateLoanBalance(ctx context.Context, loanID uint, payment decimal.Decimal) (*LoanPaymentResult, error) {
	if !payment.IsPositive() {
		return nil, ErrInvalidAmount.WithDetails(map[string]any{"field": "amount", "reason": "must be greater than zero"})
	}
	payment = payment.Round(2)

	var result *LoanPaymentResult
	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		loan, err := r.Loan.FindByIDForUpdate(ctx, loanID)
		if err != nil {
			return lookupError(err, ErrLoanNotFound, "load loan")
		}
		if !loan.IsActive() {
			return ErrLoanClosed.WithDetails(map[string]any{"loan_id": loan.ID})
		}

		interest := loan.RemainingBalance.Mul(loan.InterestRate).Round(2)
		if payment.LessThan(interest) {
			return ErrPaymentBelowInterest.WithDetails(map[string]any{
				"interest_due": interest,
				"payment":      payment,
			})
		}
		principal := payment.Sub(interest)

		balance := loan.RemainingBalance.Sub(principal)
		if balance.IsNegative() {
			balance = decimal.Zero
		}
		loan.RemainingBalance = balance

		closed := false
		if balance.IsZero() {
			if err := statemachine.NewLoanFSM(loan).Settle(ctx, now()); err != nil {
				return ErrLoanClosed.Wrap(err)
			}
			closed = true
		}
		if err := r.Loan.Update(ctx, loan); err != nil {
			return persistenceError("update loan balance", err)
		}

		result = &LoanPaymentResult{Loan: loan, Interest: interest, Principal: principal, Closed: closed}
		return nil
	})
	if err != nil {
		return nil, persistenceError("update loan balance", err)
	}

	logger.FromContext(ctx).Info("Loan payment applied",
		"loan_id", loanID, "payment", payment, "interest", result.Interest,
		"principal", result.Principal, "closed", result.Closed)
	s.audit.Log(ctx, AuditPay, "Loan", loanID,
		fmt.Sprintf("payment %s: interest %s, principal %s, balance %s", payment.StringFixed(2),
			result.Interest.StringFixed(2), result.Principal.StringFixed(2), result.Loan.RemainingBalance.StringFixed(2)))

	return result, nil
}

// CloseLoan force-closes a loan regardless of repayment
func (s *LoanService) CloseLoan(ctx context.Context, loanID uint, reason string) (*models.Loan, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrInvalidInput.WithDetails(map[string]any{"field": "reason", "reason": "is required"})
	}

	var loan *models.Loan
	var writtenOff decimal.Decimal
	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		var err error
		loan, err = r.Loan.FindByIDForUpdate(ctx, loanID)
		if err != nil {
			return lookupError(err, ErrLoanNotFound, "load loan")
		}
		if !loan.IsActive() {
			return ErrLoanClosed.WithDetails(map[string]any{"loan_id": loan.ID})
		}
		writtenOff = loan.RemainingBalance

		if err := statemachine.NewLoanFSM(loan).Close(ctx, now(), reason); err != nil {
			return ErrLoanClosed.Wrap(err)
		}
		if err := r.Loan.Update(ctx, loan); err != nil {
			return persistenceError("close loan", err)
		}
		return nil
	})
	if err != nil {
		return nil, persistenceError("close loan", err)
	}

	logger.FromContext(ctx).Warn("Loan closed by administrator", "loan_id", loanID, "written_off", writtenOff, "reason", reason)
	s.audit.Log(ctx, AuditClose, "Loan", loanID,
		fmt.Sprintf("closed with %s outstanding: %s", writtenOff.StringFixed(2), reason))

	return loan, nil
}

// ListMemberLoans returns the member's loans, newest first
func (s *LoanService) ListMemberLoans(ctx context.Context, memberID uint, includeClosed bool) ([]models.Loan, error) {
	repos := s.store.Repos()
	if _, err := repos.Member.FindByID(ctx, memberID); err != nil {
		return nil, lookupError(err, ErrMemberNotFound, "load member")
	}
	loans, err := repos.Loan.FindByMember(ctx, memberID, includeClosed)
	if err != nil {
		return nil, persistenceError("list loans", err)
	}
	return loans, nil
}

// GetLoan returns a loan with its entry history
func (s *LoanService) GetLoan(ctx context.Context, loanID uint) (*LoanDetail, error) {
	repos := s.store.Repos()
	loan, err := repos.Loan.FindByID(ctx, loanID)
	if err != nil {
		return nil, lookupError(err, ErrLoanNotFound, "load loan")
	}
	entries, err := repos.Ledger.FindByLoan(ctx, loanID)
	if err != nil {
		return nil, persistenceError("load loan entries", err)
	}

	paid := decimal.Zero
	for _, e := range entries {
		paid = paid.Add(e.LoanInstallment)
	}
	return &LoanDetail{Loan: loan, Entries: entries, TotalPaid: paid, Overdue: loan.IsOverdue(now())}, nil
}

func (s *LoanService) ListActiveLoans(ctx context.Context) ([]models.Loan, error) {
	loans, err := s.store.Repos().Loan.FindActive(ctx)
	if err != nil {
		return nil, persistenceError("list active loans", err)
	}
	return loans, nil
}

// ListOverdueLoans returns active loans past their due date
func (s *LoanService) ListOverdueLoans(ctx context.Context) ([]models.Loan, error) {
	loans, err := s.store.Repos().Loan.FindOverdue(ctx, now())
	if err != nil {
		return nil, persistenceError("list overdue loans", err)
	}
	return loans, nil
}

// GetMemberLoanStats aggregates every loan of the member. TotalPaid sums the
// installments of the entries linked to those loans.
func (s *LoanService) GetMemberLoanStats(ctx context.Context, memberID uint) (*LoanStats, error) {
	loans, err := s.ListMemberLoans(ctx, memberID, true)
	if err != nil {
		return nil, err
	}

	stats := &LoanStats{
		MemberID:       memberID,
		TotalLoans:     len(loans),
		TotalPrincipal: decimal.Zero,
		TotalRemaining: decimal.Zero,
	}
	current := now()
	ids := make([]uint, 0, len(loans))
	for i := range loans {
		loan := &loans[i]
		ids = append(ids, loan.ID)
		stats.TotalPrincipal = stats.TotalPrincipal.Add(loan.LoanAmount)
		if loan.IsActive() {
			stats.ActiveLoans++
			stats.TotalRemaining = stats.TotalRemaining.Add(loan.RemainingBalance)
		} else {
			stats.ClosedLoans++
		}
		if loan.IsOverdue(current) {
			stats.OverdueLoans++
		}
	}

	stats.TotalPaid, err = s.store.Repos().Ledger.SumInstallmentsForLoans(ctx, ids)
	if err != nil {
		return nil, persistenceError("sum loan installments", err)
	}
	return stats, nil
}
