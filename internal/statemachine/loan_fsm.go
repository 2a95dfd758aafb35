package statemachine

import (
	"context"
	"fmt"
	"time"

	"github.com/looplab/fsm"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/society-ledger/internal/models"
)

// Loan events
const (
	LoanEventSettle = "settle"
	LoanEventClose  = "close"
	LoanEventReopen = "reopen"
)

// LoanFSM wraps a loan with its state machine
type LoanFSM struct {
	loan *models.Loan
	fsm  *fsm.FSM
}

// NewLoanFSM creates a new loan state machine
func NewLoanFSM(loan *models.Loan) *LoanFSM {
	lfsm := &LoanFSM{
		loan: loan,
	}

	lfsm.fsm = fsm.NewFSM(
		loan.Status,
		fsm.Events{
			// active → closed (balance reached zero)
			{Name: LoanEventSettle, Src: []string{models.LoanStatusActive}, Dst: models.LoanStatusClosed},

			// active → closed (administrative)
			{Name: LoanEventClose, Src: []string{models.LoanStatusActive}, Dst: models.LoanStatusClosed},

			// closed → active (an installment was reversed)
			{Name: LoanEventReopen, Src: []string{models.LoanStatusClosed}, Dst: models.LoanStatusActive},
		},
		fsm.Callbacks{},
	)

	return lfsm
}

// Settle closes a loan whose balance has been repaid to zero
func (l *LoanFSM) Settle(ctx context.Context, at time.Time) error {
	if !l.loan.RemainingBalance.IsZero() {
		return fmt.Errorf("loan cannot be settled with outstanding balance %s", l.loan.RemainingBalance.StringFixed(2))
	}

	if err := l.fsm.Event(ctx, LoanEventSettle); err != nil {
		return fmt.Errorf("failed to settle loan: %w", err)
	}

	l.loan.Status = l.fsm.Current()
	l.loan.NextDueDate = at
	l.loan.ClosedAt = &at
	return nil
}

// Close force-closes an active loan, writing off whatever is left
func (l *LoanFSM) Close(ctx context.Context, at time.Time, reason string) error {
	if !l.loan.IsActive() {
		return fmt.Errorf("loan cannot be closed in current state: %s", l.loan.Status)
	}

	if err := l.fsm.Event(ctx, LoanEventClose); err != nil {
		return fmt.Errorf("failed to close loan: %w", err)
	}

	l.loan.Status = l.fsm.Current()
	l.loan.RemainingBalance = decimal.Zero
	l.loan.ClosedAt = &at
	l.loan.CloseReason = &reason
	return nil
}

// Reopen reactivates a repaid loan whose balance became positive again and
// gives it a fresh due date. Loans closed administratively stay closed.
func (l *LoanFSM) Reopen(ctx context.Context, nextDue time.Time) error {
	if l.loan.ClosedByAdmin() {
		return fmt.Errorf("loan was closed administratively and cannot be reopened")
	}

	if err := l.fsm.Event(ctx, LoanEventReopen); err != nil {
		return fmt.Errorf("failed to reopen loan: %w", err)
	}

	l.loan.Status = l.fsm.Current()
	l.loan.NextDueDate = nextDue
	l.loan.ClosedAt = nil
	return nil
}

// Current returns the current state
func (l *LoanFSM) Current() string {
	return l.fsm.Current()
}

// Can checks if a transition is possible
func (l *LoanFSM) Can(event string) bool {
	return l.fsm.Can(event)
}
