package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/society-ledger/internal/models"
	"github.com/sjperalta/society-ledger/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestLoan_ValidateLoanRequest(t *testing.T) {
	env := newTestEnv(t)
	m := env.member(t, "M001", time.Now().AddDate(-1, 0, 0))
	env.deposit(t, m.ID, "10000")

	withLoan := env.member(t, "M002", time.Now().AddDate(-1, 0, 0))
	env.deposit(t, withLoan.ID, "10000")
	env.loan(t, withLoan.ID, "2000", false)

	tests := []struct {
		name     string
		memberID uint
		amount   string
		override bool
		approved bool
		code     string
	}{
		{"within ceiling", m.ID, "8000", false, true, ""},
		{"above ceiling", m.ID, "8000.01", false, false, ErrLoanExceedsCeiling.Code},
		{"below minimum", m.ID, "999", false, false, ErrLoanBelowMinimum.Code},
		{"existing active loan", withLoan.ID, "1500", false, false, ErrActiveLoanExists.Code},
		{"ceiling checked before existing loan", withLoan.ID, "9000", false, false, ErrLoanExceedsCeiling.Code},
		{"override above ceiling", m.ID, "50000", true, true, ""},
		{"override below minimum", m.ID, "10", true, true, ""},
		{"override with existing loan", withLoan.ID, "1500", true, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := env.svc.Loan.ValidateLoanRequest(env.ctx, tt.memberID, dec(tt.amount), tt.override)
			require.NoError(t, err)
			assert.Equal(t, tt.approved, v.Approved)
			assert.Equal(t, tt.code, v.Code)
			assertAmount(t, "8000", v.MaxLoanAmount, "ceiling is reported regardless of the decision")
			assertAmount(t, "10000", v.TotalDeposits)
			if !tt.approved {
				assert.NotEmpty(t, v.Reason)
			}
		})
	}

	_, err := env.svc.Loan.ValidateLoanRequest(env.ctx, 4040, dec("1000"), false)
	assert.ErrorIs(t, err, ErrMemberNotFound)

	_, err = env.svc.Loan.ValidateLoanRequest(env.ctx, m.ID, dec("0"), false)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestLoan_EndToEndUnderwritingScenario(t *testing.T) {
	env := newTestEnv(t)
	m := env.member(t, "M001", time.Now().AddDate(-2, 0, 0))
	env.deposit(t, m.ID, "6000")
	env.deposit(t, m.ID, "4000")

	_, err := env.svc.Loan.CreateLoan(env.ctx, CreateLoanRequest{MemberID: m.ID, Amount: dec("9000")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoanExceedsCeiling)

	var typed *Error
	require.True(t, errors.As(err, &typed))
	assertAmount(t, "8000", typed.Details["max_loan_amount"].(decimal.Decimal))
	assert.Contains(t, typed.Message, "8000.00")

	loans, err := env.svc.Loan.ListMemberLoans(env.ctx, m.ID, true)
	require.NoError(t, err)
	assert.Empty(t, loans, "a rejected request leaves no loan behind")

	loan := env.loan(t, m.ID, "7500", false)
	assert.Equal(t, models.LoanStatusActive, loan.Status)
	assertAmount(t, "7500", loan.RemainingBalance)
	assertAmount(t, "0.01", loan.InterestRate)
	assert.False(t, loan.OverrideEnabled)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), loan.NextDueDate, time.Minute)

	env.installment(t, m.ID, "2000")
	assertAmount(t, "5500", env.reloadLoan(t, loan.ID).RemainingBalance)
}

func TestLoan_CreateLoanRejections(t *testing.T) {
	env := newTestEnv(t)
	m := env.member(t, "M001", time.Now().AddDate(-1, 0, 0))
	env.deposit(t, m.ID, "10000")
	env.loan(t, m.ID, "3000", false)

	_, err := env.svc.Loan.CreateLoan(env.ctx, CreateLoanRequest{MemberID: m.ID, Amount: dec("1000")})
	assert.ErrorIs(t, err, ErrActiveLoanExists)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.svc.Loan.CreateLoan(env.ctx, CreateLoanRequest{MemberID: 999, Amount: dec("1000")})
	assert.ErrorIs(t, err, ErrMemberNotFound)

	second, err := env.svc.Loan.CreateLoan(env.ctx, CreateLoanRequest{MemberID: m.ID, Amount: dec("1000"), Override: true, Notes: "emergency"})
	require.NoError(t, err)
	assert.True(t, second.OverrideEnabled)
	require.NotNil(t, second.Notes)
	assert.Equal(t, "emergency", *second.Notes)
}

func TestLoan_UpdateLoanBalanceIsInterestFirst(t *testing.T) {
	env := newTestEnv(t)
	m := env.member(t, "M001", time.Now().AddDate(-1, 0, 0))
	env.deposit(t, m.ID, "20000")
	loan := env.loan(t, m.ID, "10000", false)

	_, err := env.svc.Loan.UpdateLoanBalance(env.ctx, loan.ID, dec("99.99"))
	assert.ErrorIs(t, err, ErrPaymentBelowInterest)
	assert.ErrorIs(t, err, ErrStateConflict)
	assertAmount(t, "10000", env.reloadLoan(t, loan.ID).RemainingBalance)

	res, err := env.svc.Loan.UpdateLoanBalance(env.ctx, loan.ID, dec("1100"))
	require.NoError(t, err)
	assertAmount(t, "100", res.Interest)
	assertAmount(t, "1000", res.Principal)
	assert.False(t, res.Closed)
	assertAmount(t, "9000", env.reloadLoan(t, loan.ID).RemainingBalance)

	res, err = env.svc.Loan.UpdateLoanBalance(env.ctx, loan.ID, dec("20000"))
	require.NoError(t, err)
	assert.True(t, res.Closed)

	closed := env.reloadLoan(t, loan.ID)
	assert.Equal(t, models.LoanStatusClosed, closed.Status)
	assertAmount(t, "0", closed.RemainingBalance)

	_, err = env.svc.Loan.UpdateLoanBalance(env.ctx, loan.ID, dec("10"))
	assert.ErrorIs(t, err, ErrLoanClosed)

	_, err = env.svc.Loan.UpdateLoanBalance(env.ctx, 31337, dec("10"))
	assert.ErrorIs(t, err, ErrLoanNotFound)
}

func TestLoan_CloseLoan(t *testing.T) {
	env := newTestEnv(t)
	m := env.member(t, "M001", time.Now().AddDate(-1, 0, 0))
	env.deposit(t, m.ID, "10000")
	loan := env.loan(t, m.ID, "5000", false)

	_, err := env.svc.Loan.CloseLoan(env.ctx, loan.ID, "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	closed, err := env.svc.Loan.CloseLoan(env.ctx, loan.ID, "member relocated")
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusClosed, closed.Status)
	assertAmount(t, "0", closed.RemainingBalance)
	require.NotNil(t, closed.CloseReason)
	assert.Equal(t, "member relocated", *closed.CloseReason)
	assertAmount(t, "5000", closed.LoanAmount, "principal is immutable")

	_, err = env.svc.Loan.CloseLoan(env.ctx, loan.ID, "again")
	assert.ErrorIs(t, err, ErrLoanClosed)

	_, err = env.svc.Ledger.CreateEntry(env.ctx, CreateEntryRequest{MemberID: m.ID, Kind: models.EntryKindInstallment, Amount: dec("100")})
	assert.ErrorIs(t, err, ErrNoActiveLoan)
}

func TestLoan_ReadsAndStats(t *testing.T) {
	env := newTestEnv(t)
	m := env.member(t, "M001", time.Now().AddDate(-1, 0, 0))
	env.deposit(t, m.ID, "30000")

	repaid := env.loan(t, m.ID, "2000", false)
	env.installment(t, m.ID, "2000")

	overdue := env.loan(t, m.ID, "5000", false)
	env.installment(t, m.ID, "1500")
	require.NoError(t, env.db.Model(&models.Loan{}).Where("id = ?", overdue.ID).
		Update("next_due_date", time.Now().UTC().AddDate(0, 0, -3)).Error)

	other := env.member(t, "M002", time.Now().AddDate(-1, 0, 0))
	env.deposit(t, other.ID, "10000")
	current := env.loan(t, other.ID, "4000", false)

	active, err := env.svc.Loan.ListActiveLoans(env.ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, overdue.ID, active[0].ID, "ordered by due date")
	assert.Equal(t, current.ID, active[1].ID)

	late, err := env.svc.Loan.ListOverdueLoans(env.ctx)
	require.NoError(t, err)
	require.Len(t, late, 1)
	assert.Equal(t, overdue.ID, late[0].ID)

	open, err := env.svc.Loan.ListMemberLoans(env.ctx, m.ID, false)
	require.NoError(t, err)
	assert.Len(t, open, 1)
	all, err := env.svc.Loan.ListMemberLoans(env.ctx, m.ID, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	detail, err := env.svc.Loan.GetLoan(env.ctx, repaid.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Entries, 1)
	assertAmount(t, "2000", detail.TotalPaid)
	assert.False(t, detail.Overdue)

	_, err = env.svc.Loan.GetLoan(env.ctx, 9999)
	assert.ErrorIs(t, err, ErrLoanNotFound)

	stats, err := env.svc.Loan.GetMemberLoanStats(env.ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalLoans)
	assert.Equal(t, 1, stats.ActiveLoans)
	assert.Equal(t, 1, stats.ClosedLoans)
	assert.Equal(t, 1, stats.OverdueLoans)
	assertAmount(t, "7000", stats.TotalPrincipal)
	assertAmount(t, "3500", stats.TotalRemaining)
	assertAmount(t, "3500", stats.TotalPaid)

	empty := env.member(t, "M003", time.Now().AddDate(-1, 0, 0))
	stats, err = env.svc.Loan.GetMemberLoanStats(env.ctx, empty.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalLoans)
	assertAmount(t, "0", stats.TotalPaid)

	_, err = env.svc.Loan.GetMemberLoanStats(env.ctx, 8080)
	assert.ErrorIs(t, err, ErrMemberNotFound, "a missing member is an error, not empty stats")
}

// TestLoan_ConcurrentInstallmentsSerialize needs a real Postgres database
// because SQLite has no row locks. Set TEST_DATABASE_URL to run it.
func TestLoan_ConcurrentInstallmentsSerialize(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	store := repository.NewStore(db)
	env := &testEnv{db: db, store: store, ctx: context.Background()}
	env.svc = NewServices(store, nil, testConfig())

	code := fmt.Sprintf("C%d", time.Now().UnixNano())
	m := env.member(t, code, time.Now().AddDate(-1, 0, 0))
	env.deposit(t, m.ID, "100000")
	loan := env.loan(t, m.ID, "50000", false)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Ledger.CreateEntry(env.ctx, CreateEntryRequest{MemberID: m.ID, Kind: models.EntryKindInstallment, Amount: dec("1000")})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assertAmount(t, "30000", env.reloadLoan(t, loan.ID).RemainingBalance, "no installment may be lost")
}
