package services

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/sjperalta/society-ledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_BalanceIsDepositsMinusInstallments(t *testing.T) {
	env := newTestEnv(t)
	m := env.member(t, "M001", time.Now().AddDate(-1, 0, 0))

	check := func() {
		deposits, err := env.svc.Ledger.GetTotalDeposits(env.ctx, m.ID)
		require.NoError(t, err)
		installments, err := env.svc.Ledger.GetTotalInstallments(env.ctx, m.ID)
		require.NoError(t, err)
		balance, err := env.svc.Ledger.GetCurrentBalance(env.ctx, m.ID)
		require.NoError(t, err)
		assertAmount(t, deposits.Sub(installments).String(), balance)
	}

	check()
	env.deposit(t, m.ID, "10000")
	check()

	_, err := env.svc.Ledger.CreateEntry(env.ctx, CreateEntryRequest{MemberID: m.ID, Kind: models.EntryKindExpense, Amount: dec("250")})
	require.NoError(t, err)
	_, err = env.svc.Ledger.CreateEntry(env.ctx, CreateEntryRequest{MemberID: m.ID, Kind: models.EntryKindOther, Amount: dec("100")})
	require.NoError(t, err)
	check()

	env.loan(t, m.ID, "5000", false)
	env.installment(t, m.ID, "1200")
	check()

	deposits, err := env.svc.Ledger.GetTotalDeposits(env.ctx, m.ID)
	require.NoError(t, err)
	assertAmount(t, "9850", deposits, "expenses count negatively")

	balance, err := env.svc.Ledger.GetCurrentBalance(env.ctx, m.ID)
	require.NoError(t, err)
	assertAmount(t, "8650", balance)
}

func TestLedger_CreateEntryKinds(t *testing.T) {
	env := newTestEnv(t)
	m := env.member(t, "M001", time.Now().AddDate(-1, 0, 0))

	dep, err := env.svc.Ledger.CreateEntry(env.ctx, CreateEntryRequest{MemberID: m.ID, Kind: models.EntryKindDeposit, Amount: dec("500")})
	require.NoError(t, err)
	assert.True(t, dep.DepositUpdated)
	assert.False(t, dep.LoanUpdated)
	assert.NotEmpty(t, dep.Entry.Reference)
	assert.Equal(t, models.ModeCash, dep.Entry.Mode)

	exp, err := env.svc.Ledger.CreateEntry(env.ctx, CreateEntryRequest{MemberID: m.ID, Kind: models.EntryKindExpense, Amount: dec("40"), Mode: models.ModeUPI})
	require.NoError(t, err)
	assertAmount(t, "-40", exp.Entry.DepositAmount)

	fine, err := env.svc.Ledger.CreateEntry(env.ctx, CreateEntryRequest{MemberID: m.ID, Kind: models.EntryKindFine, Amount: dec("25")})
	require.NoError(t, err)
	assertAmount(t, "25", fine.Entry.FineAuto)
	assertAmount(t, "0", fine.Entry.DepositAmount)
	assert.False(t, fine.DepositUpdated)

	summary, err := env.svc.Ledger.GetMemberSummary(env.ctx, m.ID)
	require.NoError(t, err)
	assertAmount(t, "460", summary.TotalDeposits)
	assertAmount(t, "25", summary.TotalFines)
	assert.Equal(t, int64(3), summary.EntryCount)
	assert.Equal(t, 0, summary.ActiveLoans)
}

func TestLedger_CreateEntryValidation(t *testing.T) {
	env := newTestEnv(t)
	m := env.member(t, "M001", time.Now().AddDate(-1, 0, 0))

	tests := []struct {
		name string
		req  CreateEntryRequest
		want *Error
	}{
		{"unknown kind", CreateEntryRequest{MemberID: m.ID, Kind: "GIFT", Amount: dec("10")}, ErrInvalidEntryKind},
		{"unknown mode", CreateEntryRequest{MemberID: m.ID, Kind: models.EntryKindDeposit, Amount: dec("10"), Mode: "crypto"}, ErrInvalidMode},
		{"zero amount", CreateEntryRequest{MemberID: m.ID, Kind: models.EntryKindDeposit}, ErrInvalidAmount},
		{"negative amount", CreateEntryRequest{MemberID: m.ID, Kind: models.EntryKindDeposit, Amount: dec("-5")}, ErrInvalidAmount},
		{"empty mixed", CreateEntryRequest{MemberID: m.ID, Kind: models.EntryKindMixed, FineAmount: dec("5")}, ErrInvalidAmount},
		{"missing member", CreateEntryRequest{MemberID: 9999, Kind: models.EntryKindDeposit, Amount: dec("10")}, ErrMemberNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Ledger.CreateEntry(env.ctx, tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, int64(0), env.countEntries(t, m.ID))
}

func TestLedger_InstallmentDeductsFullAmountAndCloses(t *testing.T) {
	env := newTestEnv(t)
	m := env.member(t, "M001", time.Now().AddDate(-1, 0, 0))
	env.deposit(t, m.ID, "20000")
	loan := env.loan(t, m.ID, "10000", false)

	first := env.installment(t, m.ID, "3000")
	assert.True(t, first.LoanUpdated)
	assert.False(t, first.LoanClosed)
	assertAmount(t, "100", first.Entry.InterestAuto, "interest is 1% of the balance before payment")
	require.NotNil(t, first.Entry.LoanRequestID)
	assert.Equal(t, loan.ID, *first.Entry.LoanRequestID)
	assertAmount(t, "7000", env.reloadLoan(t, loan.ID).RemainingBalance, "interest is never netted out")

	env.installment(t, m.ID, "4000")
	assertAmount(t, "3000", env.reloadLoan(t, loan.ID).RemainingBalance)

	last := env.installment(t, m.ID, "5000")
	assert.True(t, last.LoanClosed)

	closed := env.reloadLoan(t, loan.ID)
	assert.Equal(t, models.LoanStatusClosed, closed.Status)
	assertAmount(t, "0", closed.RemainingBalance, "balance is clamped at zero")
	assert.WithinDuration(t, time.Now(), closed.NextDueDate, time.Minute)
	assert.False(t, closed.ClosedByAdmin())

	_, err := env.svc.Ledger.CreateEntry(env.ctx, CreateEntryRequest{MemberID: m.ID, Kind: models.EntryKindInstallment, Amount: dec("10")})
	assert.ErrorIs(t, err, ErrNoActiveLoan)
}

func TestLedger_InstallmentSequenceProperty(t *testing.T) {
	env := newTestEnv(t)
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 5; round++ {
		m := env.member(t, "S"+decFromInt(int64(round)).String(), time.Now().AddDate(-1, 0, 0))
		env.deposit(t, m.ID, "100000")
		loan := env.loan(t, m.ID, "50000", false)

		expected := int64(50000)
		for expected > 0 {
			pay := rng.Int63n(15000) + 1
			res := env.installment(t, m.ID, decFromInt(pay).String())
			expected -= pay
			if expected < 0 {
				expected = 0
			}

			got := env.reloadLoan(t, loan.ID)
			assertAmount(t, decFromInt(expected).String(), got.RemainingBalance)
			assert.Equal(t, expected == 0, got.Status == models.LoanStatusClosed)
			assert.Equal(t, expected == 0, res.LoanClosed)
		}
	}
}

func TestLedger_NoActiveLoanRollsBackEverything(t *testing.T) {
	env := newTestEnv(t)
	m := env.member(t, "M001", time.Now().AddDate(-1, 0, 0))

	_, err := env.svc.Ledger.CreateEntry(env.ctx, CreateEntryRequest{MemberID: m.ID, Kind: models.EntryKindInstallment, Amount: dec("500")})
	assert.ErrorIs(t, err, ErrNoActiveLoan)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.svc.Ledger.CreateEntry(env.ctx, CreateEntryRequest{
		MemberID:          m.ID,
		Kind:              models.EntryKindMixed,
		DepositAmount:     dec("1000"),
		InstallmentAmount: dec("500"),
	})
	assert.ErrorIs(t, err, ErrNoActiveLoan)

	assert.Equal(t, int64(0), env.countEntries(t, m.ID))
	deposits, err := env.svc.Ledger.GetTotalDeposits(env.ctx, m.ID)
	require.NoError(t, err)
	assertAmount(t, "0", deposits, "the deposit part must not be committed")
}

func TestLedger_MixedEntryIsOneRow(t *testing.T) {
	env := newTestEnv(t)
	m := env.member(t, "M001", time.Now().AddDate(-1, 0, 0))
	env.deposit(t, m.ID, "10000")
	loan := env.loan(t, m.ID, "6000", false)

	before := env.countEntries(t, m.ID)
	res, err := env.svc.Ledger.CreateEntry(env.ctx, CreateEntryRequest{
		MemberID:          m.ID,
		Kind:              models.EntryKindMixed,
		DepositAmount:     dec("700"),
		InstallmentAmount: dec("1500"),
		FineAmount:        dec("50"),
	})
	require.NoError(t, err)

	assert.Equal(t, before+1, env.countEntries(t, m.ID))
	assert.True(t, res.DepositUpdated)
	assert.True(t, res.LoanUpdated)
	assert.Equal(t, models.EntryKindMixed, res.Entry.EntryType)
	assertAmount(t, "60", res.Entry.InterestAuto)

	deposits, err := env.svc.Ledger.GetTotalDeposits(env.ctx, m.ID)
	require.NoError(t, err)
	assertAmount(t, "10700", deposits)
	assertAmount(t, "4500", env.reloadLoan(t, loan.ID).RemainingBalance)
}

func TestLedger_InstallmentNeedsLoanIDWithSeveralActiveLoans(t *testing.T) {
	env := newTestEnv(t)
	m := env.member(t, "M001", time.Now().AddDate(-1, 0, 0))
	env.deposit(t, m.ID, "10000")
	first := env.loan(t, m.ID, "2000", false)
	second := env.loan(t, m.ID, "3000", true)

	_, err := env.svc.Ledger.CreateEntry(env.ctx, CreateEntryRequest{MemberID: m.ID, Kind: models.EntryKindInstallment, Amount: dec("100")})
	assert.ErrorIs(t, err, ErrMultipleActiveLoans)

	_, err = env.svc.Ledger.CreateEntry(env.ctx, CreateEntryRequest{MemberID: m.ID, Kind: models.EntryKindInstallment, Amount: dec("100"), LoanID: &second.ID})
	require.NoError(t, err)
	assertAmount(t, "2000", env.reloadLoan(t, first.ID).RemainingBalance)
	assertAmount(t, "2900", env.reloadLoan(t, second.ID).RemainingBalance)

	other := env.member(t, "M002", time.Now().AddDate(-1, 0, 0))
	_, err = env.svc.Ledger.CreateEntry(env.ctx, CreateEntryRequest{MemberID: other.ID, Kind: models.EntryKindInstallment, Amount: dec("100"), LoanID: &first.ID})
	assert.ErrorIs(t, err, ErrLoanNotFound, "a loan of another member is not visible")
}

func TestLedger_UpdateEntryKeepsInstallmentOnItsLoan(t *testing.T) {
	env := newTestEnv(t)
	m := env.member(t, "M001", time.Now().AddDate(-1, 0, 0))
	env.deposit(t, m.ID, "20000")
	a := env.loan(t, m.ID, "5000", false)
	b := env.loan(t, m.ID, "5000", true)

	paid, err := env.svc.Ledger.CreateEntry(env.ctx, CreateEntryRequest{MemberID: m.ID, Kind: models.EntryKindInstallment, Amount: dec("1000"), LoanID: &a.ID})
	require.NoError(t, err)

	_, err = env.svc.Ledger.UpdateEntry(env.ctx, UpdateEntryRequest{EntryID: paid.Entry.ID, MemberID: m.ID, InstallmentAmount: decPtr("2000"), LoanID: &b.ID})
	assert.ErrorIs(t, err, ErrLoanReassignment)
	assert.ErrorIs(t, err, ErrValidation)
	assertAmount(t, "4000", env.reloadLoan(t, a.ID).RemainingBalance, "a rejected update leaves both loans untouched")
	assertAmount(t, "5000", env.reloadLoan(t, b.ID).RemainingBalance)

	_, err = env.svc.Ledger.UpdateEntry(env.ctx, UpdateEntryRequest{EntryID: paid.Entry.ID, MemberID: m.ID, InstallmentAmount: decPtr("2000"), LoanID: &a.ID})
	require.NoError(t, err)
	assertAmount(t, "3000", env.reloadLoan(t, a.ID).RemainingBalance)
	assertAmount(t, "5000", env.reloadLoan(t, b.ID).RemainingBalance)
}

func TestLedger_UpdateEntryReversalProperty(t *testing.T) {
	env := newTestEnv(t)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 25; i++ {
		m := env.member(t, "P"+decFromInt(int64(i)).String(), time.Now().AddDate(-1, 0, 0))
		env.deposit(t, m.ID, "1000000")

		// B is the balance after the original installment I_old was applied
		b := rng.Int63n(20000)
		iOld := rng.Int63n(10000) + 1
		iNew := rng.Int63n(40000)
		if i%5 == 0 {
			iNew = 0
		}

		loan := env.loan(t, m.ID, decFromInt(b+iOld).String(), true)
		created := env.installment(t, m.ID, decFromInt(iOld).String())
		assertAmount(t, decFromInt(b).String(), env.reloadLoan(t, loan.ID).RemainingBalance)

		res, err := env.svc.Ledger.UpdateEntry(env.ctx, UpdateEntryRequest{
			EntryID:           created.Entry.ID,
			MemberID:          m.ID,
			InstallmentAmount: decPtr(decFromInt(iNew).String()),
			DepositAmount:     decPtr("1"),
		})
		require.NoError(t, err, "B=%d I_old=%d I_new=%d", b, iOld, iNew)

		want := b + iOld - iNew
		if want < 0 {
			want = 0
		}
		got := env.reloadLoan(t, loan.ID)
		assertAmount(t, decFromInt(want).String(), got.RemainingBalance, "B=%d I_old=%d I_new=%d", b, iOld, iNew)
		assert.Equal(t, want == 0, got.Status == models.LoanStatusClosed, "B=%d I_old=%d I_new=%d", b, iOld, iNew)
		assertAmount(t, decFromInt(b).String(), *res.PreviousBalance)
		assertAmount(t, decFromInt(iOld).String(), res.PreviousInstallment)
		assertAmount(t, decFromInt(iNew).String(), res.Entry.LoanInstallment)
	}
}

func TestLedger_UpdateEntryIntroducesInstallment(t *testing.T) {
	env := newTestEnv(t)
	m := env.member(t, "M001", time.Now().AddDate(-1, 0, 0))
	entry := env.deposit(t, m.ID, "10000")

	_, err := env.svc.Ledger.UpdateEntry(env.ctx, UpdateEntryRequest{EntryID: entry.ID, MemberID: m.ID, InstallmentAmount: decPtr("500")})
	assert.ErrorIs(t, err, ErrNoActiveLoan)

	stored, err := env.store.Repos().Ledger.FindByID(env.ctx, entry.ID)
	require.NoError(t, err)
	assertAmount(t, "0", stored.LoanInstallment, "failed update leaves the entry untouched")
	assert.Equal(t, models.EntryKindDeposit, stored.EntryType)

	loan := env.loan(t, m.ID, "4000", false)
	res, err := env.svc.Ledger.UpdateEntry(env.ctx, UpdateEntryRequest{EntryID: entry.ID, MemberID: m.ID, InstallmentAmount: decPtr("500")})
	require.NoError(t, err)
	assert.True(t, res.LoanUpdated)
	assert.Equal(t, models.EntryKindMixed, res.Entry.EntryType)
	require.NotNil(t, res.Entry.LoanRequestID)
	assert.Equal(t, loan.ID, *res.Entry.LoanRequestID)
	assertAmount(t, "3500", env.reloadLoan(t, loan.ID).RemainingBalance)
}

func TestLedger_UpdateEntryReopensRepaidLoan(t *testing.T) {
	env := newTestEnv(t)
	m := env.member(t, "M001", time.Now().AddDate(-1, 0, 0))
	env.deposit(t, m.ID, "10000")
	loan := env.loan(t, m.ID, "2000", false)

	paid := env.installment(t, m.ID, "2000")
	require.True(t, paid.LoanClosed)

	res, err := env.svc.Ledger.UpdateEntry(env.ctx, UpdateEntryRequest{EntryID: paid.Entry.ID, MemberID: m.ID, InstallmentAmount: decPtr("1500")})
	require.NoError(t, err)
	assert.True(t, res.LoanReopened)

	got := env.reloadLoan(t, loan.ID)
	assert.Equal(t, models.LoanStatusActive, got.Status)
	assertAmount(t, "500", got.RemainingBalance)
	assert.Nil(t, got.ClosedAt)
	assert.False(t, got.IsOverdue(time.Now()), "a reopened loan gets a fresh due date")
	assert.True(t, got.NextDueDate.After(time.Now().AddDate(0, 0, 29)))

	overdue, err := env.svc.Loan.ListOverdueLoans(env.ctx)
	require.NoError(t, err)
	assert.Empty(t, overdue)
}

func TestLedger_UpdateEntryRejectsWrongMemberAndAdminClosedLoan(t *testing.T) {
	env := newTestEnv(t)
	m := env.member(t, "M001", time.Now().AddDate(-1, 0, 0))
	other := env.member(t, "M002", time.Now().AddDate(-1, 0, 0))
	env.deposit(t, m.ID, "10000")
	loan := env.loan(t, m.ID, "5000", false)
	paid := env.installment(t, m.ID, "1000")

	_, err := env.svc.Ledger.UpdateEntry(env.ctx, UpdateEntryRequest{EntryID: paid.Entry.ID, MemberID: other.ID, InstallmentAmount: decPtr("10")})
	assert.ErrorIs(t, err, ErrEntryNotOwned)

	_, err = env.svc.Ledger.UpdateEntry(env.ctx, UpdateEntryRequest{EntryID: 4242, MemberID: m.ID})
	assert.ErrorIs(t, err, ErrEntryNotFound)

	_, err = env.svc.Loan.CloseLoan(env.ctx, loan.ID, "settled offline")
	require.NoError(t, err)

	_, err = env.svc.Ledger.UpdateEntry(env.ctx, UpdateEntryRequest{EntryID: paid.Entry.ID, MemberID: m.ID, InstallmentAmount: decPtr("10")})
	assert.ErrorIs(t, err, ErrEntryLinkedToClosedLoan)
	assertAmount(t, "0", env.reloadLoan(t, loan.ID).RemainingBalance)
}

func TestLedger_DeleteEntry(t *testing.T) {
	env := newTestEnv(t)
	m := env.member(t, "M001", time.Now().AddDate(-1, 0, 0))
	other := env.member(t, "M002", time.Now().AddDate(-1, 0, 0))
	dep := env.deposit(t, m.ID, "10000")
	loan := env.loan(t, m.ID, "5000", false)
	paid := env.installment(t, m.ID, "1200")

	t.Run("rejects another member's entry", func(t *testing.T) {
		_, err := env.svc.Ledger.DeleteEntry(env.ctx, dep.ID, other.ID)
		assert.ErrorIs(t, err, ErrEntryNotOwned)
	})

	t.Run("gives an installment back to an active loan", func(t *testing.T) {
		res, err := env.svc.Ledger.DeleteEntry(env.ctx, paid.Entry.ID, m.ID)
		require.NoError(t, err)
		assert.True(t, res.LoanUpdated)
		assertAmount(t, "5000", env.reloadLoan(t, loan.ID).RemainingBalance)

		_, err = env.store.Repos().Ledger.FindByID(env.ctx, paid.Entry.ID)
		assert.Error(t, err)
	})

	t.Run("keeps entries of a closed loan", func(t *testing.T) {
		final := env.installment(t, m.ID, "5000")
		require.True(t, final.LoanClosed)

		_, err := env.svc.Ledger.DeleteEntry(env.ctx, final.Entry.ID, m.ID)
		assert.ErrorIs(t, err, ErrEntryLinkedToClosedLoan)
		assert.ErrorIs(t, err, ErrStateConflict)
	})

	t.Run("deletes a plain deposit", func(t *testing.T) {
		_, err := env.svc.Ledger.DeleteEntry(env.ctx, dep.ID, m.ID)
		require.NoError(t, err)
		deposits, err := env.svc.Ledger.GetTotalDeposits(env.ctx, m.ID)
		require.NoError(t, err)
		assertAmount(t, "0", deposits)
	})
}

func TestLedger_TransactionHistory(t *testing.T) {
	env := newTestEnv(t)
	m := env.member(t, "M001", time.Now().AddDate(-1, 0, 0))

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		_, err := env.svc.Ledger.CreateEntry(env.ctx, CreateEntryRequest{
			MemberID:        m.ID,
			Kind:            models.EntryKindDeposit,
			Amount:          decFromInt(int64(100 * (i + 1))),
			TransactionDate: base.AddDate(0, 0, i),
		})
		require.NoError(t, err)
	}
	// Same day as the newest one, created later
	_, err := env.svc.Ledger.CreateEntry(env.ctx, CreateEntryRequest{MemberID: m.ID, Kind: models.EntryKindFine, Amount: dec("5"), TransactionDate: base.AddDate(0, 0, 3)})
	require.NoError(t, err)

	entries, err := env.svc.Ledger.GetTransactionHistory(env.ctx, m.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, models.EntryKindFine, entries[0].EntryType)
	assertAmount(t, "400", entries[1].DepositAmount)
	assertAmount(t, "100", entries[4].DepositAmount)

	limited, err := env.svc.Ledger.GetTransactionHistory(env.ctx, m.ID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	assert.Equal(t, 500, env.svc.Ledger.historyLimit(10000))
	assert.Equal(t, 50, env.svc.Ledger.historyLimit(-1))

	_, err = env.svc.Ledger.GetTransactionHistory(env.ctx, 777, 10)
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestLedger_PersistenceErrorsAreTyped(t *testing.T) {
	env := newTestEnv(t)
	m := env.member(t, "M001", time.Now().AddDate(-1, 0, 0))
	env.deposit(t, m.ID, "100")

	require.NoError(t, env.db.Migrator().DropTable(&models.LedgerEntry{}))

	_, err := env.svc.Ledger.GetTotalDeposits(env.ctx, m.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)

	var typed *Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, "PERSISTENCE_ERROR", typed.Code)
	assert.NotContains(t, typed.Message, "no such table")
}
