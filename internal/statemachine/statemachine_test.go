package statemachine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/society-ledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoanFSM_Settle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("closes a repaid loan and stamps the due date", func(t *testing.T) {
		loan := &models.Loan{Status: models.LoanStatusActive, RemainingBalance: decimal.Zero}
		require.NoError(t, NewLoanFSM(loan).Settle(ctx, now))

		assert.Equal(t, models.LoanStatusClosed, loan.Status)
		assert.Equal(t, now, loan.NextDueDate)
		require.NotNil(t, loan.ClosedAt)
		assert.Nil(t, loan.CloseReason)
		assert.False(t, loan.ClosedByAdmin())
	})

	t.Run("refuses with an outstanding balance", func(t *testing.T) {
		loan := &models.Loan{Status: models.LoanStatusActive, RemainingBalance: decimal.NewFromInt(10)}
		assert.Error(t, NewLoanFSM(loan).Settle(ctx, now))
		assert.Equal(t, models.LoanStatusActive, loan.Status)
	})

	t.Run("refuses an already closed loan", func(t *testing.T) {
		loan := &models.Loan{Status: models.LoanStatusClosed, RemainingBalance: decimal.Zero}
		assert.Error(t, NewLoanFSM(loan).Settle(ctx, now))
	})
}

func TestLoanFSM_CloseAndReopen(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	loan := &models.Loan{Status: models.LoanStatusActive, RemainingBalance: decimal.NewFromInt(4000)}
	lfsm := NewLoanFSM(loan)
	require.NoError(t, lfsm.Close(ctx, now, "written off"))

	assert.Equal(t, models.LoanStatusClosed, loan.Status)
	assert.True(t, loan.RemainingBalance.IsZero())
	assert.True(t, loan.ClosedByAdmin())
	assert.False(t, lfsm.Can(LoanEventClose))

	assert.Error(t, NewLoanFSM(loan).Reopen(ctx, now), "admin-closed loans stay closed")

	repaid := &models.Loan{Status: models.LoanStatusActive, RemainingBalance: decimal.Zero}
	require.NoError(t, NewLoanFSM(repaid).Settle(ctx, now))
	repaid.RemainingBalance = decimal.NewFromInt(500)
	due := now.AddDate(0, 0, 30)
	require.NoError(t, NewLoanFSM(repaid).Reopen(ctx, due))
	assert.Equal(t, models.LoanStatusActive, repaid.Status)
	assert.Nil(t, repaid.ClosedAt)
	assert.True(t, repaid.NextDueDate.Equal(due))
	assert.False(t, repaid.IsOverdue(now))
}

func TestMaturityFSM(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	record := &models.MaturityRecord{Status: models.MaturityStatusActive}
	mfsm := NewMaturityFSM(record)

	assert.Error(t, mfsm.Claim(ctx, now), "active records cannot be claimed")
	assert.Nil(t, record.ClaimedAt)

	require.NoError(t, mfsm.Mature(ctx))
	assert.Equal(t, models.MaturityStatusMatured, record.Status)

	require.NoError(t, mfsm.Claim(ctx, now))
	assert.Equal(t, models.MaturityStatusClaimed, record.Status)
	require.NotNil(t, record.ClaimedAt)

	assert.False(t, mfsm.Can(MaturityEventMature))
	assert.False(t, mfsm.Can(MaturityEventClaim))
	assert.Error(t, mfsm.Claim(ctx, now))
}
