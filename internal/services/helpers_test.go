package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/society-ledger/internal/config"
	"github.com/sjperalta/society-ledger/internal/models"
	"github.com/sjperalta/society-ledger/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db    *gorm.DB
	store repository.Store
	svc   *Services
	ctx   context.Context
}

// newTestEnv wires the engines against a per-test in-memory database
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))

	store := repository.NewStore(db)
	return &testEnv{
		db:    db,
		store: store,
		svc:   NewServices(store, nil, testConfig()),
		ctx:   context.Background(),
	}
}

func testConfig() *config.Config {
	return &config.Config{Lending: config.DefaultLending()}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decFromInt(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// assertAmount compares money at cent precision
func assertAmount(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Equal(t, dec(want).StringFixed(2), got.Round(2).StringFixed(2), msgAndArgs...)
}

func (e *testEnv) member(t *testing.T, code string, joined time.Time) *models.Member {
	t.Helper()
	m, err := e.svc.Member.Create(e.ctx, CreateMemberRequest{MemberCode: code, FullName: "Member " + code, JoiningDate: joined})
	require.NoError(t, err)
	return m
}

func (e *testEnv) deposit(t *testing.T, memberID uint, amount string) *models.LedgerEntry {
	t.Helper()
	res, err := e.svc.Ledger.CreateEntry(e.ctx, CreateEntryRequest{MemberID: memberID, Kind: models.EntryKindDeposit, Amount: dec(amount)})
	require.NoError(t, err)
	return res.Entry
}

func (e *testEnv) installment(t *testing.T, memberID uint, amount string) *CreateEntryResult {
	t.Helper()
	res, err := e.svc.Ledger.CreateEntry(e.ctx, CreateEntryRequest{MemberID: memberID, Kind: models.EntryKindInstallment, Amount: dec(amount)})
	require.NoError(t, err)
	return res
}

func (e *testEnv) loan(t *testing.T, memberID uint, amount string, override bool) *models.Loan {
	t.Helper()
	loan, err := e.svc.Loan.CreateLoan(e.ctx, CreateLoanRequest{MemberID: memberID, Amount: dec(amount), Override: override})
	require.NoError(t, err)
	return loan
}

func (e *testEnv) reloadLoan(t *testing.T, id uint) *models.Loan {
	t.Helper()
	loan, err := e.store.Repos().Loan.FindByID(e.ctx, id)
	require.NoError(t, err)
	return loan
}

func (e *testEnv) countEntries(t *testing.T, memberID uint) int64 {
	t.Helper()
	n, err := e.store.Repos().Ledger.CountByMember(e.ctx, memberID)
	require.NoError(t, err)
	return n
}

// flakyStore fails the transaction with the given call number
type flakyStore struct {
	repository.Store
	failOn int
	calls  int
}

func (s *flakyStore) WithinTx(ctx context.Context, fn func(r *repository.Repositories) error) error {
	s.calls++
	if s.calls == s.failOn {
		return errors.New("connection reset")
	}
	return s.Store.WithinTx(ctx, fn)
}
