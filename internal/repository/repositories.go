package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sjperalta/society-ledger/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repositories holds all repository instances bound to one connection or transaction
type Repositories struct {
	Member   MemberRepository
	Ledger   LedgerRepository
	Loan     LoanRepository
	Maturity MaturityRepository
	Audit    AuditRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Member:   NewMemberRepository(db),
		Ledger:   NewLedgerRepository(db),
		Loan:     NewLoanRepository(db),
		Maturity: NewMaturityRepository(db),
		Audit:    NewAuditRepository(db),
	}
}

// Store is the persistence port of the engines: repositories for reads and
// single writes, plus an atomic unit of work.
type Store interface {
	Repos() *Repositories
	// WithinTx runs fn inside one database transaction. Every write made
	// through the repositories passed to fn is committed when fn returns nil
	// and rolled back when it returns an error or panics.
	WithinTx(ctx context.Context, fn func(r *Repositories) error) error
}

// maxTxAttempts bounds retries of transactions aborted by serialization
// failures or deadlocks between competing writers.
const maxTxAttempts = 3

type gormStore struct {
	db    *gorm.DB
	repos *Repositories
}

// NewStore creates the gorm-backed persistence port
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db, repos: NewRepositories(db)}
}

func (s *gormStore) Repos() *Repositories {
	return s.repos
}

func (s *gormStore) WithinTx(ctx context.Context, fn func(r *Repositories) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(NewRepositories(tx))
		})
		if err == nil || !isRetryable(err) || attempt == maxTxAttempts {
			return err
		}

		wait := time.Duration(attempt*attempt) * 25 * time.Millisecond
		logger.FromContext(ctx).Warn("Retrying transaction after conflict", "attempt", attempt, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}

// isRetryable reports Postgres serialization failures and deadlocks
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func isDuplicateKeyError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == constraintName
	}
	return false
}

// IsNotFound reports whether err is a missing-row error from gorm
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// ListQuery holds paging, search and filter options for list endpoints
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
	SortBy  string
	SortDir string
	Filters map[string]string
}

// NewListQuery creates a ListQuery with defaults
func NewListQuery() *ListQuery {
	return &ListQuery{
		Page:    1,
		PerPage: 20,
		Filters: make(map[string]string),
	}
}

// Offset returns the row offset of the requested page
func (q *ListQuery) Offset() int {
	if q.Page < 1 {
		q.Page = 1
	}
	return (q.Page - 1) * q.PerPage
}

// orderBy sorts by the requested column when the list allows it and falls
// back to the list's natural order otherwise. id breaks ties.
func (q *ListQuery) orderBy(db *gorm.DB, allowed map[string]string, fallback string) *gorm.DB {
	column, ok := allowed[q.SortBy]
	if !ok {
		return db.Order(fallback)
	}
	return db.
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: strings.EqualFold(q.SortDir, "desc")}).
		Order("id ASC")
}
