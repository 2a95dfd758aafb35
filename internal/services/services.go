package services

import (
	"time"

	"github.com/sjperalta/society-ledger/internal/config"
	"github.com/sjperalta/society-ledger/internal/jobs"
	"github.com/sjperalta/society-ledger/internal/repository"
)

// Services holds all service instances
type Services struct {
	Member   *MemberService
	Ledger   *LedgerService
	Loan     *LoanService
	Maturity *MaturityService
	Audit    *AuditService
	Job      *JobService
}

// NewServices creates all service instances
func NewServices(store repository.Store, worker *jobs.Worker, cfg *config.Config) *Services {
	repos := store.Repos()
	auditSvc := NewAuditService(repos.Audit, worker)

	ledgerSvc := NewLedgerService(store, cfg.Lending, auditSvc)
	loanSvc := NewLoanService(store, cfg.Lending, ledgerSvc, auditSvc)
	maturitySvc := NewMaturityService(store, cfg.Lending, ledgerSvc, auditSvc)

	return &Services{
		Member:   NewMemberService(repos.Member, auditSvc),
		Ledger:   ledgerSvc,
		Loan:     loanSvc,
		Maturity: maturitySvc,
		Audit:    auditSvc,
		Job:      NewJobService(worker, maturitySvc, loanSvc),
	}
}

// now is the engines' clock
func now() time.Time {
	return time.Now().UTC()
}
