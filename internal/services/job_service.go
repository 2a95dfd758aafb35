package services

import (
	"context"

	"github.com/sjperalta/society-ledger/internal/config"
	"github.com/sjperalta/society-ledger/internal/jobs"
	"github.com/sjperalta/society-ledger/pkg/logger"
)

// Scheduled job names
const (
	JobMaturityRefresh = "maturity-refresh"
	JobOverdueScan     = "overdue-scan"
)

type JobService struct {
	worker   *jobs.Worker
	maturity *MaturityService
	loans    *LoanService
}

func NewJobService(worker *jobs.Worker, maturity *MaturityService, loans *LoanService) *JobService {
	return &JobService{
		worker:   worker,
		maturity: maturity,
		loans:    loans,
	}
}

// Schedule registers the periodic engine jobs on the worker
func (s *JobService) Schedule(cfg *config.Config) {
	s.worker.ScheduleEveryImmediate(JobMaturityRefresh, cfg.MaturityRefreshInterval, s.RefreshMaturity)
	s.worker.ScheduleEvery(JobOverdueScan, cfg.OverdueScanInterval, s.ScanOverdueLoans)
}

// RefreshMaturity runs the batch refresh of all maturity records
func (s *JobService) RefreshMaturity(ctx context.Context) error {
	_, err := s.maturity.UpdateAllMaturityRecords(ctx)
	return err
}

// ScanOverdueLoans logs every active loan past its due date
func (s *JobService) ScanOverdueLoans(ctx context.Context) error {
	loans, err := s.loans.ListOverdueLoans(ctx)
	if err != nil {
		return err
	}
	for _, loan := range loans {
		logger.Warn("Loan overdue",
			"loan_id", loan.ID, "member_id", loan.MemberID,
			"due", loan.NextDueDate, "remaining_balance", loan.RemainingBalance)
	}
	logger.Info("Overdue scan finished", "overdue", len(loans))
	return nil
}

// Trigger runs a registered job now. It reports false for an unknown or running job.
func (s *JobService) Trigger(name string) bool {
	return s.worker.Trigger(name)
}

func (s *JobService) GetStatus() jobs.WorkerStats {
	return s.worker.GetStats()
}
