package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sjperalta/society-ledger/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Health   *HealthHandler
	Member   *MemberHandler
	Ledger   *LedgerHandler
	Loan     *LoanHandler
	Maturity *MaturityHandler
	Audit    *AuditHandler
	Job      *JobHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services) *Handlers {
	return &Handlers{
		Health:   NewHealthHandler(),
		Member:   NewMemberHandler(svcs.Member, svcs.Ledger),
		Ledger:   NewLedgerHandler(svcs.Ledger),
		Loan:     NewLoanHandler(svcs.Loan),
		Maturity: NewMaturityHandler(svcs.Maturity),
		Audit:    NewAuditHandler(svcs.Audit),
		Job:      NewJobHandler(svcs.Job),
	}
}

// Register mounts the API routes on the /api/v1 group
func (h *Handlers) Register(v1 *gin.RouterGroup) {
	v1.GET("/health", h.Health.Index)

	members := v1.Group("/members")
	{
		members.POST("", h.Member.Create)
		members.GET("", h.Member.Index)
		members.GET("/:member_id", h.Member.Show)
		members.PATCH("/:member_id/status", h.Member.SetStatus)
		members.GET("/:member_id/summary", h.Member.Summary)

		members.POST("/:member_id/entries", h.Ledger.Create)
		members.GET("/:member_id/entries", h.Ledger.Index)
		members.PUT("/:member_id/entries/:entry_id", h.Ledger.Update)
		members.DELETE("/:member_id/entries/:entry_id", h.Ledger.Delete)

		members.POST("/:member_id/loans/validate", h.Loan.Validate)
		members.POST("/:member_id/loans", h.Loan.Create)
		members.GET("/:member_id/loans", h.Loan.IndexByMember)
		members.GET("/:member_id/loans/stats", h.Loan.Stats)

		members.GET("/:member_id/maturity/projection", h.Maturity.Projection)
		members.POST("/:member_id/maturity", h.Maturity.Refresh)
		members.GET("/:member_id/maturity", h.Maturity.Show)
	}

	// Static routes first so "active" is not matched as :loan_id
	loans := v1.Group("/loans")
	{
		loans.GET("/active", h.Loan.Active)
		loans.GET("/overdue", h.Loan.Overdue)
		loans.GET("/:loan_id", h.Loan.Show)
		loans.POST("/:loan_id/payments", h.Loan.Pay)
		loans.POST("/:loan_id/close", h.Loan.Close)
	}

	maturity := v1.Group("/maturity")
	{
		maturity.POST("/refresh", h.Maturity.RefreshAll)
		maturity.GET("/approaching", h.Maturity.Approaching)
		maturity.POST("/:record_id/claim", h.Maturity.Claim)
		maturity.POST("/:record_id/adjust", h.Maturity.Adjust)
	}

	v1.GET("/jobs/status", h.Job.Status)
	v1.POST("/jobs/:name/trigger", h.Job.Trigger)
	v1.GET("/audits", h.Audit.Index)
}
