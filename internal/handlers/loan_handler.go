package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/society-ledger/internal/services"
)

type LoanHandler struct {
	loanService *services.LoanService
}

func NewLoanHandler(loanService *services.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

type LoanRequest struct {
	Amount   decimal.Decimal `json:"amount" swaggertype:"string"`
	Override bool            `json:"override"`
	Notes    string          `json:"notes" binding:"max=500"`
}

type LoanPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" swaggertype:"string"`
}

type CloseLoanRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// @Summary Validate Loan Request
// @Description Checks the deposit ceiling, existing active loans and the minimum amount without creating anything
// @Tags Loans
// @Accept json
// @Produce json
// @Param member_id path int true "Member ID"
// @Param request body LoanRequest true "Requested loan"
// @Success 200 {object} services.LoanValidation
// @Router /members/{member_id}/loans/validate [post]
func (h *LoanHandler) Validate(c *gin.Context) {
	memberID, ok := pathID(c, "member_id")
	if !ok {
		return
	}
	var req LoanRequest
	if err := bindBody(c, "loan", &req); err != nil {
		respondBindError(c, err)
		return
	}

	validation, err := h.loanService.ValidateLoanRequest(c.Request.Context(), memberID, req.Amount, req.Override)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, validation, validation.Reason)
}

// @Summary Create Loan
// @Tags Loans
// @Accept json
// @Produce json
// @Param member_id path int true "Member ID"
// @Param request body LoanRequest true "Requested loan"
// @Success 201 {object} models.Loan
// @Failure 422 {object} Response
// @Router /members/{member_id}/loans [post]
func (h *LoanHandler) Create(c *gin.Context) {
	memberID, ok := pathID(c, "member_id")
	if !ok {
		return
	}
	var req LoanRequest
	if err := bindBody(c, "loan", &req); err != nil {
		respondBindError(c, err)
		return
	}

	loan, err := h.loanService.CreateLoan(c.Request.Context(), services.CreateLoanRequest{
		MemberID: memberID,
		Amount:   req.Amount,
		Override: req.Override,
		Notes:    req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, loan, "Loan created")
}

// @Summary Member Loans
// @Tags Loans
// @Produce json
// @Param member_id path int true "Member ID"
// @Param include_closed query bool false "Include closed loans"
// @Success 200 {object} Response
// @Router /members/{member_id}/loans [get]
func (h *LoanHandler) IndexByMember(c *gin.Context) {
	memberID, ok := pathID(c, "member_id")
	if !ok {
		return
	}
	includeClosed, _ := strconv.ParseBool(c.DefaultQuery("include_closed", "false"))

	loans, err := h.loanService.ListMemberLoans(c.Request.Context(), memberID, includeClosed)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, loans, "")
}

// @Summary Member Loan Stats
// @Tags Loans
// @Produce json
// @Param member_id path int true "Member ID"
// @Success 200 {object} services.LoanStats
// @Router /members/{member_id}/loans/stats [get]
func (h *LoanHandler) Stats(c *gin.Context) {
	memberID, ok := pathID(c, "member_id")
	if !ok {
		return
	}
	stats, err := h.loanService.GetMemberLoanStats(c.Request.Context(), memberID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, stats, "")
}

// @Summary Active Loans
// @Tags Loans
// @Produce json
// @Success 200 {object} Response
// @Router /loans/active [get]
func (h *LoanHandler) Active(c *gin.Context) {
	loans, err := h.loanService.ListActiveLoans(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, loans, "")
}

// @Summary Overdue Loans
// @Tags Loans
// @Produce json
// @Success 200 {object} Response
// @Router /loans/overdue [get]
func (h *LoanHandler) Overdue(c *gin.Context) {
	loans, err := h.loanService.ListOverdueLoans(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, loans, "")
}

// @Summary Get Loan
// @Description A loan with the ledger entries that paid it down
// @Tags Loans
// @Produce json
// @Param loan_id path int true "Loan ID"
// @Success 200 {object} services.LoanDetail
// @Failure 404 {object} Response
// @Router /loans/{loan_id} [get]
func (h *LoanHandler) Show(c *gin.Context) {
	loanID, ok := pathID(c, "loan_id")
	if !ok {
		return
	}
	detail, err := h.loanService.GetLoan(c.Request.Context(), loanID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, detail, "")
}

// @Summary Loan Payment
// @Description Applies a payment interest first; the remainder reduces the principal
// @Tags Loans
// @Accept json
// @Produce json
// @Param loan_id path int true "Loan ID"
// @Param request body LoanPaymentRequest true "Payment"
// @Success 200 {object} services.LoanPaymentResult
// @Failure 409 {object} Response
// @Router /loans/{loan_id}/payments [post]
func (h *LoanHandler) Pay(c *gin.Context) {
	loanID, ok := pathID(c, "loan_id")
	if !ok {
		return
	}
	var req LoanPaymentRequest
	if err := bindBody(c, "payment", &req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.loanService.UpdateLoanBalance(c.Request.Context(), loanID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result, "Payment applied")
}

// @Summary Close Loan
// @Description Force-closes a loan regardless of its balance
// @Tags Loans
// @Accept json
// @Produce json
// @Param loan_id path int true "Loan ID"
// @Param request body CloseLoanRequest true "Reason"
// @Success 200 {object} models.Loan
// @Failure 409 {object} Response
// @Router /loans/{loan_id}/close [post]
func (h *LoanHandler) Close(c *gin.Context) {
	loanID, ok := pathID(c, "loan_id")
	if !ok {
		return
	}
	var req CloseLoanRequest
	if err := bindBody(c, "loan", &req); err != nil {
		respondBindError(c, err)
		return
	}

	loan, err := h.loanService.CloseLoan(c.Request.Context(), loanID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, loan, "Loan closed")
}
