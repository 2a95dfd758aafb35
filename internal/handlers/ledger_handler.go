package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/society-ledger/internal/services"
)

type LedgerHandler struct {
	ledgerService *services.LedgerService
}

func NewLedgerHandler(ledgerService *services.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

// CreateEntryRequest posts a passbook entry. Amount is used by the single
// kinds; MIXED entries set the per-column amounts instead.
type CreateEntryRequest struct {
	Kind              string          `json:"kind" binding:"required,oneof=DEPOSIT INSTALLMENT FINE EXPENSE OTHER MIXED"`
	Amount            decimal.Decimal `json:"amount" swaggertype:"string"`
	DepositAmount     decimal.Decimal `json:"deposit_amount" swaggertype:"string"`
	InstallmentAmount decimal.Decimal `json:"installment_amount" swaggertype:"string"`
	InterestAmount    decimal.Decimal `json:"interest_amount" swaggertype:"string"`
	FineAmount        decimal.Decimal `json:"fine_amount" swaggertype:"string"`
	LoanID            *uint           `json:"loan_id"`
	Mode              string          `json:"mode" binding:"omitempty,oneof=cash bank upi cheque"`
	TransactionDate   *time.Time      `json:"transaction_date"`
	Description       string          `json:"description" binding:"max=500"`
}

// UpdateEntryRequest changes only the fields that are present
type UpdateEntryRequest struct {
	DepositAmount     *decimal.Decimal `json:"deposit_amount" swaggertype:"string"`
	InstallmentAmount *decimal.Decimal `json:"installment_amount" swaggertype:"string"`
	FineAmount        *decimal.Decimal `json:"fine_amount" swaggertype:"string"`
	LoanID            *uint            `json:"loan_id"`
	Mode              *string          `json:"mode" binding:"omitempty,oneof=cash bank upi cheque"`
	TransactionDate   *time.Time       `json:"transaction_date"`
	Description       *string          `json:"description" binding:"omitempty,max=500"`
}

// @Summary Create Ledger Entry
// @Description Post a deposit, installment, fine, expense, other or mixed entry. Installments reduce the member's active loan in the same transaction.
// @Tags Ledger
// @Accept json
// @Produce json
// @Param member_id path int true "Member ID"
// @Param request body CreateEntryRequest true "Entry"
// @Success 201 {object} services.CreateEntryResult
// @Failure 404 {object} Response
// @Failure 422 {object} Response
// @Router /members/{member_id}/entries [post]
func (h *LedgerHandler) Create(c *gin.Context) {
	memberID, ok := pathID(c, "member_id")
	if !ok {
		return
	}
	var req CreateEntryRequest
	if err := bindBody(c, "entry", &req); err != nil {
		respondBindError(c, err)
		return
	}

	in := services.CreateEntryRequest{
		MemberID:          memberID,
		Kind:              req.Kind,
		Amount:            req.Amount,
		DepositAmount:     req.DepositAmount,
		InstallmentAmount: req.InstallmentAmount,
		InterestAmount:    req.InterestAmount,
		FineAmount:        req.FineAmount,
		LoanID:            req.LoanID,
		Mode:              req.Mode,
		Description:       req.Description,
	}
	if req.TransactionDate != nil {
		in.TransactionDate = *req.TransactionDate
	}

	result, err := h.ledgerService.CreateEntry(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Entry created"
	if result.LoanClosed {
		message = "Entry created; loan fully repaid and closed"
	}
	respond(c, http.StatusCreated, result, message)
}

// @Summary Transaction History
// @Description Most recent entries first
// @Tags Ledger
// @Produce json
// @Param member_id path int true "Member ID"
// @Param limit query int false "Maximum entries" default(50)
// @Success 200 {object} Response
// @Router /members/{member_id}/entries [get]
func (h *LedgerHandler) Index(c *gin.Context) {
	memberID, ok := pathID(c, "member_id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	entries, err := h.ledgerService.GetTransactionHistory(c.Request.Context(), memberID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, entries, "")
}

// @Summary Update Ledger Entry
// @Description Reverses the entry's previous effect on its loan and applies the new one
// @Tags Ledger
// @Accept json
// @Produce json
// @Param member_id path int true "Member ID"
// @Param entry_id path int true "Entry ID"
// @Param request body UpdateEntryRequest true "Changed fields"
// @Success 200 {object} services.UpdateEntryResult
// @Failure 409 {object} Response
// @Router /members/{member_id}/entries/{entry_id} [put]
func (h *LedgerHandler) Update(c *gin.Context) {
	memberID, ok := pathID(c, "member_id")
	if !ok {
		return
	}
	entryID, ok := pathID(c, "entry_id")
	if !ok {
		return
	}
	var req UpdateEntryRequest
	if err := bindBody(c, "entry", &req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.ledgerService.UpdateEntry(c.Request.Context(), services.UpdateEntryRequest{
		EntryID:           entryID,
		MemberID:          memberID,
		DepositAmount:     req.DepositAmount,
		InstallmentAmount: req.InstallmentAmount,
		FineAmount:        req.FineAmount,
		LoanID:            req.LoanID,
		Mode:              req.Mode,
		TransactionDate:   req.TransactionDate,
		Description:       req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result, "Entry updated")
}

// @Summary Delete Ledger Entry
// @Description An installment on an active loan is given back to the loan balance
// @Tags Ledger
// @Produce json
// @Param member_id path int true "Member ID"
// @Param entry_id path int true "Entry ID"
// @Success 200 {object} services.DeleteEntryResult
// @Failure 409 {object} Response
// @Router /members/{member_id}/entries/{entry_id} [delete]
func (h *LedgerHandler) Delete(c *gin.Context) {
	memberID, ok := pathID(c, "member_id")
	if !ok {
		return
	}
	entryID, ok := pathID(c, "entry_id")
	if !ok {
		return
	}

	result, err := h.ledgerService.DeleteEntry(c.Request.Context(), entryID, memberID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result, "Entry deleted")
}
