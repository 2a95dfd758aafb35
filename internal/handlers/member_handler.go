package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/society-ledger/internal/services"
)

type MemberHandler struct {
	memberService *services.MemberService
	ledgerService *services.LedgerService
}

func NewMemberHandler(memberService *services.MemberService, ledgerService *services.LedgerService) *MemberHandler {
	return &MemberHandler{memberService: memberService, ledgerService: ledgerService}
}

type CreateMemberRequest struct {
	MemberCode  string     `json:"member_code" binding:"required,max=32"`
	FullName    string     `json:"full_name" binding:"required,max=160"`
	Phone       string     `json:"phone" binding:"max=32"`
	JoiningDate *time.Time `json:"joining_date"`
}

type UpdateMemberStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive"`
}

// @Summary Register Member
// @Description Register a society member. Members are never deleted.
// @Tags Members
// @Accept json
// @Produce json
// @Param request body CreateMemberRequest true "Member"
// @Success 201 {object} Response
// @Failure 409 {object} Response
// @Router /members [post]
func (h *MemberHandler) Create(c *gin.Context) {
	var req CreateMemberRequest
	if err := bindBody(c, "member", &req); err != nil {
		respondBindError(c, err)
		return
	}

	in := services.CreateMemberRequest{MemberCode: req.MemberCode, FullName: req.FullName, Phone: req.Phone}
	if req.JoiningDate != nil {
		in.JoiningDate = *req.JoiningDate
	}

	member, err := h.memberService.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, member, "Member registered")
}

// @Summary List Members
// @Tags Members
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param status query string false "active or inactive"
// @Param search_term query string false "Name or code"
// @Success 200 {object} Response
// @Router /members [get]
func (h *MemberHandler) Index(c *gin.Context) {
	query := listQuery(c, 20)
	query.Filters["status"] = c.Query("status")

	members, total, err := h.memberService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, members, query, total)
}

// @Summary Get Member
// @Tags Members
// @Produce json
// @Param member_id path int true "Member ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /members/{member_id} [get]
func (h *MemberHandler) Show(c *gin.Context) {
	id, ok := pathID(c, "member_id")
	if !ok {
		return
	}
	member, err := h.memberService.FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, member, "")
}

// @Summary Set Member Status
// @Description Deactivated members are left out of maturity refreshes
// @Tags Members
// @Accept json
// @Produce json
// @Param member_id path int true "Member ID"
// @Param request body UpdateMemberStatusRequest true "Status"
// @Success 200 {object} Response
// @Router /members/{member_id}/status [patch]
func (h *MemberHandler) SetStatus(c *gin.Context) {
	id, ok := pathID(c, "member_id")
	if !ok {
		return
	}
	var req UpdateMemberStatusRequest
	if err := bindBody(c, "member", &req); err != nil {
		respondBindError(c, err)
		return
	}
	member, err := h.memberService.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, member, "Member status updated")
}

// @Summary Member Summary
// @Description Deposit, installment, fine totals and outstanding loans of a member
// @Tags Members
// @Produce json
// @Param member_id path int true "Member ID"
// @Success 200 {object} services.MemberSummary
// @Failure 404 {object} Response
// @Router /members/{member_id}/summary [get]
func (h *MemberHandler) Summary(c *gin.Context) {
	id, ok := pathID(c, "member_id")
	if !ok {
		return
	}
	summary, err := h.ledgerService.GetMemberSummary(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, summary, "")
}
