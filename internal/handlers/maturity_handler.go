package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/society-ledger/internal/services"
)

type MaturityHandler struct {
	maturityService *services.MaturityService
}

func NewMaturityHandler(maturityService *services.MaturityService) *MaturityHandler {
	return &MaturityHandler{maturityService: maturityService}
}

type AdjustInterestRequest struct {
	Interest decimal.Decimal `json:"interest" swaggertype:"string"`
	Reason   string          `json:"reason" binding:"required,max=500"`
}

// @Summary Maturity Projection
// @Description Computes the member's maturity from current deposits and loans without saving it
// @Tags Maturity
// @Produce json
// @Param member_id path int true "Member ID"
// @Success 200 {object} services.MaturityProjection
// @Router /members/{member_id}/maturity/projection [get]
func (h *MaturityHandler) Projection(c *gin.Context) {
	memberID, ok := pathID(c, "member_id")
	if !ok {
		return
	}
	projection, err := h.maturityService.CalculateMaturity(c.Request.Context(), memberID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, projection, "")
}

// @Summary Refresh Maturity Record
// @Tags Maturity
// @Produce json
// @Param member_id path int true "Member ID"
// @Param manual_override query bool false "Mark the record as manually overridden"
// @Success 200 {object} models.MaturityRecord
// @Failure 409 {object} Response
// @Router /members/{member_id}/maturity [post]
func (h *MaturityHandler) Refresh(c *gin.Context) {
	memberID, ok := pathID(c, "member_id")
	if !ok {
		return
	}
	manual, _ := strconv.ParseBool(c.DefaultQuery("manual_override", "false"))

	record, err := h.maturityService.CreateOrUpdateMaturityRecord(c.Request.Context(), memberID, manual)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, record, "Maturity record refreshed")
}

// @Summary Get Maturity Record
// @Tags Maturity
// @Produce json
// @Param member_id path int true "Member ID"
// @Success 200 {object} models.MaturityRecord
// @Failure 404 {object} Response
// @Router /members/{member_id}/maturity [get]
func (h *MaturityHandler) Show(c *gin.Context) {
	memberID, ok := pathID(c, "member_id")
	if !ok {
		return
	}
	record, err := h.maturityService.GetMaturityRecord(c.Request.Context(), memberID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, record, "")
}

// @Summary Claim Maturity
// @Description Pays out a matured record as a deposit entry. A record can be claimed once.
// @Tags Maturity
// @Produce json
// @Param record_id path int true "Maturity record ID"
// @Success 200 {object} services.ClaimResult
// @Failure 409 {object} Response
// @Router /maturity/{record_id}/claim [post]
func (h *MaturityHandler) Claim(c *gin.Context) {
	recordID, ok := pathID(c, "record_id")
	if !ok {
		return
	}
	result, err := h.maturityService.ClaimMaturity(c.Request.Context(), recordID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result, result.Message)
}

// @Summary Adjust Maturity Interest
// @Tags Maturity
// @Accept json
// @Produce json
// @Param record_id path int true "Maturity record ID"
// @Param request body AdjustInterestRequest true "Adjusted interest"
// @Success 200 {object} models.MaturityRecord
// @Router /maturity/{record_id}/adjust [post]
func (h *MaturityHandler) Adjust(c *gin.Context) {
	recordID, ok := pathID(c, "record_id")
	if !ok {
		return
	}
	var req AdjustInterestRequest
	if err := bindBody(c, "adjustment", &req); err != nil {
		respondBindError(c, err)
		return
	}

	record, err := h.maturityService.AdjustMaturityInterest(c.Request.Context(), recordID, req.Interest, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, record, "Maturity interest adjusted")
}

// @Summary Refresh All Maturity Records
// @Description Recomputes every active member; one member's failure does not stop the batch
// @Tags Maturity
// @Produce json
// @Success 200 {object} services.MaturityBatchResult
// @Router /maturity/refresh [post]
func (h *MaturityHandler) RefreshAll(c *gin.Context) {
	result, err := h.maturityService.UpdateAllMaturityRecords(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result, "")
}

// @Summary Approaching Maturity
// @Description Active records maturing within the configured window
// @Tags Maturity
// @Produce json
// @Success 200 {object} Response
// @Router /maturity/approaching [get]
func (h *MaturityHandler) Approaching(c *gin.Context) {
	records, err := h.maturityService.GetMembersApproachingMaturity(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, records, "")
}
