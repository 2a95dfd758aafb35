package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sjperalta/society-ledger/internal/services"
)

type AuditHandler struct {
	auditService *services.AuditService
}

func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// @Summary List Audit Logs
// @Description Get a paginated list of engine audit logs, newest first
// @Tags Audit
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(50)
// @Param entity query string false "LedgerEntry, Loan, MaturityRecord or Member"
// @Param entity_id query int false "Entity ID"
// @Param action query string false "CREATE, UPDATE, DELETE, CLOSE, PAY, CLAIM or ADJUST"
// @Success 200 {object} Response
// @Router /audits [get]
func (h *AuditHandler) Index(c *gin.Context) {
	query := listQuery(c, 50)
	query.Filters["entity"] = c.Query("entity")
	query.Filters["entity_id"] = c.Query("entity_id")
	query.Filters["action"] = c.Query("action")

	logs, total, err := h.auditService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, logs, query, total)
}
