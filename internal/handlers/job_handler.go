package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/society-ledger/internal/services"
)

type JobHandler struct {
	jobService *services.JobService
}

func NewJobHandler(jobSvc *services.JobService) *JobHandler {
	return &JobHandler{
		jobService: jobSvc,
	}
}

// Status returns the current worker status
// @Summary Get background job status
// @Description Get statistics about background jobs (active, completed, failed, scheduled jobs)
// @Tags Jobs
// @Produce json
// @Success 200 {object} jobs.WorkerStats
// @Router /jobs/status [get]
func (h *JobHandler) Status(c *gin.Context) {
	respond(c, http.StatusOK, h.jobService.GetStatus(), "")
}

// Trigger runs a scheduled job immediately
// @Summary Trigger a scheduled job
// @Tags Jobs
// @Produce json
// @Param name path string true "Job name" Enums(maturity-refresh, overdue-scan)
// @Success 202 {object} Response
// @Failure 409 {object} Response
// @Router /jobs/{name}/trigger [post]
func (h *JobHandler) Trigger(c *gin.Context) {
	name := c.Param("name")
	if !h.jobService.Trigger(name) {
		c.AbortWithStatusJSON(http.StatusConflict, Response{
			Success: false,
			Error:   "JOB_NOT_TRIGGERED",
			Message: "job is unknown or already running",
			Details: map[string]any{"job": name},
		})
		return
	}
	respond(c, http.StatusAccepted, gin.H{"job": name}, "Job triggered")
}
