package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/leadchat-backend/internal/http/response"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/services"
)

type JobHandler struct {
	jobs services.JobService
}

func NewJobHandler(jobs services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// GET /functions/v1/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, ok := parseID(c, c.Param("id"), "invalid_job_id")
	if !ok {
		return
	}
	job, err := h.jobs.GetByIDForRequestUser(dbctx.Of(c.Request.Context()), jobID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// GET /functions/v1/jobs/:id/events?limit=
func (h *JobHandler) ListEvents(c *gin.Context) {
	jobID, ok := parseID(c, c.Param("id"), "invalid_job_id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	events, err := h.jobs.ListEventsForRequestUser(dbctx.Of(c.Request.Context()), jobID, limit)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"events": events})
}
