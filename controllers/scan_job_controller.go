package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"datagovapi/pkg/logger"
	"datagovapi/services/scan"
	"datagovapi/utils"

	"github.com/gin-gonic/gin"
)

var scanOrchestrator *scan.Orchestrator

// SetScanOrchestrator initializes the rescan orchestrator instance.
func SetScanOrchestrator(o *scan.Orchestrator) {
	scanOrchestrator = o
}

// startFullRescan launches a full-catalog rescan
// @Summary Start full rescan
// @Description Launches a background rescan of every cataloged column
// @Tags Scan Jobs
// @Produce json
// @Success 202 {object} map[string]interface{} "Rescan job started"
// @Router /api/jobs/rescan [post]
func startFullRescan(c *gin.Context) {
	jobID := scanOrchestrator.RescanAllAsync()
	logger.Infof("Full rescan started via API: job %s", jobID)
	utils.JSONResponse(c, http.StatusAccepted, gin.H{
		"success": true,
		"job_id":  jobID,
	})
}

// getScanJob returns one scan job
// @Summary Get scan job
// @Description Returns status and summary of one background rescan job
// @Tags Scan Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} map[string]interface{} "Job status"
// @Failure 404 {object} map[string]interface{} "Job not found"
// @Router /api/jobs/{id} [get]
func getScanJob(c *gin.Context) {
	jobID := c.Param("id")
	job, ok := scan.GetJobMonitorService().GetJob(jobID)
	if !ok {
		utils.NotFoundResponse(c, fmt.Errorf("job %s not found", jobID))
		return
	}
	utils.SuccessResponse(c, job)
}

// listScanJobs lists scan jobs with pagination
// @Summary List scan jobs
// @Description Lists background rescan jobs, newest first, paginated
// @Tags Scan Jobs
// @Produce json
// @Param page query int false "Page number (1-indexed)"
// @Param page_size query int false "Page size"
// @Success 200 {object} map[string]interface{} "Paginated job list"
// @Router /api/jobs [get]
func listScanJobs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	result := scan.GetJobMonitorService().GetAllJobsPaginated(page, pageSize)
	utils.SuccessResponse(c, result)
}

// RegisterScanJobRoutes registers HTTP endpoints for rescan job operations.
func RegisterScanJobRoutes(rg *gin.RouterGroup) {
	jobs := rg.Group("/jobs")
	{
		jobs.GET("", listScanJobs)
		jobs.GET("/:id", getScanJob)
		jobs.POST("/rescan", startFullRescan)
	}
}
