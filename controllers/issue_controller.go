package controllers

import (
	"fmt"
	"strconv"

	"datagovapi/pkg/logger"
	"datagovapi/repository"
	"datagovapi/services/issue"
	"datagovapi/utils"

	"github.com/gin-gonic/gin"
)

var issueSrv *issue.LedgerService

// SetIssueService initializes the issue ledger service instance.
func SetIssueService(srv *issue.LedgerService) {
	issueSrv = srv
}

type issueActionRequest struct {
	Author string `json:"author" binding:"required"`
	Note   string `json:"note"`
}

// listIssues lists protection issues
// @Summary List issues
// @Description Lists protection issues, filterable by data source, database, status and severity
// @Tags Issues
// @Produce json
// @Param data_source_id query int false "Data source ID"
// @Param database query string false "Database name"
// @Param status query string false "Issue status (open/acknowledged/resolved)"
// @Param severity query string false "Issue severity (critical/high/medium/low)"
// @Success 200 {object} map[string]interface{} "Issue list"
// @Failure 400 {object} map[string]interface{} "Invalid filter"
// @Router /api/issues [get]
func listIssues(c *gin.Context) {
	var filter repository.IssueFilter
	if raw := c.Query("data_source_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err == nil {
			filter.DataSourceID, err = utils.SafeIntToUint(id)
		}
		if err != nil {
			utils.ErrorResponse(c, fmt.Errorf("invalid data_source_id"))
			return
		}
	}
	filter.Database = c.Query("database")
	filter.Status = c.Query("status")
	filter.Severity = c.Query("severity")

	issues, err := issueSrv.List(filter)
	if err != nil {
		logger.Errorf("Failed to list issues: %v", err)
		utils.ErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, issues)
}

// getIssue returns one issue
// @Summary Get issue
// @Description Returns one protection issue by ID
// @Tags Issues
// @Produce json
// @Param id path int true "Issue ID"
// @Success 200 {object} map[string]interface{} "Issue"
// @Failure 404 {object} map[string]interface{} "Issue not found"
// @Router /api/issues/{id} [get]
func getIssue(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, fmt.Errorf("invalid id"))
		return
	}
	found, err := issueSrv.Get(utils.MustIntToUint(id))
	if err != nil {
		utils.NotFoundResponse(c, fmt.Errorf("issue %d not found", id))
		return
	}
	utils.SuccessResponse(c, found)
}

// acknowledgeIssue marks an open issue as an accepted risk
// @Summary Acknowledge issue
// @Description Marks an open issue acknowledged; scans will not reopen or resolve it afterwards
// @Tags Issues
// @Accept json
// @Produce json
// @Param id path int true "Issue ID"
// @Param body body issueActionRequest true "Author and note"
// @Success 200 {object} map[string]interface{} "Acknowledged issue"
// @Failure 400 {object} map[string]interface{} "Invalid transition"
// @Router /api/issues/{id}/acknowledge [post]
func acknowledgeIssue(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, fmt.Errorf("invalid id"))
		return
	}
	var req issueActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	updated, err := issueSrv.Acknowledge(utils.MustIntToUint(id), req.Author, req.Note)
	if err != nil {
		logger.Errorf("Failed to acknowledge issue %d: %v", id, err)
		utils.ErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, updated)
}

// resolveIssue closes an issue by operator decision
// @Summary Resolve issue
// @Description Resolves an open or acknowledged issue manually
// @Tags Issues
// @Accept json
// @Produce json
// @Param id path int true "Issue ID"
// @Param body body issueActionRequest true "Author and note"
// @Success 200 {object} map[string]interface{} "Resolved issue"
// @Failure 400 {object} map[string]interface{} "Invalid transition"
// @Router /api/issues/{id}/resolve [post]
func resolveIssue(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, fmt.Errorf("invalid id"))
		return
	}
	var req issueActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	updated, err := issueSrv.Resolve(utils.MustIntToUint(id), req.Author, req.Note)
	if err != nil {
		logger.Errorf("Failed to resolve issue %d: %v", id, err)
		utils.ErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, updated)
}

// RegisterIssueRoutes registers HTTP endpoints for issue operations.
func RegisterIssueRoutes(rg *gin.RouterGroup) {
	issues := rg.Group("/issues")
	{
		issues.GET("", listIssues)
		issues.GET("/:id", getIssue)
		issues.POST("/:id/acknowledge", acknowledgeIssue)
		issues.POST("/:id/resolve", resolveIssue)
	}
}
