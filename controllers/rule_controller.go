package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"datagovapi/models"
	"datagovapi/pkg/logger"
	"datagovapi/services"
	"datagovapi/utils"

	"github.com/gin-gonic/gin"
)

var ruleSrv *services.RuleService

// SetRuleService initializes the rule service instance.
func SetRuleService(srv *services.RuleService) {
	ruleSrv = srv
}

// listRules lists sensitivity rule definitions
// @Summary List rules
// @Description Lists sensitivity rule definitions, optionally filtered by enabled state
// @Tags Rules
// @Produce json
// @Param enabled query bool false "Filter by enabled state"
// @Success 200 {object} map[string]interface{} "Rule list"
// @Failure 400 {object} map[string]interface{} "Invalid filter"
// @Router /api/rules [get]
func listRules(c *gin.Context) {
	var enabled *bool
	if raw := c.Query("enabled"); raw != "" {
		val, err := strconv.ParseBool(raw)
		if err != nil {
			utils.ErrorResponse(c, fmt.Errorf("invalid enabled filter"))
			return
		}
		enabled = &val
	}

	rules, err := ruleSrv.List(enabled)
	if err != nil {
		logger.Errorf("Failed to list rules: %v", err)
		utils.ErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, rules)
}

// getRule returns one rule definition
// @Summary Get rule
// @Description Returns one sensitivity rule definition by ID
// @Tags Rules
// @Produce json
// @Param id path int true "Rule ID"
// @Success 200 {object} map[string]interface{} "Rule"
// @Failure 404 {object} map[string]interface{} "Rule not found"
// @Router /api/rules/{id} [get]
func getRule(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, fmt.Errorf("invalid id"))
		return
	}
	rule, err := ruleSrv.Get(utils.MustIntToUint(id))
	if err != nil {
		utils.NotFoundResponse(c, fmt.Errorf("rule %d not found", id))
		return
	}
	utils.SuccessResponse(c, rule)
}

// createRule creates a new sensitivity rule
// @Summary Create rule
// @Description Creates a sensitivity rule and starts a background rescan
// @Tags Rules
// @Accept json
// @Produce json
// @Param rule body models.RuleDefinition true "Rule definition"
// @Success 201 {object} map[string]interface{} "Rule created, rescan job started"
// @Failure 400 {object} map[string]interface{} "Invalid rule"
// @Router /api/rules [post]
func createRule(c *gin.Context) {
	var data models.RuleDefinition
	if err := c.ShouldBindJSON(&data); err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	logger.Debugf("Creating rule: %+v", data)
	rule, jobID, err := ruleSrv.Create(&data)
	if err != nil {
		logger.Errorf("Failed to create rule: %v", err)
		utils.ErrorResponse(c, err)
		return
	}
	logger.Infof("Successfully created rule %s with ID %d", rule.Category, rule.ID)
	utils.JSONResponse(c, http.StatusCreated, gin.H{
		"success": true,
		"data":    rule,
		"job_id":  jobID,
	})
}

// updateRule updates an existing rule
// @Summary Update rule
// @Description Updates a rule definition and starts a background rescan
// @Tags Rules
// @Accept json
// @Produce json
// @Param id path int true "Rule ID"
// @Param rule body models.RuleDefinition true "Updated rule definition"
// @Success 200 {object} map[string]interface{} "Rule updated, rescan job started"
// @Failure 400 {object} map[string]interface{} "Invalid rule"
// @Router /api/rules/{id} [put]
func updateRule(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, fmt.Errorf("invalid id"))
		return
	}
	var data models.RuleDefinition
	if err := c.ShouldBindJSON(&data); err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	logger.Debugf("Updating rule %d", id)
	rule, jobID, err := ruleSrv.Update(utils.MustIntToUint(id), &data)
	if err != nil {
		logger.Errorf("Failed to update rule %d: %v", id, err)
		utils.ErrorResponse(c, err)
		return
	}
	utils.JSONResponse(c, http.StatusOK, gin.H{
		"success": true,
		"data":    rule,
		"job_id":  jobID,
	})
}

// setRuleEnabled enables or disables a rule
// @Summary Enable or disable rule
// @Description Disabling clears the rule's classifications and resolves its issues; enabling starts a full rescan
// @Tags Rules
// @Accept json
// @Produce json
// @Param id path int true "Rule ID"
// @Param body body map[string]bool true "Enabled flag"
// @Success 200 {object} map[string]interface{} "Rule toggled"
// @Failure 400 {object} map[string]interface{} "Invalid request"
// @Router /api/rules/{id}/enabled [put]
func setRuleEnabled(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, fmt.Errorf("invalid id"))
		return
	}
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	rule, jobID, err := ruleSrv.SetEnabled(utils.MustIntToUint(id), *req.Enabled)
	if err != nil {
		logger.Errorf("Failed to toggle rule %d: %v", id, err)
		utils.ErrorResponse(c, err)
		return
	}
	utils.JSONResponse(c, http.StatusOK, gin.H{
		"success": true,
		"data":    rule,
		"job_id":  jobID,
	})
}

// previewRuleImpact previews the catalog impact of a draft rule
// @Summary Preview rule impact
// @Description Reports which columns would change category if the draft rule were saved; writes nothing
// @Tags Rules
// @Accept json
// @Produce json
// @Param rule body models.RuleDefinition true "Draft rule definition"
// @Success 200 {object} map[string]interface{} "Impact preview"
// @Failure 400 {object} map[string]interface{} "Invalid draft"
// @Router /api/rules/impact [post]
func previewRuleImpact(c *gin.Context) {
	var data models.RuleDefinition
	if err := c.ShouldBindJSON(&data); err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	impact, err := ruleSrv.PreviewImpact(&data)
	if err != nil {
		logger.Errorf("Failed to preview rule impact: %v", err)
		utils.ErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, impact)
}

// getRuleImpact reports the catalog footprint of a saved rule
// @Summary Get rule impact
// @Description Reports which columns, tables and data sources the saved rule currently matches
// @Tags Rules
// @Produce json
// @Param id path int true "Rule ID"
// @Success 200 {object} map[string]interface{} "Impact report"
// @Failure 404 {object} map[string]interface{} "Rule not found"
// @Router /api/rules/{id}/impact [get]
func getRuleImpact(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, fmt.Errorf("invalid id"))
		return
	}
	impact, err := ruleSrv.ImpactByID(utils.MustIntToUint(id))
	if err != nil {
		utils.NotFoundResponse(c, fmt.Errorf("rule %d not found", id))
		return
	}
	utils.SuccessResponse(c, impact)
}

// rescanRule starts a background rescan for one rule
// @Summary Rescan rule
// @Description Launches a background rescan of the catalog against one saved rule
// @Tags Rules
// @Produce json
// @Param id path int true "Rule ID"
// @Success 202 {object} map[string]interface{} "Rescan job started"
// @Failure 400 {object} map[string]interface{} "Rule unknown or disabled"
// @Router /api/rules/{id}/rescan [post]
func rescanRule(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, fmt.Errorf("invalid id"))
		return
	}
	jobID, err := ruleSrv.Rescan(utils.MustIntToUint(id))
	if err != nil {
		logger.Errorf("Failed to start rescan for rule %d: %v", id, err)
		utils.ErrorResponse(c, err)
		return
	}
	logger.Infof("Rule rescan started via API: job %s", jobID)
	utils.JSONResponse(c, http.StatusAccepted, gin.H{
		"success": true,
		"job_id":  jobID,
	})
}

// RegisterRuleRoutes registers HTTP endpoints for rule operations.
func RegisterRuleRoutes(rg *gin.RouterGroup) {
	rules := rg.Group("/rules")
	{
		rules.GET("", listRules)
		rules.GET("/:id", getRule)
		rules.GET("/:id/impact", getRuleImpact)
		rules.POST("", createRule)
		rules.POST("/impact", previewRuleImpact)
		rules.POST("/:id/rescan", rescanRule)
		rules.PUT("/:id", updateRule)
		rules.PUT("/:id/enabled", setRuleEnabled)
	}
}
