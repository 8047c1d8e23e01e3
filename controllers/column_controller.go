package controllers

import (
	"fmt"
	"strconv"

	"datagovapi/models"
	"datagovapi/pkg/logger"
	"datagovapi/repository"
	"datagovapi/services"
	"datagovapi/utils"

	"github.com/gin-gonic/gin"
)

var catalogSrv *services.CatalogService

// SetCatalogService initializes the catalog service instance.
func SetCatalogService(srv *services.CatalogService) {
	catalogSrv = srv
}

// listColumns lists cataloged columns with classification state
// @Summary List columns
// @Description Lists cataloged columns, filterable by data source, database and table
// @Tags Catalog
// @Produce json
// @Param data_source_id query int false "Data source ID"
// @Param database query string false "Database name"
// @Param table query string false "Table name"
// @Success 200 {object} map[string]interface{} "Column list"
// @Failure 400 {object} map[string]interface{} "Invalid filter"
// @Router /api/catalog/columns [get]
func listColumns(c *gin.Context) {
	var filter repository.ColumnFilter
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
	filter.Table = c.Query("table")

	columns, err := catalogSrv.ListColumns(filter)
	if err != nil {
		logger.Errorf("Failed to list columns: %v", err)
		utils.ErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, columns)
}

// getColumn returns one cataloged column
// @Summary Get column
// @Description Returns one cataloged column with its classification state
// @Tags Catalog
// @Produce json
// @Param id path int true "Column ID"
// @Success 200 {object} map[string]interface{} "Column"
// @Failure 404 {object} map[string]interface{} "Column not found"
// @Router /api/catalog/columns/{id} [get]
func getColumn(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, fmt.Errorf("invalid id"))
		return
	}
	column, err := catalogSrv.GetColumn(utils.MustIntToUint(id))
	if err != nil {
		utils.NotFoundResponse(c, fmt.Errorf("column %d not found", id))
		return
	}
	utils.SuccessResponse(c, column)
}

// applyOverride records a manual classification override
// @Summary Override column classification
// @Description Records a human classification assertion and re-evaluates the column immediately
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path int true "Column ID"
// @Param override body models.ManualOverride true "Override"
// @Success 200 {object} map[string]interface{} "Resulting classification verdict"
// @Failure 400 {object} map[string]interface{} "Invalid override"
// @Router /api/catalog/columns/{id}/override [post]
func applyOverride(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, fmt.Errorf("invalid id"))
		return
	}
	var data models.ManualOverride
	if err := c.ShouldBindJSON(&data); err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	data.ColumnID = utils.MustIntToUint(id)

	logger.Debugf("Applying override to column %d by %s", id, data.Author)
	verdict, err := catalogSrv.ApplyOverride(c.Request.Context(), &data)
	if err != nil {
		logger.Errorf("Failed to apply override to column %d: %v", id, err)
		utils.ErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, verdict)
}

// listOverrides lists the manual override log
// @Summary List overrides
// @Description Returns the append-only manual override log, oldest first
// @Tags Catalog
// @Produce json
// @Success 200 {object} map[string]interface{} "Override log"
// @Router /api/catalog/overrides [get]
func listOverrides(c *gin.Context) {
	overrides, err := catalogSrv.ListOverrides()
	if err != nil {
		logger.Errorf("Failed to list overrides: %v", err)
		utils.ErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, overrides)
}

// listDataSources lists governed data sources
// @Summary List data sources
// @Description Returns the governed data source connections, credentials omitted
// @Tags Catalog
// @Produce json
// @Success 200 {object} map[string]interface{} "Data source list"
// @Router /api/catalog/datasources [get]
func listDataSources(c *gin.Context) {
	sources, err := catalogSrv.ListDataSources()
	if err != nil {
		logger.Errorf("Failed to list data sources: %v", err)
		utils.ErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, sources)
}

// RegisterCatalogRoutes registers HTTP endpoints for catalog operations.
func RegisterCatalogRoutes(rg *gin.RouterGroup) {
	catalog := rg.Group("/catalog")
	{
		catalog.GET("/columns", listColumns)
		catalog.GET("/columns/:id", getColumn)
		catalog.POST("/columns/:id/override", applyOverride)
		catalog.GET("/overrides", listOverrides)
		catalog.GET("/datasources", listDataSources)
	}
}
