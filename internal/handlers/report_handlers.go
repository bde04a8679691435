package handlers

import (
	"net/http"
	"strconv"

	"github.com/j-greybard/arcadetracker/internal/services"
	"github.com/j-greybard/arcadetracker/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ReportHandler holds the report service.
type ReportHandler struct {
	reportService services.ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(rs services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: rs}
}

func parseDays(c *gin.Context) (int, bool) {
	days := 30
	if daysStr := c.Query("days"); daysStr != "" {
		parsed, err := strconv.Atoi(daysStr)
		if err != nil || parsed < 1 {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid days format.", "days must be a positive integer"))
			return 0, false
		}
		days = parsed
	}
	return days, true
}

// GetRevenueReport handles the trailing-window revenue report.
func (h *ReportHandler) GetRevenueReport(c *gin.Context) {
	days, ok := parseDays(c)
	if !ok {
		return
	}

	report, err := h.reportService.RevenueReport(days)
	if err != nil {
		utils.LogError(err, "GetRevenueReport: Error from reportService.RevenueReport")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to build revenue report.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetRepairCostReport handles the trailing-window repair cost report.
func (h *ReportHandler) GetRepairCostReport(c *gin.Context) {
	days, ok := parseDays(c)
	if !ok {
		return
	}

	report, err := h.reportService.RepairCostReport(days)
	if err != nil {
		utils.LogError(err, "GetRepairCostReport: Error from reportService.RepairCostReport")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to build repair cost report.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, report)
}
