package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/j-greybard/arcadetracker/internal/services"
	"github.com/j-greybard/arcadetracker/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AlertHandler holds the alert service.
type AlertHandler struct {
	alertService services.AlertService
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(as services.AlertService) *AlertHandler {
	return &AlertHandler{alertService: as}
}

// GetAlerts handles fetching low stock alerts, optionally filtered by
// resolved state.
func (h *AlertHandler) GetAlerts(c *gin.Context) {
	var resolved *bool
	if resolvedStr := c.Query("resolved"); resolvedStr != "" {
		parsed, err := strconv.ParseBool(resolvedStr)
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid resolved format.", "resolved must be true or false"))
			return
		}
		resolved = &parsed
	}

	page, pageSize, ok := parsePagination(c)
	if !ok {
		return
	}

	alerts, totalCount, err := h.alertService.GetAlerts(resolved, page, pageSize)
	if err != nil {
		utils.LogError(err, "GetAlerts: Error from alertService.GetAlerts")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch alerts.", "Internal error"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      alerts,
		"total":     totalCount,
		"page":      page,
		"page_size": pageSize,
	})
}

// ResolveAlert handles manually resolving a low stock alert. Resolving an
// already resolved alert is a no-op.
func (h *AlertHandler) ResolveAlert(c *gin.Context) {
	alertID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	alert, err := h.alertService.ResolveAlert(alertID)
	if err != nil {
		utils.LogError(err, "ResolveAlert: Error from alertService.ResolveAlert")
		if errors.Is(err, services.ErrAlertNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Alert not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to resolve alert.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, alert)
}
