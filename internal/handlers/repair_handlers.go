package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/j-greybard/arcadetracker/internal/models"
	"github.com/j-greybard/arcadetracker/internal/services"
	"github.com/j-greybard/arcadetracker/pkg/utils"

	"github.com/gin-gonic/gin"
)

// RepairHandler holds the repair service.
type RepairHandler struct {
	repairService services.RepairService
}

// NewRepairHandler creates a new RepairHandler.
func NewRepairHandler(rs services.RepairService) *RepairHandler {
	return &RepairHandler{repairService: rs}
}

// partUsageResponse is the JSON shape for one allocation attempt. The error
// from a failed line is flattened to a string for the client.
type partUsageResponse struct {
	ItemID     int64                   `json:"item_id"`
	Allocation *models.UsageAllocation `json:"allocation,omitempty"`
	Error      string                  `json:"error,omitempty"`
}

func toPartUsageResponses(results []services.PartUsageResult) []partUsageResponse {
	responses := make([]partUsageResponse, 0, len(results))
	for _, result := range results {
		response := partUsageResponse{ItemID: result.ItemID, Allocation: result.Allocation}
		if result.Err != nil {
			response.Error = result.Err.Error()
		}
		responses = append(responses, response)
	}
	return responses
}

// CreateRepairOrder handles the creation of a repair order, optionally
// consuming parts in the same request.
func (h *RepairHandler) CreateRepairOrder(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User not authenticated.", ""))
		return
	}

	var req services.CreateRepairOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	order, results, err := h.repairService.CreateRepairOrder(req, actorID)
	if err != nil {
		utils.LogError(err, "CreateRepairOrder: Error from repairService.CreateRepairOrder")
		switch {
		case errors.Is(err, services.ErrMachineNotFound):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Machine not found.", err.Error()))
		case errors.Is(err, services.ErrInvalidRepairStatus):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid repair order status.", err.Error()))
		default:
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to create repair order.", "Internal error"))
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order":        order,
		"part_results": toPartUsageResponses(results),
	})
}

// GetRepairOrders handles fetching repair orders with filters.
func (h *RepairHandler) GetRepairOrders(c *gin.Context) {
	var filters models.RepairFilters

	if machineIDStr := c.Query("machine_id"); machineIDStr != "" {
		machineID, err := strconv.ParseInt(machineIDStr, 10, 64)
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid machine_id format.", err.Error()))
			return
		}
		filters.MachineID = &machineID
	}
	if status := c.Query("status"); status != "" {
		filters.Status = &status
	}

	page, pageSize, ok := parsePagination(c)
	if !ok {
		return
	}
	filters.Page = page
	filters.PageSize = pageSize

	orders, totalCount, err := h.repairService.GetRepairOrders(filters)
	if err != nil {
		utils.LogError(err, "GetRepairOrders: Error from repairService.GetRepairOrders")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch repair orders.", "Internal error"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      orders,
		"total":     totalCount,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}

// GetRepairOrderByID handles fetching one repair order with its allocations
// and work logs.
func (h *RepairHandler) GetRepairOrderByID(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.repairService.GetRepairOrderByID(orderID)
	if err != nil {
		if errors.Is(err, services.ErrRepairOrderNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Repair order not found.", err.Error()))
		} else {
			utils.LogError(err, "GetRepairOrderByID: Error from repairService.GetRepairOrderByID")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch repair order.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateRepairOrderStatus handles moving a repair order through its
// lifecycle.
func (h *RepairHandler) UpdateRepairOrderStatus(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	order, err := h.repairService.UpdateRepairOrderStatus(orderID, req.Status)
	if err != nil {
		utils.LogError(err, "UpdateRepairOrderStatus: Error from repairService.UpdateRepairOrderStatus")
		switch {
		case errors.Is(err, services.ErrRepairOrderNotFound):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Repair order not found.", err.Error()))
		case errors.Is(err, services.ErrInvalidRepairStatus):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid repair order status.", err.Error()))
		default:
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to update repair order.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, order)
}

// AllocateParts handles consuming inventory against an existing repair
// order. Lines are processed independently; the response reports each one.
func (h *RepairHandler) AllocateParts(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User not authenticated.", ""))
		return
	}

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Parts []services.PartUsageRequest `json:"parts" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	results, err := h.repairService.AllocateParts(orderID, req.Parts, actorID)
	if err != nil {
		utils.LogError(err, "AllocateParts: Error from repairService.AllocateParts")
		if errors.Is(err, services.ErrRepairOrderNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Repair order not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to allocate parts.", "Internal error"))
		}
		return
	}

	status := http.StatusOK
	for _, result := range results {
		if result.Err != nil {
			status = http.StatusMultiStatus
			break
		}
	}
	c.JSON(status, gin.H{"part_results": toPartUsageResponses(results)})
}

// AddWorkLog handles appending a work log entry to a repair order.
func (h *RepairHandler) AddWorkLog(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User not authenticated.", ""))
		return
	}

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.AddWorkLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	workLog, err := h.repairService.AddWorkLog(orderID, req, actorID)
	if err != nil {
		utils.LogError(err, "AddWorkLog: Error from repairService.AddWorkLog")
		if errors.Is(err, services.ErrRepairOrderNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Repair order not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to add work log.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusCreated, workLog)
}

// DeleteRepairOrder handles removing a repair order with its logs and
// allocations. Consumed stock stays debited.
func (h *RepairHandler) DeleteRepairOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.repairService.DeleteRepairOrder(orderID); err != nil {
		utils.LogError(err, "DeleteRepairOrder: Error from repairService.DeleteRepairOrder")
		if errors.Is(err, services.ErrRepairOrderNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Repair order not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to delete repair order.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Repair order deleted successfully"})
}
