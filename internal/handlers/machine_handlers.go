package handlers

import (
	"errors"
	"net/http"

	"github.com/j-greybard/arcadetracker/internal/models"
	"github.com/j-greybard/arcadetracker/internal/services"
	"github.com/j-greybard/arcadetracker/pkg/utils"

	"github.com/gin-gonic/gin"
)

// MachineHandler holds the machine service.
type MachineHandler struct {
	machineService services.MachineService
}

// NewMachineHandler creates a new MachineHandler.
func NewMachineHandler(ms services.MachineService) *MachineHandler {
	return &MachineHandler{machineService: ms}
}

// CreateMachine handles the creation of a new machine.
func (h *MachineHandler) CreateMachine(c *gin.Context) {
	var req services.CreateMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	machine, err := h.machineService.CreateMachine(req)
	if err != nil {
		utils.LogError(err, "CreateMachine: Error from machineService.CreateMachine")
		if errors.Is(err, services.ErrMachineNameTaken) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Machine name already exists.", err.Error()))
		} else if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to create machine.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusCreated, machine)
}

// GetMachines handles fetching machines with filters.
func (h *MachineHandler) GetMachines(c *gin.Context) {
	var filters models.MachineFilters

	if location := c.Query("location"); location != "" {
		filters.Location = &location
	}
	if status := c.Query("status"); status != "" {
		filters.Status = &status
	}
	if counterStatus := c.Query("counter_status"); counterStatus != "" {
		filters.CounterStatus = &counterStatus
	}
	if search := c.Query("search"); search != "" {
		filters.Search = &search
	}

	page, pageSize, ok := parsePagination(c)
	if !ok {
		return
	}
	filters.Page = page
	filters.PageSize = pageSize

	machines, totalCount, err := h.machineService.GetMachines(filters)
	if err != nil {
		utils.LogError(err, "GetMachines: Error from machineService.GetMachines")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch machines.", "Internal error"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      machines,
		"total":     totalCount,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}

// GetMachineByID handles fetching a single machine.
func (h *MachineHandler) GetMachineByID(c *gin.Context) {
	machineID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	machine, err := h.machineService.GetMachineByID(machineID)
	if err != nil {
		if errors.Is(err, services.ErrMachineNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Machine not found.", err.Error()))
		} else {
			utils.LogError(err, "GetMachineByID: Error from machineService.GetMachineByID")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch machine.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, machine)
}

// UpdateMachine handles editing a machine's catalog fields.
func (h *MachineHandler) UpdateMachine(c *gin.Context) {
	machineID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.CreateMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	machine, err := h.machineService.UpdateMachine(machineID, req)
	if err != nil {
		utils.LogError(err, "UpdateMachine: Error from machineService.UpdateMachine")
		if errors.Is(err, services.ErrMachineNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Machine not found.", err.Error()))
		} else if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to update machine.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, machine)
}

// SetCounterStatus handles flipping a machine's coin counter state.
func (h *MachineHandler) SetCounterStatus(c *gin.Context) {
	machineID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		CounterStatus string  `json:"counter_status" binding:"required"`
		CounterNotes  *string `json:"counter_notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	machine, err := h.machineService.SetCounterStatus(machineID, req.CounterStatus, req.CounterNotes)
	if err != nil {
		utils.LogError(err, "SetCounterStatus: Error from machineService.SetCounterStatus")
		if errors.Is(err, services.ErrMachineNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Machine not found.", err.Error()))
		} else if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to update counter status.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, machine)
}

// DeleteMachine handles removing a machine and its history.
func (h *MachineHandler) DeleteMachine(c *gin.Context) {
	machineID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.machineService.DeleteMachine(machineID); err != nil {
		utils.LogError(err, "DeleteMachine: Error from machineService.DeleteMachine")
		if errors.Is(err, services.ErrMachineNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Machine not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to delete machine.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Machine deleted successfully"})
}
