package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/j-greybard/arcadetracker/internal/services"
	"github.com/j-greybard/arcadetracker/pkg/utils"

	"github.com/gin-gonic/gin"
)

// MeterHandler holds the meter service.
type MeterHandler struct {
	meterService services.MeterService
}

// NewMeterHandler creates a new MeterHandler.
func NewMeterHandler(ms services.MeterService) *MeterHandler {
	return &MeterHandler{meterService: ms}
}

// RecordReading handles recording a new cumulative meter reading for a
// machine.
func (h *MeterHandler) RecordReading(c *gin.Context) {
	machineID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.RecordReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}
	req.MachineID = machineID

	reading, err := h.meterService.RecordReading(req)
	if err != nil {
		h.respondMeterError(c, err, "RecordReading")
		return
	}
	c.JSON(http.StatusCreated, reading)
}

// SetBaseline handles establishing a machine's baseline coin count.
func (h *MeterHandler) SetBaseline(c *gin.Context) {
	machineID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		CumulativeCount int64     `json:"cumulative_count"`
		RecordedDate    time.Time `json:"recorded_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	reading, err := h.meterService.SetBaseline(machineID, req.CumulativeCount, req.RecordedDate)
	if err != nil {
		h.respondMeterError(c, err, "SetBaseline")
		return
	}
	c.JSON(http.StatusCreated, reading)
}

// GetReadings handles fetching a machine's reading history.
func (h *MeterHandler) GetReadings(c *gin.Context) {
	machineID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	page, pageSize, ok := parsePagination(c)
	if !ok {
		return
	}

	readings, totalCount, err := h.meterService.GetReadings(machineID, page, pageSize)
	if err != nil {
		utils.LogError(err, "GetReadings: Error from meterService.GetReadings")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch readings.", "Internal error"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      readings,
		"total":     totalCount,
		"page":      page,
		"page_size": pageSize,
	})
}

// DeleteReading handles removing a single reading and reversing its deltas.
func (h *MeterHandler) DeleteReading(c *gin.Context) {
	readingID, ok := parseIDParam(c, "reading_id")
	if !ok {
		return
	}

	if err := h.meterService.DeleteReading(readingID); err != nil {
		h.respondMeterError(c, err, "DeleteReading")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reading deleted successfully"})
}

func (h *MeterHandler) respondMeterError(c *gin.Context, err error, operation string) {
	switch {
	case errors.Is(err, services.ErrMachineNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Machine not found.", err.Error()))
	case errors.Is(err, services.ErrReadingNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Reading not found.", err.Error()))
	case errors.Is(err, services.ErrInvalidCounter):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Reading conflicts with the machine's meter history.", err.Error()))
	case errors.Is(err, services.ErrBaselineNotAllowed):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Baseline cannot be set once readings exist.", err.Error()))
	case errors.Is(err, services.ErrCounterUnavailable):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Machine's coin counter is not working.", err.Error()))
	case errors.Is(err, services.ErrValidation):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, err.Error(), err.Error()))
	default:
		utils.LogError(err, operation+": Error from meterService")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to process reading.", "Internal error"))
	}
}
