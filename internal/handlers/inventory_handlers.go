package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/j-greybard/arcadetracker/internal/models"
	"github.com/j-greybard/arcadetracker/internal/services"
	"github.com/j-greybard/arcadetracker/pkg/utils"

	"github.com/gin-gonic/gin"
)

// InventoryHandler holds the inventory and stock services.
type InventoryHandler struct {
	inventoryService services.InventoryService
	stockService     services.StockService
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(is services.InventoryService, ss services.StockService) *InventoryHandler {
	return &InventoryHandler{inventoryService: is, stockService: ss}
}

// CreateItem handles the creation of a new inventory item.
func (h *InventoryHandler) CreateItem(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User not authenticated.", ""))
		return
	}

	var req services.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	item, err := h.inventoryService.CreateItem(req, actorID)
	if err != nil {
		utils.LogError(err, "CreateItem: Error from inventoryService.CreateItem")
		if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to create item.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusCreated, item)
}

// GetItems handles fetching inventory items with filters.
func (h *InventoryHandler) GetItems(c *gin.Context) {
	var filters models.InventoryFilters

	if search := c.Query("search"); search != "" {
		filters.Search = &search
	}
	if lowStock := c.Query("low_stock"); lowStock == "true" {
		filters.LowStockOnly = true
	}

	page, pageSize, ok := parsePagination(c)
	if !ok {
		return
	}
	filters.Page = page
	filters.PageSize = pageSize

	items, totalCount, totalValue, err := h.inventoryService.GetItems(filters)
	if err != nil {
		utils.LogError(err, "GetItems: Error from inventoryService.GetItems")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch items.", "Internal error"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":        items,
		"total":       totalCount,
		"total_value": totalValue,
		"page":        filters.Page,
		"page_size":   filters.PageSize,
	})
}

// GetItemByID handles fetching a single item with its recent history and
// alert state.
func (h *InventoryHandler) GetItemByID(c *gin.Context) {
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	detail, err := h.inventoryService.GetItemByID(itemID)
	if err != nil {
		if errors.Is(err, services.ErrItemNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Inventory item not found.", err.Error()))
		} else {
			utils.LogError(err, "GetItemByID: Error from inventoryService.GetItemByID")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch item.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, detail)
}

// UpdateItem handles editing an item's descriptive fields, with an audited
// adjustment when the quantity is changed through the edit form.
func (h *InventoryHandler) UpdateItem(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User not authenticated.", ""))
		return
	}

	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	item, err := h.inventoryService.UpdateItem(itemID, req, actorID)
	if err != nil {
		utils.LogError(err, "UpdateItem: Error from inventoryService.UpdateItem")
		if errors.Is(err, services.ErrItemNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Inventory item not found.", err.Error()))
		} else if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to update item.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteItem handles removing an item with its history and alerts.
func (h *InventoryHandler) DeleteItem(c *gin.Context) {
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.inventoryService.DeleteItem(itemID); err != nil {
		utils.LogError(err, "DeleteItem: Error from inventoryService.DeleteItem")
		if errors.Is(err, services.ErrItemNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Inventory item not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to delete item.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item deleted successfully"})
}

// AdjustStock handles a manual audited stock change for an item.
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User not authenticated.", ""))
		return
	}

	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.StockChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}
	req.ItemID = itemID
	req.ActorID = actorID

	entry, err := h.stockService.AdjustStock(req)
	if err != nil {
		utils.LogError(err, "AdjustStock: Error from stockService.AdjustStock")
		switch {
		case errors.Is(err, services.ErrItemNotFound):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Inventory item not found.", err.Error()))
		case errors.Is(err, services.ErrInsufficientStock):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Insufficient stock for this change.", err.Error()))
		case errors.Is(err, services.ErrInvalidChangeKind), errors.Is(err, services.ErrInvalidQuantity), errors.Is(err, services.ErrValidation):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, err.Error(), err.Error()))
		default:
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to adjust stock.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// GetStockHistory handles fetching the stock audit trail with filters.
func (h *InventoryHandler) GetStockHistory(c *gin.Context) {
	var filters models.StockHistoryFilters

	if itemIDStr := c.Query("item_id"); itemIDStr != "" {
		itemID, err := strconv.ParseInt(itemIDStr, 10, 64)
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid item_id format.", err.Error()))
			return
		}
		filters.ItemID = &itemID
	}
	if actorIDStr := c.Query("actor_id"); actorIDStr != "" {
		actorID, err := strconv.ParseInt(actorIDStr, 10, 64)
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid actor_id format.", err.Error()))
			return
		}
		filters.ActorID = &actorID
	}
	if changeKind := c.Query("change_kind"); changeKind != "" {
		filters.ChangeKind = &changeKind
	}
	if startStr := c.Query("start_date"); startStr != "" {
		start, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid start_date format. Use YYYY-MM-DD.", err.Error()))
			return
		}
		filters.StartDate = &start
	}
	if endStr := c.Query("end_date"); endStr != "" {
		end, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid end_date format. Use YYYY-MM-DD.", err.Error()))
			return
		}
		filters.EndDate = &end
	}

	page, pageSize, ok := parsePagination(c)
	if !ok {
		return
	}
	filters.Page = page
	filters.PageSize = pageSize

	entries, totalCount, err := h.stockService.GetStockHistory(filters)
	if err != nil {
		utils.LogError(err, "GetStockHistory: Error from stockService.GetStockHistory")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch stock history.", "Internal error"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      entries,
		"total":     totalCount,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}
