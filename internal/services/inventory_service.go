package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/j-greybard/arcadetracker/internal/models"
	"github.com/j-greybard/arcadetracker/internal/repositories"
	"github.com/j-greybard/arcadetracker/pkg/utils"
)

// CreateItemRequest carries the inventory item fields a client may set.
// InitialQuantity seeds the stock ledger with an "added" entry; all later
// quantity changes go through the stock service.
type CreateItemRequest struct {
	Name             string  `json:"name" binding:"required"`
	Description      *string `json:"description"`
	InitialQuantity  int     `json:"initial_quantity"`
	UnitPrice        float64 `json:"unit_price"`
	MinimumThreshold int     `json:"minimum_threshold"`
	Supplier         *string `json:"supplier"`
	PartNumber       *string `json:"part_number"`
	Notes            *string `json:"notes"`
}

// UpdateItemRequest edits an item's descriptive fields. QuantityOnHand, when
// set, is applied as an audited adjustment rather than a silent overwrite.
type UpdateItemRequest struct {
	Name             string  `json:"name" binding:"required"`
	Description      *string `json:"description"`
	QuantityOnHand   *int    `json:"quantity_on_hand"`
	UnitPrice        float64 `json:"unit_price"`
	MinimumThreshold int     `json:"minimum_threshold"`
	Supplier         *string `json:"supplier"`
	PartNumber       *string `json:"part_number"`
	Notes            *string `json:"notes"`
}

// ItemDetail is an item together with its recent audit trail and alert state.
type ItemDetail struct {
	Item          *models.InventoryItem      `json:"item"`
	RecentHistory []models.StockHistoryEntry `json:"recent_history"`
	ActiveAlert   *models.LowStockAlert      `json:"active_alert,omitempty"`
}

// InventoryService manages the spare parts catalog.
type InventoryService interface {
	CreateItem(req CreateItemRequest, actorID int64) (*models.InventoryItem, error)
	GetItems(filters models.InventoryFilters) ([]models.InventoryItem, int, float64, error)
	GetItemByID(itemID int64) (*ItemDetail, error)
	UpdateItem(itemID int64, req UpdateItemRequest, actorID int64) (*models.InventoryItem, error)
	DeleteItem(itemID int64) error
}

type inventoryService struct {
	inventoryRepo repositories.InventoryRepository
	stockService  StockService
	alertService  AlertService
	db            *sql.DB
}

// NewInventoryService creates a new instance of InventoryService.
func NewInventoryService(ir repositories.InventoryRepository, ss StockService, as AlertService, db *sql.DB) InventoryService {
	return &inventoryService{inventoryRepo: ir, stockService: ss, alertService: as, db: db}
}

func (s *inventoryService) CreateItem(req CreateItemRequest, actorID int64) (*models.InventoryItem, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: item name is required", ErrValidation)
	}
	if req.InitialQuantity < 0 {
		return nil, fmt.Errorf("%w: initial quantity cannot be negative", ErrValidation)
	}
	if req.UnitPrice < 0 {
		return nil, fmt.Errorf("%w: unit price cannot be negative", ErrValidation)
	}
	if req.MinimumThreshold < 0 {
		return nil, fmt.Errorf("%w: minimum threshold cannot be negative", ErrValidation)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	// Quantity starts at zero so the initial stock arrives as a ledger entry
	// like any other change.
	item := models.InventoryItem{
		Name:             req.Name,
		Description:      req.Description,
		QuantityOnHand:   0,
		UnitPrice:        req.UnitPrice,
		MinimumThreshold: req.MinimumThreshold,
		Supplier:         req.Supplier,
		PartNumber:       req.PartNumber,
		Notes:            req.Notes,
	}
	if _, err := s.inventoryRepo.CreateItem(tx, &item); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: item name '%s' already exists", ErrValidation, req.Name)
		}
		return nil, fmt.Errorf("failed to create inventory item: %w", err)
	}

	if req.InitialQuantity > 0 {
		entry, err := s.stockService.ApplyChangeTx(tx, item.ID, ChangeKindAdded, req.InitialQuantity,
			"Initial stock", actorID, true)
		if err != nil {
			return nil, err
		}
		item.QuantityOnHand = entry.NewQuantity
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit item creation: %w", err)
	}

	if err := s.alertService.Evaluate(item.ID); err != nil {
		utils.LogError(err, "Low stock evaluation failed after item creation")
	}
	return &item, nil
}

func (s *inventoryService) GetItems(filters models.InventoryFilters) ([]models.InventoryItem, int, float64, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}
	items, totalCount, err := s.inventoryRepo.GetItems(filters)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to get inventory items: %w", err)
	}
	totalValue, err := s.inventoryRepo.TotalInventoryValue()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to compute inventory value: %w", err)
	}
	return items, totalCount, totalValue, nil
}

func (s *inventoryService) GetItemByID(itemID int64) (*ItemDetail, error) {
	item, err := s.inventoryRepo.GetItemByID(s.db, itemID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %d", ErrItemNotFound, itemID)
		}
		return nil, fmt.Errorf("failed to get inventory item %d: %w", itemID, err)
	}

	history, _, err := s.inventoryRepo.GetStockHistory(models.StockHistoryFilters{
		ItemID:   &itemID,
		Page:     1,
		PageSize: 20,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get stock history for item %d: %w", itemID, err)
	}

	detail := &ItemDetail{Item: item, RecentHistory: history}

	alerts, err := s.inventoryRepo.GetUnresolvedAlertsByItem(s.db, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get alerts for item %d: %w", itemID, err)
	}
	if len(alerts) > 0 {
		detail.ActiveAlert = &alerts[0]
	}
	return detail, nil
}

func (s *inventoryService) UpdateItem(itemID int64, req UpdateItemRequest, actorID int64) (*models.InventoryItem, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: item name is required", ErrValidation)
	}
	if req.UnitPrice < 0 {
		return nil, fmt.Errorf("%w: unit price cannot be negative", ErrValidation)
	}
	if req.MinimumThreshold < 0 {
		return nil, fmt.Errorf("%w: minimum threshold cannot be negative", ErrValidation)
	}
	if req.QuantityOnHand != nil && *req.QuantityOnHand < 0 {
		return nil, fmt.Errorf("%w: quantity on hand cannot be negative", ErrValidation)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := s.inventoryRepo.GetItemByID(tx, itemID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %d", ErrItemNotFound, itemID)
		}
		return nil, fmt.Errorf("failed to fetch inventory item %d: %w", itemID, err)
	}

	item.Name = req.Name
	item.Description = req.Description
	item.UnitPrice = req.UnitPrice
	item.MinimumThreshold = req.MinimumThreshold
	item.Supplier = req.Supplier
	item.PartNumber = req.PartNumber
	item.Notes = req.Notes

	if err := s.inventoryRepo.UpdateItem(tx, item); err != nil {
		return nil, fmt.Errorf("failed to update inventory item %d: %w", itemID, err)
	}

	if req.QuantityOnHand != nil && *req.QuantityOnHand != item.QuantityOnHand {
		delta := *req.QuantityOnHand - item.QuantityOnHand
		entry, err := s.stockService.ApplyChangeTx(tx, itemID, ChangeKindAdjusted, delta,
			"Manual adjustment via edit", actorID, true)
		if err != nil {
			return nil, err
		}
		item.QuantityOnHand = entry.NewQuantity
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit item update: %w", err)
	}

	// Threshold edits can change alert state even without a quantity change.
	if err := s.alertService.Evaluate(itemID); err != nil {
		utils.LogError(err, "Low stock evaluation failed after item update")
	}
	return item, nil
}

func (s *inventoryService) DeleteItem(itemID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.inventoryRepo.DeleteItem(tx, itemID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: ID %d", ErrItemNotFound, itemID)
		}
		return fmt.Errorf("failed to delete inventory item %d: %w", itemID, err)
	}
	return tx.Commit()
}
