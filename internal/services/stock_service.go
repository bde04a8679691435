package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/j-greybard/arcadetracker/internal/models"
	"github.com/j-greybard/arcadetracker/internal/repositories"
	"github.com/j-greybard/arcadetracker/pkg/utils"
)

var (
	ErrItemNotFound      = errors.New("inventory item not found")
	ErrInsufficientStock = errors.New("insufficient stock for item")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidChangeKind = errors.New("invalid stock change kind")
)

// Stock change kinds. The kind is recorded on every history entry.
const (
	ChangeKindAdded    = "added"
	ChangeKindRemoved  = "removed"
	ChangeKindUsed     = "used"
	ChangeKindAdjusted = "adjusted"
)

// StockChangeRequest is a manual stock adjustment. Quantity is the magnitude
// for added/removed/used, and the target on-hand value for adjusted.
type StockChangeRequest struct {
	ItemID     int64  `json:"item_id" binding:"required"`
	ChangeKind string `json:"change_kind" binding:"required"`
	Quantity   int    `json:"quantity"`
	Reason     string `json:"reason"`
	ActorID    int64  `json:"-"`
}

// StockService is the single path through which an item's quantity on hand
// may change. Every mutation pairs the quantity write with an immutable
// stock history entry in one transaction, then re-evaluates the item's low
// stock alert state.
type StockService interface {
	AdjustStock(req StockChangeRequest) (*models.StockHistoryEntry, error)
	ApplyChangeTx(executor repositories.SQLExecutor, itemID int64, changeKind string, quantityChange int, reason string, actorID int64, strict bool) (*models.StockHistoryEntry, error)
	GetStockHistory(filters models.StockHistoryFilters) ([]models.StockHistoryEntry, int, error)
}

type stockService struct {
	inventoryRepo repositories.InventoryRepository
	alertService  AlertService
	db            *sql.DB
}

// NewStockService creates a new instance of StockService.
func NewStockService(ir repositories.InventoryRepository, as AlertService, db *sql.DB) StockService {
	return &stockService{inventoryRepo: ir, alertService: as, db: db}
}

// ApplyChangeTx applies one audited stock change under the caller's executor.
// quantityChange is signed: negative for removed/used, positive for added,
// and the pre-computed target minus previous delta for adjusted (adjusted asserts
// ground truth and is never clamped).
//
// For removed/used, strict mode rejects a change whose magnitude exceeds the
// quantity on hand with ErrInsufficientStock; non-strict mode clamps the
// applied change so the quantity floors at zero and records the clamped
// actual change.
func (s *stockService) ApplyChangeTx(executor repositories.SQLExecutor, itemID int64, changeKind string, quantityChange int, reason string, actorID int64, strict bool) (*models.StockHistoryEntry, error) {
	item, err := s.inventoryRepo.GetItemByID(executor, itemID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %d", ErrItemNotFound, itemID)
		}
		return nil, fmt.Errorf("failed to fetch inventory item %d: %w", itemID, err)
	}

	previous := item.QuantityOnHand
	applied := quantityChange

	switch changeKind {
	case ChangeKindAdded, ChangeKindAdjusted:
		// Fully applied as-is.
	case ChangeKindRemoved, ChangeKindUsed:
		if previous+quantityChange < 0 {
			if strict {
				return nil, fmt.Errorf("%w: %s has %d on hand, requested %d",
					ErrInsufficientStock, item.Name, previous, -quantityChange)
			}
			applied = -previous
			utils.LogWarn("Stock change clamped at zero", map[string]interface{}{
				"item_id":   itemID,
				"requested": quantityChange,
				"applied":   applied,
			})
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidChangeKind, changeKind)
	}

	newQuantity := previous + applied

	entry := models.StockHistoryEntry{
		ItemID:           itemID,
		ChangeKind:       changeKind,
		QuantityChange:   applied,
		PreviousQuantity: previous,
		NewQuantity:      newQuantity,
		Reason:           utils.NewNullString(reason),
		ActorID:          actorID,
	}

	// A genuine restock bumps last_restocked; other kinds leave it alone.
	var restockedAt *time.Time
	if changeKind == ChangeKindAdded && applied > 0 {
		now := time.Now()
		restockedAt = &now
	}
	if err := s.inventoryRepo.UpdateItemQuantity(executor, itemID, newQuantity, restockedAt); err != nil {
		return nil, fmt.Errorf("failed to update quantity for item %d: %w", itemID, err)
	}
	if _, err := s.inventoryRepo.CreateStockHistory(executor, &entry); err != nil {
		return nil, fmt.Errorf("failed to record stock history for item %d: %w", itemID, err)
	}
	return &entry, nil
}

// AdjustStock handles the manual adjustment path. removed/used clamp at zero
// rather than failing (a few units of unattributed shrinkage beats a negative
// quantity); adjusted sets the on-hand value directly.
func (s *stockService) AdjustStock(req StockChangeRequest) (*models.StockHistoryEntry, error) {
	var quantityChange int
	switch req.ChangeKind {
	case ChangeKindAdded:
		if req.Quantity <= 0 {
			return nil, fmt.Errorf("%w: got %d", ErrInvalidQuantity, req.Quantity)
		}
		quantityChange = req.Quantity
	case ChangeKindRemoved, ChangeKindUsed:
		if req.Quantity <= 0 {
			return nil, fmt.Errorf("%w: got %d", ErrInvalidQuantity, req.Quantity)
		}
		quantityChange = -req.Quantity
	case ChangeKindAdjusted:
		if req.Quantity < 0 {
			return nil, fmt.Errorf("%w: target quantity cannot be negative", ErrValidation)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidChangeKind, req.ChangeKind)
	}

	reason := req.Reason
	if reason == "" {
		reason = "Manual " + req.ChangeKind
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if req.ChangeKind == ChangeKindAdjusted {
		item, err := s.inventoryRepo.GetItemByID(tx, req.ItemID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: ID %d", ErrItemNotFound, req.ItemID)
			}
			return nil, fmt.Errorf("failed to fetch inventory item %d: %w", req.ItemID, err)
		}
		quantityChange = req.Quantity - item.QuantityOnHand
	}

	entry, err := s.ApplyChangeTx(tx, req.ItemID, req.ChangeKind, quantityChange, reason, req.ActorID, false)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit stock adjustment: %w", err)
	}

	if err := s.alertService.Evaluate(req.ItemID); err != nil {
		// Evaluation is idempotent and re-runs on the next mutation.
		utils.LogError(err, "Low stock evaluation failed after adjustment")
	}
	return entry, nil
}

func (s *stockService) GetStockHistory(filters models.StockHistoryFilters) ([]models.StockHistoryEntry, int, error) {
	entries, totalCount, err := s.inventoryRepo.GetStockHistory(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get stock history: %w", err)
	}
	return entries, totalCount, nil
}
