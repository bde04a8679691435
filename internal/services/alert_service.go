package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/j-greybard/arcadetracker/internal/models"
	"github.com/j-greybard/arcadetracker/internal/repositories"
)

var ErrAlertNotFound = errors.New("low stock alert not found")

// AlertService maintains the low stock alert lifecycle per item: an alert
// opens when an item drops to or below its threshold, and resolves when the
// quantity climbs back above it. At most one unresolved alert exists per item.
type AlertService interface {
	Evaluate(itemID int64) error
	ResolveAlert(alertID int64) (*models.LowStockAlert, error)
	GetAlerts(resolved *bool, page, pageSize int) ([]models.LowStockAlert, int, error)
}

type alertService struct {
	inventoryRepo repositories.InventoryRepository
	db            *sql.DB
}

// NewAlertService creates a new instance of AlertService.
func NewAlertService(ir repositories.InventoryRepository, db *sql.DB) AlertService {
	return &alertService{inventoryRepo: ir, db: db}
}

// Evaluate re-checks one item's alert state against its current quantity.
// Idempotent: an item already in the correct state is left untouched. An item
// with multiple unresolved alerts (possible in historical data) has all of
// them resolved together once the quantity recovers.
func (s *alertService) Evaluate(itemID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := s.inventoryRepo.GetItemByID(tx, itemID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: ID %d", ErrItemNotFound, itemID)
		}
		return fmt.Errorf("failed to fetch inventory item %d: %w", itemID, err)
	}

	unresolved, err := s.inventoryRepo.GetUnresolvedAlertsByItem(tx, itemID)
	if err != nil {
		return fmt.Errorf("failed to fetch unresolved alerts for item %d: %w", itemID, err)
	}

	if item.IsLowStock() {
		if len(unresolved) == 0 {
			alert := models.LowStockAlert{ItemID: itemID, Resolved: false}
			if _, err := s.inventoryRepo.CreateAlert(tx, &alert); err != nil {
				return fmt.Errorf("failed to create low stock alert for item %d: %w", itemID, err)
			}
		}
	} else {
		now := time.Now()
		for _, alert := range unresolved {
			if err := s.inventoryRepo.ResolveAlert(tx, alert.ID, now); err != nil {
				return fmt.Errorf("failed to resolve alert %d: %w", alert.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit alert evaluation: %w", err)
	}
	return nil
}

// ResolveAlert is the operator override: it closes an alert regardless of
// the current quantity. It does not stop a fresh alert from opening on the
// next stock mutation while the condition still holds.
func (s *alertService) ResolveAlert(alertID int64) (*models.LowStockAlert, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	alert, err := s.inventoryRepo.GetAlertByID(tx, alertID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %d", ErrAlertNotFound, alertID)
		}
		return nil, fmt.Errorf("failed to fetch alert %d: %w", alertID, err)
	}

	if alert.Resolved {
		return alert, nil
	}

	now := time.Now()
	if err := s.inventoryRepo.ResolveAlert(tx, alertID, now); err != nil {
		return nil, fmt.Errorf("failed to resolve alert %d: %w", alertID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit alert resolution: %w", err)
	}

	alert.Resolved = true
	alert.ResolvedAt = &now
	return alert, nil
}

func (s *alertService) GetAlerts(resolved *bool, page, pageSize int) ([]models.LowStockAlert, int, error) {
	alerts, totalCount, err := s.inventoryRepo.GetAlerts(resolved, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get low stock alerts: %w", err)
	}
	return alerts, totalCount, nil
}
