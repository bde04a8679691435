package models

import "time"

// InventoryItem represents a spare part kept on hand for repairs.
// QuantityOnHand is a cached aggregate of the item's stock history; it must
// never change without a matching StockHistoryEntry in the same transaction.
type InventoryItem struct {
	ID               int64      `json:"id" db:"id"`
	Name             string     `json:"name" db:"name" binding:"required"`
	Description      *string    `json:"description,omitempty" db:"description"`
	QuantityOnHand   int        `json:"quantity_on_hand" db:"quantity_on_hand"`
	UnitPrice        float64    `json:"unit_price" db:"unit_price"`
	MinimumThreshold int        `json:"minimum_threshold" db:"minimum_threshold"`
	Supplier         *string    `json:"supplier,omitempty" db:"supplier"`
	PartNumber       *string    `json:"part_number,omitempty" db:"part_number"`
	LastRestocked    *time.Time `json:"last_restocked,omitempty" db:"last_restocked"`
	Notes            *string    `json:"notes,omitempty" db:"notes"`
	DateAdded        time.Time  `json:"date_added" db:"date_added"`
}

// IsLowStock reports whether the item sits at or below its alert threshold.
func (i *InventoryItem) IsLowStock() bool {
	return i.QuantityOnHand <= i.MinimumThreshold
}

// TotalValue returns the on-hand value of the item at its current unit price.
func (i *InventoryItem) TotalValue() float64 {
	return float64(i.QuantityOnHand) * i.UnitPrice
}

// StockHistoryEntry is one immutable row of the append-only stock audit trail.
// NewQuantity always equals PreviousQuantity + QuantityChange, and equals the
// item's quantity on hand immediately after the entry was applied.
type StockHistoryEntry struct {
	ID               int64     `json:"id" db:"id"`
	ItemID           int64     `json:"item_id" db:"item_id"`
	ChangeKind       string    `json:"change_kind" db:"change_kind"` // added, removed, used, adjusted
	QuantityChange   int       `json:"quantity_change" db:"quantity_change"`
	PreviousQuantity int       `json:"previous_quantity" db:"previous_quantity"`
	NewQuantity      int       `json:"new_quantity" db:"new_quantity"`
	Reason           *string   `json:"reason,omitempty" db:"reason"`
	ActorID          int64     `json:"actor_id" db:"actor_id"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`

	Item      *InventoryItem `json:"item,omitempty"`
	ActorName *string        `json:"actor_name,omitempty"`
}

// LowStockAlert tracks the open/resolved lifecycle for an item below its
// threshold. At most one unresolved alert exists per item at a time.
type LowStockAlert struct {
	ID          int64      `json:"id" db:"id"`
	ItemID      int64      `json:"item_id" db:"item_id"`
	TriggeredAt time.Time  `json:"triggered_at" db:"triggered_at"`
	Resolved    bool       `json:"resolved" db:"resolved"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`

	Item *InventoryItem `json:"item,omitempty"`
}

// InventoryFilters narrows inventory list queries.
type InventoryFilters struct {
	Search       *string
	LowStockOnly bool
	Page         int
	PageSize     int
}

// StockHistoryFilters narrows stock history queries.
type StockHistoryFilters struct {
	ItemID     *int64
	ActorID    *int64
	ChangeKind *string
	StartDate  *time.Time
	EndDate    *time.Time
	Page       int
	PageSize   int
}
