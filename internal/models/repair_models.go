package models

import "time"

// RepairOrder is a maintenance job against one machine. TotalCost is the sum
// of work log costs and part usage costs recorded against the order.
type RepairOrder struct {
	ID               int64      `json:"id" db:"id"`
	MachineID        int64      `json:"machine_id" db:"machine_id" binding:"required"`
	IssueDescription string     `json:"issue_description" db:"issue_description" binding:"required"`
	FixDescription   *string    `json:"fix_description,omitempty" db:"fix_description"`
	Technician       *string    `json:"technician,omitempty" db:"technician"`
	Status           string     `json:"status" db:"status"` // open, in_progress, fixed, deferred
	TotalCost        float64    `json:"total_cost" db:"total_cost"`
	DateReported     time.Time  `json:"date_reported" db:"date_reported"`
	DateFixed        *time.Time `json:"date_fixed,omitempty" db:"date_fixed"`

	Machine     *Machine          `json:"machine,omitempty"`
	Allocations []UsageAllocation `json:"allocations,omitempty"`
	WorkLogs    []WorkLog         `json:"work_logs,omitempty"`
}

// UsageAllocation records parts consumed from inventory against a repair
// order. UnitPriceAtTime is snapshotted at consumption and never updated when
// the item's price later changes.
type UsageAllocation struct {
	ID              int64     `json:"id" db:"id"`
	RepairOrderID   int64     `json:"repair_order_id" db:"repair_order_id"`
	ItemID          int64     `json:"item_id" db:"item_id"`
	QuantityUsed    int       `json:"quantity_used" db:"quantity_used"`
	UnitPriceAtTime float64   `json:"unit_price_at_time" db:"unit_price_at_time"`
	TotalCost       float64   `json:"total_cost" db:"total_cost"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`

	Item *InventoryItem `json:"item,omitempty"`
}

// WorkLog is a timestamped entry of work performed on a repair order.
type WorkLog struct {
	ID              int64     `json:"id" db:"id"`
	RepairOrderID   int64     `json:"repair_order_id" db:"repair_order_id"`
	ActorID         int64     `json:"actor_id" db:"actor_id"`
	WorkDescription string    `json:"work_description" db:"work_description" binding:"required"`
	TimeSpentHours  *float64  `json:"time_spent_hours,omitempty" db:"time_spent_hours"`
	CostIncurred    *float64  `json:"cost_incurred,omitempty" db:"cost_incurred"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`

	ActorName *string `json:"actor_name,omitempty"`
}

// RepairFilters narrows repair order list queries.
type RepairFilters struct {
	MachineID *int64
	Status    *string
	Page      int
	PageSize  int
}
