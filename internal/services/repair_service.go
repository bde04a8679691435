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
	ErrRepairOrderNotFound = errors.New("repair order not found")
	ErrInvalidRepairStatus = errors.New("invalid repair order status")
)

// Repair order statuses.
const (
	RepairStatusOpen       = "open"
	RepairStatusInProgress = "in_progress"
	RepairStatusFixed      = "fixed"
	RepairStatusDeferred   = "deferred"
)

// PartUsageRequest is one requested line of part consumption.
type PartUsageRequest struct {
	ItemID       int64 `json:"item_id" binding:"required"`
	QuantityUsed int   `json:"quantity_used"`
}

// PartUsageResult reports the outcome for one requested line. Lines are
// processed independently: a failed line never rolls back the others.
type PartUsageResult struct {
	ItemID     int64                   `json:"item_id"`
	Allocation *models.UsageAllocation `json:"allocation,omitempty"`
	Err        error                   `json:"-"`
}

// CreateRepairOrderRequest creates a repair order, optionally consuming parts
// in the same call.
type CreateRepairOrderRequest struct {
	MachineID        int64              `json:"machine_id" binding:"required"`
	IssueDescription string             `json:"issue_description" binding:"required"`
	FixDescription   string             `json:"fix_description"`
	Technician       string             `json:"technician"`
	Status           string             `json:"status"`
	InitialCost      *float64           `json:"initial_cost"`
	Parts            []PartUsageRequest `json:"parts"`
}

// AddWorkLogRequest appends a work log entry to a repair order.
type AddWorkLogRequest struct {
	WorkDescription string   `json:"work_description" binding:"required"`
	TimeSpentHours  *float64 `json:"time_spent_hours"`
	CostIncurred    *float64 `json:"cost_incurred"`
}

// RepairService manages repair orders and allocates inventory against them.
// Part consumption debits the stock ledger in strict mode: a line that would
// take an item negative fails with ErrInsufficientStock and is never
// partially fulfilled.
type RepairService interface {
	CreateRepairOrder(req CreateRepairOrderRequest, actorID int64) (*models.RepairOrder, []PartUsageResult, error)
	GetRepairOrders(filters models.RepairFilters) ([]models.RepairOrder, int, error)
	GetRepairOrderByID(orderID int64) (*models.RepairOrder, error)
	UpdateRepairOrderStatus(orderID int64, status string) (*models.RepairOrder, error)
	AllocateParts(orderID int64, lines []PartUsageRequest, actorID int64) ([]PartUsageResult, error)
	AddWorkLog(orderID int64, req AddWorkLogRequest, actorID int64) (*models.WorkLog, error)
	DeleteRepairOrder(orderID int64) error
}

type repairService struct {
	repairRepo    repositories.RepairRepository
	machineRepo   repositories.MachineRepository
	inventoryRepo repositories.InventoryRepository
	stockService  StockService
	alertService  AlertService
	db            *sql.DB
}

// NewRepairService creates a new instance of RepairService.
func NewRepairService(
	rr repositories.RepairRepository,
	mr repositories.MachineRepository,
	ir repositories.InventoryRepository,
	ss StockService,
	as AlertService,
	db *sql.DB,
) RepairService {
	return &repairService{
		repairRepo:    rr,
		machineRepo:   mr,
		inventoryRepo: ir,
		stockService:  ss,
		alertService:  as,
		db:            db,
	}
}

func (s *repairService) CreateRepairOrder(req CreateRepairOrderRequest, actorID int64) (*models.RepairOrder, []PartUsageResult, error) {
	status := req.Status
	if status == "" {
		status = RepairStatusOpen
	}
	if !isValidRepairStatus(status) {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidRepairStatus, status)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.machineRepo.GetMachineByID(tx, req.MachineID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: ID %d", ErrMachineNotFound, req.MachineID)
		}
		return nil, nil, fmt.Errorf("failed to fetch machine %d: %w", req.MachineID, err)
	}

	order := models.RepairOrder{
		MachineID:        req.MachineID,
		IssueDescription: req.IssueDescription,
		FixDescription:   utils.NewNullString(req.FixDescription),
		Technician:       utils.NewNullString(req.Technician),
		Status:           status,
		DateReported:     time.Now(),
	}
	if req.InitialCost != nil && *req.InitialCost > 0 {
		order.TotalCost = *req.InitialCost
	}
	if status == RepairStatusFixed {
		now := time.Now()
		order.DateFixed = &now
	}

	if _, err := s.repairRepo.CreateOrder(tx, &order); err != nil {
		return nil, nil, fmt.Errorf("failed to create repair order: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit repair order creation: %w", err)
	}

	// Part lines run after the header exists, each in its own transaction so
	// one rejected line does not block the others.
	var results []PartUsageResult
	if len(req.Parts) > 0 {
		results, err = s.AllocateParts(order.ID, req.Parts, actorID)
		if err != nil {
			return nil, nil, err
		}
	}

	created, err := s.GetRepairOrderByID(order.ID)
	if err != nil {
		return nil, nil, err
	}
	return created, results, nil
}

func (s *repairService) GetRepairOrders(filters models.RepairFilters) ([]models.RepairOrder, int, error) {
	orders, totalCount, err := s.repairRepo.GetOrders(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get repair orders: %w", err)
	}
	return orders, totalCount, nil
}

func (s *repairService) GetRepairOrderByID(orderID int64) (*models.RepairOrder, error) {
	order, err := s.repairRepo.GetOrderByID(s.db, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %d", ErrRepairOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to get repair order %d: %w", orderID, err)
	}

	machine, err := s.machineRepo.GetMachineByID(s.db, order.MachineID)
	if err == nil {
		order.Machine = machine
	}

	allocations, err := s.repairRepo.GetAllocationsByOrder(s.db, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get allocations for repair order %d: %w", orderID, err)
	}
	order.Allocations = allocations

	workLogs, err := s.repairRepo.GetWorkLogsByOrder(s.db, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get work logs for repair order %d: %w", orderID, err)
	}
	order.WorkLogs = workLogs

	return order, nil
}

func (s *repairService) UpdateRepairOrderStatus(orderID int64, status string) (*models.RepairOrder, error) {
	if !isValidRepairStatus(status) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRepairStatus, status)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	order, err := s.repairRepo.GetOrderByID(tx, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %d", ErrRepairOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to fetch repair order %d: %w", orderID, err)
	}

	dateFixed := order.DateFixed
	if status == RepairStatusFixed && dateFixed == nil {
		now := time.Now()
		dateFixed = &now
	}

	if err := s.repairRepo.UpdateOrderStatus(tx, orderID, status, dateFixed); err != nil {
		return nil, fmt.Errorf("failed to update repair order status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit status update: %w", err)
	}

	return s.GetRepairOrderByID(orderID)
}

// AllocateParts consumes inventory against a repair order. Each line is
// all-or-nothing on its own: quantity validated, stock debited strictly, the
// unit price snapshotted, the allocation persisted, and the order's total
// cost bumped, in one transaction per line. Results are reported per line so
// callers see exactly which items succeeded.
func (s *repairService) AllocateParts(orderID int64, lines []PartUsageRequest, actorID int64) ([]PartUsageResult, error) {
	if _, err := s.repairRepo.GetOrderByID(s.db, orderID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %d", ErrRepairOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to fetch repair order %d: %w", orderID, err)
	}

	results := make([]PartUsageResult, 0, len(lines))
	for _, line := range lines {
		allocation, err := s.allocateOne(orderID, line, actorID)
		results = append(results, PartUsageResult{ItemID: line.ItemID, Allocation: allocation, Err: err})
		if err == nil {
			if evalErr := s.alertService.Evaluate(line.ItemID); evalErr != nil {
				utils.LogError(evalErr, "Low stock evaluation failed after part usage")
			}
		}
	}
	return results, nil
}

func (s *repairService) allocateOne(orderID int64, line PartUsageRequest, actorID int64) (*models.UsageAllocation, error) {
	if line.QuantityUsed <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQuantity, line.QuantityUsed)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	// Price snapshot happens before the debit, inside the same transaction,
	// so a later price change never touches this allocation.
	item, err := s.inventoryRepo.GetItemByID(tx, line.ItemID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %d", ErrItemNotFound, line.ItemID)
		}
		return nil, fmt.Errorf("failed to fetch inventory item %d: %w", line.ItemID, err)
	}

	if _, err := s.stockService.ApplyChangeTx(tx, line.ItemID, ChangeKindUsed, -line.QuantityUsed,
		fmt.Sprintf("repair order #%d", orderID), actorID, true); err != nil {
		return nil, err
	}

	allocation := models.UsageAllocation{
		RepairOrderID:   orderID,
		ItemID:          line.ItemID,
		QuantityUsed:    line.QuantityUsed,
		UnitPriceAtTime: item.UnitPrice,
		TotalCost:       float64(line.QuantityUsed) * item.UnitPrice,
	}
	if _, err := s.repairRepo.CreateAllocation(tx, &allocation); err != nil {
		return nil, fmt.Errorf("failed to create usage allocation: %w", err)
	}
	if err := s.repairRepo.AddToOrderCost(tx, orderID, allocation.TotalCost); err != nil {
		return nil, fmt.Errorf("failed to add usage cost to repair order %d: %w", orderID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit part usage: %w", err)
	}
	return &allocation, nil
}

func (s *repairService) AddWorkLog(orderID int64, req AddWorkLogRequest, actorID int64) (*models.WorkLog, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.repairRepo.GetOrderByID(tx, orderID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %d", ErrRepairOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to fetch repair order %d: %w", orderID, err)
	}

	workLog := models.WorkLog{
		RepairOrderID:   orderID,
		ActorID:         actorID,
		WorkDescription: req.WorkDescription,
		TimeSpentHours:  req.TimeSpentHours,
		CostIncurred:    req.CostIncurred,
	}
	if _, err := s.repairRepo.CreateWorkLog(tx, &workLog); err != nil {
		return nil, fmt.Errorf("failed to create work log: %w", err)
	}

	if req.CostIncurred != nil && *req.CostIncurred > 0 {
		if err := s.repairRepo.AddToOrderCost(tx, orderID, *req.CostIncurred); err != nil {
			return nil, fmt.Errorf("failed to add work log cost to repair order %d: %w", orderID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit work log: %w", err)
	}
	return &workLog, nil
}

func (s *repairService) DeleteRepairOrder(orderID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.repairRepo.DeleteOrder(tx, orderID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: ID %d", ErrRepairOrderNotFound, orderID)
		}
		return fmt.Errorf("failed to delete repair order %d: %w", orderID, err)
	}
	return tx.Commit()
}

func isValidRepairStatus(status string) bool {
	switch status {
	case RepairStatusOpen, RepairStatusInProgress, RepairStatusFixed, RepairStatusDeferred:
		return true
	default:
		return false
	}
}
