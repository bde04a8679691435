package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/j-greybard/arcadetracker/internal/models"
)

// RepairRepository defines database operations for repair orders, part usage
// allocations, and work logs.
type RepairRepository interface {
	CreateOrder(executor SQLExecutor, order *models.RepairOrder) (int64, error)
	GetOrderByID(executor SQLExecutor, id int64) (*models.RepairOrder, error)
	GetOrders(filters models.RepairFilters) ([]models.RepairOrder, int, error)
	GetOrdersSince(start time.Time) ([]models.RepairOrder, error)
	UpdateOrder(executor SQLExecutor, order *models.RepairOrder) error
	UpdateOrderStatus(executor SQLExecutor, id int64, status string, dateFixed *time.Time) error
	AddToOrderCost(executor SQLExecutor, id int64, costDelta float64) error
	DeleteOrder(executor SQLExecutor, id int64) error
	DeleteOrdersByMachine(executor SQLExecutor, machineID int64) error

	CreateAllocation(executor SQLExecutor, allocation *models.UsageAllocation) (int64, error)
	GetAllocationsByOrder(executor SQLExecutor, orderID int64) ([]models.UsageAllocation, error)

	CreateWorkLog(executor SQLExecutor, workLog *models.WorkLog) (int64, error)
	GetWorkLogsByOrder(executor SQLExecutor, orderID int64) ([]models.WorkLog, error)
}

type repairRepository struct {
	db *sql.DB
}

// NewRepairRepository creates a new instance of RepairRepository.
func NewRepairRepository(db *sql.DB) RepairRepository {
	return &repairRepository{db: db}
}

// --- RepairOrder methods ---

func (r *repairRepository) CreateOrder(executor SQLExecutor, order *models.RepairOrder) (int64, error) {
	query := `INSERT INTO repair_orders
	          (machine_id, issue_description, fix_description, technician, status, total_cost, date_reported, date_fixed)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id`
	if order.DateReported.IsZero() {
		order.DateReported = time.Now()
	}
	err := executor.QueryRow(query,
		order.MachineID, order.IssueDescription, order.FixDescription, order.Technician,
		order.Status, order.TotalCost, order.DateReported, order.DateFixed,
	).Scan(&order.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating repair order: %v", ErrDatabaseError, err)
	}
	return order.ID, nil
}

func (r *repairRepository) GetOrderByID(executor SQLExecutor, id int64) (*models.RepairOrder, error) {
	order := &models.RepairOrder{}
	query := `SELECT id, machine_id, issue_description, fix_description, technician, status,
	                 total_cost, date_reported, date_fixed
	          FROM repair_orders WHERE id = $1`
	err := executor.QueryRow(query, id).Scan(
		&order.ID, &order.MachineID, &order.IssueDescription, &order.FixDescription,
		&order.Technician, &order.Status, &order.TotalCost, &order.DateReported, &order.DateFixed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting repair order by ID %d: %v", ErrDatabaseError, id, err)
	}
	return order, nil
}

func (r *repairRepository) GetOrders(filters models.RepairFilters) ([]models.RepairOrder, int, error) {
	orders := []models.RepairOrder{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT
	    ro.id, ro.machine_id, ro.issue_description, ro.fix_description, ro.technician,
	    ro.status, ro.total_cost, ro.date_reported, ro.date_fixed,
	    m.name AS machine_name,
	    COUNT(*) OVER() AS total_count
	  FROM repair_orders ro
	  JOIN machines m ON ro.machine_id = m.id`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.MachineID != nil {
		conditions = append(conditions, fmt.Sprintf("ro.machine_id = $%d", argCount))
		args = append(args, *filters.MachineID)
		argCount++
	}
	if filters.Status != nil && *filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("ro.status = $%d", argCount))
		args = append(args, *filters.Status)
		argCount++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}

	queryBuilder.WriteString(" ORDER BY ro.date_reported DESC, ro.id DESC")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
	args = append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: getting repair orders: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var order models.RepairOrder
		var machineName string
		if err := rows.Scan(
			&order.ID, &order.MachineID, &order.IssueDescription, &order.FixDescription,
			&order.Technician, &order.Status, &order.TotalCost, &order.DateReported, &order.DateFixed,
			&machineName, &totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning repair order: %v", ErrDatabaseError, err)
		}
		order.Machine = &models.Machine{ID: order.MachineID, Name: machineName}
		orders = append(orders, order)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating repair orders: %v", ErrDatabaseError, err)
	}
	return orders, totalCount, nil
}

// GetOrdersSince returns orders reported on or after the start date, joined
// with their machine. Used by the reporting layer; read-only.
func (r *repairRepository) GetOrdersSince(start time.Time) ([]models.RepairOrder, error) {
	orders := []models.RepairOrder{}
	query := `SELECT ro.id, ro.machine_id, ro.issue_description, ro.fix_description, ro.technician,
	                 ro.status, ro.total_cost, ro.date_reported, ro.date_fixed,
	                 m.name AS machine_name
	          FROM repair_orders ro
	          JOIN machines m ON ro.machine_id = m.id
	          WHERE ro.date_reported >= $1
	          ORDER BY ro.date_reported DESC, ro.id DESC`
	rows, err := r.db.Query(query, start)
	if err != nil {
		return nil, fmt.Errorf("%w: getting repair orders since %s: %v", ErrDatabaseError, start.Format("2006-01-02"), err)
	}
	defer rows.Close()

	for rows.Next() {
		var order models.RepairOrder
		var machineName string
		if err := rows.Scan(
			&order.ID, &order.MachineID, &order.IssueDescription, &order.FixDescription,
			&order.Technician, &order.Status, &order.TotalCost, &order.DateReported, &order.DateFixed,
			&machineName,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning repair order: %v", ErrDatabaseError, err)
		}
		order.Machine = &models.Machine{ID: order.MachineID, Name: machineName}
		orders = append(orders, order)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating repair orders: %v", ErrDatabaseError, err)
	}
	return orders, nil
}

func (r *repairRepository) UpdateOrder(executor SQLExecutor, order *models.RepairOrder) error {
	query := `UPDATE repair_orders SET
	            issue_description = $1, fix_description = $2, technician = $3
	          WHERE id = $4`
	result, err := executor.Exec(query,
		order.IssueDescription, order.FixDescription, order.Technician, order.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating repair order ID %d: %v", ErrDatabaseError, order.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repairRepository) UpdateOrderStatus(executor SQLExecutor, id int64, status string, dateFixed *time.Time) error {
	result, err := executor.Exec(`UPDATE repair_orders SET status = $1, date_fixed = $2 WHERE id = $3`,
		status, dateFixed, id)
	if err != nil {
		return fmt.Errorf("%w: updating status for repair order ID %d: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repairRepository) AddToOrderCost(executor SQLExecutor, id int64, costDelta float64) error {
	result, err := executor.Exec(`UPDATE repair_orders SET total_cost = total_cost + $1 WHERE id = $2`,
		costDelta, id)
	if err != nil {
		return fmt.Errorf("%w: adding cost to repair order ID %d: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repairRepository) DeleteOrder(executor SQLExecutor, id int64) error {
	if _, err := executor.Exec(`DELETE FROM work_logs WHERE repair_order_id = $1`, id); err != nil {
		return fmt.Errorf("%w: deleting work logs for repair order ID %d: %v", ErrDatabaseError, id, err)
	}
	if _, err := executor.Exec(`DELETE FROM usage_allocations WHERE repair_order_id = $1`, id); err != nil {
		return fmt.Errorf("%w: deleting allocations for repair order ID %d: %v", ErrDatabaseError, id, err)
	}
	result, err := executor.Exec(`DELETE FROM repair_orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: deleting repair order ID %d: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOrdersByMachine removes all repair orders for a machine along with
// their work logs and allocations. Called when the machine itself is deleted.
func (r *repairRepository) DeleteOrdersByMachine(executor SQLExecutor, machineID int64) error {
	if _, err := executor.Exec(
		`DELETE FROM work_logs WHERE repair_order_id IN (SELECT id FROM repair_orders WHERE machine_id = $1)`,
		machineID); err != nil {
		return fmt.Errorf("%w: deleting work logs for machine ID %d: %v", ErrDatabaseError, machineID, err)
	}
	if _, err := executor.Exec(
		`DELETE FROM usage_allocations WHERE repair_order_id IN (SELECT id FROM repair_orders WHERE machine_id = $1)`,
		machineID); err != nil {
		return fmt.Errorf("%w: deleting allocations for machine ID %d: %v", ErrDatabaseError, machineID, err)
	}
	if _, err := executor.Exec(`DELETE FROM repair_orders WHERE machine_id = $1`, machineID); err != nil {
		return fmt.Errorf("%w: deleting repair orders for machine ID %d: %v", ErrDatabaseError, machineID, err)
	}
	return nil
}

// --- UsageAllocation methods ---

func (r *repairRepository) CreateAllocation(executor SQLExecutor, allocation *models.UsageAllocation) (int64, error) {
	query := `INSERT INTO usage_allocations
	          (repair_order_id, item_id, quantity_used, unit_price_at_time, total_cost, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`
	if allocation.CreatedAt.IsZero() {
		allocation.CreatedAt = time.Now()
	}
	err := executor.QueryRow(query,
		allocation.RepairOrderID, allocation.ItemID, allocation.QuantityUsed,
		allocation.UnitPriceAtTime, allocation.TotalCost, allocation.CreatedAt,
	).Scan(&allocation.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating usage allocation: %v", ErrDatabaseError, err)
	}
	return allocation.ID, nil
}

func (r *repairRepository) GetAllocationsByOrder(executor SQLExecutor, orderID int64) ([]models.UsageAllocation, error) {
	allocations := []models.UsageAllocation{}
	query := `SELECT ua.id, ua.repair_order_id, ua.item_id, ua.quantity_used,
	                 ua.unit_price_at_time, ua.total_cost, ua.created_at,
	                 ii.name AS item_name
	          FROM usage_allocations ua
	          JOIN inventory_items ii ON ua.item_id = ii.id
	          WHERE ua.repair_order_id = $1
	          ORDER BY ua.created_at ASC, ua.id ASC`
	rows, err := executor.Query(query, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: getting allocations for repair order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var allocation models.UsageAllocation
		var itemName string
		if err := rows.Scan(
			&allocation.ID, &allocation.RepairOrderID, &allocation.ItemID, &allocation.QuantityUsed,
			&allocation.UnitPriceAtTime, &allocation.TotalCost, &allocation.CreatedAt,
			&itemName,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning usage allocation: %v", ErrDatabaseError, err)
		}
		allocation.Item = &models.InventoryItem{ID: allocation.ItemID, Name: itemName}
		allocations = append(allocations, allocation)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating usage allocations: %v", ErrDatabaseError, err)
	}
	return allocations, nil
}

// --- WorkLog methods ---

func (r *repairRepository) CreateWorkLog(executor SQLExecutor, workLog *models.WorkLog) (int64, error) {
	query := `INSERT INTO work_logs
	          (repair_order_id, actor_id, work_description, time_spent_hours, cost_incurred, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`
	if workLog.CreatedAt.IsZero() {
		workLog.CreatedAt = time.Now()
	}
	err := executor.QueryRow(query,
		workLog.RepairOrderID, workLog.ActorID, workLog.WorkDescription,
		workLog.TimeSpentHours, workLog.CostIncurred, workLog.CreatedAt,
	).Scan(&workLog.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating work log: %v", ErrDatabaseError, err)
	}
	return workLog.ID, nil
}

func (r *repairRepository) GetWorkLogsByOrder(executor SQLExecutor, orderID int64) ([]models.WorkLog, error) {
	workLogs := []models.WorkLog{}
	query := `SELECT wl.id, wl.repair_order_id, wl.actor_id, wl.work_description,
	                 wl.time_spent_hours, wl.cost_incurred, wl.created_at,
	                 u.full_name AS actor_name
	          FROM work_logs wl
	          LEFT JOIN users u ON wl.actor_id = u.id
	          WHERE wl.repair_order_id = $1
	          ORDER BY wl.created_at ASC, wl.id ASC`
	rows, err := executor.Query(query, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: getting work logs for repair order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var workLog models.WorkLog
		var actorName sql.NullString
		if err := rows.Scan(
			&workLog.ID, &workLog.RepairOrderID, &workLog.ActorID, &workLog.WorkDescription,
			&workLog.TimeSpentHours, &workLog.CostIncurred, &workLog.CreatedAt,
			&actorName,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning work log: %v", ErrDatabaseError, err)
		}
		if actorName.Valid {
			name := actorName.String
			workLog.ActorName = &name
		}
		workLogs = append(workLogs, workLog)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating work logs: %v", ErrDatabaseError, err)
	}
	return workLogs, nil
}
