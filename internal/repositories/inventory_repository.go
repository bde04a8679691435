package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/j-greybard/arcadetracker/internal/models"

	"github.com/lib/pq"
)

// InventoryRepository defines database operations for inventory items, the
// append-only stock history, and low stock alerts. UpdateItemQuantity and
// CreateStockHistory must always be called together under one executor; the
// stock ledger service enforces that pairing.
type InventoryRepository interface {
	CreateItem(executor SQLExecutor, item *models.InventoryItem) (int64, error)
	GetItemByID(executor SQLExecutor, id int64) (*models.InventoryItem, error)
	GetItems(filters models.InventoryFilters) ([]models.InventoryItem, int, error)
	UpdateItem(executor SQLExecutor, item *models.InventoryItem) error
	UpdateItemQuantity(executor SQLExecutor, itemID int64, newQuantity int, restockedAt *time.Time) error
	DeleteItem(executor SQLExecutor, id int64) error
	TotalInventoryValue() (float64, error)

	CreateStockHistory(executor SQLExecutor, entry *models.StockHistoryEntry) (int64, error)
	GetStockHistory(filters models.StockHistoryFilters) ([]models.StockHistoryEntry, int, error)

	CreateAlert(executor SQLExecutor, alert *models.LowStockAlert) (int64, error)
	GetAlertByID(executor SQLExecutor, id int64) (*models.LowStockAlert, error)
	GetUnresolvedAlertsByItem(executor SQLExecutor, itemID int64) ([]models.LowStockAlert, error)
	GetAlerts(resolved *bool, page, pageSize int) ([]models.LowStockAlert, int, error)
	ResolveAlert(executor SQLExecutor, alertID int64, resolvedAt time.Time) error
}

type inventoryRepository struct {
	db *sql.DB
}

// NewInventoryRepository creates a new instance of InventoryRepository.
func NewInventoryRepository(db *sql.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

// --- InventoryItem methods ---

func (r *inventoryRepository) CreateItem(executor SQLExecutor, item *models.InventoryItem) (int64, error) {
	query := `INSERT INTO inventory_items
	          (name, description, quantity_on_hand, unit_price, minimum_threshold,
	           supplier, part_number, last_restocked, notes, date_added)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          RETURNING id`
	if item.DateAdded.IsZero() {
		item.DateAdded = time.Now()
	}
	err := executor.QueryRow(query,
		item.Name, item.Description, item.QuantityOnHand, item.UnitPrice, item.MinimumThreshold,
		item.Supplier, item.PartNumber, item.LastRestocked, item.Notes, item.DateAdded,
	).Scan(&item.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, fmt.Errorf("%w: inventory item name '%s' already exists", ErrDuplicateKey, item.Name)
		}
		return 0, fmt.Errorf("%w: creating inventory item: %v", ErrDatabaseError, err)
	}
	return item.ID, nil
}

func (r *inventoryRepository) GetItemByID(executor SQLExecutor, id int64) (*models.InventoryItem, error) {
	item := &models.InventoryItem{}
	query := `SELECT id, name, description, quantity_on_hand, unit_price, minimum_threshold,
	                 supplier, part_number, last_restocked, notes, date_added
	          FROM inventory_items WHERE id = $1`
	err := executor.QueryRow(query, id).Scan(
		&item.ID, &item.Name, &item.Description, &item.QuantityOnHand, &item.UnitPrice,
		&item.MinimumThreshold, &item.Supplier, &item.PartNumber, &item.LastRestocked,
		&item.Notes, &item.DateAdded,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting inventory item by ID %d: %v", ErrDatabaseError, id, err)
	}
	return item, nil
}

func (r *inventoryRepository) GetItems(filters models.InventoryFilters) ([]models.InventoryItem, int, error) {
	items := []models.InventoryItem{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT id, name, description, quantity_on_hand, unit_price, minimum_threshold,
	       supplier, part_number, last_restocked, notes, date_added,
	       COUNT(*) OVER() AS total_count
	  FROM inventory_items`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.Search != nil && *filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name LIKE $%d OR description LIKE $%d OR part_number LIKE $%d)",
			argCount, argCount+1, argCount+2))
		pattern := "%" + *filters.Search + "%"
		args = append(args, pattern, pattern, pattern)
		argCount += 3
	}
	if filters.LowStockOnly {
		conditions = append(conditions, "quantity_on_hand <= minimum_threshold")
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}

	queryBuilder.WriteString(" ORDER BY name ASC")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
	args = append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: getting inventory items: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.InventoryItem
		if err := rows.Scan(
			&item.ID, &item.Name, &item.Description, &item.QuantityOnHand, &item.UnitPrice,
			&item.MinimumThreshold, &item.Supplier, &item.PartNumber, &item.LastRestocked,
			&item.Notes, &item.DateAdded,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning inventory item: %v", ErrDatabaseError, err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating inventory items: %v", ErrDatabaseError, err)
	}
	return items, totalCount, nil
}

// UpdateItem writes descriptive fields only. quantity_on_hand is deliberately
// excluded; it changes exclusively through UpdateItemQuantity paired with a
// stock history entry.
func (r *inventoryRepository) UpdateItem(executor SQLExecutor, item *models.InventoryItem) error {
	query := `UPDATE inventory_items SET
	            name = $1, description = $2, unit_price = $3, minimum_threshold = $4,
	            supplier = $5, part_number = $6, notes = $7
	          WHERE id = $8`
	result, err := executor.Exec(query,
		item.Name, item.Description, item.UnitPrice, item.MinimumThreshold,
		item.Supplier, item.PartNumber, item.Notes, item.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating inventory item ID %d: %v", ErrDatabaseError, item.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *inventoryRepository) UpdateItemQuantity(executor SQLExecutor, itemID int64, newQuantity int, restockedAt *time.Time) error {
	var result sql.Result
	var err error
	if restockedAt != nil {
		result, err = executor.Exec(`UPDATE inventory_items SET quantity_on_hand = $1, last_restocked = $2 WHERE id = $3`,
			newQuantity, *restockedAt, itemID)
	} else {
		result, err = executor.Exec(`UPDATE inventory_items SET quantity_on_hand = $1 WHERE id = $2`,
			newQuantity, itemID)
	}
	if err != nil {
		return fmt.Errorf("%w: updating quantity for item ID %d: %v", ErrDatabaseError, itemID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *inventoryRepository) DeleteItem(executor SQLExecutor, id int64) error {
	if _, err := executor.Exec(`DELETE FROM low_stock_alerts WHERE item_id = $1`, id); err != nil {
		return fmt.Errorf("%w: deleting alerts for item ID %d: %v", ErrDatabaseError, id, err)
	}
	if _, err := executor.Exec(`DELETE FROM stock_history WHERE item_id = $1`, id); err != nil {
		return fmt.Errorf("%w: deleting stock history for item ID %d: %v", ErrDatabaseError, id, err)
	}
	result, err := executor.Exec(`DELETE FROM inventory_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: deleting inventory item ID %d: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *inventoryRepository) TotalInventoryValue() (float64, error) {
	var total sql.NullFloat64
	err := r.db.QueryRow(`SELECT SUM(quantity_on_hand * unit_price) FROM inventory_items`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("%w: computing total inventory value: %v", ErrDatabaseError, err)
	}
	return total.Float64, nil
}

// --- StockHistory methods ---

func (r *inventoryRepository) CreateStockHistory(executor SQLExecutor, entry *models.StockHistoryEntry) (int64, error) {
	query := `INSERT INTO stock_history
	          (item_id, change_kind, quantity_change, previous_quantity, new_quantity, reason, actor_id, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id`
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	err := executor.QueryRow(query,
		entry.ItemID, entry.ChangeKind, entry.QuantityChange, entry.PreviousQuantity,
		entry.NewQuantity, entry.Reason, entry.ActorID, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating stock history entry: %v", ErrDatabaseError, err)
	}
	return entry.ID, nil
}

func (r *inventoryRepository) GetStockHistory(filters models.StockHistoryFilters) ([]models.StockHistoryEntry, int, error) {
	entries := []models.StockHistoryEntry{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT
	    sh.id, sh.item_id, sh.change_kind, sh.quantity_change, sh.previous_quantity,
	    sh.new_quantity, sh.reason, sh.actor_id, sh.created_at,
	    ii.name AS item_name,
	    u.full_name AS actor_name,
	    COUNT(*) OVER() AS total_count
	  FROM stock_history sh
	  JOIN inventory_items ii ON sh.item_id = ii.id
	  LEFT JOIN users u ON sh.actor_id = u.id`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.ItemID != nil {
		conditions = append(conditions, fmt.Sprintf("sh.item_id = $%d", argCount))
		args = append(args, *filters.ItemID)
		argCount++
	}
	if filters.ActorID != nil {
		conditions = append(conditions, fmt.Sprintf("sh.actor_id = $%d", argCount))
		args = append(args, *filters.ActorID)
		argCount++
	}
	if filters.ChangeKind != nil && *filters.ChangeKind != "" {
		conditions = append(conditions, fmt.Sprintf("sh.change_kind = $%d", argCount))
		args = append(args, *filters.ChangeKind)
		argCount++
	}
	if filters.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("sh.created_at >= $%d", argCount))
		args = append(args, *filters.StartDate)
		argCount++
	}
	if filters.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("sh.created_at <= $%d", argCount))
		args = append(args, *filters.EndDate)
		argCount++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}

	queryBuilder.WriteString(" ORDER BY sh.created_at ASC, sh.id ASC")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
	args = append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: getting stock history: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry models.StockHistoryEntry
		var itemName string
		var actorName sql.NullString
		if err := rows.Scan(
			&entry.ID, &entry.ItemID, &entry.ChangeKind, &entry.QuantityChange, &entry.PreviousQuantity,
			&entry.NewQuantity, &entry.Reason, &entry.ActorID, &entry.CreatedAt,
			&itemName, &actorName, &totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning stock history entry: %v", ErrDatabaseError, err)
		}
		entry.Item = &models.InventoryItem{ID: entry.ItemID, Name: itemName}
		if actorName.Valid {
			name := actorName.String
			entry.ActorName = &name
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating stock history: %v", ErrDatabaseError, err)
	}
	return entries, totalCount, nil
}

// --- LowStockAlert methods ---

func (r *inventoryRepository) CreateAlert(executor SQLExecutor, alert *models.LowStockAlert) (int64, error) {
	query := `INSERT INTO low_stock_alerts (item_id, triggered_at, resolved)
	          VALUES ($1, $2, $3)
	          RETURNING id`
	if alert.TriggeredAt.IsZero() {
		alert.TriggeredAt = time.Now()
	}
	err := executor.QueryRow(query, alert.ItemID, alert.TriggeredAt, alert.Resolved).Scan(&alert.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating low stock alert: %v", ErrDatabaseError, err)
	}
	return alert.ID, nil
}

func (r *inventoryRepository) GetAlertByID(executor SQLExecutor, id int64) (*models.LowStockAlert, error) {
	alert := &models.LowStockAlert{}
	query := `SELECT id, item_id, triggered_at, resolved, resolved_at FROM low_stock_alerts WHERE id = $1`
	err := executor.QueryRow(query, id).Scan(
		&alert.ID, &alert.ItemID, &alert.TriggeredAt, &alert.Resolved, &alert.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting alert by ID %d: %v", ErrDatabaseError, id, err)
	}
	return alert, nil
}

func (r *inventoryRepository) GetUnresolvedAlertsByItem(executor SQLExecutor, itemID int64) ([]models.LowStockAlert, error) {
	alerts := []models.LowStockAlert{}
	query := `SELECT id, item_id, triggered_at, resolved, resolved_at
	          FROM low_stock_alerts
	          WHERE item_id = $1 AND resolved = $2
	          ORDER BY triggered_at ASC, id ASC`
	rows, err := executor.Query(query, itemID, false)
	if err != nil {
		return nil, fmt.Errorf("%w: getting unresolved alerts for item ID %d: %v", ErrDatabaseError, itemID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var alert models.LowStockAlert
		if err := rows.Scan(&alert.ID, &alert.ItemID, &alert.TriggeredAt, &alert.Resolved, &alert.ResolvedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning low stock alert: %v", ErrDatabaseError, err)
		}
		alerts = append(alerts, alert)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating low stock alerts: %v", ErrDatabaseError, err)
	}
	return alerts, nil
}

func (r *inventoryRepository) GetAlerts(resolved *bool, page, pageSize int) ([]models.LowStockAlert, int, error) {
	alerts := []models.LowStockAlert{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT
	    a.id, a.item_id, a.triggered_at, a.resolved, a.resolved_at,
	    ii.name, ii.quantity_on_hand, ii.minimum_threshold,
	    COUNT(*) OVER() AS total_count
	  FROM low_stock_alerts a
	  JOIN inventory_items ii ON a.item_id = ii.id`)

	var args []interface{}
	argCount := 1
	if resolved != nil {
		queryBuilder.WriteString(fmt.Sprintf(" WHERE a.resolved = $%d", argCount))
		args = append(args, *resolved)
		argCount++
	}

	queryBuilder.WriteString(" ORDER BY a.triggered_at DESC, a.id DESC")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: getting low stock alerts: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var alert models.LowStockAlert
		item := models.InventoryItem{}
		if err := rows.Scan(
			&alert.ID, &alert.ItemID, &alert.TriggeredAt, &alert.Resolved, &alert.ResolvedAt,
			&item.Name, &item.QuantityOnHand, &item.MinimumThreshold,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning low stock alert: %v", ErrDatabaseError, err)
		}
		item.ID = alert.ItemID
		alert.Item = &item
		alerts = append(alerts, alert)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating low stock alerts: %v", ErrDatabaseError, err)
	}
	return alerts, totalCount, nil
}

func (r *inventoryRepository) ResolveAlert(executor SQLExecutor, alertID int64, resolvedAt time.Time) error {
	result, err := executor.Exec(`UPDATE low_stock_alerts SET resolved = $1, resolved_at = $2 WHERE id = $3`,
		true, resolvedAt, alertID)
	if err != nil {
		return fmt.Errorf("%w: resolving alert ID %d: %v", ErrDatabaseError, alertID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
