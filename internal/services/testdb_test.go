package services

import (
	"database/sql"
	"testing"
	"time"

	"github.com/j-greybard/arcadetracker/internal/models"
	"github.com/j-greybard/arcadetracker/internal/repositories"

	_ "github.com/glebarez/go-sqlite"
	"github.com/stretchr/testify/require"
)

// The service tests run the real repositories and services against an
// in-memory SQLite database. The repositories stick to portable SQL, so the
// same queries that run against PostgreSQL in production run here unchanged.
const testSchema = `
CREATE TABLE users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    username      TEXT NOT NULL UNIQUE,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    full_name     TEXT,
    role          TEXT NOT NULL DEFAULT 'operator',
    is_active     INTEGER NOT NULL DEFAULT 1,
    created_at    DATETIME NOT NULL
);

CREATE TABLE machines (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    name           TEXT NOT NULL UNIQUE,
    manufacturer   TEXT,
    year           INTEGER,
    genre          TEXT,
    location       TEXT NOT NULL DEFAULT 'floor',
    floor_position TEXT,
    status         TEXT NOT NULL DEFAULT 'working',
    coins_per_play REAL NOT NULL DEFAULT 0.25,
    total_plays    INTEGER NOT NULL DEFAULT 0,
    total_revenue  REAL NOT NULL DEFAULT 0,
    counter_status TEXT NOT NULL DEFAULT 'working',
    counter_notes  TEXT,
    notes          TEXT,
    date_added     DATETIME NOT NULL
);

CREATE TABLE meter_readings (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    machine_id       INTEGER NOT NULL,
    cumulative_count INTEGER NOT NULL,
    plays_delta      INTEGER NOT NULL DEFAULT 0,
    revenue_delta    REAL NOT NULL DEFAULT 0,
    recorded_date    DATETIME NOT NULL,
    note             TEXT,
    created_at       DATETIME NOT NULL
);

CREATE TABLE inventory_items (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    name              TEXT NOT NULL UNIQUE,
    description       TEXT,
    quantity_on_hand  INTEGER NOT NULL DEFAULT 0,
    unit_price        REAL NOT NULL DEFAULT 0,
    minimum_threshold INTEGER NOT NULL DEFAULT 0,
    supplier          TEXT,
    part_number       TEXT,
    last_restocked    DATETIME,
    notes             TEXT,
    date_added        DATETIME NOT NULL
);

CREATE TABLE stock_history (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    item_id           INTEGER NOT NULL,
    change_kind       TEXT NOT NULL,
    quantity_change   INTEGER NOT NULL,
    previous_quantity INTEGER NOT NULL,
    new_quantity      INTEGER NOT NULL,
    reason            TEXT,
    actor_id          INTEGER NOT NULL,
    created_at        DATETIME NOT NULL
);

CREATE TABLE low_stock_alerts (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    item_id      INTEGER NOT NULL,
    triggered_at DATETIME NOT NULL,
    resolved     INTEGER NOT NULL DEFAULT 0,
    resolved_at  DATETIME
);

CREATE TABLE repair_orders (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    machine_id        INTEGER NOT NULL,
    issue_description TEXT NOT NULL,
    fix_description   TEXT,
    technician        TEXT,
    status            TEXT NOT NULL DEFAULT 'open',
    total_cost        REAL NOT NULL DEFAULT 0,
    date_reported     DATETIME NOT NULL,
    date_fixed        DATETIME
);

CREATE TABLE usage_allocations (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    repair_order_id    INTEGER NOT NULL,
    item_id            INTEGER NOT NULL,
    quantity_used      INTEGER NOT NULL,
    unit_price_at_time REAL NOT NULL,
    total_cost         REAL NOT NULL,
    created_at         DATETIME NOT NULL
);

CREATE TABLE work_logs (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    repair_order_id  INTEGER NOT NULL,
    actor_id         INTEGER NOT NULL,
    work_description TEXT NOT NULL,
    time_spent_hours REAL,
    cost_incurred    REAL,
    created_at       DATETIME NOT NULL
);
`

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// A single connection keeps every statement on the same in-memory
	// database.
	db.SetMaxOpenConns(1)
	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

type testEnv struct {
	db            *sql.DB
	machineRepo   repositories.MachineRepository
	inventoryRepo repositories.InventoryRepository
	repairRepo    repositories.RepairRepository

	meterService     MeterService
	stockService     StockService
	alertService     AlertService
	machineService   MachineService
	inventoryService InventoryService
	repairService    RepairService
	reportService    ReportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)

	machineRepo := repositories.NewMachineRepository(db)
	inventoryRepo := repositories.NewInventoryRepository(db)
	repairRepo := repositories.NewRepairRepository(db)

	alertService := NewAlertService(inventoryRepo, db)
	stockService := NewStockService(inventoryRepo, alertService, db)

	return &testEnv{
		db:               db,
		machineRepo:      machineRepo,
		inventoryRepo:    inventoryRepo,
		repairRepo:       repairRepo,
		meterService:     NewMeterService(machineRepo, db),
		stockService:     stockService,
		alertService:     alertService,
		machineService:   NewMachineService(machineRepo, repairRepo, db),
		inventoryService: NewInventoryService(inventoryRepo, stockService, alertService, db),
		repairService:    NewRepairService(repairRepo, machineRepo, inventoryRepo, stockService, alertService, db),
		reportService:    NewReportService(machineRepo, repairRepo),
	}
}

func (e *testEnv) seedUser(t *testing.T, username string) int64 {
	t.Helper()
	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         RoleOperator,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	var id int64
	err := e.db.QueryRow(
		`INSERT INTO users (username, email, password_hash, role, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		user.Username, user.Email, user.PasswordHash, user.Role, user.IsActive, user.CreatedAt,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func (e *testEnv) seedMachine(t *testing.T, name string, coinsPerPlay float64) *models.Machine {
	t.Helper()
	machine := &models.Machine{
		Name:          name,
		Location:      LocationFloor,
		Status:        MachineStatusWorking,
		CoinsPerPlay:  coinsPerPlay,
		CounterStatus: CounterStatusWorking,
	}
	_, err := e.machineRepo.CreateMachine(e.db, machine)
	require.NoError(t, err)
	return machine
}

func (e *testEnv) seedItem(t *testing.T, name string, quantity int, unitPrice float64, threshold int) *models.InventoryItem {
	t.Helper()
	item := &models.InventoryItem{
		Name:             name,
		QuantityOnHand:   quantity,
		UnitPrice:        unitPrice,
		MinimumThreshold: threshold,
	}
	_, err := e.inventoryRepo.CreateItem(e.db, item)
	require.NoError(t, err)
	return item
}

func (e *testEnv) machineByID(t *testing.T, id int64) *models.Machine {
	t.Helper()
	machine, err := e.machineRepo.GetMachineByID(e.db, id)
	require.NoError(t, err)
	return machine
}

func (e *testEnv) itemByID(t *testing.T, id int64) *models.InventoryItem {
	t.Helper()
	item, err := e.inventoryRepo.GetItemByID(e.db, id)
	require.NoError(t, err)
	return item
}
