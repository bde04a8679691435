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

// MachineRepository defines database operations for machines and their meter
// readings. Machine totals and readings are always written through the same
// executor so callers can commit them as one unit.
type MachineRepository interface {
	CreateMachine(executor SQLExecutor, machine *models.Machine) (int64, error)
	GetMachineByID(executor SQLExecutor, id int64) (*models.Machine, error)
	GetMachines(filters models.MachineFilters) ([]models.Machine, int, error)
	UpdateMachine(executor SQLExecutor, machine *models.Machine) error
	UpdateMachineTotals(executor SQLExecutor, id int64, totalPlays int64, totalRevenue float64) error
	DeleteMachine(executor SQLExecutor, id int64) error

	CreateReading(executor SQLExecutor, reading *models.MeterReading) (int64, error)
	UpdateReading(executor SQLExecutor, reading *models.MeterReading) error
	GetReadingByID(executor SQLExecutor, id int64) (*models.MeterReading, error)
	GetReadings(machineID int64, page, pageSize int) ([]models.MeterReading, int, error)
	GetLatestReading(executor SQLExecutor, machineID int64) (*models.MeterReading, error)
	GetLatestReadingAtOrBefore(executor SQLExecutor, machineID int64, date time.Time) (*models.MeterReading, error)
	GetEarliestReadingAfter(executor SQLExecutor, machineID int64, date time.Time) (*models.MeterReading, error)
	CountReadings(executor SQLExecutor, machineID int64) (int, error)
	DeleteReading(executor SQLExecutor, id int64) error
	GetReadingsSince(start time.Time) ([]models.MeterReading, error)
}

type machineRepository struct {
	db *sql.DB
}

// NewMachineRepository creates a new instance of MachineRepository.
func NewMachineRepository(db *sql.DB) MachineRepository {
	return &machineRepository{db: db}
}

// --- Machine methods ---

func (r *machineRepository) CreateMachine(executor SQLExecutor, machine *models.Machine) (int64, error) {
	query := `INSERT INTO machines
	          (name, manufacturer, year, genre, location, floor_position, status,
	           coins_per_play, total_plays, total_revenue, counter_status, counter_notes, notes, date_added)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	          RETURNING id`
	if machine.DateAdded.IsZero() {
		machine.DateAdded = time.Now()
	}
	err := executor.QueryRow(query,
		machine.Name, machine.Manufacturer, machine.Year, machine.Genre,
		machine.Location, machine.FloorPosition, machine.Status,
		machine.CoinsPerPlay, machine.TotalPlays, machine.TotalRevenue,
		machine.CounterStatus, machine.CounterNotes, machine.Notes, machine.DateAdded,
	).Scan(&machine.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, fmt.Errorf("%w: machine name '%s' already exists", ErrDuplicateKey, machine.Name)
		}
		return 0, fmt.Errorf("%w: creating machine: %v", ErrDatabaseError, err)
	}
	return machine.ID, nil
}

func (r *machineRepository) GetMachineByID(executor SQLExecutor, id int64) (*models.Machine, error) {
	machine := &models.Machine{}
	query := `SELECT id, name, manufacturer, year, genre, location, floor_position, status,
	                 coins_per_play, total_plays, total_revenue, counter_status, counter_notes, notes, date_added
	          FROM machines WHERE id = $1`
	err := executor.QueryRow(query, id).Scan(
		&machine.ID, &machine.Name, &machine.Manufacturer, &machine.Year, &machine.Genre,
		&machine.Location, &machine.FloorPosition, &machine.Status,
		&machine.CoinsPerPlay, &machine.TotalPlays, &machine.TotalRevenue,
		&machine.CounterStatus, &machine.CounterNotes, &machine.Notes, &machine.DateAdded,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting machine by ID %d: %v", ErrDatabaseError, id, err)
	}
	return machine, nil
}

func (r *machineRepository) GetMachines(filters models.MachineFilters) ([]models.Machine, int, error) {
	machines := []models.Machine{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT id, name, manufacturer, year, genre, location, floor_position, status,
	       coins_per_play, total_plays, total_revenue, counter_status, counter_notes, notes, date_added,
	       COUNT(*) OVER() AS total_count
	  FROM machines`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.Location != nil && *filters.Location != "" {
		conditions = append(conditions, fmt.Sprintf("location = $%d", argCount))
		args = append(args, *filters.Location)
		argCount++
	}
	if filters.Status != nil && *filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argCount))
		args = append(args, *filters.Status)
		argCount++
	}
	if filters.CounterStatus != nil && *filters.CounterStatus != "" {
		conditions = append(conditions, fmt.Sprintf("counter_status = $%d", argCount))
		args = append(args, *filters.CounterStatus)
		argCount++
	}
	if filters.Search != nil && *filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name LIKE $%d OR manufacturer LIKE $%d)", argCount, argCount+1))
		pattern := "%" + *filters.Search + "%"
		args = append(args, pattern, pattern)
		argCount += 2
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
		return nil, 0, fmt.Errorf("%w: getting machines: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var machine models.Machine
		if err := rows.Scan(
			&machine.ID, &machine.Name, &machine.Manufacturer, &machine.Year, &machine.Genre,
			&machine.Location, &machine.FloorPosition, &machine.Status,
			&machine.CoinsPerPlay, &machine.TotalPlays, &machine.TotalRevenue,
			&machine.CounterStatus, &machine.CounterNotes, &machine.Notes, &machine.DateAdded,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning machine: %v", ErrDatabaseError, err)
		}
		machines = append(machines, machine)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating machines: %v", ErrDatabaseError, err)
	}
	return machines, totalCount, nil
}

func (r *machineRepository) UpdateMachine(executor SQLExecutor, machine *models.Machine) error {
	query := `UPDATE machines SET
	            name = $1, manufacturer = $2, year = $3, genre = $4, location = $5,
	            floor_position = $6, status = $7, coins_per_play = $8,
	            counter_status = $9, counter_notes = $10, notes = $11
	          WHERE id = $12`
	result, err := executor.Exec(query,
		machine.Name, machine.Manufacturer, machine.Year, machine.Genre, machine.Location,
		machine.FloorPosition, machine.Status, machine.CoinsPerPlay,
		machine.CounterStatus, machine.CounterNotes, machine.Notes, machine.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating machine ID %d: %v", ErrDatabaseError, machine.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateMachineTotals writes the cached play/revenue projections. Only the
// meter ledger calls this, always inside the same transaction as the reading
// mutation that produced the new totals.
func (r *machineRepository) UpdateMachineTotals(executor SQLExecutor, id int64, totalPlays int64, totalRevenue float64) error {
	query := `UPDATE machines SET total_plays = $1, total_revenue = $2 WHERE id = $3`
	result, err := executor.Exec(query, totalPlays, totalRevenue, id)
	if err != nil {
		return fmt.Errorf("%w: updating totals for machine ID %d: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *machineRepository) DeleteMachine(executor SQLExecutor, id int64) error {
	if _, err := executor.Exec(`DELETE FROM meter_readings WHERE machine_id = $1`, id); err != nil {
		return fmt.Errorf("%w: deleting readings for machine ID %d: %v", ErrDatabaseError, id, err)
	}
	result, err := executor.Exec(`DELETE FROM machines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: deleting machine ID %d: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- MeterReading methods ---

func (r *machineRepository) CreateReading(executor SQLExecutor, reading *models.MeterReading) (int64, error) {
	query := `INSERT INTO meter_readings
	          (machine_id, cumulative_count, plays_delta, revenue_delta, recorded_date, note, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id`
	reading.CreatedAt = time.Now()
	err := executor.QueryRow(query,
		reading.MachineID, reading.CumulativeCount, reading.PlaysDelta, reading.RevenueDelta,
		reading.RecordedDate, reading.Note, reading.CreatedAt,
	).Scan(&reading.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating meter reading: %v", ErrDatabaseError, err)
	}
	return reading.ID, nil
}

func (r *machineRepository) UpdateReading(executor SQLExecutor, reading *models.MeterReading) error {
	query := `UPDATE meter_readings SET
	            cumulative_count = $1, plays_delta = $2, revenue_delta = $3, recorded_date = $4, note = $5
	          WHERE id = $6`
	result, err := executor.Exec(query,
		reading.CumulativeCount, reading.PlaysDelta, reading.RevenueDelta,
		reading.RecordedDate, reading.Note, reading.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating meter reading ID %d: %v", ErrDatabaseError, reading.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *machineRepository) GetReadingByID(executor SQLExecutor, id int64) (*models.MeterReading, error) {
	reading := &models.MeterReading{}
	query := `SELECT id, machine_id, cumulative_count, plays_delta, revenue_delta, recorded_date, note, created_at
	          FROM meter_readings WHERE id = $1`
	err := executor.QueryRow(query, id).Scan(
		&reading.ID, &reading.MachineID, &reading.CumulativeCount, &reading.PlaysDelta,
		&reading.RevenueDelta, &reading.RecordedDate, &reading.Note, &reading.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting meter reading by ID %d: %v", ErrDatabaseError, id, err)
	}
	return reading, nil
}

func (r *machineRepository) GetReadings(machineID int64, page, pageSize int) ([]models.MeterReading, int, error) {
	readings := []models.MeterReading{}
	totalCount := 0
	query := `SELECT id, machine_id, cumulative_count, plays_delta, revenue_delta, recorded_date, note, created_at,
	                 COUNT(*) OVER() AS total_count
	          FROM meter_readings
	          WHERE machine_id = $1
	          ORDER BY recorded_date DESC, id DESC
	          LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(query, machineID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: getting meter readings: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var reading models.MeterReading
		if err := rows.Scan(
			&reading.ID, &reading.MachineID, &reading.CumulativeCount, &reading.PlaysDelta,
			&reading.RevenueDelta, &reading.RecordedDate, &reading.Note, &reading.CreatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning meter reading: %v", ErrDatabaseError, err)
		}
		readings = append(readings, reading)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating meter readings: %v", ErrDatabaseError, err)
	}
	return readings, totalCount, nil
}

// GetLatestReading returns the most recent reading for a machine, ordered by
// recorded date with ties broken by insertion order (highest id wins).
func (r *machineRepository) GetLatestReading(executor SQLExecutor, machineID int64) (*models.MeterReading, error) {
	reading := &models.MeterReading{}
	query := `SELECT id, machine_id, cumulative_count, plays_delta, revenue_delta, recorded_date, note, created_at
	          FROM meter_readings
	          WHERE machine_id = $1
	          ORDER BY recorded_date DESC, id DESC
	          LIMIT 1`
	err := executor.QueryRow(query, machineID).Scan(
		&reading.ID, &reading.MachineID, &reading.CumulativeCount, &reading.PlaysDelta,
		&reading.RevenueDelta, &reading.RecordedDate, &reading.Note, &reading.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting latest reading for machine ID %d: %v", ErrDatabaseError, machineID, err)
	}
	return reading, nil
}

// GetLatestReadingAtOrBefore returns the chronological predecessor for a
// reading recorded at the given date.
func (r *machineRepository) GetLatestReadingAtOrBefore(executor SQLExecutor, machineID int64, date time.Time) (*models.MeterReading, error) {
	reading := &models.MeterReading{}
	query := `SELECT id, machine_id, cumulative_count, plays_delta, revenue_delta, recorded_date, note, created_at
	          FROM meter_readings
	          WHERE machine_id = $1 AND recorded_date <= $2
	          ORDER BY recorded_date DESC, id DESC
	          LIMIT 1`
	err := executor.QueryRow(query, machineID, date).Scan(
		&reading.ID, &reading.MachineID, &reading.CumulativeCount, &reading.PlaysDelta,
		&reading.RevenueDelta, &reading.RecordedDate, &reading.Note, &reading.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting predecessor reading for machine ID %d: %v", ErrDatabaseError, machineID, err)
	}
	return reading, nil
}

// GetEarliestReadingAfter returns the chronological successor for a reading
// recorded at the given date, if any.
func (r *machineRepository) GetEarliestReadingAfter(executor SQLExecutor, machineID int64, date time.Time) (*models.MeterReading, error) {
	reading := &models.MeterReading{}
	query := `SELECT id, machine_id, cumulative_count, plays_delta, revenue_delta, recorded_date, note, created_at
	          FROM meter_readings
	          WHERE machine_id = $1 AND recorded_date > $2
	          ORDER BY recorded_date ASC, id ASC
	          LIMIT 1`
	err := executor.QueryRow(query, machineID, date).Scan(
		&reading.ID, &reading.MachineID, &reading.CumulativeCount, &reading.PlaysDelta,
		&reading.RevenueDelta, &reading.RecordedDate, &reading.Note, &reading.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting successor reading for machine ID %d: %v", ErrDatabaseError, machineID, err)
	}
	return reading, nil
}

func (r *machineRepository) CountReadings(executor SQLExecutor, machineID int64) (int, error) {
	var count int
	err := executor.QueryRow(`SELECT COUNT(*) FROM meter_readings WHERE machine_id = $1`, machineID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: counting readings for machine ID %d: %v", ErrDatabaseError, machineID, err)
	}
	return count, nil
}

func (r *machineRepository) DeleteReading(executor SQLExecutor, id int64) error {
	result, err := executor.Exec(`DELETE FROM meter_readings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: deleting meter reading ID %d: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetReadingsSince returns all readings on or after the start date, joined
// with their machine. Used by the reporting layer; read-only.
func (r *machineRepository) GetReadingsSince(start time.Time) ([]models.MeterReading, error) {
	readings := []models.MeterReading{}
	query := `SELECT mr.id, mr.machine_id, mr.cumulative_count, mr.plays_delta, mr.revenue_delta,
	                 mr.recorded_date, mr.note, mr.created_at,
	                 m.name, m.location, m.counter_status, m.coins_per_play
	          FROM meter_readings mr
	          JOIN machines m ON mr.machine_id = m.id
	          WHERE mr.recorded_date >= $1
	          ORDER BY mr.recorded_date DESC, mr.id DESC`
	rows, err := r.db.Query(query, start)
	if err != nil {
		return nil, fmt.Errorf("%w: getting readings since %s: %v", ErrDatabaseError, start.Format("2006-01-02"), err)
	}
	defer rows.Close()

	for rows.Next() {
		var reading models.MeterReading
		machine := models.Machine{}
		if err := rows.Scan(
			&reading.ID, &reading.MachineID, &reading.CumulativeCount, &reading.PlaysDelta,
			&reading.RevenueDelta, &reading.RecordedDate, &reading.Note, &reading.CreatedAt,
			&machine.Name, &machine.Location, &machine.CounterStatus, &machine.CoinsPerPlay,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning reading with machine: %v", ErrDatabaseError, err)
		}
		machine.ID = reading.MachineID
		reading.Machine = &machine
		readings = append(readings, reading)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating readings with machines: %v", ErrDatabaseError, err)
	}
	return readings, nil
}
