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
	ErrMachineNotFound    = errors.New("machine not found")
	ErrReadingNotFound    = errors.New("meter reading not found")
	ErrInvalidCounter     = errors.New("coin count lower than previous reading")
	ErrBaselineNotAllowed = errors.New("baseline not allowed once play readings exist")
	ErrCounterUnavailable = errors.New("coin counter is not operational")
)

// Counter status values for a machine's coin meter.
const (
	CounterStatusWorking = "working"
	CounterStatusNone    = "no_counter"
	CounterStatusBroken  = "broken"
)

const baselineNote = "Baseline coin count"

// RecordReadingRequest carries one new cumulative meter reading.
type RecordReadingRequest struct {
	MachineID       int64     `json:"machine_id" binding:"required"`
	CumulativeCount int64     `json:"cumulative_count"`
	RecordedDate    time.Time `json:"recorded_date"`
	Note            string    `json:"note"`
}

// MeterService derives play/revenue events from cumulative coin-meter
// readings and keeps the machine's cached totals consistent with them.
type MeterService interface {
	RecordReading(req RecordReadingRequest) (*models.MeterReading, error)
	SetBaseline(machineID int64, cumulativeCount int64, date time.Time) (*models.MeterReading, error)
	DeleteReading(readingID int64) error
	GetReadings(machineID int64, page, pageSize int) ([]models.MeterReading, int, error)
}

type meterService struct {
	machineRepo repositories.MachineRepository
	db          *sql.DB
}

// NewMeterService creates a new instance of MeterService.
func NewMeterService(mr repositories.MachineRepository, db *sql.DB) MeterService {
	return &meterService{machineRepo: mr, db: db}
}

// RecordReading validates a new cumulative count against the machine's
// reading history, derives the play/revenue deltas, and commits the reading
// together with the machine's updated totals as one transaction.
//
// A reading dated earlier than the latest one is allowed (a backdated
// correction): its delta is computed against the chronological predecessor,
// and its count must not exceed the chronological successor. Deltas of later
// readings are not recomputed; the reading log is forward-only.
func (s *meterService) RecordReading(req RecordReadingRequest) (*models.MeterReading, error) {
	if req.CumulativeCount < 0 {
		return nil, fmt.Errorf("%w: cumulative count cannot be negative", ErrValidation)
	}
	recordedDate := req.RecordedDate
	if recordedDate.IsZero() {
		recordedDate = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	machine, err := s.machineRepo.GetMachineByID(tx, req.MachineID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %d", ErrMachineNotFound, req.MachineID)
		}
		return nil, fmt.Errorf("failed to fetch machine %d: %w", req.MachineID, err)
	}

	if machine.CounterStatus != CounterStatusWorking {
		return nil, fmt.Errorf("%w: machine %q counter status is %s", ErrCounterUnavailable, machine.Name, machine.CounterStatus)
	}

	var lastCount int64
	predecessor, err := s.machineRepo.GetLatestReadingAtOrBefore(tx, req.MachineID, recordedDate)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to fetch previous reading for machine %d: %w", req.MachineID, err)
	}
	if predecessor != nil {
		lastCount = predecessor.CumulativeCount
	}

	if req.CumulativeCount < lastCount {
		return nil, fmt.Errorf("%w: new count %d is lower than previous reading %d", ErrInvalidCounter, req.CumulativeCount, lastCount)
	}

	successor, err := s.machineRepo.GetEarliestReadingAfter(tx, req.MachineID, recordedDate)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to fetch following reading for machine %d: %w", req.MachineID, err)
	}
	if successor != nil && req.CumulativeCount > successor.CumulativeCount {
		return nil, fmt.Errorf("%w: new count %d exceeds the later reading %d recorded on %s",
			ErrInvalidCounter, req.CumulativeCount, successor.CumulativeCount, successor.RecordedDate.Format("2006-01-02"))
	}

	playsDelta := req.CumulativeCount - lastCount
	revenueDelta := float64(playsDelta) * machine.CoinsPerPlay

	reading := models.MeterReading{
		MachineID:       req.MachineID,
		CumulativeCount: req.CumulativeCount,
		PlaysDelta:      playsDelta,
		RevenueDelta:    revenueDelta,
		RecordedDate:    recordedDate,
		Note:            utils.NewNullString(req.Note),
	}
	if _, err := s.machineRepo.CreateReading(tx, &reading); err != nil {
		return nil, fmt.Errorf("failed to create meter reading: %w", err)
	}

	newTotalPlays := machine.TotalPlays + playsDelta
	newTotalRevenue := machine.TotalRevenue + revenueDelta
	if err := s.machineRepo.UpdateMachineTotals(tx, machine.ID, newTotalPlays, newTotalRevenue); err != nil {
		return nil, fmt.Errorf("failed to update machine totals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit meter reading transaction: %w", err)
	}
	return &reading, nil
}

// SetBaseline records the starting meter count for a machine. It is only
// valid while no real plays have been recorded: with zero prior readings a
// zero-delta baseline row is inserted; with exactly one prior reading that is
// itself a baseline, that row is overwritten in place so a mis-entered
// starting count can be corrected.
func (s *meterService) SetBaseline(machineID int64, cumulativeCount int64, date time.Time) (*models.MeterReading, error) {
	if cumulativeCount < 0 {
		return nil, fmt.Errorf("%w: baseline coin count cannot be negative", ErrValidation)
	}
	if date.IsZero() {
		date = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.machineRepo.GetMachineByID(tx, machineID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %d", ErrMachineNotFound, machineID)
		}
		return nil, fmt.Errorf("failed to fetch machine %d: %w", machineID, err)
	}

	count, err := s.machineRepo.CountReadings(tx, machineID)
	if err != nil {
		return nil, fmt.Errorf("failed to count readings for machine %d: %w", machineID, err)
	}

	note := baselineNote
	switch {
	case count == 0:
		reading := models.MeterReading{
			MachineID:       machineID,
			CumulativeCount: cumulativeCount,
			PlaysDelta:      0,
			RevenueDelta:    0,
			RecordedDate:    date,
			Note:            &note,
		}
		if _, err := s.machineRepo.CreateReading(tx, &reading); err != nil {
			return nil, fmt.Errorf("failed to create baseline reading: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit baseline transaction: %w", err)
		}
		return &reading, nil

	case count == 1:
		existing, err := s.machineRepo.GetLatestReading(tx, machineID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch existing reading for machine %d: %w", machineID, err)
		}
		if existing.PlaysDelta != 0 {
			return nil, fmt.Errorf("%w: machine %d already has a play reading", ErrBaselineNotAllowed, machineID)
		}
		// Correcting a mis-entered starting count: overwrite, don't append.
		existing.CumulativeCount = cumulativeCount
		existing.RecordedDate = date
		existing.Note = &note
		if err := s.machineRepo.UpdateReading(tx, existing); err != nil {
			return nil, fmt.Errorf("failed to overwrite baseline reading: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit baseline transaction: %w", err)
		}
		return existing, nil

	default:
		return nil, fmt.Errorf("%w: machine %d has %d readings", ErrBaselineNotAllowed, machineID, count)
	}
}

// DeleteReading removes a reading and subtracts its deltas from the machine's
// cached totals. Totals are clamped at zero; a clamp that actually changes
// the result signals an inconsistency in the history and is logged.
func (s *meterService) DeleteReading(readingID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	reading, err := s.machineRepo.GetReadingByID(tx, readingID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: ID %d", ErrReadingNotFound, readingID)
		}
		return fmt.Errorf("failed to fetch meter reading %d: %w", readingID, err)
	}

	machine, err := s.machineRepo.GetMachineByID(tx, reading.MachineID)
	if err != nil {
		return fmt.Errorf("failed to fetch machine %d: %w", reading.MachineID, err)
	}

	newTotalPlays := machine.TotalPlays - reading.PlaysDelta
	newTotalRevenue := machine.TotalRevenue - reading.RevenueDelta
	if newTotalPlays < 0 || newTotalRevenue < 0 {
		utils.LogWarn("Machine totals clamped at zero while deleting reading", map[string]interface{}{
			"machine_id":    machine.ID,
			"reading_id":    readingID,
			"total_plays":   newTotalPlays,
			"total_revenue": newTotalRevenue,
		})
	}
	if newTotalPlays < 0 {
		newTotalPlays = 0
	}
	if newTotalRevenue < 0 {
		newTotalRevenue = 0
	}

	if err := s.machineRepo.DeleteReading(tx, readingID); err != nil {
		return fmt.Errorf("failed to delete meter reading %d: %w", readingID, err)
	}
	if err := s.machineRepo.UpdateMachineTotals(tx, machine.ID, newTotalPlays, newTotalRevenue); err != nil {
		return fmt.Errorf("failed to update machine totals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reading deletion: %w", err)
	}
	return nil
}

func (s *meterService) GetReadings(machineID int64, page, pageSize int) ([]models.MeterReading, int, error) {
	readings, totalCount, err := s.machineRepo.GetReadings(machineID, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get meter readings: %w", err)
	}
	return readings, totalCount, nil
}
