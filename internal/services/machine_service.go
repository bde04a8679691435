package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/j-greybard/arcadetracker/internal/models"
	"github.com/j-greybard/arcadetracker/internal/repositories"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrMachineNameTaken = errors.New("machine name already exists")
)

// Machine locations.
const (
	LocationFloor     = "floor"
	LocationWarehouse = "warehouse"
	LocationShipped   = "shipped"
)

// Machine statuses.
const (
	MachineStatusWorking    = "working"
	MachineStatusBeingFixed = "being_fixed"
	MachineStatusNotWorking = "not_working"
	MachineStatusRetired    = "retired"
)

// CreateMachineRequest carries the machine fields a client may set.
type CreateMachineRequest struct {
	Name          string  `json:"name" binding:"required"`
	Manufacturer  *string `json:"manufacturer"`
	Year          *int    `json:"year"`
	Genre         *string `json:"genre"`
	Location      string  `json:"location"`
	FloorPosition *string `json:"floor_position"`
	Status        string  `json:"status"`
	CoinsPerPlay  float64 `json:"coins_per_play"`
	CounterStatus string  `json:"counter_status"`
	CounterNotes  *string `json:"counter_notes"`
	Notes         *string `json:"notes"`
}

// MachineService manages the machine catalog. Play and revenue totals are
// owned by the meter ledger and cannot be edited through this service.
type MachineService interface {
	CreateMachine(req CreateMachineRequest) (*models.Machine, error)
	GetMachines(filters models.MachineFilters) ([]models.Machine, int, error)
	GetMachineByID(machineID int64) (*models.Machine, error)
	UpdateMachine(machineID int64, req CreateMachineRequest) (*models.Machine, error)
	SetCounterStatus(machineID int64, counterStatus string, counterNotes *string) (*models.Machine, error)
	DeleteMachine(machineID int64) error
}

type machineService struct {
	machineRepo repositories.MachineRepository
	repairRepo  repositories.RepairRepository
	db          *sql.DB
}

// NewMachineService creates a new instance of MachineService.
func NewMachineService(mr repositories.MachineRepository, rr repositories.RepairRepository, db *sql.DB) MachineService {
	return &machineService{machineRepo: mr, repairRepo: rr, db: db}
}

func (s *machineService) CreateMachine(req CreateMachineRequest) (*models.Machine, error) {
	if err := validateMachineRequest(&req); err != nil {
		return nil, err
	}

	machine := models.Machine{
		Name:          req.Name,
		Manufacturer:  req.Manufacturer,
		Year:          req.Year,
		Genre:         req.Genre,
		Location:      req.Location,
		FloorPosition: req.FloorPosition,
		Status:        req.Status,
		CoinsPerPlay:  req.CoinsPerPlay,
		CounterStatus: req.CounterStatus,
		CounterNotes:  req.CounterNotes,
		Notes:         req.Notes,
	}

	if _, err := s.machineRepo.CreateMachine(s.db, &machine); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: %s", ErrMachineNameTaken, req.Name)
		}
		return nil, fmt.Errorf("failed to create machine: %w", err)
	}
	return &machine, nil
}

func (s *machineService) GetMachines(filters models.MachineFilters) ([]models.Machine, int, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}
	machines, totalCount, err := s.machineRepo.GetMachines(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get machines: %w", err)
	}
	return machines, totalCount, nil
}

func (s *machineService) GetMachineByID(machineID int64) (*models.Machine, error) {
	machine, err := s.machineRepo.GetMachineByID(s.db, machineID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %d", ErrMachineNotFound, machineID)
		}
		return nil, fmt.Errorf("failed to get machine %d: %w", machineID, err)
	}
	return machine, nil
}

func (s *machineService) UpdateMachine(machineID int64, req CreateMachineRequest) (*models.Machine, error) {
	if err := validateMachineRequest(&req); err != nil {
		return nil, err
	}

	machine, err := s.machineRepo.GetMachineByID(s.db, machineID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %d", ErrMachineNotFound, machineID)
		}
		return nil, fmt.Errorf("failed to fetch machine %d: %w", machineID, err)
	}

	machine.Name = req.Name
	machine.Manufacturer = req.Manufacturer
	machine.Year = req.Year
	machine.Genre = req.Genre
	machine.Location = req.Location
	machine.FloorPosition = req.FloorPosition
	machine.Status = req.Status
	machine.CoinsPerPlay = req.CoinsPerPlay
	machine.CounterStatus = req.CounterStatus
	machine.CounterNotes = req.CounterNotes
	machine.Notes = req.Notes

	if err := s.machineRepo.UpdateMachine(s.db, machine); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %d", ErrMachineNotFound, machineID)
		}
		return nil, fmt.Errorf("failed to update machine %d: %w", machineID, err)
	}
	return machine, nil
}

// SetCounterStatus flips the coin counter state for a machine. Marking a
// counter broken or absent blocks new meter readings until it is set back to
// working; existing readings and totals are left untouched.
func (s *machineService) SetCounterStatus(machineID int64, counterStatus string, counterNotes *string) (*models.Machine, error) {
	if !isValidCounterStatus(counterStatus) {
		return nil, fmt.Errorf("%w: unknown counter status '%s'", ErrValidation, counterStatus)
	}

	machine, err := s.machineRepo.GetMachineByID(s.db, machineID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %d", ErrMachineNotFound, machineID)
		}
		return nil, fmt.Errorf("failed to fetch machine %d: %w", machineID, err)
	}

	machine.CounterStatus = counterStatus
	if counterNotes != nil {
		machine.CounterNotes = counterNotes
	}

	if err := s.machineRepo.UpdateMachine(s.db, machine); err != nil {
		return nil, fmt.Errorf("failed to update counter status for machine %d: %w", machineID, err)
	}
	return machine, nil
}

// DeleteMachine removes a machine with its meter readings and repair history
// in one transaction. Inventory stock history is untouched: parts consumed by
// this machine's repairs stay debited.
func (s *machineService) DeleteMachine(machineID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.repairRepo.DeleteOrdersByMachine(tx, machineID); err != nil {
		return fmt.Errorf("failed to delete repair history for machine %d: %w", machineID, err)
	}
	if err := s.machineRepo.DeleteMachine(tx, machineID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: ID %d", ErrMachineNotFound, machineID)
		}
		return fmt.Errorf("failed to delete machine %d: %w", machineID, err)
	}
	return tx.Commit()
}

func validateMachineRequest(req *CreateMachineRequest) error {
	if req.Name == "" {
		return fmt.Errorf("%w: machine name is required", ErrValidation)
	}
	if req.Location == "" {
		req.Location = LocationFloor
	}
	if req.Status == "" {
		req.Status = MachineStatusWorking
	}
	if req.CounterStatus == "" {
		req.CounterStatus = CounterStatusWorking
	}
	if !isValidLocation(req.Location) {
		return fmt.Errorf("%w: unknown location '%s'", ErrValidation, req.Location)
	}
	if !isValidMachineStatus(req.Status) {
		return fmt.Errorf("%w: unknown status '%s'", ErrValidation, req.Status)
	}
	if !isValidCounterStatus(req.CounterStatus) {
		return fmt.Errorf("%w: unknown counter status '%s'", ErrValidation, req.CounterStatus)
	}
	if req.CoinsPerPlay < 0 {
		return fmt.Errorf("%w: coins per play cannot be negative", ErrValidation)
	}
	return nil
}

func isValidLocation(location string) bool {
	switch location {
	case LocationFloor, LocationWarehouse, LocationShipped:
		return true
	default:
		return false
	}
}

func isValidMachineStatus(status string) bool {
	switch status {
	case MachineStatusWorking, MachineStatusBeingFixed, MachineStatusNotWorking, MachineStatusRetired:
		return true
	default:
		return false
	}
}

func isValidCounterStatus(status string) bool {
	switch status {
	case CounterStatusWorking, CounterStatusNone, CounterStatusBroken:
		return true
	default:
		return false
	}
}
