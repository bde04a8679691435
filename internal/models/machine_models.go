package models

import "time"

// Machine represents a coin-operated machine on the floor or in storage.
// TotalPlays and TotalRevenue are cached projections of the machine's meter
// readings; only the meter ledger may write them.
type Machine struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name" binding:"required"`
	Manufacturer  *string   `json:"manufacturer,omitempty" db:"manufacturer"`
	Year          *int      `json:"year,omitempty" db:"year"`
	Genre         *string   `json:"genre,omitempty" db:"genre"`
	Location      string    `json:"location" db:"location"` // floor, warehouse, shipped
	FloorPosition *string   `json:"floor_position,omitempty" db:"floor_position"`
	Status        string    `json:"status" db:"status"` // working, being_fixed, not_working, retired
	CoinsPerPlay  float64   `json:"coins_per_play" db:"coins_per_play"`
	TotalPlays    int64     `json:"total_plays" db:"total_plays"`
	TotalRevenue  float64   `json:"total_revenue" db:"total_revenue"`
	CounterStatus string    `json:"counter_status" db:"counter_status"` // working, no_counter, broken
	CounterNotes  *string   `json:"counter_notes,omitempty" db:"counter_notes"`
	Notes         *string   `json:"notes,omitempty" db:"notes"`
	DateAdded     time.Time `json:"date_added" db:"date_added"`
}

// MeterReading is one recorded cumulative coin-meter value for a machine.
// PlaysDelta and RevenueDelta are derived against the chronological
// predecessor at record time and are never recomputed afterwards; a baseline
// reading carries zero deltas.
type MeterReading struct {
	ID              int64     `json:"id" db:"id"`
	MachineID       int64     `json:"machine_id" db:"machine_id" binding:"required"`
	CumulativeCount int64     `json:"cumulative_count" db:"cumulative_count"`
	PlaysDelta      int64     `json:"plays_delta" db:"plays_delta"`
	RevenueDelta    float64   `json:"revenue_delta" db:"revenue_delta"`
	RecordedDate    time.Time `json:"recorded_date" db:"recorded_date"`
	Note            *string   `json:"note,omitempty" db:"note"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`

	Machine *Machine `json:"machine,omitempty"`
}

// MachineFilters narrows machine list queries.
type MachineFilters struct {
	Location      *string
	Status        *string
	CounterStatus *string
	Search        *string
	Page          int
	PageSize      int
}
