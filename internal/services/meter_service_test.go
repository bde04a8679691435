package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordReadingDerivesDeltas(t *testing.T) {
	env := newTestEnv(t)
	machine := env.seedMachine(t, "Asteroids", 0.25)

	_, err := env.meterService.SetBaseline(machine.ID, 1000, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)

	reading, err := env.meterService.RecordReading(RecordReadingRequest{
		MachineID:       machine.ID,
		CumulativeCount: 1040,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(40), reading.PlaysDelta)
	assert.InDelta(t, 10.00, reading.RevenueDelta, 1e-9)

	updated := env.machineByID(t, machine.ID)
	assert.Equal(t, int64(40), updated.TotalPlays)
	assert.InDelta(t, 10.00, updated.TotalRevenue, 1e-9)
}

func TestRecordReadingFirstReadingWithoutBaseline(t *testing.T) {
	env := newTestEnv(t)
	machine := env.seedMachine(t, "Defender", 0.50)

	// With no prior readings the previous count is taken as zero.
	reading, err := env.meterService.RecordReading(RecordReadingRequest{
		MachineID:       machine.ID,
		CumulativeCount: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(20), reading.PlaysDelta)
	assert.InDelta(t, 10.00, reading.RevenueDelta, 1e-9)
}

func TestRecordReadingRejectsLowerCount(t *testing.T) {
	env := newTestEnv(t)
	machine := env.seedMachine(t, "Galaga", 0.25)

	_, err := env.meterService.RecordReading(RecordReadingRequest{
		MachineID:       machine.ID,
		CumulativeCount: 1040,
	})
	require.NoError(t, err)

	_, err = env.meterService.RecordReading(RecordReadingRequest{
		MachineID:       machine.ID,
		CumulativeCount: 1030,
	})
	require.ErrorIs(t, err, ErrInvalidCounter)

	// The rejected reading must leave no trace.
	readings, total, err := env.meterService.GetReadings(machine.ID, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, readings, 1)

	updated := env.machineByID(t, machine.ID)
	assert.Equal(t, int64(1040), readings[0].CumulativeCount)
	assert.Equal(t, int64(1040), updated.TotalPlays)
}

func TestRecordReadingRequiresWorkingCounter(t *testing.T) {
	env := newTestEnv(t)
	machine := env.seedMachine(t, "Tempest", 0.25)

	_, err := env.machineService.SetCounterStatus(machine.ID, CounterStatusBroken, nil)
	require.NoError(t, err)

	_, err = env.meterService.RecordReading(RecordReadingRequest{
		MachineID:       machine.ID,
		CumulativeCount: 100,
	})
	assert.ErrorIs(t, err, ErrCounterUnavailable)
}

func TestSetBaselineOverwriteAndLockout(t *testing.T) {
	env := newTestEnv(t)
	machine := env.seedMachine(t, "Centipede", 0.25)

	first, err := env.meterService.SetBaseline(machine.ID, 5000, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), first.PlaysDelta)

	// A second baseline while only the baseline exists corrects it in place.
	second, err := env.meterService.SetBaseline(machine.ID, 4800, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(4800), second.CumulativeCount)

	_, total, err := env.meterService.GetReadings(machine.ID, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	// Once a play reading exists the baseline is locked.
	_, err = env.meterService.RecordReading(RecordReadingRequest{
		MachineID:       machine.ID,
		CumulativeCount: 4850,
	})
	require.NoError(t, err)

	_, err = env.meterService.SetBaseline(machine.ID, 4000, time.Time{})
	assert.ErrorIs(t, err, ErrBaselineNotAllowed)
}

func TestRecordReadingBackdated(t *testing.T) {
	env := newTestEnv(t)
	machine := env.seedMachine(t, "Joust", 0.25)

	day1 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC)
	day3 := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)

	_, err := env.meterService.SetBaseline(machine.ID, 100, day1)
	require.NoError(t, err)

	later, err := env.meterService.RecordReading(RecordReadingRequest{
		MachineID:       machine.ID,
		CumulativeCount: 200,
		RecordedDate:    day3,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), later.PlaysDelta)

	// A backdated reading derives its delta from its chronological
	// predecessor, and the later reading keeps its original delta.
	backdated, err := env.meterService.RecordReading(RecordReadingRequest{
		MachineID:       machine.ID,
		CumulativeCount: 150,
		RecordedDate:    day2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(50), backdated.PlaysDelta)

	readings, _, err := env.meterService.GetReadings(machine.ID, 1, 50)
	require.NoError(t, err)
	for _, reading := range readings {
		if reading.ID == later.ID {
			assert.Equal(t, int64(100), reading.PlaysDelta)
		}
	}

	// A backdated count above the next reading contradicts the timeline.
	_, err = env.meterService.RecordReading(RecordReadingRequest{
		MachineID:       machine.ID,
		CumulativeCount: 250,
		RecordedDate:    day2.Add(time.Hour),
	})
	assert.ErrorIs(t, err, ErrInvalidCounter)
}

func TestDeleteReadingReversesTotals(t *testing.T) {
	env := newTestEnv(t)
	machine := env.seedMachine(t, "Dig Dug", 0.50)

	_, err := env.meterService.SetBaseline(machine.ID, 0, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	reading, err := env.meterService.RecordReading(RecordReadingRequest{
		MachineID:       machine.ID,
		CumulativeCount: 40,
	})
	require.NoError(t, err)

	require.NoError(t, env.meterService.DeleteReading(reading.ID))

	updated := env.machineByID(t, machine.ID)
	assert.Equal(t, int64(0), updated.TotalPlays)
	assert.InDelta(t, 0, updated.TotalRevenue, 1e-9)
}

func TestDeleteReadingClampsTotalsAtZero(t *testing.T) {
	env := newTestEnv(t)
	machine := env.seedMachine(t, "Q*bert", 0.25)

	reading, err := env.meterService.RecordReading(RecordReadingRequest{
		MachineID:       machine.ID,
		CumulativeCount: 40,
	})
	require.NoError(t, err)

	// Force the cached totals below the reading's deltas to simulate an
	// inconsistent history.
	require.NoError(t, env.machineRepo.UpdateMachineTotals(env.db, machine.ID, 10, 1.00))

	require.NoError(t, env.meterService.DeleteReading(reading.ID))

	updated := env.machineByID(t, machine.ID)
	assert.Equal(t, int64(0), updated.TotalPlays)
	assert.InDelta(t, 0, updated.TotalRevenue, 1e-9)
}

func TestDeleteReadingNotFound(t *testing.T) {
	env := newTestEnv(t)
	err := env.meterService.DeleteReading(9999)
	assert.ErrorIs(t, err, ErrReadingNotFound)
}
