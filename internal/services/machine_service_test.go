package services

import (
	"testing"
	"time"

	"github.com/j-greybard/arcadetracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMachineAppliesDefaults(t *testing.T) {
	env := newTestEnv(t)

	machine, err := env.machineService.CreateMachine(CreateMachineRequest{
		Name:         "Street Fighter II",
		CoinsPerPlay: 0.50,
	})
	require.NoError(t, err)

	assert.Equal(t, LocationFloor, machine.Location)
	assert.Equal(t, MachineStatusWorking, machine.Status)
	assert.Equal(t, CounterStatusWorking, machine.CounterStatus)
	assert.Equal(t, int64(0), machine.TotalPlays)
}

func TestCreateMachineValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.machineService.CreateMachine(CreateMachineRequest{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.machineService.CreateMachine(CreateMachineRequest{
		Name:     "Out Run",
		Location: "attic",
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.machineService.CreateMachine(CreateMachineRequest{
		Name:         "Out Run",
		CoinsPerPlay: -0.25,
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetMachinesFiltersByLocation(t *testing.T) {
	env := newTestEnv(t)
	env.seedMachine(t, "Floor Machine", 0.25)

	warehouse := "warehouse"
	_, err := env.machineService.CreateMachine(CreateMachineRequest{
		Name:     "Stored Machine",
		Location: warehouse,
	})
	require.NoError(t, err)

	machines, total, err := env.machineService.GetMachines(models.MachineFilters{Location: &warehouse})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, machines, 1)
	assert.Equal(t, "Stored Machine", machines[0].Name)
}

func TestSetCounterStatusRejectsUnknownValue(t *testing.T) {
	env := newTestEnv(t)
	machine := env.seedMachine(t, "Paperboy", 0.25)

	_, err := env.machineService.SetCounterStatus(machine.ID, "sideways", nil)
	assert.ErrorIs(t, err, ErrValidation)

	notes := "Meter gear stripped"
	updated, err := env.machineService.SetCounterStatus(machine.ID, CounterStatusBroken, &notes)
	require.NoError(t, err)
	assert.Equal(t, CounterStatusBroken, updated.CounterStatus)
	require.NotNil(t, updated.CounterNotes)
	assert.Equal(t, notes, *updated.CounterNotes)
}

func TestDeleteMachineCascadesHistory(t *testing.T) {
	env := newTestEnv(t)
	actorID := env.seedUser(t, "vic")
	machine := env.seedMachine(t, "Rampage", 0.25)
	item := env.seedItem(t, "Side art decal", 5, 20.00, 1)

	_, err := env.meterService.SetBaseline(machine.ID, 100, time.Now())
	require.NoError(t, err)

	order, results, err := env.repairService.CreateRepairOrder(CreateRepairOrderRequest{
		MachineID:        machine.ID,
		IssueDescription: "Cabinet damage",
		Parts: []PartUsageRequest{
			{ItemID: item.ID, QuantityUsed: 1},
		},
	}, actorID)
	require.NoError(t, err)
	require.NoError(t, results[0].Err)

	require.NoError(t, env.machineService.DeleteMachine(machine.ID))

	_, err = env.machineService.GetMachineByID(machine.ID)
	assert.ErrorIs(t, err, ErrMachineNotFound)

	_, err = env.repairService.GetRepairOrderByID(order.ID)
	assert.ErrorIs(t, err, ErrRepairOrderNotFound)

	_, total, err := env.meterService.GetReadings(machine.ID, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	// Consumed stock stays debited and its audit trail survives.
	assert.Equal(t, 4, env.itemByID(t, item.ID).QuantityOnHand)
	itemID := item.ID
	entries, _, err := env.stockService.GetStockHistory(models.StockHistoryFilters{
		ItemID:   &itemID,
		Page:     1,
		PageSize: 50,
	})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDeleteMachineNotFound(t *testing.T) {
	env := newTestEnv(t)
	err := env.machineService.DeleteMachine(424242)
	assert.ErrorIs(t, err, ErrMachineNotFound)
}
