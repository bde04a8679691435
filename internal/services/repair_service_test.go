package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRepairOrderWithParts(t *testing.T) {
	env := newTestEnv(t)
	actorID := env.seedUser(t, "tessa")
	machine := env.seedMachine(t, "Pac-Man", 0.25)
	item := env.seedItem(t, "Power supply board", 4, 35.00, 1)

	order, results, err := env.repairService.CreateRepairOrder(CreateRepairOrderRequest{
		MachineID:        machine.ID,
		IssueDescription: "No video on boot",
		Parts: []PartUsageRequest{
			{ItemID: item.ID, QuantityUsed: 1},
		},
	}, actorID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	assert.Equal(t, RepairStatusOpen, order.Status)
	require.Len(t, order.Allocations, 1)
	assert.Equal(t, 1, order.Allocations[0].QuantityUsed)
	assert.InDelta(t, 35.00, order.Allocations[0].UnitPriceAtTime, 1e-9)
	assert.InDelta(t, 35.00, order.TotalCost, 1e-9)

	assert.Equal(t, 3, env.itemByID(t, item.ID).QuantityOnHand)
}

func TestAllocatePartsStrictFailureLeavesOrderUntouched(t *testing.T) {
	env := newTestEnv(t)
	actorID := env.seedUser(t, "will")
	machine := env.seedMachine(t, "Donkey Kong", 0.25)
	item := env.seedItem(t, "CRT flyback", 3, 48.00, 1)

	order, _, err := env.repairService.CreateRepairOrder(CreateRepairOrderRequest{
		MachineID:        machine.ID,
		IssueDescription: "Screen collapse",
	}, actorID)
	require.NoError(t, err)

	results, err := env.repairService.AllocateParts(order.ID, []PartUsageRequest{
		{ItemID: item.ID, QuantityUsed: 10},
	}, actorID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, ErrInsufficientStock)
	assert.Nil(t, results[0].Allocation)

	// The failed line rolled back completely.
	assert.Equal(t, 3, env.itemByID(t, item.ID).QuantityOnHand)
	refetched, err := env.repairService.GetRepairOrderByID(order.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0, refetched.TotalCost, 1e-9)
	assert.Empty(t, refetched.Allocations)
}

func TestAllocatePartsPartialBatch(t *testing.T) {
	env := newTestEnv(t)
	actorID := env.seedUser(t, "omar")
	machine := env.seedMachine(t, "Frogger", 0.25)
	plentiful := env.seedItem(t, "Wire harness", 10, 8.00, 2)
	scarce := env.seedItem(t, "Edge connector", 1, 6.50, 1)

	order, _, err := env.repairService.CreateRepairOrder(CreateRepairOrderRequest{
		MachineID:        machine.ID,
		IssueDescription: "Intermittent controls",
	}, actorID)
	require.NoError(t, err)

	results, err := env.repairService.AllocateParts(order.ID, []PartUsageRequest{
		{ItemID: plentiful.ID, QuantityUsed: 2},
		{ItemID: scarce.ID, QuantityUsed: 5},
	}, actorID)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Lines are independent: the first commits even though the second fails.
	require.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, ErrInsufficientStock)

	assert.Equal(t, 8, env.itemByID(t, plentiful.ID).QuantityOnHand)
	assert.Equal(t, 1, env.itemByID(t, scarce.ID).QuantityOnHand)

	refetched, err := env.repairService.GetRepairOrderByID(order.ID)
	require.NoError(t, err)
	require.Len(t, refetched.Allocations, 1)
	assert.InDelta(t, 16.00, refetched.TotalCost, 1e-9)
}

func TestAllocatePartsSnapshotsPrice(t *testing.T) {
	env := newTestEnv(t)
	actorID := env.seedUser(t, "nina")
	machine := env.seedMachine(t, "Ms. Pac-Man", 0.25)
	item := env.seedItem(t, "Speaker 8ohm", 6, 3.00, 1)

	order, _, err := env.repairService.CreateRepairOrder(CreateRepairOrderRequest{
		MachineID:        machine.ID,
		IssueDescription: "No sound",
	}, actorID)
	require.NoError(t, err)

	results, err := env.repairService.AllocateParts(order.ID, []PartUsageRequest{
		{ItemID: item.ID, QuantityUsed: 2},
	}, actorID)
	require.NoError(t, err)
	require.NoError(t, results[0].Err)

	// A later price change must not touch the recorded allocation.
	current := env.itemByID(t, item.ID)
	current.UnitPrice = 9.99
	require.NoError(t, env.inventoryRepo.UpdateItem(env.db, current))

	refetched, err := env.repairService.GetRepairOrderByID(order.ID)
	require.NoError(t, err)
	require.Len(t, refetched.Allocations, 1)
	assert.InDelta(t, 3.00, refetched.Allocations[0].UnitPriceAtTime, 1e-9)
	assert.InDelta(t, 6.00, refetched.Allocations[0].TotalCost, 1e-9)
}

func TestAllocatePartsRejectsNonPositiveQuantity(t *testing.T) {
	env := newTestEnv(t)
	actorID := env.seedUser(t, "pat")
	machine := env.seedMachine(t, "Zaxxon", 0.25)
	item := env.seedItem(t, "Capacitor kit", 5, 12.00, 1)

	order, _, err := env.repairService.CreateRepairOrder(CreateRepairOrderRequest{
		MachineID:        machine.ID,
		IssueDescription: "Dim monitor",
	}, actorID)
	require.NoError(t, err)

	results, err := env.repairService.AllocateParts(order.ID, []PartUsageRequest{
		{ItemID: item.ID, QuantityUsed: 0},
	}, actorID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, ErrInvalidQuantity)
}

func TestAllocatePartsOrderNotFound(t *testing.T) {
	env := newTestEnv(t)
	actorID := env.seedUser(t, "joy")

	_, err := env.repairService.AllocateParts(9999, []PartUsageRequest{
		{ItemID: 1, QuantityUsed: 1},
	}, actorID)
	assert.ErrorIs(t, err, ErrRepairOrderNotFound)
}

func TestUpdateRepairOrderStatusSetsDateFixed(t *testing.T) {
	env := newTestEnv(t)
	actorID := env.seedUser(t, "kim")
	machine := env.seedMachine(t, "Berzerk", 0.25)

	order, _, err := env.repairService.CreateRepairOrder(CreateRepairOrderRequest{
		MachineID:        machine.ID,
		IssueDescription: "Stuck coin door",
	}, actorID)
	require.NoError(t, err)
	assert.Nil(t, order.DateFixed)

	fixed, err := env.repairService.UpdateRepairOrderStatus(order.ID, RepairStatusFixed)
	require.NoError(t, err)
	assert.Equal(t, RepairStatusFixed, fixed.Status)
	assert.NotNil(t, fixed.DateFixed)

	_, err = env.repairService.UpdateRepairOrderStatus(order.ID, "melted")
	assert.ErrorIs(t, err, ErrInvalidRepairStatus)
}

func TestAddWorkLogBumpsOrderCost(t *testing.T) {
	env := newTestEnv(t)
	actorID := env.seedUser(t, "ada")
	machine := env.seedMachine(t, "Robotron", 0.25)

	order, _, err := env.repairService.CreateRepairOrder(CreateRepairOrderRequest{
		MachineID:        machine.ID,
		IssueDescription: "Dead joystick",
	}, actorID)
	require.NoError(t, err)

	hours := 1.5
	cost := 25.00
	workLog, err := env.repairService.AddWorkLog(order.ID, AddWorkLogRequest{
		WorkDescription: "Replaced leaf switches and cleaned contacts",
		TimeSpentHours:  &hours,
		CostIncurred:    &cost,
	}, actorID)
	require.NoError(t, err)
	assert.Equal(t, actorID, workLog.ActorID)

	refetched, err := env.repairService.GetRepairOrderByID(order.ID)
	require.NoError(t, err)
	assert.InDelta(t, 25.00, refetched.TotalCost, 1e-9)
	require.Len(t, refetched.WorkLogs, 1)
}

func TestAllocationTriggersLowStockAlert(t *testing.T) {
	env := newTestEnv(t)
	actorID := env.seedUser(t, "eli")
	machine := env.seedMachine(t, "Gorf", 0.25)
	item := env.seedItem(t, "Coin mech", 2, 18.00, 2)

	order, _, err := env.repairService.CreateRepairOrder(CreateRepairOrderRequest{
		MachineID:        machine.ID,
		IssueDescription: "Rejecting quarters",
	}, actorID)
	require.NoError(t, err)

	results, err := env.repairService.AllocateParts(order.ID, []PartUsageRequest{
		{ItemID: item.ID, QuantityUsed: 1},
	}, actorID)
	require.NoError(t, err)
	require.NoError(t, results[0].Err)

	unresolved := false
	alerts, _, err := env.alertService.GetAlerts(&unresolved, 1, 50)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, item.ID, alerts[0].ItemID)
}
