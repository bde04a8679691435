package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevenueReportAggregatesCountedMachines(t *testing.T) {
	env := newTestEnv(t)
	counted := env.seedMachine(t, "Galaxian", 0.25)
	alsoCounted := env.seedMachine(t, "Xevious", 0.50)

	// A warehouse machine never contributes, even if readings exist for it.
	stored, err := env.machineService.CreateMachine(CreateMachineRequest{
		Name:     "Crated Machine",
		Location: LocationWarehouse,
	})
	require.NoError(t, err)
	_, err = env.db.Exec(
		`INSERT INTO meter_readings (machine_id, cumulative_count, plays_delta, revenue_delta, recorded_date, created_at)
		 VALUES ($1, 500, 500, 125.0, $2, $3)`,
		stored.ID, time.Now(), time.Now())
	require.NoError(t, err)

	_, err = env.meterService.RecordReading(RecordReadingRequest{
		MachineID:       counted.ID,
		CumulativeCount: 40,
	})
	require.NoError(t, err)
	_, err = env.meterService.RecordReading(RecordReadingRequest{
		MachineID:       alsoCounted.ID,
		CumulativeCount: 10,
	})
	require.NoError(t, err)

	report, err := env.reportService.RevenueReport(30)
	require.NoError(t, err)

	assert.Equal(t, int64(50), report.TotalPlays)
	assert.InDelta(t, 15.00, report.TotalRevenue, 1e-9)

	require.Len(t, report.TopMachines, 2)
	// Sorted by revenue descending.
	assert.Equal(t, "Galaxian", report.TopMachines[0].MachineName)
	assert.InDelta(t, 10.00, report.TopMachines[0].Revenue, 1e-9)
	assert.Equal(t, "Xevious", report.TopMachines[1].MachineName)

	require.Len(t, report.Daily, 1)
	assert.Equal(t, int64(50), report.Daily[0].Plays)
}

func TestRevenueReportIgnoresBaselines(t *testing.T) {
	env := newTestEnv(t)
	machine := env.seedMachine(t, "Scramble", 0.25)

	_, err := env.meterService.SetBaseline(machine.ID, 10000, time.Now())
	require.NoError(t, err)

	report, err := env.reportService.RevenueReport(7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), report.TotalPlays)
	assert.InDelta(t, 0, report.TotalRevenue, 1e-9)
}

func TestRepairCostReportAggregatesByMachine(t *testing.T) {
	env := newTestEnv(t)
	actorID := env.seedUser(t, "quinn")
	machineA := env.seedMachine(t, "Phoenix", 0.25)
	machineB := env.seedMachine(t, "Moon Patrol", 0.25)

	orderA1, _, err := env.repairService.CreateRepairOrder(CreateRepairOrderRequest{
		MachineID:        machineA.ID,
		IssueDescription: "Coin jam",
	}, actorID)
	require.NoError(t, err)

	cost := 40.00
	_, err = env.repairService.AddWorkLog(orderA1.ID, AddWorkLogRequest{
		WorkDescription: "Cleared jam and lubricated mech",
		CostIncurred:    &cost,
	}, actorID)
	require.NoError(t, err)

	_, err = env.repairService.UpdateRepairOrderStatus(orderA1.ID, RepairStatusFixed)
	require.NoError(t, err)

	initial := 15.00
	_, _, err = env.repairService.CreateRepairOrder(CreateRepairOrderRequest{
		MachineID:        machineB.ID,
		IssueDescription: "Burned resistor",
		InitialCost:      &initial,
	}, actorID)
	require.NoError(t, err)

	report, err := env.reportService.RepairCostReport(30)
	require.NoError(t, err)

	assert.Equal(t, 2, report.OrderCount)
	assert.Equal(t, 1, report.FixedCount)
	assert.Equal(t, 1, report.OpenCount)
	assert.InDelta(t, 55.00, report.TotalCost, 1e-9)

	require.Len(t, report.ByMachine, 2)
	assert.Equal(t, "Phoenix", report.ByMachine[0].MachineName)
	assert.InDelta(t, 40.00, report.ByMachine[0].TotalCost, 1e-9)
}
