package services

import (
	"testing"

	"github.com/j-greybard/arcadetracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateItemSeedsLedger(t *testing.T) {
	env := newTestEnv(t)
	actorID := env.seedUser(t, "max")

	item, err := env.inventoryService.CreateItem(CreateItemRequest{
		Name:             "25 cent coin mech",
		InitialQuantity:  8,
		UnitPrice:        18.50,
		MinimumThreshold: 2,
	}, actorID)
	require.NoError(t, err)
	assert.Equal(t, 8, item.QuantityOnHand)

	detail, err := env.inventoryService.GetItemByID(item.ID)
	require.NoError(t, err)
	require.Len(t, detail.RecentHistory, 1)

	entry := detail.RecentHistory[0]
	assert.Equal(t, ChangeKindAdded, entry.ChangeKind)
	assert.Equal(t, 0, entry.PreviousQuantity)
	assert.Equal(t, 8, entry.NewQuantity)
	require.NotNil(t, entry.Reason)
	assert.Equal(t, "Initial stock", *entry.Reason)
	assert.Nil(t, detail.ActiveAlert)
}

func TestCreateItemAtThresholdOpensAlert(t *testing.T) {
	env := newTestEnv(t)
	actorID := env.seedUser(t, "zoe")

	item, err := env.inventoryService.CreateItem(CreateItemRequest{
		Name:             "T-molding strip",
		InitialQuantity:  2,
		MinimumThreshold: 3,
	}, actorID)
	require.NoError(t, err)

	detail, err := env.inventoryService.GetItemByID(item.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.ActiveAlert)
	assert.Equal(t, item.ID, detail.ActiveAlert.ItemID)
}

func TestCreateItemValidation(t *testing.T) {
	env := newTestEnv(t)
	actorID := env.seedUser(t, "bea")

	_, err := env.inventoryService.CreateItem(CreateItemRequest{}, actorID)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.inventoryService.CreateItem(CreateItemRequest{
		Name:            "Lock and key set",
		InitialQuantity: -2,
	}, actorID)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.inventoryService.CreateItem(CreateItemRequest{
		Name:      "Lock and key set",
		UnitPrice: -1,
	}, actorID)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateItemQuantityChangeIsAudited(t *testing.T) {
	env := newTestEnv(t)
	actorID := env.seedUser(t, "hal")
	item := env.seedItem(t, "Glass bezel", 6, 22.00, 2)

	target := 4
	updated, err := env.inventoryService.UpdateItem(item.ID, UpdateItemRequest{
		Name:             item.Name,
		QuantityOnHand:   &target,
		UnitPrice:        24.00,
		MinimumThreshold: 2,
	}, actorID)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.QuantityOnHand)
	assert.InDelta(t, 24.00, updated.UnitPrice, 1e-9)

	detail, err := env.inventoryService.GetItemByID(item.ID)
	require.NoError(t, err)
	require.Len(t, detail.RecentHistory, 1)

	entry := detail.RecentHistory[0]
	assert.Equal(t, ChangeKindAdjusted, entry.ChangeKind)
	assert.Equal(t, -2, entry.QuantityChange)
	require.NotNil(t, entry.Reason)
	assert.Equal(t, "Manual adjustment via edit", *entry.Reason)
}

func TestUpdateItemThresholdChangeReevaluatesAlert(t *testing.T) {
	env := newTestEnv(t)
	actorID := env.seedUser(t, "fay")
	item := env.seedItem(t, "Volume pot", 4, 1.75, 2)

	// Raising the threshold above the on-hand quantity opens an alert with
	// no stock movement at all.
	_, err := env.inventoryService.UpdateItem(item.ID, UpdateItemRequest{
		Name:             item.Name,
		UnitPrice:        item.UnitPrice,
		MinimumThreshold: 5,
	}, actorID)
	require.NoError(t, err)

	detail, err := env.inventoryService.GetItemByID(item.ID)
	require.NoError(t, err)
	assert.NotNil(t, detail.ActiveAlert)
}

func TestGetItemsReportsTotalValue(t *testing.T) {
	env := newTestEnv(t)
	env.seedItem(t, "Coin counter wheel", 4, 2.50, 1)
	env.seedItem(t, "Leg leveler", 10, 1.00, 2)

	items, total, totalValue, err := env.inventoryService.GetItems(models.InventoryFilters{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)
	assert.InDelta(t, 20.00, totalValue, 1e-9)
}

func TestDeleteItemRemovesHistoryAndAlerts(t *testing.T) {
	env := newTestEnv(t)
	actorID := env.seedUser(t, "ray")
	item := env.seedItem(t, "Start button", 1, 0.90, 2)

	// Generate a history entry and an alert before deleting.
	_, err := env.stockService.AdjustStock(StockChangeRequest{
		ItemID:     item.ID,
		ChangeKind: ChangeKindUsed,
		Quantity:   1,
		ActorID:    actorID,
	})
	require.NoError(t, err)

	require.NoError(t, env.inventoryService.DeleteItem(item.ID))

	_, err = env.inventoryService.GetItemByID(item.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)

	unresolved := false
	alerts, _, err := env.alertService.GetAlerts(&unresolved, 1, 50)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}
