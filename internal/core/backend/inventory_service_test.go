package backend_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/stockdesk/internal/core/backend"
	"github.com/rl1809/stockdesk/internal/core/domain"
)

func TestInventoryCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.item(t, "Pens", 20)

	_, err := f.inventory.Create(ctx, admin, domain.InventoryDraft{Name: "Pens", Quantity: 1})
	requireRejection(t, err, domain.ErrValidation, backend.MsgItemExists)

	_, err = f.inventory.Create(ctx, bob, domain.InventoryDraft{Name: "Tape", Quantity: 1})
	requireRejection(t, err, domain.ErrForbidden, backend.MsgAdminOnly)

	_, err = f.inventory.Create(ctx, admin, domain.InventoryDraft{Name: "Tape", Quantity: -1})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestInventoryUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pens := f.item(t, "Pens", 20)
	f.item(t, "Tape", 3)

	qty := 7
	updated, err := f.inventory.Update(ctx, admin, pens.ID, domain.InventoryPatch{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Quantity)
	assert.Equal(t, "Pens", updated.Name)

	taken := "Tape"
	_, err = f.inventory.Update(ctx, admin, pens.ID, domain.InventoryPatch{Name: &taken})
	requireRejection(t, err, domain.ErrValidation, backend.MsgItemNameTaken)

	same := "Pens"
	_, err = f.inventory.Update(ctx, admin, pens.ID, domain.InventoryPatch{Name: &same})
	require.NoError(t, err)

	padded := "  Markers "
	updated, err = f.inventory.Update(ctx, admin, pens.ID, domain.InventoryPatch{Name: &padded})
	require.NoError(t, err)
	assert.Equal(t, "Markers", updated.Name)

	blank := "   "
	_, err = f.inventory.Update(ctx, admin, pens.ID, domain.InventoryPatch{Name: &blank})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.inventory.Update(ctx, admin, 999, domain.InventoryPatch{Quantity: &qty})
	requireRejection(t, err, domain.ErrNotFound, backend.MsgItemNotFound)
}

func TestInventoryDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	unused := f.item(t, "Unused", 5)
	msg, err := f.inventory.Delete(ctx, admin, unused.ID)
	require.NoError(t, err)
	assert.Equal(t, "Item deleted successfully", msg)

	busy := f.item(t, "Busy", 5)
	rec := f.request(t, bob, busy.ID, 1)
	_, err = f.inventory.Delete(ctx, admin, busy.ID)
	requireRejection(t, err, domain.ErrConflict, backend.MsgItemHasPending)

	_, err = f.requests.Transition(ctx, admin, rec.ID, domain.ActionDecline)
	require.NoError(t, err)
	msg, err = f.inventory.Delete(ctx, admin, busy.ID)
	require.NoError(t, err)
	assert.Equal(t, "Item set to deleted", msg)

	items, err := f.inventory.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	// History keeps the name of the hidden item.
	history, err := f.requests.History(ctx, admin)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Busy", history[0].Inventory.Name)

	_, err = f.inventory.Delete(ctx, admin, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInventoryBulkImport(t *testing.T) {
	f := newFixture(t)
	f.item(t, "Pens", 1)

	result, err := f.inventory.BulkImport(context.Background(), admin, []domain.ImportCandidate{
		{Name: "Tape", Quantity: 4},
		{Name: "Pens", Quantity: 2},
		{Name: "", Quantity: 1},
		{Name: "Glue", Quantity: 0, Description: "stick"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessfulImports)
	assert.Equal(t, 2, result.FailedImports)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, backend.MsgItemExists, result.Failures[0].Reason)
	assert.Equal(t, "Import complete. 2 items imported successfully, 2 failed.", result.Message)

	require.Eventually(t, func() bool {
		types := f.published.types()
		return len(types) == 1 && types[0] == domain.EventInventoryImported
	}, eventWait, eventTick)

	_, err = f.inventory.BulkImport(context.Background(), bob, nil)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestInventoryExportCSV(t *testing.T) {
	f := newFixture(t)
	f.item(t, "Pens", 20)
	_, err := f.inventory.Create(context.Background(), admin, domain.InventoryDraft{Name: "Tape, wide", Quantity: 3, Description: "clear"})
	require.NoError(t, err)

	out, err := f.inventory.ExportCSV(context.Background())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,name,quantity,description", lines[0])
	assert.Equal(t, "1,Pens,20,", lines[1])
	assert.Equal(t, `2,"Tape, wide",3,clear`, lines[2])
}

func TestAvailable(t *testing.T) {
	f := newFixture(t)
	f.item(t, "Pens", 20)
	f.item(t, "Empty", 0)

	items, err := f.inventory.Available(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Pens", items[0].Name)
}
