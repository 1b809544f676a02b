package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/stockdesk/internal/core/domain"
)

func seededGateway() *fakeGateway {
	gw := newFakeGateway()
	gw.items = []domain.InventoryItem{
		{ID: 1, Name: "Pens", Quantity: 5},
		{ID: 2, Name: "Paper", Quantity: 15},
		{ID: 3, Name: "Tape", Quantity: 9},
		{ID: 4, Name: "Glue", Quantity: 0},
	}
	gw.addRequest(domain.RequestRecord{ID: 1, InventoryID: 1, Quantity: 1, Status: domain.RequestStatusPending, UserID: "bob"})
	gw.addRequest(domain.RequestRecord{ID: 2, InventoryID: 2, Quantity: 2, Status: domain.RequestStatusApproved, UserID: "carol"})
	gw.addRequest(domain.RequestRecord{ID: 3, InventoryID: 3, Quantity: 1, Status: domain.RequestStatusDeclined, UserID: "bob"})
	return gw
}

func TestFetchPlan(t *testing.T) {
	plan, err := FetchPlan(domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, []FetchStep{StepWelcome, StepInventory, StepPending, StepHistory, StepAvailable}, plan)

	plan, err = FetchPlan(domain.RoleRequester)
	require.NoError(t, err)
	assert.Equal(t, []FetchStep{StepWelcome, StepMine, StepAvailable}, plan)

	_, err = FetchPlan("guest")
	assert.Error(t, err)
}

func TestLoad_Admin(t *testing.T) {
	gw := seededGateway()
	d := NewDashboard(gw, zerolog.Nop())

	snap, err := d.Load(context.Background(), admin)
	require.NoError(t, err)

	assert.Empty(t, snap.Failures)
	assert.Equal(t, "Welcome admin", snap.Welcome)
	assert.Equal(t, domain.InventoryStats{Total: 4, LowStockCount: 3}, snap.InventoryStats)
	assert.Equal(t, domain.RequestStats{Pending: 1, Total: 3}, snap.RequestStats)
	assert.Len(t, snap.Available, 3)
	assert.Equal(t, []string{"Paper", "Tape", "Pens", "Glue"}, snap.TopQuantity.Categories())
	assert.Equal(t, 4, snap.StockStatus.Total())
	assert.Equal(t, 3, snap.RequestStatus.Total())
	assert.Zero(t, gw.callCount("mine"))
}

func TestLoad_Requester(t *testing.T) {
	gw := seededGateway()
	d := NewDashboard(gw, zerolog.Nop())

	snap, err := d.Load(context.Background(), requester)
	require.NoError(t, err)

	assert.Equal(t, domain.RequestStats{Pending: 1, Total: 2}, snap.RequestStats)
	assert.Len(t, snap.Requests, 2)
	assert.Zero(t, gw.callCount("inventory"))
	assert.Zero(t, gw.callCount("pending"))
	assert.Zero(t, gw.callCount("history"))
}

func TestLoad_PartialFailure(t *testing.T) {
	gw := seededGateway()
	gw.failures["inventory"] = domain.ErrServer
	gw.failures["welcome"] = domain.ErrForbidden
	d := NewDashboard(gw, zerolog.Nop())

	snap, err := d.Load(context.Background(), admin)
	require.NoError(t, err)

	assert.True(t, snap.Failed(StepInventory))
	assert.True(t, snap.Failed(StepWelcome))
	assert.False(t, snap.Failed(StepPending))
	assert.Equal(t, "Access denied", snap.Welcome)
	assert.Zero(t, snap.InventoryStats.Total)
	assert.Equal(t, domain.RequestStats{Pending: 1, Total: 3}, snap.RequestStats)
}

func TestLoad_Unauthorized(t *testing.T) {
	gw := seededGateway()
	gw.failures["pending"] = domain.ErrUnauthorized
	d := NewDashboard(gw, zerolog.Nop())

	_, err := d.Load(context.Background(), admin)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLoadRequests_HistoryDown(t *testing.T) {
	gw := seededGateway()
	gw.failures["history"] = domain.ErrServer
	d := NewDashboard(gw, zerolog.Nop())

	snap, err := d.LoadRequests(context.Background(), admin)
	require.NoError(t, err)

	assert.True(t, snap.Failed(StepHistory))
	require.Len(t, snap.Requests, 1)
	assert.Equal(t, int64(1), snap.Requests[0].ID)
	assert.Equal(t, domain.RequestStats{Pending: 1, Total: 1}, snap.RequestStats)
	assert.Zero(t, gw.callCount("inventory"))
	assert.Zero(t, gw.callCount("welcome"))
}

func TestLoadRequests_AllStepsDown(t *testing.T) {
	gw := seededGateway()
	gw.failures["pending"] = domain.ErrTransport
	gw.failures["history"] = domain.ErrServer
	d := NewDashboard(gw, zerolog.Nop())

	_, err := d.LoadRequests(context.Background(), admin)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.ErrorIs(t, err, domain.ErrServer)

	gw = seededGateway()
	gw.failures["mine"] = domain.ErrServer
	_, err = NewDashboard(gw, zerolog.Nop()).LoadRequests(context.Background(), requester)
	assert.ErrorIs(t, err, domain.ErrServer)
}

func TestLoadRequests_Requester(t *testing.T) {
	gw := seededGateway()
	snap, err := NewDashboard(gw, zerolog.Nop()).LoadRequests(context.Background(), requester)
	require.NoError(t, err)

	assert.Len(t, snap.Requests, 2)
	assert.Zero(t, gw.callCount("pending"))
	assert.Zero(t, gw.callCount("available"))
}

func TestLoad_UnknownStatusIgnored(t *testing.T) {
	gw := seededGateway()
	gw.addRequest(domain.RequestRecord{ID: 10, Status: "on_hold", UserID: "bob"})
	d := NewDashboard(gw, zerolog.Nop())

	snap, err := d.Load(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.RequestStatus.Ignored)
	assert.Equal(t, 4, snap.RequestStats.Total)
}

func TestView_RefreshAndClose(t *testing.T) {
	gw := seededGateway()
	v := NewView(context.Background(), NewDashboard(gw, zerolog.Nop()), admin)

	_, ok := v.Snapshot()
	assert.False(t, ok)

	snap, err := v.Refresh()
	require.NoError(t, err)
	assert.False(t, v.Loading())

	stored, ok := v.Snapshot()
	require.True(t, ok)
	assert.Equal(t, snap.InventoryStats, stored.InventoryStats)

	v.Close()
	_, err = v.Refresh()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestView_CloseDuringFetch(t *testing.T) {
	gw := seededGateway()
	gw.block = make(chan struct{})
	v := NewView(context.Background(), NewDashboard(gw, zerolog.Nop()), admin)

	done := make(chan error, 1)
	go func() {
		_, err := v.Refresh()
		done <- err
	}()

	require.Eventually(t, v.Loading, time.Second, 5*time.Millisecond)
	v.Close()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not return after close")
	}

	assert.False(t, v.Loading())
	_, ok := v.Snapshot()
	assert.False(t, ok)
}
