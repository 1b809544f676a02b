package backend_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/stockdesk/internal/core/backend"
	"github.com/rl1809/stockdesk/internal/core/domain"
)

const (
	eventWait = time.Second
	eventTick = 5 * time.Millisecond
)

func TestRequestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pens := f.item(t, "Pens", 20)

	_, err := f.requests.Create(ctx, admin, domain.RequestDraft{InventoryID: pens.ID, Quantity: 1})
	requireRejection(t, err, domain.ErrForbidden, backend.MsgUserOnly)

	_, err = f.requests.Create(ctx, bob, domain.RequestDraft{InventoryID: pens.ID, Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.requests.Create(ctx, bob, domain.RequestDraft{InventoryID: 999, Quantity: 1})
	requireRejection(t, err, domain.ErrNotFound, backend.MsgItemNotFound)

	rec := f.request(t, bob, pens.ID, 2)
	assert.Equal(t, "bob", rec.UserID)
	assert.Equal(t, "Pens", rec.Inventory.Name)

	mine, err := f.requests.Mine(ctx, bob)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	mine, err = f.requests.Mine(ctx, carol)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestRequestTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pens := f.item(t, "Pens", 20)
	rec := f.request(t, bob, pens.ID, 5)

	_, err := f.requests.Transition(ctx, bob, rec.ID, domain.ActionAccept)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	accepted, err := f.requests.Transition(ctx, admin, rec.ID, domain.ActionAccept)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusApproved, accepted.Status)

	items, err := f.inventory.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 15, items[0].Quantity)

	_, err = f.requests.Transition(ctx, admin, rec.ID, domain.ActionAccept)
	requireRejection(t, err, domain.ErrInvalidTransition, backend.MsgRequestProcessed)

	_, err = f.requests.Transition(ctx, admin, rec.ID, domain.ActionDecline)
	requireRejection(t, err, domain.ErrInvalidTransition, backend.MsgRequestProcessed)

	_, err = f.requests.Transition(ctx, admin, 999, domain.ActionDecline)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	pending, err := f.requests.Pending(ctx, admin)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.Eventually(t, func() bool {
		types := f.published.types()
		return len(types) == 1 && types[0] == domain.EventRequestAccepted
	}, eventWait, eventTick)
}

func TestRequestTransition_InsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tape := f.item(t, "Tape", 2)
	rec := f.request(t, bob, tape.ID, 3)

	_, err := f.requests.Transition(ctx, admin, rec.ID, domain.ActionAccept)
	requireRejection(t, err, domain.ErrInsufficientStock, backend.MsgInsufficientStock)

	declined, err := f.requests.Transition(ctx, admin, rec.ID, domain.ActionDecline)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusDeclined, declined.Status)
}

func TestRequestTransition_Race(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pens := f.item(t, "Pens", 100)
	rec := f.request(t, bob, pens.ID, 1)

	const admins = 16
	var wins, refused atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < admins; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			action := domain.ActionAccept
			if i%2 == 0 {
				action = domain.ActionDecline
			}
			_, err := f.requests.Transition(ctx, admin, rec.ID, action)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, domain.ErrInvalidTransition):
				refused.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(admins-1), refused.Load())
}

func TestRequestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pens := f.item(t, "Pens", 20)

	rec := f.request(t, bob, pens.ID, 1)
	err := f.requests.Delete(ctx, carol, rec.ID)
	requireRejection(t, err, domain.ErrForbidden, backend.MsgNotOwner)

	require.NoError(t, f.requests.Delete(ctx, bob, rec.ID))
	err = f.requests.Delete(ctx, bob, rec.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	done := f.request(t, bob, pens.ID, 1)
	_, err = f.requests.Transition(ctx, admin, done.ID, domain.ActionAccept)
	require.NoError(t, err)
	err = f.requests.Delete(ctx, bob, done.ID)
	requireRejection(t, err, domain.ErrInvalidTransition, backend.MsgOnlyPendingDelete)

	require.Eventually(t, func() bool {
		return len(f.published.types()) == 2
	}, eventWait, eventTick)
	assert.ElementsMatch(t, []domain.EventType{domain.EventRequestCancelled, domain.EventRequestAccepted}, f.published.types())
}

func TestRequestListsAreAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.requests.Pending(ctx, bob)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.requests.History(ctx, bob)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
