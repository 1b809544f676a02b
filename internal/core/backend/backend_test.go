package backend_test

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/stockdesk/internal/adapter/storage"
	"github.com/rl1809/stockdesk/internal/core/backend"
	"github.com/rl1809/stockdesk/internal/core/domain"
)

var (
	admin = domain.SessionClaims{Subject: "alice", Role: domain.RoleAdmin}
	bob   = domain.SessionClaims{Subject: "bob", Role: domain.RoleRequester}
	carol = domain.SessionClaims{Subject: "carol", Role: domain.RoleRequester}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store     *storage.SQLStore
	events    *backend.EventDispatcher
	published *recordingPublisher
	inventory *backend.InventoryService
	requests  *backend.RequestService
	auth      *backend.AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	pub := &recordingPublisher{}
	events := backend.NewEventDispatcher(pub, 64, zerolog.Nop())
	events.Start(2)
	t.Cleanup(func() {
		events.Close()
		store.Close()
	})

	return &fixture{
		store:     store,
		events:    events,
		published: pub,
		inventory: backend.NewInventoryService(store, store, events, zerolog.Nop()),
		requests:  backend.NewRequestService(store, store, events, zerolog.Nop()),
		auth:      backend.NewAuthService(store, "test-secret", 0, zerolog.Nop()),
	}
}

func (f *fixture) item(t *testing.T, name string, qty int) domain.InventoryItem {
	t.Helper()
	item, err := f.inventory.Create(context.Background(), admin, domain.InventoryDraft{Name: name, Quantity: qty})
	require.NoError(t, err)
	return item
}

func (f *fixture) request(t *testing.T, actor domain.SessionClaims, itemID int64, qty int) domain.RequestRecord {
	t.Helper()
	rec, err := f.requests.Create(context.Background(), actor, domain.RequestDraft{InventoryID: itemID, Quantity: qty})
	require.NoError(t, err)
	return rec
}

func requireRejection(t *testing.T, err error, kind error, detail string) {
	t.Helper()
	require.ErrorIs(t, err, kind)
	var r *backend.Rejection
	require.ErrorAs(t, err, &r)
	require.Equal(t, detail, r.Detail)
}
