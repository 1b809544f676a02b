package service

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rl1809/stockdesk/internal/core/domain"
)

// fakeGateway keeps canonical records in memory and settles transitions the
// way the remote service does.
type fakeGateway struct {
	mu sync.Mutex

	items    []domain.InventoryItem
	requests map[int64]domain.RequestRecord
	order    []int64

	failures map[string]error
	calls    map[string]int
	imported []domain.ImportCandidate
	result   domain.ImportResult
	block    chan struct{}
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		requests: make(map[int64]domain.RequestRecord),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (f *fakeGateway) addRequest(rec domain.RequestRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[rec.ID] = rec
	f.order = append(f.order, rec.ID)
}

func (f *fakeGateway) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	err := f.failures[op]
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeGateway) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeGateway) filter(keep func(domain.RequestRecord) bool) []domain.RequestRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.RequestRecord
	for _, id := range f.order {
		if rec, ok := f.requests[id]; ok && keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func (f *fakeGateway) ListInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	if err := f.enter(ctx, "inventory"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.InventoryItem(nil), f.items...), nil
}

func (f *fakeGateway) CreateInventory(ctx context.Context, draft domain.InventoryDraft) (domain.InventoryItem, error) {
	if err := f.enter(ctx, "create_inventory"); err != nil {
		return domain.InventoryItem{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	item := domain.InventoryItem{ID: int64(len(f.items) + 1), Name: draft.Name, Quantity: draft.Quantity, Description: draft.Description}
	f.items = append(f.items, item)
	return item, nil
}

func (f *fakeGateway) UpdateInventory(ctx context.Context, id int64, patch domain.InventoryPatch) (domain.InventoryItem, error) {
	if err := f.enter(ctx, "update_inventory"); err != nil {
		return domain.InventoryItem{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, item := range f.items {
		if item.ID == id {
			f.items[i] = patch.Apply(item)
			return f.items[i], nil
		}
	}
	return domain.InventoryItem{}, domain.ErrNotFound
}

func (f *fakeGateway) DeleteInventory(ctx context.Context, id int64) error {
	return f.enter(ctx, "delete_inventory")
}

func (f *fakeGateway) BulkImport(ctx context.Context, candidates []domain.ImportCandidate) (domain.ImportResult, error) {
	if err := f.enter(ctx, "bulk_import"); err != nil {
		return domain.ImportResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imported = append(f.imported, candidates...)
	return f.result, nil
}

func (f *fakeGateway) ExportCSV(ctx context.Context) ([]byte, error) {
	if err := f.enter(ctx, "export_csv"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	items := append([]domain.InventoryItem(nil), f.items...)
	f.mu.Unlock()
	return EncodeTabular(items)
}

func (f *fakeGateway) ExportJSON(ctx context.Context) ([]domain.InventoryItem, error) {
	if err := f.enter(ctx, "export_json"); err != nil {
		return nil, err
	}
	return f.ListInventory(ctx)
}

func (f *fakeGateway) ListPending(ctx context.Context) ([]domain.RequestRecord, error) {
	if err := f.enter(ctx, "pending"); err != nil {
		return nil, err
	}
	return f.filter(func(r domain.RequestRecord) bool { return r.Status == domain.RequestStatusPending }), nil
}

func (f *fakeGateway) ListHistory(ctx context.Context) ([]domain.RequestRecord, error) {
	if err := f.enter(ctx, "history"); err != nil {
		return nil, err
	}
	return f.filter(func(r domain.RequestRecord) bool { return r.Status != domain.RequestStatusPending }), nil
}

func (f *fakeGateway) ListMine(ctx context.Context) ([]domain.RequestRecord, error) {
	if err := f.enter(ctx, "mine"); err != nil {
		return nil, err
	}
	return f.filter(func(r domain.RequestRecord) bool { return r.UserID == "bob" }), nil
}

func (f *fakeGateway) ListAvailable(ctx context.Context) ([]domain.InventoryItem, error) {
	if err := f.enter(ctx, "available"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.InventoryItem
	for _, item := range f.items {
		if item.Quantity > 0 {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeGateway) CreateRequest(ctx context.Context, draft domain.RequestDraft) (domain.RequestRecord, error) {
	if err := f.enter(ctx, "create_request"); err != nil {
		return domain.RequestRecord{}, err
	}
	rec := domain.RequestRecord{
		ID:          int64(len(f.order) + 1),
		InventoryID: draft.InventoryID,
		Quantity:    draft.Quantity,
		Status:      domain.RequestStatusPending,
		UserID:      "bob",
	}
	f.addRequest(rec)
	return rec, nil
}

func (f *fakeGateway) DeleteRequest(ctx context.Context, id int64) error {
	if err := f.enter(ctx, "delete_request"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.requests[id]
	if !ok {
		return domain.ErrNotFound
	}
	if rec.Status != domain.RequestStatusPending {
		return domain.ErrInvalidTransition
	}
	delete(f.requests, id)
	return nil
}

func (f *fakeGateway) TransitionRequest(ctx context.Context, id int64, action domain.Action) error {
	if err := f.enter(ctx, "transition"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.requests[id]
	if !ok {
		return domain.ErrNotFound
	}
	if rec.Status != domain.RequestStatusPending {
		return domain.ErrInvalidTransition
	}
	target, _ := action.Target()
	rec.Status = target
	f.requests[id] = rec
	return nil
}

func (f *fakeGateway) Login(ctx context.Context, username, password string) (string, error) {
	return "", f.enter(ctx, "login")
}

func (f *fakeGateway) Register(ctx context.Context, reg domain.Registration) error {
	return f.enter(ctx, "register")
}

func (f *fakeGateway) Welcome(ctx context.Context, role domain.Role) (string, error) {
	if err := f.enter(ctx, "welcome"); err != nil {
		return "", err
	}
	return "Welcome " + string(role), nil
}

func signedToken(subject string, role domain.Role, issuedAt time.Time, ttl time.Duration) string {
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": string(role),
		"iat":  issuedAt.Unix(),
	}
	if ttl > 0 {
		claims["exp"] = issuedAt.Add(ttl).Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		panic(err)
	}
	return token
}

var (
	admin     = domain.SessionClaims{Subject: "alice", Role: domain.RoleAdmin}
	requester = domain.SessionClaims{Subject: "bob", Role: domain.RoleRequester}
)
