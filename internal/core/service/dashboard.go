package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/stockdesk/internal/core/domain"
	"github.com/rl1809/stockdesk/internal/port"
)

type FetchStep string

const (
	StepWelcome   FetchStep = "welcome"
	StepInventory FetchStep = "inventory"
	StepPending   FetchStep = "pending"
	StepHistory   FetchStep = "history"
	StepMine      FetchStep = "mine"
	StepAvailable FetchStep = "available"
)

const accessDenied = "Access denied"

var fetchPlans = map[domain.Role][]FetchStep{
	domain.RoleAdmin:     {StepWelcome, StepInventory, StepPending, StepHistory, StepAvailable},
	domain.RoleRequester: {StepWelcome, StepMine, StepAvailable},
}

// requestPlans are the steps that make up a role's request set.
var requestPlans = map[domain.Role][]FetchStep{
	domain.RoleAdmin:     {StepPending, StepHistory},
	domain.RoleRequester: {StepMine},
}

// FetchPlan lists the gateway calls that populate a view for role.
func FetchPlan(role domain.Role) ([]FetchStep, error) {
	return lookupPlan(fetchPlans, role)
}

func lookupPlan(plans map[domain.Role][]FetchStep, role domain.Role) ([]FetchStep, error) {
	plan, ok := plans[role]
	if !ok {
		return nil, fmt.Errorf("no fetch plan for role %q", role)
	}
	return append([]FetchStep(nil), plan...), nil
}

// Snapshot is the settled result of one fetch cycle. Every slice is owned by
// the snapshot; derived values are computed once all steps have settled.
type Snapshot struct {
	Role      domain.Role
	Welcome   string
	Inventory []domain.InventoryItem
	Available []domain.InventoryItem
	Pending   []domain.RequestRecord
	History   []domain.RequestRecord
	Mine      []domain.RequestRecord

	// Requests is the role's request set: pending and history merged by id for
	// an admin, the requester's own records otherwise.
	Requests []domain.RequestRecord

	InventoryStats domain.InventoryStats
	RequestStats   domain.RequestStats
	StockStatus    domain.Series
	TopQuantity    domain.Series
	RequestStatus  domain.Series

	Failures map[FetchStep]error
}

func (s Snapshot) Failed(step FetchStep) bool {
	_, ok := s.Failures[step]
	return ok
}

// Dashboard runs a role's fetch plan and derives statistics and chart series.
type Dashboard struct {
	gateway port.Gateway
	logger  zerolog.Logger
	topN    int
}

func NewDashboard(gateway port.Gateway, logger zerolog.Logger) *Dashboard {
	return &Dashboard{
		gateway: gateway,
		logger:  logger.With().Str("component", "dashboard").Logger(),
		topN:    DefaultTopN,
	}
}

// Load issues every step of the role's plan concurrently. A failed step is
// recorded in Snapshot.Failures and does not affect the other steps. Load
// returns an error only when ctx ends or the session was rejected.
func (d *Dashboard) Load(ctx context.Context, claims domain.SessionClaims) (Snapshot, error) {
	plan, err := FetchPlan(claims.Role)
	if err != nil {
		return Snapshot{}, err
	}
	return d.load(ctx, claims, plan)
}

// LoadRequests fetches only the role's request set: pending and history for
// an admin, the requester's own records otherwise. Whatever arrived is merged
// into Snapshot.Requests and failed steps are listed in Snapshot.Failures. It
// fails only when every step failed, ctx ended or the session was rejected.
func (d *Dashboard) LoadRequests(ctx context.Context, claims domain.SessionClaims) (Snapshot, error) {
	plan, err := lookupPlan(requestPlans, claims.Role)
	if err != nil {
		return Snapshot{}, err
	}
	snap, err := d.load(ctx, claims, plan)
	if err != nil {
		return Snapshot{}, err
	}
	if len(snap.Failures) == len(plan) {
		errs := make([]error, 0, len(plan))
		for _, step := range plan {
			errs = append(errs, snap.Failures[step])
		}
		return Snapshot{}, errors.Join(errs...)
	}
	return snap, nil
}

func (d *Dashboard) load(ctx context.Context, claims domain.SessionClaims, plan []FetchStep) (Snapshot, error) {
	snap := Snapshot{Role: claims.Role, Failures: make(map[FetchStep]error)}
	var mu sync.Mutex
	fail := func(step FetchStep, err error) {
		mu.Lock()
		defer mu.Unlock()
		snap.Failures[step] = err
	}

	var g errgroup.Group
	for _, step := range plan {
		g.Go(func() error {
			if err := d.run(ctx, step, claims, &snap); err != nil {
				d.logger.Warn().Err(err).Str("step", string(step)).Msg("fetch step failed")
				fail(step, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	for _, err := range snap.Failures {
		if errors.Is(err, domain.ErrUnauthorized) {
			return Snapshot{}, err
		}
	}

	d.finalize(&snap)
	return snap, nil
}

// run executes one step. Each step writes a distinct field of snap.
func (d *Dashboard) run(ctx context.Context, step FetchStep, claims domain.SessionClaims, snap *Snapshot) error {
	var err error
	switch step {
	case StepWelcome:
		snap.Welcome, err = d.gateway.Welcome(ctx, claims.Role)
		if err != nil {
			snap.Welcome = accessDenied
		}
	case StepInventory:
		snap.Inventory, err = d.gateway.ListInventory(ctx)
	case StepPending:
		snap.Pending, err = d.gateway.ListPending(ctx)
	case StepHistory:
		snap.History, err = d.gateway.ListHistory(ctx)
	case StepMine:
		snap.Mine, err = d.gateway.ListMine(ctx)
	case StepAvailable:
		snap.Available, err = d.gateway.ListAvailable(ctx)
	default:
		err = fmt.Errorf("unknown fetch step %q", step)
	}
	return err
}

func (d *Dashboard) finalize(snap *Snapshot) {
	if snap.Role == domain.RoleAdmin {
		snap.Requests = UnionByID(snap.Pending, snap.History)
		snap.InventoryStats = ComputeInventoryStats(snap.Inventory)
		snap.StockStatus = StockStatusSeries(snap.Inventory)
		snap.TopQuantity = TopQuantitySeries(snap.Inventory, d.topN)
	} else {
		snap.Requests = UnionByID(snap.Mine)
	}
	snap.RequestStats = ComputeRequestStats(snap.Requests, nil)
	snap.RequestStatus = RequestStatusSeries(snap.Requests)

	if snap.RequestStatus.Ignored > 0 {
		d.logger.Warn().Int("records", snap.RequestStatus.Ignored).Msg("requests with unknown status left out of status chart")
	}
}

// View holds the snapshot shown by one screen. Closing the view cancels any
// fetch in flight and no result is applied afterwards.
type View struct {
	dashboard *Dashboard
	claims    domain.SessionClaims
	ctx       context.Context
	cancel    context.CancelFunc

	mu         sync.Mutex
	loading    bool
	closed     bool
	generation uint64
	snapshot   *Snapshot
}

func NewView(parent context.Context, dashboard *Dashboard, claims domain.SessionClaims) *View {
	ctx, cancel := context.WithCancel(parent)
	return &View{
		dashboard: dashboard,
		claims:    claims,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Refresh runs a fetch cycle. Only the most recent cycle's result is applied
// and the loading flag is cleared once that cycle has fully settled.
func (v *View) Refresh() (Snapshot, error) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return Snapshot{}, context.Canceled
	}
	v.generation++
	gen := v.generation
	v.loading = true
	v.mu.Unlock()

	snap, err := v.dashboard.Load(v.ctx, v.claims)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return Snapshot{}, context.Canceled
	}
	if gen != v.generation {
		return snap, err
	}
	v.loading = false
	if err != nil {
		return Snapshot{}, err
	}
	v.snapshot = &snap
	return snap, nil
}

func (v *View) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading
}

func (v *View) Snapshot() (Snapshot, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.snapshot == nil {
		return Snapshot{}, false
	}
	return *v.snapshot, true
}

func (v *View) Close() {
	v.mu.Lock()
	v.closed = true
	v.loading = false
	v.mu.Unlock()
	v.cancel()
}
