package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rl1809/stockdesk/internal/core/domain"
	"github.com/rl1809/stockdesk/internal/port"
)

// Authorize checks a transition against the state machine and the actor's
// role without touching the network. It returns the status the record would
// move to.
func Authorize(actor domain.SessionClaims, record domain.RequestRecord, action domain.Action) (domain.RequestStatus, error) {
	target, ok := action.Target()
	if !ok {
		return "", fmt.Errorf("%w: unknown action %q", domain.ErrInvalidTransition, action)
	}
	if record.Status != domain.RequestStatusPending {
		return "", fmt.Errorf("%w: request %d is %s", domain.ErrInvalidTransition, record.ID, record.Status)
	}

	switch action {
	case domain.ActionAccept, domain.ActionDecline:
		if !actor.IsAdmin() {
			return "", fmt.Errorf("%w: only an admin can %s a request", domain.ErrForbidden, action)
		}
	case domain.ActionCancel:
		if actor.Subject != record.UserID {
			return "", fmt.Errorf("%w: only the requester can cancel request %d", domain.ErrForbidden, record.ID)
		}
	}
	return target, nil
}

// LifecycleManager gates request transitions and remembers the outcome of
// every transition it has seen settle, so a settled request is never moved
// again through this manager.
type LifecycleManager struct {
	gateway port.RequestGateway
	logger  zerolog.Logger

	mu      sync.Mutex
	settled map[int64]domain.RequestStatus
}

func NewLifecycleManager(gateway port.RequestGateway, logger zerolog.Logger) *LifecycleManager {
	return &LifecycleManager{
		gateway: gateway,
		logger:  logger.With().Str("component", "lifecycle").Logger(),
		settled: make(map[int64]domain.RequestStatus),
	}
}

// Apply performs action on record for actor and returns the record in its new
// state. Quantity effects of an approval are left to the remote service.
//
// ErrInvalidTransition from the remote service is the expected result of
// losing a race with another admin and is not logged as a failure.
func (m *LifecycleManager) Apply(ctx context.Context, actor domain.SessionClaims, record domain.RequestRecord, action domain.Action) (domain.RequestRecord, error) {
	if status, ok := m.settledStatus(record.ID); ok {
		record.Status = status
	}

	target, err := Authorize(actor, record, action)
	if err != nil {
		return record, err
	}

	if action == domain.ActionCancel {
		err = m.gateway.DeleteRequest(ctx, record.ID)
	} else {
		err = m.gateway.TransitionRequest(ctx, record.ID, action)
	}

	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidTransition):
		m.logger.Info().Int64("request_id", record.ID).Str("action", string(action)).Msg("request already settled elsewhere")
		m.settle(record.ID, "")
		return record, err
	default:
		// The record is still pending and may be retried.
		return record, fmt.Errorf("%s request %d: %w", action, record.ID, err)
	}

	m.settle(record.ID, target)
	m.logger.Info().
		Int64("request_id", record.ID).
		Str("actor", actor.Subject).
		Str("status", string(target)).
		Msg("request transitioned")

	record.Status = target
	return record, nil
}

// Create submits a new pending request for a requester.
func (m *LifecycleManager) Create(ctx context.Context, actor domain.SessionClaims, draft domain.RequestDraft) (domain.RequestRecord, error) {
	if actor.IsAdmin() {
		return domain.RequestRecord{}, fmt.Errorf("%w: admins do not create requests", domain.ErrForbidden)
	}
	if draft.InventoryID <= 0 {
		return domain.RequestRecord{}, &domain.ValidationError{Field: "inventory_id", Reason: "select an item"}
	}
	if draft.Quantity <= 0 {
		return domain.RequestRecord{}, &domain.ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}

	rec, err := m.gateway.CreateRequest(ctx, draft)
	if err != nil {
		return domain.RequestRecord{}, fmt.Errorf("create request: %w", err)
	}
	return rec, nil
}

// settle records a terminal outcome. An empty status marks a request settled
// by someone else with an outcome this manager has not observed.
func (m *LifecycleManager) settle(id int64, status domain.RequestStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.settled[id]; ok {
		return
	}
	m.settled[id] = status
}

func (m *LifecycleManager) settledStatus(id int64) (domain.RequestStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.settled[id]
	if ok && status == "" {
		status = "settled"
	}
	return status, ok
}
