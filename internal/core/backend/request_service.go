package backend

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/rl1809/stockdesk/internal/core/domain"
	"github.com/rl1809/stockdesk/internal/port"
)

type RequestService struct {
	requests port.RequestRepository
	items    port.InventoryRepository
	events   *EventDispatcher
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewRequestService(requests port.RequestRepository, items port.InventoryRepository, events *EventDispatcher, logger zerolog.Logger) *RequestService {
	return &RequestService{
		requests: requests,
		items:    items,
		events:   events,
		validate: validator.New(),
		logger:   logger.With().Str("component", "requests").Logger(),
	}
}

func (s *RequestService) Create(ctx context.Context, actor domain.SessionClaims, draft domain.RequestDraft) (domain.RequestRecord, error) {
	if actor.Role != domain.RoleRequester {
		return domain.RequestRecord{}, reject(domain.ErrForbidden, MsgUserOnly)
	}
	if err := s.validate.Struct(draft); err != nil {
		return domain.RequestRecord{}, reject(domain.ErrValidation, describeValidation(err))
	}

	item, err := s.items.GetItem(ctx, draft.InventoryID)
	if err != nil {
		return domain.RequestRecord{}, err
	}
	if item == nil {
		return domain.RequestRecord{}, reject(domain.ErrNotFound, MsgItemNotFound)
	}
	return s.requests.CreateRequest(ctx, actor.Subject, draft)
}

func (s *RequestService) Mine(ctx context.Context, actor domain.SessionClaims) ([]domain.RequestRecord, error) {
	return s.requests.ListRequests(ctx, port.RequestFilter{UserID: actor.Subject})
}

func (s *RequestService) Pending(ctx context.Context, actor domain.SessionClaims) ([]domain.RequestRecord, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.requests.ListRequests(ctx, port.RequestFilter{Status: domain.RequestStatusPending})
}

func (s *RequestService) History(ctx context.Context, actor domain.SessionClaims) ([]domain.RequestRecord, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.requests.ListRequests(ctx, port.RequestFilter{NotPending: true})
}

// Delete withdraws the actor's own pending request.
func (s *RequestService) Delete(ctx context.Context, actor domain.SessionClaims, id int64) error {
	rec, err := s.requests.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return reject(domain.ErrNotFound, MsgRequestNotFound)
	}
	if rec.UserID != actor.Subject {
		return reject(domain.ErrForbidden, MsgNotOwner)
	}
	if rec.Status != domain.RequestStatusPending {
		return reject(domain.ErrInvalidTransition, MsgOnlyPendingDelete)
	}

	ok, err := s.requests.DeletePending(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return reject(domain.ErrInvalidTransition, MsgOnlyPendingDelete)
	}
	s.emit(domain.EventRequestCancelled, actor, id)
	return nil
}

// Transition accepts or declines a pending request. Of several concurrent
// transitions on one request exactly one succeeds; the rest are refused with
// ErrInvalidTransition.
func (s *RequestService) Transition(ctx context.Context, actor domain.SessionClaims, id int64, action domain.Action) (domain.RequestRecord, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.RequestRecord{}, err
	}
	target, ok := action.Target()
	if !ok || action == domain.ActionCancel {
		return domain.RequestRecord{}, reject(domain.ErrValidation, "unsupported action")
	}

	rec, err := s.requests.GetRequest(ctx, id)
	if err != nil {
		return domain.RequestRecord{}, err
	}
	if rec == nil {
		return domain.RequestRecord{}, reject(domain.ErrNotFound, MsgRequestNotFound)
	}

	moved, err := s.requests.TransitionPending(ctx, id, target)
	if errors.Is(err, domain.ErrInsufficientStock) {
		return domain.RequestRecord{}, reject(domain.ErrInsufficientStock, MsgInsufficientStock)
	}
	if err != nil {
		return domain.RequestRecord{}, err
	}
	if !moved {
		return domain.RequestRecord{}, reject(domain.ErrInvalidTransition, MsgRequestProcessed)
	}

	rec.Status = target
	s.logger.Info().Int64("request_id", id).Str("actor", actor.Subject).Str("status", string(target)).Msg("request transitioned")

	typ := domain.EventRequestDeclined
	if target == domain.RequestStatusApproved {
		typ = domain.EventRequestAccepted
	}
	s.emit(typ, actor, id)
	return *rec, nil
}

func (s *RequestService) emit(typ domain.EventType, actor domain.SessionClaims, id int64) {
	if s.events != nil {
		s.events.Emit(typ, actor.Subject, id, "")
	}
}
