package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rl1809/stockdesk/internal/core/domain"
)

func (g *HTTPGateway) requestsURL(path string) string {
	return g.endpoints.Requests + "/requests" + path
}

func (g *HTTPGateway) listRequests(ctx context.Context, path string) ([]domain.RequestRecord, error) {
	var records []domain.RequestRecord
	if err := g.getJSON(ctx, g.requestsURL(path), &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (g *HTTPGateway) ListPending(ctx context.Context) ([]domain.RequestRecord, error) {
	records, err := g.listRequests(ctx, "/pending")
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	return records, nil
}

func (g *HTTPGateway) ListHistory(ctx context.Context) ([]domain.RequestRecord, error) {
	records, err := g.listRequests(ctx, "/history")
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return records, nil
}

func (g *HTTPGateway) ListMine(ctx context.Context) ([]domain.RequestRecord, error) {
	records, err := g.listRequests(ctx, "/mine")
	if err != nil {
		return nil, fmt.Errorf("list own requests: %w", err)
	}
	return records, nil
}

func (g *HTTPGateway) ListAvailable(ctx context.Context) ([]domain.InventoryItem, error) {
	var items []domain.InventoryItem
	if err := g.getJSON(ctx, g.requestsURL("/available-items"), &items); err != nil {
		return nil, fmt.Errorf("list available items: %w", err)
	}
	return items, nil
}

func (g *HTTPGateway) CreateRequest(ctx context.Context, draft domain.RequestDraft) (domain.RequestRecord, error) {
	var rec domain.RequestRecord
	if err := g.sendJSON(ctx, http.MethodPost, g.requestsURL(""), draft, &rec, nil); err != nil {
		return domain.RequestRecord{}, fmt.Errorf("create request: %w", err)
	}
	return rec, nil
}

func (g *HTTPGateway) DeleteRequest(ctx context.Context, id int64) error {
	err := g.sendJSON(ctx, http.MethodDelete, g.requestsURL(fmt.Sprintf("/%d", id)), nil, nil, invalidTransitionOnReject)
	if err != nil {
		return fmt.Errorf("delete request %d: %w", id, err)
	}
	return nil
}

func (g *HTTPGateway) TransitionRequest(ctx context.Context, id int64, action domain.Action) error {
	switch action {
	case domain.ActionAccept, domain.ActionDecline:
	default:
		return fmt.Errorf("%w: %q is not a remote transition", domain.ErrInvalidTransition, action)
	}
	err := g.sendJSON(ctx, http.MethodPost, g.requestsURL(fmt.Sprintf("/%d/%s", id, action)), nil, nil, invalidTransitionOnReject)
	if err != nil {
		return fmt.Errorf("%s request %d: %w", action, id, err)
	}
	return nil
}
