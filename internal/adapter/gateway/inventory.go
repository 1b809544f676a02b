package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rl1809/stockdesk/internal/core/domain"
)

func (g *HTTPGateway) inventoryURL(path string) string {
	return g.endpoints.Inventory + "/inventory" + path
}

func (g *HTTPGateway) ListInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	var items []domain.InventoryItem
	if err := g.getJSON(ctx, g.inventoryURL(""), &items); err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return items, nil
}

func (g *HTTPGateway) CreateInventory(ctx context.Context, draft domain.InventoryDraft) (domain.InventoryItem, error) {
	var item domain.InventoryItem
	if err := g.sendJSON(ctx, http.MethodPost, g.inventoryURL(""), draft, &item, nil); err != nil {
		return domain.InventoryItem{}, fmt.Errorf("create inventory: %w", err)
	}
	return item, nil
}

func (g *HTTPGateway) UpdateInventory(ctx context.Context, id int64, patch domain.InventoryPatch) (domain.InventoryItem, error) {
	var item domain.InventoryItem
	if err := g.sendJSON(ctx, http.MethodPut, g.inventoryURL(fmt.Sprintf("/%d", id)), patch, &item, nil); err != nil {
		return domain.InventoryItem{}, fmt.Errorf("update inventory %d: %w", id, err)
	}
	return item, nil
}

// DeleteInventory returns the server's explanation verbatim in a
// *domain.ConflictError when the item cannot be removed.
func (g *HTTPGateway) DeleteInventory(ctx context.Context, id int64) error {
	err := g.sendJSON(ctx, http.MethodDelete, g.inventoryURL(fmt.Sprintf("/%d", id)), nil, nil, conflictOnReject)
	if err != nil {
		return fmt.Errorf("delete inventory %d: %w", id, err)
	}
	return nil
}

type bulkImportBody struct {
	Items []domain.ImportCandidate `json:"items"`
}

func (g *HTTPGateway) BulkImport(ctx context.Context, candidates []domain.ImportCandidate) (domain.ImportResult, error) {
	var result domain.ImportResult
	err := g.sendJSON(ctx, http.MethodPost, g.inventoryURL("/bulk-import"), bulkImportBody{Items: candidates}, &result, nil)
	if err != nil {
		return domain.ImportResult{}, fmt.Errorf("bulk import: %w", err)
	}
	return result, nil
}

func (g *HTTPGateway) ExportCSV(ctx context.Context) ([]byte, error) {
	body, err := g.do(ctx, call{method: http.MethodGet, url: g.inventoryURL("/export/csv")})
	if err != nil {
		return nil, fmt.Errorf("export csv: %w", err)
	}
	return body, nil
}

func (g *HTTPGateway) ExportJSON(ctx context.Context) ([]domain.InventoryItem, error) {
	var items []domain.InventoryItem
	if err := g.getJSON(ctx, g.inventoryURL("/export/json"), &items); err != nil {
		return nil, fmt.Errorf("export json: %w", err)
	}
	return items, nil
}
