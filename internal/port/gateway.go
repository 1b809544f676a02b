package port

import (
	"context"

	"github.com/rl1809/stockdesk/internal/core/domain"
)

type InventoryGateway interface {
	ListInventory(ctx context.Context) ([]domain.InventoryItem, error)
	CreateInventory(ctx context.Context, draft domain.InventoryDraft) (domain.InventoryItem, error)
	UpdateInventory(ctx context.Context, id int64, patch domain.InventoryPatch) (domain.InventoryItem, error)
	// DeleteInventory fails with *domain.ConflictError when requests still reference the item.
	DeleteInventory(ctx context.Context, id int64) error
	BulkImport(ctx context.Context, candidates []domain.ImportCandidate) (domain.ImportResult, error)
	ExportCSV(ctx context.Context) ([]byte, error)
	ExportJSON(ctx context.Context) ([]domain.InventoryItem, error)
}

type RequestGateway interface {
	ListPending(ctx context.Context) ([]domain.RequestRecord, error)
	ListHistory(ctx context.Context) ([]domain.RequestRecord, error)
	ListMine(ctx context.Context) ([]domain.RequestRecord, error)
	ListAvailable(ctx context.Context) ([]domain.InventoryItem, error)
	CreateRequest(ctx context.Context, draft domain.RequestDraft) (domain.RequestRecord, error)
	DeleteRequest(ctx context.Context, id int64) error
	// TransitionRequest fails with domain.ErrInvalidTransition when the record is already terminal.
	TransitionRequest(ctx context.Context, id int64, action domain.Action) error
}

type AuthGateway interface {
	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, reg domain.Registration) error
	Welcome(ctx context.Context, role domain.Role) (string, error)
}

// Gateway is the full set of remote operations. Every call is independent.
type Gateway interface {
	InventoryGateway
	RequestGateway
	AuthGateway
}
