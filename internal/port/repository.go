package port

import (
	"context"

	"github.com/rl1809/stockdesk/internal/core/domain"
)

type InventoryRepository interface {
	ListItems(ctx context.Context) ([]domain.InventoryItem, error)
	ListAvailableItems(ctx context.Context) ([]domain.InventoryItem, error)
	GetItem(ctx context.Context, id int64) (*domain.InventoryItem, error)
	FindItemByName(ctx context.Context, name string) (*domain.InventoryItem, error)
	CreateItem(ctx context.Context, draft domain.InventoryDraft) (domain.InventoryItem, error)
	UpdateItem(ctx context.Context, item domain.InventoryItem) error
	// SoftDeleteItem hides the item from listings but keeps it for request history
	SoftDeleteItem(ctx context.Context, id int64) error
	DeleteItem(ctx context.Context, id int64) error
}

type RequestRepository interface {
	CreateRequest(ctx context.Context, userID string, draft domain.RequestDraft) (domain.RequestRecord, error)
	GetRequest(ctx context.Context, id int64) (*domain.RequestRecord, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]domain.RequestRecord, error)
	CountByItem(ctx context.Context, inventoryID int64) (total, pending int, err error)

	// TransitionPending moves a pending request to the target status and reports
	// false when the request was no longer pending. Approval decrements stock in
	// the same transaction.
	TransitionPending(ctx context.Context, id int64, target domain.RequestStatus) (bool, error)

	DeletePending(ctx context.Context, id int64) (bool, error)
}

type RequestFilter struct {
	UserID     string
	Status     domain.RequestStatus
	NotPending bool
}

type UserRepository interface {
	CreateUser(ctx context.Context, user domain.User) (domain.User, error)
	FindUser(ctx context.Context, username string) (*domain.User, error)
}
