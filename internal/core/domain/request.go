package domain

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusDeclined  RequestStatus = "declined"
	RequestStatusCancelled RequestStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case RequestStatusApproved, RequestStatusDeclined, RequestStatusCancelled:
		return true
	default:
		return false
	}
}

type Action string

const (
	ActionAccept  Action = "accept"
	ActionDecline Action = "decline"
	ActionCancel  Action = "cancel"
)

// Target is the status an action moves a pending request to.
func (a Action) Target() (RequestStatus, bool) {
	switch a {
	case ActionAccept:
		return RequestStatusApproved, true
	case ActionDecline:
		return RequestStatusDeclined, true
	case ActionCancel:
		return RequestStatusCancelled, true
	default:
		return "", false
	}
}

type InventorySnapshot struct {
	Name string `json:"name"`
}

type RequestRecord struct {
	ID          int64             `json:"id"`
	InventoryID int64             `json:"inventory_id"`
	Quantity    int               `json:"quantity"`
	Status      RequestStatus     `json:"status"`
	UserID      string            `json:"user_id"`
	Inventory   InventorySnapshot `json:"inventory"`
}

type RequestDraft struct {
	InventoryID int64 `json:"inventory_id" validate:"required,gt=0"`
	Quantity    int   `json:"quantity" validate:"required,gt=0"`
}
