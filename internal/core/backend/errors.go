package backend

import (
	"github.com/rl1809/stockdesk/internal/core/domain"
)

const (
	MsgItemExists        = "Item already exists"
	MsgItemNameTaken     = "Another item with that name already exists"
	MsgItemNotFound      = "Item not found"
	MsgItemHasPending    = "Cannot delete item: Pending requests must be handled first"
	MsgRequestNotFound   = "Request not found"
	MsgRequestProcessed  = "Request already processed"
	MsgOnlyPendingDelete = "Only pending requests can be deleted"
	MsgInsufficientStock = "Not enough stock to approve request"
	MsgAdminOnly         = "Admin access required"
	MsgUserOnly          = "Only users can create requests"
	MsgNotOwner          = "Not authorized to delete this request"
	MsgBadCredentials    = "Could not validate user."
	MsgUsernameTaken     = "Username already registered"
)

// Rejection is a refusal with a message meant for the caller. It unwraps to
// the domain sentinel that classifies it.
type Rejection struct {
	Kind   error
	Detail string
}

func (r *Rejection) Error() string {
	return r.Detail
}

func (r *Rejection) Unwrap() error {
	return r.Kind
}

func reject(kind error, detail string) error {
	return &Rejection{Kind: kind, Detail: detail}
}

func requireAdmin(actor domain.SessionClaims) error {
	if !actor.IsAdmin() {
		return reject(domain.ErrForbidden, MsgAdminOnly)
	}
	return nil
}
