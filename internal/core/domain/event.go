package domain

import "time"

type EventType string

const (
	EventRequestAccepted   EventType = "request.accepted"
	EventRequestDeclined   EventType = "request.declined"
	EventRequestCancelled  EventType = "request.cancelled"
	EventInventoryImported EventType = "inventory.imported"
)

type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Actor      string    `json:"actor"`
	EntityID   int64     `json:"entity_id"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
