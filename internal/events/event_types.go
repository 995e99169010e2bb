package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/customer-ledger/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCustomerCreated       EventType = "customer_created"
	EventCustomerMerged        EventType = "customer_merged"
	EventCustomerVisitAdjusted EventType = "customer_visit_adjusted"
	EventCustomerUpdated       EventType = "customer_updated"
	EventCustomerRemoved       EventType = "customer_removed"
	EventCustomerRestored      EventType = "customer_restored"
	EventCustomerVisitAlert    EventType = "customer_visit_alert"
	EventAdminRegistered       EventType = "admin_registered"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	CustomerID   string      `json:"customer_id,omitempty"`
	ActorAdminID string      `json:"actor_admin_id"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id.
func NewEvent(eventType EventType, customerID, actorAdminID string, at time.Time, payload interface{}) Event {
	return Event{
		ID:           uuid.NewString(),
		Type:         eventType,
		CustomerID:   customerID,
		ActorAdminID: actorAdminID,
		Timestamp:    at,
		Payload:      payload,
	}
}

// CustomerCreatedPayload payload.
type CustomerCreatedPayload struct {
	OwnerAdminID string `json:"owner_admin_id"`
	VisitCount   int    `json:"visit_count"`
}

// CustomerMergedPayload payload.
type CustomerMergedPayload struct {
	OwnerAdminID string `json:"owner_admin_id"`
	VisitCount   int    `json:"visit_count"`
}

// VisitAdjustedPayload payload.
type VisitAdjustedPayload struct {
	Direction  domain.VisitDirection `json:"direction"`
	VisitCount int                   `json:"visit_count"`
}

// CustomerUpdatedPayload lists the fields an edit changed.
type CustomerUpdatedPayload struct {
	Fields []string `json:"fields"`
}

// CustomerRemovedPayload payload.
type CustomerRemovedPayload struct {
	VisitCount    int        `json:"visit_count"`
	UndoExpiresAt *time.Time `json:"undo_expires_at,omitempty"`
}

// CustomerRestoredPayload payload.
type CustomerRestoredPayload struct {
	VisitCount int `json:"visit_count"`
}

// VisitAlertPayload is emitted when a record crosses the alert threshold.
type VisitAlertPayload struct {
	Name       string `json:"name"`
	VisitCount int    `json:"visit_count"`
	Threshold  int    `json:"threshold"`
}

// AdminRegisteredPayload payload.
type AdminRegisteredPayload struct {
	Role domain.Role `json:"role"`
}
