package events

import (
	"context"
	"time"
)

const (
	TypeIndexRebuilt    = "INDEX_REBUILT"
	TypeOrderRequested  = "ORDER_REQUESTED"
	TypeCatalogUpdated  = "CATALOG_UPDATED"
	TypeDocumentChanged = "DOCUMENT_CHANGED"
)

// Event defines the contract for all assistant domain events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "INDEX_REBUILT").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Publisher sends events to the bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

func NewIndexRebuilt(vendorID string, documents, chunks, failed int) BaseEvent {
	return BaseEvent{
		Type: TypeIndexRebuilt,
		Data: map[string]interface{}{
			"vendorId":       vendorID,
			"totalDocuments": documents,
			"indexedChunks":  chunks,
			"failed":         failed,
		},
		OccurredAt: time.Now(),
	}
}

// NewOrderRequested carries a confirmed conversational checkout. Order
// creation itself happens in the order service that consumes it.
func NewOrderRequested(conversationID, vendorID, userID string, items interface{}, total float64) BaseEvent {
	return BaseEvent{
		Type: TypeOrderRequested,
		Data: map[string]interface{}{
			"conversationId": conversationID,
			"vendorId":       vendorID,
			"userId":         userID,
			"items":          items,
			"total":          total,
		},
		OccurredAt: time.Now(),
	}
}

// NopPublisher drops events. Used when the bus is not reachable at startup.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error {
	return nil
}
