package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	EventItemCreated EventType = "item.created"
	EventItemUpdated EventType = "item.updated"
	EventItemDeleted EventType = "item.deleted"
)

const ItemEventsQueue = "inventory.items"

// Event describes one committed change to the store. Item is omitted for deletes.
type Event struct {
	Type       EventType `json:"type"`
	ItemID     string    `json:"item_id"`
	Item       *Item     `json:"item,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type EventPublisher interface {
	Publish(ctx context.Context, e Event) error
}

type Queue interface {
	DeclareQueue(name string) error
	Publish(ctx context.Context, queue string, body []byte) error
}

type QueuePublisher struct {
	q    Queue
	name string
}

func NewQueuePublisher(q Queue, name string) (*QueuePublisher, error) {
	if err := q.DeclareQueue(name); err != nil {
		return nil, err
	}
	return &QueuePublisher{q: q, name: name}, nil
}

func (p *QueuePublisher) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.q.Publish(ctx, p.name, body)
}

func newEvent(t EventType, id string, it *Item) Event {
	return Event{Type: t, ItemID: id, Item: it, OccurredAt: time.Now().UTC()}
}
