// Package queue carries slot lifecycle events over RabbitMQ: a publisher
// used by the allocation service after each committed write, and a
// consumer that logs the events for downstream inspection.
package queue

import (
	"encoding/json"
	"fmt"
)

// SlotEventType names what happened to a slot.
type SlotEventType string

const (
	SlotCreated SlotEventType = "slot.created"
	SlotUpdated SlotEventType = "slot.updated"
	SlotDeleted SlotEventType = "slot.deleted"
)

// SlotEvent is published once a slot write has been committed.  Code
// fields are filled on creation; updates carry the new times.
type SlotEvent struct {
	Type        SlotEventType `json:"type"`
	SlotID      uint64        `json:"slot_id"`
	RouteID     uint64        `json:"route_id"`
	AirlineID   uint64        `json:"airline_id"`
	AirlineCode string        `json:"airline_code,omitempty"`
	FromCode    string        `json:"from_code,omitempty"`
	ToCode      string        `json:"to_code,omitempty"`
	SlotTime    string        `json:"slot_time,omitempty"`
	BlockTime   string        `json:"block_time,omitempty"`
	OccurredAt  string        `json:"occurred_at"`
}

// DecodeSlotEvent parses a message body and rejects unknown event types.
func DecodeSlotEvent(body []byte) (SlotEvent, error) {
	var ev SlotEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return SlotEvent{}, fmt.Errorf("unmarshal slot event: %w", err)
	}
	switch ev.Type {
	case SlotCreated, SlotUpdated, SlotDeleted:
		return ev, nil
	default:
		return SlotEvent{}, fmt.Errorf("unknown slot event type %q", ev.Type)
	}
}
