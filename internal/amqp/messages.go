package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ledger/internal/core"
)

// EventKind names the change a BillEvent describes.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
	EventReset   EventKind = "reset"
)

var ErrInvalidEvent = errors.New("invalid bill event")

// BillEvent is published after every successful ledger mutation. Bill is set
// for created and updated events; reset events carry neither id nor bill.
type BillEvent struct {
	EventID    string     `json:"event_id"`
	Kind       EventKind  `json:"kind"`
	BillID     int64      `json:"bill_id,omitempty"`
	Bill       *core.Bill `json:"bill,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// NewBillEvent stamps a fresh event id and the current time.
func NewBillEvent(kind EventKind, billID int64, bill *core.Bill) *BillEvent {
	return &BillEvent{
		EventID:    uuid.NewString(),
		Kind:       kind,
		BillID:     billID,
		Bill:       bill,
		OccurredAt: time.Now().UTC(),
	}
}

func (k EventKind) Valid() bool {
	switch k {
	case EventCreated, EventUpdated, EventDeleted, EventReset:
		return true
	}
	return false
}

// Validate checks the fields a consumer relies on.
func (m *BillEvent) Validate() error {
	if _, err := uuid.Parse(m.EventID); err != nil {
		return fmt.Errorf("%w: event_id: %v", ErrInvalidEvent, err)
	}
	if !m.Kind.Valid() {
		return fmt.Errorf("%w: kind %q", ErrInvalidEvent, m.Kind)
	}
	if m.Kind != EventReset && m.BillID <= 0 {
		return fmt.Errorf("%w: missing bill_id", ErrInvalidEvent)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *BillEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BillEventFromJSON decodes and validates a message body.
func BillEventFromJSON(data []byte) (*BillEvent, error) {
	var msg BillEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
