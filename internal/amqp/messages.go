package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"truecost/internal/core"
)

type EventType string

const (
	EventRecorded EventType = "transaction.recorded"
	EventEdited   EventType = "transaction.edited"
	EventDeleted  EventType = "transaction.deleted"
)

func (t EventType) Valid() bool {
	switch t {
	case EventRecorded, EventEdited, EventDeleted:
		return true
	}
	return false
}

// LedgerEvent announces a committed ledger write. It carries only
// identifiers; consumers read current state back from the ledger.
type LedgerEvent struct {
	Type          EventType  `json:"type"`
	TransactionID string     `json:"transaction_id"`
	Month         core.Month `json:"month"`
	Timestamp     time.Time  `json:"timestamp"`
}

func NewLedgerEvent(t EventType, transactionID string, month core.Month) *LedgerEvent {
	return &LedgerEvent{
		Type:          t,
		TransactionID: transactionID,
		Month:         month,
		Timestamp:     time.Now().UTC(),
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if !e.Type.Valid() {
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.TransactionID == "" {
		return nil, fmt.Errorf("event without transaction id")
	}
	return &e, nil
}
