package amqp

import (
	"encoding/json"
	"time"
)

// Change kinds carried by ledger events.
const (
	ChangeTransactionCreated = "transaction.created"
	ChangeTransactionUpdated = "transaction.updated"
	ChangeTransactionDeleted = "transaction.deleted"
	ChangeGroupCreated       = "group.created"
	ChangeGroupDeleted       = "group.deleted"
	ChangeInvestmentCreated  = "investment.created"
	ChangeInvestmentDeleted  = "investment.deleted"
	ChangeStatusSwept        = "status.swept"
	ChangeImported           = "collections.imported"
)

// LedgerEvent announces that the persisted collections changed. It carries
// only identifiers: consumers re-load the snapshot from the store rather
// than trusting event payloads, so a lost or reordered event can never
// corrupt a session's view.
type LedgerEvent struct {
	Kind      string    `json:"kind"`
	EntityID  string    `json:"entityId,omitempty"`
	GroupID   string    `json:"groupId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(kind, entityID, groupID string) *LedgerEvent {
	return &LedgerEvent{
		Kind:      kind,
		EntityID:  entityID,
		GroupID:   groupID,
		Timestamp: time.Now(),
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
	return &e, nil
}
