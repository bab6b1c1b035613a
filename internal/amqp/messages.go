package amqp

import (
	"encoding/json"
	"time"

	"cashplet/internal/core"
)

// LedgerEventMessage describes one ledger mutation. The record fields are
// carried in the message so consumers can mirror deletes without a
// storage read.
type LedgerEventMessage struct {
	Op        string    `json:"op"` // create, update, delete
	RecordID  string    `json:"record_id"`
	Owner     string    `json:"owner"`
	Amount    string    `json:"amount,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	Category  string    `json:"category,omitempty"`
	AccountID string    `json:"account_id,omitempty"`
	Note      string    `json:"note,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEventMessage builds a message from a mutation and its record.
func NewLedgerEventMessage(op string, r core.Record) *LedgerEventMessage {
	return &LedgerEventMessage{
		Op:        op,
		RecordID:  r.ID,
		Owner:     r.Owner,
		Amount:    r.Amount.String(),
		Kind:      string(r.Kind),
		Category:  r.Category,
		AccountID: r.AccountID,
		Note:      r.Note,
		Timestamp: time.Now(),
	}
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
