package amqp

import (
	"testing"

	"github.com/shopspring/decimal"

	"cashplet/internal/core"
)

func TestLedgerEventMessage(t *testing.T) {
	r := core.Record{
		ID:        "r1",
		Amount:    decimal.RequireFromString("12.34"),
		Kind:      core.KindExpense,
		Category:  "Food",
		AccountID: "a1",
		Note:      "lunch",
		Owner:     "u1",
	}

	msg := NewLedgerEventMessage("create", r)
	if msg.Amount != "12.34" || msg.Op != "create" || msg.Timestamp.IsZero() {
		t.Fatalf("unexpected message: %+v", msg)
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := LedgerEventMessageFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.RecordID != "r1" || got.Category != "Food" || got.Owner != "u1" {
		t.Fatalf("round trip lost fields: %+v", got)
	}

	if _, err := LedgerEventMessageFromJSON([]byte("{broken")); err == nil {
		t.Fatalf("expected error for malformed body")
	}
}
