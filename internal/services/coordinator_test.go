package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"cashplet/internal/core"
	"cashplet/internal/memory"
	"cashplet/internal/store"
)

type capturedEvent struct {
	op string
	id string
}

type fakePublisher struct {
	events []capturedEvent
	fail   bool
}

func (p *fakePublisher) PublishRecordEvent(_ context.Context, op string, r core.Record) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.events = append(p.events, capturedEvent{op: op, id: r.ID})
	return nil
}

func alwaysConfirm() Confirmer { return ConfirmFunc(func(string) bool { return true }) }
func neverConfirm() Confirmer  { return ConfirmFunc(func(string) bool { return false }) }

func setup(t *testing.T) (*memory.Store, *Coordinator, core.Account) {
	t.Helper()
	s := memory.New()
	acc, err := s.InsertAccount(context.Background(), core.Account{
		Name:    "Cash",
		Balance: decimal.NewFromInt(100),
		Owner:   "u",
	})
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return s, NewCoordinator(s, nil), acc
}

func TestCreateRecordRoundTrip(t *testing.T) {
	_, c, acc := setup(t)

	snap, err := c.CreateRecord(context.Background(), core.Record{
		Amount:    decimal.NewFromInt(40),
		Kind:      core.KindExpense,
		Category:  "Food",
		AccountID: acc.ID,
		Owner:     "u",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if snap == nil {
		t.Fatalf("expected a refreshed snapshot")
	}
	if len(snap.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(snap.Records))
	}
	// The refreshed snapshot already carries the store-maintained balance.
	if !snap.Accounts[0].Balance.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("balance = %s, want 60", snap.Accounts[0].Balance)
	}

	spend := core.SpendByCategory(snap.Records)
	if !spend["Food"].Equal(decimal.NewFromInt(40)) {
		t.Fatalf("spend counted %s, want exactly once: 40", spend["Food"])
	}
}

func TestCreateRecordSilentGuard(t *testing.T) {
	s, c, acc := setup(t)

	cases := []core.Record{
		{Kind: core.KindExpense, AccountID: acc.ID, Owner: "u"},                                   // no amount
		{Amount: decimal.NewFromInt(5), Kind: core.KindExpense, AccountID: acc.ID},                // no owner
		{Amount: decimal.NewFromInt(5), Kind: core.KindExpense, Owner: "u"},                       // no account
	}
	for i, r := range cases {
		snap, err := c.CreateRecord(context.Background(), r)
		if err != nil {
			t.Fatalf("case %d: guard must be silent, got %v", i, err)
		}
		if snap != nil {
			t.Fatalf("case %d: guard must not refresh", i)
		}
	}

	records, _ := s.ListRecords(context.Background(), "u")
	if len(records) != 0 {
		t.Fatalf("store was contacted despite guard, records = %d", len(records))
	}
}

func TestDeleteRecordRequiresConfirmation(t *testing.T) {
	s, c, acc := setup(t)
	ctx := context.Background()

	snap, err := c.CreateRecord(ctx, core.Record{
		Amount:    decimal.NewFromInt(25),
		Kind:      core.KindExpense,
		Category:  "Food",
		AccountID: acc.ID,
		Owner:     "u",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := snap.Records[0].ID

	// Declined confirmation aborts silently and leaves the ledger alone.
	got, err := c.DeleteRecord(ctx, "u", id, neverConfirm())
	if err != nil || got != nil {
		t.Fatalf("declined delete = (%v, %v), want (nil, nil)", got, err)
	}
	records, _ := s.ListRecords(ctx, "u")
	if len(records) != 1 {
		t.Fatalf("record deleted without confirmation")
	}

	got, err = c.DeleteRecord(ctx, "u", id, alwaysConfirm())
	if err != nil {
		t.Fatalf("confirmed delete: %v", err)
	}
	if len(got.Records) != 0 {
		t.Fatalf("records after delete = %d, want 0", len(got.Records))
	}
	if !got.Accounts[0].Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("balance settled to %s, want 100", got.Accounts[0].Balance)
	}
}

func TestDeleteLeavesOthersUntouched(t *testing.T) {
	_, c, acc := setup(t)
	ctx := context.Background()

	first, _ := c.CreateRecord(ctx, core.Record{
		Amount: decimal.NewFromInt(10), Kind: core.KindExpense, Category: "Food",
		AccountID: acc.ID, Owner: "u",
	})
	snap, _ := c.CreateRecord(ctx, core.Record{
		Amount: decimal.NewFromInt(20), Kind: core.KindEarning, Category: "Salary",
		AccountID: acc.ID, Owner: "u",
	})
	if len(snap.Records) != 2 {
		t.Fatalf("setup records = %d, want 2", len(snap.Records))
	}

	snap, err := c.DeleteRecord(ctx, "u", first.Records[0].ID, alwaysConfirm())
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	totals := core.AggregateRange(snap.Records, core.DateRange{
		Start: core.NewDate(2000, 1, 1),
		End:   core.NewDate(2100, 1, 1),
	})
	if !totals.Income.Equal(decimal.NewFromInt(20)) || !totals.Expense.IsZero() {
		t.Fatalf("surviving totals = %+v, want income 20 expense 0", totals)
	}
}

func TestUpdateRequiresEditTarget(t *testing.T) {
	_, c, acc := setup(t)
	_, err := c.UpdateRecord(context.Background(), "", core.Record{
		Amount: decimal.NewFromInt(1), Kind: core.KindExpense, AccountID: acc.ID, Owner: "u",
	})
	if !errors.Is(err, ErrNoEditTarget) {
		t.Fatalf("got %v, want ErrNoEditTarget", err)
	}
}

func TestUpdateOfDeletedRecordFails(t *testing.T) {
	_, c, acc := setup(t)
	ctx := context.Background()

	snap, _ := c.CreateRecord(ctx, core.Record{
		Amount: decimal.NewFromInt(10), Kind: core.KindExpense, Category: "Food",
		AccountID: acc.ID, Owner: "u",
	})
	id := snap.Records[0].ID

	var mode EditMode
	mode.Start(snap.Records[0])

	// Another actor deletes the record while the edit is in progress.
	if _, err := c.DeleteRecord(ctx, "u", id, alwaysConfirm()); err != nil {
		t.Fatalf("concurrent delete: %v", err)
	}

	target, ok := mode.Target()
	if !ok {
		t.Fatalf("edit target lost")
	}
	_, err := c.UpdateRecord(ctx, target, core.Record{
		Amount: decimal.NewFromInt(99), Kind: core.KindExpense, Category: "Food",
		AccountID: acc.ID, Owner: "u",
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("got %v, want wrapped ErrNotFound", err)
	}
	// The machine stays in Editing; only an explicit cancel clears it.
	if _, ok := mode.Target(); !ok {
		t.Fatalf("failed update must not clear the edit target")
	}
	mode.Cancel()
	if _, ok := mode.Target(); ok {
		t.Fatalf("cancel must clear the edit target")
	}
}

func TestMutationsPublishEvents(t *testing.T) {
	s := memory.New()
	acc, _ := s.InsertAccount(context.Background(), core.Account{
		Name: "Cash", Balance: decimal.NewFromInt(0), Owner: "u",
	})
	pub := &fakePublisher{}
	c := NewCoordinator(s, pub)
	ctx := context.Background()

	snap, err := c.CreateRecord(ctx, core.Record{
		Amount: decimal.NewFromInt(10), Kind: core.KindExpense, Category: "Food",
		AccountID: acc.ID, Owner: "u",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := c.DeleteRecord(ctx, "u", snap.Records[0].ID, alwaysConfirm()); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if len(pub.events) != 2 || pub.events[0].op != "create" || pub.events[1].op != "delete" {
		t.Fatalf("events = %+v, want create then delete", pub.events)
	}
}

func TestPublisherFailureDoesNotFailMutation(t *testing.T) {
	s := memory.New()
	acc, _ := s.InsertAccount(context.Background(), core.Account{
		Name: "Cash", Balance: decimal.NewFromInt(0), Owner: "u",
	})
	c := NewCoordinator(s, &fakePublisher{fail: true})

	snap, err := c.CreateRecord(context.Background(), core.Record{
		Amount: decimal.NewFromInt(10), Kind: core.KindExpense, Category: "Food",
		AccountID: acc.ID, Owner: "u",
	})
	if err != nil {
		t.Fatalf("broker failure must not fail the mutation: %v", err)
	}
	if len(snap.Records) != 1 {
		t.Fatalf("record not saved")
	}
}
