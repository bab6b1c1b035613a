package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateIn(t *testing.T) {
	r := DateRange{Start: NewDate(2025, 4, 1), End: NewDate(2025, 4, 30)}
	cases := []struct {
		at time.Time
		in bool
	}{
		{time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2025, 4, 1, 23, 59, 59, 0, time.UTC), true}, // time of day discarded
		{time.Date(2025, 4, 30, 12, 0, 0, 0, time.UTC), true},
		{time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC), false},
		{time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), false},
	}
	for i, tc := range cases {
		if got := DateOf(tc.at).In(r); got != tc.in {
			t.Fatalf("case %d: In(%v) = %v, want %v", i, tc.at, got, tc.in)
		}
	}
}

func TestRecordValidate(t *testing.T) {
	good := Record{
		Amount:    decimal.NewFromInt(10),
		Kind:      KindExpense,
		Category:  "Food",
		AccountID: "acc-1",
		Owner:     "user-1",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		mut  func(r *Record)
		want error
	}{
		{"zero amount", func(r *Record) { r.Amount = decimal.Zero }, ErrInvalidAmount},
		{"negative amount", func(r *Record) { r.Amount = decimal.NewFromInt(-5) }, ErrInvalidAmount},
		{"bad kind", func(r *Record) { r.Kind = "transfer" }, ErrInvalidKind},
		{"no owner", func(r *Record) { r.Owner = "" }, ErrMissingOwner},
		{"no account", func(r *Record) { r.AccountID = "" }, ErrMissingAccount},
	}
	for _, tc := range cases {
		r := good
		tc.mut(&r)
		if err := r.Validate(); err != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestCategoryValidate(t *testing.T) {
	good := Category{Name: "Food", Kind: KindExpense, Target: decimal.NewFromInt(200), Owner: "u"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	noGoal := Category{Name: "Misc", Kind: KindExpense, Owner: "u"}
	if err := noGoal.Validate(); err != nil {
		t.Fatalf("zero target means no goal, got %v", err)
	}
	if noGoal.HasGoal() {
		t.Fatalf("zero target must not count as a goal")
	}
	bad := Category{Name: "Food", Kind: KindExpense, Target: decimal.NewFromInt(-1), Owner: "u"}
	if err := bad.Validate(); err != ErrNegativeTarget {
		t.Fatalf("got %v, want ErrNegativeTarget", err)
	}
}

func TestAccountLabelFallsBackToUnknown(t *testing.T) {
	snap := LedgerSnapshot{
		Accounts: []Account{{ID: "a1", Name: "Cash", Owner: "u"}},
	}
	if got := snap.AccountLabel("a1"); got != "Cash" {
		t.Fatalf("got %q, want Cash", got)
	}
	if got := snap.AccountLabel("deleted"); got != UnknownAccountLabel {
		t.Fatalf("dangling reference resolved to %q, want %q", got, UnknownAccountLabel)
	}
}

func TestLastDays(t *testing.T) {
	now := time.Date(2025, 7, 31, 15, 4, 5, 0, time.UTC)
	r := LastDays(now, 30)
	if !r.Start.Equal(NewDate(2025, 7, 1).Time) {
		t.Fatalf("start = %v, want 2025-07-01", r.Start)
	}
	if !r.End.Equal(NewDate(2025, 7, 31).Time) {
		t.Fatalf("end = %v, want 2025-07-31", r.End)
	}
}
