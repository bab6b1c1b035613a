package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindExpense Kind = "expense"
	KindEarning Kind = "earning"
)

type (
	// Kind is the direction of a record: money leaving (expense) or
	// entering (earning) an account.
	Kind string

	// Date is a civil calendar date. Time-of-day is discarded when a
	// record timestamp is compared against a range.
	Date struct {
		time.Time
	}

	// Account is a named balance container. The balance is a cached
	// figure maintained by the store, never derived from records here.
	Account struct {
		ID      string
		Name    string
		Balance decimal.Decimal
		Owner   string
	}

	// Category labels records. Target is a monthly budget ceiling for
	// expense categories; zero means no goal.
	Category struct {
		ID     string
		Name   string
		Kind   Kind
		Target decimal.Decimal
		Owner  string
	}

	// Record is a single income or expense transaction. Category holds
	// the denormalized category name, not an id; AccountID may dangle if
	// the account is deleted later.
	Record struct {
		ID        string
		Amount    decimal.Decimal
		Kind      Kind
		Category  string
		AccountID string
		Note      string
		CreatedAt time.Time
		Owner     string
	}

	// LedgerSnapshot is the ephemeral read-only tuple both aggregators
	// consume. It is rebuilt by re-fetching after every mutation.
	LedgerSnapshot struct {
		Accounts   []Account
		Categories []Category
		Records    []Record
	}

	// DateRange is an inclusive start/end calendar-date filter.
	DateRange struct {
		Start Date
		End   Date
	}
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidKind    = errors.New("invalid kind")
	ErrMissingOwner   = errors.New("missing owner")
	ErrMissingAccount = errors.New("missing account")
	ErrEmptyName      = errors.New("empty name")
	ErrNegativeTarget = errors.New("negative target")
)

// UnknownAccountLabel is shown for records whose account was deleted.
const UnknownAccountLabel = "Unknown"

// NewDate creates a Date from year, month, day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar date in the timestamp's
// own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// In reports whether the date lies within the range, inclusive on both
// ends. A range with Start after End admits nothing.
func (d Date) In(r DateRange) bool {
	return !d.Before(r.Start.Time) && !d.After(r.End.Time)
}

// IsValid reports whether the kind is one of the two known values.
func (k Kind) IsValid() bool {
	return k == KindExpense || k == KindEarning
}

func (k Kind) String() string { return string(k) }

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if a.Owner == "" {
		return ErrMissingOwner
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Kind.IsValid() {
		return ErrInvalidKind
	}
	if c.Target.IsNegative() {
		return ErrNegativeTarget
	}
	if c.Owner == "" {
		return ErrMissingOwner
	}
	return nil
}

// HasGoal reports whether the category carries a budget ceiling.
func (c Category) HasGoal() bool {
	return c.Kind == KindExpense && c.Target.IsPositive()
}

func (r Record) Validate() error {
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !r.Kind.IsValid() {
		return ErrInvalidKind
	}
	if r.Owner == "" {
		return ErrMissingOwner
	}
	if r.AccountID == "" {
		return ErrMissingAccount
	}
	return nil
}

// AccountLabel resolves an account id to its name, falling back to
// UnknownAccountLabel for dangling references.
func (s LedgerSnapshot) AccountLabel(accountID string) string {
	for _, a := range s.Accounts {
		if a.ID == accountID {
			return a.Name
		}
	}
	return UnknownAccountLabel
}

// LastDays returns the range covering the past n days through today,
// the default analytics window of the dashboard.
func LastDays(now time.Time, n int) DateRange {
	return DateRange{
		Start: DateOf(now.AddDate(0, 0, -n)),
		End:   DateOf(now),
	}
}
