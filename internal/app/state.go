// Package app holds the explicit application state and the handlers that
// drive it. State is passed to and returned from every handler; there are
// no package-level mutables.
package app

import (
	"time"

	"github.com/shopspring/decimal"

	"cashplet/internal/core"
	"cashplet/internal/services"
)

type View string

const (
	ViewDashboard  View = "dashboard"
	ViewAccounts   View = "accounts"
	ViewCategories View = "categories"
)

const (
	viewKey          = "currentView"
	defaultRangeDays = 30
)

// RecordForm mirrors the record input form. Amount stays a string until
// save time so partial input never fails early.
type RecordForm struct {
	Amount    string
	Kind      core.Kind
	Category  string
	AccountID string
	Note      string
}

// State is the whole mutable UI state: current screen, analytics range,
// form contents, edit mode, and the last loaded ledger snapshot. Loading
// is an advisory busy indicator only; nothing enforces it.
type State struct {
	View     View
	Range    core.DateRange
	Form     RecordForm
	Edit     services.EditMode
	Snapshot core.LedgerSnapshot
	Loading  bool
}

// NewState builds the initial state: the last persisted screen (dashboard
// when none), the default last-30-days analytics range, and an expense
// form.
func NewState(kv KV, now time.Time) State {
	view := ViewDashboard
	if v, ok := kv.Get(viewKey); ok {
		switch View(v) {
		case ViewDashboard, ViewAccounts, ViewCategories:
			view = View(v)
		}
	}
	return State{
		View:  view,
		Range: core.LastDays(now, defaultRangeDays),
		Form:  RecordForm{Kind: core.KindExpense},
	}
}

// RangeTotals aggregates the current snapshot over the analytics range.
func (st State) RangeTotals() core.RangeTotals {
	return core.AggregateRange(st.Snapshot.Records, st.Range)
}

// BudgetGoals evaluates goal progress over the full (windowed) snapshot.
func (st State) BudgetGoals() []core.GoalProgress {
	return core.BudgetGoals(st.Snapshot.Categories, core.SpendByCategory(st.Snapshot.Records))
}

// NetWorth sums the cached account balances of the snapshot.
func (st State) NetWorth() decimal.Decimal {
	return core.NetWorth(st.Snapshot.Accounts)
}

// applyDefaults selects the first category and account once lists are
// loaded and nothing is chosen yet.
func (st State) applyDefaults() State {
	if st.Form.Category == "" && len(st.Snapshot.Categories) > 0 {
		st.Form.Category = st.Snapshot.Categories[0].Name
	}
	if st.Form.AccountID == "" && len(st.Snapshot.Accounts) > 0 {
		st.Form.AccountID = st.Snapshot.Accounts[0].ID
	}
	return st
}

// clearForm resets the fields the form drops after a save or cancel.
// Kind and the category/account selections are kept for the next entry.
func (st State) clearForm() State {
	st.Form.Amount = ""
	st.Form.Note = ""
	return st
}
