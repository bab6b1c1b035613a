package app

import (
	"context"
	"fmt"
	"log/slog"

	"cashplet/internal/auth"
	"cashplet/internal/core"
	"cashplet/internal/services"
	"cashplet/internal/store"
)

// Session wires the handlers to their collaborators for one signed-in
// user. Record mutations go through the coordinator; account and category
// mutations hit the store directly and then reload through the
// coordinator, so every mutation ends in the same invalidate-and-reload
// step.
type Session struct {
	User        auth.User
	Coordinator *services.Coordinator
	Ledger      store.Ledger
	KV          KV
}

// SetView switches screens and persists the choice.
func (s *Session) SetView(st State, v View) State {
	st.View = v
	if err := s.KV.Set(viewKey, string(v)); err != nil {
		slog.Warn("Failed to persist current view", "view", v, "error", err)
	}
	return st
}

// SetDateRange updates the analytics range. No validation: an inverted
// range simply aggregates to zeros.
func (s *Session) SetDateRange(st State, r core.DateRange) State {
	st.Range = r
	return st
}

// Load fetches all three collections and applies the form defaults. The
// application calls this on the nil-to-user auth transition and never
// patches the snapshot locally afterwards.
func (s *Session) Load(ctx context.Context, st State) (State, error) {
	st.Loading = true
	snap, err := s.Coordinator.Refresh(ctx, s.User.ID)
	st.Loading = false
	if err != nil {
		return st, fmt.Errorf("load ledger: %w", err)
	}
	st.Snapshot = snap
	return st.applyDefaults(), nil
}

// SaveRecord creates a record from the form, or replaces the edit target
// when one is active. Unparseable or missing input makes the save a
// silent no-op, matching the coordinator's validation guard.
func (s *Session) SaveRecord(ctx context.Context, st State) (State, error) {
	amount, err := core.ParseAmount(st.Form.Amount)
	if err != nil {
		return st, nil
	}
	record := core.Record{
		Amount:    amount,
		Kind:      st.Form.Kind,
		Category:  st.Form.Category,
		AccountID: st.Form.AccountID,
		Note:      st.Form.Note,
		Owner:     s.User.ID,
	}

	st.Loading = true
	var snap *core.LedgerSnapshot
	if id, editing := st.Edit.Target(); editing {
		snap, err = s.Coordinator.UpdateRecord(ctx, id, record)
	} else {
		snap, err = s.Coordinator.CreateRecord(ctx, record)
	}
	st.Loading = false
	if err != nil {
		// A failed update keeps the edit target; the user cancels manually.
		return st, err
	}
	if snap == nil {
		return st, nil
	}

	st.Edit.Complete()
	st.Snapshot = *snap
	return st.clearForm().applyDefaults(), nil
}

// StartEdit enters editing mode and loads the record into the form.
func (s *Session) StartEdit(st State, r core.Record) State {
	st.Edit.Start(r)
	st.Form = RecordForm{
		Amount:    r.Amount.String(),
		Kind:      r.Kind,
		Category:  r.Category,
		AccountID: r.AccountID,
		Note:      r.Note,
	}
	return st
}

// CancelEdit discards the form contents and returns to idle.
func (s *Session) CancelEdit(st State) State {
	st.Edit.Cancel()
	return st.clearForm()
}

// DeleteRecord destroys a record after confirmation and reloads.
func (s *Session) DeleteRecord(ctx context.Context, st State, id string, confirm services.Confirmer) (State, error) {
	st.Loading = true
	snap, err := s.Coordinator.DeleteRecord(ctx, s.User.ID, id, confirm)
	st.Loading = false
	if err != nil {
		return st, err
	}
	if snap != nil {
		st.Snapshot = *snap
	}
	return st, nil
}

// AddAccount creates an account with an optional initial balance. A
// missing name is a silent no-op.
func (s *Session) AddAccount(ctx context.Context, st State, name, balance string) (State, error) {
	if name == "" {
		return st, nil
	}
	_, err := s.Ledger.InsertAccount(ctx, core.Account{
		Name:    name,
		Balance: core.ParseOptionalAmount(balance),
		Owner:   s.User.ID,
	})
	if err != nil {
		return st, fmt.Errorf("add account: %w", err)
	}
	return s.Load(ctx, st)
}

// DeleteAccount removes an account. Records referencing it stay behind
// with a dangling account id.
func (s *Session) DeleteAccount(ctx context.Context, st State, id string) (State, error) {
	if err := s.Ledger.DeleteAccount(ctx, s.User.ID, id); err != nil {
		return st, fmt.Errorf("delete account: %w", err)
	}
	return s.Load(ctx, st)
}

// AddCategory creates a category; the target parses leniently so an empty
// target means no goal. A missing name is a silent no-op.
func (s *Session) AddCategory(ctx context.Context, st State, name, target string, kind core.Kind) (State, error) {
	if name == "" {
		return st, nil
	}
	_, err := s.Ledger.InsertCategory(ctx, core.Category{
		Name:   name,
		Kind:   kind,
		Target: core.ParseOptionalAmount(target),
		Owner:  s.User.ID,
	})
	if err != nil {
		return st, fmt.Errorf("add category: %w", err)
	}
	return s.Load(ctx, st)
}

// RemoveCategory deletes a category. Existing records keep the
// denormalized name.
func (s *Session) RemoveCategory(ctx context.Context, st State, id string) (State, error) {
	if err := s.Ledger.DeleteCategory(ctx, s.User.ID, id); err != nil {
		return st, fmt.Errorf("remove category: %w", err)
	}
	return s.Load(ctx, st)
}
