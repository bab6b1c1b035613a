// Package services orchestrates ledger mutations against the external
// store and keeps derived views consistent through refresh-after-mutation.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"cashplet/internal/core"
	"cashplet/internal/store"
)

// Confirmer gates destructive operations. Deleting a record settles its
// amount back into the account balance, so the confirmation step is
// mandatory and synchronous.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a plain function to the Confirmer interface.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// EventPublisher receives a notification after every successful mutation.
// Publishing is best effort; a broker outage never fails the mutation.
type EventPublisher interface {
	PublishRecordEvent(ctx context.Context, op string, r core.Record) error
}

const deletePrompt = "Are you sure? This will permanently settle the balance back to your account."

// ErrNoEditTarget is returned when an update is attempted without a
// previously captured edit target.
var ErrNoEditTarget = errors.New("no active edit target")

// Coordinator sequences create/update/delete against the store. Balances
// are maintained store-side, so after any successful mutation it re-fetches
// all three collections instead of patching locally. Mutations are
// serialized per session; overlapping submissions wait on the mutex rather
// than race.
type Coordinator struct {
	mu        sync.Mutex
	ledger    store.Ledger
	publisher EventPublisher
}

func NewCoordinator(ledger store.Ledger, publisher EventPublisher) *Coordinator {
	return &Coordinator{ledger: ledger, publisher: publisher}
}

// CreateRecord inserts a record and reloads the ledger. A record missing
// its amount, owner, or account is silently skipped (nil snapshot, nil
// error) without contacting the store.
func (c *Coordinator) CreateRecord(ctx context.Context, r core.Record) (*core.LedgerSnapshot, error) {
	if skipSilently(r) {
		slog.DebugContext(ctx, "Record save skipped by validation guard",
			"owner", r.Owner, "account_id", r.AccountID)
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	saved, err := c.ledger.InsertRecord(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	c.publish(ctx, "create", saved)

	snap, err := c.refresh(ctx, r.Owner)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// UpdateRecord applies a full replacement record under the active edit
// target id. Updating a record deleted by another actor fails with the
// store's error; the caller stays in editing mode.
func (c *Coordinator) UpdateRecord(ctx context.Context, editingID string, r core.Record) (*core.LedgerSnapshot, error) {
	if editingID == "" {
		return nil, ErrNoEditTarget
	}
	if skipSilently(r) {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ledger.UpdateRecord(ctx, editingID, r); err != nil {
		return nil, fmt.Errorf("update record %s: %w", editingID, err)
	}
	r.ID = editingID
	c.publish(ctx, "update", r)

	snap, err := c.refresh(ctx, r.Owner)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// DeleteRecord destroys a record after explicit confirmation. A declined
// confirmation aborts the operation without error; there is no undo
// window.
func (c *Coordinator) DeleteRecord(ctx context.Context, owner, id string, confirm Confirmer) (*core.LedgerSnapshot, error) {
	if confirm == nil || !confirm.Confirm(deletePrompt) {
		slog.DebugContext(ctx, "Record delete declined", "id", id)
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ledger.DeleteRecord(ctx, owner, id); err != nil {
		return nil, fmt.Errorf("delete record %s: %w", id, err)
	}
	c.publish(ctx, "delete", core.Record{ID: id, Owner: owner})

	snap, err := c.refresh(ctx, owner)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Refresh loads a fresh ledger snapshot: accounts, categories, and the
// windowed record list, fetched in parallel.
func (c *Coordinator) Refresh(ctx context.Context, owner string) (core.LedgerSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refresh(ctx, owner)
}

func (c *Coordinator) refresh(ctx context.Context, owner string) (core.LedgerSnapshot, error) {
	var snap core.LedgerSnapshot

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		accounts, err := c.ledger.ListAccounts(ctx, owner)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		snap.Accounts = accounts
		return nil
	})
	g.Go(func() error {
		categories, err := c.ledger.ListCategories(ctx, owner)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		snap.Categories = categories
		return nil
	})
	g.Go(func() error {
		records, err := c.ledger.ListRecords(ctx, owner)
		if err != nil {
			return fmt.Errorf("list records: %w", err)
		}
		snap.Records = records
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.LedgerSnapshot{}, err
	}
	return snap, nil
}

func (c *Coordinator) publish(ctx context.Context, op string, r core.Record) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.PublishRecordEvent(ctx, op, r); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"op", op, "record_id", r.ID, "error", err)
	}
}

// skipSilently implements the create/update validation guard: a missing
// amount, owner, or account makes the whole operation a no-op rather than
// a reported error.
func skipSilently(r core.Record) bool {
	return !r.Amount.IsPositive() || r.Owner == "" || r.AccountID == ""
}
