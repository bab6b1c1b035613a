// Package store defines the ports the ledger engine expects from the
// external data store. The engine never owns storage; it only depends on
// these shapes.
package store

import (
	"context"
	"errors"

	"cashplet/internal/core"
)

// RecordFetchLimit caps every record fetch at the 50 most recent rows.
// Aggregation therefore only ever sees a window of the ledger; the limit
// is part of the port contract, not an implementation detail.
const RecordFetchLimit = 50

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

type (
	// RecordStore is the records collection. ListRecords returns at most
	// RecordFetchLimit rows, newest first. The store maintains the cached
	// account balances as a side effect of every record mutation; callers
	// must re-fetch rather than patch locally.
	RecordStore interface {
		ListRecords(ctx context.Context, owner string) ([]core.Record, error)
		InsertRecord(ctx context.Context, r core.Record) (core.Record, error)
		UpdateRecord(ctx context.Context, id string, r core.Record) error
		DeleteRecord(ctx context.Context, owner, id string) error
	}

	// CategoryStore is the categories collection, ordered by name.
	// Categories are immutable once created; there is no update.
	CategoryStore interface {
		ListCategories(ctx context.Context, owner string) ([]core.Category, error)
		InsertCategory(ctx context.Context, c core.Category) (core.Category, error)
		DeleteCategory(ctx context.Context, owner, id string) error
	}

	// AccountStore is the accounts collection, ordered by name. Deleting
	// an account orphans any records that reference it; the engine
	// resolves those to the unknown-account label.
	AccountStore interface {
		ListAccounts(ctx context.Context, owner string) ([]core.Account, error)
		InsertAccount(ctx context.Context, a core.Account) (core.Account, error)
		DeleteAccount(ctx context.Context, owner, id string) error
	}

	// UserStore persists credentials for the session layer. The stored
	// password is a bcrypt hash, never the plaintext.
	UserStore interface {
		CreateUser(ctx context.Context, email, passwordHash string) (id string, err error)
		UserByEmail(ctx context.Context, email string) (id, passwordHash string, err error)
	}

	// Ledger bundles the three collections every snapshot load touches.
	Ledger interface {
		RecordStore
		CategoryStore
		AccountStore
	}

	// Store is the full external collaborator surface.
	Store interface {
		Ledger
		UserStore
	}
)
