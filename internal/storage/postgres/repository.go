// Package postgres is the PostgreSQL implementation of the store ports,
// mirroring the SQLite repository's semantics over a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"cashplet/internal/core"
	"cashplet/internal/store"
)

const uniqueViolation = "23505"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL REFERENCES users(id),
		name TEXT NOT NULL,
		balance NUMERIC NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL REFERENCES users(id),
		name TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('expense', 'earning')),
		target NUMERIC NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL REFERENCES users(id),
		amount NUMERIC NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('expense', 'earning')),
		category TEXT NOT NULL DEFAULT '',
		account_id TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_records_owner_created ON records(owner, created_at DESC)`,
}

type Repository struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Repository)(nil)

func NewRepository(ctx context.Context, url string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}

	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) ListRecords(ctx context.Context, owner string) ([]core.Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, amount::text, kind, category, account_id, note, created_at, owner
		FROM records
		WHERE owner = $1
		ORDER BY created_at DESC
		LIMIT $2`, owner, store.RecordFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []core.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *Repository) InsertRecord(ctx context.Context, rec core.Record) (core.Record, error) {
	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO records (id, owner, amount, kind, category, account_id, note, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			rec.ID, rec.Owner, rec.Amount.String(), string(rec.Kind),
			rec.Category, rec.AccountID, rec.Note, rec.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
		return adjustBalance(ctx, tx, rec, false)
	})
	if err != nil {
		return core.Record{}, err
	}
	return rec, nil
}

func (r *Repository) UpdateRecord(ctx context.Context, id string, rec core.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	return r.inTx(ctx, func(tx pgx.Tx) error {
		old, err := recordInTx(ctx, tx, rec.Owner, id)
		if err != nil {
			return err
		}
		if err := adjustBalance(ctx, tx, old, true); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE records
			SET amount = $1, kind = $2, category = $3, account_id = $4, note = $5
			WHERE id = $6 AND owner = $7`,
			rec.Amount.String(), string(rec.Kind), rec.Category,
			rec.AccountID, rec.Note, id, rec.Owner)
		if err != nil {
			return fmt.Errorf("update record: %w", err)
		}

		rec.ID = id
		return adjustBalance(ctx, tx, rec, false)
	})
}

func (r *Repository) DeleteRecord(ctx context.Context, owner, id string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		old, err := recordInTx(ctx, tx, owner, id)
		if err != nil {
			return err
		}
		if err := adjustBalance(ctx, tx, old, true); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `DELETE FROM records WHERE id = $1 AND owner = $2`, id, owner)
		if err != nil {
			return fmt.Errorf("delete record: %w", err)
		}
		return nil
	})
}

func (r *Repository) ListCategories(ctx context.Context, owner string) ([]core.Category, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, kind, target::text, owner
		FROM categories
		WHERE owner = $1
		ORDER BY name ASC`, owner)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		var kind, target string
		if err := rows.Scan(&c.ID, &c.Name, &kind, &target, &c.Owner); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Kind = core.Kind(kind)
		if c.Target, err = decimal.NewFromString(target); err != nil {
			return nil, fmt.Errorf("parse category target %q: %w", target, err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *Repository) InsertCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO categories (id, owner, name, kind, target)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Owner, c.Name, string(c.Kind), c.Target.String())
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

func (r *Repository) DeleteCategory(ctx context.Context, owner, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1 AND owner = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Repository) ListAccounts(ctx context.Context, owner string) ([]core.Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, balance::text, owner
		FROM accounts
		WHERE owner = $1
		ORDER BY name ASC`, owner)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		var balance string
		if err := rows.Scan(&a.ID, &a.Name, &balance, &a.Owner); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		if a.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("parse account balance %q: %w", balance, err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *Repository) InsertAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (id, owner, name, balance)
		VALUES ($1, $2, $3, $4)`,
		a.ID, a.Owner, a.Name, a.Balance.String())
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return a, nil
}

func (r *Repository) DeleteAccount(ctx context.Context, owner, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1 AND owner = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Repository) CreateUser(ctx context.Context, email, passwordHash string) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash)
		VALUES ($1, $2, $3)`, id, email, passwordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", store.ErrDuplicateEmail
		}
		return "", fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (r *Repository) UserByEmail(ctx context.Context, email string) (string, string, error) {
	var id, hash string
	err := r.pool.QueryRow(ctx,
		`SELECT id, password_hash FROM users WHERE email = $1`, email).Scan(&id, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", store.ErrNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("query user: %w", err)
	}
	return id, hash, nil
}

func (r *Repository) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (core.Record, error) {
	var rec core.Record
	var amount, kind string
	err := s.Scan(&rec.ID, &amount, &kind, &rec.Category, &rec.AccountID,
		&rec.Note, &rec.CreatedAt, &rec.Owner)
	if err != nil {
		return core.Record{}, err
	}
	rec.Kind = core.Kind(kind)
	if rec.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Record{}, fmt.Errorf("parse record amount %q: %w", amount, err)
	}
	return rec, nil
}

func recordInTx(ctx context.Context, tx pgx.Tx, owner, id string) (core.Record, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, amount::text, kind, category, account_id, note, created_at, owner
		FROM records
		WHERE id = $1 AND owner = $2`, id, owner)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Record{}, store.ErrNotFound
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("scan record: %w", err)
	}
	return rec, nil
}

// adjustBalance applies a record's effect to its account balance inside
// the mutation's transaction. A dangling account reference is a no-op.
func adjustBalance(ctx context.Context, tx pgx.Tx, rec core.Record, reverse bool) error {
	delta := rec.Amount
	if rec.Kind == core.KindExpense {
		delta = delta.Neg()
	}
	if reverse {
		delta = delta.Neg()
	}

	_, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = balance + $1::numeric WHERE id = $2`,
		delta.String(), rec.AccountID)
	if err != nil {
		return fmt.Errorf("update account balance: %w", err)
	}
	return nil
}
