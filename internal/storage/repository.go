// Package storage is the SQLite implementation of the store ports.
// Amounts are stored as decimal strings and balance maintenance happens
// inside the same transaction as the record mutation.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"cashplet/internal/core"
	"cashplet/internal/store"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// ListRecords returns the owner's records newest first, capped at
// store.RecordFetchLimit.
func (r *SQLiteRepository) ListRecords(ctx context.Context, owner string) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, amount, kind, category, account_id, note, created_at, owner
		FROM records
		WHERE owner = ?
		ORDER BY created_at DESC
		LIMIT ?`, owner, store.RecordFetchLimit)
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

func (r *SQLiteRepository) InsertRecord(ctx context.Context, rec core.Record) (core.Record, error) {
	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO records (id, owner, amount, kind, category, account_id, note, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
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

// UpdateRecord replaces the record wholesale, settling the old amount
// back to its account before applying the new one.
func (r *SQLiteRepository) UpdateRecord(ctx context.Context, id string, rec core.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		old, err := recordInTx(ctx, tx, rec.Owner, id)
		if err != nil {
			return err
		}
		if err := adjustBalance(ctx, tx, old, true); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE records
			SET amount = ?, kind = ?, category = ?, account_id = ?, note = ?
			WHERE id = ? AND owner = ?`,
			rec.Amount.String(), string(rec.Kind), rec.Category,
			rec.AccountID, rec.Note, id, rec.Owner)
		if err != nil {
			return fmt.Errorf("update record: %w", err)
		}

		rec.ID = id
		return adjustBalance(ctx, tx, rec, false)
	})
}

func (r *SQLiteRepository) DeleteRecord(ctx context.Context, owner, id string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		old, err := recordInTx(ctx, tx, owner, id)
		if err != nil {
			return err
		}
		if err := adjustBalance(ctx, tx, old, true); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM records WHERE id = ? AND owner = ?`, id, owner)
		if err != nil {
			return fmt.Errorf("delete record: %w", err)
		}
		return nil
	})
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, owner string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, kind, target, owner
		FROM categories
		WHERE owner = ?
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

func (r *SQLiteRepository) InsertCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, owner, name, kind, target)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Owner, c.Name, string(c.Kind), c.Target.String())
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

// DeleteCategory removes the category only. Records keep the
// denormalized category name they were written with.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, owner, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, owner string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, balance, owner
		FROM accounts
		WHERE owner = ?
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

func (r *SQLiteRepository) InsertAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, owner, name, balance)
		VALUES (?, ?, ?, ?)`,
		a.ID, a.Owner, a.Name, a.Balance.String())
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return a, nil
}

// DeleteAccount removes the account, leaving any records that reference
// it dangling.
func (r *SQLiteRepository) DeleteAccount(ctx context.Context, owner, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, email, passwordHash string) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash)
		VALUES (?, ?, ?)`, id, email, passwordHash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return "", store.ErrDuplicateEmail
		}
		return "", fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (string, string, error) {
	var id, hash string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, password_hash FROM users WHERE email = ?`, email).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", store.ErrNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("query user: %w", err)
	}
	return id, hash, nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
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
		return core.Record{}, fmt.Errorf("scan record: %w", err)
	}
	rec.Kind = core.Kind(kind)
	if rec.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Record{}, fmt.Errorf("parse record amount %q: %w", amount, err)
	}
	return rec, nil
}

func recordInTx(ctx context.Context, tx *sql.Tx, owner, id string) (core.Record, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, amount, kind, category, account_id, note, created_at, owner
		FROM records
		WHERE id = ? AND owner = ?`, id, owner)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, store.ErrNotFound
	}
	return rec, err
}

// adjustBalance applies a record's effect to its account balance:
// expenses subtract, earnings add, reverse settles a removed record
// back. A dangling account reference is a no-op.
func adjustBalance(ctx context.Context, tx *sql.Tx, rec core.Record, reverse bool) error {
	var balance string
	err := tx.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE id = ?`, rec.AccountID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read account balance: %w", err)
	}

	current, err := decimal.NewFromString(balance)
	if err != nil {
		return fmt.Errorf("parse account balance %q: %w", balance, err)
	}

	delta := rec.Amount
	if rec.Kind == core.KindExpense {
		delta = delta.Neg()
	}
	if reverse {
		delta = delta.Neg()
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE accounts SET balance = ? WHERE id = ?`,
		current.Add(delta).String(), rec.AccountID)
	if err != nil {
		return fmt.Errorf("update account balance: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
