// Package memory is an in-memory implementation of the store ports, used
// by tests and the "memory" backend.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"cashplet/internal/core"
	"cashplet/internal/store"
)

type Store struct {
	mu         sync.Mutex
	records    []core.Record
	categories []core.Category
	accounts   []core.Account
	users      map[string]user // keyed by email
}

type user struct {
	id           string
	passwordHash string
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{users: make(map[string]user)}
}

// ListRecords returns the owner's records newest first, capped at
// store.RecordFetchLimit.
func (s *Store) ListRecords(_ context.Context, owner string) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Record
	for _, r := range s.records {
		if r.Owner == owner {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > store.RecordFetchLimit {
		out = out[:store.RecordFetchLimit]
	}
	return out, nil
}

func (s *Store) InsertRecord(_ context.Context, r core.Record) (core.Record, error) {
	if err := r.Validate(); err != nil {
		return core.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	s.records = append(s.records, r)
	s.applyBalance(r, false)
	return r, nil
}

func (s *Store) UpdateRecord(_ context.Context, id string, r core.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, old := range s.records {
		if old.ID == id && old.Owner == r.Owner {
			s.applyBalance(old, true) // settle the old amount back
			r.ID = id
			r.CreatedAt = old.CreatedAt
			s.records[i] = r
			s.applyBalance(r, false)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) DeleteRecord(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.records {
		if r.ID == id && r.Owner == owner {
			s.applyBalance(r, true)
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// applyBalance mirrors the server-side balance trigger: expenses subtract
// from the account, earnings add, and reverse=true settles a removed
// record back. Records referencing a deleted account are a no-op.
func (s *Store) applyBalance(r core.Record, reverse bool) {
	for i, a := range s.accounts {
		if a.ID != r.AccountID {
			continue
		}
		delta := r.Amount
		if r.Kind == core.KindExpense {
			delta = delta.Neg()
		}
		if reverse {
			delta = delta.Neg()
		}
		s.accounts[i].Balance = a.Balance.Add(delta)
		return
	}
}

func (s *Store) ListCategories(_ context.Context, owner string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Category
	for _, c := range s.categories {
		if c.Owner == owner {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) InsertCategory(_ context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.categories = append(s.categories, c)
	return c, nil
}

// DeleteCategory removes the category only. Existing records keep their
// denormalized category name.
func (s *Store) DeleteCategory(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.categories {
		if c.ID == id && c.Owner == owner {
			s.categories = append(s.categories[:i], s.categories[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) ListAccounts(_ context.Context, owner string) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Account
	for _, a := range s.accounts {
		if a.Owner == owner {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) InsertAccount(_ context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.accounts = append(s.accounts, a)
	return a, nil
}

// DeleteAccount removes the account, leaving any records that reference it
// dangling.
func (s *Store) DeleteAccount(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, a := range s.accounts {
		if a.ID == id && a.Owner == owner {
			s.accounts = append(s.accounts[:i], s.accounts[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) CreateUser(_ context.Context, email, passwordHash string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[email]; ok {
		return "", store.ErrDuplicateEmail
	}
	id := uuid.NewString()
	s.users[email] = user{id: id, passwordHash: passwordHash}
	return id, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[email]
	if !ok {
		return "", "", store.ErrNotFound
	}
	return u.id, u.passwordHash, nil
}
