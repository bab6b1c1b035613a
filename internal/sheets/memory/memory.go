// Package memory is an in-memory RecordMirror used by tests.
package memory

import (
	"context"
	"sync"

	"cashplet/internal/sheets"
)

type Mirror struct {
	mu   sync.Mutex
	rows []sheets.Row

	// FailWith, when set, is returned by every MirrorRow call.
	FailWith error
}

var _ sheets.RecordMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

func (m *Mirror) MirrorRow(_ context.Context, row sheets.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return m.FailWith
	}
	m.rows = append(m.rows, row)
	return nil
}

// Rows returns a copy of everything mirrored so far.
func (m *Mirror) Rows() []sheets.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sheets.Row(nil), m.rows...)
}
