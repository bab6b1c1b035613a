// Package sheets defines the port for mirroring ledger mutations to an
// external spreadsheet.
package sheets

import (
	"context"
	"time"
)

// Row is one mirrored ledger mutation, already flattened to strings.
type Row struct {
	Op        string
	RecordID  string
	Owner     string
	Amount    string
	Kind      string
	Category  string
	AccountID string
	Note      string
	Timestamp time.Time
}

// RecordMirror appends ledger mutations somewhere durable. Implementations
// must be safe for concurrent use.
type RecordMirror interface {
	MirrorRow(ctx context.Context, row Row) error
}
