// Package chain is the boundary to the on-chain siv log. The log itself is
// an external collaborator: this package only defines the consuming surface
// plus two implementations of it, a websocket gateway bridge for production
// and an in-memory log for tests and dev mode.
package chain

import "context"

// Entry is one record of the append-only log. Entries are immutable once
// appended; only the soft-delete flag ever changes.
type Entry struct {
	Index   uint64 `json:"index"`
	Author  string `json:"author"`
	Text    string `json:"text"`
	CID     string `json:"cid"` // empty for legacy entries with no off-chain copy
	Deleted bool   `json:"deleted"`
}

// Log is the consuming surface of the siv log. Append blocks until the write
// is final: a caller seeing a nil error must be able to read the entry back
// immediately. The author is passed explicitly rather than taken from any
// ambient signer; the gateway owns the signing key.
type Log interface {
	ChainID(ctx context.Context) (string, error)
	Append(ctx context.Context, author, text, cid string) (uint64, error)
	MarkDeleted(ctx context.Context, index uint64) error
	ReadAll(ctx context.Context) ([]Entry, error)
}
