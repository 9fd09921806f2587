package chain

import (
	"context"
	"fmt"
	"sync"
)

// MemLog is an in-process Log used by tests and dev mode. It honours the
// same contract as the real log: append-only, indexes assigned by insertion
// order, deletes are soft.
type MemLog struct {
	chainID string

	mu      sync.Mutex
	entries []Entry
}

func NewMemLog(chainID string) *MemLog {
	return &MemLog{chainID: chainID}
}

func (l *MemLog) ChainID(ctx context.Context) (string, error) {
	return l.chainID, nil
}

func (l *MemLog) Append(ctx context.Context, author, text, cid string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := uint64(len(l.entries))
	l.entries = append(l.entries, Entry{
		Index:  idx,
		Author: author,
		Text:   text,
		CID:    cid,
	})
	return idx, nil
}

func (l *MemLog) MarkDeleted(ctx context.Context, index uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index >= uint64(len(l.entries)) {
		return fmt.Errorf("memlog: no entry %d", index)
	}
	l.entries[index].Deleted = true
	return nil
}

func (l *MemLog) ReadAll(ctx context.Context) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out, nil
}
