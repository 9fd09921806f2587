package feed

import "sync"

// Ledger holds the session-scoped vote overlay. Votes recorded here are
// merged on top of the projected poll state for the current process lifetime
// only; they are deliberately never written back to the log or to any store,
// so a restart discards them.
type Ledger struct {
	mu     sync.Mutex
	voted  map[string]map[string]string // viewer -> pollID -> option
	counts map[string]map[string]int    // pollID -> option -> overlay count
}

func NewLedger() *Ledger {
	return &Ledger{
		voted:  make(map[string]map[string]string),
		counts: make(map[string]map[string]int),
	}
}

// Vote records one vote by viewer on pollID. A second vote by the same
// viewer on the same poll is a no-op, whatever the option. Returns whether
// the vote was counted.
func (l *Ledger) Vote(viewer, pollID, option string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.voted[viewer][pollID]; ok {
		return false
	}
	if l.voted[viewer] == nil {
		l.voted[viewer] = make(map[string]string)
	}
	l.voted[viewer][pollID] = option

	if l.counts[pollID] == nil {
		l.counts[pollID] = make(map[string]int)
	}
	l.counts[pollID][option]++
	return true
}

// Voted reports the option viewer picked on pollID, if any.
func (l *Ledger) Voted(viewer, pollID string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	opt, ok := l.voted[viewer][pollID]
	return opt, ok
}

// Apply merges the overlay counts into freshly projected items. Safe because
// each projection pass builds its own poll views.
func (l *Ledger) Apply(items []Item) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, it := range items {
		if !it.IsPoll {
			continue
		}
		for opt, n := range l.counts[it.Poll.ID] {
			it.Poll.Votes[opt] += n
		}
	}
}
