package ledger

import (
	"sync"
	"time"
)

// Ledger records which (account, post) pairs have already been surfaced so a
// post re-sent by the upstream source is never fed out twice. Entries are
// bounded per account: once an account holds perAccountCap IDs the oldest is
// evicted first. The cap should be generous relative to per-fetch volume
// (the upstream profile endpoints return at most a dozen posts per call).
type Ledger struct {
	mu            sync.Mutex
	perAccountCap int
	accounts      map[string]*accountLedger
}

type accountLedger struct {
	seen  map[string]time.Time
	order []string // insertion order, oldest first
}

func New(perAccountCap int) *Ledger {
	return &Ledger{
		perAccountCap: perAccountCap,
		accounts:      make(map[string]*accountLedger),
	}
}

// IsNovel reports whether the (accountID, postID) pair has never been
// recorded.
func (l *Ledger) IsNovel(accountID, postID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[accountID]
	if !ok {
		return true
	}
	_, seen := acct.seen[postID]
	return !seen
}

// Record marks the pair as seen at the given instant. Recording an existing
// pair refreshes nothing and is harmless.
func (l *Ledger) Record(accountID, postID string, seenAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[accountID]
	if !ok {
		acct = &accountLedger{seen: make(map[string]time.Time)}
		l.accounts[accountID] = acct
	}
	if _, exists := acct.seen[postID]; exists {
		return
	}
	acct.seen[postID] = seenAt
	acct.order = append(acct.order, postID)
	for len(acct.order) > l.perAccountCap {
		oldest := acct.order[0]
		acct.order = acct.order[1:]
		delete(acct.seen, oldest)
	}
}

// SeenAt returns when the pair was first recorded, if it was.
func (l *Ledger) SeenAt(accountID, postID string) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[accountID]
	if !ok {
		return time.Time{}, false
	}
	t, seen := acct.seen[postID]
	return t, seen
}

// Len reports the total number of recorded pairs across all accounts.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, acct := range l.accounts {
		n += len(acct.seen)
	}
	return n
}
