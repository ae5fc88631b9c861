package registry

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrInvalidUsername is returned when a raw username normalizes to nothing.
var ErrInvalidUsername = errors.New("invalid username")

// ErrNotFound is returned when removing an account that isn't monitored.
var ErrNotFound = errors.New("account not found")

// Registry is the mutable set of accounts being monitored. It may be changed
// at any time; a running cycle operates on the snapshot List returned at
// cycle start, so mid-cycle changes only affect subsequent cycles.
type Registry struct {
	mu       sync.RWMutex
	accounts map[string]struct{}
}

func New() *Registry {
	return &Registry{accounts: make(map[string]struct{})}
}

// Normalize canonicalizes a raw username: trims whitespace, strips one
// leading "@" and lowercases. Usernames are case-insensitive on Instagram.
func Normalize(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	name = strings.TrimPrefix(name, "@")
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", ErrInvalidUsername
	}
	return name, nil
}

// Add registers an account and returns its canonical ID. Adding an account
// that is already monitored succeeds without changing anything.
func (r *Registry) Add(raw string) (string, error) {
	id, err := Normalize(raw)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[id] = struct{}{}
	return id, nil
}

// Remove stops monitoring an account. Already-surfaced posts are untouched;
// only future polling stops.
func (r *Registry) Remove(accountID string) error {
	id, err := Normalize(accountID)
	if err != nil {
		return ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return ErrNotFound
	}
	delete(r.accounts, id)
	return nil
}

// List returns the monitored account IDs, sorted so cycle iteration order is
// deterministic.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.accounts))
	for id := range r.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len reports the number of monitored accounts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts)
}
