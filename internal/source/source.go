// Package source provides the snapshot source strategies: the public
// Instagram endpoints, a headless-browser variant, and a mock generator.
// Exactly one strategy is selected per deployment; the mock may additionally
// be declared as an explicit fallback.
package source

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pauljones0/artist-push-bot/internal/models"
)

// ErrNoData is returned when a fetch succeeds mechanically but yields no
// usable profile data for the account.
var ErrNoData = errors.New("no profile data for account")

// Source fetches the current snapshot of one account's recent posts.
type Source interface {
	FetchAccount(ctx context.Context, accountID string) (*models.AccountSnapshot, error)
}

// WithMockFallback wraps a primary source so that a failed fetch substitutes
// generated data instead of failing the account. The substitution is logged
// loudly every time; it exists for demos, not production.
func WithMockFallback(primary Source, mock *MockGenerator) Source {
	return &fallbackSource{primary: primary, mock: mock}
}

type fallbackSource struct {
	primary Source
	mock    *MockGenerator
}

func (f *fallbackSource) FetchAccount(ctx context.Context, accountID string) (*models.AccountSnapshot, error) {
	snap, err := f.primary.FetchAccount(ctx, accountID)
	if err == nil {
		return snap, nil
	}
	slog.Warn("Primary source failed, substituting mock data", "account", accountID, "error", err)
	return f.mock.FetchAccount(ctx, accountID)
}
