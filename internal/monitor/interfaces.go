package monitor

import (
	"context"

	"github.com/pauljones0/artist-push-bot/internal/models"
)

// Source fetches one account's current snapshot. Implementations live in
// internal/source; treated as slow and unreliable.
type Source interface {
	FetchAccount(ctx context.Context, accountID string) (*models.AccountSnapshot, error)
}

// Notifier delivers a best-effort out-of-band alert for one novel entry.
type Notifier interface {
	Notify(ctx context.Context, entry models.FeedEntry) error
}

// Broadcaster pushes a feed snapshot to all live subscribers.
type Broadcaster interface {
	Broadcast(snapshot []models.FeedEntry)
}
