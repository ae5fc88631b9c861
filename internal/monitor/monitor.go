// Package monitor runs the polling pipeline: on a fixed cadence (and on
// manual trigger) it snapshots the account registry, fetches every account,
// filters out posts already recorded in the ledger, and fans novel entries
// out to the feed store, the notifier and the websocket gateway.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pauljones0/artist-push-bot/internal/feed"
	"github.com/pauljones0/artist-push-bot/internal/ledger"
	"github.com/pauljones0/artist-push-bot/internal/models"
	"github.com/pauljones0/artist-push-bot/internal/registry"
)

// ErrCycleRunning is returned by TriggerNow while a cycle is in flight.
// Triggers are rejected rather than queued; the next scheduled cycle is
// never far away.
var ErrCycleRunning = errors.New("a monitoring cycle is already running")

const notifyTimeout = 30 * time.Second

type Options struct {
	PollInterval     time.Duration
	FetchTimeout     time.Duration
	FetchConcurrency int
}

// Monitor owns the registry, ledger and feed store; every write to the
// ledger and feed goes through runCycle, which holds cycleMu for its whole
// duration. That single-writer discipline is what makes the novelty
// check-then-record step safe.
type Monitor struct {
	registry *registry.Registry
	ledger   *ledger.Ledger
	feed     *feed.Store
	source   Source
	notifier Notifier
	gateway  Broadcaster
	opts     Options

	cycleMu sync.Mutex
}

func New(reg *registry.Registry, led *ledger.Ledger, store *feed.Store, src Source, n Notifier, gw Broadcaster, opts Options) *Monitor {
	return &Monitor{
		registry: reg,
		ledger:   led,
		feed:     store,
		source:   src,
		notifier: n,
		gateway:  gw,
		opts:     opts,
	}
}

// Run performs an immediate cycle and then one per poll interval until the
// context is cancelled. In-flight per-account fetches finish or time out
// before Run returns.
func (m *Monitor) Run(ctx context.Context) {
	slog.Info("Monitor started", "interval", m.opts.PollInterval)
	m.runScheduled(ctx)

	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("Monitor stopped")
			return
		case <-ticker.C:
			m.runScheduled(ctx)
		}
	}
}

func (m *Monitor) runScheduled(ctx context.Context) {
	if !m.cycleMu.TryLock() {
		// A manual trigger is still in flight; this tick's work will be
		// picked up by the next one.
		slog.Warn("Skipping scheduled cycle, another cycle is running")
		return
	}
	defer m.cycleMu.Unlock()
	m.runCycle(ctx)
}

// TriggerNow runs a cycle on demand, rejecting with ErrCycleRunning if one
// is already in flight.
func (m *Monitor) TriggerNow(ctx context.Context) (models.CycleSummary, error) {
	if !m.cycleMu.TryLock() {
		return models.CycleSummary{}, ErrCycleRunning
	}
	defer m.cycleMu.Unlock()
	return m.runCycle(ctx), nil
}

// runCycle executes one full monitoring pass. Caller must hold cycleMu.
//
// Ordering policy: accounts are processed in registry snapshot order
// (lexicographic), posts in source-returned order, and the resulting batch
// is prepended to the feed as-is — deterministic for a given set of
// snapshots.
func (m *Monitor) runCycle(ctx context.Context) models.CycleSummary {
	start := time.Now().UTC()
	accounts := m.registry.List()
	summary := models.CycleSummary{StartedAt: start, AccountsAttempted: len(accounts)}

	if len(accounts) == 0 {
		slog.Info("No accounts to monitor")
		summary.Duration = time.Since(start)
		return summary
	}

	// Fetches are independent until the novelty check, so they run
	// concurrently; results land in per-account slots, no shared state.
	type fetchResult struct {
		snap *models.AccountSnapshot
		err  error
	}
	results := make([]fetchResult, len(accounts))

	var g errgroup.Group
	g.SetLimit(m.opts.FetchConcurrency)
	for i, accountID := range accounts {
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, m.opts.FetchTimeout)
			defer cancel()
			snap, err := m.source.FetchAccount(fetchCtx, accountID)
			results[i] = fetchResult{snap: snap, err: err}
			return nil
		})
	}
	g.Wait()

	// Novelty check and record, serialized. seenAt is the cycle start so
	// every entry from one cycle carries the same instant.
	var batch []models.FeedEntry
	for i, accountID := range accounts {
		res := results[i]
		if res.err != nil {
			slog.Warn("Fetch failed, skipping account for this cycle", "account", accountID, "error", res.err)
			summary.AccountsFailed++
			continue
		}
		for _, post := range res.snap.Posts {
			if post.ID == "" {
				slog.Warn("Skipping post without ID", "account", accountID)
				continue
			}
			if !m.ledger.IsNovel(accountID, post.ID) {
				continue
			}
			m.ledger.Record(accountID, post.ID, start)
			batch = append(batch, models.NewFeedEntry(post, res.snap, start))
		}
	}
	summary.NewPosts = len(batch)

	if len(batch) > 0 {
		m.feed.Prepend(batch)
		for _, entry := range batch {
			notifyCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
			if err := m.notifier.Notify(notifyCtx, entry); err != nil {
				slog.Warn("Notification failed", "account", entry.AccountID, "post", entry.PostID, "error", err)
			}
			cancel()
		}
		m.gateway.Broadcast(m.feed.Snapshot())
	}

	summary.Duration = time.Since(start)
	slog.Info("Cycle finished",
		"attempted", summary.AccountsAttempted,
		"failed", summary.AccountsFailed,
		"new", summary.NewPosts,
		"duration", summary.Duration)
	return summary
}

// FeedSnapshot returns the current feed contents, newest first.
func (m *Monitor) FeedSnapshot() []models.FeedEntry {
	return m.feed.Snapshot()
}

// AddAccount registers an account for monitoring from the next cycle on.
func (m *Monitor) AddAccount(raw string) (string, error) {
	return m.registry.Add(raw)
}

// RemoveAccount stops monitoring an account from the next cycle on.
func (m *Monitor) RemoveAccount(accountID string) error {
	return m.registry.Remove(accountID)
}

// Accounts lists the monitored account IDs, sorted.
func (m *Monitor) Accounts() []string {
	return m.registry.List()
}
