// Package reconciler keeps the bot's follow list in sync with its followers.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hollyrath/scrybot/internal/mastodon"
)

// DefaultInterval between reconciliation cycles.
const DefaultInterval = 5 * time.Minute

// API is the slice of the Mastodon client the reconciler uses.
type API interface {
	Followers(ctx context.Context, accountID string) ([]mastodon.Account, error)
	Following(ctx context.Context, accountID string) ([]mastodon.Account, error)
	Follow(ctx context.Context, accountID string) error
	Unfollow(ctx context.Context, accountID string) error
}

// Reconciler periodically follows everyone who follows the bot and unfollows
// everyone who stopped. Each cycle works from fresh follower/following
// snapshots, so a follow-back missed by the dispatcher self-heals here.
type Reconciler struct {
	api      API
	selfID   string
	interval time.Duration
}

func New(api API, selfID string, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reconciler{api: api, selfID: selfID, interval: interval}
}

// Run cycles until the context is cancelled. The interval timer races the
// cycle itself: a cycle that overruns the interval is followed immediately by
// the next one, but two cycles never overlap.
func (r *Reconciler) Run(ctx context.Context) {
	slog.Info("follower reconciler started", "interval", r.interval)
	for {
		timer := time.NewTimer(r.interval)

		if err := r.Cycle(ctx); err != nil {
			slog.Error("reconciliation cycle failed", "error", err)
		}

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// Cycle runs one reconciliation pass.
func (r *Reconciler) Cycle(ctx context.Context) error {
	slog.Debug("updating followed accounts")

	var followers, following []mastodon.Account
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		accounts, err := r.api.Followers(gctx, r.selfID)
		followers = accounts
		return err
	})
	g.Go(func() error {
		accounts, err := r.api.Following(gctx, r.selfID)
		following = accounts
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("reconciler: fetch account lists: %w", err)
	}

	followingMe := idSet(followers)
	iFollow := idSet(following)

	toFollow := diff(followingMe, iFollow)
	toUnfollow := diff(iFollow, followingMe)

	if len(toFollow) == 0 && len(toUnfollow) == 0 {
		slog.Debug("follow lists already in sync")
		return nil
	}

	// Failed calls are just logged; the next cycle retries them for free.
	for _, id := range toFollow {
		if err := r.api.Follow(ctx, id); err != nil {
			slog.Error("follow failed", "account", id, "error", err)
			continue
		}
		slog.Info("followed", "account", id)
	}
	for _, id := range toUnfollow {
		if err := r.api.Unfollow(ctx, id); err != nil {
			slog.Error("unfollow failed", "account", id, "error", err)
			continue
		}
		slog.Info("unfollowed", "account", id)
	}
	return nil
}

func idSet(accounts []mastodon.Account) map[string]struct{} {
	set := make(map[string]struct{}, len(accounts))
	for _, a := range accounts {
		set[a.ID] = struct{}{}
	}
	return set
}

// diff returns a−b, sorted for stable logging.
func diff(a, b map[string]struct{}) []string {
	var out []string
	for id := range a {
		if _, ok := b[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
