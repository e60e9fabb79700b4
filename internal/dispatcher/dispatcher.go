// Package dispatcher consumes the user event stream and drives the
// lookup-and-reply pipeline for each qualifying post.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hollyrath/scrybot/internal/cards"
	"github.com/hollyrath/scrybot/internal/mastodon"
	"github.com/hollyrath/scrybot/internal/media"
	"github.com/hollyrath/scrybot/internal/reply"
)

// defaultEventTimeout bounds one event's whole pipeline so a stalled external
// call cannot starve the stream loop.
const defaultEventTimeout = 60 * time.Second

// seenStatusCap bounds the remembered status ids. A mention from a followed
// account arrives twice, as an update and as a mention notification, so
// replies are deduped by status id. The window lives in memory only and
// resets on restart.
const seenStatusCap = 256

// Follower is the follow-back capability used for follow notifications.
type Follower interface {
	Follow(ctx context.Context, accountID string) error
}

// Dispatcher routes stream events: card lookups for statuses that mention the
// bot, follow-backs for new followers, warnings for everything else.
type Dispatcher struct {
	self         mastodon.Account
	follower     Follower
	resolver     *cards.Resolver
	composer     *media.Composer
	sender       *reply.Sender
	eventTimeout time.Duration

	// Touched only from the dispatch loop, so no lock.
	seen      map[string]struct{}
	seenOrder []string
}

// New creates a dispatcher for the given bot account.
func New(self mastodon.Account, follower Follower, resolver *cards.Resolver, composer *media.Composer, sender *reply.Sender) *Dispatcher {
	return &Dispatcher{
		self:         self,
		follower:     follower,
		resolver:     resolver,
		composer:     composer,
		sender:       sender,
		eventTimeout: defaultEventTimeout,
		seen:         make(map[string]struct{}),
	}
}

// SetEventTimeout overrides the per-event pipeline timeout.
func (d *Dispatcher) SetEventTimeout(timeout time.Duration) {
	if timeout > 0 {
		d.eventTimeout = timeout
	}
}

// Run consumes events until the channel closes or the context is cancelled.
// No event, however malformed, takes the loop down.
func (d *Dispatcher) Run(ctx context.Context, events <-chan mastodon.StreamEvent) {
	slog.Info("dispatcher listening")
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				slog.Info("event stream closed, dispatcher stopping")
				return
			}
			d.dispatch(ctx, ev)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, ev mastodon.StreamEvent) {
	switch ev.Type {
	case mastodon.EventUpdate:
		s := ev.Status
		if s == nil || s.Reblog != nil || !s.MentionsAccount(d.self.ID) {
			return
		}
		d.handleStatus(ctx, s)

	case mastodon.EventNotification:
		n := ev.Notification
		if n == nil {
			return
		}
		switch n.Type {
		case mastodon.NotificationFollow:
			d.followBack(ctx, n.Account)
		case mastodon.NotificationMention:
			if n.Status == nil || n.Status.Reblog != nil {
				return
			}
			d.handleStatus(ctx, n.Status)
		default:
			slog.Debug("ignoring notification", "type", n.Type)
		}

	default:
		slog.Warn("unhandled stream event", "type", ev.Type, "payload", string(ev.Raw))
	}
}

func (d *Dispatcher) followBack(ctx context.Context, account mastodon.Account) {
	if err := d.follower.Follow(ctx, account.ID); err != nil {
		// The reconciler picks this up on its next cycle.
		slog.Error("follow-back failed", "account", account.Acct, "error", err)
		return
	}
	slog.Info("followed back", "account", account.Acct)
}

// handleStatus runs the full parse → resolve → compose → reply pipeline for
// one post. Every failure past parsing collapses into the apology reply; a
// post with no references is silently skipped.
func (d *Dispatcher) handleStatus(ctx context.Context, status *mastodon.Status) {
	refs := cards.ParseReferences(status.Content)
	if len(refs) == 0 {
		return
	}
	if d.alreadyAnswered(status.ID) {
		slog.Debug("status already answered", "status", status.ID)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, d.eventTimeout)
	defer cancel()

	author := status.Account.Acct
	visibility := reply.Visibility(status.Visibility)

	if err := d.answer(ctx, status, refs); err != nil {
		slog.Error("reply pipeline failed", "status", status.ID, "author", author, "error", err)
		if apoErr := d.sender.SendApology(ctx, author, status.ID, visibility); apoErr != nil {
			slog.Error("apology reply failed", "status", status.ID, "error", apoErr)
		}
	}
}

// alreadyAnswered records the status id and reports whether it was seen
// before. The oldest id falls out of the window once the cap is reached.
func (d *Dispatcher) alreadyAnswered(id string) bool {
	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = struct{}{}
	d.seenOrder = append(d.seenOrder, id)
	if len(d.seenOrder) > seenStatusCap {
		delete(d.seen, d.seenOrder[0])
		d.seenOrder = d.seenOrder[1:]
	}
	return false
}

func (d *Dispatcher) answer(ctx context.Context, status *mastodon.Status, refs []cards.RawReference) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatcher: pipeline panic: %v", r)
		}
	}()

	resolutions, err := d.resolver.Resolve(ctx, refs)
	if err != nil {
		return err
	}

	var attachments []media.Attachment
	if found := cards.Found(resolutions); len(found) >= 1 && len(found) <= reply.MaxAttachments {
		attachments, err = d.composer.Compose(ctx, found)
		if err != nil {
			return err
		}
	}

	slog.Info("sending reply", "status", status.ID, "references", len(refs), "attachments", len(attachments))
	return d.sender.Send(ctx, reply.Draft{
		AuthorAcct:  status.Account.Acct,
		Lines:       cards.Lines(resolutions),
		Media:       attachments,
		InReplyToID: status.ID,
		Visibility:  reply.Visibility(status.Visibility),
	})
}
