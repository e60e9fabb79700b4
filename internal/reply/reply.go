// Package reply assembles and sends the bot's replies, degrading gracefully
// when the instance pushes back.
package reply

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hollyrath/scrybot/internal/mastodon"
	"github.com/hollyrath/scrybot/internal/media"
)

// MaxAttachments is Mastodon's per-status media limit.
const MaxAttachments = 4

const (
	// rateLimitNotice is appended when media uploads hit the rate limit and
	// the reply goes out without images.
	rateLimitNotice = "(I've been rate limited, so image attachments are temporarily disabled. Sorry!)"

	// oversizedApology replaces a reply the instance rejected as unprocessable,
	// almost always because it blew past the character limit.
	oversizedApology = "Sorry! That answer came out too long for me to post."

	// genericApology is the catch-all for anything else that breaks mid-reply.
	genericApology = "Sorry! You broke me somehow. Please let Holly know what you did!"
)

// Text builds the reply body. A single response line shares the author's
// line; multiple lines go in a block below the mention.
func Text(authorAcct string, lines []string) string {
	mention := "@" + authorAcct
	if len(lines) == 1 {
		return mention + " " + lines[0]
	}
	return mention + "\n\n" + strings.Join(lines, "\n")
}

// Visibility picks the reply scope: never wider than unlisted, and never
// wider than the post being answered.
func Visibility(source mastodon.Visibility) mastodon.Visibility {
	return mastodon.MoreRestrictive(mastodon.VisibilityUnlisted, source)
}

// Draft is one fully assembled reply, ready to send.
type Draft struct {
	AuthorAcct  string
	Lines       []string
	Media       []media.Attachment
	InReplyToID string
	Visibility  mastodon.Visibility
}

// Poster is the posting capability the sender needs from the Mastodon client.
type Poster interface {
	CreateStatus(ctx context.Context, params mastodon.StatusParams) (*mastodon.Status, error)
	UploadMedia(ctx context.Context, data []byte, description string) (string, error)
}

// Sender uploads a draft's media and posts the reply.
type Sender struct {
	poster Poster
}

func NewSender(poster Poster) *Sender {
	return &Sender{poster: poster}
}

// Send delivers a draft. Two failure modes are absorbed here:
//   - media upload rate limited: all media is dropped and a notice line is
//     appended; the text reply still goes out
//   - final post rejected as unprocessable: a short fixed apology is posted
//     instead, same thread and visibility
//
// Any other failure is returned for the caller's event-level apology path.
func (s *Sender) Send(ctx context.Context, draft Draft) error {
	text := Text(draft.AuthorAcct, draft.Lines)

	var mediaIDs []string
	for _, att := range draft.Media {
		id, err := s.poster.UploadMedia(ctx, att.Bytes, att.Description)
		if err != nil {
			if mastodon.IsRateLimit(err) {
				slog.Warn("media upload rate limited, sending reply without images")
				mediaIDs = nil
				text += "\n\n" + rateLimitNotice
				break
			}
			return fmt.Errorf("reply: upload media: %w", err)
		}
		mediaIDs = append(mediaIDs, id)
	}

	_, err := s.poster.CreateStatus(ctx, mastodon.StatusParams{
		Status:      text,
		MediaIDs:    mediaIDs,
		InReplyToID: draft.InReplyToID,
		Visibility:  draft.Visibility,
	})
	if err == nil {
		return nil
	}
	if !mastodon.IsUnprocessable(err) {
		return fmt.Errorf("reply: post: %w", err)
	}

	// Too long for the instance. No truncate-and-retry games; apologize briefly.
	slog.Warn("reply rejected as unprocessable, posting apology", "error", err)
	return s.sendFixed(ctx, oversizedApology, draft.AuthorAcct, draft.InReplyToID, draft.Visibility)
}

// SendApology posts the generic failure apology, threaded and scoped like the
// reply it replaces.
func (s *Sender) SendApology(ctx context.Context, authorAcct, inReplyToID string, visibility mastodon.Visibility) error {
	return s.sendFixed(ctx, genericApology, authorAcct, inReplyToID, visibility)
}

func (s *Sender) sendFixed(ctx context.Context, message, authorAcct, inReplyToID string, visibility mastodon.Visibility) error {
	_, err := s.poster.CreateStatus(ctx, mastodon.StatusParams{
		Status:      "@" + authorAcct + " " + message,
		InReplyToID: inReplyToID,
		Visibility:  visibility,
	})
	if err != nil {
		return fmt.Errorf("reply: post apology: %w", err)
	}
	return nil
}
