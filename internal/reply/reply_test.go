package reply

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/hollyrath/scrybot/internal/mastodon"
	"github.com/hollyrath/scrybot/internal/media"
)

func TestText(t *testing.T) {
	t.Run("single line shares the mention line", func(t *testing.T) {
		got := Text("author", []string{"Black Lotus - https://scryfall.com/bl"})
		want := "@author Black Lotus - https://scryfall.com/bl"
		if got != want {
			t.Errorf("Text = %q, want %q", got, want)
		}
	})

	t.Run("multiple lines go in a block", func(t *testing.T) {
		got := Text("author", []string{"line one", "line two", "line three"})
		want := "@author\n\nline one\nline two\nline three"
		if got != want {
			t.Errorf("Text = %q, want %q", got, want)
		}
	})
}

func TestVisibility(t *testing.T) {
	tests := []struct {
		source, want mastodon.Visibility
	}{
		{mastodon.VisibilityPublic, mastodon.VisibilityUnlisted},
		{mastodon.VisibilityUnlisted, mastodon.VisibilityUnlisted},
		{mastodon.VisibilityPrivate, mastodon.VisibilityPrivate},
		{mastodon.VisibilityDirect, mastodon.VisibilityDirect},
	}
	for _, tt := range tests {
		if got := Visibility(tt.source); got != tt.want {
			t.Errorf("Visibility(%s) = %s, want %s", tt.source, got, tt.want)
		}
	}
}

// fakePoster records uploads and posts, with scriptable failures.
type fakePoster struct {
	uploadErr error
	postErr   error
	uploads   []string // descriptions in upload order
	posted    []mastodon.StatusParams
}

func (f *fakePoster) UploadMedia(ctx context.Context, data []byte, description string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads = append(f.uploads, description)
	return "media-" + description, nil
}

func (f *fakePoster) CreateStatus(ctx context.Context, params mastodon.StatusParams) (*mastodon.Status, error) {
	if f.postErr != nil {
		err := f.postErr
		f.postErr = nil
		return nil, err
	}
	f.posted = append(f.posted, params)
	return &mastodon.Status{ID: "new"}, nil
}

func draft(atts ...media.Attachment) Draft {
	return Draft{
		AuthorAcct:  "author",
		Lines:       []string{"a line"},
		Media:       atts,
		InReplyToID: "55",
		Visibility:  mastodon.VisibilityUnlisted,
	}
}

func TestSend_AttachesMediaInOrder(t *testing.T) {
	poster := &fakePoster{}
	d := draft(
		media.Attachment{Bytes: []byte("1"), Description: "one"},
		media.Attachment{Bytes: []byte("2"), Description: "two"},
	)
	if err := NewSender(poster).Send(context.Background(), d); err != nil {
		t.Fatal(err)
	}

	if len(poster.posted) != 1 {
		t.Fatalf("posted %d statuses, want 1", len(poster.posted))
	}
	p := poster.posted[0]
	if want := []string{"media-one", "media-two"}; len(p.MediaIDs) != 2 || p.MediaIDs[0] != want[0] || p.MediaIDs[1] != want[1] {
		t.Errorf("MediaIDs = %v, want %v", p.MediaIDs, want)
	}
	if p.InReplyToID != "55" || p.Visibility != mastodon.VisibilityUnlisted {
		t.Errorf("params = %+v", p)
	}
}

func TestSend_RateLimitedUploadDegrades(t *testing.T) {
	poster := &fakePoster{uploadErr: &mastodon.APIError{Status: http.StatusTooManyRequests, Message: "slow down"}}
	if err := NewSender(poster).Send(context.Background(), draft(media.Attachment{Bytes: []byte("1")})); err != nil {
		t.Fatal(err)
	}

	p := poster.posted[0]
	if len(p.MediaIDs) != 0 {
		t.Errorf("media ids should be dropped, got %v", p.MediaIDs)
	}
	if !strings.Contains(p.Status, "rate limited") {
		t.Errorf("reply should carry the rate-limit notice, got %q", p.Status)
	}
	if !strings.HasPrefix(p.Status, "@author a line") {
		t.Errorf("original response line should survive, got %q", p.Status)
	}
}

func TestSend_OtherUploadFailurePropagates(t *testing.T) {
	boom := errors.New("disk full")
	poster := &fakePoster{uploadErr: boom}
	err := NewSender(poster).Send(context.Background(), draft(media.Attachment{Bytes: []byte("1")}))
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
	if len(poster.posted) != 0 {
		t.Error("nothing should be posted; the event boundary owns the apology")
	}
}

func TestSend_UnprocessablePostsApology(t *testing.T) {
	poster := &fakePoster{postErr: &mastodon.APIError{Status: http.StatusUnprocessableEntity, Message: "too long"}}
	if err := NewSender(poster).Send(context.Background(), draft()); err != nil {
		t.Fatal(err)
	}

	if len(poster.posted) != 1 {
		t.Fatalf("posted %d statuses, want the apology only", len(poster.posted))
	}
	p := poster.posted[0]
	if !strings.HasPrefix(p.Status, "@author ") || !strings.Contains(p.Status, "too long") {
		t.Errorf("apology = %q", p.Status)
	}
	if p.InReplyToID != "55" || p.Visibility != mastodon.VisibilityUnlisted {
		t.Errorf("apology must keep the thread and visibility, got %+v", p)
	}
}

func TestSendApology(t *testing.T) {
	poster := &fakePoster{}
	if err := NewSender(poster).SendApology(context.Background(), "author", "55", mastodon.VisibilityDirect); err != nil {
		t.Fatal(err)
	}
	p := poster.posted[0]
	if !strings.HasPrefix(p.Status, "@author Sorry!") {
		t.Errorf("apology = %q", p.Status)
	}
	if p.Visibility != mastodon.VisibilityDirect || p.InReplyToID != "55" {
		t.Errorf("params = %+v", p)
	}
}
