// Package mastodon is a minimal Mastodon API client: the REST calls the bot
// needs plus a WebSocket listener for the user event stream.
package mastodon

import "encoding/json"

// Visibility is a status audience scope.
type Visibility string

const (
	VisibilityDirect   Visibility = "direct"
	VisibilityPrivate  Visibility = "private"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPublic   Visibility = "public"
)

// visibilityRank orders scopes from most to least restrictive.
var visibilityRank = map[Visibility]int{
	VisibilityDirect:   0,
	VisibilityPrivate:  1,
	VisibilityUnlisted: 2,
	VisibilityPublic:   3,
}

// MoreRestrictive returns the narrower of two visibilities. Unknown values
// rank as public so they can only be narrowed.
func MoreRestrictive(a, b Visibility) Visibility {
	ra, ok := visibilityRank[a]
	if !ok {
		ra = visibilityRank[VisibilityPublic]
	}
	rb, ok := visibilityRank[b]
	if !ok {
		rb = visibilityRank[VisibilityPublic]
	}
	if ra <= rb {
		return a
	}
	return b
}

// Account is a Mastodon account.
type Account struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Acct     string `json:"acct"` // "user" local, "user@domain" remote
}

// Mention is an account referenced inside a status.
type Mention struct {
	ID   string `json:"id"`
	Acct string `json:"acct"`
}

// Status is a Mastodon post.
type Status struct {
	ID         string     `json:"id"`
	Account    Account    `json:"account"`
	Content    string     `json:"content"` // HTML
	Visibility Visibility `json:"visibility"`
	Mentions   []Mention  `json:"mentions,omitempty"`
	Reblog     *Status    `json:"reblog,omitempty"`
}

// MentionsAccount reports whether the status mentions the given account id.
func (s *Status) MentionsAccount(id string) bool {
	for _, m := range s.Mentions {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Notification types the bot cares about. Anything else is dropped.
const (
	NotificationFollow  = "follow"
	NotificationMention = "mention"
)

// Notification is a Mastodon notification.
type Notification struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"`
	Account Account `json:"account"`
	Status  *Status `json:"status,omitempty"`
}

// Stream event types delivered by the Listener.
const (
	EventUpdate       = "update"
	EventNotification = "notification"
)

// StreamEvent is one message from the user stream. Exactly one of Status and
// Notification is set for the known event types; unknown types carry only the
// raw payload for warn-level logging.
type StreamEvent struct {
	Type         string
	Status       *Status
	Notification *Notification
	Raw          json.RawMessage
}

// StatusParams are the fields for posting a status.
type StatusParams struct {
	Status      string     `json:"status"`
	MediaIDs    []string   `json:"media_ids,omitempty"`
	InReplyToID string     `json:"in_reply_to_id,omitempty"`
	Visibility  Visibility `json:"visibility,omitempty"`
}
