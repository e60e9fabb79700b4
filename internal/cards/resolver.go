package cards

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hollyrath/scrybot/internal/scryfall"
)

// Lookup is the card-lookup capability the resolver needs from Scryfall.
type Lookup interface {
	Named(ctx context.Context, fuzzy, setCode string) (*scryfall.Card, error)
}

// Resolution is the outcome for a single reference: the card when found
// (nil on a miss), plus the response line reported back to the user.
type Resolution struct {
	Ref  RawReference
	Card *scryfall.Card
	Line string
}

// Resolver maps raw references to cards via fuzzy lookup.
type Resolver struct {
	lookup    Lookup
	overrides []Override
}

// NewResolver creates a resolver with the default override table.
func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup, overrides: DefaultOverrides()}
}

// Resolve looks up every reference in input order, one Resolution per
// reference. A lookup miss becomes a "no card named" line; any other lookup
// failure aborts the whole batch so the event handler can apologize once.
func (r *Resolver) Resolve(ctx context.Context, refs []RawReference) ([]Resolution, error) {
	out := make([]Resolution, 0, len(refs))
	for _, ref := range refs {
		name, set := ref.Name, ref.SetCode
		for _, o := range r.overrides {
			if o.Match(name) {
				name, set = o.Card, ""
				break
			}
		}

		card, err := r.lookup.Named(ctx, name, set)
		switch {
		case err == nil:
			out = append(out, Resolution{
				Ref:  ref,
				Card: card,
				Line: fmt.Sprintf("%s - %s", card.Name, card.ScryfallURI),
			})
		case errors.Is(err, scryfall.ErrNotFound):
			out = append(out, Resolution{Ref: ref, Line: missLine(ref)})
		default:
			return nil, fmt.Errorf("cards: resolve %q: %w", ref.Name, err)
		}
	}
	return out, nil
}

func missLine(ref RawReference) string {
	if ref.SetCode != "" {
		return fmt.Sprintf("No card named %q from set with code %s was found.", ref.Name, strings.ToUpper(ref.SetCode))
	}
	return fmt.Sprintf("No card named %q was found.", ref.Name)
}

// Found extracts the successfully resolved cards, preserving order.
func Found(resolutions []Resolution) []*scryfall.Card {
	var found []*scryfall.Card
	for _, res := range resolutions {
		if res.Card != nil {
			found = append(found, res.Card)
		}
	}
	return found
}

// Lines extracts the per-reference response lines, preserving order.
func Lines(resolutions []Resolution) []string {
	lines := make([]string, len(resolutions))
	for i, res := range resolutions {
		lines[i] = res.Line
	}
	return lines
}
