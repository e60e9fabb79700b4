package cards

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hollyrath/scrybot/internal/scryfall"
)

// fakeLookup records lookups and serves canned cards by fuzzy name.
type fakeLookup struct {
	cards map[string]*scryfall.Card
	err   error
	calls []string
	sets  []string
}

func (f *fakeLookup) Named(ctx context.Context, fuzzy, setCode string) (*scryfall.Card, error) {
	f.calls = append(f.calls, fuzzy)
	f.sets = append(f.sets, setCode)
	if f.err != nil {
		return nil, f.err
	}
	if c, ok := f.cards[fuzzy]; ok {
		return c, nil
	}
	return nil, scryfall.ErrNotFound
}

func card(name, uri string) *scryfall.Card {
	return &scryfall.Card{Face: scryfall.Face{Name: name}, ScryfallURI: uri}
}

func TestResolve_FoundAndMissLines(t *testing.T) {
	lookup := &fakeLookup{cards: map[string]*scryfall.Card{
		"Foo": card("Foo", "https://scryfall.com/foo"),
	}}
	r := NewResolver(lookup)

	got, err := r.Resolve(context.Background(), []RawReference{{Name: "Foo"}, {Name: "Bar"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d resolutions, want 2", len(got))
	}
	if got[0].Line != "Foo - https://scryfall.com/foo" {
		t.Errorf("found line = %q", got[0].Line)
	}
	if got[0].Card == nil {
		t.Error("found resolution should carry the card")
	}
	if got[1].Line != `No card named "Bar" was found.` {
		t.Errorf("miss line = %q", got[1].Line)
	}
	if got[1].Card != nil {
		t.Error("miss resolution should not carry a card")
	}
}

func TestResolve_MissWithSetCode(t *testing.T) {
	r := NewResolver(&fakeLookup{})
	got, err := r.Resolve(context.Background(), []RawReference{{Name: "Bar", SetCode: "isd"}})
	if err != nil {
		t.Fatal(err)
	}
	want := `No card named "Bar" from set with code ISD was found.`
	if got[0].Line != want {
		t.Errorf("line = %q, want %q", got[0].Line, want)
	}
}

func TestResolve_Overrides(t *testing.T) {
	t.Run("empty name uses blank stand-in", func(t *testing.T) {
		lookup := &fakeLookup{}
		NewResolver(lookup).Resolve(context.Background(), []RawReference{{Name: ""}})
		if len(lookup.calls) != 1 || lookup.calls[0] != blankNameStandIn {
			t.Errorf("lookup calls = %v, want [%q]", lookup.calls, blankNameStandIn)
		}
	})

	t.Run("over-length name uses long-name stand-in", func(t *testing.T) {
		lookup := &fakeLookup{}
		long := strings.Repeat("x", 142)
		NewResolver(lookup).Resolve(context.Background(), []RawReference{{Name: long}})
		if len(lookup.calls) != 1 || lookup.calls[0] != longNameStandIn {
			t.Errorf("lookup looked up %q, want long-name stand-in", lookup.calls[0])
		}
	})

	t.Run("exactly 141 runes is not overridden", func(t *testing.T) {
		lookup := &fakeLookup{}
		name := strings.Repeat("x", 141)
		NewResolver(lookup).Resolve(context.Background(), []RawReference{{Name: name}})
		if lookup.calls[0] != name {
			t.Errorf("141-rune name should be looked up verbatim, got %q", lookup.calls[0])
		}
	})

	t.Run("override drops the set qualifier", func(t *testing.T) {
		lookup := &fakeLookup{}
		NewResolver(lookup).Resolve(context.Background(), []RawReference{{Name: "", SetCode: "ISD"}})
		if lookup.sets[0] != "" {
			t.Errorf("set code should be dropped on override lookup, got %q", lookup.sets[0])
		}
	})
}

func TestResolve_OtherErrorAborts(t *testing.T) {
	boom := errors.New("scryfall is down")
	r := NewResolver(&fakeLookup{err: boom})
	_, err := r.Resolve(context.Background(), []RawReference{{Name: "Foo"}})
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped %v", err, boom)
	}
}

func TestResolve_PreservesOrderAndDuplicates(t *testing.T) {
	lookup := &fakeLookup{cards: map[string]*scryfall.Card{
		"Foo": card("Foo", "https://scryfall.com/foo"),
	}}
	refs := []RawReference{{Name: "Foo"}, {Name: "Foo"}, {Name: "Bar"}}
	got, err := NewResolver(lookup).Resolve(context.Background(), refs)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("duplicates must not dedupe: got %d resolutions", len(got))
	}
	if len(lookup.calls) != 3 {
		t.Fatalf("each duplicate gets its own lookup: got %d calls", len(lookup.calls))
	}
	if lines := Lines(got); lines[0] != lines[1] {
		t.Errorf("duplicate references should produce identical lines: %q vs %q", lines[0], lines[1])
	}
	if found := Found(got); len(found) != 2 {
		t.Errorf("Found() = %d cards, want 2", len(found))
	}
}
