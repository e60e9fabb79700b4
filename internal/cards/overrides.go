package cards

import "unicode/utf8"

// maxNameLength is the longest reference we will pass to the lookup verbatim.
// Anything longer gets the long-name stand-in card instead.
const maxNameLength = 141

// longNameStandIn really is a printed Magic card, and it has the longest name
// of any of them.
const longNameStandIn = "Our Market Research Shows That Players Like Really Long Card " +
	"Names So We Made this Card to Have the Absolute Longest Card Name Ever Elemental"

// blankNameStandIn is the card looked up for an empty reference like [[ ]].
const blankNameStandIn = "______"

// Override remaps a reference name before lookup. The first matching override
// wins, and an override lookup always drops the set qualifier.
type Override struct {
	Match func(name string) bool
	Card  string
}

// DefaultOverrides returns the built-in override table. Degenerate names are
// remapped to stand-in cards rather than rejected, so the user always gets a
// card-shaped answer back.
func DefaultOverrides() []Override {
	return []Override{
		{Match: func(s string) bool { return utf8.RuneCountInString(s) > maxNameLength }, Card: longNameStandIn},
		{Match: func(s string) bool { return s == "" }, Card: blankNameStandIn},
	}
}
