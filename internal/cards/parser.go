// Package cards turns post text into card references and resolves them
// against Scryfall.
//
// The reference syntax is the usual [[Card Name]] / {{Card Name}} shorthand,
// with an optional |SET qualifier: [[Delver of Secrets|ISD]].
package cards

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// RawReference is one card reference extracted from post text.
type RawReference struct {
	Name    string // trimmed, markup stripped
	SetCode string // optional qualifier after "|"
}

// referencePattern matches [[...]] and {{...}} spans non-greedily.
// Mastodon statuses arrive as HTML, so a span may contain inline tags.
var referencePattern = regexp.MustCompile(`\[\[(.+?)\]\]|\{\{(.+?)\}\}`)

// stripTags removes every HTML element, keeping text content only.
var stripTags = bluemonday.StrictPolicy()

// ParseReferences extracts card references from post HTML, in order of
// appearance. Duplicates are preserved — each reference gets its own response
// line. An empty result means the post asked for nothing.
func ParseReferences(text string) []RawReference {
	matches := referencePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	refs := make([]RawReference, 0, len(matches))
	for _, m := range matches {
		span := m[1]
		if span == "" {
			span = m[2]
		}
		span = html.UnescapeString(stripTags.Sanitize(span))

		// Only the first two |-segments matter; anything further is noise.
		name, set := span, ""
		if idx := strings.IndexByte(span, '|'); idx >= 0 {
			name = span[:idx]
			set = span[idx+1:]
			if j := strings.IndexByte(set, '|'); j >= 0 {
				set = set[:j]
			}
		}

		refs = append(refs, RawReference{
			Name:    strings.TrimSpace(name),
			SetCode: strings.TrimSpace(set),
		})
	}
	return refs
}
