package scryfall

import "strings"

// ImageURIs holds the rendered image variants Scryfall serves for a card or face.
type ImageURIs struct {
	Small  string `json:"small,omitempty"`
	Normal string `json:"normal,omitempty"`
	Large  string `json:"large,omitempty"`
	PNG    string `json:"png,omitempty"`
}

// Face carries the printed fields shared by a whole card and a single side of
// a double-faced card. Power and toughness are empty for cards that don't
// declare them — that is a normal variant, not an error.
type Face struct {
	Name       string    `json:"name"`
	ManaCost   string    `json:"mana_cost,omitempty"`
	TypeLine   string    `json:"type_line"`
	OracleText string    `json:"oracle_text,omitempty"`
	Power      string    `json:"power,omitempty"`
	Toughness  string    `json:"toughness,omitempty"`
	ImageURIs  ImageURIs `json:"image_uris,omitempty"`
}

// Card is a resolved Scryfall card. The embedded Face provides the card-level
// printed fields; Faces is populated (with exactly two entries) only for
// double-faced layouts. Faces never nest further.
type Card struct {
	Face
	ID          string `json:"id"`
	ScryfallURI string `json:"scryfall_uri"`
	Layout      string `json:"layout,omitempty"`
	Faces       []Face `json:"card_faces,omitempty"`
}

// TwoFaced reports whether the card has two printable faces with their own images.
// Split and adventure layouts list card_faces too but share a single image,
// so the face entries carry no image_uris of their own.
func (c *Card) TwoFaced() bool {
	return len(c.Faces) == 2 && c.Faces[0].ImageURIs.Normal != ""
}

// ImageURL returns the normal-size image for the card, or for one of its
// faces when the card is double-faced.
func (c *Card) ImageURL(face int) string {
	if c.TwoFaced() && face >= 0 && face < len(c.Faces) {
		return c.Faces[face].ImageURIs.Normal
	}
	return c.ImageURIs.Normal
}

// Describe builds the plain-text representation of one face: name, mana cost,
// type line, oracle text, and power/toughness when present.
func (f Face) Describe() string {
	var b strings.Builder
	b.WriteString(f.Name)
	if f.ManaCost != "" {
		b.WriteString(" - ")
		b.WriteString(f.ManaCost)
	}
	b.WriteString("\n")
	b.WriteString(f.TypeLine)
	if f.OracleText != "" {
		b.WriteString("\n\n")
		b.WriteString(f.OracleText)
	}
	if f.Power != "" && f.Toughness != "" {
		b.WriteString("\n\n")
		b.WriteString(f.Power)
		b.WriteString("/")
		b.WriteString(f.Toughness)
	}
	return b.String()
}

// Describe builds the plain-text representation of the whole card. For a
// double-faced card the two face texts are joined by a // separator line.
func (c *Card) Describe() string {
	if c.TwoFaced() {
		return c.Faces[0].Describe() + "\n\n//\n\n" + c.Faces[1].Describe()
	}
	return c.Face.Describe()
}
