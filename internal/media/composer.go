// Package media builds image attachments for resolved cards, compositing
// double-faced cards into a single side-by-side image.
package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/hollyrath/scrybot/internal/scryfall"
)

// Fetcher is the image-download capability the composer needs.
type Fetcher interface {
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
}

// Attachment is one composed image plus its alt-text description.
type Attachment struct {
	Bytes       []byte
	Description string
}

// Composer turns resolved cards into uploadable attachments.
type Composer struct {
	fetcher Fetcher
}

func NewComposer(fetcher Fetcher) *Composer {
	return &Composer{fetcher: fetcher}
}

// Compose fetches and assembles one attachment per card, preserving card
// order. The caller caps the list at four cards; within that everything is
// fetched concurrently (both faces of a double-faced card, and all cards of
// the event at once).
func (c *Composer) Compose(ctx context.Context, found []*scryfall.Card) ([]Attachment, error) {
	results := make([]Attachment, len(found))

	g, gctx := errgroup.WithContext(ctx)
	for i, card := range found {
		g.Go(func() error {
			att, err := c.composeCard(gctx, card)
			if err != nil {
				return err
			}
			results[i] = att
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Composer) composeCard(ctx context.Context, card *scryfall.Card) (Attachment, error) {
	if !card.TwoFaced() {
		data, err := c.fetcher.FetchImage(ctx, card.ImageURL(0))
		if err != nil {
			return Attachment{}, err
		}
		return Attachment{Bytes: data, Description: card.Describe()}, nil
	}

	var left, right []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := c.fetcher.FetchImage(gctx, card.ImageURL(0))
		left = data
		return err
	})
	g.Go(func() error {
		data, err := c.fetcher.FetchImage(gctx, card.ImageURL(1))
		right = data
		return err
	})
	if err := g.Wait(); err != nil {
		return Attachment{}, err
	}

	composite, err := joinFaces(left, right)
	if err != nil {
		return Attachment{}, fmt.Errorf("media: composite %q: %w", card.Name, err)
	}
	return Attachment{Bytes: composite, Description: card.Describe()}, nil
}

// joinFaces decodes two face images and pastes them onto one canvas, left
// face first, both at the top edge. The result is re-encoded in the left
// face's source format.
func joinFaces(leftData, rightData []byte) ([]byte, error) {
	left, format, err := image.Decode(bytes.NewReader(leftData))
	if err != nil {
		return nil, fmt.Errorf("decode left face: %w", err)
	}
	right, _, err := image.Decode(bytes.NewReader(rightData))
	if err != nil {
		return nil, fmt.Errorf("decode right face: %w", err)
	}

	lb, rb := left.Bounds(), right.Bounds()
	height := lb.Dy()
	if rb.Dy() > height {
		height = rb.Dy()
	}

	canvas := imaging.New(lb.Dx()+rb.Dx(), height, color.Transparent)
	canvas = imaging.Paste(canvas, left, image.Pt(0, 0))
	canvas = imaging.Paste(canvas, right, image.Pt(lb.Dx(), 0))

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, encodeFormat(format)); err != nil {
		return nil, fmt.Errorf("encode composite: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeFormat(decoded string) imaging.Format {
	switch decoded {
	case "png":
		return imaging.PNG
	case "gif":
		return imaging.GIF
	default:
		return imaging.JPEG
	}
}
