package scryfall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	scryfallAPIBase = "https://api.scryfall.com"
	userAgent       = "scrybot/1.0 (+https://github.com/hollyrath/scrybot)"

	// Scryfall asks clients to insert 50-100ms between requests.
	requestInterval = 100 * time.Millisecond

	// maxImageBytes caps image downloads (card scans are well under 1MB).
	maxImageBytes = 10 * 1024 * 1024
)

// ErrNotFound is returned by Named when no card matches the fuzzy name.
var ErrNotFound = errors.New("scryfall: no card matched")

// APIError is a non-404 error response from the Scryfall API.
type APIError struct {
	Status  int
	Details string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("scryfall: api status %d: %s", e.Status, e.Details)
}

// Client talks to the Scryfall card API via net/http.
// All requests pass through a shared rate limiter, so a single Client is safe
// to use from concurrent fetches.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Scryfall client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: scryfallAPIBase,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(requestInterval), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// Named resolves a card by fuzzy name, optionally restricted to a set code.
// Returns ErrNotFound when the API reports no match (or an ambiguous one);
// any other failure is returned as-is for the caller's event-level handling.
func (c *Client) Named(ctx context.Context, fuzzy, setCode string) (*Card, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("fuzzy", fuzzy)
	if setCode != "" {
		q.Set("set", setCode)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/cards/named?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("scryfall: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scryfall: named lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{Status: resp.StatusCode, Details: strings.TrimSpace(string(body))}
	}

	var card Card
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("scryfall: decode card: %w", err)
	}
	return &card, nil
}

// FetchImage downloads a card image by URL.
func (c *Client) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("scryfall: build image request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scryfall: fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &APIError{Status: resp.StatusCode, Details: "image fetch failed"}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("scryfall: read image: %w", err)
	}
	return data, nil
}
