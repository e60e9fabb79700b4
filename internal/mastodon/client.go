package mastodon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// APIError is a non-2xx response from the Mastodon API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mastodon: api status %d: %s", e.Status, e.Message)
}

// IsRateLimit reports whether err is a 429 from the API.
func IsRateLimit(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusTooManyRequests
}

// IsUnprocessable reports whether err is a 422 from the API — most commonly a
// status body over the instance's character limit.
func IsUnprocessable(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusUnprocessableEntity
}

// Client talks to one Mastodon instance with a bearer token.
// Calls are stateless; a single Client is safe for concurrent use.
type Client struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

// NewClient creates a client for the given instance ("https://example.social").
func NewClient(instanceURL, accessToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(instanceURL, "/"),
		accessToken: accessToken,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// BaseURL returns the instance base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// AccessToken returns the bearer token (the stream listener needs it).
func (c *Client) AccessToken() string { return c.accessToken }

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("mastodon: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	return req, nil
}

// do runs a request and decodes the JSON response into out (when non-nil).
// It returns the response so callers can read pagination headers.
func (c *Client) do(req *http.Request, out any) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mastodon: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("mastodon: decode %s: %w", req.URL.Path, err)
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return resp, nil
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		msg = e.Error
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

// VerifyCredentials confirms the token works and returns the bot's account.
func (c *Client) VerifyCredentials(ctx context.Context) (*Account, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"/api/v1/accounts/verify_credentials", nil)
	if err != nil {
		return nil, err
	}
	var acct Account
	if _, err := c.do(req, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// CreateStatus posts a status. Each attempt carries its own Idempotency-Key
// header, letting the instance collapse accidental duplicate submissions of
// that one request; the client itself never retries.
func (c *Client) CreateStatus(ctx context.Context, params StatusParams) (*Status, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("mastodon: marshal status: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/api/v1/statuses", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	var status Status
	if _, err := c.do(req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// UploadMedia uploads an image with an alt-text description and returns the
// attachment id to reference from a status.
func (c *Client) UploadMedia(ctx context.Context, data []byte, description string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "card.png")
	if err != nil {
		return "", fmt.Errorf("mastodon: build upload: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return "", fmt.Errorf("mastodon: build upload: %w", err)
	}
	if description != "" {
		if err := mw.WriteField("description", description); err != nil {
			return "", fmt.Errorf("mastodon: build upload: %w", err)
		}
	}
	mw.Close()

	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/api/v2/media", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var att struct {
		ID string `json:"id"`
	}
	if _, err := c.do(req, &att); err != nil {
		return "", err
	}
	return att.ID, nil
}

// Follow follows an account by id.
func (c *Client) Follow(ctx context.Context, accountID string) error {
	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/api/v1/accounts/"+accountID+"/follow", nil)
	if err != nil {
		return err
	}
	_, err = c.do(req, nil)
	return err
}

// Unfollow unfollows an account by id.
func (c *Client) Unfollow(ctx context.Context, accountID string) error {
	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/api/v1/accounts/"+accountID+"/unfollow", nil)
	if err != nil {
		return err
	}
	_, err = c.do(req, nil)
	return err
}

// Followers lists every account following accountID, walking Link pagination
// to the end.
func (c *Client) Followers(ctx context.Context, accountID string) ([]Account, error) {
	return c.accountList(ctx, c.baseURL+"/api/v1/accounts/"+accountID+"/followers?limit=80")
}

// Following lists every account accountID follows, walking Link pagination
// to the end.
func (c *Client) Following(ctx context.Context, accountID string) ([]Account, error) {
	return c.accountList(ctx, c.baseURL+"/api/v1/accounts/"+accountID+"/following?limit=80")
}

func (c *Client) accountList(ctx context.Context, firstPage string) ([]Account, error) {
	var all []Account
	next := firstPage
	for next != "" {
		req, err := c.newRequest(ctx, http.MethodGet, next, nil)
		if err != nil {
			return nil, err
		}
		var page []Account
		resp, err := c.do(req, &page)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		next = nextLink(resp.Header.Get("Link"))
	}
	return all, nil
}

var nextLinkPattern = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// nextLink extracts the rel="next" URL from a Link header, or "" on the last page.
func nextLink(header string) string {
	m := nextLinkPattern.FindStringSubmatch(header)
	if m == nil {
		return ""
	}
	return m[1]
}
