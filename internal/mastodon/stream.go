package mastodon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	eventBufferSize = 64

	// A quiet stream is normal, so idleness alone never drops the
	// connection. A periodic client ping detects silent disconnects
	// instead: when the pong does not arrive in time the connection is
	// closed, which unblocks the read loop into a redial.
	pingInterval = 60 * time.Second
	pingTimeout  = 10 * time.Second

	reconnectBase = 2 * time.Second
	reconnectMax  = 60 * time.Second
)

// Listener subscribes to the instance's user event stream over WebSocket and
// delivers decoded events on a channel. It reconnects with capped exponential
// backoff; events missed while disconnected are simply lost.
type Listener struct {
	client *Client

	mu         sync.Mutex
	conn       *websocket.Conn
	cancel     context.CancelFunc
	pingCancel context.CancelFunc
	wg         sync.WaitGroup

	eventCh chan StreamEvent
}

// NewListener creates a listener over the client's instance and token.
func NewListener(client *Client) *Listener {
	return &Listener{
		client:  client,
		eventCh: make(chan StreamEvent, eventBufferSize),
	}
}

// Events delivers decoded stream events. Closed when the listener stops.
func (ln *Listener) Events() <-chan StreamEvent { return ln.eventCh }

// Start connects and begins reading in the background.
func (ln *Listener) Start(ctx context.Context) error {
	ln.mu.Lock()
	defer ln.mu.Unlock()

	if ln.cancel != nil {
		return fmt.Errorf("mastodon: listener already started")
	}

	lctx, cancel := context.WithCancel(ctx)
	ln.cancel = cancel

	conn, err := ln.dial(lctx)
	if err != nil {
		cancel()
		ln.cancel = nil
		return err
	}
	ln.conn = conn
	ln.startPingLocked(lctx, conn)

	ln.wg.Add(1)
	go ln.run(lctx)
	return nil
}

// startPingLocked replaces the keepalive loop for a freshly dialed
// connection. Caller holds ln.mu.
func (ln *Listener) startPingLocked(ctx context.Context, conn *websocket.Conn) {
	if ln.pingCancel != nil {
		ln.pingCancel()
	}
	pctx, cancel := context.WithCancel(ctx)
	ln.pingCancel = cancel
	go pingLoop(pctx, conn, pingInterval, pingTimeout)
}

// pingLoop pings the peer until the context is cancelled. An unanswered ping
// means the connection is silently dead, so it is closed to force the read
// loop into a redial. Pongs are consumed by the concurrent read loop.
func pingLoop(ctx context.Context, conn *websocket.Conn, interval, timeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pctx, cancel := context.WithTimeout(ctx, timeout)
		err := conn.Ping(pctx)
		cancel()
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("stream ping unanswered, dropping connection", "error", err)
				conn.Close(websocket.StatusGoingAway, "keepalive failed")
			}
			return
		}
	}
}

// Stop closes the connection and waits for the read loop to exit.
func (ln *Listener) Stop() {
	ln.mu.Lock()
	cancel := ln.cancel
	conn := ln.conn
	ln.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "")
	}
	ln.wg.Wait()
}

func (ln *Listener) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, ln.streamURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("mastodon: stream dial: %w", err)
	}
	conn.SetReadLimit(1 << 20) // 1MB
	slog.Info("stream connected")
	return conn, nil
}

// streamURL builds the wss endpoint for the user stream.
func (ln *Listener) streamURL() string {
	base := ln.client.BaseURL()
	base = strings.Replace(base, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)

	q := url.Values{}
	q.Set("access_token", ln.client.AccessToken())
	q.Set("stream", "user")
	return base + "/api/v1/streaming?" + q.Encode()
}

func (ln *Listener) run(ctx context.Context) {
	defer ln.wg.Done()
	defer close(ln.eventCh)

	for {
		if ctx.Err() != nil {
			return
		}

		_, data, err := ln.readConn().Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("stream read failed, reconnecting", "error", err)
			if !ln.redial(ctx) {
				return
			}
			continue
		}
		ln.handleFrame(ctx, data)
	}
}

func (ln *Listener) readConn() *websocket.Conn {
	ln.mu.Lock()
	defer ln.mu.Unlock()
	return ln.conn
}

// redial drops the dead connection and dials again, with capped exponential
// backoff, until it succeeds or the context is cancelled.
func (ln *Listener) redial(ctx context.Context) bool {
	ln.mu.Lock()
	if ln.conn != nil {
		ln.conn.Close(websocket.StatusNormalClosure, "")
		ln.conn = nil
	}
	ln.mu.Unlock()

	backoff := reconnectBase
	for {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}

		conn, err := ln.dial(ctx)
		if err == nil {
			ln.mu.Lock()
			ln.conn = conn
			ln.startPingLocked(ctx, conn)
			ln.mu.Unlock()
			return true
		}
		slog.Warn("stream reconnect failed", "error", err, "backoff", backoff)
		if backoff *= 2; backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}

// handleFrame decodes one stream frame. The payload field is itself a JSON
// document serialized as a string.
func (ln *Listener) handleFrame(ctx context.Context, data []byte) {
	var frame struct {
		Event   string `json:"event"`
		Payload string `json:"payload"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		slog.Warn("stream frame not parseable", "error", err, "frame", string(data))
		return
	}

	ev := StreamEvent{Type: frame.Event, Raw: json.RawMessage(frame.Payload)}
	switch frame.Event {
	case EventUpdate:
		var status Status
		if err := json.Unmarshal([]byte(frame.Payload), &status); err != nil {
			slog.Warn("stream update payload not parseable", "error", err)
			return
		}
		ev.Status = &status
	case EventNotification:
		var n Notification
		if err := json.Unmarshal([]byte(frame.Payload), &n); err != nil {
			slog.Warn("stream notification payload not parseable", "error", err)
			return
		}
		ev.Notification = &n
	}

	select {
	case ln.eventCh <- ev:
	case <-ctx.Done():
	}
}
