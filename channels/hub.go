// SPDX-License-Identifier: BSD-3-Clause

// Package channels provides a websocket client for lux streaming
// endpoints. Frames are JSON objects carrying an event name, an
// optional channel and a payload; listeners subscribe per channel.
package channels

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/quantmind/lux-go/internal/log"
)

// ErrNotConnected is returned when sending to a URL with no open
// connection.
var ErrNotConnected = errors.New("channels: not connected")

// Listener receives every message published on its channel. Listeners
// run on the connection's read loop; a slow listener stalls the stream.
type Listener func(conn *Conn, msg Message)

// Hub manages one websocket connection per URL and a shared listener
// registry keyed by channel name.
type Hub struct {
	mu        sync.RWMutex
	conns     map[string]*Conn
	listeners map[string][]Listener
	dialer    *websocket.Dialer
	logger    zerolog.Logger
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithDialer overrides the websocket dialer.
func WithDialer(d *websocket.Dialer) HubOption {
	return func(h *Hub) { h.dialer = d }
}

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) HubOption {
	return func(h *Hub) { h.logger = l }
}

// NewHub creates an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		conns:     make(map[string]*Conn),
		listeners: make(map[string][]Listener),
		dialer:    &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:    log.WithComponent("channels"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Listen registers a listener for a channel. Registration survives
// reconnects; there is no way to unregister a single listener.
func (h *Hub) Listen(channel string, fn Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners[channel] = append(h.listeners[channel], fn)
}

// Connect dials url and starts its read loop. Connecting to an already
// connected URL returns the existing connection.
func (h *Hub) Connect(ctx context.Context, url string) (*Conn, error) {
	h.mu.Lock()
	if c, ok := h.conns[url]; ok {
		h.mu.Unlock()
		h.logger.Warn().Str(log.FieldURL, url).Msg("already connected")
		return c, nil
	}
	h.mu.Unlock()

	ws, res, err := h.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("channels: dial %s: %w", url, err)
	}
	if res != nil && res.Body != nil {
		_ = res.Body.Close()
	}

	c := &Conn{
		url:    url,
		ws:     ws,
		hub:    h,
		logger: h.logger.With().Str(log.FieldURL, url).Logger(),
		done:   make(chan struct{}),
	}

	// A concurrent Connect may have won the race while this one was
	// dialing; keep the first connection and drop the fresh dial.
	h.mu.Lock()
	if existing, ok := h.conns[url]; ok {
		h.mu.Unlock()
		_ = ws.Close()
		close(c.done)
		h.logger.Warn().Str(log.FieldURL, url).Msg("already connected")
		return existing, nil
	}
	h.conns[url] = c
	h.mu.Unlock()

	c.logger.Info().Msg("connected")
	go c.readLoop()
	return c, nil
}

// Send delivers msg on the connection for url. Strings and byte slices
// travel as-is, anything else is JSON encoded.
func (h *Hub) Send(url string, msg any) error {
	h.mu.RLock()
	c, ok := h.conns[url]
	h.mu.RUnlock()
	if !ok {
		h.logger.Error().Str(log.FieldURL, url).Msg("attempted to send message on a disconnected websocket")
		return fmt.Errorf("%w: %s", ErrNotConnected, url)
	}
	return c.Send(msg)
}

// Disconnect closes the connection for url, if any.
func (h *Hub) Disconnect(url string) error {
	h.mu.RLock()
	c, ok := h.conns[url]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	return c.Close()
}

// Close tears down every connection.
func (h *Hub) Close() error {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	var firstErr error
	for _, c := range conns {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *Hub) dispatch(c *Conn, msg Message) {
	h.mu.RLock()
	listeners := h.listeners[msg.Channel]
	h.mu.RUnlock()

	for _, fn := range listeners {
		fn(c, msg)
	}
}

func (h *Hub) remove(url string) {
	h.mu.Lock()
	delete(h.conns, url)
	h.mu.Unlock()
}
