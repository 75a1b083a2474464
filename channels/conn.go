// SPDX-License-Identifier: BSD-3-Clause

package channels

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/quantmind/lux-go/internal/log"
)

const writeTimeout = 10 * time.Second

// Message is a single frame on a lux websocket.
type Message struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals the frame payload into v. Servers sometimes
// double-encode the payload as a JSON string; both forms are accepted.
func (m Message) Decode(v any) error {
	raw := m.Data
	var inner string
	if err := json.Unmarshal(raw, &inner); err == nil {
		raw = []byte(inner)
	}
	return json.Unmarshal(raw, v)
}

// Conn is one open websocket connection, owned by a Hub.
type Conn struct {
	url    string
	ws     *websocket.Conn
	hub    *Hub
	logger zerolog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// URL returns the connection's endpoint.
func (c *Conn) URL() string {
	return c.url
}

// Send writes a message to the connection. Strings and byte slices go
// out verbatim, everything else is JSON encoded.
func (c *Conn) Send(msg any) error {
	var payload []byte
	switch m := msg.(type) {
	case string:
		payload = []byte(m)
	case []byte:
		payload = m
	default:
		var err error
		if payload, err = json.Marshal(m); err != nil {
			return err
		}
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// Close shuts the connection down and removes it from the hub. The
// read loop exits asynchronously; wait on Done to observe it.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.hub.remove(c.url)
		c.writeMu.Lock()
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

// Done is closed when the read loop exits.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) readLoop() {
	defer close(c.done)
	defer c.hub.remove(c.url)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.logger.Warn().Err(err).Msg("connection closed")
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn().Err(err).Msg("dropping unparseable frame")
			continue
		}
		c.logger.Debug().Str(log.FieldEvent, msg.Event).Str(log.FieldChannel, msg.Channel).Msg("frame received")
		c.hub.dispatch(c, msg)
	}
}
