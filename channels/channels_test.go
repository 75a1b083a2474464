// SPDX-License-Identifier: BSD-3-Clause

package channels

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreCurrent())
}

// wsServer upgrades every request and pushes frames handed to publish,
// recording everything the client sends.
type wsServer struct {
	*httptest.Server
	frames   chan string
	received chan []byte
}

func newWSServer(t *testing.T) *wsServer {
	t.Helper()
	s := &wsServer{
		frames:   make(chan string, 16),
		received: make(chan []byte, 16),
	}
	upgrader := websocket.Upgrader{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		go func() {
			for frame := range s.frames {
				if err := ws.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
					return
				}
			}
		}()

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			s.received <- data
		}
	}))
	t.Cleanup(func() {
		s.Close()
		close(s.frames)
	})
	return s
}

func (s *wsServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *wsServer) publish(t *testing.T, frame string) {
	t.Helper()
	select {
	case s.frames <- frame:
	case <-time.After(time.Second):
		t.Fatal("publish timed out")
	}
}

func waitMessage(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
		return Message{}
	}
}

func TestDispatchByChannel(t *testing.T) {
	s := newWSServer(t)
	hub := NewHub()
	defer hub.Close()

	updates := make(chan Message, 4)
	other := make(chan Message, 4)
	hub.Listen("updates", func(_ *Conn, msg Message) { updates <- msg })
	hub.Listen("other", func(_ *Conn, msg Message) { other <- msg })

	_, err := hub.Connect(context.Background(), s.wsURL())
	require.NoError(t, err)

	s.publish(t, `{"event":"created","channel":"updates","data":{"id":3}}`)

	msg := waitMessage(t, updates)
	require.Equal(t, "created", msg.Event)
	require.Equal(t, "updates", msg.Channel)
	var payload map[string]any
	require.NoError(t, msg.Decode(&payload))
	require.Equal(t, float64(3), payload["id"])
	require.Empty(t, other)
}

func TestDecodeDoubleEncodedPayload(t *testing.T) {
	s := newWSServer(t)
	hub := NewHub()
	defer hub.Close()

	got := make(chan Message, 1)
	hub.Listen("updates", func(_ *Conn, msg Message) { got <- msg })

	_, err := hub.Connect(context.Background(), s.wsURL())
	require.NoError(t, err)

	s.publish(t, `{"event":"created","channel":"updates","data":"{\"id\":7}"}`)

	var payload map[string]any
	require.NoError(t, waitMessage(t, got).Decode(&payload))
	require.Equal(t, float64(7), payload["id"])
}

func TestSendEncodesNonStrings(t *testing.T) {
	s := newWSServer(t)
	hub := NewHub()
	defer hub.Close()

	_, err := hub.Connect(context.Background(), s.wsURL())
	require.NoError(t, err)

	require.NoError(t, hub.Send(s.wsURL(), map[string]string{"event": "ping"}))
	require.NoError(t, hub.Send(s.wsURL(), "raw text"))

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(<-s.received, &decoded))
	require.Equal(t, "ping", decoded["event"])
	require.Equal(t, "raw text", string(<-s.received))
}

func TestSendDisconnected(t *testing.T) {
	hub := NewHub()
	err := hub.Send("ws://127.0.0.1:1/stream", "hello")
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestConcurrentConnectSharesConnection(t *testing.T) {
	s := newWSServer(t)
	hub := NewHub()
	defer hub.Close()

	const n = 8
	conns := make([]*Conn, n)
	errs := make([]error, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			conns[i], errs[i] = hub.Connect(context.Background(), s.wsURL())
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.Same(t, conns[0], conns[i])
	}
}

func TestConnectTwiceReturnsExisting(t *testing.T) {
	s := newWSServer(t)
	hub := NewHub()
	defer hub.Close()

	c1, err := hub.Connect(context.Background(), s.wsURL())
	require.NoError(t, err)
	c2, err := hub.Connect(context.Background(), s.wsURL())
	require.NoError(t, err)
	require.Same(t, c1, c2)
}

func TestDisconnectRemovesConnection(t *testing.T) {
	s := newWSServer(t)
	hub := NewHub()

	c, err := hub.Connect(context.Background(), s.wsURL())
	require.NoError(t, err)

	require.NoError(t, hub.Disconnect(s.wsURL()))
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not exit")
	}
	require.ErrorIs(t, hub.Send(s.wsURL(), "x"), ErrNotConnected)
}

func TestUnparseableFramesAreDropped(t *testing.T) {
	s := newWSServer(t)
	hub := NewHub()
	defer hub.Close()

	got := make(chan Message, 1)
	hub.Listen("updates", func(_ *Conn, msg Message) { got <- msg })

	_, err := hub.Connect(context.Background(), s.wsURL())
	require.NoError(t, err)

	s.publish(t, `not json`)
	s.publish(t, `{"event":"ok","channel":"updates"}`)
	require.Equal(t, "ok", waitMessage(t, got).Event)
}
