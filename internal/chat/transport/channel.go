package transport

import (
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"community_chat_client/internal/chat/domain"
	"community_chat_client/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler receives every decoded inbound frame
type Handler func(domain.Event)

// Options definition channel dial and retry settings
type Options struct {
	URL           string // websocket endpoint of the platform backend
	SessionToken  string
	SessionUserID string

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	PingInterval   time.Duration

	Log *logger.LogInfo
}

// Channel owns the one realtime duplex connection of a signed-in
// session. It reconnects indefinitely with capped backoff; every
// (re)connect announces liveness with the session user id and re-joins
// the active room, because a transport reconnect drops server-side
// room membership.
type Channel struct {
	opts Options

	mu          sync.Mutex
	conn        *websocket.Conn
	activeRoom  string
	handlers    []Handler
	onReconnect []func()

	writeMu sync.Mutex

	redial chan struct{}
	done   chan struct{}
	closed sync.Once
}

// ErrDisconnected returned by Emit while the transport is down
var ErrDisconnected = errors.New("channel disconnected")

// Open starts the channel for one signed-in session. The connection is
// established in the background; Emit returns ErrDisconnected until it
// is up.
func Open(opts Options) (*Channel, error) {
	if opts.URL == "" || opts.SessionUserID == "" {
		return nil, errors.New("channel: URL and SessionUserID are required")
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 500 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 30 * time.Second
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}

	c := &Channel{
		opts:   opts,
		redial: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go c.run()
	return c, nil
}

// OnEvent registers a handler for every inbound frame. Handlers run on
// the channel's read goroutine, so state they mutate only sees
// interleaved callbacks, never true parallelism.
func (c *Channel) OnEvent(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

// OnReconnect registers a callback run after every successful
// (re)connect, once liveness and room membership are re-announced.
func (c *Channel) OnReconnect(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReconnect = append(c.onReconnect, f)
}

// Emit encodes and writes one outbound frame
func (c *Channel) Emit(kind domain.EventKind, payload interface{}) error {
	raw, err := domain.EncodeEvent(kind, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrDisconnected
	}
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return fmt.Errorf("emit %s: %w", kind, err)
	}
	return nil
}

// JoinRoom marks roomID as the active room and announces interest in
// it. The mark survives reconnects: the room is re-joined every time
// the transport comes back.
func (c *Channel) JoinRoom(roomID string) error {
	c.mu.Lock()
	c.activeRoom = roomID
	c.mu.Unlock()
	return c.Emit(domain.EventJoinRoom, domain.JoinRoomPayload{RoomID: roomID})
}

// LeaveRoom clears the active room mark
func (c *Channel) LeaveRoom() {
	c.mu.Lock()
	c.activeRoom = ""
	c.mu.Unlock()
}

// ActiveRoom returns the currently joined room, "" when none
func (c *Channel) ActiveRoom() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeRoom
}

// Connected reports whether the transport is currently up
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// EnsureConnected skips any pending backoff wait when the transport is
// down. Called when the host regains visibility: events may have been
// missed while suspended, so waiting out a long backoff is wrong.
func (c *Channel) EnsureConnected() {
	if c.Connected() {
		return
	}
	select {
	case c.redial <- struct{}{}:
	default:
	}
}

// WaitConnected blocks until the channel is up or the timeout passes
func (c *Channel) WaitConnected(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.Connected() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return c.Connected()
}

// Close tears the channel down for good
func (c *Channel) Close() {
	c.closed.Do(func() {
		close(c.done)
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
	})
}

func (c *Channel) run() {
	backoff := c.opts.InitialBackoff
	for {
		select {
		case <-c.done:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(c.dialURL(), nil)
		if err != nil {
			c.opts.Log.Warn("channel dial failed",
				zap.String("url", c.opts.URL), zap.Error(err))
			select {
			case <-c.done:
				return
			case <-c.redial:
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > c.opts.MaxBackoff {
				backoff = c.opts.MaxBackoff
			}
			continue
		}
		backoff = c.opts.InitialBackoff

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		c.opts.Log.Info("channel connected", zap.String("userID", c.opts.SessionUserID))

		c.announce()
		c.readLoop(conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}
}

func (c *Channel) dialURL() string {
	return c.opts.URL + "?auth=" + url.QueryEscape(c.opts.SessionToken)
}

// announce re-establishes everything a fresh connection lacks:
// liveness (so the server tracks presence without a handshake), the
// active room membership, then the reconnect callbacks.
func (c *Channel) announce() {
	if err := c.Emit(domain.EventPresence, domain.PresencePayload{UserID: c.opts.SessionUserID}); err != nil {
		c.opts.Log.Errorf("presence announce failed:", err)
	}

	c.mu.Lock()
	room := c.activeRoom
	callbacks := append([]func(){}, c.onReconnect...)
	c.mu.Unlock()

	if room != "" {
		if err := c.Emit(domain.EventJoinRoom, domain.JoinRoomPayload{RoomID: room}); err != nil {
			c.opts.Log.Errorf("room rejoin failed:", err)
		}
	}
	for _, f := range callbacks {
		f()
	}
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	pingDone := make(chan struct{})
	defer close(pingDone)
	go c.pingLoop(conn, pingDone)

	readWait := c.opts.PingInterval * 2
	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readWait))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				c.opts.Log.Infof("channel closed:", err)
			} else {
				c.opts.Log.Errorf("channel read error:", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readWait))

		evt, err := domain.DecodeEvent(raw)
		if err != nil {
			c.opts.Log.Warn("dropping undecodable frame", zap.Error(err))
			continue
		}

		c.mu.Lock()
		handlers := append([]Handler{}, c.handlers...)
		c.mu.Unlock()
		for _, h := range handlers {
			h(evt)
		}
	}
}

func (c *Channel) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-done:
			return
		case <-c.done:
			return
		}
	}
}
