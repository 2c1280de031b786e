package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chatamata-client/internal/observability"
)

const (
	heartbeatInterval = 25 * time.Second
	writeWait         = 10 * time.Second
	joinTimeout       = 10 * time.Second
)

// TokenSource yields the access token attached to channel joins.
type TokenSource interface {
	AccessToken() string
}

// frame is the phoenix-style wire envelope every realtime message travels in.
type frame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref,omitempty"`
}

// Client maintains the websocket connection to the platform's realtime
// endpoint and multiplexes channels over it. There is no automatic
// reconnection; a dropped feed surfaces through Err and the owner decides.
type Client struct {
	url     string
	anonKey string
	tokens  TokenSource

	mu       sync.Mutex
	conn     *websocket.Conn
	channels map[string]*Channel
	pending  map[string]chan error
	ref      int64
	done     chan struct{}
	err      error

	writeMu sync.Mutex
}

// NewClient constructs a realtime client; Connect must be called before
// channels can subscribe.
func NewClient(url, anonKey string, tokens TokenSource) *Client {
	return &Client{
		url:      url,
		anonKey:  anonKey,
		tokens:   tokens,
		channels: make(map[string]*Channel),
		pending:  make(map[string]chan error),
	}
}

// Connect dials the realtime endpoint and starts the read and heartbeat
// loops.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url+"?apikey="+c.anonKey+"&vsn=1.0.0", nil)
	if err != nil {
		return fmt.Errorf("realtime: dial: %w", err)
	}
	c.conn = conn
	c.done = make(chan struct{})
	c.err = nil

	go c.readLoop(conn, c.done)
	go c.heartbeatLoop(c.done)
	return nil
}

// Close tears down the connection and every channel on it.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	done := c.done
	c.conn = nil
	c.channels = make(map[string]*Channel)
	c.mu.Unlock()

	if done != nil {
		c.closeDone(done)
	}
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client shutdown"),
			time.Now().Add(writeWait))
		return conn.Close()
	}
	return nil
}

// Err reports why the feed stopped, nil while it is healthy.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Channel registers a channel for the given topic. Re-registering a topic
// returns a fresh channel replacing the old one.
func (c *Client) Channel(topic string, opts ...ChannelOption) *Channel {
	ch := &Channel{
		client: c,
		topic:  "realtime:" + topic,
	}
	for _, opt := range opts {
		opt(ch)
	}

	c.mu.Lock()
	c.channels[ch.topic] = ch
	c.mu.Unlock()
	return ch
}

func (c *Client) removeChannel(topic string) {
	c.mu.Lock()
	delete(c.channels, topic)
	c.mu.Unlock()
}

func (c *Client) channelFor(topic string) *Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channels[topic]
}

func (c *Client) nextRef() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ref++
	return strconv.FormatInt(c.ref, 10)
}

func (c *Client) send(f frame) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("realtime: not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(f)
}

// sendWithReply sends a frame and blocks until the matching phx_reply
// arrives or ctx expires.
func (c *Client) sendWithReply(ctx context.Context, f frame) error {
	reply := make(chan error, 1)
	c.mu.Lock()
	c.pending[f.Ref] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, f.Ref)
		c.mu.Unlock()
	}()

	if err := c.send(f); err != nil {
		return err
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) heartbeatLoop(done chan struct{}) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			err := c.send(frame{
				Topic:   "phoenix",
				Event:   "heartbeat",
				Payload: json.RawMessage(`{}`),
				Ref:     c.nextRef(),
			})
			if err != nil {
				log.Printf("realtime heartbeat failed: %v", err)
			}
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			c.fail(conn, done, err)
			return
		}
		c.route(f)
	}
}

// fail detaches a dead connection so the next Connect redials. Pending
// repliers are rejected rather than left waiting on a read loop that has
// exited, and surviving channels are marked unjoined so their owners
// resubscribe after the reconnect. A connection already replaced by Close or
// a newer Connect is left alone.
func (c *Client) fail(conn *websocket.Conn, done chan struct{}, err error) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.err = err
	}
	pending := c.pending
	c.pending = make(map[string]chan error)
	channels := make([]*Channel, 0, len(c.channels))
	for _, ch := range c.channels {
		channels = append(channels, ch)
	}
	c.mu.Unlock()

	for _, reply := range pending {
		reply <- fmt.Errorf("realtime: feed dropped: %w", err)
	}
	for _, ch := range channels {
		ch.setJoined(false)
	}
	c.closeDone(done)
	_ = conn.Close()
}

// closeDone closes a loop-stop channel at most once. Close and a read error
// can race here, so the check and the close happen under the client mutex.
func (c *Client) closeDone(done chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-done:
	default:
		close(done)
	}
}

func (c *Client) route(f frame) {
	switch f.Event {
	case "phx_reply":
		c.handleReply(f)
	case "postgres_changes":
		if ch := c.channelFor(f.Topic); ch != nil {
			ch.handleChange(f.Payload)
		}
	case "presence_state":
		if ch := c.channelFor(f.Topic); ch != nil {
			ch.handlePresenceState(f.Payload)
		}
	case "presence_diff":
		if ch := c.channelFor(f.Topic); ch != nil {
			ch.handlePresenceDiff(f.Payload)
		}
	case "phx_error", "phx_close":
		if ch := c.channelFor(f.Topic); ch != nil {
			ch.setJoined(false)
		}
	}
}

func (c *Client) handleReply(f frame) {
	var payload struct {
		Status string `json:"status"`
	}
	_ = json.Unmarshal(f.Payload, &payload)

	c.mu.Lock()
	reply := c.pending[f.Ref]
	c.mu.Unlock()
	if reply == nil {
		return
	}
	if payload.Status == "ok" {
		reply <- nil
	} else {
		reply <- fmt.Errorf("realtime: %s rejected (%s)", f.Topic, payload.Status)
	}
}

func countEvent(table, action string) {
	observability.IncRealtimeEvent(table, action)
}
