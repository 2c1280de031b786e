package mocks

import (
	"context"
	"sync"

	"chatamata-client/internal/realtime"
)

// PresenceChannelMock is a functional fake of a presence channel. Tests
// drive the registered handlers directly.
type PresenceChannelMock struct {
	SubscribeErr error
	TrackErr     error

	mu           sync.Mutex
	syncHandler  func(map[string][]realtime.PresenceMeta)
	joinHandler  func(string, []realtime.PresenceMeta)
	leaveHandler func(string, []realtime.PresenceMeta)
	tracked      []realtime.PresenceMeta
	closed       bool
}

func (c *PresenceChannelMock) OnPresenceSync(handler func(state map[string][]realtime.PresenceMeta)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncHandler = handler
}

func (c *PresenceChannelMock) OnPresenceJoin(handler func(key string, metas []realtime.PresenceMeta)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joinHandler = handler
}

func (c *PresenceChannelMock) OnPresenceLeave(handler func(key string, metas []realtime.PresenceMeta)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leaveHandler = handler
}

func (c *PresenceChannelMock) Subscribe(_ context.Context) error {
	return c.SubscribeErr
}

func (c *PresenceChannelMock) Track(_ context.Context, meta realtime.PresenceMeta) error {
	if c.TrackErr != nil {
		return c.TrackErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracked = append(c.tracked, meta)
	return nil
}

func (c *PresenceChannelMock) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *PresenceChannelMock) Tracked() []realtime.PresenceMeta {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]realtime.PresenceMeta(nil), c.tracked...)
}

func (c *PresenceChannelMock) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *PresenceChannelMock) EmitSync(state map[string][]realtime.PresenceMeta) {
	c.mu.Lock()
	h := c.syncHandler
	c.mu.Unlock()
	if h != nil {
		h(state)
	}
}

func (c *PresenceChannelMock) EmitJoin(key string) {
	c.mu.Lock()
	h := c.joinHandler
	c.mu.Unlock()
	if h != nil {
		h(key, nil)
	}
}

func (c *PresenceChannelMock) EmitLeave(key string) {
	c.mu.Lock()
	h := c.leaveHandler
	c.mu.Unlock()
	if h != nil {
		h(key, nil)
	}
}
