package mocks

import (
	"context"
	"sync"

	"chatamata-client/internal/chat"
	"chatamata-client/internal/realtime"
)

// SubscriptionMock is a functional fake of one realtime channel: it records
// registered bindings and lets tests push events through them.
type SubscriptionMock struct {
	Topic        string
	SubscribeErr error

	mu         sync.Mutex
	bindings   []binding
	subscribed bool
	closed     bool
}

type binding struct {
	filter  realtime.ChangeFilter
	handler func(realtime.Event)
}

func (s *SubscriptionMock) OnChange(filter realtime.ChangeFilter, handler func(realtime.Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings = append(s.bindings, binding{filter: filter, handler: handler})
}

func (s *SubscriptionMock) Subscribe(_ context.Context) error {
	if s.SubscribeErr != nil {
		return s.SubscribeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribed = true
	return nil
}

func (s *SubscriptionMock) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *SubscriptionMock) Subscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribed
}

func (s *SubscriptionMock) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Emit dispatches an event to every binding registered for its table,
// mirroring the dispatch a joined channel performs.
func (s *SubscriptionMock) Emit(ev realtime.Event) {
	s.mu.Lock()
	handlers := make([]func(realtime.Event), 0, len(s.bindings))
	for _, b := range s.bindings {
		if b.filter.Table == ev.EventTable() {
			handlers = append(handlers, b.handler)
		}
	}
	s.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

// FeedMock hands out SubscriptionMocks and remembers them by topic.
type FeedMock struct {
	mu       sync.Mutex
	Channels map[string]*SubscriptionMock
}

func NewFeedMock() *FeedMock {
	return &FeedMock{Channels: map[string]*SubscriptionMock{}}
}

func (f *FeedMock) Channel(topic string) chat.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &SubscriptionMock{Topic: topic}
	f.Channels[topic] = sub
	return sub
}

// Last returns the most recently created subscription whose topic starts
// with the given prefix. Thread topics carry a timestamp suffix, so tests
// locate them by prefix.
func (f *FeedMock) Last(prefix string) *SubscriptionMock {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found *SubscriptionMock
	for topic, sub := range f.Channels {
		if len(topic) >= len(prefix) && topic[:len(prefix)] == prefix {
			found = sub
		}
	}
	return found
}
