package chat

import (
	"context"
	"sync"

	"chatamata-client/internal/models"
	"chatamata-client/internal/telemetry"
)

// Gateway is the full remote surface the engine drives.
type Gateway interface {
	MessageGateway
	ConversationGateway
	FriendGateway
}

// Engine owns the per-session synchronizers. The conversation list and
// friend view live for the whole session; at most one message thread is open
// at a time, and selecting a conversation replaces it.
type Engine struct {
	gw     Gateway
	feed   Feed
	self   models.Profile
	audit  *telemetry.AuditEmitter
	notify Notifier

	conversations *List
	friends       *Friends

	// openMu serializes close-and-replace of the thread so two concurrent
	// selections cannot each install a thread and strand the other's
	// subscription.
	openMu sync.Mutex

	mu     sync.Mutex
	thread *Thread
}

// NewEngine wires the synchronizers for one signed-in identity.
func NewEngine(gw Gateway, feed Feed, self models.Profile, audit *telemetry.AuditEmitter, notify Notifier) *Engine {
	e := &Engine{
		gw:     gw,
		feed:   feed,
		self:   self,
		audit:  audit,
		notify: notify,
	}
	e.conversations = NewList(gw, feed, self.ID, audit, e.scoped(ScopeConversations))
	e.friends = NewFriends(gw, feed, self.ID, audit, e.scoped(ScopeFriends))
	return e
}

// Start opens the session-lifetime synchronizers.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.conversations.Open(ctx); err != nil {
		return err
	}
	return e.friends.Open(ctx)
}

// Conversations returns the conversation list synchronizer.
func (e *Engine) Conversations() *List {
	return e.conversations
}

// Friends returns the friendship synchronizer.
func (e *Engine) Friends() *Friends {
	return e.friends
}

// Self is the signed-in profile the engine was built for.
func (e *Engine) Self() models.Profile {
	return e.self
}

// OpenThread selects a conversation. Any previously open thread is closed
// first so its channel and in-flight loads cannot leak into the new one.
func (e *Engine) OpenThread(ctx context.Context, conversationID int64) (*Thread, error) {
	e.openMu.Lock()
	defer e.openMu.Unlock()

	e.mu.Lock()
	prev := e.thread
	e.thread = nil
	e.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}

	t := NewThread(e.gw, e.feed, conversationID, e.self, e.audit, e.scoped(ScopeThread))
	if err := t.Open(ctx); err != nil {
		_ = t.Close()
		return nil, err
	}

	// A load in the selected thread marks the conversation read remotely;
	// mirror that on the local preview immediately.
	e.conversations.ReadAll(conversationID)

	e.mu.Lock()
	e.thread = t
	e.mu.Unlock()
	return t, nil
}

// Thread returns the open thread for the conversation, or nil when a
// different conversation (or none) is selected.
func (e *Engine) Thread(conversationID int64) *Thread {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.thread == nil || e.thread.ConversationID() != conversationID {
		return nil
	}
	return e.thread
}

// Close tears down every synchronizer.
func (e *Engine) Close() error {
	e.openMu.Lock()
	defer e.openMu.Unlock()

	e.mu.Lock()
	t := e.thread
	e.thread = nil
	e.mu.Unlock()

	if t != nil {
		_ = t.Close()
	}
	err := e.conversations.Close()
	if ferr := e.friends.Close(); err == nil {
		err = ferr
	}
	return err
}

func (e *Engine) scoped(scope string) func() {
	return func() {
		if e.notify != nil {
			e.notify(scope)
		}
	}
}
