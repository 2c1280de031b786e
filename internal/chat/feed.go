package chat

import (
	"context"

	"chatamata-client/internal/realtime"
)

// Subscription is one realtime topic a synchronizer listens on. Satisfied by
// *realtime.Channel.
type Subscription interface {
	OnChange(filter realtime.ChangeFilter, handler func(realtime.Event))
	Subscribe(ctx context.Context) error
	Close() error
}

// Feed hands out subscriptions on the realtime connection.
type Feed interface {
	Channel(topic string) Subscription
}

// Notification scopes handed to the state-change callback, so the bridge can
// tell its clients which slice of state moved.
const (
	ScopeConversations = "conversations"
	ScopeThread        = "thread"
	ScopeFriends       = "friends"
)

// Notifier receives a scope after every observable state change.
type Notifier func(scope string)
