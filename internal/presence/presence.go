// Package presence tracks which identities are online via a shared realtime
// presence channel. Each signed-in client tracks itself under its user id;
// the merged channel state is the online set.
package presence

import (
	"context"
	"sync"
	"time"

	"chatamata-client/internal/realtime"
)

// Topic is the shared presence channel every client joins.
const Topic = "online-users"

// Channel is the slice of a realtime channel the tracker uses. Satisfied by
// *realtime.Channel.
type Channel interface {
	OnPresenceSync(handler func(state map[string][]realtime.PresenceMeta))
	OnPresenceJoin(handler func(key string, metas []realtime.PresenceMeta))
	OnPresenceLeave(handler func(key string, metas []realtime.PresenceMeta))
	Subscribe(ctx context.Context) error
	Track(ctx context.Context, meta realtime.PresenceMeta) error
	Close() error
}

// Tracker maintains the set of online user ids for one session.
type Tracker struct {
	ch     Channel
	selfID string
	notify func()

	mu     sync.Mutex
	online map[string]struct{}
}

// NewTracker constructs a tracker over an already-created channel. The
// channel must have been created with this identity as its presence key.
func NewTracker(ch Channel, selfID string, notify func()) *Tracker {
	return &Tracker{
		ch:     ch,
		selfID: selfID,
		notify: notify,
		online: map[string]struct{}{},
	}
}

// Start registers the presence handlers, joins the channel and announces
// this identity. Sync replaces the whole set; join and leave patch it.
func (t *Tracker) Start(ctx context.Context) error {
	t.ch.OnPresenceSync(func(state map[string][]realtime.PresenceMeta) {
		next := make(map[string]struct{}, len(state))
		for key := range state {
			next[key] = struct{}{}
		}
		t.mu.Lock()
		t.online = next
		t.mu.Unlock()
		t.changed()
	})
	t.ch.OnPresenceJoin(func(key string, _ []realtime.PresenceMeta) {
		t.mu.Lock()
		t.online[key] = struct{}{}
		t.mu.Unlock()
		t.changed()
	})
	t.ch.OnPresenceLeave(func(key string, _ []realtime.PresenceMeta) {
		t.mu.Lock()
		delete(t.online, key)
		t.mu.Unlock()
		t.changed()
	})

	if err := t.ch.Subscribe(ctx); err != nil {
		return err
	}
	if err := t.ch.Track(ctx, realtime.PresenceMeta{
		OnlineAt: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return err
	}

	// The server echoes our own join eventually; show ourselves online
	// without waiting for it.
	t.mu.Lock()
	t.online[t.selfID] = struct{}{}
	t.mu.Unlock()
	t.changed()
	return nil
}

// Online returns the current set of online user ids.
func (t *Tracker) Online() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.online))
	for key := range t.online {
		out = append(out, key)
	}
	return out
}

// IsOnline reports whether a user id is currently tracked.
func (t *Tracker) IsOnline(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.online[userID]
	return ok
}

// Close leaves the presence channel. The server untracks this identity and
// broadcasts the leave to the remaining members.
func (t *Tracker) Close() error {
	return t.ch.Close()
}

func (t *Tracker) changed() {
	if t.notify != nil {
		t.notify()
	}
}
