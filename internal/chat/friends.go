package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"chatamata-client/internal/gateway"
	"chatamata-client/internal/models"
	"chatamata-client/internal/realtime"
	"chatamata-client/internal/telemetry"
)

// friendSearchLimit caps how many profiles a search returns.
const friendSearchLimit = 10

// ErrBadResponse rejects a friend request response that is neither accepted
// nor rejected.
var ErrBadResponse = fmt.Errorf("response must be %q or %q", models.FriendshipAccepted, models.FriendshipRejected)

// FriendGateway is the slice of the remote gateway the friend view needs.
type FriendGateway interface {
	ListFriendships(ctx context.Context, userID string) ([]gateway.FriendshipRecord, error)
	SearchProfiles(ctx context.Context, search, excludeID string, limit int) ([]models.Profile, error)
	SendFriendRequest(ctx context.Context, receiverID string) error
	RespondFriendRequest(ctx context.Context, senderID string, response models.FriendshipStatus) error
}

// FriendView is the partitioned friendship state: established friends plus
// the two pending directions.
type FriendView struct {
	Friends  []models.Profile
	Incoming []models.Profile
	Outgoing []models.Profile
}

// Friends maintains the friendship view. Every realtime change on the
// friendships table triggers a wholesale refetch; the rows are few and the
// join that resolves counterpart profiles lives server-side, so incremental
// patching buys nothing.
type Friends struct {
	gw     FriendGateway
	feed   Feed
	selfID string
	audit  *telemetry.AuditEmitter
	notify func()

	mu      sync.Mutex
	records []models.Friendship
	loaded  bool
	err    error
	closed bool
	sub    Subscription
}

// NewFriends constructs the friendship synchronizer.
func NewFriends(gw FriendGateway, feed Feed, selfID string, audit *telemetry.AuditEmitter, notify func()) *Friends {
	return &Friends{
		gw:     gw,
		feed:   feed,
		selfID: selfID,
		audit:  audit,
		notify: notify,
	}
}

// Open subscribes to friendship changes and performs the initial fetch.
func (f *Friends) Open(ctx context.Context) error {
	sub := f.feed.Channel("friendships-" + f.selfID)
	sub.OnChange(realtime.ChangeFilter{Event: realtime.ActionAll, Table: "friendships"}, f.onFriendshipChange)

	if err := sub.Subscribe(ctx); err != nil {
		return err
	}

	f.mu.Lock()
	f.sub = sub
	f.mu.Unlock()

	return f.Refresh(ctx)
}

// Refresh refetches and repartitions all friendship records. The record's
// action marker identifies the requester: a pending record we did not act on
// is an incoming request.
func (f *Friends) Refresh(ctx context.Context) error {
	records, err := f.gw.ListFriendships(ctx, f.selfID)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	if err != nil {
		f.err = err
		f.mu.Unlock()
		f.changed()
		return err
	}

	mapped := make([]models.Friendship, 0, len(records))
	for _, rec := range records {
		mapped = append(mapped, models.Friendship{
			ID:          rec.ID,
			Friend:      rec.Counterpart(f.selfID),
			Status:      rec.Status,
			IsRequester: rec.ActionUserID == f.selfID,
		})
	}
	f.records = mapped
	f.loaded = true
	f.err = nil
	f.mu.Unlock()
	f.changed()
	return nil
}

// Search finds profiles by username substring, excluding this identity. A
// blank query returns nothing without a remote call.
func (f *Friends) Search(ctx context.Context, query string) ([]models.Profile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	return f.gw.SearchProfiles(ctx, query, f.selfID, friendSearchLimit)
}

// SendRequest issues a friend request and refreshes the view so the new
// outgoing entry shows without waiting for the realtime echo.
func (f *Friends) SendRequest(ctx context.Context, receiverID string) error {
	if err := f.gw.SendFriendRequest(ctx, receiverID); err != nil {
		return err
	}
	f.emitAudit(ctx, "INFO", "friend request sent to "+receiverID)
	return f.Refresh(ctx)
}

// Respond accepts or rejects a pending incoming request.
func (f *Friends) Respond(ctx context.Context, senderID string, response models.FriendshipStatus) error {
	if response != models.FriendshipAccepted && response != models.FriendshipRejected {
		return ErrBadResponse
	}
	if err := f.gw.RespondFriendRequest(ctx, senderID, response); err != nil {
		return err
	}
	f.emitAudit(ctx, "INFO", fmt.Sprintf("friend request from %s %s", senderID, response))
	return f.Refresh(ctx)
}

// Snapshot partitions the current records into the three UI buckets.
// Rejected and blocked records never surface.
func (f *Friends) Snapshot() FriendView {
	f.mu.Lock()
	defer f.mu.Unlock()

	var view FriendView
	for _, rec := range f.records {
		switch rec.Status {
		case models.FriendshipAccepted:
			view.Friends = append(view.Friends, rec.Friend)
		case models.FriendshipPending:
			if rec.IsRequester {
				view.Outgoing = append(view.Outgoing, rec.Friend)
			} else {
				view.Incoming = append(view.Incoming, rec.Friend)
			}
		}
	}
	return view
}

// Loaded reports whether the initial fetch has completed.
func (f *Friends) Loaded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}

// Err returns the last fetch error, if any.
func (f *Friends) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Close tears down the realtime subscription.
func (f *Friends) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	sub := f.sub
	f.sub = nil
	f.mu.Unlock()

	if sub != nil {
		return sub.Close()
	}
	return nil
}

func (f *Friends) onFriendshipChange(ev realtime.Event) {
	if _, ok := ev.(realtime.FriendshipChanged); !ok {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()
		if err := f.Refresh(ctx); err != nil {
			log.Printf("friendship refresh failed: %v", err)
		}
	}()
}

func (f *Friends) changed() {
	if f.notify != nil {
		f.notify()
	}
}

func (f *Friends) emitAudit(ctx context.Context, level, text string) {
	userID := f.selfID
	f.audit.Emit(ctx, level, text, &userID)
}
