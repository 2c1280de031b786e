package chat

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"

	"chatamata-client/internal/models"
	"chatamata-client/internal/realtime"
	"chatamata-client/internal/telemetry"
)

// ConversationGateway is the slice of the remote gateway the list needs.
type ConversationGateway interface {
	Conversations(ctx context.Context) ([]models.ConversationPreview, error)
}

// List maintains the conversation overview: one preview per conversation,
// ordered by latest activity, with unread counters kept live from realtime
// inserts. Events the list cannot patch incrementally fall back to a full
// refetch.
type List struct {
	gw     ConversationGateway
	feed   Feed
	selfID string
	audit  *telemetry.AuditEmitter
	notify func()

	mu       sync.Mutex
	previews []models.ConversationPreview
	query    string
	loaded   bool
	err      error
	closed   bool
	sub      Subscription
}

// NewList constructs the conversation list synchronizer.
func NewList(gw ConversationGateway, feed Feed, selfID string, audit *telemetry.AuditEmitter, notify func()) *List {
	return &List{
		gw:     gw,
		feed:   feed,
		selfID: selfID,
		audit:  audit,
		notify: notify,
	}
}

// Open subscribes the list's realtime channel and performs the initial
// fetch. The message insert binding is deliberately unfiltered: any insert
// in any conversation can move a preview.
func (l *List) Open(ctx context.Context) error {
	sub := l.feed.Channel("conversations-" + l.selfID)
	sub.OnChange(realtime.ChangeFilter{Event: realtime.ActionInsert, Table: "messages"}, l.onMessageInsert)
	sub.OnChange(realtime.ChangeFilter{Event: realtime.ActionInsert, Table: "message_read_statuses"}, l.onReadReceipt)
	sub.OnChange(realtime.ChangeFilter{Event: realtime.ActionInsert, Table: "participants"}, l.onParticipantInsert)
	sub.OnChange(realtime.ChangeFilter{Event: realtime.ActionUpdate, Table: "profiles"}, l.onProfileUpdate)

	if err := sub.Subscribe(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	l.sub = sub
	l.mu.Unlock()

	return l.Refresh(ctx)
}

// Refresh replaces the list from the gateway.
func (l *List) Refresh(ctx context.Context) error {
	previews, err := l.gw.Conversations(ctx)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	if err != nil {
		l.err = err
		l.mu.Unlock()
		l.changed()
		return err
	}
	sortPreviews(previews)
	l.previews = previews
	l.loaded = true
	l.err = nil
	l.mu.Unlock()
	l.changed()
	return nil
}

// ApplyMessageInsert patches the preview for an inserted message row: latest
// content and timestamp move, the unread counter increments unless the
// message is our own, and the list re-sorts. An insert for a conversation we
// do not know yet (just joined, preview never fetched) triggers a full
// refresh instead.
func (l *List) ApplyMessageInsert(row realtime.MessageRow) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	idx := l.indexByID(row.ConversationID)
	if idx < 0 {
		l.mu.Unlock()
		l.refreshAsync("unknown conversation in message insert")
		return
	}

	content := ""
	if row.Content != nil {
		content = *row.Content
	}
	if content == "" && row.ImageURL != nil && *row.ImageURL != "" {
		content = "[image]"
	}
	at := row.CreatedAt
	l.previews[idx].LatestContent = content
	l.previews[idx].LatestAt = &at
	if row.SenderID != l.selfID {
		l.previews[idx].UnreadCount++
	}
	sortPreviews(l.previews)
	l.mu.Unlock()
	l.changed()
}

// ReadAll zeroes the unread counter for a conversation, mirroring a
// mark-as-read performed by this identity.
func (l *List) ReadAll(conversationID int64) {
	l.mu.Lock()
	if idx := l.indexByID(conversationID); idx >= 0 {
		l.previews[idx].UnreadCount = 0
	}
	l.mu.Unlock()
	l.changed()
}

// SetQuery installs the case-insensitive filter applied by Snapshot.
func (l *List) SetQuery(q string) {
	l.mu.Lock()
	l.query = strings.ToLower(strings.TrimSpace(q))
	l.mu.Unlock()
	l.changed()
}

// Snapshot returns the current list, filtered by the query against display
// name and latest message content.
func (l *List) Snapshot() []models.ConversationPreview {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.ConversationPreview, 0, len(l.previews))
	for _, p := range l.previews {
		if l.query != "" &&
			!strings.Contains(strings.ToLower(p.DisplayName), l.query) &&
			!strings.Contains(strings.ToLower(p.LatestContent), l.query) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Loaded reports whether the initial fetch has completed.
func (l *List) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// Err returns the last fetch error, if any.
func (l *List) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Close tears down the realtime subscription.
func (l *List) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	sub := l.sub
	l.sub = nil
	l.mu.Unlock()

	if sub != nil {
		return sub.Close()
	}
	return nil
}

func (l *List) onMessageInsert(ev realtime.Event) {
	ins, ok := ev.(realtime.MessageInserted)
	if !ok {
		return
	}
	l.ApplyMessageInsert(ins.Row)
}

func (l *List) onReadReceipt(ev realtime.Event) {
	receipt, ok := ev.(realtime.ReadReceiptInserted)
	if !ok || receipt.Row.UserID != l.selfID {
		return
	}
	l.ReadAll(receipt.Row.ConversationID)
}

// onParticipantInsert refetches wholesale when this identity joins a
// conversation. The preview for a brand new conversation can only come from
// the gateway.
func (l *List) onParticipantInsert(ev realtime.Event) {
	ins, ok := ev.(realtime.ParticipantInserted)
	if !ok || ins.Row.UserID != l.selfID {
		return
	}
	l.refreshAsync("joined a conversation")
}

func (l *List) onProfileUpdate(ev realtime.Event) {
	if _, ok := ev.(realtime.ProfileUpdated); !ok {
		return
	}
	l.refreshAsync("counterpart profile changed")
}

func (l *List) refreshAsync(reason string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()
		if err := l.Refresh(ctx); err != nil {
			log.Printf("conversation refresh (%s) failed: %v", reason, err)
		}
	}()
}

func (l *List) indexByID(conversationID int64) int {
	for i, p := range l.previews {
		if p.ConversationID == conversationID {
			return i
		}
	}
	return -1
}

func (l *List) changed() {
	if l.notify != nil {
		l.notify()
	}
}

// sortPreviews orders by latest activity, newest first, previews with no
// activity last. The sort is stable so equal timestamps keep gateway order.
func sortPreviews(previews []models.ConversationPreview) {
	sort.SliceStable(previews, func(i, j int) bool {
		a, b := previews[i].LatestAt, previews[j].LatestAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}
