package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatamata-client/internal/gateway"
	"chatamata-client/internal/models"
	"chatamata-client/internal/observability"
	"chatamata-client/internal/realtime"
	"chatamata-client/internal/telemetry"
)

// MessagesPerPage is the window size for thread pagination.
const MessagesPerPage = 30

// maxChatImageBytes caps chat image uploads before any remote round-trip.
const maxChatImageBytes = 10 << 20

const handlerTimeout = 10 * time.Second

var (
	ErrEmptyMessage  = errors.New("message is empty")
	ErrImageTooLarge = errors.New("image exceeds the upload size limit")
	ErrNoSuchPending = errors.New("no failed message with that id")
	ErrThreadClosed  = errors.New("thread is closed")
	ErrNotConfirmed  = errors.New("message has no server-assigned id")
)

// MessageGateway is the slice of the remote gateway a thread needs.
type MessageGateway interface {
	ListMessages(ctx context.Context, conversationID int64, offset, limit int) ([]models.Message, error)
	GetMessage(ctx context.Context, id int64) (models.Message, error)
	InsertMessage(ctx context.Context, msg gateway.NewMessage) (models.Message, error)
	SoftDeleteMessage(ctx context.Context, id int64) error
	MarkMessagesRead(ctx context.Context, conversationID int64) error
	Upload(ctx context.Context, bucket, objectPath, contentType string, body io.Reader) error
	PublicURL(bucket, objectPath string) string
}

// ThreadState is the fetch/pagination state alongside the message list.
type ThreadState struct {
	Loading     bool
	LoadingMore bool
	HasMore     bool
	Err         error
}

type pendingImage struct {
	data        []byte
	contentType string
	ext         string
	publicURL   string
}

// Thread maintains the ordered, deduplicated message view for one
// conversation: initial load, backward pagination, optimistic send with
// retry, soft delete and realtime merge. All mutation happens under one
// mutex; handlers invoked by the realtime dispatcher take the same lock.
type Thread struct {
	gw             MessageGateway
	feed           Feed
	conversationID int64
	self           models.Profile
	audit          *telemetry.AuditEmitter
	notify         func()

	mu         sync.Mutex
	messages   []models.Message
	pending    map[string]pendingImage
	page       int
	hasMore    bool
	loading    bool
	olderBusy  bool
	err        error
	generation uint64
	closed     bool
	sub        Subscription
}

// NewThread constructs a thread synchronizer for one conversation.
func NewThread(gw MessageGateway, feed Feed, conversationID int64, self models.Profile, audit *telemetry.AuditEmitter, notify func()) *Thread {
	return &Thread{
		gw:             gw,
		feed:           feed,
		conversationID: conversationID,
		self:           self,
		audit:          audit,
		notify:         notify,
		pending:        map[string]pendingImage{},
		hasMore:        true,
	}
}

// Open subscribes the thread's realtime channel and loads the first page.
// The channel topic is unique per (conversation, identity, instant) so a
// stale subscription from a previous selection can never be rejoined.
func (t *Thread) Open(ctx context.Context) error {
	sub := t.feed.Channel(fmt.Sprintf("chat-%d-%s-%d", t.conversationID, t.self.ID, time.Now().UnixMilli()))
	sub.OnChange(realtime.ChangeFilter{
		Event:  realtime.ActionInsert,
		Table:  "messages",
		Filter: fmt.Sprintf("conversation_id=eq.%d", t.conversationID),
	}, t.onMessageInsert)
	sub.OnChange(realtime.ChangeFilter{
		Event: realtime.ActionInsert,
		Table: "message_read_statuses",
	}, t.onReadReceipt)

	if err := sub.Subscribe(ctx); err != nil {
		return err
	}

	t.mu.Lock()
	t.sub = sub
	t.mu.Unlock()

	return t.Load(ctx)
}

// Load fetches the most recent page and resets pagination. A load that
// completes after Close, or after a newer Load started, is discarded so a
// superseded fetch can never clobber fresher state.
func (t *Thread) Load(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrThreadClosed
	}
	t.generation++
	gen := t.generation
	t.loading = true
	t.err = nil
	t.page = 0
	t.hasMore = true
	t.mu.Unlock()
	t.changed()

	msgs, err := t.gw.ListMessages(ctx, t.conversationID, 0, MessagesPerPage)

	t.mu.Lock()
	if t.closed || gen != t.generation {
		t.mu.Unlock()
		return nil
	}
	t.loading = false
	if err != nil {
		t.err = err
		t.mu.Unlock()
		t.changed()
		return err
	}
	t.messages = reverseMessages(msgs)
	t.hasMore = len(msgs) == MessagesPerPage
	t.mu.Unlock()
	t.changed()

	if err := t.gw.MarkMessagesRead(ctx, t.conversationID); err != nil {
		log.Printf("mark messages read failed for conversation %d: %v", t.conversationID, err)
	}
	return nil
}

// LoadOlder prepends the next page. Guarded against concurrent calls and
// no-ops once the history is exhausted.
func (t *Thread) LoadOlder(ctx context.Context) error {
	t.mu.Lock()
	if t.closed || t.olderBusy || !t.hasMore {
		t.mu.Unlock()
		return nil
	}
	t.olderBusy = true
	page := t.page + 1
	gen := t.generation
	t.mu.Unlock()
	t.changed()

	msgs, err := t.gw.ListMessages(ctx, t.conversationID, page*MessagesPerPage, MessagesPerPage)

	t.mu.Lock()
	if t.closed || gen != t.generation {
		t.mu.Unlock()
		return nil
	}
	t.olderBusy = false
	if err != nil {
		t.err = err
		t.mu.Unlock()
		t.changed()
		return err
	}
	t.messages = append(reverseMessages(msgs), t.messages...)
	t.hasMore = len(msgs) == MessagesPerPage
	t.page = page
	t.mu.Unlock()
	t.changed()
	return nil
}

// SendText appends an optimistic placeholder and delivers it. The returned
// transient id identifies the placeholder for retry; delivery failures are
// reflected in the message status, not the error return.
func (t *Thread) SendText(ctx context.Context, content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyMessage
	}

	tempID := uuid.NewString()
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return "", ErrThreadClosed
	}
	t.messages = append(t.messages, t.placeholder(tempID, content, ""))
	t.mu.Unlock()
	t.changed()

	t.deliver(ctx, tempID, gateway.NewMessage{
		ConversationID: t.conversationID,
		SenderID:       t.self.ID,
		Content:        content,
	}, "text")
	return tempID, nil
}

// SendImage uploads the file to conversation-scoped storage, then delivers a
// message referencing its public URL. The placeholder is visible from before
// the upload starts.
func (t *Thread) SendImage(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyMessage
	}
	if len(data) > maxChatImageBytes {
		return "", ErrImageTooLarge
	}

	tempID := uuid.NewString()
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return "", ErrThreadClosed
	}
	t.messages = append(t.messages, t.placeholder(tempID, "", ""))
	t.pending[tempID] = pendingImage{
		data:        data,
		contentType: contentType,
		ext:         path.Ext(filename),
	}
	t.mu.Unlock()
	t.changed()

	url, err := t.uploadPending(ctx, tempID)
	if err != nil {
		t.failPlaceholder(ctx, tempID, "image", err)
		return tempID, nil
	}
	t.deliver(ctx, tempID, gateway.NewMessage{
		ConversationID: t.conversationID,
		SenderID:       t.self.ID,
		ImageURL:       url,
	}, "image")
	return tempID, nil
}

// Retry re-delivers a failed placeholder under its original transient id.
func (t *Thread) Retry(ctx context.Context, tempID string) error {
	t.mu.Lock()
	idx := t.indexByTempID(tempID)
	if idx < 0 || t.messages[idx].Status != models.StatusError {
		t.mu.Unlock()
		return ErrNoSuchPending
	}
	t.messages[idx].Status = models.StatusSending
	content := t.messages[idx].Content
	pend, isImage := t.pending[tempID]
	t.mu.Unlock()
	t.changed()
	observability.IncSend(kindFor(isImage), "retry")

	msg := gateway.NewMessage{
		ConversationID: t.conversationID,
		SenderID:       t.self.ID,
		Content:        content,
	}
	if isImage {
		url := pend.publicURL
		if url == "" {
			var err error
			if url, err = t.uploadPending(ctx, tempID); err != nil {
				t.failPlaceholder(ctx, tempID, "image", err)
				return nil
			}
		}
		msg.ImageURL = url
	}
	t.deliver(ctx, tempID, msg, kindFor(isImage))
	return nil
}

// Delete removes the message from the visible list immediately and issues
// the remote soft delete. There is no rollback when the remote call fails;
// the local removal is final for the session. Only server-confirmed rows can
// be deleted; in-flight placeholders share id zero and would all match.
func (t *Thread) Delete(ctx context.Context, messageID int64) error {
	if messageID <= 0 {
		return ErrNotConfirmed
	}
	t.mu.Lock()
	kept := t.messages[:0]
	for _, m := range t.messages {
		if m.ID != messageID {
			kept = append(kept, m)
		}
	}
	t.messages = kept
	t.mu.Unlock()
	t.changed()

	if err := t.gw.SoftDeleteMessage(ctx, messageID); err != nil {
		log.Printf("soft delete of message %d failed: %v", messageID, err)
		t.emitAudit(ctx, "WARN", fmt.Sprintf("could not delete message %d", messageID))
		return err
	}
	return nil
}

// Snapshot returns a copy of the display-ordered message list.
func (t *Thread) Snapshot() []models.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// State reports the fetch and pagination flags.
func (t *Thread) State() ThreadState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ThreadState{
		Loading:     t.loading,
		LoadingMore: t.olderBusy,
		HasMore:     t.hasMore,
		Err:         t.err,
	}
}

// ConversationID identifies the conversation this thread tracks.
func (t *Thread) ConversationID() int64 {
	return t.conversationID
}

// Close tears down the realtime subscription and invalidates in-flight
// loads.
func (t *Thread) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.generation++
	sub := t.sub
	t.sub = nil
	t.mu.Unlock()

	if sub != nil {
		return sub.Close()
	}
	return nil
}

// onMessageInsert merges a realtime insert. Self-authored rows are skipped
// outright: the optimistic entry already represents them and ordering
// against the echo is not guaranteed.
func (t *Thread) onMessageInsert(ev realtime.Event) {
	ins, ok := ev.(realtime.MessageInserted)
	if !ok || ins.Row.SenderID == t.self.ID {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	full, err := t.gw.GetMessage(ctx, ins.Row.ID)
	if err != nil {
		log.Printf("fetch of realtime message %d failed: %v", ins.Row.ID, err)
		return
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	if t.indexByID(full.ID) >= 0 {
		t.mu.Unlock()
		return
	}
	t.messages = append(t.messages, full)
	t.mu.Unlock()
	t.changed()

	if err := t.gw.MarkMessagesRead(ctx, t.conversationID); err != nil {
		log.Printf("mark messages read failed for conversation %d: %v", t.conversationID, err)
	}
}

func (t *Thread) onReadReceipt(ev realtime.Event) {
	receipt, ok := ev.(realtime.ReadReceiptInserted)
	if !ok {
		return
	}

	t.mu.Lock()
	idx := t.indexByID(receipt.Row.MessageID)
	if idx < 0 {
		t.mu.Unlock()
		return
	}
	readAt := receipt.Row.ReadAt
	t.messages[idx].ReadAt = &readAt
	t.mu.Unlock()
	t.changed()
}

// deliver issues the insert and resolves the placeholder: replaced by the
// confirmed row on success, marked errored with a retry affordance on
// failure.
func (t *Thread) deliver(ctx context.Context, tempID string, msg gateway.NewMessage, kind string) {
	saved, err := t.gw.InsertMessage(ctx, msg)
	if err != nil {
		t.failPlaceholder(ctx, tempID, kind, err)
		return
	}

	t.mu.Lock()
	idx := t.indexByTempID(tempID)
	if idx < 0 {
		t.mu.Unlock()
		return
	}
	t.messages[idx] = saved
	delete(t.pending, tempID)
	t.mu.Unlock()
	t.changed()
	observability.IncSend(kind, "success")
}

func (t *Thread) failPlaceholder(ctx context.Context, tempID, kind string, cause error) {
	t.mu.Lock()
	if idx := t.indexByTempID(tempID); idx >= 0 {
		t.messages[idx].Status = models.StatusError
	}
	t.mu.Unlock()
	t.changed()
	observability.IncSend(kind, "error")
	log.Printf("send failed in conversation %d: %v", t.conversationID, cause)
	t.emitAudit(ctx, "WARN", fmt.Sprintf("%s send failed in conversation %d", kind, t.conversationID))
}

func (t *Thread) uploadPending(ctx context.Context, tempID string) (string, error) {
	t.mu.Lock()
	pend, ok := t.pending[tempID]
	t.mu.Unlock()
	if !ok {
		return "", ErrNoSuchPending
	}

	objectPath := fmt.Sprintf("%d/%d%s", t.conversationID, time.Now().UnixMilli(), pend.ext)
	if err := t.gw.Upload(ctx, gateway.BucketChatImages, objectPath, pend.contentType, bytes.NewReader(pend.data)); err != nil {
		return "", err
	}
	url := t.gw.PublicURL(gateway.BucketChatImages, objectPath)

	t.mu.Lock()
	pend.publicURL = url
	t.pending[tempID] = pend
	t.mu.Unlock()
	return url, nil
}

func (t *Thread) placeholder(tempID, content, imageURL string) models.Message {
	return models.Message{
		TempID:         tempID,
		ConversationID: t.conversationID,
		SenderID:       t.self.ID,
		Content:        content,
		ImageURL:       imageURL,
		Sender:         t.self,
		CreatedAt:      time.Now().UTC(),
		Status:         models.StatusSending,
	}
}

func (t *Thread) indexByTempID(tempID string) int {
	for i, m := range t.messages {
		if m.TempID == tempID {
			return i
		}
	}
	return -1
}

func (t *Thread) indexByID(id int64) int {
	for i, m := range t.messages {
		if m.Confirmed() && m.ID == id {
			return i
		}
	}
	return -1
}

func (t *Thread) changed() {
	if t.notify != nil {
		t.notify()
	}
}

func (t *Thread) emitAudit(ctx context.Context, level, text string) {
	userID := t.self.ID
	t.audit.Emit(ctx, level, text, &userID)
}

func kindFor(isImage bool) string {
	if isImage {
		return "image"
	}
	return "text"
}

func reverseMessages(msgs []models.Message) []models.Message {
	out := make([]models.Message, len(msgs))
	for i, m := range msgs {
		out[len(msgs)-1-i] = m
	}
	return out
}
