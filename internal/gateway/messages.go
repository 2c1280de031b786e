package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"chatamata-client/internal/models"
)

// messageSelect embeds the sender profile and any read receipt alongside
// each message row.
const messageSelect = "*,sender:profiles(*),read:message_read_statuses(read_at)"

// NewMessage is the payload for a message insert. Content and ImageURL may
// not both be empty.
type NewMessage struct {
	ConversationID int64
	SenderID       string
	Content        string
	ImageURL       string
}

type messageRow struct {
	ID             int64          `json:"id"`
	ConversationID int64          `json:"conversation_id"`
	SenderID       string         `json:"sender_id"`
	Content        *string        `json:"content"`
	ImageURL       *string        `json:"image_url"`
	CreatedAt      time.Time      `json:"created_at"`
	DeletedAt      *time.Time     `json:"deleted_at"`
	Sender         models.Profile `json:"sender"`
	Read           []struct {
		ReadAt time.Time `json:"read_at"`
	} `json:"read"`
}

func (r messageRow) toModel() models.Message {
	msg := models.Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		SenderID:       r.SenderID,
		Sender:         r.Sender,
		CreatedAt:      r.CreatedAt,
		DeletedAt:      r.DeletedAt,
		Status:         models.StatusSuccess,
	}
	if r.Content != nil {
		msg.Content = *r.Content
	}
	if r.ImageURL != nil {
		msg.ImageURL = *r.ImageURL
	}
	if len(r.Read) > 0 {
		readAt := r.Read[0].ReadAt
		msg.ReadAt = &readAt
	}
	return msg
}

// ListMessages returns one page of a conversation's messages, newest first,
// soft-deleted rows excluded. The caller reverses for display order.
func (c *Client) ListMessages(ctx context.Context, conversationID int64, offset, limit int) ([]models.Message, error) {
	query := url.Values{}
	query.Set("select", messageSelect)
	query.Set("conversation_id", "eq."+strconv.FormatInt(conversationID, 10))
	query.Set("deleted_at", "is.null")
	query.Set("order", "created_at.desc")
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))

	var rows []messageRow
	err := c.do(ctx, request{
		op:     "messages.list",
		method: http.MethodGet,
		path:   "/rest/v1/messages",
		query:  query,
	}, &rows)
	if err != nil {
		return nil, err
	}

	msgs := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, row.toModel())
	}
	return msgs, nil
}

// GetMessage fetches one message with its sender profile embedded.
func (c *Client) GetMessage(ctx context.Context, id int64) (models.Message, error) {
	query := url.Values{}
	query.Set("select", messageSelect)
	query.Set("id", "eq."+strconv.FormatInt(id, 10))

	var row messageRow
	err := c.do(ctx, request{
		op:      "messages.get",
		method:  http.MethodGet,
		path:    "/rest/v1/messages",
		query:   query,
		headers: map[string]string{"Accept": singleObject},
	}, &row)
	if err != nil {
		return models.Message{}, err
	}
	return row.toModel(), nil
}

// InsertMessage stores a message and returns the confirmed row with the
// sender join, matching what a list fetch would produce.
func (c *Client) InsertMessage(ctx context.Context, msg NewMessage) (models.Message, error) {
	if msg.Content == "" && msg.ImageURL == "" {
		return models.Message{}, fmt.Errorf("messages.insert: empty message")
	}

	body := map[string]any{
		"conversation_id": msg.ConversationID,
		"sender_id":       msg.SenderID,
	}
	if msg.Content != "" {
		body["content"] = msg.Content
	}
	if msg.ImageURL != "" {
		body["image_url"] = msg.ImageURL
	}

	query := url.Values{}
	query.Set("select", messageSelect)

	var row messageRow
	err := c.do(ctx, request{
		op:     "messages.insert",
		method: http.MethodPost,
		path:   "/rest/v1/messages",
		query:  query,
		headers: map[string]string{
			"Accept": singleObject,
			"Prefer": "return=representation",
		},
		body: body,
	}, &row)
	if err != nil {
		return models.Message{}, err
	}
	return row.toModel(), nil
}

// SoftDeleteMessage stamps deleted_at on the row; the message stays in
// storage and is filtered from all views.
func (c *Client) SoftDeleteMessage(ctx context.Context, id int64) error {
	query := url.Values{}
	query.Set("id", "eq."+strconv.FormatInt(id, 10))

	return c.do(ctx, request{
		op:      "messages.soft_delete",
		method:  http.MethodPatch,
		path:    "/rest/v1/messages",
		query:   query,
		headers: map[string]string{"Prefer": "return=minimal"},
		body:    map[string]any{"deleted_at": time.Now().UTC().Format(time.RFC3339Nano)},
	}, nil)
}
