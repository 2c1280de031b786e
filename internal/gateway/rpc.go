package gateway

import (
	"context"
	"net/http"

	"chatamata-client/internal/models"
)

// Conversations invokes the get_user_conversations procedure, which returns
// one preview row per conversation the authenticated identity participates in.
func (c *Client) Conversations(ctx context.Context) ([]models.ConversationPreview, error) {
	var previews []models.ConversationPreview
	err := c.do(ctx, request{
		op:     "rpc.get_user_conversations",
		method: http.MethodPost,
		path:   "/rest/v1/rpc/get_user_conversations",
		body:   map[string]any{},
	}, &previews)
	if err != nil {
		return nil, err
	}
	return previews, nil
}

// MarkMessagesRead acknowledges all incoming messages in a conversation.
func (c *Client) MarkMessagesRead(ctx context.Context, conversationID int64) error {
	return c.do(ctx, request{
		op:     "rpc.mark_messages_as_read",
		method: http.MethodPost,
		path:   "/rest/v1/rpc/mark_messages_as_read",
		body:   map[string]any{"p_conversation_id": conversationID},
	}, nil)
}

// SendFriendRequest creates a pending friendship directed at receiverID.
func (c *Client) SendFriendRequest(ctx context.Context, receiverID string) error {
	return c.do(ctx, request{
		op:     "rpc.send_friend_request",
		method: http.MethodPost,
		path:   "/rest/v1/rpc/send_friend_request",
		body:   map[string]any{"p_receiver_id": receiverID},
	}, nil)
}

// RespondFriendRequest resolves a pending request from senderID.
func (c *Client) RespondFriendRequest(ctx context.Context, senderID string, response models.FriendshipStatus) error {
	return c.do(ctx, request{
		op:     "rpc.respond_to_friend_request",
		method: http.MethodPost,
		path:   "/rest/v1/rpc/respond_to_friend_request",
		body: map[string]any{
			"p_sender_id": senderID,
			"p_response":  response,
		},
	}, nil)
}

// GenerateUniqueID asks the platform for a fresh public handle, used during
// sign-up.
func (c *Client) GenerateUniqueID(ctx context.Context) (string, error) {
	var id string
	err := c.do(ctx, request{
		op:     "rpc.generate_unique_id",
		method: http.MethodPost,
		path:   "/rest/v1/rpc/generate_unique_id",
		body:   map[string]any{},
	}, &id)
	if err != nil {
		return "", err
	}
	return id, nil
}
