package models

import "time"

// ConversationPreview is the denormalized per-identity summary row returned
// by the get_user_conversations procedure: display metadata plus latest
// activity and unread state. Exactly one preview exists per conversation the
// identity participates in.
type ConversationPreview struct {
	ConversationID int64      `json:"conversation_id"`
	IsGroup        bool       `json:"is_group"`
	DisplayName    string     `json:"display_name"`
	DisplayAvatar  string     `json:"display_avatar"`
	OtherUserID    string     `json:"other_user_id,omitempty"`
	LatestContent  string     `json:"latest_message_content"`
	LatestAt       *time.Time `json:"latest_message_at"`
	UnreadCount    int        `json:"unread_count"`
}
