package models

import "time"

// MessageStatus is the client-only delivery lifecycle of a message.
type MessageStatus string

const (
	StatusSending MessageStatus = "sending"
	StatusSuccess MessageStatus = "success"
	StatusError   MessageStatus = "error"
)

// Message is a single chat entry. Before the gateway confirms an optimistic
// send the entry carries a transient TempID and no server id; the confirmed
// row replaces it under the same TempID.
type Message struct {
	ID             int64         `json:"id"`
	TempID         string        `json:"temp_id,omitempty"`
	ConversationID int64         `json:"conversation_id"`
	SenderID       string        `json:"sender_id"`
	Content        string        `json:"content"`
	ImageURL       string        `json:"image_url,omitempty"`
	Sender         Profile       `json:"sender"`
	CreatedAt      time.Time     `json:"created_at"`
	DeletedAt      *time.Time    `json:"deleted_at,omitempty"`
	ReadAt         *time.Time    `json:"read_at,omitempty"`
	Status         MessageStatus `json:"status"`
}

// Confirmed reports whether the message holds a server-assigned id.
func (m Message) Confirmed() bool {
	return m.ID > 0
}
