package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

// Change actions as they appear on the wire.
const (
	ActionInsert = "INSERT"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
	ActionAll    = "*"
)

// Row payloads, decoded from the loosely-typed change records at the
// subscription boundary. Only the columns the synchronizers consume are
// declared; anything else in the record is dropped here.

type MessageRow struct {
	ID             int64      `json:"id"`
	ConversationID int64      `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	Content        *string    `json:"content"`
	ImageURL       *string    `json:"image_url"`
	CreatedAt      time.Time  `json:"created_at"`
	DeletedAt      *time.Time `json:"deleted_at"`
}

type ReadStatusRow struct {
	MessageID      int64     `json:"message_id"`
	ConversationID int64     `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	ReadAt         time.Time `json:"read_at"`
}

type ParticipantRow struct {
	UserID         string `json:"user_id"`
	ConversationID int64  `json:"conversation_id"`
}

type ProfileRow struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type FriendshipRow struct {
	ID           int64  `json:"id"`
	Status       string `json:"status"`
	ActionUserID string `json:"action_user_id"`
}

// Event is the tagged variant delivered to change handlers; one variant per
// (table, operation) pair the client subscribes to.
type Event interface {
	EventTable() string
}

type MessageInserted struct{ Row MessageRow }

func (MessageInserted) EventTable() string { return "messages" }

type ReadReceiptInserted struct{ Row ReadStatusRow }

func (ReadReceiptInserted) EventTable() string { return "message_read_statuses" }

type ParticipantInserted struct{ Row ParticipantRow }

func (ParticipantInserted) EventTable() string { return "participants" }

type ProfileUpdated struct{ Row ProfileRow }

func (ProfileUpdated) EventTable() string { return "profiles" }

type FriendshipChanged struct {
	Action string
	Row    FriendshipRow
}

func (FriendshipChanged) EventTable() string { return "friendships" }

// DecodeEvent validates a raw change record into its tagged variant.
// Tables or operations the client never subscribes to come back as an error
// rather than a silently empty event.
func DecodeEvent(table, action string, record json.RawMessage) (Event, error) {
	switch table {
	case "messages":
		if action != ActionInsert {
			return nil, fmt.Errorf("realtime: unhandled %s on messages", action)
		}
		var row MessageRow
		if err := json.Unmarshal(record, &row); err != nil {
			return nil, fmt.Errorf("realtime: decode message record: %w", err)
		}
		return MessageInserted{Row: row}, nil
	case "message_read_statuses":
		if action != ActionInsert {
			return nil, fmt.Errorf("realtime: unhandled %s on message_read_statuses", action)
		}
		var row ReadStatusRow
		if err := json.Unmarshal(record, &row); err != nil {
			return nil, fmt.Errorf("realtime: decode read status record: %w", err)
		}
		return ReadReceiptInserted{Row: row}, nil
	case "participants":
		if action != ActionInsert {
			return nil, fmt.Errorf("realtime: unhandled %s on participants", action)
		}
		var row ParticipantRow
		if err := json.Unmarshal(record, &row); err != nil {
			return nil, fmt.Errorf("realtime: decode participant record: %w", err)
		}
		return ParticipantInserted{Row: row}, nil
	case "profiles":
		if action != ActionUpdate {
			return nil, fmt.Errorf("realtime: unhandled %s on profiles", action)
		}
		var row ProfileRow
		if err := json.Unmarshal(record, &row); err != nil {
			return nil, fmt.Errorf("realtime: decode profile record: %w", err)
		}
		return ProfileUpdated{Row: row}, nil
	case "friendships":
		var row FriendshipRow
		if len(record) > 0 {
			if err := json.Unmarshal(record, &row); err != nil {
				return nil, fmt.Errorf("realtime: decode friendship record: %w", err)
			}
		}
		return FriendshipChanged{Action: action, Row: row}, nil
	default:
		return nil, fmt.Errorf("realtime: unknown table %q", table)
	}
}
