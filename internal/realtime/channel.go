package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// ChangeFilter selects which change events a handler receives. Filter is the
// server-side row filter (e.g. "conversation_id=eq.42"); it is forwarded in
// the join config and not re-applied client-side.
type ChangeFilter struct {
	Event  string
	Table  string
	Filter string
}

// PresenceMeta is the liveness payload tracked for one connection.
type PresenceMeta struct {
	OnlineAt string `json:"online_at"`
	Ref      string `json:"phx_ref,omitempty"`
}

type changeBinding struct {
	filter  ChangeFilter
	handler func(Event)
}

// Channel is one subscription topic multiplexed over the realtime
// connection, carrying postgres change events, presence, or both.
type Channel struct {
	client *Client
	topic  string

	mu            sync.Mutex
	bindings      []changeBinding
	presenceKey   string
	syncHandlers  []func(state map[string][]PresenceMeta)
	joinHandlers  []func(key string, metas []PresenceMeta)
	leaveHandlers []func(key string, metas []PresenceMeta)
	joined        bool
	closed        bool
}

// ChannelOption configures a channel before Subscribe.
type ChannelOption func(*Channel)

// WithPresenceKey keys this channel's presence tracking by the given
// identity id.
func WithPresenceKey(key string) ChannelOption {
	return func(ch *Channel) {
		ch.presenceKey = key
	}
}

// OnChange registers a handler for decoded change events matching the
// filter. Must be called before Subscribe.
func (ch *Channel) OnChange(filter ChangeFilter, handler func(Event)) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.bindings = append(ch.bindings, changeBinding{filter: filter, handler: handler})
}

// OnPresenceSync registers a handler for full presence state replacement.
func (ch *Channel) OnPresenceSync(handler func(state map[string][]PresenceMeta)) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.syncHandlers = append(ch.syncHandlers, handler)
}

// OnPresenceJoin registers a handler for a single identity joining.
func (ch *Channel) OnPresenceJoin(handler func(key string, metas []PresenceMeta)) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.joinHandlers = append(ch.joinHandlers, handler)
}

// OnPresenceLeave registers a handler for a single identity leaving.
func (ch *Channel) OnPresenceLeave(handler func(key string, metas []PresenceMeta)) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.leaveHandlers = append(ch.leaveHandlers, handler)
}

type joinConfig struct {
	PostgresChanges []joinChange  `json:"postgres_changes,omitempty"`
	Presence        *joinPresence `json:"presence,omitempty"`
}

type joinChange struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Filter string `json:"filter,omitempty"`
}

type joinPresence struct {
	Key string `json:"key"`
}

// Subscribe joins the topic with the registered bindings and waits for the
// server acknowledgment.
func (ch *Channel) Subscribe(ctx context.Context) error {
	ch.mu.Lock()
	cfg := joinConfig{}
	for _, b := range ch.bindings {
		cfg.PostgresChanges = append(cfg.PostgresChanges, joinChange{
			Event:  b.filter.Event,
			Schema: "public",
			Table:  b.filter.Table,
			Filter: b.filter.Filter,
		})
	}
	if ch.presenceKey != "" {
		cfg.Presence = &joinPresence{Key: ch.presenceKey}
	}
	ch.mu.Unlock()

	payload := map[string]any{"config": cfg}
	if ch.client.tokens != nil {
		if token := ch.client.tokens.AccessToken(); token != "" {
			payload["access_token"] = token
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	joinCtx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()
	err = ch.client.sendWithReply(joinCtx, frame{
		Topic:   ch.topic,
		Event:   "phx_join",
		Payload: body,
		Ref:     ch.client.nextRef(),
	})
	if err != nil {
		return err
	}
	ch.setJoined(true)
	return nil
}

// Track publishes this client's presence meta on the channel.
func (ch *Channel) Track(ctx context.Context, meta PresenceMeta) error {
	body, err := json.Marshal(map[string]any{
		"type":    "presence",
		"event":   "track",
		"payload": meta,
	})
	if err != nil {
		return err
	}
	trackCtx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()
	return ch.client.sendWithReply(trackCtx, frame{
		Topic:   ch.topic,
		Event:   "presence",
		Payload: body,
		Ref:     ch.client.nextRef(),
	})
}

// Close leaves the topic and deregisters the channel.
func (ch *Channel) Close() error {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return nil
	}
	ch.closed = true
	ch.joined = false
	ch.mu.Unlock()

	ch.client.removeChannel(ch.topic)
	return ch.client.send(frame{
		Topic:   ch.topic,
		Event:   "phx_leave",
		Payload: json.RawMessage(`{}`),
		Ref:     ch.client.nextRef(),
	})
}

func (ch *Channel) setJoined(joined bool) {
	ch.mu.Lock()
	ch.joined = joined
	ch.mu.Unlock()
}

type changePayload struct {
	Data struct {
		Schema    string          `json:"schema"`
		Table     string          `json:"table"`
		Type      string          `json:"type"`
		Record    json.RawMessage `json:"record"`
		OldRecord json.RawMessage `json:"old_record"`
	} `json:"data"`
}

// handleChange decodes a raw change frame into its tagged event and fans it
// out to matching bindings. Undecodable payloads are dropped with a log line
// rather than trusted.
func (ch *Channel) handleChange(raw json.RawMessage) {
	var payload changePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Printf("realtime: malformed change payload on %s: %v", ch.topic, err)
		return
	}

	record := payload.Data.Record
	if payload.Data.Type == ActionDelete {
		record = payload.Data.OldRecord
	}
	event, err := DecodeEvent(payload.Data.Table, payload.Data.Type, record)
	if err != nil {
		log.Printf("realtime: dropped change on %s: %v", ch.topic, err)
		return
	}
	countEvent(payload.Data.Table, payload.Data.Type)

	ch.mu.Lock()
	bindings := make([]changeBinding, len(ch.bindings))
	copy(bindings, ch.bindings)
	ch.mu.Unlock()

	for _, b := range bindings {
		if b.filter.Table != payload.Data.Table {
			continue
		}
		if b.filter.Event != ActionAll && b.filter.Event != payload.Data.Type {
			continue
		}
		b.handler(event)
	}
}

type presenceEntry struct {
	Metas []PresenceMeta `json:"metas"`
}

func (ch *Channel) handlePresenceState(raw json.RawMessage) {
	var entries map[string]presenceEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.Printf("realtime: malformed presence state on %s: %v", ch.topic, err)
		return
	}

	state := make(map[string][]PresenceMeta, len(entries))
	for key, entry := range entries {
		state[key] = entry.Metas
	}

	ch.mu.Lock()
	handlers := make([]func(map[string][]PresenceMeta), len(ch.syncHandlers))
	copy(handlers, ch.syncHandlers)
	ch.mu.Unlock()

	for _, h := range handlers {
		h(state)
	}
}

func (ch *Channel) handlePresenceDiff(raw json.RawMessage) {
	var diff struct {
		Joins  map[string]presenceEntry `json:"joins"`
		Leaves map[string]presenceEntry `json:"leaves"`
	}
	if err := json.Unmarshal(raw, &diff); err != nil {
		log.Printf("realtime: malformed presence diff on %s: %v", ch.topic, err)
		return
	}

	ch.mu.Lock()
	joins := make([]func(string, []PresenceMeta), len(ch.joinHandlers))
	copy(joins, ch.joinHandlers)
	leaves := make([]func(string, []PresenceMeta), len(ch.leaveHandlers))
	copy(leaves, ch.leaveHandlers)
	ch.mu.Unlock()

	for key, entry := range diff.Joins {
		for _, h := range joins {
			h(key, entry.Metas)
		}
	}
	for key, entry := range diff.Leaves {
		for _, h := range leaves {
			h(key, entry.Metas)
		}
	}
}
