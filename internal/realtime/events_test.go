package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMessageInsert(t *testing.T) {
	record := json.RawMessage(`{"id":5,"conversation_id":7,"sender_id":"user-2","content":"hi"}`)

	ev, err := DecodeEvent("messages", ActionInsert, record)
	require.NoError(t, err)

	ins, ok := ev.(MessageInserted)
	require.True(t, ok)
	assert.Equal(t, int64(5), ins.Row.ID)
	assert.Equal(t, int64(7), ins.Row.ConversationID)
	require.NotNil(t, ins.Row.Content)
	assert.Equal(t, "hi", *ins.Row.Content)
}

func TestDecodeRejectsUnhandledAction(t *testing.T) {
	_, err := DecodeEvent("messages", ActionDelete, json.RawMessage(`{}`))
	require.Error(t, err)

	_, err = DecodeEvent("profiles", ActionInsert, json.RawMessage(`{}`))
	require.Error(t, err)
}

func TestDecodeRejectsUnknownTable(t *testing.T) {
	_, err := DecodeEvent("bogus", ActionInsert, json.RawMessage(`{}`))
	require.Error(t, err)
}

func TestDecodeFriendshipCarriesAction(t *testing.T) {
	ev, err := DecodeEvent("friendships", ActionDelete, json.RawMessage(`{"id":3,"status":"accepted"}`))
	require.NoError(t, err)

	changed, ok := ev.(FriendshipChanged)
	require.True(t, ok)
	assert.Equal(t, ActionDelete, changed.Action)
	assert.Equal(t, int64(3), changed.Row.ID)
}

func TestDecodeRejectsMalformedRecord(t *testing.T) {
	_, err := DecodeEvent("messages", ActionInsert, json.RawMessage(`{"id":"not-a-number"}`))
	require.Error(t, err)
}

func TestHandleChangeDispatchesToMatchingBindings(t *testing.T) {
	ch := &Channel{topic: "realtime:test"}

	var gotInsert, gotAll, gotOther int
	ch.OnChange(ChangeFilter{Event: ActionInsert, Table: "messages"}, func(Event) { gotInsert++ })
	ch.OnChange(ChangeFilter{Event: ActionAll, Table: "messages"}, func(Event) { gotAll++ })
	ch.OnChange(ChangeFilter{Event: ActionInsert, Table: "participants"}, func(Event) { gotOther++ })

	ch.handleChange(json.RawMessage(`{
		"data": {
			"schema": "public",
			"table": "messages",
			"type": "INSERT",
			"record": {"id": 1, "conversation_id": 7, "sender_id": "user-2"}
		}
	}`))

	assert.Equal(t, 1, gotInsert)
	assert.Equal(t, 1, gotAll)
	assert.Equal(t, 0, gotOther)
}

func TestHandleChangeDeleteUsesOldRecord(t *testing.T) {
	ch := &Channel{topic: "realtime:test"}

	var got *FriendshipChanged
	ch.OnChange(ChangeFilter{Event: ActionAll, Table: "friendships"}, func(ev Event) {
		changed := ev.(FriendshipChanged)
		got = &changed
	})

	ch.handleChange(json.RawMessage(`{
		"data": {
			"schema": "public",
			"table": "friendships",
			"type": "DELETE",
			"record": {},
			"old_record": {"id": 4, "status": "pending"}
		}
	}`))

	require.NotNil(t, got)
	assert.Equal(t, int64(4), got.Row.ID)
	assert.Equal(t, ActionDelete, got.Action)
}

func TestHandlePresenceStateAndDiff(t *testing.T) {
	ch := &Channel{topic: "realtime:online-users"}

	var state map[string][]PresenceMeta
	var joined, left []string
	ch.OnPresenceSync(func(s map[string][]PresenceMeta) { state = s })
	ch.OnPresenceJoin(func(key string, _ []PresenceMeta) { joined = append(joined, key) })
	ch.OnPresenceLeave(func(key string, _ []PresenceMeta) { left = append(left, key) })

	ch.handlePresenceState(json.RawMessage(`{
		"user-1": {"metas": [{"online_at": "now", "phx_ref": "a"}]},
		"user-2": {"metas": [{"online_at": "now", "phx_ref": "b"}]}
	}`))
	require.Len(t, state, 2)
	require.Len(t, state["user-1"], 1)
	assert.Equal(t, "a", state["user-1"][0].Ref)

	ch.handlePresenceDiff(json.RawMessage(`{
		"joins": {"user-3": {"metas": [{"online_at": "now"}]}},
		"leaves": {"user-2": {"metas": [{"online_at": "now"}]}}
	}`))
	assert.Equal(t, []string{"user-3"}, joined)
	assert.Equal(t, []string{"user-2"}, left)
}
