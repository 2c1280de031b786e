package presence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatamata-client/internal/mocks"
	"chatamata-client/internal/presence"
	"chatamata-client/internal/realtime"
)

func startTracker(t *testing.T) (*presence.Tracker, *mocks.PresenceChannelMock) {
	t.Helper()
	ch := new(mocks.PresenceChannelMock)
	tracker := presence.NewTracker(ch, "user-1", nil)
	require.NoError(t, tracker.Start(context.Background()))
	return tracker, ch
}

func TestTrackerAnnouncesSelfOnStart(t *testing.T) {
	tracker, ch := startTracker(t)

	require.Len(t, ch.Tracked(), 1)
	assert.NotEmpty(t, ch.Tracked()[0].OnlineAt)
	assert.True(t, tracker.IsOnline("user-1"))
}

func TestTrackerSyncReplacesSet(t *testing.T) {
	tracker, ch := startTracker(t)

	ch.EmitSync(map[string][]realtime.PresenceMeta{
		"user-2": {{OnlineAt: "now"}},
		"user-3": {{OnlineAt: "now"}},
	})

	assert.ElementsMatch(t, []string{"user-2", "user-3"}, tracker.Online())
	assert.False(t, tracker.IsOnline("user-1"))
}

func TestTrackerJoinAndLeavePatchSet(t *testing.T) {
	tracker, ch := startTracker(t)

	ch.EmitJoin("user-2")
	assert.True(t, tracker.IsOnline("user-2"))

	ch.EmitLeave("user-2")
	assert.False(t, tracker.IsOnline("user-2"))
	assert.True(t, tracker.IsOnline("user-1"))
}

func TestTrackerCloseLeavesChannel(t *testing.T) {
	tracker, ch := startTracker(t)

	require.NoError(t, tracker.Close())
	assert.True(t, ch.Closed())
}
