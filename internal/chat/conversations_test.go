package chat_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chatamata-client/internal/chat"
	"chatamata-client/internal/mocks"
	"chatamata-client/internal/models"
	"chatamata-client/internal/realtime"
)

func ts(hour int) *time.Time {
	t := time.Date(2026, 8, 1, hour, 0, 0, 0, time.UTC)
	return &t
}

func openList(t *testing.T, gw *mocks.GatewayMock) (*chat.List, *mocks.SubscriptionMock) {
	t.Helper()
	feed := mocks.NewFeedMock()
	list := chat.NewList(gw, feed, self.ID, nil, nil)
	require.NoError(t, list.Open(context.Background()))
	sub := feed.Channels["conversations-"+self.ID]
	require.NotNil(t, sub)
	return list, sub
}

func TestListSortsByLatestActivity(t *testing.T) {
	gw := new(mocks.GatewayMock)
	gw.On("Conversations", mock.Anything).Return([]models.ConversationPreview{
		{ConversationID: 1, DisplayName: "older", LatestAt: ts(9)},
		{ConversationID: 2, DisplayName: "silent"},
		{ConversationID: 3, DisplayName: "newest", LatestAt: ts(11)},
	}, nil).Once()

	list, _ := openList(t, gw)

	got := list.Snapshot()
	require.Len(t, got, 3)
	assert.Equal(t, int64(3), got[0].ConversationID)
	assert.Equal(t, int64(1), got[1].ConversationID)
	assert.Equal(t, int64(2), got[2].ConversationID)
	gw.AssertExpectations(t)
}

func TestListMessageInsertPatchesPreview(t *testing.T) {
	gw := new(mocks.GatewayMock)
	gw.On("Conversations", mock.Anything).Return([]models.ConversationPreview{
		{ConversationID: 1, DisplayName: "a", LatestAt: ts(10)},
		{ConversationID: 2, DisplayName: "b", LatestAt: ts(9), UnreadCount: 1},
	}, nil).Once()

	list, sub := openList(t, gw)

	content := "ping"
	sub.Emit(realtime.MessageInserted{Row: realtime.MessageRow{
		ID: 5, ConversationID: 2, SenderID: "user-2", Content: &content, CreatedAt: *ts(12),
	}})

	got := list.Snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ConversationID)
	assert.Equal(t, "ping", got[0].LatestContent)
	assert.Equal(t, 2, got[0].UnreadCount)
	gw.AssertExpectations(t)
}

func TestListOwnMessageDoesNotIncrementUnread(t *testing.T) {
	gw := new(mocks.GatewayMock)
	gw.On("Conversations", mock.Anything).Return([]models.ConversationPreview{
		{ConversationID: 1, DisplayName: "a"},
	}, nil).Once()

	list, sub := openList(t, gw)

	content := "mine"
	sub.Emit(realtime.MessageInserted{Row: realtime.MessageRow{
		ID: 6, ConversationID: 1, SenderID: self.ID, Content: &content, CreatedAt: *ts(12),
	}})

	got := list.Snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].UnreadCount)
	assert.Equal(t, "mine", got[0].LatestContent)
}

func TestListUnknownConversationTriggersRefetch(t *testing.T) {
	gw := new(mocks.GatewayMock)
	gw.On("Conversations", mock.Anything).Return([]models.ConversationPreview{
		{ConversationID: 1, DisplayName: "a"},
	}, nil).Once()

	list, sub := openList(t, gw)

	refetched := make(chan struct{})
	gw.On("Conversations", mock.Anything).Return([]models.ConversationPreview{
		{ConversationID: 1, DisplayName: "a"},
		{ConversationID: 9, DisplayName: "brand new", LatestAt: ts(12)},
	}, nil).Once().Run(func(mock.Arguments) { close(refetched) })

	content := "hi"
	sub.Emit(realtime.MessageInserted{Row: realtime.MessageRow{
		ID: 7, ConversationID: 9, SenderID: "user-2", Content: &content, CreatedAt: *ts(12),
	}})

	select {
	case <-refetched:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a refetch for the unknown conversation")
	}
	require.Eventually(t, func() bool {
		return len(list.Snapshot()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	gw.AssertExpectations(t)
}

func TestListOwnReadReceiptZeroesUnread(t *testing.T) {
	gw := new(mocks.GatewayMock)
	gw.On("Conversations", mock.Anything).Return([]models.ConversationPreview{
		{ConversationID: 1, DisplayName: "a", UnreadCount: 4},
	}, nil).Once()

	list, sub := openList(t, gw)

	// Another identity's receipt changes nothing.
	sub.Emit(realtime.ReadReceiptInserted{Row: realtime.ReadStatusRow{ConversationID: 1, UserID: "user-2"}})
	assert.Equal(t, 4, list.Snapshot()[0].UnreadCount)

	sub.Emit(realtime.ReadReceiptInserted{Row: realtime.ReadStatusRow{ConversationID: 1, UserID: self.ID}})
	assert.Equal(t, 0, list.Snapshot()[0].UnreadCount)
}

func TestListQueryFiltersNameAndContent(t *testing.T) {
	gw := new(mocks.GatewayMock)
	gw.On("Conversations", mock.Anything).Return([]models.ConversationPreview{
		{ConversationID: 1, DisplayName: "Alice", LatestContent: "see you"},
		{ConversationID: 2, DisplayName: "Bob", LatestContent: "about alice"},
		{ConversationID: 3, DisplayName: "Carol", LatestContent: "nothing"},
	}, nil).Once()

	list, _ := openList(t, gw)

	list.SetQuery("ALICE")
	got := list.Snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ConversationID)
	assert.Equal(t, int64(2), got[1].ConversationID)

	list.SetQuery("")
	assert.Len(t, list.Snapshot(), 3)
}
