package chat_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chatamata-client/internal/chat"
	"chatamata-client/internal/mocks"
	"chatamata-client/internal/models"
)

func startEngine(t *testing.T, gw *mocks.GatewayMock, notify chat.Notifier) (*chat.Engine, *mocks.FeedMock) {
	t.Helper()
	feed := mocks.NewFeedMock()
	engine := chat.NewEngine(gw, feed, self, nil, notify)
	require.NoError(t, engine.Start(context.Background()))
	return engine, feed
}

func TestEngineStartOpensSessionSynchronizers(t *testing.T) {
	gw := new(mocks.GatewayMock)
	gw.On("Conversations", mock.Anything).Return([]models.ConversationPreview{
		{ConversationID: 1, DisplayName: "a", UnreadCount: 2},
	}, nil).Once()
	gw.On("ListFriendships", mock.Anything, self.ID).Return(nil, nil).Once()

	engine, feed := startEngine(t, gw, nil)

	assert.True(t, engine.Conversations().Loaded())
	assert.True(t, engine.Friends().Loaded())
	assert.NotNil(t, feed.Channels["conversations-"+self.ID])
	assert.NotNil(t, feed.Channels["friendships-"+self.ID])
	gw.AssertExpectations(t)
}

func TestEngineOpenThreadReplacesPreviousAndClearsUnread(t *testing.T) {
	gw := new(mocks.GatewayMock)
	gw.On("Conversations", mock.Anything).Return([]models.ConversationPreview{
		{ConversationID: 1, DisplayName: "a", UnreadCount: 2},
		{ConversationID: 2, DisplayName: "b"},
	}, nil).Once()
	gw.On("ListFriendships", mock.Anything, self.ID).Return(nil, nil).Once()
	gw.On("ListMessages", mock.Anything, mock.Anything, 0, chat.MessagesPerPage).Return(nil, nil)
	gw.On("MarkMessagesRead", mock.Anything, mock.Anything).Return(nil)

	engine, feed := startEngine(t, gw, nil)

	first, err := engine.OpenThread(context.Background(), 1)
	require.NoError(t, err)
	require.Same(t, first, engine.Thread(1))
	assert.Equal(t, 0, engine.Conversations().Snapshot()[0].UnreadCount)

	second, err := engine.OpenThread(context.Background(), 2)
	require.NoError(t, err)
	require.Same(t, second, engine.Thread(2))
	assert.Nil(t, engine.Thread(1))

	firstSub := feed.Last("chat-1-")
	require.NotNil(t, firstSub)
	assert.True(t, firstSub.Closed())
}

func TestEngineConcurrentOpenThreadLeavesOneSubscription(t *testing.T) {
	gw := new(mocks.GatewayMock)
	gw.On("Conversations", mock.Anything).Return(nil, nil).Once()
	gw.On("ListFriendships", mock.Anything, self.ID).Return(nil, nil).Once()
	gw.On("ListMessages", mock.Anything, mock.Anything, 0, chat.MessagesPerPage).Return(nil, nil)
	gw.On("MarkMessagesRead", mock.Anything, mock.Anything).Return(nil)

	engine, feed := startEngine(t, gw, nil)

	var wg sync.WaitGroup
	for _, convID := range []int64{1, 2} {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := engine.OpenThread(context.Background(), id)
			assert.NoError(t, err)
		}(convID)
	}
	wg.Wait()

	// Whichever selection lost must have had its subscription closed; only
	// the installed thread's channel stays live.
	open := 0
	for topic, sub := range feed.Channels {
		if strings.HasPrefix(topic, "chat-") && sub.Subscribed() && !sub.Closed() {
			open++
		}
	}
	assert.Equal(t, 1, open)

	winner := engine.Thread(1)
	if winner == nil {
		winner = engine.Thread(2)
	}
	require.NotNil(t, winner)
}

func TestEngineNotifierReceivesScopes(t *testing.T) {
	gw := new(mocks.GatewayMock)
	gw.On("Conversations", mock.Anything).Return(nil, nil).Once()
	gw.On("ListFriendships", mock.Anything, self.ID).Return(nil, nil).Once()

	var scopes []string
	engine, _ := startEngine(t, gw, func(scope string) { scopes = append(scopes, scope) })
	defer engine.Close()

	assert.Contains(t, scopes, chat.ScopeConversations)
	assert.Contains(t, scopes, chat.ScopeFriends)
}
