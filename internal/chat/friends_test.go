package chat_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chatamata-client/internal/chat"
	"chatamata-client/internal/gateway"
	"chatamata-client/internal/mocks"
	"chatamata-client/internal/models"
	"chatamata-client/internal/realtime"
)

func record(id int64, status models.FriendshipStatus, actionUserID string, other models.Profile) gateway.FriendshipRecord {
	rec := gateway.FriendshipRecord{ID: id, Status: status, ActionUserID: actionUserID}
	if actionUserID == self.ID {
		rec.UserOne = self
		rec.UserTwo = other
	} else {
		rec.UserOne = other
		rec.UserTwo = self
	}
	return rec
}

func openFriends(t *testing.T, gw *mocks.GatewayMock) (*chat.Friends, *mocks.SubscriptionMock) {
	t.Helper()
	feed := mocks.NewFeedMock()
	friends := chat.NewFriends(gw, feed, self.ID, nil, nil)
	require.NoError(t, friends.Open(context.Background()))
	sub := feed.Channels["friendships-"+self.ID]
	require.NotNil(t, sub)
	return friends, sub
}

func TestFriendsPartitionByStatusAndDirection(t *testing.T) {
	bob := models.Profile{ID: "user-2", Username: "bob"}
	carol := models.Profile{ID: "user-3", Username: "carol"}
	dave := models.Profile{ID: "user-4", Username: "dave"}
	eve := models.Profile{ID: "user-5", Username: "eve"}

	gw := new(mocks.GatewayMock)
	gw.On("ListFriendships", mock.Anything, self.ID).Return([]gateway.FriendshipRecord{
		record(1, models.FriendshipAccepted, "user-2", bob),
		record(2, models.FriendshipPending, self.ID, carol),
		record(3, models.FriendshipPending, "user-4", dave),
		record(4, models.FriendshipRejected, "user-5", eve),
	}, nil).Once()

	friends, _ := openFriends(t, gw)

	view := friends.Snapshot()
	require.Len(t, view.Friends, 1)
	assert.Equal(t, "bob", view.Friends[0].Username)
	require.Len(t, view.Outgoing, 1)
	assert.Equal(t, "carol", view.Outgoing[0].Username)
	require.Len(t, view.Incoming, 1)
	assert.Equal(t, "dave", view.Incoming[0].Username)
	gw.AssertExpectations(t)
}

func TestFriendsSearchSkipsBlankQuery(t *testing.T) {
	gw := new(mocks.GatewayMock)
	gw.On("ListFriendships", mock.Anything, self.ID).Return(nil, nil).Once()
	friends, _ := openFriends(t, gw)

	results, err := friends.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Nil(t, results)
	gw.AssertNotCalled(t, "SearchProfiles", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFriendsSearchExcludesSelfAndCaps(t *testing.T) {
	gw := new(mocks.GatewayMock)
	gw.On("ListFriendships", mock.Anything, self.ID).Return(nil, nil).Once()
	gw.On("SearchProfiles", mock.Anything, "bo", self.ID, 10).
		Return([]models.Profile{{ID: "user-2", Username: "bob"}}, nil).Once()

	friends, _ := openFriends(t, gw)

	results, err := friends.Search(context.Background(), " bo ")
	require.NoError(t, err)
	require.Len(t, results, 1)
	gw.AssertExpectations(t)
}

func TestFriendsRespondValidatesAndRefetches(t *testing.T) {
	gw := new(mocks.GatewayMock)
	gw.On("ListFriendships", mock.Anything, self.ID).Return(nil, nil).Once()
	friends, _ := openFriends(t, gw)

	err := friends.Respond(context.Background(), "user-2", models.FriendshipBlocked)
	require.ErrorIs(t, err, chat.ErrBadResponse)

	bob := models.Profile{ID: "user-2", Username: "bob"}
	gw.On("RespondFriendRequest", mock.Anything, "user-2", models.FriendshipAccepted).Return(nil).Once()
	gw.On("ListFriendships", mock.Anything, self.ID).Return([]gateway.FriendshipRecord{
		record(1, models.FriendshipAccepted, "user-2", bob),
	}, nil).Once()

	require.NoError(t, friends.Respond(context.Background(), "user-2", models.FriendshipAccepted))
	assert.Len(t, friends.Snapshot().Friends, 1)
	gw.AssertExpectations(t)
}

func TestFriendsRealtimeChangeRefetches(t *testing.T) {
	gw := new(mocks.GatewayMock)
	gw.On("ListFriendships", mock.Anything, self.ID).Return(nil, nil).Once()
	friends, sub := openFriends(t, gw)

	bob := models.Profile{ID: "user-2", Username: "bob"}
	gw.On("ListFriendships", mock.Anything, self.ID).Return([]gateway.FriendshipRecord{
		record(1, models.FriendshipPending, "user-2", bob),
	}, nil).Once()

	sub.Emit(realtime.FriendshipChanged{Action: realtime.ActionInsert, Row: realtime.FriendshipRow{ID: 1}})

	require.Eventually(t, func() bool {
		return len(friends.Snapshot().Incoming) == 1
	}, 2*time.Second, 10*time.Millisecond)
	gw.AssertExpectations(t)
}
