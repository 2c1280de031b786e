package profile_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chatamata-client/internal/gateway"
	"chatamata-client/internal/mocks"
	"chatamata-client/internal/models"
	"chatamata-client/internal/profile"
)

func TestManagerLoadCachesProfile(t *testing.T) {
	gw := new(mocks.GatewayMock)
	gw.On("GetProfile", mock.Anything, "user-1").
		Return(models.Profile{ID: "user-1", Username: "alice"}, nil).Once()

	mgr := profile.NewManager(gw, "user-1", nil)

	_, ok := mgr.Current()
	assert.False(t, ok)

	p, err := mgr.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)

	cached, ok := mgr.Current()
	require.True(t, ok)
	assert.Equal(t, p, cached)
	gw.AssertExpectations(t)
}

func TestManagerUpdateRefreshesCache(t *testing.T) {
	gw := new(mocks.GatewayMock)
	desc := "hello"
	gw.On("UpdateProfile", mock.Anything, "user-1", gateway.ProfilePatch{Description: &desc}).
		Return(models.Profile{ID: "user-1", Description: "hello"}, nil).Once()

	notified := 0
	mgr := profile.NewManager(gw, "user-1", func() { notified++ })

	p, err := mgr.Update(context.Background(), gateway.ProfilePatch{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "hello", p.Description)
	assert.Equal(t, 1, notified)
	gw.AssertExpectations(t)
}

func TestManagerUploadAvatarPatchesURL(t *testing.T) {
	gw := new(mocks.GatewayMock)
	gw.On("Upload", mock.Anything, gateway.BucketAvatars, mock.Anything, "image/png", mock.Anything).Return(nil).Once()
	gw.On("PublicURL", gateway.BucketAvatars, mock.Anything).Return("https://cdn.example/avatar.png").Once()
	gw.On("UpdateProfile", mock.Anything, "user-1", mock.MatchedBy(func(patch gateway.ProfilePatch) bool {
		return patch.AvatarURL != nil && *patch.AvatarURL == "https://cdn.example/avatar.png"
	})).Return(models.Profile{ID: "user-1", AvatarURL: "https://cdn.example/avatar.png"}, nil).Once()

	mgr := profile.NewManager(gw, "user-1", nil)

	p, err := mgr.UploadAvatar(context.Background(), "me.png", "image/png", []byte{1})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/avatar.png", p.AvatarURL)
	gw.AssertExpectations(t)
}

func TestManagerUploadRejectsOversizedImage(t *testing.T) {
	gw := new(mocks.GatewayMock)
	mgr := profile.NewManager(gw, "user-1", nil)

	_, err := mgr.UploadBanner(context.Background(), "big.png", "image/png", make([]byte, profile.MaxImageBytes+1))
	require.ErrorIs(t, err, profile.ErrImageTooLarge)
	gw.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestManagerCompleteSetup(t *testing.T) {
	gw := new(mocks.GatewayMock)
	gw.On("UpdateProfile", mock.Anything, "user-1", mock.MatchedBy(func(patch gateway.ProfilePatch) bool {
		return patch.SetupComplete != nil && *patch.SetupComplete
	})).Return(models.Profile{ID: "user-1", SetupComplete: true}, nil).Once()

	mgr := profile.NewManager(gw, "user-1", nil)

	p, err := mgr.CompleteSetup(context.Background())
	require.NoError(t, err)
	assert.True(t, p.SetupComplete)
	gw.AssertExpectations(t)
}
