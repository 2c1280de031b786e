package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"chatamata-client/internal/gateway"
	"chatamata-client/internal/models"
)

type GatewayMock struct {
	mock.Mock
}

func (m *GatewayMock) ListMessages(ctx context.Context, conversationID int64, offset, limit int) ([]models.Message, error) {
	args := m.Called(ctx, conversationID, offset, limit)
	var list []models.Message
	if val := args.Get(0); val != nil {
		list = val.([]models.Message)
	}
	return list, args.Error(1)
}

func (m *GatewayMock) GetMessage(ctx context.Context, id int64) (models.Message, error) {
	args := m.Called(ctx, id)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *GatewayMock) InsertMessage(ctx context.Context, msg gateway.NewMessage) (models.Message, error) {
	args := m.Called(ctx, msg)
	var saved models.Message
	if val := args.Get(0); val != nil {
		saved = val.(models.Message)
	}
	return saved, args.Error(1)
}

func (m *GatewayMock) SoftDeleteMessage(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *GatewayMock) MarkMessagesRead(ctx context.Context, conversationID int64) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

func (m *GatewayMock) Upload(ctx context.Context, bucket, path, contentType string, body io.Reader) error {
	args := m.Called(ctx, bucket, path, contentType, body)
	return args.Error(0)
}

func (m *GatewayMock) PublicURL(bucket, path string) string {
	args := m.Called(bucket, path)
	return args.String(0)
}

func (m *GatewayMock) Conversations(ctx context.Context) ([]models.ConversationPreview, error) {
	args := m.Called(ctx)
	var list []models.ConversationPreview
	if val := args.Get(0); val != nil {
		list = val.([]models.ConversationPreview)
	}
	return list, args.Error(1)
}

func (m *GatewayMock) ListFriendships(ctx context.Context, userID string) ([]gateway.FriendshipRecord, error) {
	args := m.Called(ctx, userID)
	var list []gateway.FriendshipRecord
	if val := args.Get(0); val != nil {
		list = val.([]gateway.FriendshipRecord)
	}
	return list, args.Error(1)
}

func (m *GatewayMock) SearchProfiles(ctx context.Context, search, excludeID string, limit int) ([]models.Profile, error) {
	args := m.Called(ctx, search, excludeID, limit)
	var list []models.Profile
	if val := args.Get(0); val != nil {
		list = val.([]models.Profile)
	}
	return list, args.Error(1)
}

func (m *GatewayMock) SendFriendRequest(ctx context.Context, receiverID string) error {
	args := m.Called(ctx, receiverID)
	return args.Error(0)
}

func (m *GatewayMock) RespondFriendRequest(ctx context.Context, senderID string, response models.FriendshipStatus) error {
	args := m.Called(ctx, senderID, response)
	return args.Error(0)
}

func (m *GatewayMock) SignUp(ctx context.Context, params gateway.SignUpParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *GatewayMock) SignInWithPassword(ctx context.Context, email, password string) (gateway.AuthSession, error) {
	args := m.Called(ctx, email, password)
	var sess gateway.AuthSession
	if val := args.Get(0); val != nil {
		sess = val.(gateway.AuthSession)
	}
	return sess, args.Error(1)
}

func (m *GatewayMock) RefreshSession(ctx context.Context, refreshToken string) (gateway.AuthSession, error) {
	args := m.Called(ctx, refreshToken)
	var sess gateway.AuthSession
	if val := args.Get(0); val != nil {
		sess = val.(gateway.AuthSession)
	}
	return sess, args.Error(1)
}

func (m *GatewayMock) SignOut(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

func (m *GatewayMock) GenerateUniqueID(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *GatewayMock) GetProfile(ctx context.Context, id string) (models.Profile, error) {
	args := m.Called(ctx, id)
	var p models.Profile
	if val := args.Get(0); val != nil {
		p = val.(models.Profile)
	}
	return p, args.Error(1)
}

func (m *GatewayMock) UpdateProfile(ctx context.Context, id string, patch gateway.ProfilePatch) (models.Profile, error) {
	args := m.Called(ctx, id, patch)
	var p models.Profile
	if val := args.Get(0); val != nil {
		p = val.(models.Profile)
	}
	return p, args.Error(1)
}
