package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type publisherMock struct {
	mock.Mock
}

func (m *publisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *publisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestEmitPublishesEnvelope(t *testing.T) {
	pub := new(publisherMock)
	emitter := NewAuditEmitter(pub, "audit.client", "chatamata-client", "test")

	userID := "user-1"
	pub.On("Publish", mock.Anything, "audit.client", mock.MatchedBy(func(event any) bool {
		env, ok := event.(AuditEnvelope)
		if !ok {
			return false
		}
		return env.EventType == "audit_log" &&
			env.Service == "chatamata-client" &&
			env.UserID != nil && *env.UserID == "user-1" &&
			env.Payload.Level == "INFO" &&
			env.Payload.Text == "signed in"
	})).Return(nil).Once()

	emitter.Emit(context.Background(), "INFO", "signed in", &userID)
	pub.AssertExpectations(t)
}

func TestEmitNilReceiverIsSafe(t *testing.T) {
	var emitter *AuditEmitter
	require.NotPanics(t, func() {
		emitter.Emit(context.Background(), "INFO", "noop", nil)
	})
}

func TestEmitSwallowsPublishError(t *testing.T) {
	pub := new(publisherMock)
	emitter := NewAuditEmitter(pub, "audit.client", "svc", "test")

	pub.On("Publish", mock.Anything, "audit.client", mock.Anything).Return(assert.AnError).Once()

	require.NotPanics(t, func() {
		emitter.Emit(context.Background(), "WARN", "boom", nil)
	})
	pub.AssertExpectations(t)
}
