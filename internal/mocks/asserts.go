package mocks

import (
	"chatamata-client/internal/bridge"
	"chatamata-client/internal/chat"
	"chatamata-client/internal/presence"
	"chatamata-client/internal/profile"
	"chatamata-client/internal/rabbitmq"
)

var (
	_ chat.Gateway       = (*GatewayMock)(nil)
	_ bridge.AuthGateway = (*GatewayMock)(nil)
	_ profile.Gateway    = (*GatewayMock)(nil)
	_ chat.Feed          = (*FeedMock)(nil)
	_ chat.Subscription  = (*SubscriptionMock)(nil)
	_ presence.Channel   = (*PresenceChannelMock)(nil)
	_ rabbitmq.Publisher = (*PublisherMock)(nil)
)
