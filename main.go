package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"chatamata-client/internal/bridge"
	"chatamata-client/internal/chat"
	"chatamata-client/internal/config"
	"chatamata-client/internal/gateway"
	"chatamata-client/internal/models"
	"chatamata-client/internal/presence"
	"chatamata-client/internal/profile"
	"chatamata-client/internal/rabbitmq"
	"chatamata-client/internal/realtime"
	"chatamata-client/internal/session"
	"chatamata-client/internal/telemetry"
)

// feedAdapter narrows the realtime client to the channel factory the
// synchronizers consume.
type feedAdapter struct {
	rt *realtime.Client
}

func (f feedAdapter) Channel(topic string) chat.Subscription {
	return f.rt.Channel(topic)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AuditExchange)
	defer publisher.Close()
	log.Printf("audit publisher mode: %s", rabbitmq.PublisherMode(publisher))

	shutdownTracing, err := telemetry.SetupTracing(context.Background(), cfg.OTLPEndpoint, "chatamata-client", cfg.Environment)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		_ = shutdownTracing(context.Background())
	}()

	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditRouting, "chatamata-client", cfg.Environment)

	sessions := session.NewStore()
	gw := gateway.NewClient(cfg.GatewayURL, cfg.AnonKey, sessions)
	rt := realtime.NewClient(cfg.RealtimeURL, cfg.AnonKey, sessions)

	factory := func(ctx context.Context, self models.Profile, notify chat.Notifier) (*bridge.Runtime, error) {
		ctx, span := otel.Tracer("chatamata-client").Start(ctx, "realtime.connect")
		err := rt.Connect(ctx)
		span.End()
		if err != nil {
			return nil, err
		}
		feed := feedAdapter{rt: rt}

		engine := chat.NewEngine(gw, feed, self, audit, notify)
		if err := engine.Start(ctx); err != nil {
			return nil, err
		}

		tracker := presence.NewTracker(
			rt.Channel(presence.Topic, realtime.WithPresenceKey(self.ID)),
			self.ID,
			func() { notify("presence") },
		)
		if err := tracker.Start(ctx); err != nil {
			_ = engine.Close()
			return nil, err
		}

		profiles := profile.NewManager(gw, self.ID, func() { notify("profile") })
		if _, err := profiles.Load(ctx); err != nil {
			log.Printf("initial profile load failed: %v", err)
		}

		return &bridge.Runtime{Engine: engine, Tracker: tracker, Profile: profiles}, nil
	}

	server := bridge.NewServer(gw, sessions, factory, audit)

	log.Printf("bridge listening on %s", cfg.BridgeAddr)
	if err := server.Run(cfg.BridgeAddr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
