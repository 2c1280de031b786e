// Package bridge exposes the synchronized client state to the presentation
// layer: a local HTTP API plus a websocket push channel that tells attached
// clients when to refetch.
package bridge

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chatamata-client/internal/chat"
	"chatamata-client/internal/gateway"
	"chatamata-client/internal/models"
	"chatamata-client/internal/observability"
	"chatamata-client/internal/presence"
	"chatamata-client/internal/profile"
	"chatamata-client/internal/session"
	"chatamata-client/internal/telemetry"
)

// AuthGateway is the slice of the remote gateway the bridge drives directly.
// Everything else goes through the per-session runtime.
type AuthGateway interface {
	SignUp(ctx context.Context, params gateway.SignUpParams) error
	SignInWithPassword(ctx context.Context, email, password string) (gateway.AuthSession, error)
	RefreshSession(ctx context.Context, refreshToken string) (gateway.AuthSession, error)
	SignOut(ctx context.Context, accessToken string) error
	GetProfile(ctx context.Context, id string) (models.Profile, error)
	GenerateUniqueID(ctx context.Context) (string, error)
}

// Runtime is the per-sign-in synchronizer set.
type Runtime struct {
	Engine  *chat.Engine
	Tracker *presence.Tracker
	Profile *profile.Manager
}

// Close tears the runtime down and returns the first error encountered.
func (r *Runtime) Close() error {
	var first error
	if r.Tracker != nil {
		if err := r.Tracker.Close(); err != nil && first == nil {
			first = err
		}
	}
	if r.Engine != nil {
		if err := r.Engine.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RuntimeFactory builds and starts the synchronizers for a signed-in
// profile. The notifier receives scope names for the hub to broadcast.
type RuntimeFactory func(ctx context.Context, self models.Profile, notify chat.Notifier) (*Runtime, error)

// Server is the local bridge process surface.
type Server struct {
	auth     AuthGateway
	sessions *session.Store
	factory  RuntimeFactory
	audit    *telemetry.AuditEmitter
	hub      *Hub

	mu sync.Mutex
	rt *Runtime
}

// NewServer builds a Server.
func NewServer(auth AuthGateway, sessions *session.Store, factory RuntimeFactory, audit *telemetry.AuditEmitter) *Server {
	return &Server{
		auth:     auth,
		sessions: sessions,
		factory:  factory,
		audit:    audit,
		hub:      NewHub(),
	}
}

// Hub returns the push hub, the notifier target for the runtime factory.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Router assembles the gin engine with the full route surface.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("chatamata-client"))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/session", s.SignIn)
	router.POST("/session/signup", s.SignUp)

	authed := router.Group("/", s.RequireSession())
	authed.GET("/session", s.CurrentSession)
	authed.POST("/session/refresh", s.Refresh)
	authed.DELETE("/session", s.SignOut)
	authed.GET("/ws", s.Attach)

	authed.GET("/conversations", s.ListConversations)
	authed.POST("/conversations/:conversation_id/open", s.OpenThread)
	authed.GET("/conversations/:conversation_id/messages", s.ThreadMessages)
	authed.POST("/conversations/:conversation_id/messages/older", s.LoadOlder)
	authed.POST("/conversations/:conversation_id/messages", s.SendText)
	authed.POST("/conversations/:conversation_id/images", s.SendImage)
	authed.POST("/conversations/:conversation_id/messages/:temp_id/retry", s.RetrySend)
	authed.DELETE("/conversations/:conversation_id/messages/:message_id", s.DeleteMessage)

	authed.GET("/friends", s.ListFriends)
	authed.GET("/friends/search", s.SearchFriends)
	authed.POST("/friends/requests", s.SendFriendRequest)
	authed.POST("/friends/requests/:sender_id/respond", s.RespondFriendRequest)

	authed.GET("/presence", s.Presence)

	authed.GET("/profile", s.GetProfile)
	authed.PATCH("/profile", s.UpdateProfile)
	authed.POST("/profile/avatar", s.UploadAvatar)
	authed.POST("/profile/banner", s.UploadBanner)
	authed.POST("/profile/setup/complete", s.CompleteSetup)
	authed.POST("/profile/chatamata-id", s.GenerateChatamataID)

	return router
}

// Run serves the bridge on the given address.
func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

func (s *Server) runtime() *Runtime {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rt
}

func (s *Server) setRuntime(rt *Runtime) *Runtime {
	s.mu.Lock()
	prev := s.rt
	s.rt = rt
	s.mu.Unlock()
	return prev
}
