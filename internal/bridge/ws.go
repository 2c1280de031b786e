package bridge

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"chatamata-client/internal/observability"
)

var upgrader = websocket.Upgrader{
	// The bridge binds to loopback; origin checks add nothing here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Attach upgrades the connection and streams state-change notifications
// until the client goes away. Inbound frames are drained and ignored; the
// channel is push only.
func (s *Server) Attach(c *gin.Context) {
	ctx, span := otel.Tracer("chatamata-client/bridge").Start(c.Request.Context(), "ws.attach")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		ConnectedAt: time.Now(),
	}
	s.hub.Add(conn, info)
	observability.IncWSActive()
	observability.IncWSEvent("attach")

	go func() {
		defer func() {
			s.hub.Remove(conn)
			conn.Close()
			observability.DecWSActive()
			observability.IncWSEvent("detach")
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
