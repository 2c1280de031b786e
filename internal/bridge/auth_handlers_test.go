package bridge

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatamata-client/internal/session"
)

// The session handlers re-read the store after the middleware check, so a
// sign-out racing in between can leave them with no session. They must
// answer cleanly instead of dereferencing nil.
func TestSessionHandlersTolerateClearedSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewServer(nil, session.NewStore(), nil, nil)

	handlers := map[string]gin.HandlerFunc{
		"current": s.CurrentSession,
		"refresh": s.Refresh,
	}
	for name, handler := range handlers {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/session", nil)

			require.NotPanics(t, func() { handler(c) })
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestSignOutWithClearedSessionIsIdempotent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewServer(nil, session.NewStore(), nil, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodDelete, "/session", nil)

	require.NotPanics(t, func() { s.SignOut(c) })
	assert.Equal(t, http.StatusOK, rec.Code)
}
