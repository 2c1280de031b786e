package bridge

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatamata-client/internal/gateway"
	"chatamata-client/internal/session"
)

// SignIn authenticates against the gateway, loads the profile, installs the
// session and spins up the synchronizer runtime.
func (s *Server) SignIn(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	ctx := c.Request.Context()
	grant, err := s.auth.SignInWithPassword(ctx, req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	// The token must be installed before the profile fetch: the gateway
	// reads it from the session store.
	s.sessions.Set(&session.Session{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    grant.ExpiresAt,
	})

	self, err := s.auth.GetProfile(ctx, grant.UserID)
	if err != nil {
		s.sessions.Set(nil)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load profile"})
		return
	}
	s.sessions.Set(&session.Session{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    grant.ExpiresAt,
		User:         self,
	})

	rt, err := s.factory(ctx, self, s.hub.Broadcast)
	if err != nil {
		s.sessions.Set(nil)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to start synchronization"})
		return
	}
	if prev := s.setRuntime(rt); prev != nil {
		_ = prev.Close()
	}

	s.audit.Emit(ctx, "INFO", "signed in", &self.ID)
	c.JSON(http.StatusOK, gin.H{
		"access_token": grant.AccessToken,
		"expires_at":   grant.ExpiresAt,
		"user":         self,
	})
}

// SignUp registers a new identity. No session results; the account confirms
// its email first.
func (s *Server) SignUp(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required"`
		Password    string `json:"password" binding:"required"`
		FullName    string `json:"full_name" binding:"required"`
		Username    string `json:"username" binding:"required"`
		ChatamataID string `json:"chatamata_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing signup fields"})
		return
	}

	ctx := c.Request.Context()
	if req.ChatamataID == "" {
		id, err := s.auth.GenerateUniqueID(ctx)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to generate id"})
			return
		}
		req.ChatamataID = id
	}

	err := s.auth.SignUp(ctx, gateway.SignUpParams{
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
		Username:    req.Username,
		ChatamataID: req.ChatamataID,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "signup failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "confirmation email sent", "chatamata_id": req.ChatamataID})
}

// CurrentSession reports the signed-in identity. The session is re-read
// after the middleware check, so a concurrent sign-out can have cleared it.
func (s *Server) CurrentSession(c *gin.Context) {
	sess := s.sessions.Current()
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "signed out"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":       sess.User,
		"expires_at": sess.ExpiresAt,
	})
}

// Refresh rotates the token pair and keeps the loaded profile.
func (s *Server) Refresh(c *gin.Context) {
	sess := s.sessions.Current()
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "signed out"})
		return
	}
	grant, err := s.auth.RefreshSession(c.Request.Context(), sess.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh failed"})
		return
	}
	s.sessions.Set(&session.Session{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    grant.ExpiresAt,
		User:         sess.User,
	})
	c.JSON(http.StatusOK, gin.H{
		"access_token": grant.AccessToken,
		"expires_at":   grant.ExpiresAt,
	})
}

// SignOut tears down the runtime and revokes the token.
func (s *Server) SignOut(c *gin.Context) {
	ctx := c.Request.Context()
	sess := s.sessions.Current()
	if sess == nil {
		c.JSON(http.StatusOK, gin.H{"status": "signed out"})
		return
	}

	if rt := s.setRuntime(nil); rt != nil {
		if err := rt.Close(); err != nil {
			log.Printf("runtime close on sign-out: %v", err)
		}
	}
	if err := s.auth.SignOut(ctx, sess.AccessToken); err != nil {
		log.Printf("remote sign-out failed: %v", err)
	}

	userID := sess.User.ID
	s.sessions.Set(nil)
	s.audit.Emit(ctx, "INFO", "signed out", &userID)
	c.JSON(http.StatusOK, gin.H{"status": "signed out"})
}
