package bridge

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatamata-client/internal/gateway"
	"chatamata-client/internal/models"
	"chatamata-client/internal/profile"
)

// GetProfile returns the signed-in identity's profile, loading it on first
// access.
func (s *Server) GetProfile(c *gin.Context) {
	rt := s.runtime()
	if rt == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "synchronizer not running"})
		return
	}

	if p, ok := rt.Profile.Current(); ok {
		c.JSON(http.StatusOK, gin.H{"profile": p})
		return
	}
	p, err := rt.Profile.Load(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}

// UpdateProfile applies a partial update to the own profile row.
func (s *Server) UpdateProfile(c *gin.Context) {
	rt := s.runtime()
	if rt == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "synchronizer not running"})
		return
	}

	var patch gateway.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile patch"})
		return
	}

	p, err := rt.Profile.Update(c.Request.Context(), patch)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to update profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}

// UploadAvatar replaces the avatar image.
func (s *Server) UploadAvatar(c *gin.Context) {
	s.uploadProfileImage(c, func(rt *Runtime) uploadFunc { return rt.Profile.UploadAvatar })
}

// UploadBanner replaces the banner image.
func (s *Server) UploadBanner(c *gin.Context) {
	s.uploadProfileImage(c, func(rt *Runtime) uploadFunc { return rt.Profile.UploadBanner })
}

// CompleteSetup marks first-run profile setup as finished.
func (s *Server) CompleteSetup(c *gin.Context) {
	rt := s.runtime()
	if rt == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "synchronizer not running"})
		return
	}

	p, err := rt.Profile.CompleteSetup(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to complete setup"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}

// GenerateChatamataID mints a fresh unique public id via the gateway.
func (s *Server) GenerateChatamataID(c *gin.Context) {
	id, err := s.auth.GenerateUniqueID(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to generate id"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chatamata_id": id})
}

type uploadFunc = func(ctx context.Context, filename, contentType string, data []byte) (models.Profile, error)

func (s *Server) uploadProfileImage(c *gin.Context, pick func(*Runtime) uploadFunc) {
	rt := s.runtime()
	if rt == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "synchronizer not running"})
		return
	}

	filename, contentType, data, err := readUpload(c, "image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := pick(rt)(c.Request.Context(), filename, contentType, data)
	if err != nil {
		if errors.Is(err, profile.ErrImageTooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "upload failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}
