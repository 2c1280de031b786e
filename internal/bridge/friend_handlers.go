package bridge

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatamata-client/internal/chat"
	"chatamata-client/internal/models"
)

// ListFriends returns the partitioned friendship view.
func (s *Server) ListFriends(c *gin.Context) {
	rt := s.runtime()
	if rt == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "synchronizer not running"})
		return
	}

	friends := rt.Engine.Friends()
	view := friends.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"friends":  view.Friends,
		"incoming": view.Incoming,
		"outgoing": view.Outgoing,
		"loaded":   friends.Loaded(),
	})
}

// SearchFriends finds profiles by username substring.
func (s *Server) SearchFriends(c *gin.Context) {
	rt := s.runtime()
	if rt == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "synchronizer not running"})
		return
	}

	results, err := rt.Engine.Friends().Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "search failed"})
		return
	}
	if results == nil {
		results = []models.Profile{}
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// SendFriendRequest issues a request to another identity.
func (s *Server) SendFriendRequest(c *gin.Context) {
	rt := s.runtime()
	if rt == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "synchronizer not running"})
		return
	}

	var req struct {
		ReceiverID string `json:"receiver_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "receiver_id is required"})
		return
	}

	if err := rt.Engine.Friends().SendRequest(c.Request.Context(), req.ReceiverID); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to send friend request"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "request sent"})
}

// RespondFriendRequest accepts or rejects a pending incoming request.
func (s *Server) RespondFriendRequest(c *gin.Context) {
	rt := s.runtime()
	if rt == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "synchronizer not running"})
		return
	}

	var req struct {
		Response models.FriendshipStatus `json:"response" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "response is required"})
		return
	}

	err := rt.Engine.Friends().Respond(c.Request.Context(), c.Param("sender_id"), req.Response)
	if err != nil {
		if errors.Is(err, chat.ErrBadResponse) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to respond"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(req.Response)})
}

// Presence returns the online user set.
func (s *Server) Presence(c *gin.Context) {
	rt := s.runtime()
	if rt == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "synchronizer not running"})
		return
	}

	online := rt.Tracker.Online()
	if online == nil {
		online = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"online": online})
}
