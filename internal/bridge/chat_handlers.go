package bridge

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chatamata-client/internal/chat"
)

// ListConversations returns the synchronized conversation list, optionally
// filtered with ?q=.
func (s *Server) ListConversations(c *gin.Context) {
	rt := s.runtime()
	if rt == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "synchronizer not running"})
		return
	}

	list := rt.Engine.Conversations()
	if q, ok := c.GetQuery("q"); ok {
		list.SetQuery(q)
	}
	c.JSON(http.StatusOK, gin.H{
		"conversations": list.Snapshot(),
		"loaded":        list.Loaded(),
	})
}

// OpenThread selects a conversation; the previous selection's thread is
// replaced.
func (s *Server) OpenThread(c *gin.Context) {
	rt, conversationID, ok := s.threadTarget(c)
	if !ok {
		return
	}

	t, err := rt.Engine.OpenThread(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to open conversation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages": t.Snapshot(),
		"state":    stateResponse(t.State()),
	})
}

// ThreadMessages returns the open thread's message window.
func (s *Server) ThreadMessages(c *gin.Context) {
	t, ok := s.openThread(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages": t.Snapshot(),
		"state":    stateResponse(t.State()),
	})
}

// LoadOlder extends the open thread's window backward by one page.
func (s *Server) LoadOlder(c *gin.Context) {
	t, ok := s.openThread(c)
	if !ok {
		return
	}
	if err := t.LoadOlder(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load older messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages": t.Snapshot(),
		"state":    stateResponse(t.State()),
	})
}

// SendText sends a text message through the open thread. Delivery failures
// surface as message status, not as an HTTP error.
func (s *Server) SendText(c *gin.Context) {
	t, ok := s.openThread(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	tempID, err := t.SendText(c.Request.Context(), req.Content)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, chat.ErrThreadClosed) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"temp_id": tempID, "messages": t.Snapshot()})
}

// SendImage sends an image message from a multipart upload.
func (s *Server) SendImage(c *gin.Context) {
	t, ok := s.openThread(c)
	if !ok {
		return
	}

	filename, contentType, data, err := readUpload(c, "image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tempID, err := t.SendImage(c.Request.Context(), filename, contentType, data)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, chat.ErrImageTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"temp_id": tempID, "messages": t.Snapshot()})
}

// RetrySend re-delivers a failed message under its original transient id.
func (s *Server) RetrySend(c *gin.Context) {
	t, ok := s.openThread(c)
	if !ok {
		return
	}

	tempID := c.Param("temp_id")
	if err := t.Retry(c.Request.Context(), tempID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no failed message with that id"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"temp_id": tempID, "messages": t.Snapshot()})
}

// DeleteMessage removes a message. The local removal holds even when the
// remote delete fails; the response reports which happened.
func (s *Server) DeleteMessage(c *gin.Context) {
	t, ok := s.openThread(c)
	if !ok {
		return
	}

	messageID, err := strconv.ParseInt(c.Param("message_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	if err := t.Delete(c.Request.Context(), messageID); err != nil {
		if errors.Is(err, chat.ErrNotConfirmed) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "removed locally", "remote": "failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) threadTarget(c *gin.Context) (*Runtime, int64, bool) {
	rt := s.runtime()
	if rt == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "synchronizer not running"})
		return nil, 0, false
	}
	conversationID, err := strconv.ParseInt(c.Param("conversation_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return nil, 0, false
	}
	return rt, conversationID, true
}

func (s *Server) openThread(c *gin.Context) (*chat.Thread, bool) {
	rt, conversationID, ok := s.threadTarget(c)
	if !ok {
		return nil, false
	}
	t := rt.Engine.Thread(conversationID)
	if t == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "conversation is not open"})
		return nil, false
	}
	return t, true
}

func stateResponse(st chat.ThreadState) gin.H {
	resp := gin.H{
		"loading":      st.Loading,
		"loading_more": st.LoadingMore,
		"has_more":     st.HasMore,
	}
	if st.Err != nil {
		resp["error"] = st.Err.Error()
	}
	return resp
}

func readUpload(c *gin.Context, field string) (filename, contentType string, data []byte, err error) {
	file, header, err := c.Request.FormFile(field)
	if err != nil {
		return "", "", nil, errors.New(field + " file is required")
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		return "", "", nil, errors.New("failed to read upload")
	}
	return header.Filename, header.Header.Get("Content-Type"), data, nil
}
