package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatamata-client/internal/models"
)

type staticTokens string

func (s staticTokens) AccessToken() string { return string(s) }

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "anon-key", staticTokens("user-token"))
}

func TestListMessagesSendsFilterAndAuth(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/messages", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "eq.7", q.Get("conversation_id"))
		assert.Equal(t, "is.null", q.Get("deleted_at"))
		assert.Equal(t, "created_at.desc", q.Get("order"))
		assert.Equal(t, "0", q.Get("offset"))
		assert.Equal(t, "30", q.Get("limit"))

		content := "hi"
		_ = json.NewEncoder(w).Encode([]messageRow{{
			ID: 3, ConversationID: 7, SenderID: "user-2", Content: &content,
		}})
	})

	msgs, err := client.ListMessages(context.Background(), 7, 0, 30)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, models.StatusSuccess, msgs[0].Status)
}

func TestInsertMessageRejectsEmptyPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.InsertMessage(context.Background(), NewMessage{ConversationID: 7, SenderID: "user-1"})
	require.Error(t, err)
}

func TestInsertMessageDecodesRepresentation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["content"])

		content := "hello"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(messageRow{ID: 42, ConversationID: 7, SenderID: "user-1", Content: &content})
	})

	msg, err := client.InsertMessage(context.Background(), NewMessage{
		ConversationID: 7, SenderID: "user-1", Content: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), msg.ID)
	assert.Equal(t, models.StatusSuccess, msg.Status)
}

func TestSoftDeletePatchesDeletedAt(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.9", r.URL.Query().Get("id"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotEmpty(t, body["deleted_at"])
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.SoftDeleteMessage(context.Background(), 9))
}

func TestErrorDecodedFromBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "no rows", "code": "PGRST116"})
	})

	_, err := client.GetMessage(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "PGRST116")
}

func TestSearchProfilesBuildsIlikeQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "ilike.*bo*", q.Get("username"))
		assert.Equal(t, "neq.user-1", q.Get("id"))
		assert.Equal(t, "10", q.Get("limit"))
		_ = json.NewEncoder(w).Encode([]models.Profile{{ID: "user-2", Username: "bob"}})
	})

	profiles, err := client.SearchProfiles(context.Background(), "bo", "user-1", 10)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
}

func TestSignInUsesAnonBearerAndPasswordGrant(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "jwt",
			"refresh_token": "refresh",
			"expires_in":    3600,
			"user":          map[string]string{"id": "user-1"},
		})
	})

	sess, err := client.SignInWithPassword(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, "jwt", sess.AccessToken)
	assert.Equal(t, "user-1", sess.UserID)
	assert.False(t, sess.ExpiresAt.IsZero())
}

func TestMarkMessagesReadCallsProcedure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rpc/mark_messages_as_read", r.URL.Path)

		var body map[string]int64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(7), body["p_conversation_id"])
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.MarkMessagesRead(context.Background(), 7))
}

func TestUploadAndPublicURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/storage/v1/object/chatimages/7/123.png", r.URL.Path)
		assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	})

	err := client.Upload(context.Background(), BucketChatImages, "7/123.png", "image/png", nil)
	require.NoError(t, err)

	url := client.PublicURL(BucketChatImages, "7/123.png")
	assert.Contains(t, url, "/storage/v1/object/public/chatimages/7/123.png")
}
