package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"chatamata-client/internal/models"
)

// friendshipSelect joins both sides of the row so the caller can pick the
// counterpart without a second fetch.
const friendshipSelect = "id,status,action_user_id," +
	"user_one:profiles!friendships_user_one_id_fkey(*)," +
	"user_two:profiles!friendships_user_two_id_fkey(*)"

// FriendshipRecord is a raw friendship row with both member profiles.
type FriendshipRecord struct {
	ID           int64                   `json:"id"`
	Status       models.FriendshipStatus `json:"status"`
	ActionUserID string                  `json:"action_user_id"`
	UserOne      models.Profile          `json:"user_one"`
	UserTwo      models.Profile          `json:"user_two"`
}

// Counterpart returns the profile on the other side of the row from userID.
func (r FriendshipRecord) Counterpart(userID string) models.Profile {
	if r.UserOne.ID == userID {
		return r.UserTwo
	}
	return r.UserOne
}

// ListFriendships returns every friendship row naming userID on either side.
func (c *Client) ListFriendships(ctx context.Context, userID string) ([]FriendshipRecord, error) {
	query := url.Values{}
	query.Set("select", friendshipSelect)
	query.Set("or", fmt.Sprintf("(user_one_id.eq.%s,user_two_id.eq.%s)", userID, userID))

	var records []FriendshipRecord
	err := c.do(ctx, request{
		op:     "friendships.list",
		method: http.MethodGet,
		path:   "/rest/v1/friendships",
		query:  query,
	}, &records)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// SearchProfiles matches usernames case-insensitively by substring,
// excluding the searching identity, capped at limit rows.
func (c *Client) SearchProfiles(ctx context.Context, search, excludeID string, limit int) ([]models.Profile, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("username", "ilike.*"+search+"*")
	query.Set("id", "neq."+excludeID)
	query.Set("limit", strconv.Itoa(limit))

	var profiles []models.Profile
	err := c.do(ctx, request{
		op:     "profiles.search",
		method: http.MethodGet,
		path:   "/rest/v1/profiles",
		query:  query,
	}, &profiles)
	if err != nil {
		return nil, err
	}
	return profiles, nil
}
