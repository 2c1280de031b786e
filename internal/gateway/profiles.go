package gateway

import (
	"context"
	"net/http"
	"net/url"

	"chatamata-client/internal/models"
)

// ProfilePatch is a partial profile update; nil fields are left untouched.
type ProfilePatch struct {
	Username      *string `json:"username,omitempty"`
	FullName      *string `json:"full_name,omitempty"`
	Description   *string `json:"description,omitempty"`
	AvatarURL     *string `json:"avatar_url,omitempty"`
	BannerURL     *string `json:"banner_url,omitempty"`
	SetupComplete *bool   `json:"profile_setup_complete,omitempty"`
}

// GetProfile fetches one profile row.
func (c *Client) GetProfile(ctx context.Context, id string) (models.Profile, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("id", "eq."+id)

	var profile models.Profile
	err := c.do(ctx, request{
		op:      "profiles.get",
		method:  http.MethodGet,
		path:    "/rest/v1/profiles",
		query:   query,
		headers: map[string]string{"Accept": singleObject},
	}, &profile)
	if err != nil {
		return models.Profile{}, err
	}
	return profile, nil
}

// UpdateProfile applies a partial update and returns the refreshed row.
func (c *Client) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (models.Profile, error) {
	query := url.Values{}
	query.Set("id", "eq."+id)
	query.Set("select", "*")

	var profile models.Profile
	err := c.do(ctx, request{
		op:     "profiles.update",
		method: http.MethodPatch,
		path:   "/rest/v1/profiles",
		query:  query,
		headers: map[string]string{
			"Accept": singleObject,
			"Prefer": "return=representation",
		},
		body: patch,
	}, &profile)
	if err != nil {
		return models.Profile{}, err
	}
	return profile, nil
}
