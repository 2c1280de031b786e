package gateway

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// AuthSession is the token grant returned by the auth endpoints. The profile
// row is fetched separately once the token is installed.
type AuthSession struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UserID       string
}

// SignUpParams carries the metadata the platform's signup trigger copies
// into the new profile row.
type SignUpParams struct {
	Email       string
	Password    string
	FullName    string
	Username    string
	ChatamataID string
}

type authResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID string `json:"id"`
	} `json:"user"`
}

func (r authResponse) toSession() AuthSession {
	return AuthSession{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(r.ExpiresIn) * time.Second),
		UserID:       r.User.ID,
	}
}

// SignUp registers a new identity. The account must confirm its email before
// the first sign-in; no session is returned.
func (c *Client) SignUp(ctx context.Context, params SignUpParams) error {
	body := map[string]any{
		"email":    params.Email,
		"password": params.Password,
		"data": map[string]any{
			"fullName":    params.FullName,
			"username":    params.Username,
			"chatamataId": params.ChatamataID,
		},
	}
	return c.do(ctx, request{
		op:     "auth.signup",
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		body:   body,
		bearer: c.anonKey,
	}, nil)
}

// SignInWithPassword exchanges credentials for a token grant.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (AuthSession, error) {
	query := url.Values{}
	query.Set("grant_type", "password")

	var resp authResponse
	err := c.do(ctx, request{
		op:     "auth.sign_in",
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  query,
		body:   map[string]any{"email": email, "password": password},
		bearer: c.anonKey,
	}, &resp)
	if err != nil {
		return AuthSession{}, err
	}
	return resp.toSession(), nil
}

// RefreshSession trades a refresh token for a fresh grant.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (AuthSession, error) {
	query := url.Values{}
	query.Set("grant_type", "refresh_token")

	var resp authResponse
	err := c.do(ctx, request{
		op:     "auth.refresh",
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  query,
		body:   map[string]any{"refresh_token": refreshToken},
		bearer: c.anonKey,
	}, &resp)
	if err != nil {
		return AuthSession{}, err
	}
	return resp.toSession(), nil
}

// SignOut revokes the given access token.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, request{
		op:     "auth.sign_out",
		method: http.MethodPost,
		path:   "/auth/v1/logout",
		bearer: accessToken,
	}, nil)
}
