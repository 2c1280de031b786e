package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chatamata-client/internal/observability"
)

// TokenSource yields the current access token. An empty token means the
// request is made with the anonymous key only.
type TokenSource interface {
	AccessToken() string
}

// Client is the HTTP client for the hosted data platform: row CRUD and
// remote procedures under /rest/v1, auth under /auth/v1 and object storage
// under /storage/v1. Every durable operation the application performs goes
// through here.
type Client struct {
	baseURL string
	anonKey string
	tokens  TokenSource
	http    *http.Client
}

// NewClient constructs a gateway client.
func NewClient(baseURL, anonKey string, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		tokens:  tokens,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Error is a remote rejection decoded from a gateway response.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway: %s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("gateway: %s (status %d)", e.Message, e.Status)
}

// IsNotFound reports whether err is a gateway 404/406 (no matching row).
func IsNotFound(err error) bool {
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		return false
	}
	return gwErr.Status == http.StatusNotFound || gwErr.Status == http.StatusNotAcceptable
}

type request struct {
	op      string
	method  string
	path    string
	query   url.Values
	headers map[string]string
	body    any
	raw     io.Reader
	// bearer overrides the token source; used by auth flows where the
	// session store is not populated yet.
	bearer string
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var body io.Reader
	switch {
	case req.raw != nil:
		body = req.raw
	case req.body != nil:
		buf, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", req.op, err)
		}
		body = bytes.NewReader(buf)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", req.op, err)
	}

	httpReq.Header.Set("apikey", c.anonKey)
	token := req.bearer
	if token == "" && c.tokens != nil {
		token = c.tokens.AccessToken()
	}
	if token == "" {
		token = c.anonKey
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	if req.raw == nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		observability.ObserveGatewayRequest(req.op, 0, time.Since(start))
		return fmt.Errorf("%s: %w", req.op, err)
	}
	defer resp.Body.Close()
	observability.ObserveGatewayRequest(req.op, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 400 {
		return c.decodeError(req.op, resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", req.op, err)
	}
	return nil
}

func (c *Client) decodeError(op string, resp *http.Response) error {
	gwErr := &Error{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(data, gwErr); err != nil || gwErr.Message == "" {
		gwErr.Message = strings.TrimSpace(string(data))
		if gwErr.Message == "" {
			gwErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return fmt.Errorf("%s: %w", op, gwErr)
}

// singleObject asks the REST endpoint to return one row instead of an array.
const singleObject = "application/vnd.pgrst.object+json"
