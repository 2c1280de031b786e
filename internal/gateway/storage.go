package gateway

import (
	"context"
	"io"
	"net/http"
)

// Storage bucket names the application writes to.
const (
	BucketChatImages = "chatimages"
	BucketAvatars    = "avatars"
	BucketBanners    = "banners"
)

// Upload stores an object in a bucket. Paths are caller-scoped (conversation
// id or user id plus a timestamp-derived filename) so uploads never collide.
func (c *Client) Upload(ctx context.Context, bucket, path, contentType string, body io.Reader) error {
	return c.do(ctx, request{
		op:      "storage.upload",
		method:  http.MethodPost,
		path:    "/storage/v1/object/" + bucket + "/" + path,
		headers: map[string]string{"Content-Type": contentType},
		raw:     body,
	}, nil)
}

// PublicURL derives the public URL for an object in a public bucket. No
// remote call is involved.
func (c *Client) PublicURL(bucket, path string) string {
	return c.baseURL + "/storage/v1/object/public/" + bucket + "/" + path
}
