// Package profile manages the signed-in identity's own profile row and its
// avatar and banner images.
package profile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"
	"time"

	"chatamata-client/internal/gateway"
	"chatamata-client/internal/models"
)

// MaxImageBytes caps avatar and banner uploads.
const MaxImageBytes = 2 << 20

var ErrImageTooLarge = fmt.Errorf("image exceeds the %d byte limit", MaxImageBytes)

var errEmptyImage = errors.New("image is empty")

// Gateway is the remote surface the manager needs.
type Gateway interface {
	GetProfile(ctx context.Context, id string) (models.Profile, error)
	UpdateProfile(ctx context.Context, id string, patch gateway.ProfilePatch) (models.Profile, error)
	Upload(ctx context.Context, bucket, objectPath, contentType string, body io.Reader) error
	PublicURL(bucket, objectPath string) string
}

// Manager holds the cached own-profile row and applies updates through the
// gateway, keeping the cache in sync with the returned representation.
type Manager struct {
	gw     Gateway
	userID string
	notify func()

	mu      sync.Mutex
	current models.Profile
	loaded  bool
}

// NewManager constructs a manager for one identity.
func NewManager(gw Gateway, userID string, notify func()) *Manager {
	return &Manager{gw: gw, userID: userID, notify: notify}
}

// Load fetches the profile row into the cache.
func (m *Manager) Load(ctx context.Context) (models.Profile, error) {
	p, err := m.gw.GetProfile(ctx, m.userID)
	if err != nil {
		return models.Profile{}, err
	}
	m.store(p)
	return p, nil
}

// Current returns the cached profile and whether it has been loaded.
func (m *Manager) Current() (models.Profile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.loaded
}

// Update applies a partial update and refreshes the cache.
func (m *Manager) Update(ctx context.Context, patch gateway.ProfilePatch) (models.Profile, error) {
	p, err := m.gw.UpdateProfile(ctx, m.userID, patch)
	if err != nil {
		return models.Profile{}, err
	}
	m.store(p)
	return p, nil
}

// UploadAvatar stores a new avatar image and points the profile at it.
func (m *Manager) UploadAvatar(ctx context.Context, filename, contentType string, data []byte) (models.Profile, error) {
	url, err := m.upload(ctx, gateway.BucketAvatars, filename, contentType, data)
	if err != nil {
		return models.Profile{}, err
	}
	return m.Update(ctx, gateway.ProfilePatch{AvatarURL: &url})
}

// UploadBanner stores a new banner image and points the profile at it.
func (m *Manager) UploadBanner(ctx context.Context, filename, contentType string, data []byte) (models.Profile, error) {
	url, err := m.upload(ctx, gateway.BucketBanners, filename, contentType, data)
	if err != nil {
		return models.Profile{}, err
	}
	return m.Update(ctx, gateway.ProfilePatch{BannerURL: &url})
}

// CompleteSetup marks first-run profile setup as finished.
func (m *Manager) CompleteSetup(ctx context.Context) (models.Profile, error) {
	done := true
	return m.Update(ctx, gateway.ProfilePatch{SetupComplete: &done})
}

func (m *Manager) upload(ctx context.Context, bucket, filename, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errEmptyImage
	}
	if len(data) > MaxImageBytes {
		return "", ErrImageTooLarge
	}

	objectPath := fmt.Sprintf("%s/%d%s", m.userID, time.Now().UnixMilli(), path.Ext(filename))
	if err := m.gw.Upload(ctx, bucket, objectPath, contentType, bytes.NewReader(data)); err != nil {
		return "", err
	}
	return m.gw.PublicURL(bucket, objectPath), nil
}

func (m *Manager) store(p models.Profile) {
	m.mu.Lock()
	m.current = p
	m.loaded = true
	m.mu.Unlock()
	if m.notify != nil {
		m.notify()
	}
}
