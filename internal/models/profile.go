package models

import "time"

// Plan is the account tier shown on a profile.
type Plan string

const (
	PlanFree     Plan = "free"
	PlanVerified Plan = "verified"
	PlanPremium  Plan = "premium"
	PlanVIP      Plan = "vip"
)

// Profile is the public-facing record of an identity. The gateway owns the
// row; the client only ever holds read-through copies.
type Profile struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	FullName      string     `json:"full_name"`
	AvatarURL     string     `json:"avatar_url"`
	BannerURL     string     `json:"banner_url"`
	Description   string     `json:"description"`
	ChatamataID   string     `json:"chatamata_id"`
	Plan          Plan       `json:"plan"`
	JoinedAt      *time.Time `json:"joined_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
	SetupComplete bool       `json:"profile_setup_complete"`
}
