package models

import "time"

// GarminAuth stores the combined OAuth1+OAuth2 credential bundle linking one
// user to Garmin Connect. At most one bundle exists per user; re-linking
// replaces the row wholesale and unlinking deletes it.
type GarminAuth struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"uniqueIndex;not null" json:"user_id"`

	// OAuth1 half of the bundle.
	OAuthToken       string     `gorm:"size:2048" json:"-"`
	OAuthTokenSecret string     `gorm:"size:2048" json:"-"`
	MFAToken         *string    `gorm:"size:2048" json:"-"`
	MFAExpiration    *time.Time `json:"-"`
	Domain           string     `gorm:"size:255" json:"-"`

	// OAuth2 half of the bundle.
	Scope                 string `gorm:"size:512" json:"-"`
	JTI                   string `gorm:"size:255" json:"-"`
	TokenType             string `gorm:"size:64" json:"-"`
	AccessToken           string `gorm:"size:4096" json:"-"`
	RefreshToken          string `gorm:"size:4096" json:"-"`
	ExpiresIn             *int64 `json:"-"`
	ExpiresAt             *int64 `json:"-"` // unix seconds
	RefreshTokenExpiresIn *int64 `json:"-"`
	RefreshTokenExpiresAt *int64 `json:"-"` // unix seconds

	// LastSync records the last successful sync; LastSyncAttempt records the
	// last attempt regardless of outcome and backs the cooldown check.
	LastSync        *time.Time `json:"last_sync"`
	LastSyncAttempt *time.Time `json:"last_sync_attempt"`

	GarminEmail string `gorm:"size:255" json:"garmin_email"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccessExpired reports whether the access token has expired at the given
// time. A missing expiry is treated as expired (fail safe).
func (a *GarminAuth) AccessExpired(now time.Time) bool {
	return a.ExpiresAt == nil || *a.ExpiresAt < now.Unix()
}

// RefreshExpired reports whether the refresh token has expired at the given
// time. A missing expiry is treated as expired.
func (a *GarminAuth) RefreshExpired(now time.Time) bool {
	return a.RefreshTokenExpiresAt == nil || *a.RefreshTokenExpiresAt < now.Unix()
}
