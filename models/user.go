package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a Flexingg account. Passwords are stored as bcrypt hashes only.
// CreatedAt doubles as the join date used by the early-adoption reward window.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email        string `gorm:"size:255" json:"email"`
	PasswordHash string `gorm:"size:255" json:"-"`
	AvatarURL    string `gorm:"size:512" json:"avatar_url"`

	// Virtual currency balances. These are cached aggregates; the ledger of
	// record is the transactions table.
	GymGems     float64 `gorm:"type:decimal(10,2);default:0" json:"gym_gems"`
	CardioCoins float64 `gorm:"type:decimal(10,2);default:0" json:"cardio_coins"`

	Level int `gorm:"default:1" json:"level"`
	XP    int `gorm:"default:0" json:"xp"`

	HeightFt *int     `json:"height_ft"`
	HeightIn *int     `json:"height_in"`
	Weight   *float64 `gorm:"type:decimal(5,2)" json:"weight"`
	Sex      *string  `gorm:"size:20" json:"sex"`

	// Minutes between automatic Garmin syncs triggered by page loads.
	SyncDebounceMinutes int `gorm:"default:60" json:"sync_debounce_minutes"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
