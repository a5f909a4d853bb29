package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GarminActivity stores one workout synced from Garmin Connect, unique per
// (user, provider activity id). Numeric fields are nullable because the
// provider omits them for some activity types; re-syncs only overwrite fields
// the provider actually sent.
type GarminActivity struct {
	ID         string `gorm:"type:char(36);primaryKey" json:"id"`
	UserID     uint   `gorm:"not null;uniqueIndex:idx_activity_user_remote;index" json:"user_id"`
	ActivityID int64  `gorm:"not null;uniqueIndex:idx_activity_user_remote" json:"activity_id"`

	Name         string `gorm:"size:255" json:"name"`
	ActivityType string `gorm:"size:100" json:"activity_type"`

	StartTimeUTC    time.Time `gorm:"index" json:"start_time_utc"`
	DurationSeconds *float64  `json:"duration_seconds"`
	DistanceMeters  *float64  `json:"distance_meters"`
	Calories        *float64  `json:"calories"`
	AverageHR       *float64  `json:"average_hr"`
	MaxHR           *float64  `json:"max_hr"`

	// Full provider payload, kept so derived metrics (sweat score) can be
	// recomputed without another fetch.
	RawData []byte `gorm:"type:mediumtext" json:"-"`

	SyncedAt  time.Time `gorm:"autoUpdateTime" json:"synced_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *GarminActivity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
