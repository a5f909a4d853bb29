package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GarminDailySteps stores one step total per user per calendar date.
// Dates are stored as YYYY-MM-DD strings so range queries behave identically
// across database engines; lexicographic order equals chronological order.
type GarminDailySteps struct {
	ID     string `gorm:"type:char(36);primaryKey" json:"id"`
	UserID uint   `gorm:"not null;uniqueIndex:idx_steps_user_date" json:"user_id"`
	Date   string `gorm:"size:10;not null;uniqueIndex:idx_steps_user_date" json:"date"`
	Steps  int    `gorm:"not null" json:"steps"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *GarminDailySteps) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
