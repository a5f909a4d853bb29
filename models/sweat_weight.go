package models

import "time"

// SweatScoreWeight stores the configurable points-per-minute weight for one
// heart-rate zone. The table is not assumed complete; the score calculator
// falls back to hardcoded defaults for missing zones.
type SweatScoreWeight struct {
	ID              uint    `gorm:"primaryKey" json:"id"`
	Zone            int     `gorm:"uniqueIndex;not null" json:"zone"`
	Name            string  `gorm:"size:100" json:"name"`
	PerceivedEffort string  `gorm:"size:100" json:"perceived_effort"`
	Weight          float64 `gorm:"type:decimal(5,2);default:1" json:"weight"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
