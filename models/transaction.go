package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Currency kinds tracked by the transaction ledger.
const (
	CurrencyCardioCoins = "cardio_coins"
	CurrencyGymGems     = "gym_gems"
)

// Transaction is an immutable ledger entry for virtual currency. Rows are
// only ever appended; user balances are cached aggregates over this table.
type Transaction struct {
	ID           string  `gorm:"type:char(36);primaryKey" json:"id"`
	UserID       uint    `gorm:"not null;index" json:"user_id"`
	CurrencyType string  `gorm:"size:20;not null" json:"currency_type"`
	Amount       float64 `gorm:"type:decimal(10,2);not null" json:"amount"`

	// Set when the transaction was earned by a synced activity; the reward
	// engine uses this link to guarantee at most one reward per activity.
	GarminActivityID *string `gorm:"type:char(36);index" json:"garmin_activity_id"`

	CreatedAt time.Time `json:"created_at"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
