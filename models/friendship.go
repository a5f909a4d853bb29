package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Friendship statuses.
const (
	FriendshipPending  = "pending"
	FriendshipAccepted = "accepted"
	FriendshipDeclined = "declined"
	FriendshipBlocked  = "blocked"
)

// Friendship is a directed social-graph edge, unique per (from, to) pair.
// Aggregation treats an accepted edge as undirected and checks both
// directions.
type Friendship struct {
	ID         string `gorm:"type:char(36);primaryKey" json:"id"`
	FromUserID uint   `gorm:"not null;uniqueIndex:idx_friendship_pair" json:"from_user_id"`
	ToUserID   uint   `gorm:"not null;uniqueIndex:idx_friendship_pair;index" json:"to_user_id"`
	Status     string `gorm:"size:10;default:'pending'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (f *Friendship) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
