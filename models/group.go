package models

import "time"

// Group membership roles.
const (
	GroupRoleAdmin  = "admin"
	GroupRoleMember = "member"
)

// Group is a named collection of users used as a leaderboard scope.
type Group struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	CreatorID   uint   `gorm:"not null" json:"creator_id"`

	CreatedAt time.Time `json:"created_at"`
}

// GroupMembership links a user to a group, unique per pair.
type GroupMembership struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	UserID  uint   `gorm:"not null;uniqueIndex:idx_group_member" json:"user_id"`
	GroupID uint   `gorm:"not null;uniqueIndex:idx_group_member;index" json:"group_id"`
	Role    string `gorm:"size:10;default:'member'" json:"role"`

	CreatedAt time.Time `json:"created_at"`
}
