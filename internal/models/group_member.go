package models

import "time"

// Group membership roles.
const (
	GroupRoleMember = "member"
	GroupRoleAdmin  = "admin"
)

// GroupMember links a user to a group with a role. A user holds at most
// one membership row per group.
type GroupMember struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	GroupID uint64 `gorm:"not null;uniqueIndex:idx_group_members_pair"` // Group reference.
	UserID  uint64 `gorm:"not null;uniqueIndex:idx_group_members_pair"` // User reference.
	Role    string `gorm:"type:text;not null;default:member"`           // member or admin.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Join timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last role change.
}
