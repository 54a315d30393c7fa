package models

import "time"

// Group is a user-created group with a bounded member capacity.
type Group struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name        string `gorm:"type:text;not null"`      // Display name.
	Description string `gorm:"type:text;not null"`      // Free-form description.
	MaxMembers  int    `gorm:"not null"`                // Member capacity, always >= 2.
	CreatorID   uint64 `gorm:"not null;index"`          // Owning user, immutable after creation.
	InviteCode  string `gorm:"type:text;uniqueIndex"`   // Rotatable join token, empty when disabled.

	Members []GroupMember `gorm:"foreignKey:GroupID"` // Related membership rows.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
