package models

import "time"

// Platform roles recognized by the API.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an end-user account stored in the database.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex"`  // Unique login name.
	Email    string `gorm:"type:text;not null;uniqueIndex"`  // Email address.
	Password string `gorm:"type:text;not null"`              // Hashed password.
	Role     string `gorm:"type:text;not null;default:user"` // Platform role: user or admin.
	Bio      string `gorm:"type:text"`                       // Free-form profile text.

	Memberships []GroupMember `gorm:"foreignKey:UserID"` // Group memberships.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
