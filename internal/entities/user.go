package entities

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleEditor UserRole = "editor"
	UserRoleViewer UserRole = "viewer"
)

// CanEditCatalog reports whether the role may change the catalog. Viewers
// browse only.
func (r UserRole) CanEditCatalog() bool {
	return r == UserRoleAdmin || r == UserRoleEditor
}

type User struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Username         string         `gorm:"uniqueIndex;size:100" json:"username"`
	Email            string         `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash     string         `gorm:"size:255" json:"-"`
	Role             UserRole       `gorm:"size:20;default:'viewer'" json:"role"`
	TokenHash        string         `gorm:"index;size:64" json:"-"` // SHA-256 of the API token
	TokenCreatedAt   *time.Time     `json:"-"`
	FailedLoginCount int            `gorm:"default:0" json:"-"`
	LockedUntil      *time.Time     `json:"-"`
	LastLoginAt      *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}
