package entities

import (
	"time"

	"gorm.io/datatypes"
)

// Known social account providers
const (
	ProviderLocal  = "local"
	ProviderGitHub = "github"
)

// Keys read from SocialAccount.ExtraData
const (
	ExtraDataAge     = "age"
	ExtraDataHTMLURL = "html_url"
)

// SocialAccount links a user to an external identity. ExtraData carries
// whatever attributes the provider handed over.
type SocialAccount struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	UserID    uint              `gorm:"uniqueIndex" json:"user_id"`
	Provider  string            `gorm:"index:idx_provider_uid,unique;size:30" json:"provider"`
	UID       string            `gorm:"index:idx_provider_uid,unique;size:191" json:"uid"`
	ExtraData datatypes.JSONMap `gorm:"type:json" json:"extra_data"`
	User      User              `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// UserProfile holds typed profile attributes owned by the user.
type UserProfile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex" json:"user_id"`
	Age       int       `json:"age"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SocialAccount) TableName() string {
	return "social_accounts"
}

func (UserProfile) TableName() string {
	return "user_profiles"
}
