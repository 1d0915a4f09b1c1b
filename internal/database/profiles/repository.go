// Package profiles provides database operations for linked social accounts
// and typed user profiles.
package profiles

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/plibrary/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetSocialAccountByUserID returns the account linked to a user.
func (r *Repository) GetSocialAccountByUserID(userID uint) (*entities.SocialAccount, error) {
	var account entities.SocialAccount
	err := r.db.Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetSocialAccount looks an account up by its provider identity.
func (r *Repository) GetSocialAccount(provider, uid string) (*entities.SocialAccount, error) {
	var account entities.SocialAccount
	err := r.db.Where("provider = ? AND uid = ?", provider, uid).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// SaveSocialAccount inserts or updates the account.
func (r *Repository) SaveSocialAccount(account *entities.SocialAccount) error {
	return r.db.Omit(clause.Associations).Save(account).Error
}

// GetProfileByUserID returns the typed profile of a user.
func (r *Repository) GetProfileByUserID(userID uint) (*entities.UserProfile, error) {
	var profile entities.UserProfile
	err := r.db.Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpsertProfile creates the profile row on first use and updates the age on
// later calls.
func (r *Repository) UpsertProfile(userID uint, age int) (*entities.UserProfile, error) {
	profile := &entities.UserProfile{UserID: userID, Age: age}
	err := r.db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{"age": age, "updated_at": time.Now()}),
	}).Create(profile).Error
	if err != nil {
		return nil, err
	}
	return r.GetProfileByUserID(userID)
}
