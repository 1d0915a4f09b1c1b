// Package users stores the accounts allowed into the catalog.
//
// The auth service creates and checks accounts through this repository;
// the admin CLI lists them. Lookups return gorm.ErrRecordNotFound for
// unknown users.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetUserByUsername("alice")
package users

import (
	"gorm.io/gorm"

	"github.com/mrlokans/plibrary/internal/entities"
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateUser(user *entities.User) error {
	return r.db.Create(user).Error
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(username string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByLogin matches login against both the username and the email.
func (r *Repository) GetUserByLogin(login string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("username = ? OR email = ?", login, login).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) GetUserByTokenDigest(digest string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("token_hash = ? AND token_hash <> ''", digest).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UserExists reports whether either the username or the email is taken.
func (r *Repository) UserExists(username, email string) (bool, error) {
	var count int64
	err := r.db.Model(&entities.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	return count > 0, err
}

// UpdateUser sets the given columns and returns the number of rows changed.
func (r *Repository) UpdateUser(id uint, fields map[string]any) (int64, error) {
	result := r.db.Model(&entities.User{}).Where("id = ?", id).Updates(fields)
	return result.RowsAffected, result.Error
}

func (r *Repository) CountUsers() (int64, error) {
	var count int64
	err := r.db.Model(&entities.User{}).Count(&count).Error
	return count, err
}

// ListUsers returns every user ordered by username.
func (r *Repository) ListUsers() ([]entities.User, error) {
	var users []entities.User
	err := r.db.Order("username ASC").Find(&users).Error
	return users, err
}
