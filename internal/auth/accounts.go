package auth

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mrlokans/plibrary/internal/config"
	"github.com/mrlokans/plibrary/internal/entities"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrInvalidRole      = errors.New("invalid role")
	ErrUsernameRequired = errors.New("username is required")
	ErrUsernameInvalid  = errors.New("username must be 3-64 characters, alphanumeric and underscore/hyphen only")
	ErrEmailRequired    = errors.New("email is required")
	ErrEmailInvalid     = errors.New("invalid email format")
	ErrAccountLocked    = errors.New("account is locked due to too many failed login attempts")
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)
	mailboxPattern  = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// UserStore persists user accounts. Lookups return gorm.ErrRecordNotFound
// for unknown users.
type UserStore interface {
	CreateUser(user *entities.User) error
	GetUserByID(id uint) (*entities.User, error)
	// GetUserByLogin matches either the username or the email.
	GetUserByLogin(login string) (*entities.User, error)
	GetUserByTokenDigest(digest string) (*entities.User, error)
	UserExists(username, email string) (bool, error)
	UpdateUser(id uint, fields map[string]any) (int64, error)
	CountUsers() (int64, error)
}

// newAccount carries the fields checked before an account is stored.
type newAccount struct {
	Username string            `validate:"required,username"`
	Email    string            `validate:"required,max=254,mailbox"`
	Role     entities.UserRole `validate:"oneof=admin editor viewer"`
}

func newAccountValidator() *validator.Validate {
	v := validator.New()
	// Both tags are registered on a fresh validator, errors are impossible
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("mailbox", func(fl validator.FieldLevel) bool {
		return mailboxPattern.MatchString(fl.Field().String())
	})
	return v
}

// accountError turns the first failed rule into the matching sentinel.
func accountError(err error) error {
	var failures validator.ValidationErrors
	if !errors.As(err, &failures) || len(failures) == 0 {
		return err
	}

	failed := failures[0]
	switch failed.Field() {
	case "Username":
		if failed.Tag() == "required" {
			return ErrUsernameRequired
		}
		return ErrUsernameInvalid
	case "Email":
		if failed.Tag() == "required" {
			return ErrEmailRequired
		}
		return ErrEmailInvalid
	default:
		return ErrInvalidRole
	}
}

// Service manages the librarians allowed into the catalog: account
// creation, password sign-in with lockout, and API tokens.
type Service struct {
	store     UserStore
	passwords passwords
	validate  *validator.Validate
	config    config.Auth
	log       logrus.FieldLogger
}

func NewService(store UserStore, cfg config.Auth, log logrus.FieldLogger) *Service {
	return &Service{
		store:     store,
		passwords: newPasswords(cfg.BcryptCost),
		validate:  newAccountValidator(),
		config:    cfg,
		log:       log.WithField("component", "auth"),
	}
}

// CreateUser registers an account after checking its fields and password.
func (s *Service) CreateUser(username, email, password string, role entities.UserRole) (*entities.User, error) {
	if err := s.validate.Struct(newAccount{Username: username, Email: email, Role: role}); err != nil {
		return nil, accountError(err)
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	exists, err := s.store.UserExists(username, email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	hash, err := s.passwords.hash(password)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.store.CreateUser(user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("Account created")
	return user, nil
}

// Authenticate checks a username or email against its password. Repeated
// failures lock the account for the configured lockout duration.
func (s *Service) Authenticate(login, password string) (*entities.User, error) {
	user, err := s.store.GetUserByLogin(login)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	now := time.Now()
	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		return nil, ErrAccountLocked
	}

	if err := s.passwords.verify(user.PasswordHash, password); err != nil {
		s.recordFailure(user, now)
		return nil, err
	}

	_, err = s.store.UpdateUser(user.ID, map[string]any{
		"last_login_at":      now,
		"failed_login_count": 0,
		"locked_until":       nil,
	})
	if err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("Failed to reset login counters")
	}
	user.LastLoginAt = &now
	user.FailedLoginCount = 0
	user.LockedUntil = nil

	return user, nil
}

func (s *Service) recordFailure(user *entities.User, now time.Time) {
	user.FailedLoginCount++
	fields := map[string]any{"failed_login_count": user.FailedLoginCount}

	if user.FailedLoginCount >= s.maxAttempts() {
		lockedUntil := now.Add(s.lockout())
		user.LockedUntil = &lockedUntil
		fields["locked_until"] = lockedUntil
		s.log.WithField("user_id", user.ID).Warn("Account locked after repeated login failures")
	}

	if _, err := s.store.UpdateUser(user.ID, fields); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("Failed to record login failure")
	}
}

func (s *Service) maxAttempts() int {
	if s.config.MaxLoginAttempts > 0 {
		return s.config.MaxLoginAttempts
	}
	return config.DefaultMaxLoginAttempts
}

func (s *Service) lockout() time.Duration {
	if s.config.LockoutDuration > 0 {
		return s.config.LockoutDuration
	}
	return config.DefaultLockoutDuration
}

func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	user, err := s.store.GetUserByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// HasUsers reports whether the first administrator was created yet.
func (s *Service) HasUsers() (bool, error) {
	count, err := s.store.CountUsers()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
