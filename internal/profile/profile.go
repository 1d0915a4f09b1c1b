// Package profile derives per-user page context from the linked social
// account and typed profile, and records profile submissions.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mrlokans/plibrary/internal/entities"
)

// Age bounds accepted by the profile form
const (
	MinAge = 0
	MaxAge = 150
)

var (
	ErrInvalidAge     = fmt.Errorf("age must be a whole number between %d and %d", MinAge, MaxAge)
	ErrIdentityLinked = errors.New("identity is already linked to another user")
)

// Store is the persistence the profile service needs. Absent rows are
// reported as errors wrapping gorm.ErrRecordNotFound.
type Store interface {
	GetSocialAccountByUserID(userID uint) (*entities.SocialAccount, error)
	GetSocialAccount(provider, uid string) (*entities.SocialAccount, error)
	SaveSocialAccount(account *entities.SocialAccount) error
	GetProfileByUserID(userID uint) (*entities.UserProfile, error)
	UpsertProfile(userID uint, age int) (*entities.UserProfile, error)
}

// Enrichment is merged into every page rendered for a signed-in user.
// The zero value means nothing could be derived.
type Enrichment struct {
	Username  string
	Provider  string
	Age       int
	GithubURL string
}

// Empty reports whether no enrichment is available.
func (e Enrichment) Empty() bool {
	return e == Enrichment{}
}

// Map returns the enrichment as template data keys. Empty enrichment yields
// an empty map.
func (e Enrichment) Map() map[string]any {
	if e.Empty() {
		return map[string]any{}
	}
	m := map[string]any{
		"Username": e.Username,
		"Provider": e.Provider,
		"Age":      e.Age,
	}
	if e.GithubURL != "" {
		m["GithubURL"] = e.GithubURL
	}
	return m
}

type Service struct {
	store Store
	log   logrus.FieldLogger
	// newUID generates identifiers for locally created accounts.
	newUID func() (string, error)
}

func NewService(store Store, log logrus.FieldLogger) *Service {
	return &Service{store: store, log: log, newUID: timeUUID}
}

func timeUUID() (string, error) {
	id, err := uuid.NewUUID()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Context builds the enrichment for a user. Any missing piece of identity
// data yields the empty enrichment; storage errors are logged and degrade
// the same way.
func (s *Service) Context(user *entities.User) Enrichment {
	if user == nil {
		return Enrichment{}
	}

	account, err := s.store.GetSocialAccountByUserID(user.ID)
	if err != nil {
		s.degrade(user, "social account", err)
		return Enrichment{}
	}

	age, ok := s.age(user, account)
	if !ok {
		return Enrichment{}
	}

	e := Enrichment{
		Username: user.Username,
		Provider: account.Provider,
		Age:      age,
	}

	if account.Provider == entities.ProviderGitHub {
		url, ok := account.ExtraData[entities.ExtraDataHTMLURL].(string)
		if !ok || url == "" {
			return Enrichment{}
		}
		e.GithubURL = url
	}

	return e
}

func (s *Service) age(user *entities.User, account *entities.SocialAccount) (int, bool) {
	profile, err := s.store.GetProfileByUserID(user.ID)
	if err == nil {
		return profile.Age, true
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.degrade(user, "user profile", err)
		return 0, false
	}
	return AgeFromExtraData(account.ExtraData)
}

func (s *Service) degrade(user *entities.User, what string, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return
	}
	s.log.WithError(err).WithFields(logrus.Fields{
		"user_id": user.ID,
		"lookup":  what,
	}).Error("Failed to load profile context")
}

// AgeFromExtraData reads the mirrored age out of an account attribute bag.
func AgeFromExtraData(data datatypes.JSONMap) (int, bool) {
	raw, ok := data[entities.ExtraDataAge]
	if !ok || raw == nil {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// ParseAge validates the submitted age field.
func ParseAge(raw string) (int, error) {
	age, err := strconv.Atoi(raw)
	if err != nil || age < MinAge || age > MaxAge {
		return 0, ErrInvalidAge
	}
	return age, nil
}

// CreateProfile stores the age on the user's profile, linking a local social
// account first if the user has none. The account's attribute bag mirrors
// the age.
func (s *Service) CreateProfile(user *entities.User, age int) (*entities.UserProfile, error) {
	if age < MinAge || age > MaxAge {
		return nil, ErrInvalidAge
	}

	account, err := s.getOrCreateAccount(user)
	if err != nil {
		return nil, err
	}

	if account.ExtraData == nil {
		account.ExtraData = datatypes.JSONMap{}
	}
	account.ExtraData[entities.ExtraDataAge] = age
	if err := s.store.SaveSocialAccount(account); err != nil {
		return nil, fmt.Errorf("failed to save social account: %w", err)
	}

	profile, err := s.store.UpsertProfile(user.ID, age)
	if err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"provider": account.Provider,
	}).Info("Profile saved")

	return profile, nil
}

func (s *Service) getOrCreateAccount(user *entities.User) (*entities.SocialAccount, error) {
	account, err := s.store.GetSocialAccountByUserID(user.ID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load social account: %w", err)
	}

	uid, err := s.newUID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate account uid: %w", err)
	}
	return &entities.SocialAccount{
		UserID:    user.ID,
		Provider:  entities.ProviderLocal,
		UID:       uid,
		ExtraData: datatypes.JSONMap{},
	}, nil
}

// LinkAccount attaches an external identity to a user, replacing the
// provider and uid of an existing link. extra is merged into the attribute
// bag.
func (s *Service) LinkAccount(user *entities.User, provider, uid string, extra map[string]any) (*entities.SocialAccount, error) {
	if provider == "" || uid == "" {
		return nil, errors.New("provider and uid are required")
	}

	owner, err := s.store.GetSocialAccount(provider, uid)
	switch {
	case err == nil && owner.UserID != user.ID:
		return nil, fmt.Errorf("%s %s: %w", provider, uid, ErrIdentityLinked)
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to look up social account: %w", err)
	}

	account, err := s.store.GetSocialAccountByUserID(user.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load social account: %w", err)
		}
		account = &entities.SocialAccount{UserID: user.ID}
	}

	account.Provider = provider
	account.UID = uid
	if account.ExtraData == nil {
		account.ExtraData = datatypes.JSONMap{}
	}
	for k, v := range extra {
		account.ExtraData[k] = v
	}

	if err := s.store.SaveSocialAccount(account); err != nil {
		return nil, fmt.Errorf("failed to save social account: %w", err)
	}
	return account, nil
}
