package http

import (
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/mrlokans/plibrary/internal/database/profiles"
	"github.com/mrlokans/plibrary/internal/entities"
	"github.com/mrlokans/plibrary/internal/logging"
	"github.com/mrlokans/plibrary/internal/profile"
)

func setupProfileRouter(t *testing.T) (*gin.Engine, *profiles.Repository, *entities.User, *fakeRecorder) {
	t.Helper()

	db := setupTestDB(t)
	user := &entities.User{Username: "bilbo", Email: "bilbo@example.com", Role: entities.UserRoleViewer}
	require.NoError(t, db.DB.Create(user).Error)

	repo := profiles.NewRepository(db.DB)
	service := profile.NewService(repo, logging.Discard())
	recorder := &fakeRecorder{}
	controller := NewProfileController(service, recorder, logging.Discard())
	catalogController := NewCatalogController(nil, service, logging.Discard())

	router := newPageRouter(user)
	router.GET("/", catalogController.Home)
	router.GET("/profile/create", controller.CreatePage)
	router.POST("/profile/create", controller.Create)
	return router, repo, user, recorder
}

func TestProfileController_CreateThenPrefill(t *testing.T) {
	router, repo, user, recorder := setupProfileRouter(t)

	w := get(router, "/profile/create")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "age= error=")

	w = submitForm(router, "/profile/create", url.Values{"age": {"111"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	stored, err := repo.GetProfileByUserID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 111, stored.Age)

	account, err := repo.GetSocialAccountByUserID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ProviderLocal, account.Provider)
	assert.NotEmpty(t, account.UID)

	require.Len(t, recorder.profiles, 1)

	w = get(router, "/profile/create")
	assert.Contains(t, w.Body.String(), "age=111 error=")

	w = get(router, "/")
	assert.Contains(t, w.Body.String(), "user=bilbo provider=local age=111")
}

func TestProfileController_InvalidAgeRedisplays(t *testing.T) {
	router, repo, user, recorder := setupProfileRouter(t)

	for _, age := range []string{"", "abc", "-1", "151"} {
		w := submitForm(router, "/profile/create", url.Values{"age": {age}})
		assert.Equal(t, http.StatusOK, w.Code, "age %q", age)
		assert.Contains(t, w.Body.String(), profile.ErrInvalidAge.Error())
	}

	_, err := repo.GetProfileByUserID(user.ID)
	assert.Error(t, err)
	assert.Empty(t, recorder.profiles)
}

func TestProfileController_GithubEnrichment(t *testing.T) {
	router, repo, user, _ := setupProfileRouter(t)

	require.NoError(t, repo.SaveSocialAccount(&entities.SocialAccount{
		UserID:   user.ID,
		Provider: entities.ProviderGitHub,
		UID:      "583231",
		ExtraData: datatypes.JSONMap{
			entities.ExtraDataAge:     42,
			entities.ExtraDataHTMLURL: "https://github.com/bilbo",
		},
	}))

	w := get(router, "/")
	assert.Contains(t, w.Body.String(), "provider=github age=42 github=https://github.com/bilbo")
}

type brokenProfiles struct{}

func (brokenProfiles) Context(user *entities.User) profile.Enrichment { return profile.Enrichment{} }

func (brokenProfiles) CreateProfile(user *entities.User, age int) (*entities.UserProfile, error) {
	return nil, errors.New("readonly database")
}

func TestProfileController_StorageFailure(t *testing.T) {
	recorder := &fakeRecorder{}
	controller := NewProfileController(brokenProfiles{}, recorder, logging.Discard())

	router := newPageRouter(testUser)
	router.POST("/profile/create", controller.Create)

	w := submitForm(router, "/profile/create", url.Values{"age": {"30"}})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Len(t, recorder.profiles, 1)
}
