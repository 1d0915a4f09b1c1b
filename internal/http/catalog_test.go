package http

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/plibrary/internal/database/catalog"
	"github.com/mrlokans/plibrary/internal/logging"
)

func setupCatalogRouter(t *testing.T) (*gin.Engine, *catalog.Repository) {
	t.Helper()

	repo := catalog.NewRepository(setupTestDB(t).DB)
	controller := NewCatalogController(repo, nil, logging.Discard())

	router := newPageRouter(testUser)
	router.GET("/", controller.Home)
	router.GET("/index", controller.BooksPage)
	router.GET("/lend_return", controller.LendReturnPage)
	router.GET("/lended", controller.LentBooksPage)
	router.GET("/publishers", controller.PublishersPage)
	router.GET("/publishers/create", controller.PublisherCreatePage)
	router.POST("/publishers/create", controller.CreatePublisher)
	router.GET("/authors", controller.AuthorsPage)
	router.GET("/authors/create", controller.AuthorCreatePage)
	router.POST("/authors/create", controller.CreateAuthor)
	router.GET("/friends", controller.FriendsPage)
	router.GET("/friends/create", controller.FriendCreatePage)
	router.POST("/friends/create", controller.CreateFriend)
	return router, repo
}

func TestCatalogController_ListPages(t *testing.T) {
	router, repo := setupCatalogRouter(t)
	seed := seedCatalog(t, repo, 2)

	tests := []struct {
		path string
		want string
	}{
		{path: "/", want: "home"},
		{path: "/index", want: "[Solaris x2]"},
		{path: "/lend_return", want: "(Kris)"},
		{path: "/authors", want: "[Stanislaw Lem]"},
		{path: "/friends", want: "[Kris]"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := get(router, tt.path)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}

	t.Run("lended lists only lent books", func(t *testing.T) {
		w := get(router, "/lended")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "Solaris")

		seed.book.LendedToID = &seed.friend.ID
		require.NoError(t, repo.SaveBook(seed.book))

		w = get(router, "/lended")
		assert.Contains(t, w.Body.String(), "[Solaris with Kris]")
	})
}

func TestCatalogController_CreatePublisher(t *testing.T) {
	router, repo := setupCatalogRouter(t)

	w := get(router, "/publishers/create")
	assert.Equal(t, http.StatusOK, w.Code)

	w = submitForm(router, "/publishers/create", url.Values{"name": {"Penguin"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/publishers", w.Header().Get("Location"))

	w = get(router, "/publishers")
	assert.Contains(t, w.Body.String(), "[Penguin]")

	t.Run("duplicate name is redisplayed", func(t *testing.T) {
		w := submitForm(router, "/publishers/create", url.Values{"name": {"Penguin"}})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "name: Publisher with this Name already exists.")

		publishers, err := repo.ListPublishers()
		require.NoError(t, err)
		assert.Len(t, publishers, 1)
	})

	t.Run("missing name", func(t *testing.T) {
		w := submitForm(router, "/publishers/create", url.Values{"name": {"   "}})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "name: This field is required.")
	})
}

func TestCatalogController_CreateAuthor(t *testing.T) {
	router, repo := setupCatalogRouter(t)

	w := submitForm(router, "/authors/create", url.Values{
		"full_name":  {"Italo Calvino"},
		"birth_year": {"1923"},
		"country":    {"it"},
	})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/authors", w.Header().Get("Location"))

	authors, err := repo.ListAuthors()
	require.NoError(t, err)
	require.Len(t, authors, 1)
	assert.Equal(t, "IT", authors[0].Country)

	w = submitForm(router, "/authors/create", url.Values{
		"full_name":  {"Italo Calvino"},
		"birth_year": {"soon"},
		"country":    {"IT"},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "birth_year: Enter a whole number.")

	authors, err = repo.ListAuthors()
	require.NoError(t, err)
	assert.Len(t, authors, 1)
}

func TestCatalogController_CreateFriend(t *testing.T) {
	router, repo := setupCatalogRouter(t)

	w := submitForm(router, "/friends/create", url.Values{"name": {"Hari"}, "contact": {"+1 555 0100"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/friends", w.Header().Get("Location"))

	friends, err := repo.ListFriends()
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, "+1 555 0100", friends[0].Contact)

	w = submitForm(router, "/friends/create", url.Values{"contact": {"nobody"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "name: This field is required.")
}
