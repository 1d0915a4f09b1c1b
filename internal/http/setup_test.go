package http

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/plibrary/internal/auth"
	"github.com/mrlokans/plibrary/internal/database"
	"github.com/mrlokans/plibrary/internal/database/catalog"
	"github.com/mrlokans/plibrary/internal/entities"
	"github.com/mrlokans/plibrary/internal/logging"
)

const testTemplates = `
{{define "home"}}home user={{.Username}} provider={{.Provider}} age={{.Age}} github={{.GithubURL}}{{end}}
{{define "index"}}{{range .Books}}[{{.Title}} x{{.CopyCount}}]{{end}}{{end}}
{{define "lend_return"}}{{range .Books}}[{{.Title}}]{{end}}{{range .Friends}}({{.Name}}){{end}}{{end}}
{{define "lended"}}{{range .Books}}[{{.Title}} with {{.LendedTo.Name}}]{{end}}{{end}}
{{define "publishers"}}{{range .Publishers}}[{{.Name}}]{{end}}{{end}}
{{define "authors"}}{{range .Authors}}[{{.FullName}}]{{end}}{{end}}
{{define "friends"}}{{range .Friends}}[{{.Name}}]{{end}}{{end}}
{{define "publisher_create"}}{{template "form_errors" .Form}}{{end}}
{{define "author_create"}}{{template "form_errors" .Form}}{{end}}
{{define "friend_create"}}{{template "form_errors" .Form}}{{end}}
{{define "form_errors"}}{{range $field, $msg := .Errors}}{{$field}}: {{$msg}};{{end}}{{end}}
{{define "manage_authors"}}authors={{.Authors.TotalForms}}{{range .Authors.NonFormErrors}} !{{.}}{{end}}{{range .Authors.Rows}}{{template "form_errors" .}}{{end}}{{end}}
{{define "manage_books_authors"}}authors={{.Authors.TotalForms}} books={{.Books.TotalForms}}{{range .Authors.Rows}}{{template "form_errors" .}}{{end}}{{range .Books.Rows}}{{template "form_errors" .}}{{end}}{{end}}
{{define "profile_create"}}age={{.FormAge}} error={{.FormError}}{{end}}
`

func newTestTemplate() *template.Template {
	return template.Must(template.New("").Funcs(templateFuncs).Parse(testTemplates))
}

func setupTestDB(t *testing.T) *database.Database {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

type seeded struct {
	author *entities.Author
	book   *entities.Book
	friend *entities.Friend
}

func seedCatalog(t *testing.T, repo *catalog.Repository, copies int) seeded {
	t.Helper()

	author := &entities.Author{FullName: "Stanislaw Lem", BirthYear: 1921, Country: "PL"}
	require.NoError(t, repo.CreateAuthor(author))
	book := &entities.Book{ISBN: "9780156027601", Title: "Solaris", YearRelease: 1961, AuthorID: author.ID, CopyCount: copies}
	require.NoError(t, repo.CreateBook(book))
	friend := &entities.Friend{Name: "Kris", Contact: "kris@example.com"}
	require.NoError(t, repo.CreateFriend(friend))

	return seeded{author: author, book: book, friend: friend}
}

// withUser stands in for the access gate in controller tests.
func withUser(user *entities.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.ContextKeyUser, user)
		c.Next()
	}
}

func newPageRouter(user *entities.User) *gin.Engine {
	router := gin.New()
	router.SetHTMLTemplate(newTestTemplate())
	if user != nil {
		router.Use(withUser(user))
	}
	router.Use(AuthContextMiddleware())
	return router
}

func submitForm(router http.Handler, path string, values url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(w, req)
	return w
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
