package http

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/plibrary/internal/formset"
)

const publisherNameTaken = "Publisher with this Name already exists."

// CatalogController serves the list pages and single-object create forms.
type CatalogController struct {
	store CatalogStore
	forms *formset.Forms
	pages *pages
	log   logrus.FieldLogger
}

func NewCatalogController(store CatalogStore, profiles ProfileService, log logrus.FieldLogger) *CatalogController {
	return &CatalogController{
		store: store,
		forms: formset.NewForms(),
		pages: &pages{profiles: profiles},
		log:   log,
	}
}

// Home handles GET /
func (cc *CatalogController) Home(c *gin.Context) {
	cc.pages.render(c, http.StatusOK, "home", gin.H{
		"Title": "Home",
	})
}

// BooksPage handles GET /index
func (cc *CatalogController) BooksPage(c *gin.Context) {
	books, err := cc.store.ListBooks()
	if err != nil {
		respondStorageError(c, cc.log, err, "list books")
		return
	}
	cc.pages.render(c, http.StatusOK, "index", gin.H{
		"Title": "Books",
		"Books": books,
	})
}

// LendReturnPage handles GET /lend_return
func (cc *CatalogController) LendReturnPage(c *gin.Context) {
	books, err := cc.store.ListBooks()
	if err != nil {
		respondStorageError(c, cc.log, err, "list books")
		return
	}
	friends, err := cc.store.ListFriends()
	if err != nil {
		respondStorageError(c, cc.log, err, "list friends")
		return
	}
	cc.pages.render(c, http.StatusOK, "lend_return", gin.H{
		"Title":   "Lend or return",
		"Books":   books,
		"Friends": friends,
	})
}

// LentBooksPage handles GET /lended
func (cc *CatalogController) LentBooksPage(c *gin.Context) {
	books, err := cc.store.ListLentBooks()
	if err != nil {
		respondStorageError(c, cc.log, err, "list lent books")
		return
	}
	cc.pages.render(c, http.StatusOK, "lended", gin.H{
		"Title": "Lent books",
		"Books": books,
	})
}

// PublishersPage handles GET /publishers
func (cc *CatalogController) PublishersPage(c *gin.Context) {
	publishers, err := cc.store.ListPublishers()
	if err != nil {
		respondStorageError(c, cc.log, err, "list publishers")
		return
	}
	cc.pages.render(c, http.StatusOK, "publishers", gin.H{
		"Title":      "Publishers",
		"Publishers": publishers,
	})
}

// PublisherCreatePage handles GET /publishers/create
func (cc *CatalogController) PublisherCreatePage(c *gin.Context) {
	cc.renderForm(c, "publisher_create", "New publisher", formset.Single(formset.PublisherFields, nil))
}

// CreatePublisher handles POST /publishers/create
func (cc *CatalogController) CreatePublisher(c *gin.Context) {
	row := formset.Single(formset.PublisherFields, postForm(c))
	p := cc.forms.Publisher(row)

	if row.Valid() {
		taken, err := cc.store.PublisherNameTaken(p.Name)
		if err != nil {
			respondStorageError(c, cc.log, err, "check publisher name")
			return
		}
		if taken {
			row.AddError("name", publisherNameTaken)
		}
	}
	if !row.Valid() {
		cc.renderForm(c, "publisher_create", "New publisher", row)
		return
	}

	publisher := p.Entity()
	if err := cc.store.CreatePublisher(&publisher); err != nil {
		respondStorageError(c, cc.log, err, "create publisher")
		return
	}
	cc.log.WithField("publisher_id", publisher.ID).Info("Publisher created")
	c.Redirect(http.StatusFound, "/publishers")
}

// AuthorsPage handles GET /authors
func (cc *CatalogController) AuthorsPage(c *gin.Context) {
	authors, err := cc.store.ListAuthors()
	if err != nil {
		respondStorageError(c, cc.log, err, "list authors")
		return
	}
	cc.pages.render(c, http.StatusOK, "authors", gin.H{
		"Title":   "Authors",
		"Authors": authors,
	})
}

// AuthorCreatePage handles GET /authors/create
func (cc *CatalogController) AuthorCreatePage(c *gin.Context) {
	cc.renderForm(c, "author_create", "New author", formset.Single(formset.AuthorFields, nil))
}

// CreateAuthor handles POST /authors/create
func (cc *CatalogController) CreateAuthor(c *gin.Context) {
	row := formset.Single(formset.AuthorFields, postForm(c))
	a := cc.forms.Author(row)
	if !row.Valid() {
		cc.renderForm(c, "author_create", "New author", row)
		return
	}

	author := a.Entity()
	if err := cc.store.CreateAuthor(&author); err != nil {
		respondStorageError(c, cc.log, err, "create author")
		return
	}
	cc.log.WithField("author_id", author.ID).Info("Author created")
	c.Redirect(http.StatusFound, "/authors")
}

// FriendsPage handles GET /friends
func (cc *CatalogController) FriendsPage(c *gin.Context) {
	friends, err := cc.store.ListFriends()
	if err != nil {
		respondStorageError(c, cc.log, err, "list friends")
		return
	}
	cc.pages.render(c, http.StatusOK, "friends", gin.H{
		"Title":   "Friends",
		"Friends": friends,
	})
}

// FriendCreatePage handles GET /friends/create
func (cc *CatalogController) FriendCreatePage(c *gin.Context) {
	cc.renderForm(c, "friend_create", "New friend", formset.Single(formset.FriendFields, nil))
}

// CreateFriend handles POST /friends/create
func (cc *CatalogController) CreateFriend(c *gin.Context) {
	row := formset.Single(formset.FriendFields, postForm(c))
	f := cc.forms.Friend(row)
	if !row.Valid() {
		cc.renderForm(c, "friend_create", "New friend", row)
		return
	}

	friend := f.Entity()
	if err := cc.store.CreateFriend(&friend); err != nil {
		respondStorageError(c, cc.log, err, "create friend")
		return
	}
	cc.log.WithField("friend_id", friend.ID).Info("Friend created")
	c.Redirect(http.StatusFound, "/friends")
}

// renderForm shows a create form, redisplaying submitted values and errors.
func (cc *CatalogController) renderForm(c *gin.Context, name, title string, row *formset.Row) {
	cc.pages.render(c, http.StatusOK, name, gin.H{
		"Title": title,
		"Form":  row,
	})
}

// postForm returns the parsed body values of a form submission.
func postForm(c *gin.Context) url.Values {
	if err := c.Request.ParseForm(); err != nil {
		return url.Values{}
	}
	return c.Request.PostForm
}
