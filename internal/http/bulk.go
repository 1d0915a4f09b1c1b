package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/plibrary/internal/auth"
	"github.com/mrlokans/plibrary/internal/formset"
)

// Audit actions of the bulk entry pages
const (
	ActionAuthorsCreateMany      = "authors_create_many"
	ActionBooksAuthorsCreateMany = "books_authors_create_many"
)

// BulkController serves the formset pages that create many authors, or
// authors and books together, in one submission.
type BulkController struct {
	processor BulkCreator
	recorder  CatalogRecorder
	observer  BulkObserver
	pages     *pages
	log       logrus.FieldLogger
}

// NewBulkController creates a BulkController. recorder and observer may be nil.
func NewBulkController(processor BulkCreator, recorder CatalogRecorder, observer BulkObserver, profiles ProfileService, log logrus.FieldLogger) *BulkController {
	return &BulkController{
		processor: processor,
		recorder:  recorder,
		observer:  observer,
		pages:     &pages{profiles: profiles},
		log:       log,
	}
}

// AuthorsPage handles GET /authors/create_many
func (bc *BulkController) AuthorsPage(c *gin.Context) {
	bc.render(c, "manage_authors", bc.processor.BlankAuthors())
}

// CreateAuthors handles POST /authors/create_many
func (bc *BulkController) CreateAuthors(c *gin.Context) {
	res, err := bc.processor.CreateAuthors(postForm(c))
	bc.finish(c, ActionAuthorsCreateMany, "manage_authors", res, err)
}

// AuthorsAndBooksPage handles GET /books_authors/create_many
func (bc *BulkController) AuthorsAndBooksPage(c *gin.Context) {
	bc.render(c, "manage_books_authors", bc.processor.BlankAuthorsAndBooks())
}

// CreateAuthorsAndBooks handles POST /books_authors/create_many
func (bc *BulkController) CreateAuthorsAndBooks(c *gin.Context) {
	res, err := bc.processor.CreateAuthorsAndBooks(postForm(c))
	bc.finish(c, ActionBooksAuthorsCreateMany, "manage_books_authors", res, err)
}

func (bc *BulkController) finish(c *gin.Context, action, template string, res *formset.Result, err error) {
	userID := auth.GetUserID(c)

	if err != nil {
		// Rows saved before the failure stay saved
		bc.count(res)
		if bc.recorder != nil {
			bc.recorder.LogBulkCreate(userID, action, created(res), err)
		}
		respondStorageError(c, bc.log, err, action)
		return
	}

	if !res.Valid() {
		bc.log.WithFields(logrus.Fields{
			"action":  action,
			"user_id": userID,
		}).Debug("Bulk submission rejected")
		bc.render(c, template, res)
		return
	}

	bc.count(res)
	if bc.recorder != nil {
		bc.recorder.LogBulkCreate(userID, action, res.Created, nil)
	}
	bc.log.WithFields(logrus.Fields{
		"action":  action,
		"user_id": userID,
		"authors": res.Created[formset.AuthorsPrefix],
		"books":   res.Created[formset.BooksPrefix],
	}).Info("Bulk submission saved")

	c.Redirect(http.StatusFound, "/authors")
}

func (bc *BulkController) count(res *formset.Result) {
	if bc.observer == nil {
		return
	}
	for kind, n := range created(res) {
		bc.observer.RecordBulkCreated(kind, n)
	}
}

func (bc *BulkController) render(c *gin.Context, template string, res *formset.Result) {
	bc.pages.render(c, http.StatusOK, template, gin.H{
		"Title":   "Bulk entry",
		"Authors": res.Authors,
		"Books":   res.Books,
	})
}

func created(res *formset.Result) map[string]int {
	if res == nil || res.Created == nil {
		return map[string]int{}
	}
	return res.Created
}
