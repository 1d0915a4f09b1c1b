package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type BooksController struct {
	reader BookLister
	log    logrus.FieldLogger
}

func NewBooksController(reader BookLister, log logrus.FieldLogger) *BooksController {
	return &BooksController{
		reader: reader,
		log:    log,
	}
}

// GetAllBooks handles GET /api/books
func (controller *BooksController) GetAllBooks(c *gin.Context) {
	books, err := controller.reader.ListBooks()
	if err != nil {
		respondInternalError(c, controller.log, err, "list books")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}
