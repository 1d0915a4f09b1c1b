package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/plibrary/internal/auth"
	"github.com/mrlokans/plibrary/internal/ledger"
)

// LedgerController applies copy count and lending changes posted from the
// book and lend/return pages. Unknown ids are ignored: the user is sent back
// to the page either way.
type LedgerController struct {
	ledger Ledger
	log    logrus.FieldLogger
}

func NewLedgerController(l Ledger, log logrus.FieldLogger) *LedgerController {
	return &LedgerController{
		ledger: l,
		log:    log,
	}
}

// Increment handles POST /index/book_increment
func (lc *LedgerController) Increment(c *gin.Context) {
	bookID, ok := parseFormID(c.PostForm("id"))
	if !ok {
		c.Redirect(http.StatusFound, "/index")
		return
	}
	_, err := lc.ledger.Increment(auth.GetUserID(c), bookID)
	lc.finish(c, err, "/index")
}

// Decrement handles POST /index/book_decrement
func (lc *LedgerController) Decrement(c *gin.Context) {
	bookID, ok := parseFormID(c.PostForm("id"))
	if !ok {
		c.Redirect(http.StatusFound, "/index")
		return
	}
	_, err := lc.ledger.Decrement(auth.GetUserID(c), bookID)
	lc.finish(c, err, "/index")
}

// LendOrReturn handles POST /lend_return/do. An absent or empty fid returns
// the book; a malformed fid matches no friend.
func (lc *LedgerController) LendOrReturn(c *gin.Context) {
	bookID, ok := parseFormID(c.PostForm("id"))
	if !ok {
		c.Redirect(http.StatusFound, "/lend_return")
		return
	}

	var friendID *uint
	if raw := c.PostForm("fid"); raw != "" {
		id, ok := parseFormID(raw)
		if !ok {
			lc.log.WithField("fid", raw).Debug("Malformed friend id, ignoring")
			c.Redirect(http.StatusFound, "/lend_return")
			return
		}
		friendID = &id
	}

	_, err := lc.ledger.LendOrReturn(auth.GetUserID(c), bookID, friendID)
	lc.finish(c, err, "/lend_return")
}

func (lc *LedgerController) finish(c *gin.Context, err error, location string) {
	if err != nil && !errors.Is(err, ledger.ErrBookNotFound) && !errors.Is(err, ledger.ErrFriendNotFound) {
		respondStorageError(c, lc.log, err, "ledger update")
		return
	}
	c.Redirect(http.StatusFound, location)
}
