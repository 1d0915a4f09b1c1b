package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, log logrus.FieldLogger, err error, context string) {
	log.WithError(err).WithField("context", context).Error("Internal error")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondStorageError is respondInternalError for HTML pages and form posts.
func respondStorageError(c *gin.Context, log logrus.FieldLogger, err error, context string) {
	log.WithError(err).WithFields(logrus.Fields{
		"context": context,
		"path":    c.Request.URL.Path,
	}).Error("Storage failure")
	c.String(http.StatusInternalServerError, "internal server error")
}

// --- Redirects ---

// redirectTo answers with a 302 to a fixed location. Also used as the GET
// handler of action endpoints, which never mutate on GET.
func redirectTo(location string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Redirect(http.StatusFound, location)
	}
}

// --- Parameter Parsing ---

// parseFormID reads a positive integer id. Missing, malformed and zero ids
// all report false; callers treat them like an unknown id.
func parseFormID(raw string) (uint, bool) {
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// pagination reads page and limit query values, clamping limit to max.
func pagination(c *gin.Context, defaultLimit, max int) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > max {
		limit = defaultLimit
	}
	return page, limit
}
