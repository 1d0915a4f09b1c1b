package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/plibrary/internal/entities"
)

type AuditController struct {
	events AuditReader
	log    logrus.FieldLogger
}

func NewAuditController(events AuditReader, log logrus.FieldLogger) *AuditController {
	return &AuditController{
		events: events,
		log:    log,
	}
}

// GetAuditEvents returns paginated audit events as JSON
// GET /api/audit?page=1&limit=25&type=ledger&user_id=2
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	page, limit := pagination(c, 25, 100)
	offset := (page - 1) * limit

	var userID uint
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondBadRequest(c, "invalid user_id")
			return
		}
		userID = uint(id)
	}

	var events []entities.AuditEvent
	var total int64
	var err error

	if eventType := c.Query("type"); eventType != "" {
		events, total, err = ac.events.GetEventsByType(entities.AuditEventType(eventType), userID, limit, offset)
	} else {
		events, total, err = ac.events.GetEvents(userID, limit, offset)
	}

	if err != nil {
		respondInternalError(c, ac.log, err, "load audit events")
		return
	}

	totalPages := (int(total) + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"events":       events,
		"page":         page,
		"limit":        limit,
		"total_pages":  totalPages,
		"total_events": total,
	})
}
