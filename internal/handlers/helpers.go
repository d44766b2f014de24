package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"reclaim/internal/inbox"
	"reclaim/internal/observability"
)

func requestIDFromContext(c *gin.Context) string {
	if id := observability.RequestID(c); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// optionalID parses a positive integer form/query value. ok is false when
// the value is present but malformed.
func optionalID(raw string) (id int, present bool, ok bool) {
	if raw == "" {
		return 0, false, true
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, true, false
	}
	return id, true, true
}

// writeError maps inbox errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	var verr *inbox.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, inbox.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, inbox.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "item or recipient not found"})
	case errors.Is(err, inbox.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "recipient does not accept messages"})
	default:
		log.Printf("request failed request_id=%s path=%s: %v", requestIDFromContext(c), c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
