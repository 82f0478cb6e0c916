package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"albumd/internal/album"
)

// statusOf maps an error kind to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, album.ErrTooLarge), isBodyTooLarge(err):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, album.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, album.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, album.ErrInvalidInput),
		errors.Is(err, album.ErrPathEscape),
		errors.Is(err, album.ErrUnsupported):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail aborts the request with the status of err. Server errors are logged
// and their details withheld from the client.
func (s *Server) fail(c *gin.Context, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"ok": false, "error": msg})
}

// badRequest aborts with 400 for malformed request bodies.
func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"ok": false, "error": msg})
}

// failLookup reports a failed public album lookup. Repeated misses from one
// client are answered with 429 so tokens cannot be enumerated.
func (s *Server) failLookup(c *gin.Context, err error) {
	if s.lookups != nil && statusOf(err) == http.StatusNotFound {
		if !s.lookups.Allow(c.ClientIP(), s.clock.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"ok": false, "error": "too many requests"})
			return
		}
	}
	s.fail(c, err)
}
