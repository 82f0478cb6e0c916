package server

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDKey = "requestID"
	keyHeader    = "X-Upload-Key"
	// multipartSlack covers the multipart framing around an uploaded file.
	multipartSlack = 1 << 20

	defaultMaxImportBytes = 1 << 30
)

// requestID tags every request with a random ID for the request log.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// noReferrer keeps album URLs out of Referer headers sent to third parties.
func noReferrer() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Referrer-Policy", "no-referrer")
		c.Next()
	}
}

// requireKey checks the admin key from the X-Upload-Key header. Read-only
// requests may pass it as the key query parameter instead.
func (s *Server) requireKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(keyHeader)
		if key == "" && c.Request.Method == http.MethodGet {
			key = c.Query("key")
		}
		if s.adminKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.adminKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid key"})
			return
		}
		c.Next()
	}
}

// throttleUploads applies the per-IP token bucket to upload routes.
func (s *Server) throttleUploads() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.uploads != nil && !s.uploads.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"ok": false, "error": "too many requests"})
			return
		}
		c.Next()
	}
}

// bodyLimit rejects request bodies larger than maxBytes with 413.
func (s *Server) bodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"ok":    false,
				"error": "request too large (max " + humanize.IBytes(uint64(maxBytes)) + ")",
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// isBodyTooLarge reports whether err came from a MaxBytesReader.
func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
