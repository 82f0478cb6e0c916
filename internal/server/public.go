package server

import (
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
)

const imageCacheControl = "public, max-age=3600"

func (s *Server) health(c *gin.Context) {
	checks := gin.H{"app": "ok", "storage": "ok"}
	if err := s.svc.Health(); err != nil {
		checks["storage"] = "error: " + err.Error()
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": checks})
}

func (s *Server) albumPage(c *gin.Context) {
	view, err := s.svc.AlbumView(c.Param("token"), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		s.failLookup(c, err)
		return
	}
	c.HTML(http.StatusOK, "album.html", gin.H{
		"Token":    view.Token,
		"Title":    view.Title,
		"Files":    view.Files,
		"Count":    view.Count,
		"RealPath": view.RealPath,
		"Base":     s.base,
		"Domain":   s.domain,
		"MaxMB":    s.maxBytes >> 20,
	})
}

func (s *Server) serveImage(download bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := s.svc.OpenImage(c.Param("token"), c.Param("filename"))
		if err != nil {
			s.failLookup(c, err)
			return
		}
		c.Header("Cache-Control", imageCacheControl)
		if download {
			c.FileAttachment(p, filepath.Base(p))
			return
		}
		c.File(p)
	}
}

func (s *Server) thumbnail(c *gin.Context) {
	size := 0
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "invalid size")
			return
		}
		size = n
	}
	p, err := s.svc.Thumbnail(c.Param("token"), c.Param("filename"), size)
	if err != nil {
		s.failLookup(c, err)
		return
	}
	c.Header("Cache-Control", imageCacheControl)
	c.Header("Content-Type", "image/jpeg")
	c.File(p)
}
