package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"albumd/internal/album"
	"albumd/internal/service"
)

func (s *Server) upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			s.fail(c, err)
			return
		}
		badRequest(c, "missing file")
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(c, album.IOError("opening upload", err))
		return
	}
	defer f.Close()

	token := c.Param("token")
	res, err := s.svc.Upload(token, f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"token": res.Token,
		"file":  res.File,
		"size":  res.Size,
		"album": s.base + "/d/" + res.Token,
	})
}

func (s *Server) zipImport(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			s.fail(c, err)
			return
		}
		badRequest(c, "missing file")
		return
	}
	if !strings.HasSuffix(strings.ToLower(fh.Filename), ".zip") {
		badRequest(c, "only .zip files allowed")
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(c, album.IOError("opening upload", err))
		return
	}
	defer f.Close()

	report, err := s.svc.ImportZip(f, fh.Size, c.PostForm("destination"), c.PostForm("folder_name"))
	s.importResponse(c, report, err)
}

func (s *Server) folderImport(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		if isBodyTooLarge(err) {
			s.fail(c, err)
			return
		}
		badRequest(c, "invalid multipart form")
		return
	}
	headers := form.File["files"]
	paths := form.Value["paths"]
	if len(headers) == 0 {
		badRequest(c, "no files")
		return
	}
	if len(paths) != len(headers) {
		badRequest(c, "files and paths count mismatch")
		return
	}

	files := make([]service.ImportFile, len(headers))
	for i, fh := range headers {
		files[i] = service.ImportFile{
			Path: paths[i],
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		}
	}
	report, err := s.svc.ImportFolder(files, c.PostForm("destination"), c.PostForm("folder_name"))
	s.importResponse(c, report, err)
}

func (s *Server) importResponse(c *gin.Context, report *album.ImportReport, err error) {
	if err != nil {
		if report != nil && statusOf(err) == http.StatusBadRequest {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error(), "report": report})
			return
		}
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "imported": report.Imported, "report": report})
}
