package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// exportTimeout bounds an archive export started from the API.
const exportTimeout = 10 * time.Minute

type createTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

type removeTokenRequest struct {
	Mode string `json:"mode"`
}

type titleRequest struct {
	Title string `json:"title"`
}

type namesRequest struct {
	Names []string `json:"names" binding:"required"`
}

type renameRequest struct {
	OldName string `json:"oldName" binding:"required"`
	NewName string `json:"newName" binding:"required"`
}

type deleteRequest struct {
	Name string `json:"name" binding:"required"`
}

type batchRenameRequest struct {
	Names   []string `json:"names" binding:"required"`
	Prefix  string   `json:"prefix" binding:"required"`
	Start   *int     `json:"start"`
	Padding *int     `json:"padding"`
}

type pathRequest struct {
	Path string `json:"path" binding:"required"`
}

type moveRequest struct {
	Path string `json:"path" binding:"required"`
	Dest string `json:"dest"`
}

type reorderRequest struct {
	Parent string `json:"parent"`
	Name   string `json:"name" binding:"required"`
	Before string `json:"before"`
}

// bind decodes the JSON body into req, answering 400 on failure.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// manageRef is the album a manage route addresses: the ?path= folder when
// given, the :token otherwise.
func manageRef(c *gin.Context) string {
	if p := c.Query("path"); p != "" {
		return p
	}
	return c.Param("token")
}

func (s *Server) listTokens(c *gin.Context) {
	tokens, err := s.svc.ListTokens()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "tokens": tokens})
}

func (s *Server) createToken(c *gin.Context) {
	var req createTokenRequest
	if !bind(c, &req) {
		return
	}
	token, err := s.svc.CreateToken(req.Token)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "token": token})
}

func (s *Server) removeToken(c *gin.Context) {
	var req removeTokenRequest
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), exportTimeout)
	defer cancel()

	res, err := s.svc.RemoveToken(ctx, c.Param("token"), req.Mode)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := gin.H{"ok": true, "mode": res.Mode, "token": res.Token}
	if res.ArchivedTo != "" {
		out["archivedTo"] = res.ArchivedTo
	}
	if res.Exported != "" {
		out["exported"] = res.Exported
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) exportToken(c *gin.Context) {
	s.export(c, c.Param("token"))
}

func (s *Server) folderExport(c *gin.Context) {
	var req pathRequest
	if !bind(c, &req) {
		return
	}
	s.export(c, req.Path)
}

func (s *Server) export(c *gin.Context, ref string) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), exportTimeout)
	defer cancel()

	name, err := s.svc.ExportArchive(ctx, ref)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "archive": name})
}

func (s *Server) manageList(c *gin.Context) {
	view, err := s.svc.AlbumContents(manageRef(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "token": view.Token, "title": view.Title, "files": view.Files})
}

func (s *Server) manageMeta(c *gin.Context) {
	var req titleRequest
	if !bind(c, &req) {
		return
	}
	ref := manageRef(c)
	title, err := s.svc.SetTitle(ref, req.Title)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "token": ref, "title": title})
}

func (s *Server) manageOrder(c *gin.Context) {
	var req namesRequest
	if !bind(c, &req) {
		return
	}
	ref := manageRef(c)
	files, err := s.svc.UpdateOrder(ref, req.Names)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "token": ref, "files": files})
}

func (s *Server) manageRename(c *gin.Context) {
	var req renameRequest
	if !bind(c, &req) {
		return
	}
	newName, err := s.svc.RenameImage(manageRef(c), req.OldName, req.NewName)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "old": req.OldName, "new": newName})
}

func (s *Server) manageDelete(c *gin.Context) {
	var req deleteRequest
	if !bind(c, &req) {
		return
	}
	if err := s.svc.DeleteImage(manageRef(c), req.Name); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": req.Name})
}

func (s *Server) manageBatchDelete(c *gin.Context) {
	var req namesRequest
	if !bind(c, &req) {
		return
	}
	results, err := s.svc.BatchDelete(manageRef(c), req.Names)
	if err != nil {
		s.fail(c, err)
		return
	}
	deleted := make([]string, 0, len(results))
	for _, r := range results {
		if r.OK {
			deleted = append(deleted, r.Name)
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": deleted, "count": len(deleted), "results": results})
}

func (s *Server) manageBatchRename(c *gin.Context) {
	var req batchRenameRequest
	if !bind(c, &req) {
		return
	}
	start, padding := 1, 3
	if req.Start != nil {
		start = *req.Start
	}
	if req.Padding != nil {
		padding = *req.Padding
	}
	pairs, err := s.svc.BatchRename(manageRef(c), req.Names, req.Prefix, start, padding)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "renamed": pairs})
}

func (s *Server) folderTree(c *gin.Context) {
	tree, err := s.svc.Tree()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "tree": tree})
}

func (s *Server) folderList(c *gin.Context) {
	contents, err := s.svc.FolderContents(c.Query("path"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"path":       contents.Path,
		"files":      contents.Files,
		"subfolders": contents.Subfolders,
	})
}

func (s *Server) folderCreate(c *gin.Context) {
	var req pathRequest
	if !bind(c, &req) {
		return
	}
	p, err := s.svc.CreateFolder(req.Path)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "path": p})
}

func (s *Server) folderDelete(c *gin.Context) {
	var req pathRequest
	if !bind(c, &req) {
		return
	}
	p, err := s.svc.DeleteFolder(req.Path)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "path": p})
}

func (s *Server) folderMove(c *gin.Context) {
	var req moveRequest
	if !bind(c, &req) {
		return
	}
	p, err := s.svc.MoveFolder(req.Path, req.Dest)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "path": p})
}

func (s *Server) folderReorder(c *gin.Context) {
	var req reorderRequest
	if !bind(c, &req) {
		return
	}
	order, err := s.svc.ReorderFolder(req.Parent, req.Name, req.Before)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "order": order})
}

func (s *Server) listSlugs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "slugs": s.svc.Slugs()})
}

func (s *Server) createSlug(c *gin.Context) {
	var req pathRequest
	if !bind(c, &req) {
		return
	}
	slug, err := s.svc.GetOrCreateSlug(req.Path)
	if err != nil {
		s.fail(c, err)
		return
	}
	p, _ := s.svc.ResolveSlug(slug)
	c.JSON(http.StatusOK, gin.H{"ok": true, "slug": slug, "path": p})
}

func (s *Server) resolveSlug(c *gin.Context) {
	slug := c.Param("slug")
	p, ok := s.svc.ResolveSlug(slug)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"ok": false, "error": "slug not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "slug": slug, "path": p})
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.svc.Stats()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) analytics(c *gin.Context) {
	limit := 1000
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "invalid limit")
			return
		}
		limit = n
	}
	includeLocal := false
	if raw := c.Query("include_local"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "invalid include_local")
			return
		}
		includeLocal = b
	}
	report, err := s.svc.Analytics(limit, includeLocal)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
