// Package server exposes the album service over HTTP with gin: the public
// album pages and image routes, and the key-protected admin API.
package server

import (
	"embed"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"albumd/internal/album"
	"albumd/internal/ratelimit"
	"albumd/internal/service"
)

//go:embed templates/album.html
var templates embed.FS

// robotsTxt keeps crawlers away from album pages and downloads.
const robotsTxt = "User-agent: *\nDisallow: /d/\nDisallow: /f/\n"

// Options configures a Server.
type Options struct {
	Service *service.AlbumService
	Logger  *zap.Logger
	Clock   album.Clock

	AdminKey    string
	BasePath    string
	SiteDomain  string
	CORSOrigins []string
	// MaxUploadBytes bounds a single uploaded image.
	MaxUploadBytes int64
	// MaxImportBytes bounds a whole zip or folder import request.
	// Zero means defaultMaxImportBytes.
	MaxImportBytes int64

	// Lookups throttles repeated not-found album lookups per client IP.
	// Nil disables the throttle.
	Lookups *ratelimit.Window
	// Uploads throttles upload and import requests per client IP.
	// Nil disables the throttle.
	Uploads *ratelimit.Bucket
}

// Server holds the gin engine and the collaborators its handlers use.
type Server struct {
	svc       *service.AlbumService
	logger    *zap.Logger
	clock     album.Clock
	adminKey  string
	base      string
	domain    string
	maxBytes  int64
	importMax int64
	lookups   *ratelimit.Window
	uploads   *ratelimit.Bucket
	engine    *gin.Engine
}

// New builds the router. The returned server is ready to be mounted with
// Handler.
func New(opts Options) *Server {
	s := &Server{
		svc:       opts.Service,
		logger:    opts.Logger,
		clock:     opts.Clock,
		adminKey:  opts.AdminKey,
		base:      strings.TrimRight(opts.BasePath, "/"),
		domain:    opts.SiteDomain,
		maxBytes:  opts.MaxUploadBytes,
		importMax: opts.MaxImportBytes,
		lookups:   opts.Lookups,
		uploads:   opts.Uploads,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.clock == nil {
		s.clock = album.RealClock{}
	}
	if s.importMax <= 0 {
		s.importMax = defaultMaxImportBytes
	}

	router := gin.New()
	router.SetHTMLTemplate(template.Must(template.ParseFS(templates, "templates/album.html")))
	router.MaxMultipartMemory = 8 << 20
	router.HandleMethodNotAllowed = true

	router.Use(
		ginzap.RecoveryWithZap(s.logger, true),
		requestID(),
		ginzap.GinzapWithConfig(s.logger, &ginzap.Config{
			TimeFormat: time.RFC3339,
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.URL.Path == s.base+"/health"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}
				if v := c.GetString(requestIDKey); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}
				return fields
			},
		}),
		noReferrer(),
	)
	if len(opts.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  opts.CORSOrigins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", keyHeader},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "not found"})
	})

	s.routes(router.Group(s.base))
	s.engine = router
	return s
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes(root *gin.RouterGroup) {
	// GET /health			-> Storage writability check
	root.GET("/health", s.health)

	// GET /robots.txt		-> Keeps crawlers off albums
	root.GET("/robots.txt", func(c *gin.Context) {
		c.String(http.StatusOK, robotsTxt)
	})

	// GET /d/:token			-> Album page for a token or slug
	root.GET("/d/:token", s.albumPage)
	root.GET("/album/:token", s.albumPage)

	// GET /d/:token/:filename	-> Image served inline
	root.GET("/d/:token/:filename", s.serveImage(false))

	// GET /f/:token/:filename	-> Image served as a download
	root.GET("/f/:token/:filename", s.serveImage(true))

	// GET /t/:token/:filename	-> Cached JPEG preview, ?size= bounds the longest edge
	root.GET("/t/:token/:filename", s.thumbnail)

	api := root.Group("/api", s.requireKey())

	tokens := api.Group("/tokens")
	{
		// GET /api/tokens			-> Flat token albums with counts
		tokens.GET("", s.listTokens)

		// POST /api/tokens			-> Creates a token album
		tokens.POST("", s.createToken)

		// POST /api/tokens/:token/remove	-> Archives or deletes a token album
		tokens.POST("/:token/remove", s.removeToken)

		// POST /api/tokens/:token/export	-> Exports a token album to the archive vault
		tokens.POST("/:token/export", s.exportToken)
	}

	// Manage routes address a token; a ?path= query addresses a folder album instead.
	manage := api.Group("/manage")
	{
		manage.GET("/:token", s.manageList)
		manage.POST("/:token/meta", s.manageMeta)
		manage.POST("/:token/order", s.manageOrder)
		manage.POST("/:token/rename", s.manageRename)
		manage.POST("/:token/delete", s.manageDelete)
		manage.POST("/:token/batch-delete", s.manageBatchDelete)
		manage.POST("/:token/batch-rename", s.manageBatchRename)
	}

	upload := api.Group("/upload", s.throttleUploads())
	{
		// POST /api/upload/zip-import		-> Imports a zip of images
		upload.POST("/zip-import", s.bodyLimit(s.importMax), s.zipImport)

		// POST /api/upload/folder-import	-> Imports files picked from a local folder
		upload.POST("/folder-import", s.bodyLimit(s.importMax), s.folderImport)

		// POST /api/upload/:token		-> Uploads one image
		upload.POST("/:token", s.bodyLimit(s.maxBytes+multipartSlack), s.upload)
	}

	folders := api.Group("/folders")
	{
		folders.GET("/tree", s.folderTree)
		folders.GET("/list", s.folderList)
		folders.POST("/create", s.folderCreate)
		folders.POST("/delete", s.folderDelete)
		folders.POST("/move", s.folderMove)
		folders.POST("/reorder", s.folderReorder)
		folders.POST("/export", s.folderExport)
	}

	slugs := api.Group("/slugs")
	{
		// GET /api/slugs		-> Whole slug table
		slugs.GET("", s.listSlugs)

		// POST /api/slugs		-> Slug for a folder, created on first use
		slugs.POST("", s.createSlug)

		// GET /api/slugs/:slug	-> Folder path behind a slug
		slugs.GET("/:slug", s.resolveSlug)
	}

	// GET /api/stats		-> Per-album view counters
	api.GET("/stats", s.stats)

	// GET /api/analytics	-> Visit log aggregates, ?include_local=true keeps private IPs
	api.GET("/analytics", s.analytics)
}
