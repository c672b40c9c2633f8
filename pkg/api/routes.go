// forge/pkg/api/routes.go

// Package api exposes the builder sessions, the compiler and the document store
// over HTTP.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"threathawk/forge/pkg/logging"
	"threathawk/forge/pkg/session"
	"threathawk/forge/pkg/store"
	"threathawk/forge/pkg/validator"
)

// Transformer rewrites drafted text before it is imported.
type Transformer interface {
	TransformText(text string, timeout time.Duration) (string, error)
}

type Options struct {
	Sysmon           *session.SysmonSession
	Yara             *session.YaraSession
	Hub              *session.PreviewHub
	Store            store.Store
	Transformer      Transformer
	TransformTimeout time.Duration
}

type Server struct {
	engine           *gin.Engine
	sysmon           *session.SysmonSession
	yara             *session.YaraSession
	hub              *session.PreviewHub
	store            store.Store
	linter           *validator.Linter
	transformer      Transformer
	transformTimeout time.Duration
}

func NewServer(opts Options) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger())

	s := &Server{
		engine:           engine,
		sysmon:           opts.Sysmon,
		yara:             opts.Yara,
		hub:              opts.Hub,
		store:            opts.Store,
		linter:           validator.New(),
		transformer:      opts.Transformer,
		transformTimeout: opts.TransformTimeout,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.health)

	sysmon := s.engine.Group("/sysmon")
	{
		sysmon.GET("", s.getSysmon)
		sysmon.PUT("", s.putSysmon)
		sysmon.POST("/render", s.renderSysmon)
		sysmon.POST("/import", s.importSysmon)
		sysmon.POST("/merge", s.mergeSysmon)
		sysmon.POST("/blocks/move", s.moveSysmonBlock)
		sysmon.GET("/fragments/:index", s.getSysmonFragment)
		sysmon.GET("/catalog", s.sysmonCatalog)
	}

	yara := s.engine.Group("/yarax")
	{
		yara.GET("", s.getYara)
		yara.PUT("", s.putYara)
		yara.POST("/render", s.renderYara)
		yara.POST("/sections/move", s.moveYaraSection)
		yara.POST("/tags", s.addYaraTag)
		yara.GET("/keywords", s.yaraKeywords)
		yara.POST("/scan-command", s.yaraScanCommand)
	}

	docs := s.engine.Group("/documents")
	{
		docs.GET("/:kind", s.listDocuments)
		docs.GET("/:kind/:name", s.getDocument)
		docs.PUT("/:kind/:name", s.putDocument)
	}

	lint := s.engine.Group("/lint")
	{
		lint.POST("/sysmon", s.lintSysmon)
		lint.POST("/yarax", s.lintYara)
	}

	if s.hub != nil {
		s.engine.GET("/preview", gin.WrapH(s.hub))
	}
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run blocks serving on port.
func (s *Server) Run(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logging.Logger.Info().Str("addr", addr).Msg("API server starting")
	return s.engine.Run(addr)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.Logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request handled")
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
}
