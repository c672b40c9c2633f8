// forge/pkg/api/yarax_handlers.go

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"threathawk/forge/pkg/yarax"
)

type sectionMoveRequest struct {
	From   *int          `json:"from" binding:"required,min=0"`
	Target yarax.Section `json:"target" binding:"required"`
}

type tagRequest struct {
	Tag string `json:"tag"`
}

func (s *Server) getYara(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"text":  s.yara.Text(),
		"rule":  s.yara.Rule(),
		"stats": s.yara.Stats(),
	})
}

func (s *Server) putYara(c *gin.Context) {
	var r yarax.Rule
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c, err)
		return
	}
	if len(r.Order) == 0 {
		r.Order = yarax.DefaultSectionOrder()
	}
	s.yara.Replace(r)
	c.JSON(http.StatusOK, gin.H{"text": s.yara.Text()})
}

func (s *Server) renderYara(c *gin.Context) {
	var r yarax.Rule
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c, err)
		return
	}
	if len(r.Order) == 0 {
		r.Order = yarax.DefaultSectionOrder()
	}
	c.JSON(http.StatusOK, gin.H{"text": yarax.Generate(r)})
}

func (s *Server) moveYaraSection(c *gin.Context) {
	var req sectionMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	err := s.yara.Apply(func(r *yarax.Rule) error {
		return r.MoveSection(*req.From, req.Target)
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": s.yara.Rule().Order, "text": s.yara.Text()})
}

func (s *Server) addYaraTag(c *gin.Context) {
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	err := s.yara.Apply(func(r *yarax.Rule) error {
		return r.AddTag(req.Tag)
	})
	switch {
	case errors.Is(err, yarax.ErrDuplicateTag):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"tags": s.yara.Rule().Header.Tags, "text": s.yara.Text()})
	}
}

func (s *Server) yaraKeywords(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"modules": yarax.Modules})
}

// yaraScanCommand fills unset paths from the defaults.
func (s *Server) yaraScanCommand(c *gin.Context) {
	opts := yarax.DefaultScanOptions()
	if err := c.ShouldBindJSON(&opts); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"command": yarax.ScanCommand(opts)})
}

func (s *Server) lintYara(c *gin.Context) {
	var r yarax.Rule
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issues": s.linter.LintRule(r)})
}
