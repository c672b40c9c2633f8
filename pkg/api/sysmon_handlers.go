// forge/pkg/api/sysmon_handlers.go

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"threathawk/forge/pkg/logging"
	"threathawk/forge/pkg/session"
	"threathawk/forge/pkg/sysmon"
)

type importRequest struct {
	Fragment string `json:"fragment" binding:"required"`
}

type mergeRequest struct {
	Document string `json:"document" binding:"required"`
	Fragment string `json:"fragment" binding:"required"`
}

type moveRequest struct {
	From   *int   `json:"from" binding:"required,min=0"`
	Target string `json:"target" binding:"required"`
}

func (s *Server) getSysmon(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"text":  s.sysmon.Text(),
		"group": s.sysmon.Group(),
		"stats": s.sysmon.Stats(),
	})
}

func (s *Server) putSysmon(c *gin.Context) {
	var g sysmon.RuleGroup
	if err := c.ShouldBindJSON(&g); err != nil {
		badRequest(c, err)
		return
	}
	s.sysmon.Replace(g)
	c.JSON(http.StatusOK, gin.H{"text": s.sysmon.Text()})
}

// renderSysmon renders a posted group without touching the session.
func (s *Server) renderSysmon(c *gin.Context) {
	var g sysmon.RuleGroup
	if err := c.ShouldBindJSON(&g); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": sysmon.Generate(g)})
}

func (s *Server) importSysmon(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	fragment := req.Fragment
	if s.transformer != nil {
		out, err := s.transformer.TransformText(fragment, s.transformTimeout)
		if err != nil {
			logging.LogError(logging.Logger, err)
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		fragment = out
	}

	block, ok := s.sysmon.Import(fragment)
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": session.ImportFailedNotice,
			"text":  s.sysmon.Text(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"block": block, "text": s.sysmon.Text()})
}

// mergeSysmon splices a fragment into a posted document. The session is not
// involved; the caller owns the document.
func (s *Server) mergeSysmon(c *gin.Context) {
	var req mergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	text, err := sysmon.MergeFragment(req.Document, req.Fragment)
	if errors.Is(err, sysmon.ErrNoInsertionPoint) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

func (s *Server) moveSysmonBlock(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	err := s.sysmon.Apply(func(g *sysmon.RuleGroup) error {
		return g.MoveBlock(*req.From, req.Target)
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": s.sysmon.Text()})
}

func (s *Server) getSysmonFragment(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be a number"})
		return
	}
	frag, err := s.sysmon.Fragment(index)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.String(http.StatusOK, frag)
}

func (s *Server) sysmonCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"eventTypes":     sysmon.EventTypes,
		"conditionTypes": sysmon.ConditionTypes,
	})
}

func (s *Server) lintSysmon(c *gin.Context) {
	var g sysmon.RuleGroup
	if err := c.ShouldBindJSON(&g); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issues": s.linter.LintRuleGroup(g)})
}
