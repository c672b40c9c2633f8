// forge/pkg/api/document_handlers.go

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"threathawk/forge/pkg/logging"
	"threathawk/forge/pkg/store"
)

type documentRequest struct {
	Content string `json:"content"`
}

func (s *Server) documentKind(c *gin.Context) (store.Kind, bool) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "document store not configured"})
		return "", false
	}
	kind := store.Kind(c.Param("kind"))
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown document kind", "kind": string(kind)})
		return "", false
	}
	return kind, true
}

func (s *Server) listDocuments(c *gin.Context) {
	kind, ok := s.documentKind(c)
	if !ok {
		return
	}
	names, err := s.store.ListRuleFiles(kind)
	if err != nil {
		logging.LogError(logging.Logger, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"kind": kind, "names": names, "total": len(names)})
}

func (s *Server) getDocument(c *gin.Context) {
	kind, ok := s.documentKind(c)
	if !ok {
		return
	}
	f, err := s.store.GetRuleFile(kind, c.Param("name"))
	if errors.Is(err, store.ErrDocumentNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	} else if err != nil {
		logging.LogError(logging.Logger, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, f)
}

// putDocument saves the posted content, or the current session render of that
// kind when the body has no content.
func (s *Server) putDocument(c *gin.Context) {
	kind, ok := s.documentKind(c)
	if !ok {
		return
	}
	var req documentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	content := req.Content
	if content == "" {
		switch kind {
		case store.KindSysmon:
			content = s.sysmon.Text()
		case store.KindYaraX:
			content = s.yara.Text()
		}
	}

	f := store.RuleFile{Name: c.Param("name"), Kind: kind, Content: content}
	if err := s.store.SaveAndPublishRuleFile(f); err != nil {
		logging.LogError(logging.Logger, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	saved, err := s.store.GetRuleFile(kind, f.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, saved)
}
