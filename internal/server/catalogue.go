package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leadloom/leadloom/internal/service"
)

func (s *Server) handleListSources(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	sources, err := s.Services.Sources.ListSources(c.Request.Context(), activeOnly)
	if err != nil {
		s.respondError(c, err, "Failed to list sources")
		return
	}

	c.JSON(http.StatusOK, gin.H{"sources": sources})
}

func (s *Server) handleCreateSource(c *gin.Context) {
	var input service.SourceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	source, err := s.Services.Sources.CreateSource(c.Request.Context(), input)
	if err != nil {
		s.respondError(c, err, "Failed to create source")
		return
	}

	c.JSON(http.StatusCreated, source)
}

func (s *Server) handleGetSource(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	source, err := s.Services.Sources.GetSource(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err, "Failed to get source")
		return
	}

	c.JSON(http.StatusOK, source)
}

func (s *Server) handleUpdateSource(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var input service.SourceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	source, err := s.Services.Sources.UpdateSource(c.Request.Context(), id, input)
	if err != nil {
		s.respondError(c, err, "Failed to update source")
		return
	}

	c.JSON(http.StatusOK, source)
}

func (s *Server) handleDeleteSource(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := s.Services.Sources.DeleteSource(c.Request.Context(), id); err != nil {
		s.respondError(c, err, "Failed to delete source")
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) handleImportSource(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	items, err := s.Services.Content.ImportFromSource(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err, "Failed to import from source")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"imported": len(items),
		"items":    items,
	})
}

func (s *Server) handleListCtas(c *gin.Context) {
	ctas, err := s.Services.Sources.ListCtas(c.Request.Context())
	if err != nil {
		s.respondError(c, err, "Failed to list CTA templates")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ctas": ctas})
}

func (s *Server) handleCreateCta(c *gin.Context) {
	var input service.CtaInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	cta, err := s.Services.Sources.CreateCta(c.Request.Context(), input)
	if err != nil {
		s.respondError(c, err, "Failed to create CTA template")
		return
	}

	c.JSON(http.StatusCreated, cta)
}

func (s *Server) handleGetCta(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	cta, err := s.Services.Sources.GetCta(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err, "Failed to get CTA template")
		return
	}

	c.JSON(http.StatusOK, cta)
}

func (s *Server) handleUpdateCta(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var input service.CtaInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	cta, err := s.Services.Sources.UpdateCta(c.Request.Context(), id, input)
	if err != nil {
		s.respondError(c, err, "Failed to update CTA template")
		return
	}

	c.JSON(http.StatusOK, cta)
}

func (s *Server) handleDeleteCta(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := s.Services.Sources.DeleteCta(c.Request.Context(), id); err != nil {
		s.respondError(c, err, "Failed to delete CTA template")
		return
	}

	c.Status(http.StatusNoContent)
}
