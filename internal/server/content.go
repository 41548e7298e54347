package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leadloom/leadloom/internal/models"
	"github.com/leadloom/leadloom/internal/service"
)

type listItemsQuery struct {
	Status    string `form:"status"`
	Persona   string `form:"persona"`
	Industry  string `form:"industry"`
	Objective string `form:"objective"`
	SourceID  *uint  `form:"source_id"`
	Limit     int    `form:"limit"`
}

type updateContentRequest struct {
	Content *string `json:"content"`
}

type transitionRequest struct {
	Status      string     `json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Note        string     `json:"note"`
}

func (s *Server) handleListItems(c *gin.Context) {
	var query listItemsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, err)
		return
	}

	items, err := s.Services.Content.ListItems(c.Request.Context(), service.ContentFilter{
		Status:    query.Status,
		Persona:   query.Persona,
		Industry:  query.Industry,
		Objective: query.Objective,
		SourceID:  query.SourceID,
		Limit:     query.Limit,
	})
	if err != nil {
		s.respondError(c, err, "Failed to list content items")
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) handleCreateManual(c *gin.Context) {
	var params service.CreateManualParams
	if err := c.ShouldBindJSON(&params); err != nil {
		badRequest(c, err)
		return
	}

	item, err := s.Services.Content.CreateManual(c.Request.Context(), params)
	if err != nil {
		s.respondError(c, err, "Failed to create content item")
		return
	}

	c.JSON(http.StatusCreated, item)
}

func (s *Server) handleGenerateIdea(c *gin.Context) {
	var params service.GenerateIdeaParams
	if err := c.ShouldBindJSON(&params); err != nil {
		badRequest(c, err)
		return
	}

	item, err := s.Services.Content.GenerateIdea(c.Request.Context(), params)
	if err != nil {
		s.respondError(c, err, "Failed to generate idea")
		return
	}

	c.JSON(http.StatusCreated, item)
}

func (s *Server) handleGetItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	item, err := s.Services.Content.GetItem(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err, "Failed to get content item")
		return
	}
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("content item %d not found", id)})
		return
	}

	c.JSON(http.StatusOK, item)
}

func (s *Server) handleUpdateContent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req updateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Content == nil {
		badRequest(c, fmt.Errorf("%w: content", service.ErrMissingParameter))
		return
	}

	item, err := s.Services.Content.UpdateContent(c.Request.Context(), id, *req.Content)
	if err != nil {
		s.respondError(c, err, "Failed to update content")
		return
	}

	c.JSON(http.StatusOK, item)
}

func (s *Server) handleTransition(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	to, err := models.ParseContentStatus(req.Status)
	if err != nil {
		badRequest(c, fmt.Errorf("%w: %w", service.ErrInvalidParameter, err))
		return
	}

	item, err := s.Services.Content.Transition(c.Request.Context(), id, to, service.TransitionOptions{
		ScheduledAt: req.ScheduledAt,
		Note:        req.Note,
	})
	if err != nil {
		s.respondError(c, err, "Failed to transition content item")
		return
	}

	c.JSON(http.StatusOK, item)
}

func (s *Server) handleSendNow(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	item, err := s.Services.Publish.SendNow(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err, "Failed to send content item")
		return
	}

	c.JSON(http.StatusOK, item)
}

func (s *Server) handleDeleteItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := s.Services.Content.DeleteItem(c.Request.Context(), id); err != nil {
		s.respondError(c, err, "Failed to delete content item")
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) handleGetHistory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	item, err := s.Services.Content.GetItem(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err, "Failed to get content item")
		return
	}
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("content item %d not found", id)})
		return
	}

	history, err := s.Services.Content.GetHistory(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err, "Failed to get content history")
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}

func (s *Server) handleProcessDue(c *gin.Context) {
	result, err := s.Services.Scheduler.RunOnce(c.Request.Context())
	if err != nil {
		s.respondError(c, err, "Failed to process due items")
		return
	}

	s.Logger.Info("Processed due items on request",
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped))
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleAnalytics(c *gin.Context) {
	summary, err := s.Services.Analytics.Summary(c.Request.Context())
	if err != nil {
		s.respondError(c, err, "Failed to compute analytics")
		return
	}

	c.JSON(http.StatusOK, summary)
}
