package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/leadloom/leadloom/internal/service"
)

type loginRequest struct {
	Code string `json:"code" binding:"required"`
}

type listNotificationsQuery struct {
	Unread bool `form:"unread"`
	Limit  int  `form:"limit"`
}

type recentErrorsQuery struct {
	Source     string `form:"source"`
	Unresolved bool   `form:"unresolved"`
	Limit      int    `form:"limit"`
}

func (s *Server) handleLogin(c *gin.Context) {
	if !s.Services.Auth.Enabled() {
		c.JSON(http.StatusOK, gin.H{"message": "Authentication is disabled"})
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	token, err := s.Services.Auth.Login(c.Request.Context(), req.Code)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCode) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid verification code"})
			return
		}
		s.respondError(c, err, "Failed to create session")
		return
	}

	maxAge := int(s.Services.Auth.SessionTTL().Seconds())
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(service.SessionCookie, token, maxAge, "/", "", s.Config.Server.CertFile != "", true)
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": maxAge,
	})
}

func (s *Server) handleLogout(c *gin.Context) {
	token, err := c.Cookie(service.SessionCookie)
	if err != nil || token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if token != "" {
		if err := s.Services.Auth.Logout(c.Request.Context(), token); err != nil {
			s.respondError(c, err, "Failed to end session")
			return
		}
	}

	c.SetCookie(service.SessionCookie, "", -1, "/", "", s.Config.Server.CertFile != "", true)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListNotifications(c *gin.Context) {
	var query listNotificationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, err)
		return
	}

	notifications, err := s.Services.Notifications.List(c.Request.Context(), query.Unread, query.Limit)
	if err != nil {
		s.respondError(c, err, "Failed to list notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

func (s *Server) handleMarkNotificationRead(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := s.Services.Notifications.MarkRead(c.Request.Context(), id); err != nil {
		s.respondError(c, err, "Failed to mark notification read")
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) handleRecentErrors(c *gin.Context) {
	var query recentErrorsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, err)
		return
	}
	limit := s.Config.Monitoring.MaxErrorsPerPage
	if query.Limit > 0 && query.Limit < limit {
		limit = query.Limit
	}

	errorLogs, err := s.Services.Monitoring.GetRecentErrors(c.Request.Context(), service.ErrorFilter{
		Source:         query.Source,
		UnresolvedOnly: query.Unresolved,
		Limit:          limit,
	})
	if err != nil {
		s.respondError(c, err, "Failed to list errors")
		return
	}

	c.JSON(http.StatusOK, gin.H{"errors": errorLogs})
}
