package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leadloom/leadloom/internal/service"
)

func statusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidCode):
		return http.StatusUnauthorized
	case service.IsValidationError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with its mapped status. Server-side failures are
// logged and reported with message only.
func (s *Server) respondError(c *gin.Context, err error, message string) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		s.Logger.Error(message, zap.Error(err), zap.String("path", c.FullPath()))
		c.JSON(code, gin.H{"error": message})
		return
	}

	body := gin.H{"error": err.Error()}
	var transitionErr *service.TransitionError
	if errors.As(err, &transitionErr) {
		body["allowed"] = transitionErr.Allowed
	}
	c.JSON(code, body)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, fmt.Errorf("%w: id %q", service.ErrInvalidParameter, c.Param("id")))
		return 0, false
	}
	return uint(id), true
}
