package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/demandboard/backend/internal/leaderboard"
	"github.com/emilythestrangee/demandboard/backend/internal/middleware"
)

// Handler combines all handler types
type Handler struct {
	Auth     *AuthHandler
	Problem  *ProblemHandler
	Solution *SolutionHandler
	User     *UserHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(svc *leaderboard.Service, engine *leaderboard.Engine, resolver *leaderboard.Resolver, log logrus.FieldLogger) *Handler {
	return &Handler{
		Auth:     NewAuthHandler(svc, log),
		Problem:  NewProblemHandler(svc, engine, log),
		Solution: NewSolutionHandler(svc, engine, resolver, log),
		User:     NewUserHandler(svc, log),
	}
}

// respondError maps a domain error to its status code and body.
func respondError(c *gin.Context, log logrus.FieldLogger, err error) {
	var verr *leaderboard.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    verr.Error(),
			"category": "validation",
			"fields":   verr.Fields,
		})
	case errors.Is(err, leaderboard.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "category": "not_found"})
	case errors.Is(err, leaderboard.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "category": "authorization"})
	case errors.Is(err, leaderboard.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "category": "authentication"})
	default:
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "category": "internal"})
	}
}

func badBody(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "category": "validation"})
}

// bindOptionalJSON accepts an empty body as the zero value.
func bindOptionalJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		badBody(c)
		return false
	}
	return true
}

// currentUserID returns the id set by the auth middleware.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "category": "authentication"})
		return uuid.Nil, false
	}
	return u.ID, true
}

// pathID parses the :id route parameter; a malformed id is a 404.
func pathID(c *gin.Context, log logrus.FieldLogger, what string) (uuid.UUID, bool) {
	id, err := leaderboard.ParseID(c.Param("id"), what)
	if err != nil {
		respondError(c, log, err)
		return uuid.Nil, false
	}
	return id, true
}
