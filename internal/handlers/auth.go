package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/demandboard/backend/internal/leaderboard"
	"github.com/emilythestrangee/demandboard/backend/internal/middleware"
	"github.com/emilythestrangee/demandboard/backend/internal/models"
)

type AuthHandler struct {
	svc *leaderboard.Service
	log logrus.FieldLogger
}

func NewAuthHandler(svc *leaderboard.Service, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

// Sync creates or refreshes the local user behind a verified token. It runs
// behind Authenticate, not RequireUser, since the user may not exist yet.
func (h *AuthHandler) Sync(c *gin.Context) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "category": "authentication"})
		return
	}

	var input models.SyncRequest
	if !bindOptionalJSON(c, &input) {
		return
	}

	user, err := h.svc.SyncUser(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// GetMe returns the current authenticated user
func (h *AuthHandler) GetMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "category": "authentication"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           user.ID,
		"email":        user.Email,
		"display_name": user.DisplayName,
		"created_at":   user.CreatedAt,
	})
}
