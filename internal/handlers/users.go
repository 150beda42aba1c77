package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/demandboard/backend/internal/leaderboard"
)

type UserHandler struct {
	svc *leaderboard.Service
	log logrus.FieldLogger
}

func NewUserHandler(svc *leaderboard.Service, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{svc: svc, log: log}
}

// GetUserProfile returns a user's profile
func (h *UserHandler) GetUserProfile(c *gin.Context) {
	id, ok := pathID(c, h.log, "user")
	if !ok {
		return
	}

	profile, err := h.svc.UserProfile(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}
