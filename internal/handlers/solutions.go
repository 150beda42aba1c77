package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/demandboard/backend/internal/leaderboard"
	"github.com/emilythestrangee/demandboard/backend/internal/models"
)

type SolutionHandler struct {
	svc      *leaderboard.Service
	engine   *leaderboard.Engine
	resolver *leaderboard.Resolver
	log      logrus.FieldLogger
}

func NewSolutionHandler(svc *leaderboard.Service, engine *leaderboard.Engine, resolver *leaderboard.Resolver, log logrus.FieldLogger) *SolutionHandler {
	return &SolutionHandler{svc: svc, engine: engine, resolver: resolver, log: log}
}

// GetSolutions lists a problem's solutions, most upvoted first
func (h *SolutionHandler) GetSolutions(c *gin.Context) {
	problemID, ok := pathID(c, h.log, "problem")
	if !ok {
		return
	}

	solutions, err := h.svc.ListSolutions(c.Request.Context(), problemID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"solutions": solutions})
}

// CreateSolution attaches a solution to a problem (PROTECTED)
func (h *SolutionHandler) CreateSolution(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	problemID, ok := pathID(c, h.log, "problem")
	if !ok {
		return
	}

	var input models.CreateSolutionRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badBody(c)
		return
	}

	solution, err := h.svc.CreateSolution(c.Request.Context(), problemID, userID, input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, solution)
}

// UpvoteSolution toggles the caller's upvote on a solution
func (h *SolutionHandler) UpvoteSolution(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, h.log, "solution")
	if !ok {
		return
	}

	result, err := h.engine.Toggle(c.Request.Context(), models.KindSolutionUpvote, id, userID, leaderboard.ToggleExtra{})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// MarkSolved flips a solution's solved flag; only the problem's author may
func (h *SolutionHandler) MarkSolved(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, h.log, "solution")
	if !ok {
		return
	}

	result, err := h.resolver.ToggleSolved(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
