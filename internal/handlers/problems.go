package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/demandboard/backend/internal/leaderboard"
	"github.com/emilythestrangee/demandboard/backend/internal/models"
)

type ProblemHandler struct {
	svc    *leaderboard.Service
	engine *leaderboard.Engine
	log    logrus.FieldLogger
}

func NewProblemHandler(svc *leaderboard.Service, engine *leaderboard.Engine, log logrus.FieldLogger) *ProblemHandler {
	return &ProblemHandler{svc: svc, engine: engine, log: log}
}

// GetProblems returns one page of the leaderboard
func (h *ProblemHandler) GetProblems(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	result, err := h.svc.ListProblems(c.Request.Context(), leaderboard.ListParams{
		Category:     c.Query("category"),
		HasSolutions: c.Query("has_solutions") == "true",
		Unsolved:     c.Query("unsolved") == "true",
		Sort:         c.Query("sort"),
		Page:         page,
		Limit:        limit,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetProblem returns a single problem by ID
func (h *ProblemHandler) GetProblem(c *gin.Context) {
	id, ok := pathID(c, h.log, "problem")
	if !ok {
		return
	}

	detail, err := h.svc.GetProblem(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// CreateProblem creates a new problem (PROTECTED - requires authentication)
func (h *ProblemHandler) CreateProblem(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input models.CreateProblemRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badBody(c)
		return
	}

	problem, err := h.svc.CreateProblem(c.Request.Context(), userID, input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, problem)
}

// GetSignals tells the caller which signals they hold on a problem
func (h *ProblemHandler) GetSignals(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, h.log, "problem")
	if !ok {
		return
	}

	signals, err := h.engine.ViewerSignals(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, signals)
}

func (h *ProblemHandler) toggle(c *gin.Context, kind models.SignalKind, extra leaderboard.ToggleExtra) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, h.log, "problem")
	if !ok {
		return
	}

	result, err := h.engine.Toggle(c.Request.Context(), kind, id, userID, extra)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UpvoteProblem toggles the caller's upvote
func (h *ProblemHandler) UpvoteProblem(c *gin.Context) {
	h.toggle(c, models.KindProblemUpvote, leaderboard.ToggleExtra{})
}

// PaySignal toggles the caller's would-pay signal, optionally tagged with a
// price range
func (h *ProblemHandler) PaySignal(c *gin.Context) {
	var input models.PaySignalRequest
	if !bindOptionalJSON(c, &input) {
		return
	}

	pr, err := leaderboard.ValidatePriceRange(input.PriceRange)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.toggle(c, models.KindPaySignal, leaderboard.ToggleExtra{PriceRange: pr})
}

func (h *ProblemHandler) GetAlternatives(c *gin.Context) {
	id, ok := pathID(c, h.log, "problem")
	if !ok {
		return
	}

	alternatives, err := h.svc.ListAlternatives(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"alternatives": alternatives})
}

func (h *ProblemHandler) CreateAlternative(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, h.log, "problem")
	if !ok {
		return
	}

	var input models.CreateAlternativeRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badBody(c)
		return
	}

	alt, err := h.engine.SubmitAlternative(c.Request.Context(), id, userID, input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, alt)
}
