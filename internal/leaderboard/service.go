package leaderboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/demandboard/backend/internal/auth"
	"github.com/emilythestrangee/demandboard/backend/internal/database"
	"github.com/emilythestrangee/demandboard/backend/internal/models"
	"github.com/emilythestrangee/demandboard/backend/internal/scoring"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 50

	anonymous = "Anonymous"
)

type ListParams struct {
	Category     string
	HasSolutions bool
	Unsolved     bool
	Sort         string
	Page         int
	Limit        int
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

type ProblemPage struct {
	Items      []models.Problem `json:"items"`
	Pagination Pagination       `json:"pagination"`
}

type ProfileProblem struct {
	ID             uuid.UUID       `json:"id"`
	Title          string          `json:"title"`
	Category       models.Category `json:"category"`
	CompositeScore int             `json:"composite_score"`
	CreatedAt      time.Time       `json:"created_at"`
}

type ProfileSolution struct {
	ID          uuid.UUID `json:"id"`
	ProblemID   uuid.UUID `json:"problem_id"`
	Name        string    `json:"name"`
	UpvoteCount int       `json:"upvote_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type Profile struct {
	User         models.PublicUser `json:"user"`
	Problems     []ProfileProblem  `json:"problems"`
	Solutions    []ProfileSolution `json:"solutions"`
	TotalUpvotes int               `json:"total_upvotes"`
}

// Service covers submissions and reads that are not signal toggles.
type Service struct {
	store  database.Store
	atomic bool
	log    logrus.FieldLogger
}

func NewService(store database.Store, atomic bool, log logrus.FieldLogger) *Service {
	return &Service{store: store, atomic: atomic, log: log}
}

// SyncUser creates the user on first sign-in and refreshes their email and
// display name afterwards.
func (s *Service) SyncUser(ctx context.Context, id *auth.Identity, req models.SyncRequest) (*models.User, error) {
	if id == nil || id.Subject == "" {
		return nil, ErrUnauthenticated
	}
	if ref := strings.TrimSpace(req.IdentityRef); ref != "" && ref != id.Subject {
		return nil, fmt.Errorf("token mismatch: %w", ErrForbidden)
	}

	email := firstNonEmpty(req.Email, id.Email)
	name := firstNonEmpty(req.DisplayName, id.Name, anonymous)

	user, err := s.store.UpsertUser(ctx, id.Subject, email, name)
	if err != nil {
		return nil, fmt.Errorf("sync user: %w", err)
	}
	return user, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// CreateProblem stores a validated problem with its one-time creation bonus
// already in the composite score.
func (s *Service) CreateProblem(ctx context.Context, authorID uuid.UUID, req models.CreateProblemRequest) (*models.Problem, error) {
	if authorID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	req, err := ValidateProblem(req)
	if err != nil {
		return nil, err
	}

	method := models.SubmissionMethod(req.SubmissionMethod)
	now := time.Now().UTC()
	p := &models.Problem{
		ID:               uuid.New(),
		AuthorID:         authorID,
		Title:            req.Title,
		Description:      req.Description,
		Category:         models.Category(req.Category),
		SubmissionMethod: method,
		JTBD:             req.JTBD,
		CompositeScore:   scoring.CreationBonus(method),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreateProblem(ctx, p); err != nil {
		return nil, fmt.Errorf("create problem: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"problem_id": p.ID,
		"category":   p.Category,
		"method":     p.SubmissionMethod,
	}).Info("problem created")
	return p, nil
}

// ListProblems pages the leaderboard. Unknown categories and sort keys
// fall back to "any" and "score".
func (s *Service) ListProblems(ctx context.Context, params ListParams) (*ProblemPage, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}

	q := database.ProblemQuery{
		HasSolutions: params.HasSolutions,
		Unsolved:     params.Unsolved,
		Sort:         scoring.ParseSortKey(params.Sort),
		Offset:       (page - 1) * limit,
		Limit:        limit,
	}
	if c := models.Category(strings.TrimSpace(params.Category)); c.Valid() {
		q.Category = c
	}

	items, total, err := s.store.ListProblems(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	if items == nil {
		items = []models.Problem{}
	}

	return &ProblemPage{
		Items: items,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: int((total + int64(limit) - 1) / int64(limit)),
		},
	}, nil
}

func (s *Service) GetProblem(ctx context.Context, id uuid.UUID) (*models.ProblemDetail, error) {
	p, err := s.store.ProblemByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "problem")
	}

	detail := &models.ProblemDetail{Problem: *p, SubmitterName: anonymous}
	if u, err := s.store.UserByID(ctx, p.AuthorID); err == nil && u.DisplayName != "" {
		detail.SubmitterName = u.DisplayName
	}
	return detail, nil
}

// CreateSolution attaches a solution to a problem and bumps the problem's
// solution count.
func (s *Service) CreateSolution(ctx context.Context, problemID, authorID uuid.UUID, req models.CreateSolutionRequest) (*models.Solution, error) {
	if authorID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	req, err := ValidateSolution(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.ProblemByID(ctx, problemID); err != nil {
		return nil, notFound(err, "problem")
	}

	sol := &models.Solution{
		ID:          uuid.New(),
		ProblemID:   problemID,
		AuthorID:    authorID,
		Name:        req.Name,
		Description: req.Description,
		Link:        req.Link,
		Stage:       models.Stage(req.Stage),
		CreatedAt:   time.Now().UTC(),
	}
	if req.HowItAddresses != "" {
		how := req.HowItAddresses
		sol.HowItAddresses = &how
	}

	write := func(tx database.Store) error {
		if err := tx.CreateSolution(ctx, sol); err != nil {
			return fmt.Errorf("create solution: %w", err)
		}
		if _, err := tx.AdjustProblem(ctx, problemID, database.ProblemDelta{Solutions: 1}); err != nil {
			return fmt.Errorf("adjust solution count: %w", err)
		}
		return nil
	}

	if s.atomic {
		err = s.store.WithinTx(ctx, write)
	} else {
		err = write(s.store)
	}
	if err != nil {
		return nil, err
	}
	return sol, nil
}

func (s *Service) ListSolutions(ctx context.Context, problemID uuid.UUID) ([]models.Solution, error) {
	if _, err := s.store.ProblemByID(ctx, problemID); err != nil {
		return nil, notFound(err, "problem")
	}
	solutions, err := s.store.SolutionsForProblem(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if solutions == nil {
		solutions = []models.Solution{}
	}
	return solutions, nil
}

func (s *Service) ListAlternatives(ctx context.Context, problemID uuid.UUID) ([]models.Alternative, error) {
	if _, err := s.store.ProblemByID(ctx, problemID); err != nil {
		return nil, notFound(err, "problem")
	}
	alternatives, err := s.store.AlternativesForProblem(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if alternatives == nil {
		alternatives = []models.Alternative{}
	}
	return alternatives, nil
}

// UserProfile returns a user's public record with their submissions.
// TotalUpvotes sums the composite scores of their problems and the upvotes
// of their solutions.
func (s *Service) UserProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	user, err := s.store.UserByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}

	problems, err := s.store.ProblemsByAuthor(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("user problems: %w", err)
	}
	solutions, err := s.store.SolutionsByAuthor(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("user solutions: %w", err)
	}

	out := &Profile{
		User:      user.Public(),
		Problems:  make([]ProfileProblem, 0, len(problems)),
		Solutions: make([]ProfileSolution, 0, len(solutions)),
	}
	for _, p := range problems {
		out.Problems = append(out.Problems, ProfileProblem{
			ID:             p.ID,
			Title:          p.Title,
			Category:       p.Category,
			CompositeScore: p.CompositeScore,
			CreatedAt:      p.CreatedAt,
		})
		out.TotalUpvotes += p.CompositeScore
	}
	for _, sol := range solutions {
		out.Solutions = append(out.Solutions, ProfileSolution{
			ID:          sol.ID,
			ProblemID:   sol.ProblemID,
			Name:        sol.Name,
			UpvoteCount: sol.UpvoteCount,
			CreatedAt:   sol.CreatedAt,
		})
		out.TotalUpvotes += sol.UpvoteCount
	}
	return out, nil
}
