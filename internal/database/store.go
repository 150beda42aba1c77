package database

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/emilythestrangee/demandboard/backend/internal/models"
	"github.com/emilythestrangee/demandboard/backend/internal/scoring"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// ProblemQuery filters and pages the leaderboard. Filtering and ordering
// are independent of each other.
type ProblemQuery struct {
	Category     models.Category // empty means any
	HasSolutions bool
	Unsolved     bool
	Sort         scoring.SortKey
	Offset       int
	Limit        int
}

// ProblemDelta is a set of increments applied to a problem in one atomic
// single-row update.
type ProblemDelta struct {
	Upvotes      int
	PaySignals   int
	Alternatives int
	Solutions    int
	Score        int
}

// ProblemAggregates overwrites every denormalized field of a problem.
// Only the reconciler uses it.
type ProblemAggregates struct {
	UpvoteCount       int
	PaySignalCount    int
	AlternativesCount int
	SolutionCount     int
	CompositeScore    int
	HasSolvedSolution bool
}

// Store is the document-store contract the leaderboard is written against.
// Every method is a single-document operation and is atomic on its own;
// WithinTx groups several into one unit of work.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Store) error) error

	UpsertUser(ctx context.Context, identityRef, email, displayName string) (*models.User, error)
	UserByIdentity(ctx context.Context, identityRef string) (*models.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	CreateProblem(ctx context.Context, p *models.Problem) error
	ProblemByID(ctx context.Context, id uuid.UUID) (*models.Problem, error)
	ListProblems(ctx context.Context, q ProblemQuery) ([]models.Problem, int64, error)
	ProblemsByAuthor(ctx context.Context, authorID uuid.UUID) ([]models.Problem, error)
	ProblemIDs(ctx context.Context) ([]uuid.UUID, error)
	AdjustProblem(ctx context.Context, id uuid.UUID, d ProblemDelta) (*models.Problem, error)
	SetProblemSolved(ctx context.Context, id uuid.UUID, solved bool) error
	ReplaceProblemAggregates(ctx context.Context, id uuid.UUID, a ProblemAggregates) error

	CreateSolution(ctx context.Context, s *models.Solution) error
	SolutionByID(ctx context.Context, id uuid.UUID) (*models.Solution, error)
	SolutionsForProblem(ctx context.Context, problemID uuid.UUID) ([]models.Solution, error)
	SolutionsByAuthor(ctx context.Context, authorID uuid.UUID) ([]models.Solution, error)
	AdjustSolutionUpvotes(ctx context.Context, id uuid.UUID, n int) (*models.Solution, error)
	SetSolutionSolved(ctx context.Context, id uuid.UUID, solved bool, by *uuid.UUID) error
	AnyOtherSolved(ctx context.Context, problemID, excludeID uuid.UUID) (bool, error)
	ReplaceSolutionUpvotes(ctx context.Context, id uuid.UUID, n int) error

	CreateAlternative(ctx context.Context, a *models.Alternative) error
	AlternativesForProblem(ctx context.Context, problemID uuid.UUID) ([]models.Alternative, error)

	FindSignal(ctx context.Context, kind models.SignalKind, targetID, userID uuid.UUID) (*models.Signal, error)
	// InsertSignal returns ErrDuplicate when a record for the same
	// (kind, target, user) already exists.
	InsertSignal(ctx context.Context, sig *models.Signal) error
	// DeleteSignal reports whether a record was actually removed.
	DeleteSignal(ctx context.Context, kind models.SignalKind, targetID, userID uuid.UUID) (bool, error)
	CountSignals(ctx context.Context, kind models.SignalKind, targetID uuid.UUID) (int64, error)
}

// Database is a Store with a lifecycle.
type Database interface {
	Store

	// Health returns a map of health status information.
	Health(ctx context.Context) map[string]string

	// Close terminates the database connection.
	Close() error
}
