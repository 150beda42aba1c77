package leaderboard

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/demandboard/backend/internal/database"
	"github.com/emilythestrangee/demandboard/backend/internal/models"
)

var errStoreDown = errors.New("store unavailable")

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fixture struct {
	store    *database.MemoryStore
	engine   *Engine
	service  *Service
	resolver *Resolver
	author   *models.User
}

func newFixture(t *testing.T, atomic bool) *fixture {
	t.Helper()
	store := database.NewMemory()
	log := quietLogger()

	author, err := store.UpsertUser(context.Background(), "sub-author", "author@example.com", "Author")
	require.NoError(t, err)

	return &fixture{
		store:    store,
		engine:   NewEngine(store, atomic, log),
		service:  NewService(store, atomic, log),
		resolver: NewResolver(store, log),
		author:   author,
	}
}

func (f *fixture) problem(t *testing.T, method models.SubmissionMethod) *models.Problem {
	t.Helper()
	req := models.CreateProblemRequest{
		Title:            "Scheduling across time zones",
		Description:      "Finding a meeting slot takes a dozen messages",
		Category:         "productivity",
		SubmissionMethod: string(method),
	}
	if method == models.MethodJTBD {
		req.JTBD = &models.JTBD{Situation: "I run a remote team", Motivation: "find a slot fast", Outcome: "stop the back and forth"}
	}
	p, err := f.service.CreateProblem(context.Background(), f.author.ID, req)
	require.NoError(t, err)
	return p
}

func (f *fixture) solution(t *testing.T, problemID uuid.UUID) *models.Solution {
	t.Helper()
	sol, err := f.service.CreateSolution(context.Background(), problemID, uuid.New(), models.CreateSolutionRequest{
		Name:        "SlotFinder",
		Description: "Suggests overlapping hours",
		Link:        "https://slotfinder.example",
		Stage:       "live",
	})
	require.NoError(t, err)
	return sol
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *models.Problem {
	t.Helper()
	p, err := f.store.ProblemByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

// faultyStore lets tests break single store operations.
type faultyStore struct {
	database.Store
	failAdjust  bool
	failReplace bool // ReplaceProblemAggregates fails
	staleFind   bool // FindSignal reports nothing
	ghostFind   bool // FindSignal reports a record that is already gone
}

func (s *faultyStore) wrap(tx database.Store) *faultyStore {
	c := *s
	c.Store = tx
	return &c
}

func (s *faultyStore) WithinTx(ctx context.Context, fn func(tx database.Store) error) error {
	return s.Store.WithinTx(ctx, func(tx database.Store) error {
		return fn(s.wrap(tx))
	})
}

func (s *faultyStore) AdjustProblem(ctx context.Context, id uuid.UUID, d database.ProblemDelta) (*models.Problem, error) {
	if s.failAdjust {
		return nil, errStoreDown
	}
	return s.Store.AdjustProblem(ctx, id, d)
}

func (s *faultyStore) AdjustSolutionUpvotes(ctx context.Context, id uuid.UUID, n int) (*models.Solution, error) {
	if s.failAdjust {
		return nil, errStoreDown
	}
	return s.Store.AdjustSolutionUpvotes(ctx, id, n)
}

func (s *faultyStore) ReplaceProblemAggregates(ctx context.Context, id uuid.UUID, a database.ProblemAggregates) error {
	if s.failReplace {
		return errStoreDown
	}
	return s.Store.ReplaceProblemAggregates(ctx, id, a)
}

func (s *faultyStore) FindSignal(ctx context.Context, kind models.SignalKind, targetID, userID uuid.UUID) (*models.Signal, error) {
	switch {
	case s.staleFind:
		return nil, database.ErrNotFound
	case s.ghostFind:
		return &models.Signal{Kind: kind, TargetID: targetID, UserID: userID}, nil
	}
	return s.Store.FindSignal(ctx, kind, targetID, userID)
}
