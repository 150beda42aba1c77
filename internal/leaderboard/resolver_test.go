package leaderboard

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/demandboard/backend/internal/models"
)

func TestResolver_RecomputesFromOtherSolutions(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	p := f.problem(t, models.MethodFreeForm)

	a := f.solution(t, p.ID)
	b := f.solution(t, p.ID)
	f.solution(t, p.ID)

	res, err := f.resolver.ToggleSolved(ctx, a.ID, f.author.ID)
	require.NoError(t, err)
	assert.Equal(t, ActionMarkedSolved, res.Action)
	assert.True(t, res.HasSolvedSolution)

	res, err = f.resolver.ToggleSolved(ctx, b.ID, f.author.ID)
	require.NoError(t, err)
	assert.Equal(t, ActionMarkedSolved, res.Action)

	sol, err := f.store.SolutionByID(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, sol.SolvedByUserID)
	assert.Equal(t, f.author.ID, *sol.SolvedByUserID)

	res, err = f.resolver.ToggleSolved(ctx, a.ID, f.author.ID)
	require.NoError(t, err)
	assert.Equal(t, ActionUnmarkedSolved, res.Action)
	assert.False(t, res.IsMarkedSolved)
	assert.True(t, res.HasSolvedSolution, "b is still solved")
	assert.True(t, f.reload(t, p.ID).HasSolvedSolution)

	res, err = f.resolver.ToggleSolved(ctx, b.ID, f.author.ID)
	require.NoError(t, err)
	assert.False(t, res.HasSolvedSolution)
	assert.False(t, f.reload(t, p.ID).HasSolvedSolution)

	sol, err = f.store.SolutionByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, sol.SolvedByUserID)
}

func TestResolver_MarkSetsSolvedUnconditionally(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	p := f.problem(t, models.MethodFreeForm)
	a := f.solution(t, p.ID)
	b := f.solution(t, p.ID)

	// b is solved but the problem's flag never caught up
	require.NoError(t, f.store.SetSolutionSolved(ctx, b.ID, true, &f.author.ID))
	require.False(t, f.reload(t, p.ID).HasSolvedSolution)

	_, err := f.resolver.ToggleSolved(ctx, a.ID, f.author.ID)
	require.NoError(t, err)
	assert.True(t, f.reload(t, p.ID).HasSolvedSolution)
}

func TestResolver_NonAuthorIsForbidden(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	p := f.problem(t, models.MethodFreeForm)
	sol := f.solution(t, p.ID)

	_, err := f.resolver.ToggleSolved(ctx, sol.ID, sol.AuthorID)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := f.store.SolutionByID(ctx, sol.ID)
	require.NoError(t, err)
	assert.False(t, got.IsMarkedSolved)
	assert.False(t, f.reload(t, p.ID).HasSolvedSolution)
}

func TestResolver_Errors(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.resolver.ToggleSolved(context.Background(), uuid.New(), f.author.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.resolver.ToggleSolved(context.Background(), uuid.New(), uuid.Nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
