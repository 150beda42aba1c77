package leaderboard

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/demandboard/backend/internal/database"
)

type SolvedAction string

const (
	ActionMarkedSolved   SolvedAction = "marked_solved"
	ActionUnmarkedSolved SolvedAction = "unmarked_solved"
)

type SolvedResult struct {
	Action            SolvedAction `json:"action"`
	IsMarkedSolved    bool         `json:"is_marked_solved"`
	HasSolvedSolution bool         `json:"has_solved_solution"`
}

// Resolver keeps Problem.HasSolvedSolution in line with the solved flags of
// the problem's solutions.
type Resolver struct {
	store database.Store
	log   logrus.FieldLogger
}

func NewResolver(store database.Store, log logrus.FieldLogger) *Resolver {
	return &Resolver{store: store, log: log}
}

// ToggleSolved flips a solution's solved flag. Only the author of the
// solution's problem may call it. Marking always sets the problem solved;
// unmarking recomputes it from the other solutions.
func (r *Resolver) ToggleSolved(ctx context.Context, solutionID, callerID uuid.UUID) (*SolvedResult, error) {
	if callerID == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	sol, err := r.store.SolutionByID(ctx, solutionID)
	if err != nil {
		return nil, notFound(err, "solution")
	}
	problem, err := r.store.ProblemByID(ctx, sol.ProblemID)
	if err != nil {
		return nil, notFound(err, "problem")
	}
	if problem.AuthorID != callerID {
		return nil, fmt.Errorf("only the problem submitter can mark a solution as solved: %w", ErrForbidden)
	}

	res := &SolvedResult{IsMarkedSolved: !sol.IsMarkedSolved}
	err = r.store.WithinTx(ctx, func(tx database.Store) error {
		if res.IsMarkedSolved {
			if err := tx.SetSolutionSolved(ctx, sol.ID, true, &callerID); err != nil {
				return err
			}
			res.Action = ActionMarkedSolved
			res.HasSolvedSolution = true
			return tx.SetProblemSolved(ctx, problem.ID, true)
		}

		if err := tx.SetSolutionSolved(ctx, sol.ID, false, nil); err != nil {
			return err
		}
		other, err := tx.AnyOtherSolved(ctx, problem.ID, sol.ID)
		if err != nil {
			return err
		}
		res.Action = ActionUnmarkedSolved
		res.HasSolvedSolution = other
		return tx.SetProblemSolved(ctx, problem.ID, other)
	})
	if err != nil {
		return nil, fmt.Errorf("toggle solved: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"solution_id": sol.ID,
		"problem_id":  problem.ID,
		"action":      res.Action,
	}).Info("solution solved state changed")
	return res, nil
}
