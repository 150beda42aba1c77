package leaderboard

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/demandboard/backend/internal/database"
	"github.com/emilythestrangee/demandboard/backend/internal/metrics"
	"github.com/emilythestrangee/demandboard/backend/internal/models"
	"github.com/emilythestrangee/demandboard/backend/internal/scoring"
)

type ReconcileReport struct {
	Problems         int `json:"problems"`
	Solutions        int `json:"solutions"`
	ProblemsDrifted  int `json:"problems_drifted"`
	SolutionsDrifted int `json:"solutions_drifted"`
}

// Reconciler recounts every aggregate from the records behind it. Running
// it twice in a row changes nothing the second time.
type Reconciler struct {
	store database.Store
	log   logrus.FieldLogger
}

func NewReconciler(store database.Store, log logrus.FieldLogger) *Reconciler {
	return &Reconciler{store: store, log: log}
}

func (r *Reconciler) Run(ctx context.Context) (*ReconcileReport, error) {
	ids, err := r.store.ProblemIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list problem ids: %w", err)
	}

	report := &ReconcileReport{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		checked, err := r.problem(ctx, id)
		if err != nil {
			return report, fmt.Errorf("reconcile problem %s: %w", id, err)
		}
		report.add(checked)
	}

	r.log.WithFields(logrus.Fields{
		"problems":          report.Problems,
		"problems_drifted":  report.ProblemsDrifted,
		"solutions":         report.Solutions,
		"solutions_drifted": report.SolutionsDrifted,
	}).Info("reconcile finished")
	return report, nil
}

// add folds in the counts of one committed problem and records its drift.
func (rep *ReconcileReport) add(o ReconcileReport) {
	rep.Problems += o.Problems
	rep.Solutions += o.Solutions
	rep.ProblemsDrifted += o.ProblemsDrifted
	rep.SolutionsDrifted += o.SolutionsDrifted

	metrics.ReconcileDrift.WithLabelValues("problems").Add(float64(o.ProblemsDrifted))
	metrics.ReconcileDrift.WithLabelValues("solutions").Add(float64(o.SolutionsDrifted))
}

// problem reconciles one problem and its solutions in a single unit of work.
// The returned counts are only meaningful when err is nil.
func (r *Reconciler) problem(ctx context.Context, id uuid.UUID) (ReconcileReport, error) {
	var report ReconcileReport
	err := r.store.WithinTx(ctx, func(tx database.Store) error {
		report = ReconcileReport{}
		p, err := tx.ProblemByID(ctx, id)
		if err != nil {
			return err
		}
		report.Problems++

		upvotes, err := tx.CountSignals(ctx, models.KindProblemUpvote, id)
		if err != nil {
			return err
		}
		pays, err := tx.CountSignals(ctx, models.KindPaySignal, id)
		if err != nil {
			return err
		}
		alts, err := tx.AlternativesForProblem(ctx, id)
		if err != nil {
			return err
		}
		sols, err := tx.SolutionsForProblem(ctx, id)
		if err != nil {
			return err
		}

		solved := false
		for _, sol := range sols {
			report.Solutions++
			if sol.IsMarkedSolved {
				solved = true
			}
			n, err := tx.CountSignals(ctx, models.KindSolutionUpvote, sol.ID)
			if err != nil {
				return err
			}
			if int(n) == sol.UpvoteCount {
				continue
			}
			report.SolutionsDrifted++
			r.log.WithFields(logrus.Fields{
				"solution_id": sol.ID,
				"stored":      sol.UpvoteCount,
				"actual":      n,
			}).Warn("solution upvote count drifted")
			if err := tx.ReplaceSolutionUpvotes(ctx, sol.ID, int(n)); err != nil {
				return err
			}
		}

		want := database.ProblemAggregates{
			UpvoteCount:       int(upvotes),
			PaySignalCount:    int(pays),
			AlternativesCount: len(alts),
			SolutionCount:     len(sols),
			HasSolvedSolution: solved,
		}
		want.CompositeScore = scoring.Recompute(p.SubmissionMethod, want.UpvoteCount, want.PaySignalCount, want.AlternativesCount)

		if aggregatesOf(p) == want {
			return nil
		}
		report.ProblemsDrifted++
		r.log.WithFields(logrus.Fields{
			"problem_id":   id,
			"stored_score": p.CompositeScore,
			"actual_score": want.CompositeScore,
		}).Warn("problem aggregates drifted")
		return tx.ReplaceProblemAggregates(ctx, id, want)
	})
	if err != nil {
		return ReconcileReport{}, err
	}
	return report, nil
}

func aggregatesOf(p *models.Problem) database.ProblemAggregates {
	return database.ProblemAggregates{
		UpvoteCount:       p.UpvoteCount,
		PaySignalCount:    p.PaySignalCount,
		AlternativesCount: p.AlternativesCount,
		SolutionCount:     p.SolutionCount,
		CompositeScore:    p.CompositeScore,
		HasSolvedSolution: p.HasSolvedSolution,
	}
}
