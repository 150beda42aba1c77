// Package leaderboard holds the demand-signal core: the toggle engine, the
// solved-state resolver, submission services and the aggregate reconciler.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/demandboard/backend/internal/database"
	"github.com/emilythestrangee/demandboard/backend/internal/metrics"
	"github.com/emilythestrangee/demandboard/backend/internal/models"
	"github.com/emilythestrangee/demandboard/backend/internal/scoring"
)

type Action string

const (
	ActionAdded   Action = "added"
	ActionRemoved Action = "removed"
)

// ToggleResult reports what a toggle did and the target's counter after it.
// CompositeScore is only set for problem-targeted kinds.
type ToggleResult struct {
	Action         Action `json:"action"`
	Count          int    `json:"count"`
	CompositeScore *int   `json:"composite_score,omitempty"`
}

// ToggleExtra carries kind-specific payload stored on an added record.
type ToggleExtra struct {
	PriceRange *models.PriceRange
}

// errors that end a unit of work early because a concurrent request by the
// same user already reached the state this one was heading for
var (
	errLostAdd    = errors.New("signal already added")
	errLostRemove = errors.New("signal already removed")
)

// Engine applies add/remove transitions to (kind, target, user) triples and
// keeps each target's counters in step with its records.
type Engine struct {
	store  database.Store
	atomic bool
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewEngine returns an engine. With atomic set, the record write and the
// counter write of a toggle commit together; otherwise they are issued as
// two writes and a failed counter write is logged, not returned.
func NewEngine(store database.Store, atomic bool, log logrus.FieldLogger) *Engine {
	return &Engine{store: store, atomic: atomic, log: log, now: time.Now}
}

// target is the counter-bearing document a signal points at.
type target struct {
	count int
	score *int
}

func (e *Engine) loadTarget(ctx context.Context, s database.Store, kind models.SignalKind, id uuid.UUID) (*target, error) {
	if kind.TargetsProblem() {
		p, err := s.ProblemByID(ctx, id)
		if err != nil {
			return nil, notFound(err, "problem")
		}
		return problemTarget(kind, p), nil
	}
	sol, err := s.SolutionByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "solution")
	}
	return &target{count: sol.UpvoteCount}, nil
}

func problemTarget(kind models.SignalKind, p *models.Problem) *target {
	score := p.CompositeScore
	t := &target{score: &score, count: p.UpvoteCount}
	if kind == models.KindPaySignal {
		t.count = p.PaySignalCount
	}
	return t
}

// Toggle adds the signal when the user does not hold it and removes it when
// they do.
func (e *Engine) Toggle(ctx context.Context, kind models.SignalKind, targetID, userID uuid.UUID, extra ToggleExtra) (*ToggleResult, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if !kind.Valid() {
		return nil, invalid(fmt.Sprintf("unknown signal kind %q", kind), "kind")
	}
	if kind != models.KindPaySignal {
		extra.PriceRange = nil
	}
	if extra.PriceRange != nil && !extra.PriceRange.Valid() {
		return nil, invalid(fmt.Sprintf("invalid price_range %q", *extra.PriceRange), "price_range")
	}

	before, err := e.loadTarget(ctx, e.store, kind, targetID)
	if err != nil {
		return nil, err
	}

	var res *ToggleResult
	if e.atomic {
		err = e.store.WithinTx(ctx, func(tx database.Store) error {
			var txErr error
			res, txErr = e.apply(ctx, tx, kind, targetID, userID, extra, before, true)
			return txErr
		})
	} else {
		res, err = e.apply(ctx, e.store, kind, targetID, userID, extra, before, false)
	}

	switch {
	case errors.Is(err, errLostAdd):
		res, err = e.current(ctx, kind, targetID, ActionAdded)
	case errors.Is(err, errLostRemove):
		res, err = e.current(ctx, kind, targetID, ActionRemoved)
	}
	if err != nil {
		return nil, err
	}

	metrics.SignalToggles.WithLabelValues(string(kind), string(res.Action)).Inc()
	e.log.WithFields(logrus.Fields{
		"kind":    kind,
		"target":  targetID,
		"user_id": userID,
		"action":  res.Action,
		"count":   res.Count,
	}).Debug("signal toggled")
	return res, nil
}

// apply performs the record write and then the counter write. With strict
// set a failed counter write is returned so the surrounding unit of work
// rolls back.
func (e *Engine) apply(ctx context.Context, s database.Store, kind models.SignalKind, targetID, userID uuid.UUID, extra ToggleExtra, before *target, strict bool) (*ToggleResult, error) {
	_, err := s.FindSignal(ctx, kind, targetID, userID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		sig := &models.Signal{
			Kind:       kind,
			TargetID:   targetID,
			UserID:     userID,
			PriceRange: extra.PriceRange,
			CreatedAt:  e.now().UTC(),
		}
		if err := s.InsertSignal(ctx, sig); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				return nil, errLostAdd
			}
			return nil, fmt.Errorf("insert %s: %w", kind, err)
		}
		return e.adjust(ctx, s, kind, targetID, userID, ActionAdded, before, strict)

	case err != nil:
		return nil, fmt.Errorf("find %s: %w", kind, err)
	}

	removed, err := s.DeleteSignal(ctx, kind, targetID, userID)
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", kind, err)
	}
	if !removed {
		return nil, errLostRemove
	}
	return e.adjust(ctx, s, kind, targetID, userID, ActionRemoved, before, strict)
}

func (e *Engine) adjust(ctx context.Context, s database.Store, kind models.SignalKind, targetID, userID uuid.UUID, action Action, before *target, strict bool) (*ToggleResult, error) {
	sign := 1
	if action == ActionRemoved {
		sign = -1
	}

	res := &ToggleResult{Action: action}
	var err error
	if kind.TargetsProblem() {
		d := database.ProblemDelta{Score: sign * scoring.ScoreDelta(kind)}
		if kind == models.KindPaySignal {
			d.PaySignals = sign
		} else {
			d.Upvotes = sign
		}
		var p *models.Problem
		if p, err = s.AdjustProblem(ctx, targetID, d); err == nil {
			t := problemTarget(kind, p)
			res.Count, res.CompositeScore = t.count, t.score
		}
	} else {
		var sol *models.Solution
		if sol, err = s.AdjustSolutionUpvotes(ctx, targetID, sign); err == nil {
			res.Count = sol.UpvoteCount
		}
	}
	if err == nil {
		return res, nil
	}

	if strict {
		return nil, fmt.Errorf("adjust %s counter: %w", kind, err)
	}

	// the record write stands; report it and leave the drift to the
	// reconciler
	metrics.SignalPartialWrites.WithLabelValues(string(kind)).Inc()
	e.log.WithError(err).WithFields(logrus.Fields{
		"kind":    kind,
		"target":  targetID,
		"user_id": userID,
		"action":  action,
	}).Warn("signal counter write failed")

	res.Count = before.count + sign
	if before.score != nil {
		score := *before.score + sign*scoring.ScoreDelta(kind)
		res.CompositeScore = &score
	}
	return res, nil
}

// current reports the target's counters as they stand, for toggles that
// lost a same-user race.
func (e *Engine) current(ctx context.Context, kind models.SignalKind, targetID uuid.UUID, action Action) (*ToggleResult, error) {
	t, err := e.loadTarget(ctx, e.store, kind, targetID)
	if err != nil {
		return nil, err
	}
	return &ToggleResult{Action: action, Count: t.count, CompositeScore: t.score}, nil
}

// SubmitAlternative records a failed alternative. Alternatives are additive
// only; there is no way to take one back.
func (e *Engine) SubmitAlternative(ctx context.Context, problemID, authorID uuid.UUID, req models.CreateAlternativeRequest) (*models.Alternative, error) {
	if authorID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	req, err := ValidateAlternative(req)
	if err != nil {
		return nil, err
	}
	if _, err := e.store.ProblemByID(ctx, problemID); err != nil {
		return nil, notFound(err, "problem")
	}

	alt := &models.Alternative{
		ID:              uuid.New(),
		ProblemID:       problemID,
		AuthorID:        authorID,
		AlternativeName: req.AlternativeName,
		WhyItFails:      req.WhyItFails,
		CreatedAt:       e.now().UTC(),
	}
	delta := database.ProblemDelta{Alternatives: 1, Score: scoring.AlternativeWeight}

	write := func(s database.Store, strict bool) error {
		if err := s.CreateAlternative(ctx, alt); err != nil {
			return fmt.Errorf("create alternative: %w", err)
		}
		if _, err := s.AdjustProblem(ctx, problemID, delta); err != nil {
			if strict {
				return fmt.Errorf("adjust alternatives counter: %w", err)
			}
			metrics.SignalPartialWrites.WithLabelValues("alternative").Inc()
			e.log.WithError(err).WithField("problem_id", problemID).Warn("alternative counter write failed")
		}
		return nil
	}

	if e.atomic {
		err = e.store.WithinTx(ctx, func(tx database.Store) error { return write(tx, true) })
	} else {
		err = write(e.store, false)
	}
	if err != nil {
		return nil, err
	}

	metrics.AlternativesSubmitted.Inc()
	return alt, nil
}

// ViewerSignals reports which signals userID currently holds on a problem.
func (e *Engine) ViewerSignals(ctx context.Context, problemID, userID uuid.UUID) (*models.ViewerSignals, error) {
	if _, err := e.store.ProblemByID(ctx, problemID); err != nil {
		return nil, notFound(err, "problem")
	}

	out := &models.ViewerSignals{}

	_, err := e.store.FindSignal(ctx, models.KindProblemUpvote, problemID, userID)
	switch {
	case err == nil:
		out.Upvoted = true
	case !errors.Is(err, database.ErrNotFound):
		return nil, err
	}

	pay, err := e.store.FindSignal(ctx, models.KindPaySignal, problemID, userID)
	switch {
	case err == nil:
		out.PaySignaled = true
		out.PriceRange = pay.PriceRange
	case !errors.Is(err, database.ErrNotFound):
		return nil, err
	}
	return out, nil
}
