package models

import (
	"time"

	"github.com/google/uuid"
)

// SignalKind names a toggleable (user, target) relationship.
type SignalKind string

const (
	KindProblemUpvote  SignalKind = "problem_upvote"
	KindPaySignal      SignalKind = "pay_signal"
	KindSolutionUpvote SignalKind = "solution_upvote"
)

var SignalKinds = []SignalKind{KindProblemUpvote, KindPaySignal, KindSolutionUpvote}

func (k SignalKind) Valid() bool {
	switch k {
	case KindProblemUpvote, KindPaySignal, KindSolutionUpvote:
		return true
	}
	return false
}

// TargetsProblem reports whether the kind's target is a problem (as opposed
// to a solution).
func (k SignalKind) TargetsProblem() bool {
	return k == KindProblemUpvote || k == KindPaySignal
}

type PriceRange string

var PriceRanges = []PriceRange{"<$10/mo", "$10-50/mo", "$50-200/mo", "$200+/mo"}

func (p PriceRange) Valid() bool {
	for _, v := range PriceRanges {
		if v == p {
			return true
		}
	}
	return false
}

// Signal is the kind-agnostic view of one signal record. At most one exists
// per (Kind, TargetID, UserID).
type Signal struct {
	Kind       SignalKind  `json:"kind"`
	TargetID   uuid.UUID   `json:"target_id"`
	UserID     uuid.UUID   `json:"user_id"`
	PriceRange *PriceRange `json:"price_range,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// ProblemUpvote, ProblemPaySignal and SolutionUpvote are the stored rows
// behind Signal; each table is unique on (target, user).
type ProblemUpvote struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProblemID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_problem_upvotes_problem_user"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_problem_upvotes_problem_user"`
	CreatedAt time.Time
}

type ProblemPaySignal struct {
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey"`
	ProblemID  uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:uq_problem_pay_signals_problem_user"`
	UserID     uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:uq_problem_pay_signals_problem_user"`
	PriceRange *PriceRange `gorm:"type:text"`
	CreatedAt  time.Time
}

type SolutionUpvote struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	SolutionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_solution_upvotes_solution_user"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_solution_upvotes_solution_user"`
	CreatedAt  time.Time
}

type PaySignalRequest struct {
	PriceRange string `json:"price_range" validate:"omitempty,price_range"`
}

// ViewerSignals tells a signed-in user which signals they currently hold
// on a problem.
type ViewerSignals struct {
	Upvoted     bool        `json:"upvoted"`
	PaySignaled bool        `json:"pay_signaled"`
	PriceRange  *PriceRange `json:"price_range,omitempty"`
}
