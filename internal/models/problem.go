package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type SubmissionMethod string

const (
	MethodFreeForm SubmissionMethod = "free_form"
	MethodJTBD     SubmissionMethod = "jtbd"
)

// ParseSubmissionMethod maps anything that is not "jtbd" to free form.
func ParseSubmissionMethod(s string) SubmissionMethod {
	if strings.TrimSpace(s) == string(MethodJTBD) {
		return MethodJTBD
	}
	return MethodFreeForm
}

type Category string

var Categories = []Category{
	"dev-tools",
	"ai-ml",
	"b2b-saas",
	"creator-economy",
	"fintech",
	"health",
	"education",
	"productivity",
	"climate",
	"housing",
	"transport",
	"social",
	"ecommerce",
	"other",
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// JTBD is the "jobs to be done" triple of a structured submission.
type JTBD struct {
	Situation  string `json:"situation"`
	Motivation string `json:"motivation"`
	Outcome    string `json:"outcome"`
}

func (j *JTBD) Complete() bool {
	return j != nil &&
		strings.TrimSpace(j.Situation) != "" &&
		strings.TrimSpace(j.Motivation) != "" &&
		strings.TrimSpace(j.Outcome) != ""
}

// Problem carries denormalized aggregates. CompositeScore is never set
// directly after creation; it only moves by the deltas of signal events.
type Problem struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID          uuid.UUID        `gorm:"type:uuid;not null;index" json:"author_id"`
	Title             string           `gorm:"size:120;not null" json:"title"`
	Description       string           `gorm:"not null" json:"description"`
	Category          Category         `gorm:"not null" json:"category"`
	SubmissionMethod  SubmissionMethod `gorm:"not null" json:"submission_method"`
	JTBD              *JTBD            `gorm:"column:jtbd;type:jsonb;serializer:json" json:"jtbd,omitempty"`
	UpvoteCount       int              `gorm:"not null;default:0" json:"upvote_count"`
	PaySignalCount    int              `gorm:"not null;default:0" json:"pay_signal_count"`
	AlternativesCount int              `gorm:"not null;default:0" json:"alternatives_count"`
	SolutionCount     int              `gorm:"not null;default:0" json:"solution_count"`
	CompositeScore    int              `gorm:"not null;default:0" json:"composite_score"`
	HasSolvedSolution bool             `gorm:"not null;default:false" json:"has_solved_solution"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

type CreateProblemRequest struct {
	Title            string `json:"title" validate:"required,max=120"`
	Description      string `json:"description"`
	Category         string `json:"category" validate:"required,category"`
	SubmissionMethod string `json:"submission_method"`
	JTBD             *JTBD  `json:"jtbd"`
}

// ProblemDetail is a problem together with its submitter's display name.
type ProblemDetail struct {
	Problem
	SubmitterName string `json:"submitter_name"`
}
