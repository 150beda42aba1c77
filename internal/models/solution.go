package models

import (
	"time"

	"github.com/google/uuid"
)

type Stage string

const (
	StageIdea      Stage = "idea"
	StagePrototype Stage = "prototype"
	StageLive      Stage = "live"
	StageMature    Stage = "mature"
)

var Stages = []Stage{StageIdea, StagePrototype, StageLive, StageMature}

func (s Stage) Valid() bool {
	for _, v := range Stages {
		if v == s {
			return true
		}
	}
	return false
}

// Solution belongs to exactly one problem. IsMarkedSolved is toggled only
// by the problem's author.
type Solution struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProblemID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"problem_id"`
	AuthorID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"author_id"`
	Name           string     `gorm:"not null" json:"name"`
	Description    string     `gorm:"not null" json:"description"`
	Link           string     `gorm:"not null" json:"link"`
	Stage          Stage      `gorm:"not null" json:"stage"`
	HowItAddresses *string    `json:"how_it_addresses,omitempty"`
	UpvoteCount    int        `gorm:"not null;default:0" json:"upvote_count"`
	IsMarkedSolved bool       `gorm:"not null;default:false" json:"is_marked_solved"`
	SolvedByUserID *uuid.UUID `gorm:"type:uuid" json:"solved_by_user_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type CreateSolutionRequest struct {
	Name           string `json:"name" validate:"required"`
	Description    string `json:"description" validate:"required"`
	Link           string `json:"link" validate:"required"`
	Stage          string `json:"stage" validate:"required,stage"`
	HowItAddresses string `json:"how_it_addresses"`
}
