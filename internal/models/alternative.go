package models

import (
	"time"

	"github.com/google/uuid"
)

// Alternative is append-only: a previously tried approach that failed.
type Alternative struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProblemID       uuid.UUID `gorm:"type:uuid;not null;index" json:"problem_id"`
	AuthorID        uuid.UUID `gorm:"type:uuid;not null" json:"author_id"`
	AlternativeName string    `gorm:"not null" json:"alternative_name"`
	WhyItFails      string    `gorm:"not null" json:"why_it_fails"`
	CreatedAt       time.Time `json:"created_at"`
}

func (Alternative) TableName() string { return "problem_alternatives" }

type CreateAlternativeRequest struct {
	AlternativeName string `json:"alternative_name" validate:"required"`
	WhyItFails      string `json:"why_it_fails" validate:"required"`
}
