package leaderboard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/emilythestrangee/demandboard/backend/internal/database"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ValidationError names every offending field of a rejected submission.
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("invalid fields: %s", strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(message string, fields ...string) error {
	return &ValidationError{Fields: fields, Message: message}
}

// notFound wraps a store miss into the domain error, keeping other failures
// as they are.
func notFound(err error, what string) error {
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return err
}

// ParseID treats a malformed id like an unknown one.
func ParseID(raw, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return id, nil
}
