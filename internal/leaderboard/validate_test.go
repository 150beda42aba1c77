package leaderboard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/demandboard/backend/internal/models"
)

func TestValidateProblem(t *testing.T) {
	jtbd := &models.JTBD{Situation: " s ", Motivation: "m", Outcome: "o"}

	tests := []struct {
		name   string
		req    models.CreateProblemRequest
		fields []string
	}{
		{
			name: "valid free form",
			req:  models.CreateProblemRequest{Title: " T ", Description: "D", Category: "health"},
		},
		{
			name:   "everything missing",
			req:    models.CreateProblemRequest{},
			fields: []string{"title", "category", "description"},
		},
		{
			name:   "title too long",
			req:    models.CreateProblemRequest{Title: strings.Repeat("x", 121), Description: "D", Category: "health"},
			fields: []string{"title"},
		},
		{
			name: "title at the limit",
			req:  models.CreateProblemRequest{Title: strings.Repeat("é", 120), Description: "D", Category: "health"},
		},
		{
			name:   "unknown category",
			req:    models.CreateProblemRequest{Title: "T", Description: "D", Category: "crypto"},
			fields: []string{"category"},
		},
		{
			name: "jtbd triple stands in for description",
			req:  models.CreateProblemRequest{Title: "T", Category: "health", SubmissionMethod: "jtbd", JTBD: jtbd},
		},
		{
			name:   "incomplete triple does not",
			req:    models.CreateProblemRequest{Title: "T", Category: "health", SubmissionMethod: "jtbd", JTBD: &models.JTBD{Situation: "s"}},
			fields: []string{"description"},
		},
		{
			name:   "free form ignores the triple",
			req:    models.CreateProblemRequest{Title: "T", Category: "health", JTBD: jtbd},
			fields: []string{"description"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateProblem(tt.req)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, tt.fields, verr.Fields)
		})
	}
}

func TestValidateProblem_Normalizes(t *testing.T) {
	out, err := ValidateProblem(models.CreateProblemRequest{
		Title:            "  Title  ",
		Category:         "health",
		SubmissionMethod: "jtbd",
		JTBD:             &models.JTBD{Situation: " I cook ", Motivation: "plan meals", Outcome: "waste less"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Title", out.Title)
	assert.Equal(t, "I cook", out.JTBD.Situation)
	assert.Equal(t, "When I cook, I want to plan meals, so I can waste less.", out.Description)

	out, err = ValidateProblem(models.CreateProblemRequest{
		Title: "T", Description: "D", Category: "health", SubmissionMethod: "anything",
	})
	require.NoError(t, err)
	assert.Equal(t, string(models.MethodFreeForm), out.SubmissionMethod)
}

func TestValidateSolution(t *testing.T) {
	_, err := ValidateSolution(models.CreateSolutionRequest{Name: "n", Description: "d", Link: "l", Stage: "live"})
	assert.NoError(t, err)

	_, err = ValidateSolution(models.CreateSolutionRequest{Name: "n", Description: "d", Link: "l", Stage: "beta"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"stage"}, verr.Fields)
	assert.Contains(t, verr.Error(), `invalid stage "beta"`)

	_, err = ValidateSolution(models.CreateSolutionRequest{Stage: "idea"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"name", "description", "link"}, verr.Fields)
}

func TestValidatePriceRange(t *testing.T) {
	pr, err := ValidatePriceRange("")
	require.NoError(t, err)
	assert.Nil(t, pr)

	for _, ok := range models.PriceRanges {
		pr, err := ValidatePriceRange(string(ok))
		require.NoError(t, err)
		assert.Equal(t, ok, *pr)
	}

	_, err = ValidatePriceRange("$1000/mo")
	assert.ErrorIs(t, err, ErrValidation)
}
