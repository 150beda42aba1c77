// Package scoring holds the weight table behind compositeScore and the
// ranking orders of the leaderboard.
package scoring

import (
	"strings"

	"github.com/emilythestrangee/demandboard/backend/internal/models"
)

const (
	UpvoteWeight      = 1
	PaySignalWeight   = 3
	AlternativeWeight = 2
	JTBDBonus         = 5
)

// ScoreDelta is the compositeScore change of adding one signal of kind k.
// Removing it applies the exact negation. Solution upvotes never touch a
// problem's score.
func ScoreDelta(k models.SignalKind) int {
	switch k {
	case models.KindProblemUpvote:
		return UpvoteWeight
	case models.KindPaySignal:
		return PaySignalWeight
	default:
		return 0
	}
}

// CreationBonus is applied once, when the problem is created.
func CreationBonus(m models.SubmissionMethod) int {
	if m == models.MethodJTBD {
		return JTBDBonus
	}
	return 0
}

// Recompute derives the score a problem should have from its counters.
func Recompute(m models.SubmissionMethod, upvotes, paySignals, alternatives int) int {
	return CreationBonus(m) +
		upvotes*UpvoteWeight +
		paySignals*PaySignalWeight +
		alternatives*AlternativeWeight
}

type SortKey string

const (
	SortScore    SortKey = "score"
	SortNewest   SortKey = "newest"
	SortTrending SortKey = "trending"
)

// ParseSortKey falls back to SortScore for anything unrecognised.
func ParseSortKey(s string) SortKey {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case SortNewest:
		return SortNewest
	case SortTrending:
		return SortTrending
	default:
		return SortScore
	}
}

const (
	ColumnCompositeScore = "composite_score"
	ColumnCreatedAt      = "created_at"
)

type OrderField struct {
	Column string
	Desc   bool
}

// Order returns the ordered sort fields for k, most significant first.
func Order(k SortKey) []OrderField {
	switch k {
	case SortNewest:
		return []OrderField{{Column: ColumnCreatedAt, Desc: true}}
	case SortTrending:
		return []OrderField{
			{Column: ColumnCreatedAt, Desc: true},
			{Column: ColumnCompositeScore, Desc: true},
		}
	default:
		return []OrderField{
			{Column: ColumnCompositeScore, Desc: true},
			{Column: ColumnCreatedAt, Desc: true},
		}
	}
}

// Less reports whether a sorts before b under k. Stores that cannot push
// ordering down to a query engine sort with it.
func Less(k SortKey, a, b *models.Problem) bool {
	for _, f := range Order(k) {
		c := compare(f.Column, a, b)
		if c == 0 {
			continue
		}
		if f.Desc {
			return c > 0
		}
		return c < 0
	}
	return false
}

func compare(column string, a, b *models.Problem) int {
	switch column {
	case ColumnCompositeScore:
		switch {
		case a.CompositeScore < b.CompositeScore:
			return -1
		case a.CompositeScore > b.CompositeScore:
			return 1
		}
	case ColumnCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
	return 0
}
