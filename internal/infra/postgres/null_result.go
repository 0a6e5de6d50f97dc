package postgres

import (
	"time"

	"quizwhiz-service/internal/domain"
)

// nullableResult absorbs the LEFT JOIN columns: a player with no results yet
// produces a row of NULLs on the result side.
type nullableResult struct {
	category  *string
	score     *int
	accuracy  *int
	createdAt *time.Time
}

func (r nullableResult) toDomain(playerID string) (domain.QuizResult, bool) {
	if r.category == nil || r.score == nil || r.accuracy == nil {
		return domain.QuizResult{}, false
	}
	result := domain.QuizResult{
		PlayerID: playerID,
		Category: *r.category,
		Score:    *r.score,
		Accuracy: *r.accuracy,
	}
	if r.createdAt != nil {
		result.CreatedAt = *r.createdAt
	}
	return result, true
}
