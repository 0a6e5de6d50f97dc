package app

import (
	"context"
	"fmt"

	"quizwhiz-service/internal/domain"
	"quizwhiz-service/internal/leaderboard"
	"quizwhiz-service/internal/session"
	"quizwhiz-service/internal/timer"
)

// QuestionProvider supplies a complete, normalized batch of questions.
type QuestionProvider interface {
	FetchBatch(ctx context.Context, categoryID, count int) ([]domain.Question, error)
}

// ResultStore persists completed session outcomes and returns player
// histories for ranking (in-memory, Postgres, etc).
type ResultStore interface {
	SaveResult(ctx context.Context, result domain.QuizResult) error
	ListPlayers(ctx context.Context, filter domain.ResultFilter) ([]domain.Player, error)
}

// GameService contains the trivia use cases: building sessions over fresh
// question batches, reporting their results, and serving ranked standings.
type GameService struct {
	questions QuestionProvider
	results   ResultStore
	clock     timer.Clock

	questionCount      int
	secondsPerQuestion int
}

// NewGameService wires the service. questionCount and secondsPerQuestion fall
// back to the session defaults when non-positive.
func NewGameService(questions QuestionProvider, results ResultStore, clock timer.Clock, questionCount, secondsPerQuestion int) *GameService {
	if questionCount <= 0 {
		questionCount = 10
	}
	return &GameService{
		questions:          questions,
		results:            results,
		clock:              clock,
		questionCount:      questionCount,
		secondsPerQuestion: secondsPerQuestion,
	}
}

// NewSession fetches a question batch and builds a session in Intro state.
// A failed or short fetch surfaces domain.ErrSourceUnavailable and no session
// is created, so the engine can never go active on an incomplete batch.
func (s *GameService) NewSession(ctx context.Context, playerID, category string, categoryID int) (*session.Session, error) {
	questions, err := s.questions.FetchBatch(ctx, categoryID, s.questionCount)
	if err != nil {
		return nil, err
	}

	cfg := session.Config{
		PlayerID:           playerID,
		Category:           category,
		SecondsPerQuestion: s.secondsPerQuestion,
	}
	return session.New(cfg, questions, storeReporter{store: s.results}, s.clock), nil
}

// Leaderboard fetches the full player history snapshot and ranks it. A store
// failure yields an empty list wrapped in domain.ErrQueryFailed, never a
// partial ranking.
func (s *GameService) Leaderboard(ctx context.Context, filter domain.ResultFilter) ([]domain.LeaderboardEntry, error) {
	players, err := s.results.ListPlayers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQueryFailed, err)
	}
	return leaderboard.Rank(players, filter), nil
}

// PlayerStats is the "my stats" view: the player's entry plus standing
// metrics derived against the full board.
type PlayerStats struct {
	Player           domain.Player `json:"player"`
	TotalScore       int           `json:"totalScore"`
	Rank             int           `json:"rank"`
	TotalPlayers     int           `json:"totalPlayers"`
	Percentile       float64       `json:"percentile"`
	PointsBehindLead int           `json:"pointsBehindLeader"`
	BestSingleScore  int           `json:"bestSingleScore"`
	GamesPlayed      int           `json:"gamesPlayed"`
	AverageAccuracy  float64       `json:"averageAccuracy"`
}

// PlayerStats ranks the full snapshot and derives the standing metrics for
// one player. Unknown players yield domain.ErrPlayerNotFound.
func (s *GameService) PlayerStats(ctx context.Context, playerID string) (PlayerStats, error) {
	entries, err := s.Leaderboard(ctx, domain.ResultFilter{})
	if err != nil {
		return PlayerStats{}, err
	}

	for _, entry := range entries {
		if entry.Player.ID != playerID {
			continue
		}
		stats := PlayerStats{
			Player:           entry.Player,
			TotalScore:       entry.TotalScore,
			Rank:             entry.Rank,
			TotalPlayers:     len(entries),
			Percentile:       leaderboard.Percentile(entry, len(entries)),
			PointsBehindLead: leaderboard.PointsBehindLeader(entries, entry),
			BestSingleScore:  leaderboard.BestSingleScore(entry.Player),
			GamesPlayed:      len(entry.Player.History),
		}
		if stats.GamesPlayed > 0 {
			sum := 0
			for _, result := range entry.Player.History {
				sum += result.Accuracy
			}
			stats.AverageAccuracy = float64(sum) / float64(stats.GamesPlayed)
		}
		return stats, nil
	}
	return PlayerStats{}, domain.ErrPlayerNotFound
}

// storeReporter adapts the result store to the session.Reporter contract.
type storeReporter struct {
	store ResultStore
}

func (r storeReporter) Report(ctx context.Context, result domain.QuizResult) error {
	if r.store == nil {
		return nil
	}
	if err := r.store.SaveResult(ctx, result); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSubmitRejected, err)
	}
	return nil
}
