package leaderboard

import (
	"sort"

	"quizwhiz-service/internal/domain"
)

// Rank aggregates each player's history into a total score and returns the
// players ordered by total, annotated with standard competition ranks:
// tied totals share a rank and the next distinct total resumes at its own
// 1-based position (totals 100,100,90,80 rank 1,1,3,4).
//
// Ties between equal totals preserve the input order of players. That order
// comes from the result store, so the tie-break is deliberate but only as
// stable as the store's ordering.
//
// Each call is a pure function of its input snapshot; nothing is cached.
func Rank(players []domain.Player, filter domain.ResultFilter) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(players))
	for _, player := range players {
		if filter.PlayerID != "" && player.ID != filter.PlayerID {
			continue
		}
		scoped := player
		if filter.Category != "" {
			scoped.History = filterHistory(player.History, filter.Category)
		}
		entries = append(entries, domain.LeaderboardEntry{
			Player:     scoped,
			TotalScore: totalScore(scoped.History),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalScore > entries[j].TotalScore
	})

	lastScore := 0
	lastRank := 0
	for i := range entries {
		if i > 0 && entries[i].TotalScore == lastScore {
			entries[i].Rank = lastRank
			continue
		}
		entries[i].Rank = i + 1
		lastScore = entries[i].TotalScore
		lastRank = entries[i].Rank
	}
	return entries
}

// Percentile is the derived standing metric rank/totalPlayers*100.
// It is non-decreasing as rank increases.
func Percentile(entry domain.LeaderboardEntry, totalPlayers int) float64 {
	if totalPlayers <= 0 {
		return 0
	}
	return float64(entry.Rank) / float64(totalPlayers) * 100
}

// PointsBehindLeader reports how many points an entry trails the leaderboard
// head by; the leader itself is 0 behind.
func PointsBehindLeader(entries []domain.LeaderboardEntry, entry domain.LeaderboardEntry) int {
	if len(entries) == 0 {
		return 0
	}
	behind := entries[0].TotalScore - entry.TotalScore
	if behind < 0 {
		return 0
	}
	return behind
}

// BestSingleScore is the highest single-session score in a player's history,
// 0 when the history is empty.
func BestSingleScore(player domain.Player) int {
	best := 0
	for _, result := range player.History {
		if result.Score > best {
			best = result.Score
		}
	}
	return best
}

func totalScore(history []domain.QuizResult) int {
	total := 0
	for _, result := range history {
		total += result.Score
	}
	return total
}

func filterHistory(history []domain.QuizResult, category string) []domain.QuizResult {
	filtered := make([]domain.QuizResult, 0, len(history))
	for _, result := range history {
		if result.Category == category {
			filtered = append(filtered, result)
		}
	}
	return filtered
}
