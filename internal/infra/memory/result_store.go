package memory

import (
	"context"
	"sync"

	"quizwhiz-service/internal/domain"
)

// ResultStore is an in-memory implementation of app.ResultStore, used by
// tests, the CLI play mode, and database-less serve runs. Players are listed
// in first-seen order, which is the documented leaderboard tie-break.
type ResultStore struct {
	mu      sync.RWMutex
	order   []string
	players map[string]*domain.Player
}

func NewResultStore() *ResultStore {
	return &ResultStore{players: make(map[string]*domain.Player)}
}

// RegisterPlayer records a display name for an ID. SaveResult creates players
// implicitly, so registration is only needed when a name should be shown.
func (s *ResultStore) RegisterPlayer(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreateLocked(id).Name = name
}

func (s *ResultStore) SaveResult(_ context.Context, result domain.QuizResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	player := s.getOrCreateLocked(result.PlayerID)
	player.History = append(player.History, result)
	return nil
}

func (s *ResultStore) ListPlayers(_ context.Context, filter domain.ResultFilter) ([]domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	players := make([]domain.Player, 0, len(s.order))
	for _, id := range s.order {
		if filter.PlayerID != "" && id != filter.PlayerID {
			continue
		}
		player := s.players[id]
		copied := domain.Player{ID: player.ID, Name: player.Name}
		for _, result := range player.History {
			if filter.Category != "" && result.Category != filter.Category {
				continue
			}
			copied.History = append(copied.History, result)
		}
		players = append(players, copied)
	}
	return players, nil
}

func (s *ResultStore) getOrCreateLocked(id string) *domain.Player {
	if player, ok := s.players[id]; ok {
		return player
	}
	player := &domain.Player{ID: id}
	s.players[id] = player
	s.order = append(s.order, id)
	return player
}
