package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"quizwhiz-service/internal/domain"
	"quizwhiz-service/internal/infra/memory"
)

type failingStore struct{}

func (failingStore) SaveResult(context.Context, domain.QuizResult) error { return nil }
func (failingStore) ListPlayers(context.Context, domain.ResultFilter) ([]domain.Player, error) {
	return nil, errors.New("connection refused")
}

func seedStore(t *testing.T) *memory.ResultStore {
	t.Helper()
	store := memory.NewResultStore()
	ctx := context.Background()
	seed := []domain.QuizResult{
		{PlayerID: "a@example.com", Category: "History", Score: 50, Accuracy: 50},
		{PlayerID: "a@example.com", Category: "History", Score: 50, Accuracy: 50},
		{PlayerID: "b@example.com", Category: "History", Score: 100, Accuracy: 100},
		{PlayerID: "c@example.com", Category: "Science", Score: 90, Accuracy: 90},
		{PlayerID: "d@example.com", Category: "History", Score: 80, Accuracy: 80},
	}
	for _, result := range seed {
		if err := store.SaveResult(ctx, result); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return store
}

func TestLeaderboardEndpoint(t *testing.T) {
	server := newTestServer(t, &staticProvider{questions: sampleBatch()}, seedStore(t))

	resp, err := http.Get(server.URL + "/leaderboard")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body leaderboardResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(body.Entries))
	}
	// Totals 100, 100, 90, 80 => competition ranks 1, 1, 3, 4.
	wantRanks := []int{1, 1, 3, 4}
	for i, entry := range body.Entries {
		if entry.Rank != wantRanks[i] {
			t.Errorf("entry %d rank %d, want %d", i, entry.Rank, wantRanks[i])
		}
	}
	if body.Entries[0].PointsBehindLeader != 0 {
		t.Errorf("leader should be 0 behind, got %d", body.Entries[0].PointsBehindLeader)
	}
	if body.Entries[3].PointsBehindLeader != 20 {
		t.Errorf("tail should be 20 behind, got %d", body.Entries[3].PointsBehindLeader)
	}
}

func TestLeaderboardCategoryFilter(t *testing.T) {
	server := newTestServer(t, &staticProvider{questions: sampleBatch()}, seedStore(t))

	resp, err := http.Get(server.URL + "/leaderboard?category=Science")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var body leaderboardResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// Only player c has Science history; everyone else totals zero.
	if body.Entries[0].PlayerID != "c@example.com" || body.Entries[0].TotalScore != 90 {
		t.Fatalf("expected c leading Science with 90, got %+v", body.Entries[0])
	}
}

func TestLeaderboardQueryFailure(t *testing.T) {
	server := newTestServer(t, &staticProvider{questions: sampleBatch()}, failingStore{})

	resp, err := http.Get(server.URL + "/leaderboard")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}

	var body leaderboardResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Entries) != 0 || body.Error == "" {
		t.Fatalf("expected empty entries with error flag, got %+v", body)
	}
}

func TestPlayerStatsEndpoint(t *testing.T) {
	server := newTestServer(t, &staticProvider{questions: sampleBatch()}, seedStore(t))

	resp, err := http.Get(server.URL + "/players/stats?email=a@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var stats struct {
		TotalScore       int     `json:"totalScore"`
		Rank             int     `json:"rank"`
		BestSingleScore  int     `json:"bestSingleScore"`
		PointsBehindLead int     `json:"pointsBehindLeader"`
		Percentile       float64 `json:"percentile"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.TotalScore != 100 || stats.Rank != 1 {
		t.Fatalf("expected total 100 rank 1, got %+v", stats)
	}
	if stats.BestSingleScore != 50 {
		t.Fatalf("expected best single 50, got %d", stats.BestSingleScore)
	}
}

func TestPlayerStatsNotFound(t *testing.T) {
	server := newTestServer(t, &staticProvider{questions: sampleBatch()}, seedStore(t))

	resp, err := http.Get(server.URL + "/players/stats?email=nobody@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
