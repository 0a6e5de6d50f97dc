package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"quizwhiz-service/internal/app"
	"quizwhiz-service/internal/domain"
	"quizwhiz-service/internal/leaderboard"
)

// APIHandler serves the read-side JSON endpoints: the ranked leaderboard and
// per-player standing stats.
type APIHandler struct {
	service *app.GameService
}

func NewAPIHandler(service *app.GameService) *APIHandler {
	return &APIHandler{service: service}
}

type leaderboardEntryView struct {
	Rank               int     `json:"rank"`
	PlayerID           string  `json:"playerId"`
	Name               string  `json:"name"`
	TotalScore         int     `json:"totalScore"`
	Percentile         float64 `json:"percentile"`
	PointsBehindLeader int     `json:"pointsBehindLeader"`
	BestSingleScore    int     `json:"bestSingleScore"`
	GamesPlayed        int     `json:"gamesPlayed"`
}

type leaderboardResponse struct {
	Entries []leaderboardEntryView `json:"entries"`
	Error   string                 `json:"error,omitempty"`
}

// Leaderboard handles GET /leaderboard?category=&email=. A failed history
// query returns an empty list with an error flag, never a partial ranking.
func (h *APIHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	filter := domain.ResultFilter{
		Category: r.URL.Query().Get("category"),
		PlayerID: r.URL.Query().Get("email"),
	}

	entries, err := h.service.Leaderboard(r.Context(), filter)
	if err != nil {
		log.Printf("leaderboard query failed: %v", err)
		writeJSON(w, http.StatusBadGateway, leaderboardResponse{
			Entries: []leaderboardEntryView{},
			Error:   domain.ErrQueryFailed.Error(),
		})
		return
	}

	views := make([]leaderboardEntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, leaderboardEntryView{
			Rank:               entry.Rank,
			PlayerID:           entry.Player.ID,
			Name:               entry.Player.Name,
			TotalScore:         entry.TotalScore,
			Percentile:         leaderboard.Percentile(entry, len(entries)),
			PointsBehindLeader: leaderboard.PointsBehindLeader(entries, entry),
			BestSingleScore:    leaderboard.BestSingleScore(entry.Player),
			GamesPlayed:        len(entry.Player.History),
		})
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{Entries: views})
}

// PlayerStats handles GET /players/stats?email=.
func (h *APIHandler) PlayerStats(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("email")
	if playerID == "" {
		http.Error(w, "missing email", http.StatusBadRequest)
		return
	}

	stats, err := h.service.PlayerStats(r.Context(), playerID)
	switch {
	case errors.Is(err, domain.ErrPlayerNotFound):
		http.Error(w, "player not found", http.StatusNotFound)
		return
	case err != nil:
		log.Printf("player stats query failed: %v", err)
		http.Error(w, "stats unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}

// NewRouter wires all HTTP surfaces onto one mux.
func NewRouter(service *app.GameService) *http.ServeMux {
	wsHandler := NewWSHandler(service)
	apiHandler := NewAPIHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws/play", wsHandler.ServeWS)
	mux.HandleFunc("/leaderboard", apiHandler.Leaderboard)
	mux.HandleFunc("/players/stats", apiHandler.PlayerStats)
	return mux
}
