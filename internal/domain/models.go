package domain

import "time"

// PointsPerCorrect is the fixed score awarded for each correct answer.
const PointsPerCorrect = 10

// Question is a normalized multiple-choice question. Options hold the four
// possible answers in presentation order; CorrectOption is always one of them.
type Question struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption string   `json:"correctOption"`
}

// Answer records the outcome of a single question. A nil ChosenOption means
// the per-question timer expired before the player selected anything.
type Answer struct {
	QuestionIndex int     `json:"questionIndex"`
	ChosenOption  *string `json:"chosenOption"`
	CorrectOption string  `json:"correctOption"`
	IsCorrect     bool    `json:"isCorrect"`
}

// QuizResult is the persisted outcome of one completed session.
type QuizResult struct {
	PlayerID  string    `json:"playerId"`
	Category  string    `json:"category"`
	Score     int       `json:"score"`
	Accuracy  int       `json:"accuracy"`
	CreatedAt time.Time `json:"createdAt"`
}

// Player is a result-store record: identity plus full result history.
type Player struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	History []QuizResult `json:"quizResults"`
}

// LeaderboardEntry is a derived ranking view. It is recomputed on every
// ranking request and never cached, since history can change between requests.
type LeaderboardEntry struct {
	Player     Player `json:"player"`
	TotalScore int    `json:"totalScore"`
	Rank       int    `json:"rank"`
}

// ResultFilter narrows a result-store query. Zero values mean "no filter".
type ResultFilter struct {
	Category string
	PlayerID string
}
