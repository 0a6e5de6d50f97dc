package domain

import "errors"

var (
	// ErrSourceUnavailable is returned when the question source is unreachable
	// or delivers fewer valid questions than requested.
	ErrSourceUnavailable = errors.New("question source unavailable")
	// ErrEmptyBatch is returned when a session is started with zero questions.
	ErrEmptyBatch = errors.New("empty question batch")
	// ErrSubmitRejected indicates the result store refused a completed result.
	ErrSubmitRejected = errors.New("result submission rejected")
	// ErrQueryFailed indicates the leaderboard history could not be fetched.
	ErrQueryFailed = errors.New("leaderboard query failed")
	// ErrSessionNotActive is returned when an answer arrives outside Active state.
	ErrSessionNotActive = errors.New("session is not active")
	// ErrAlreadyAnswered indicates the current question already has an answer recorded.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrPlayerNotFound indicates the requested player has no stored results.
	ErrPlayerNotFound = errors.New("player not found")
)
