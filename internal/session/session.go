package session

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"sync"
	"time"

	"quizwhiz-service/internal/domain"
	"quizwhiz-service/internal/timer"
)

// State is the phase of a quiz session. Transitions are linear:
// Intro -> Active -> Results, with Restart as the only way back to Intro.
type State int

const (
	Intro State = iota
	Active
	Results
)

func (s State) String() string {
	switch s {
	case Intro:
		return "intro"
	case Active:
		return "active"
	case Results:
		return "results"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the state by name so wire payloads stay readable.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Reporter persists a completed session's outcome. The call is synchronous
// request/response with the result store but the session invokes it from its
// own goroutine so the results view is never blocked on persistence.
type Reporter interface {
	Report(ctx context.Context, result domain.QuizResult) error
}

// Config carries per-session metadata fixed at construction.
type Config struct {
	PlayerID string
	Category string
	// SecondsPerQuestion bounds how long a question may stay unanswered.
	// Defaults to 30.
	SecondsPerQuestion int
	// AdvanceDelay is the acknowledgment pause, in seconds, between an answer
	// (or timeout) and the next question. Defaults to 1.
	AdvanceDelay int
}

const (
	defaultSecondsPerQuestion = 30
	defaultAdvanceDelay       = 1
	reportTimeout             = 10 * time.Second
)

// EventType tags session events pushed to subscribers.
type EventType string

const (
	EventState    EventType = "state"
	EventQuestion EventType = "question"
	EventTick     EventType = "tick"
	EventAnswer   EventType = "answerResult"
	EventResults  EventType = "results"
)

// Event is a state-change notification carrying a full snapshot; Answer is
// set on answerResult events.
type Event struct {
	Type     EventType
	Snapshot Snapshot
	Answer   *domain.Answer
}

// Snapshot is a read-only copy of the session observable state. Question text
// and options are populated while the session is active; the correct option
// only ever surfaces through recorded answers.
type Snapshot struct {
	State         State           `json:"state"`
	PlayerID      string          `json:"playerId"`
	Category      string          `json:"category"`
	QuestionIndex int             `json:"questionIndex"`
	QuestionCount int             `json:"questionCount"`
	QuestionText  string          `json:"questionText,omitempty"`
	Options       []string        `json:"options,omitempty"`
	TimeLeft      int             `json:"timeLeft"`
	Score         int             `json:"score"`
	Answers       []domain.Answer `json:"answers"`
	CorrectCount  int             `json:"correctCount"`
	Accuracy      int             `json:"accuracy"`
}

// Session drives one run through a fixed question batch. All state mutation
// happens under a single mutex, in response to exactly two external event
// kinds: timer callbacks and Submit calls. Whichever of a timeout and a
// submission is processed first wins; the other is a no-op because the
// answered guard is checked before any mutation. Stale timer callbacks from a
// superseded question or a restarted session are rejected by an epoch check.
type Session struct {
	cfg      Config
	reporter Reporter
	now      func() time.Time

	mu          sync.Mutex
	state       State
	questions   []domain.Question
	current     int
	answers     []domain.Answer
	score       int
	timeLeft    int
	answered    bool
	epoch       int
	reported    bool
	countdown   *timer.Countdown
	advance     *timer.Countdown
	subscribers map[chan Event]struct{}
}

// New builds a session in Intro state over an already-fetched batch.
func New(cfg Config, questions []domain.Question, reporter Reporter, clock timer.Clock) *Session {
	if cfg.SecondsPerQuestion <= 0 {
		cfg.SecondsPerQuestion = defaultSecondsPerQuestion
	}
	if cfg.AdvanceDelay <= 0 {
		cfg.AdvanceDelay = defaultAdvanceDelay
	}
	if clock == nil {
		clock = timer.SystemClock()
	}
	return &Session{
		cfg:         cfg,
		reporter:    reporter,
		now:         time.Now,
		questions:   questions,
		timeLeft:    cfg.SecondsPerQuestion,
		countdown:   timer.New(clock, time.Second),
		advance:     timer.New(clock, time.Second),
		subscribers: make(map[chan Event]struct{}),
	}
}

// Start moves the session from Intro to Active and arms the first question's
// countdown. A batch with zero questions is invalid.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Intro {
		return domain.ErrSessionNotActive
	}
	if len(s.questions) == 0 {
		return domain.ErrEmptyBatch
	}

	s.state = Active
	s.current = 0
	s.score = 0
	s.answers = s.answers[:0]
	s.answered = false
	s.timeLeft = s.cfg.SecondsPerQuestion
	s.epoch++

	s.armQuestionLocked()
	s.broadcastLocked(Event{Type: EventQuestion, Snapshot: s.snapshotLocked()})
	return nil
}

// Submit records the player's option for the current question. At most one
// answer is ever recorded per question: once a submission or a timeout has
// been applied, further calls return the recorded answer and ErrAlreadyAnswered
// without touching score or answers.
func (s *Session) Submit(option string) (domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Active {
		return domain.Answer{}, domain.ErrSessionNotActive
	}
	if s.answered {
		return s.answers[len(s.answers)-1], domain.ErrAlreadyAnswered
	}

	s.countdown.Cancel()

	question := s.questions[s.current]
	chosen := option
	answer := domain.Answer{
		QuestionIndex: s.current,
		ChosenOption:  &chosen,
		CorrectOption: question.CorrectOption,
		IsCorrect:     option == question.CorrectOption,
	}
	s.recordLocked(answer)
	return answer, nil
}

// Restart cancels any pending timers and returns the session to Intro with
// all per-run state cleared, ready for a fresh Start over the same batch.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelTimersLocked()
	s.state = Intro
	s.current = 0
	s.score = 0
	s.answers = nil
	s.answered = false
	s.reported = false
	s.timeLeft = s.cfg.SecondsPerQuestion
}

// Close cancels timers and drops all subscribers. Call on teardown so a stale
// tick can never reach a superseded session.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelTimersLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// Snapshot returns a copy of the current observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel of session events, primed with a snapshot of
// the current state. The returned cancel function must be called to avoid
// leaking the subscription.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := Event{Type: EventState, Snapshot: s.snapshotLocked()}
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) armQuestionLocked() {
	epoch := s.epoch
	s.countdown.Start(s.timeLeft,
		func(remaining int) { s.onTick(epoch, remaining) },
		func() { s.onExpire(epoch) },
	)
}

func (s *Session) onTick(epoch, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch || s.state != Active || s.answered {
		return
	}
	s.timeLeft = remaining
	s.broadcastLocked(Event{Type: EventTick, Snapshot: s.snapshotLocked()})
}

// onExpire synthesizes a timeout answer: no chosen option, counted incorrect.
func (s *Session) onExpire(epoch int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch || s.state != Active || s.answered {
		return
	}

	s.timeLeft = 0
	question := s.questions[s.current]
	s.recordLocked(domain.Answer{
		QuestionIndex: s.current,
		ChosenOption:  nil,
		CorrectOption: question.CorrectOption,
		IsCorrect:     false,
	})
}

func (s *Session) recordLocked(answer domain.Answer) {
	s.answers = append(s.answers, answer)
	s.answered = true
	if answer.IsCorrect {
		s.score += domain.PointsPerCorrect
	}

	s.broadcastLocked(Event{Type: EventAnswer, Snapshot: s.snapshotLocked(), Answer: &answer})

	epoch := s.epoch
	s.advance.Start(s.cfg.AdvanceDelay,
		func(int) {},
		func() { s.onAdvance(epoch) },
	)
}

func (s *Session) onAdvance(epoch int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch || s.state != Active || !s.answered {
		return
	}

	if s.current+1 < len(s.questions) {
		s.current++
		s.answered = false
		s.timeLeft = s.cfg.SecondsPerQuestion
		s.epoch++
		s.armQuestionLocked()
		s.broadcastLocked(Event{Type: EventQuestion, Snapshot: s.snapshotLocked()})
		return
	}
	s.finishLocked()
}

func (s *Session) finishLocked() {
	s.state = Results
	s.cancelTimersLocked()

	snapshot := s.snapshotLocked()
	if !s.reported && s.reporter != nil {
		s.reported = true
		result := domain.QuizResult{
			PlayerID:  s.cfg.PlayerID,
			Category:  s.cfg.Category,
			Score:     snapshot.Score,
			Accuracy:  snapshot.Accuracy,
			CreatedAt: s.now().UTC(),
		}
		go s.report(result)
	}

	s.broadcastLocked(Event{Type: EventResults, Snapshot: snapshot})
}

// report runs outside the session lock; a store failure is a non-fatal
// warning and the locally computed numbers stay authoritative.
func (s *Session) report(result domain.QuizResult) {
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()
	if err := s.reporter.Report(ctx, result); err != nil {
		log.Printf("warning: failed to save quiz result for %s: %v", result.PlayerID, err)
	}
}

func (s *Session) cancelTimersLocked() {
	s.epoch++
	s.countdown.Cancel()
	s.advance.Cancel()
}

func (s *Session) snapshotLocked() Snapshot {
	snapshot := Snapshot{
		State:         s.state,
		PlayerID:      s.cfg.PlayerID,
		Category:      s.cfg.Category,
		QuestionIndex: s.current,
		QuestionCount: len(s.questions),
		TimeLeft:      s.timeLeft,
		Score:         s.score,
		Answers:       append([]domain.Answer(nil), s.answers...),
	}

	if s.state == Active {
		question := s.questions[s.current]
		snapshot.QuestionText = question.Text
		snapshot.Options = append([]string(nil), question.Options...)
	}

	for _, answer := range s.answers {
		if answer.IsCorrect {
			snapshot.CorrectCount++
		}
	}
	if s.state == Results && len(s.questions) > 0 {
		snapshot.Accuracy = int(math.Round(float64(snapshot.CorrectCount) * 100 / float64(len(s.questions))))
	}
	return snapshot
}

func (s *Session) broadcastLocked(event Event) {
	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Drop the oldest event so a slow consumer never blocks the engine.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}
