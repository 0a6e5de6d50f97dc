package questionbank

import (
	"context"
	"fmt"
	"html"
	"math/rand"
	"sync"
	"time"

	"quizwhiz-service/internal/domain"
	"quizwhiz-service/internal/opentdb"
)

// Source fetches raw question records, typically the Open Trivia DB client or
// a caching layer wrapping it.
type Source interface {
	Fetch(ctx context.Context, categoryID, amount int) ([]opentdb.RawQuestion, error)
}

// Adapter normalizes raw records into domain questions: it decodes
// HTML-entity-escaped text and produces a fresh option ordering per question
// with a Fisher-Yates shuffle, so every session sees an independent layout.
type Adapter struct {
	source Source

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewAdapter builds an adapter with a time-seeded shuffle source.
func NewAdapter(source Source) *Adapter {
	return NewAdapterWithRand(source, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewAdapterWithRand allows deterministic shuffles in tests.
func NewAdapterWithRand(source Source, rnd *rand.Rand) *Adapter {
	return &Adapter{source: source, rnd: rnd}
}

// FetchBatch returns exactly count normalized questions for the category.
// Malformed records are rejected at this boundary; a transport failure or a
// short batch yields domain.ErrSourceUnavailable so the session engine never
// enters its active state with an incomplete batch.
func (a *Adapter) FetchBatch(ctx context.Context, categoryID, count int) ([]domain.Question, error) {
	if count <= 0 {
		count = opentdb.DefaultAmount
	}

	raw, err := a.source.Fetch(ctx, categoryID, count)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}

	questions := make([]domain.Question, 0, count)
	for _, record := range raw {
		question, ok := a.normalize(record)
		if !ok {
			continue
		}
		questions = append(questions, question)
		if len(questions) == count {
			break
		}
	}

	if len(questions) < count {
		return nil, fmt.Errorf("%w: got %d of %d questions", domain.ErrSourceUnavailable, len(questions), count)
	}
	return questions, nil
}

func (a *Adapter) normalize(record opentdb.RawQuestion) (domain.Question, bool) {
	if record.Question == "" || record.CorrectAnswer == "" || len(record.IncorrectAnswers) != 3 {
		return domain.Question{}, false
	}

	correct := html.UnescapeString(record.CorrectAnswer)
	options := make([]string, 0, len(record.IncorrectAnswers)+1)
	for _, incorrect := range record.IncorrectAnswers {
		if incorrect == "" {
			return domain.Question{}, false
		}
		options = append(options, html.UnescapeString(incorrect))
	}
	options = append(options, correct)

	seen := make(map[string]struct{}, len(options))
	for _, option := range options {
		if _, dup := seen[option]; dup {
			return domain.Question{}, false
		}
		seen[option] = struct{}{}
	}

	a.mu.Lock()
	a.rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	a.mu.Unlock()

	return domain.Question{
		Text:          html.UnescapeString(record.Question),
		Options:       options,
		CorrectOption: correct,
	}, true
}
