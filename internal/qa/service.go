package qa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/conorfennell/studyplan/internal/domain"
	"github.com/conorfennell/studyplan/internal/extract"
	"github.com/conorfennell/studyplan/internal/gemini"
	"github.com/conorfennell/studyplan/internal/knol"
)

// Answerer generates answers; *gemini.Client satisfies it.
type Answerer interface {
	Answer(ctx context.Context, question string) gemini.Result
	Complete(ctx context.Context, prompt string) gemini.Result
}

// AnswerCache stores generated answers by question hash.
type AnswerCache interface {
	GetAnswer(ctx context.Context, hash string) (*domain.CachedAnswer, error)
	PutAnswer(ctx context.Context, hash string, a domain.CachedAnswer) error
}

// Failure records a question that could not be answered.
type Failure struct {
	Question string        `json:"question"`
	Reason   gemini.Reason `json:"reason"`
	Detail   string        `json:"detail,omitempty"`
}

// Batch is the result of answering every question found in a text.
// Limited is set when the answerer ran out of quota; questions after that
// point are not attempted.
type Batch struct {
	Pairs   []domain.QAPair `json:"pairs"`
	Total   int             `json:"total"`
	Limited bool            `json:"limited"`
	Failed  []Failure       `json:"failed,omitempty"`
}

// GenerationError is returned when the answerer fails outright.
type GenerationError struct {
	Reason gemini.Reason
	Detail string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("answer generation failed (%s): %s", e.Reason, e.Detail)
}

// Service turns exam text into question/answer pairs.
type Service struct {
	answerer Answerer
	cache    AnswerCache
}

// NewService creates a new Q&A service. cache may be nil.
func NewService(answerer Answerer, cache AnswerCache) *Service {
	return &Service{answerer: answerer, cache: cache}
}

// Generate extracts the questions in text and answers each one, using the
// cache where possible. Pairs keep extraction order.
func (s *Service) Generate(ctx context.Context, text string) (Batch, error) {
	questions := extract.Extract(text)
	batch := Batch{Total: len(questions)}

	for _, q := range questions {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		hash := knol.Hash(q.Text)
		if cached := s.lookup(ctx, hash); cached != nil {
			batch.Pairs = append(batch.Pairs, newPair(q, cached.Answer, cached.SearchQuery))
			continue
		}

		res := s.answerer.Answer(ctx, q.Text)
		if res.RateLimited() {
			slog.Warn("Answer generation rate limited, stopping batch",
				"answered", len(batch.Pairs),
				"total", len(questions),
			)
			batch.Limited = true
			break
		}
		if !res.OK() {
			slog.Warn("Failed to answer question", "reason", res.Reason, "detail", res.Detail)
			batch.Failed = append(batch.Failed, Failure{Question: q.Text, Reason: res.Reason, Detail: res.Detail})
			continue
		}

		if !res.Placeholder {
			s.store(ctx, hash, domain.CachedAnswer{Question: q.Text, Answer: res.Answer, SearchQuery: res.SearchQuery})
		}
		batch.Pairs = append(batch.Pairs, newPair(q, res.Answer, res.SearchQuery))
	}

	return batch, nil
}

// Chat answers a free-form message using pairs as context.
func (s *Service) Chat(ctx context.Context, pairs []domain.QAPair, message string) (string, error) {
	res := s.answerer.Complete(ctx, ChatPrompt(pairs, message))
	if !res.OK() {
		return "", &GenerationError{Reason: res.Reason, Detail: res.Detail}
	}
	return res.Answer, nil
}

// ChatPrompt builds the prompt sent for a chat message.
func ChatPrompt(pairs []domain.QAPair, message string) string {
	blocks := make([]string, 0, len(pairs))
	for _, p := range pairs {
		blocks = append(blocks, fmt.Sprintf("Q: %s\nA: %s", p.Question, p.Answer))
	}
	return fmt.Sprintf("Based on the following Q&A pairs:\n\n%s\n\nUser question: %s\n\nProvide an answer:",
		strings.Join(blocks, "\n\n"), message)
}

func (s *Service) lookup(ctx context.Context, hash string) *domain.CachedAnswer {
	if s.cache == nil {
		return nil
	}
	a, err := s.cache.GetAnswer(ctx, hash)
	if err != nil {
		slog.Warn("Failed to read answer cache", "hash", hash, "error", err)
		return nil
	}
	return a
}

func (s *Service) store(ctx context.Context, hash string, a domain.CachedAnswer) {
	if s.cache == nil {
		return
	}
	if err := s.cache.PutAnswer(ctx, hash, a); err != nil {
		slog.Warn("Failed to write answer cache", "hash", hash, "error", err)
	}
}

func newPair(q domain.Question, answer, searchQuery string) domain.QAPair {
	return domain.QAPair{
		ID:          uuid.NewString(),
		Question:    q.Text,
		Answer:      answer,
		Difficulty:  q.Difficulty,
		SearchQuery: searchQuery,
	}
}
