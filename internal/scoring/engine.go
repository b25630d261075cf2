// Package scoring computes per-question scores in [0,1] from decoded
// questions and submitted answers. It never inspects raw stored payloads;
// that is the quiz codec's job.
package scoring

import (
	"strings"

	"github.com/quizforge/quizforge/internal/quiz"
)

// Strategy scores a single question type. A nil or shape-mismatched
// submission scores 0.0 rather than erroring.
type Strategy interface {
	Score(q quiz.Decoded, submitted any) float64
}

// Engine routes by question type to the matching Strategy.
type Engine struct {
	strategies map[quiz.QuestionType]Strategy
}

type Option func(*Engine)

// WithStrategy overrides or adds the strategy for one question type.
func WithStrategy(t quiz.QuestionType, s Strategy) Option {
	return func(e *Engine) { e.strategies[t] = s }
}

// NewEngine installs the built-in strategies. Flashcards have none: they
// are self-assessed and any score is supplied by the caller, not computed
// here.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{strategies: map[quiz.QuestionType]Strategy{
		quiz.TypeMCQ:       mcqStrategy{},
		quiz.TypeTrueFalse: trueFalseStrategy{},
		quiz.TypeMRQ:       mrqStrategy{},
		quiz.TypeMatch:     matchStrategy{},
	}}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Scoreable reports whether the engine computes a score for type t.
func (e *Engine) Scoreable(t quiz.QuestionType) bool {
	_, ok := e.strategies[t]
	return ok
}

// Score grades one submission. Unknown types and absent submissions score
// 0.0.
func (e *Engine) Score(q quiz.Decoded, submitted any) float64 {
	s, ok := e.strategies[q.Type]
	if !ok || submitted == nil {
		return 0
	}
	return s.Score(q, submitted)
}

// Total sums per-question scores over a fixed question list and an answer
// map keyed by question id. The sum is fractional (match gives partial
// credit) and deliberately not normalized to a percentage.
func (e *Engine) Total(questions []quiz.Decoded, answers map[string]any) float64 {
	total := 0.0
	for _, q := range questions {
		if !e.Scoreable(q.Type) {
			continue
		}
		sub, ok := answers[q.ID]
		if !ok {
			continue
		}
		total += e.Score(q, sub)
	}
	return total
}

// --- strategies ---

type mcqStrategy struct{}

func (mcqStrategy) Score(q quiz.Decoded, submitted any) float64 {
	sub, ok := asString(submitted)
	if !ok || q.CorrectKey == "" {
		return 0
	}
	if sub == q.CorrectKey {
		return 1
	}
	return 0
}

type trueFalseStrategy struct{}

func (trueFalseStrategy) Score(q quiz.Decoded, submitted any) float64 {
	sub, ok := asString(submitted)
	if !ok || q.CorrectKey == "" {
		return 0
	}
	if strings.EqualFold(sub, q.CorrectKey) {
		return 1
	}
	return 0
}

// mrqStrategy is all-or-nothing: the submitted set must equal the correct
// set exactly. No credit for subsets or supersets.
type mrqStrategy struct{}

func (mrqStrategy) Score(q quiz.Decoded, submitted any) float64 {
	sub, ok := asStringSlice(submitted)
	if !ok || len(q.CorrectSet) == 0 {
		return 0
	}
	if setEqual(toSet(sub), toSet(q.CorrectSet)) {
		return 1
	}
	return 0
}

// matchStrategy gives partial credit: matched pairs over the size of the
// correct mapping. Submitted terms outside the mapping are ignored.
type matchStrategy struct{}

func (matchStrategy) Score(q quiz.Decoded, submitted any) float64 {
	if len(q.Mapping) == 0 {
		return 0
	}
	sub, ok := asStringMap(submitted)
	if !ok {
		return 0
	}
	hits := 0
	for term, def := range q.Mapping {
		if sub[term] == def {
			hits++
		}
	}
	return float64(hits) / float64(len(q.Mapping))
}

// --- submission coercion ---

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asStringSlice(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func asStringMap(v any) (map[string]string, bool) {
	switch t := v.(type) {
	case map[string]string:
		return t, true
	case map[string]any:
		out := make(map[string]string, len(t))
		for k, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out[k] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func toSet(arr []string) map[string]struct{} {
	m := make(map[string]struct{}, len(arr))
	for _, s := range arr {
		m[s] = struct{}{}
	}
	return m
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
