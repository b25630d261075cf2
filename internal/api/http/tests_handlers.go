package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/quizforge/quizforge/internal/quiz"
)

// questionView is the student-safe shape of a question: decoded options,
// no answer key.
type questionView struct {
	ID          string            `json:"id"`
	Type        quiz.QuestionType `json:"type"`
	Text        string            `json:"text"`
	Options     []string          `json:"options,omitempty"`
	Terms       []quiz.MatchItem  `json:"terms,omitempty"`
	Definitions []quiz.MatchItem  `json:"definitions,omitempty"`
	Explanation string            `json:"explanation,omitempty"`
	Image       string            `json:"image,omitempty"`
}

// viewOf decodes q for delivery. Explanations ride along only when
// withExplanation is set (study mode shows them, simulation must not).
func viewOf(q quiz.Question, withExplanation bool) questionView {
	d, warns := quiz.Decode(q)
	for _, w := range warns {
		log.Printf("decode: %s", w)
	}
	v := questionView{
		ID:          q.ID,
		Type:        q.Type,
		Text:        q.Text,
		Options:     d.Options,
		Terms:       d.Terms,
		Definitions: d.Definitions,
		Image:       q.Image,
	}
	if withExplanation {
		v.Explanation = q.Explanation
	}
	return v
}

func ListTestsHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tests, err := store.ListTests(r.Context())
		if err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		if tests == nil {
			tests = []quiz.Test{}
		}
		_ = json.NewEncoder(w).Encode(tests)
	}
}

func GetTestHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "testID")
		test, err := store.GetTest(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		questions, err := store.ListQuestions(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		views := make([]questionView, 0, len(questions))
		for _, q := range questions {
			views = append(views, viewOf(q, false))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"test":      test,
			"questions": views,
		})
	}
}
