package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/quizforge/quizforge/internal/auth"
	"github.com/quizforge/quizforge/internal/quiz"
	"github.com/quizforge/quizforge/internal/scoring"
)

// StudySubmitHandler grades one question immediately and records a history
// row for it. The answer key and explanation come back with the score so
// the client can show feedback.
func StudySubmitHandler(store quiz.Store, engine *scoring.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		testID := chi.URLParam(r, "testID")
		var req struct {
			QuestionID string `json:"question_id"`
			Answer     any    `json:"answer"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		q, err := store.GetQuestion(r.Context(), req.QuestionID)
		if err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		if q.TestID != testID {
			http.Error(w, "question not in test", http.StatusBadRequest)
			return
		}
		d, warns := quiz.Decode(q)
		for _, wn := range warns {
			log.Printf("study submit: %s", wn)
		}
		if !engine.Scoreable(q.Type) {
			http.Error(w, "question type is not scored; use the flashcard endpoint", http.StatusBadRequest)
			return
		}
		score := engine.Score(d, req.Answer)

		answers, _ := json.Marshal(map[string]any{q.ID: req.Answer})
		h, err := store.CreateHistory(r.Context(), quiz.History{
			UserID:  userID,
			TestID:  testID,
			Mode:    quiz.ModeStudy,
			Score:   score,
			Answers: string(answers),
		})
		if err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"score":       score,
			"correct":     q.Correct,
			"explanation": q.Explanation,
			"history_id":  h.ID,
		})
	}
}

// FlashcardSubmitHandler records an ungraded self-review. The score is the
// learner's own call and is passed through unchanged.
func FlashcardSubmitHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		testID := chi.URLParam(r, "testID")
		var req struct {
			QuestionID string  `json:"question_id"`
			SelfScore  float64 `json:"self_score"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		q, err := store.GetQuestion(r.Context(), req.QuestionID)
		if err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		if q.TestID != testID {
			http.Error(w, "question not in test", http.StatusBadRequest)
			return
		}
		answers, _ := json.Marshal(map[string]any{q.ID: req.SelfScore})
		h, err := store.CreateHistory(r.Context(), quiz.History{
			UserID:  userID,
			TestID:  testID,
			Mode:    quiz.ModeFlashcard,
			Score:   req.SelfScore,
			Answers: string(answers),
		})
		if err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"history_id": h.ID})
	}
}
