package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/quizforge/quizforge/internal/auth"
	"github.com/quizforge/quizforge/internal/quiz"
	"github.com/quizforge/quizforge/internal/storage"
)

type testWrite struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	TimeLimitMin int    `json:"time_limit_min"`
	NumQuestions int    `json:"num_questions"`
}

func CreateTestHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req testWrite
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Name == "" {
			http.Error(w, "name required", http.StatusUnprocessableEntity)
			return
		}
		t := quiz.Test{
			ID:           uuid.NewString(),
			Name:         req.Name,
			Description:  req.Description,
			TimeLimitMin: req.TimeLimitMin,
			NumQuestions: req.NumQuestions,
		}
		if err := store.PutTest(r.Context(), t); err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		_ = json.NewEncoder(w).Encode(t)
	}
}

func UpdateTestHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "testID")
		t, err := store.GetTest(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		var req testWrite
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Name != "" {
			t.Name = req.Name
		}
		t.Description = req.Description
		t.TimeLimitMin = req.TimeLimitMin
		t.NumQuestions = req.NumQuestions
		if err := store.PutTest(r.Context(), t); err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		_ = json.NewEncoder(w).Encode(t)
	}
}

func DeleteTestHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteTest(r.Context(), chi.URLParam(r, "testID")); err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// questionWrite carries a question in decoded form; the codec validates
// and serializes it before anything reaches the store.
type questionWrite struct {
	Type        quiz.QuestionType `json:"type"`
	Text        string            `json:"text"`
	Options     []string          `json:"options,omitempty"`
	Correct     string            `json:"correct,omitempty"`     // mcq, tf
	CorrectSet  []string          `json:"correct_set,omitempty"` // mrq
	Terms       []quiz.MatchItem  `json:"terms,omitempty"`
	Definitions []quiz.MatchItem  `json:"definitions,omitempty"`
	Mapping     map[string]string `json:"mapping,omitempty"`
	Explanation string            `json:"explanation,omitempty"`
	Image       string            `json:"image,omitempty"`
}

func (in questionWrite) toQuestion(id, testID string) (quiz.Question, error) {
	opts, correct, err := quiz.Encode(quiz.Decoded{
		Type:        in.Type,
		Options:     in.Options,
		CorrectKey:  in.Correct,
		CorrectSet:  in.CorrectSet,
		Terms:       in.Terms,
		Definitions: in.Definitions,
		Mapping:     in.Mapping,
	})
	if err != nil {
		return quiz.Question{}, err
	}
	return quiz.Question{
		ID:          id,
		TestID:      testID,
		Type:        in.Type,
		Text:        in.Text,
		Options:     opts,
		Correct:     correct,
		Explanation: in.Explanation,
		Image:       quiz.NormalizeImageRef(in.Image),
	}, nil
}

func AddQuestionHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		testID := chi.URLParam(r, "testID")
		var req questionWrite
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		q, err := req.toQuestion(uuid.NewString(), testID)
		if err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		if err := store.PutQuestion(r.Context(), q); err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		_ = json.NewEncoder(w).Encode(q)
	}
}

func UpdateQuestionHandler(store quiz.Store, bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "questionID")
		old, err := store.GetQuestion(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		var req questionWrite
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		q, err := req.toQuestion(id, old.TestID)
		if err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		if err := store.PutQuestion(r.Context(), q); err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		// Orphaned image files are removed once nothing references them.
		if old.Image != "" && old.Image != q.Image && bs != nil {
			_ = bs.Delete(old.Image)
		}
		_ = json.NewEncoder(w).Encode(q)
	}
}

func DeleteQuestionHandler(store quiz.Store, bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "questionID")
		q, err := store.GetQuestion(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		if err := store.DeleteQuestion(r.Context(), id); err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		if q.Image != "" && bs != nil {
			_ = bs.Delete(q.Image)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /admin/users  { "username": "...", "password": "...", "role": "user|admin" }
func CreateUserHandler(users *auth.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		u, err := users.Create(r.Context(), req.Username, req.Password, req.Role)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(u)
	}
}
