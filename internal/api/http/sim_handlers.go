package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/quizforge/quizforge/internal/auth"
	"github.com/quizforge/quizforge/internal/quiz"
	"github.com/quizforge/quizforge/internal/session"
	syncx "github.com/quizforge/quizforge/internal/sync"
)

// SimStateHandler reports where the user stands for a test: either the
// configuration form inputs or the in-progress view. Touching an expired
// session finalizes it here too.
func SimStateHandler(store quiz.Store, machine *session.Machine, events *syncx.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		testID := chi.URLParam(r, "testID")

		if _, ok := machine.Active(userID, testID); !ok {
			writeConfiguring(w, r, store, testID)
			return
		}
		res, err := machine.Step(r.Context(), userID, testID, session.ActionNone, "", nil)
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				writeConfiguring(w, r, store, testID)
				return
			}
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		writeStepResult(w, r, res, events)
	}
}

// SimConfigureHandler starts a new attempt. An out-of-range question count
// is a 422 and leaves the user on the configuration step.
func SimConfigureHandler(machine *session.Machine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		testID := chi.URLParam(r, "testID")
		var req struct {
			NumQuestions int  `json:"num_questions"`
			TimeLimitMin *int `json:"time_limit_min"` // absent = test default, 0 = unlimited
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		limit := -1
		if req.TimeLimitMin != nil {
			limit = *req.TimeLimitMin
		}
		v, err := machine.Configure(r.Context(), userID, testID, req.NumQuestions, limit)
		if err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		writeView(w, v)
	}
}

// SimStepHandler records the current answer (if any) and navigates.
func SimStepHandler(machine *session.Machine, events *syncx.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		testID := chi.URLParam(r, "testID")
		var req struct {
			Action     string `json:"action"` // next|prev|submit
			QuestionID string `json:"question_id,omitempty"`
			Answer     any    `json:"answer,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		res, err := machine.Step(r.Context(), userID, testID, session.Action(req.Action), req.QuestionID, req.Answer)
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				w.WriteHeader(http.StatusConflict)
				_ = json.NewEncoder(w).Encode(map[string]any{"state": "configuring"})
				return
			}
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		writeStepResult(w, r, res, events)
	}
}

// SimStopHandler abandons the session without recording history.
func SimStopHandler(machine *session.Machine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		machine.Stop(userID)
		_ = json.NewEncoder(w).Encode(map[string]any{"state": "configuring"})
	}
}

func writeConfiguring(w http.ResponseWriter, r *http.Request, store quiz.Store, testID string) {
	test, err := store.GetTest(r.Context(), testID)
	if err != nil {
		http.Error(w, err.Error(), errStatus(err))
		return
	}
	questions, err := store.ListQuestions(r.Context(), testID)
	if err != nil {
		http.Error(w, err.Error(), errStatus(err))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"state":                  "configuring",
		"available":              len(questions),
		"default_time_limit_min": test.TimeLimitMin,
	})
}

func writeStepResult(w http.ResponseWriter, r *http.Request, res session.StepResult, events *syncx.EventRepo) {
	if !res.Finalized {
		writeView(w, res.View)
		return
	}
	if events != nil {
		data, _ := json.Marshal(res.History)
		if err := events.Append(r.Context(), syncx.Event{
			Type:     syncx.EventSimFinalized,
			Key:      res.History.ID,
			DataJSON: string(data),
		}); err != nil {
			log.Printf("event log append: %v", err)
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"state":     "finalized",
		"timed_out": res.TimedOut,
		"history":   res.History,
	})
}

func writeView(w http.ResponseWriter, v session.View) {
	body := map[string]any{
		"state":    "in_progress",
		"question": viewOf(v.Question, false),
		"index":    v.Index,
		"count":    v.Count,
	}
	if v.Timed {
		body["remaining_sec"] = int(v.Remaining.Seconds())
	}
	if ans, ok := v.Session.Answers[v.Question.ID]; ok {
		body["answered"] = ans
	}
	_ = json.NewEncoder(w).Encode(body)
}
