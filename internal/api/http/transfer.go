package http

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/quizforge/quizforge/internal/quiz"
	syncx "github.com/quizforge/quizforge/internal/sync"
)

// exportedQuestion mirrors the interchange format of authored banks:
// options as the decoded JSON value, correct as the raw stored payload.
type exportedQuestion struct {
	ID          string            `json:"id"`
	Type        quiz.QuestionType `json:"type"`
	Text        string            `json:"text"`
	Options     json.RawMessage   `json:"options,omitempty"`
	Correct     json.RawMessage   `json:"correct,omitempty"`
	Explanation string            `json:"explanation,omitempty"`
	Image       string            `json:"image,omitempty"`
}

type exportedTest struct {
	TestName     string             `json:"test_name"`
	Description  string             `json:"description"`
	TimeLimitMin int                `json:"time_limit_min,omitempty"`
	Questions    []exportedQuestion `json:"questions"`
}

// ExportTestsHandler writes the whole bank as a JSON attachment.
func ExportTestsHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tests, err := store.ListTests(r.Context())
		if err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		out := make([]exportedTest, 0, len(tests))
		for _, t := range tests {
			questions, err := store.ListQuestions(r.Context(), t.ID)
			if err != nil {
				http.Error(w, err.Error(), errStatus(err))
				return
			}
			et := exportedTest{
				TestName:     t.Name,
				Description:  t.Description,
				TimeLimitMin: t.TimeLimitMin,
				Questions:    make([]exportedQuestion, 0, len(questions)),
			}
			for _, q := range questions {
				et.Questions = append(et.Questions, exportedQuestion{
					ID:          q.ID,
					Type:        q.Type,
					Text:        q.Text,
					Options:     rawOrQuote(q.Options),
					Correct:     rawOrQuote(q.Correct),
					Explanation: q.Explanation,
					Image:       q.Image,
				})
			}
			out = append(out, et)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="tests_export.json"`)
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	}
}

// ImportTestsHandler ingests a JSON bank. Bad questions are skipped with a
// warning, never aborting the whole import; ?overwrite=1 clears the
// existing bank first.
func ImportTestsHandler(store quiz.Store, events *syncx.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in []exportedTest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("overwrite") == "1" {
			existing, err := store.ListTests(r.Context())
			if err != nil {
				http.Error(w, err.Error(), errStatus(err))
				return
			}
			for _, t := range existing {
				if err := store.DeleteTest(r.Context(), t.ID); err != nil {
					http.Error(w, err.Error(), errStatus(err))
					return
				}
			}
		}

		var imported int
		var warnings []string
		for _, et := range in {
			t := quiz.Test{
				ID:           uuid.NewString(),
				Name:         et.TestName,
				Description:  et.Description,
				TimeLimitMin: et.TimeLimitMin,
				NumQuestions: len(et.Questions),
			}
			if err := store.PutTest(r.Context(), t); err != nil {
				http.Error(w, err.Error(), errStatus(err))
				return
			}
			for i, eq := range et.Questions {
				q, warns, err := importQuestion(eq, t.ID)
				for _, wn := range warns {
					warnings = append(warnings, wn.String())
				}
				if err != nil {
					warnings = append(warnings, fmt.Sprintf("%s question %d skipped: %v", et.TestName, i+1, err))
					continue
				}
				if err := store.PutQuestion(r.Context(), q); err != nil {
					http.Error(w, err.Error(), errStatus(err))
					return
				}
			}
			imported++
			if events != nil {
				data, _ := json.Marshal(map[string]any{"test_id": t.ID, "name": t.Name})
				if err := events.Append(r.Context(), syncx.Event{
					Type:     syncx.EventTestImported,
					Key:      t.ID,
					DataJSON: string(data),
				}); err != nil {
					log.Printf("event log append: %v", err)
				}
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"imported": imported,
			"warnings": warnings,
		})
	}
}

// importQuestion builds the stored form of one imported question and runs
// it through the same write-time validation authoring uses. A payload the
// codec would reject on write is skipped, not stored.
func importQuestion(eq exportedQuestion, testID string) (quiz.Question, []quiz.Warning, error) {
	if !quiz.KnownType(eq.Type) {
		return quiz.Question{}, nil, fmt.Errorf("unknown question type %q", eq.Type)
	}
	id := eq.ID
	if id == "" {
		id = uuid.NewString()
	}
	q := quiz.Question{
		ID:          id,
		TestID:      testID,
		Type:        eq.Type,
		Text:        eq.Text,
		Options:     rawToStored(eq.Options),
		Correct:     correctToStored(eq.Type, eq.Correct),
		Explanation: eq.Explanation,
		Image:       quiz.NormalizeImageRef(eq.Image),
	}
	d, warns := quiz.Decode(q)
	if _, _, err := quiz.Encode(d); err != nil {
		return quiz.Question{}, warns, err
	}
	return q, warns, nil
}

// rawOrQuote re-emits a stored payload for export: JSON stays JSON, plain
// correct keys become JSON strings.
func rawOrQuote(stored string) json.RawMessage {
	if stored == "" {
		return nil
	}
	if json.Valid([]byte(stored)) {
		return json.RawMessage(stored)
	}
	b, _ := json.Marshal(stored)
	return b
}

// rawToStored turns an imported options value back into the stored form:
// JSON values are kept verbatim, bare strings unwrapped.
func rawToStored(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// correctToStored accepts the shapes older exports used for the correct
// field: a bare string, a key list (mrq) or a mapping object (match).
func correctToStored(t quiz.QuestionType, raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if t == quiz.TypeMRQ {
		var keys []string
		if err := json.Unmarshal(raw, &keys); err == nil {
			return quiz.JoinKeys(keys)
		}
	}
	return string(raw)
}
