package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	apihttp "github.com/quizforge/quizforge/internal/api/http"
	"github.com/quizforge/quizforge/internal/auth"
	"github.com/quizforge/quizforge/internal/quiz"
	"github.com/quizforge/quizforge/internal/scoring"
	"github.com/quizforge/quizforge/internal/session"
)

func asUser(userID, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := auth.WithSubject(r.Context(), userID)
			ctx = auth.WithRole(ctx, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newServer(t *testing.T, store quiz.Store) (*httptest.Server, *session.Machine) {
	t.Helper()
	engine := scoring.NewEngine()
	machine := session.NewMachine(store, session.NewMemoryStore(), engine)

	r := chi.NewRouter()
	r.Use(asUser("u1", auth.RoleUser))
	r.Get("/tests", apihttp.ListTestsHandler(store))
	r.Get("/tests/{testID}", apihttp.GetTestHandler(store))
	r.Post("/tests/{testID}/study/submit", apihttp.StudySubmitHandler(store, engine))
	r.Post("/tests/{testID}/flashcard/submit", apihttp.FlashcardSubmitHandler(store))
	r.Get("/tests/{testID}/sim", apihttp.SimStateHandler(store, machine, nil))
	r.Post("/tests/{testID}/sim/configure", apihttp.SimConfigureHandler(machine))
	r.Post("/tests/{testID}/sim/step", apihttp.SimStepHandler(machine, nil))
	r.Post("/sim/stop", apihttp.SimStopHandler(machine))
	r.Get("/history", apihttp.HistoryHandler(store))
	r.Post("/admin/import", apihttp.ImportTestsHandler(store, nil))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, machine
}

func seedMCQ(t *testing.T, store quiz.Store) {
	t.Helper()
	ctx := context.Background()
	if err := store.PutTest(ctx, quiz.Test{ID: "t1", Name: "Networking", TimeLimitMin: 30}); err != nil {
		t.Fatalf("put test: %v", err)
	}
	options, correct, err := quiz.Encode(quiz.Decoded{
		Type:       quiz.TypeMCQ,
		Options:    []string{"A. Router", "B. Switch"},
		CorrectKey: "B",
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	err = store.PutQuestion(ctx, quiz.Question{
		ID: "q1", TestID: "t1", Type: quiz.TypeMCQ,
		Text: "Which device forwards frames?", Options: options, Correct: correct,
		Explanation: "Switches forward at layer 2.",
	})
	if err != nil {
		t.Fatalf("put question: %v", err)
	}
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestStudySubmitGradesAndRecords(t *testing.T) {
	store := quiz.NewMemoryStore()
	seedMCQ(t, store)
	srv, _ := newServer(t, store)

	resp, body := postJSON(t, srv.URL+"/tests/t1/study/submit",
		map[string]any{"question_id": "q1", "answer": "B"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["score"] != 1.0 {
		t.Fatalf("score = %v, want 1", body["score"])
	}
	if body["correct"] != "B" {
		t.Fatalf("correct = %v, want B", body["correct"])
	}
	if body["explanation"] != "Switches forward at layer 2." {
		t.Fatalf("explanation = %v", body["explanation"])
	}

	rows, err := store.ListHistory(context.Background(), "u1")
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(rows) != 1 || rows[0].Mode != quiz.ModeStudy {
		t.Fatalf("history = %+v, want one study row", rows)
	}
}

func TestStudySubmitRejectsForeignQuestion(t *testing.T) {
	store := quiz.NewMemoryStore()
	seedMCQ(t, store)
	srv, _ := newServer(t, store)

	resp, _ := postJSON(t, srv.URL+"/tests/other/study/submit",
		map[string]any{"question_id": "q1", "answer": "B"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestTestViewHidesAnswerKey(t *testing.T) {
	store := quiz.NewMemoryStore()
	seedMCQ(t, store)
	srv, _ := newServer(t, store)

	resp, body := getJSON(t, srv.URL+"/tests/t1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	raw, _ := json.Marshal(body)
	if bytes.Contains(raw, []byte(`"correct"`)) {
		t.Fatalf("test view leaks the answer key: %s", raw)
	}
}

func TestSimLifecycleOverHTTP(t *testing.T) {
	store := quiz.NewMemoryStore()
	seedMCQ(t, store)
	srv, _ := newServer(t, store)

	resp, body := getJSON(t, srv.URL+"/tests/t1/sim")
	if resp.StatusCode != http.StatusOK || body["state"] != "configuring" {
		t.Fatalf("initial state = %v (%d)", body["state"], resp.StatusCode)
	}
	if body["available"] != 1.0 {
		t.Fatalf("available = %v, want 1", body["available"])
	}

	resp, _ = postJSON(t, srv.URL+"/tests/t1/sim/configure",
		map[string]any{"num_questions": 5})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("oversized configure status = %d, want 422", resp.StatusCode)
	}

	resp, body = postJSON(t, srv.URL+"/tests/t1/sim/configure",
		map[string]any{"num_questions": 1, "time_limit_min": 0})
	if resp.StatusCode != http.StatusOK || body["state"] != "in_progress" {
		t.Fatalf("configure: state = %v (%d)", body["state"], resp.StatusCode)
	}
	if _, ok := body["remaining_sec"]; ok {
		t.Fatal("unlimited session must not report remaining_sec")
	}
	question, _ := body["question"].(map[string]any)
	if question["id"] != "q1" {
		t.Fatalf("question = %v", question)
	}

	resp, body = postJSON(t, srv.URL+"/tests/t1/sim/step",
		map[string]any{"action": "submit", "question_id": "q1", "answer": "B"})
	if resp.StatusCode != http.StatusOK || body["state"] != "finalized" {
		t.Fatalf("submit: state = %v (%d)", body["state"], resp.StatusCode)
	}
	history, _ := body["history"].(map[string]any)
	if history["score"] != 1.0 {
		t.Fatalf("score = %v, want 1", history["score"])
	}

	resp, body = postJSON(t, srv.URL+"/tests/t1/sim/step",
		map[string]any{"action": "next"})
	if resp.StatusCode != http.StatusConflict || body["state"] != "configuring" {
		t.Fatalf("post-finalize step: state = %v (%d)", body["state"], resp.StatusCode)
	}
}

func TestSimStopDiscards(t *testing.T) {
	store := quiz.NewMemoryStore()
	seedMCQ(t, store)
	srv, machine := newServer(t, store)

	if _, body := postJSON(t, srv.URL+"/tests/t1/sim/configure",
		map[string]any{"num_questions": 1}); body["state"] != "in_progress" {
		t.Fatalf("configure: %v", body)
	}
	if resp, _ := postJSON(t, srv.URL+"/sim/stop", map[string]any{}); resp.StatusCode != http.StatusOK {
		t.Fatalf("stop status = %d", resp.StatusCode)
	}
	if _, ok := machine.Active("u1", "t1"); ok {
		t.Fatal("stop must clear the session")
	}
	rows, err := store.ListHistory(context.Background(), "u1")
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("stop wrote %d history rows", len(rows))
	}
}

func TestImportSkipsInvalidQuestions(t *testing.T) {
	store := quiz.NewMemoryStore()
	srv, _ := newServer(t, store)

	bank := []map[string]any{{
		"test_name":   "Imported",
		"description": "from an older export",
		"questions": []map[string]any{
			{
				"type":    "mcq",
				"text":    "valid",
				"options": []string{"A. yes", "B. no"},
				"correct": "A",
			},
			{
				"type":    "mcq",
				"text":    "correct key not among options",
				"options": []string{"A. yes", "B. no"},
				"correct": "Z",
			},
			{
				"type": "essay",
				"text": "unknown type",
			},
		},
	}}
	resp, body := postJSON(t, srv.URL+"/admin/import", bank)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["imported"] != 1.0 {
		t.Fatalf("imported = %v, want 1", body["imported"])
	}
	warnings, _ := body["warnings"].([]any)
	if len(warnings) != 2 {
		t.Fatalf("warnings = %v, want one per skipped question", warnings)
	}

	ctx := context.Background()
	tests, err := store.ListTests(ctx)
	if err != nil {
		t.Fatalf("list tests: %v", err)
	}
	if len(tests) != 1 {
		t.Fatalf("tests = %d, want 1", len(tests))
	}
	questions, err := store.ListQuestions(ctx, tests[0].ID)
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("stored questions = %d, want only the valid one", len(questions))
	}
	if questions[0].Text != "valid" {
		t.Fatalf("stored question = %q", questions[0].Text)
	}
}

func TestFlashcardSelfScorePassthrough(t *testing.T) {
	store := quiz.NewMemoryStore()
	ctx := context.Background()
	if err := store.PutTest(ctx, quiz.Test{ID: "t1", Name: "Vocab"}); err != nil {
		t.Fatalf("put test: %v", err)
	}
	err := store.PutQuestion(ctx, quiz.Question{
		ID: "q1", TestID: "t1", Type: quiz.TypeFlashcard,
		Text: "ephemeral", Correct: "short-lived",
	})
	if err != nil {
		t.Fatalf("put question: %v", err)
	}
	srv, _ := newServer(t, store)

	resp, _ := postJSON(t, srv.URL+"/tests/t1/flashcard/submit",
		map[string]any{"question_id": "q1", "self_score": 0.5})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	rows, err := store.ListHistory(ctx, "u1")
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(rows) != 1 || rows[0].Mode != quiz.ModeFlashcard || rows[0].Score != 0.5 {
		t.Fatalf("history = %+v, want one flashcard row at 0.5", rows)
	}

	resp, _ = postJSON(t, srv.URL+"/tests/t1/study/submit",
		map[string]any{"question_id": "q1", "answer": "short-lived"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("study submit of flashcard status = %d, want 400", resp.StatusCode)
	}
}
