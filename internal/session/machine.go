package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/quizforge/quizforge/internal/quiz"
	"github.com/quizforge/quizforge/internal/scoring"
)

// ErrNoSession means a navigation or submit action arrived with no active
// session for that user and test. Callers send the user back to
// configuration; it is not a server fault.
var ErrNoSession = errors.New("no active simulation session")

// Action is a navigation request against the current session.
type Action string

const (
	// ActionNone touches the session without navigating; it still runs the
	// timeout check, so reads force-finalize expired sessions too.
	ActionNone   Action = ""
	ActionNext   Action = "next"
	ActionPrev   Action = "prev"
	ActionSubmit Action = "submit"
)

// View is what the caller renders for an in-progress session: the current
// question with its answer key stripped, plus progress and clock state.
type View struct {
	Session   Session
	Question  quiz.Question
	Index     int // zero-based position of Question
	Count     int
	Remaining time.Duration
	Timed     bool
}

// StepResult reports the outcome of one session interaction. When
// Finalized is set the session is gone and History holds the written row;
// otherwise View describes where the user is now.
type StepResult struct {
	Finalized bool
	TimedOut  bool
	History   quiz.History
	View      View
}

// Machine drives simulation sessions. Each exported method performs one
// atomic read-compute-write against the session store, matching the
// one-transition-per-request model.
type Machine struct {
	store    quiz.Store
	sessions Store
	engine   *scoring.Engine
	now      func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

type Option func(*Machine)

// WithClock substitutes the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithRand substitutes the sampling source, for tests.
func WithRand(rnd *rand.Rand) Option {
	return func(m *Machine) { m.rnd = rnd }
}

func NewMachine(store quiz.Store, sessions Store, engine *scoring.Engine, opts ...Option) *Machine {
	m := &Machine{
		store:    store,
		sessions: sessions,
		engine:   engine,
		now:      time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Active reports whether the user has an in-progress session for testID. A
// session for a different test does not count: configuring that test will
// replace it.
func (m *Machine) Active(userID, testID string) (Session, bool) {
	sess, ok := m.sessions.Get(userID)
	if !ok || sess.TestID != testID {
		return Session{}, false
	}
	return sess, true
}

// Configure starts a new session: validates the requested question count,
// samples that many questions without replacement, fixes their order and
// puts the user at the first one. A previous session for a different test
// is replaced without writing history; an in-progress session for this
// same test is returned unchanged, so a duplicate configure cannot wipe
// the attempt. timeLimitMin overrides the test's default for this attempt;
// 0 means unlimited, negative means use the default.
func (m *Machine) Configure(ctx context.Context, userID, testID string, numQuestions, timeLimitMin int) (View, error) {
	if sess, ok := m.Active(userID, testID); ok {
		if !sess.Expired(m.now()) {
			return m.view(ctx, sess)
		}
		// Lazy timeout applies here too: settle the expired attempt before
		// starting a fresh one.
		if _, err := m.finalize(ctx, userID, sess); err != nil {
			return View{}, err
		}
	}
	test, err := m.store.GetTest(ctx, testID)
	if err != nil {
		return View{}, fmt.Errorf("load test: %w", err)
	}
	pool, err := m.store.ListQuestions(ctx, testID)
	if err != nil {
		return View{}, fmt.Errorf("load questions: %w", err)
	}
	available := len(pool)
	if available == 0 {
		return View{}, &quiz.ValidationError{Msg: "test has no questions"}
	}
	if numQuestions < 1 || numQuestions > available {
		return View{}, &quiz.ValidationError{
			Msg: fmt.Sprintf("number of questions must be between 1 and %d", available),
		}
	}
	n := numQuestions
	if test.NumQuestions > 0 && n > test.NumQuestions {
		n = test.NumQuestions
	}

	if timeLimitMin < 0 {
		timeLimitMin = test.TimeLimitMin
	}

	sess := Session{
		TestID:    testID,
		Questions: m.sample(pool, n),
		Answers:   map[string]any{},
		StartTime: m.now(),
		TimeLimit: time.Duration(timeLimitMin) * time.Minute,
	}
	m.sessions.Set(userID, sess)
	return m.view(ctx, sess)
}

// Step performs one InProgress interaction: the timeout check, then the
// answer recording, then the navigation. Expired sessions are finalized
// with whatever answers exist before the requested action is considered.
func (m *Machine) Step(ctx context.Context, userID, testID string, action Action, questionID string, answer any) (StepResult, error) {
	sess, ok := m.Active(userID, testID)
	if !ok {
		return StepResult{}, ErrNoSession
	}

	if sess.Expired(m.now()) {
		h, err := m.finalize(ctx, userID, sess)
		if err != nil {
			return StepResult{}, err
		}
		return StepResult{Finalized: true, TimedOut: true, History: h}, nil
	}

	if questionID != "" && answer != nil && sessionHas(sess, questionID) {
		sess.Answers[questionID] = answer
	}

	switch action {
	case ActionNext:
		if sess.Current < len(sess.Questions)-1 {
			sess.Current++
		}
	case ActionPrev:
		if sess.Current > 0 {
			sess.Current--
		}
	case ActionSubmit:
		// Persist recorded answers before scoring so a failed history write
		// retries with the same state.
		m.sessions.Set(userID, sess)
		h, err := m.finalize(ctx, userID, sess)
		if err != nil {
			return StepResult{}, err
		}
		return StepResult{Finalized: true, History: h}, nil
	case ActionNone:
	default:
		return StepResult{}, &quiz.ValidationError{Msg: fmt.Sprintf("unknown action %q", action)}
	}

	m.sessions.Set(userID, sess)
	v, err := m.view(ctx, sess)
	if err != nil {
		return StepResult{}, err
	}
	return StepResult{View: v}, nil
}

// Stop discards the user's session, whatever test it is for, without
// writing history. Stopping with no session is a no-op.
func (m *Machine) Stop(userID string) {
	m.sessions.Clear(userID)
}

// finalize scores the attempt, writes the history row and clears the
// session. On a failed write the session is kept so the client can retry
// the submit; history delivery is at-least-once.
func (m *Machine) finalize(ctx context.Context, userID string, sess Session) (quiz.History, error) {
	pool, err := m.store.ListQuestions(ctx, sess.TestID)
	if err != nil {
		return quiz.History{}, fmt.Errorf("load questions: %w", err)
	}
	byID := make(map[string]quiz.Question, len(pool))
	for _, q := range pool {
		byID[q.ID] = q
	}

	decoded := make([]quiz.Decoded, 0, len(sess.Questions))
	for _, qid := range sess.Questions {
		q, ok := byID[qid]
		if !ok {
			// Question deleted mid-attempt; it simply cannot earn points.
			log.Printf("session finalize: question %s no longer exists", qid)
			continue
		}
		d, warns := quiz.Decode(q)
		for _, w := range warns {
			log.Printf("session finalize: %s", w)
		}
		decoded = append(decoded, d)
	}

	score := m.engine.Total(decoded, sess.Answers)
	answersJSON, err := json.Marshal(sess.Answers)
	if err != nil {
		return quiz.History{}, fmt.Errorf("encode answers: %w", err)
	}

	h, err := m.store.CreateHistory(ctx, quiz.History{
		UserID:  userID,
		TestID:  sess.TestID,
		Mode:    quiz.ModeSim,
		Score:   score,
		Answers: string(answersJSON),
	})
	if err != nil {
		return quiz.History{}, fmt.Errorf("write history: %w", err)
	}
	m.sessions.Clear(userID)
	return h, nil
}

func (m *Machine) view(ctx context.Context, sess Session) (View, error) {
	qid := sess.Questions[sess.Current]
	q, err := m.store.GetQuestion(ctx, qid)
	if err != nil {
		return View{}, fmt.Errorf("load question %s: %w", qid, err)
	}
	q.Correct = "" // never leak the key mid-attempt
	remaining, timed := sess.Remaining(m.now())
	return View{
		Session:   sess,
		Question:  q,
		Index:     sess.Current,
		Count:     len(sess.Questions),
		Remaining: remaining,
		Timed:     timed,
	}, nil
}

func (m *Machine) sample(pool []quiz.Question, n int) []string {
	m.mu.Lock()
	perm := m.rnd.Perm(len(pool))
	m.mu.Unlock()
	ids := make([]string, 0, n)
	for _, i := range perm[:n] {
		ids = append(ids, pool[i].ID)
	}
	return ids
}

func sessionHas(sess Session, questionID string) bool {
	for _, id := range sess.Questions {
		if id == questionID {
			return true
		}
	}
	return false
}
