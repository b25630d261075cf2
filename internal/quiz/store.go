package quiz

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for lookups of tests, questions or history rows
// that do not exist.
var ErrNotFound = errors.New("not found")

// Store is the durable record store for tests, questions and history.
// History rows are append-only: there is no update or delete.
type Store interface {
	PutTest(ctx context.Context, t Test) error
	GetTest(ctx context.Context, id string) (Test, error)
	ListTests(ctx context.Context) ([]Test, error)
	// DeleteTest also removes the test's questions.
	DeleteTest(ctx context.Context, id string) error

	PutQuestion(ctx context.Context, q Question) error
	GetQuestion(ctx context.Context, id string) (Question, error)
	ListQuestions(ctx context.Context, testID string) ([]Question, error)
	DeleteQuestion(ctx context.Context, id string) error

	// CreateHistory assigns ID and Date when unset and inserts the row as a
	// single atomic write.
	CreateHistory(ctx context.Context, h History) (History, error)
	ListHistory(ctx context.Context, userID string) ([]History, error)
}

type memoryStore struct {
	mu        sync.RWMutex
	tests     map[string]Test
	questions map[string]Question
	history   map[string]History
}

// NewMemoryStore returns a Store backed by process memory, for tests and
// offline development.
func NewMemoryStore() Store {
	return &memoryStore{
		tests:     map[string]Test{},
		questions: map[string]Question{},
		history:   map[string]History{},
	}
}

func (m *memoryStore) PutTest(_ context.Context, t Test) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.CreatedAt == 0 {
		t.CreatedAt = time.Now().Unix()
	}
	m.tests[t.ID] = t
	return nil
}

func (m *memoryStore) GetTest(_ context.Context, id string) (Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tests[id]
	if !ok {
		return Test{}, ErrNotFound
	}
	return t, nil
}

func (m *memoryStore) ListTests(_ context.Context) ([]Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Test, 0, len(m.tests))
	for _, t := range m.tests {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryStore) DeleteTest(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tests[id]; !ok {
		return ErrNotFound
	}
	delete(m.tests, id)
	for qid, q := range m.questions {
		if q.TestID == id {
			delete(m.questions, qid)
		}
	}
	return nil
}

func (m *memoryStore) PutQuestion(_ context.Context, q Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tests[q.TestID]; !ok {
		return ErrNotFound
	}
	m.questions[q.ID] = q
	return nil
}

func (m *memoryStore) GetQuestion(_ context.Context, id string) (Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return Question{}, ErrNotFound
	}
	return q, nil
}

func (m *memoryStore) ListQuestions(_ context.Context, testID string) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Question
	for _, q := range m.questions {
		if q.TestID == testID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) DeleteQuestion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[id]; !ok {
		return ErrNotFound
	}
	delete(m.questions, id)
	return nil
}

func (m *memoryStore) CreateHistory(_ context.Context, h History) (History, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.Date == 0 {
		h.Date = time.Now().Unix()
	}
	m.history[h.ID] = h
	return h, nil
}

func (m *memoryStore) ListHistory(_ context.Context, userID string) ([]History, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []History
	for _, h := range m.history {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}
