package quiz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SQLStore persists the quiz domain in a relational database. The same
// statement text ($1 placeholders) works for both the pgx and the modernc
// sqlite driver.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) PutTest(ctx context.Context, t Test) error {
	created := t.CreatedAt
	if created == 0 {
		created = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tests (id,name,description,time_limit_min,num_questions,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, description=EXCLUDED.description,
		   time_limit_min=EXCLUDED.time_limit_min, num_questions=EXCLUDED.num_questions`,
		t.ID, t.Name, t.Description, t.TimeLimitMin, t.NumQuestions, created)
	return err
}

func (s *SQLStore) GetTest(ctx context.Context, id string) (Test, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,name,description,time_limit_min,num_questions,created_at FROM tests WHERE id=$1`, id)
	var t Test
	if err := row.Scan(&t.ID, &t.Name, &t.Description, &t.TimeLimitMin, &t.NumQuestions, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Test{}, ErrNotFound
		}
		return Test{}, err
	}
	return t, nil
}

func (s *SQLStore) ListTests(ctx context.Context) ([]Test, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,name,description,time_limit_min,num_questions,created_at FROM tests ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Test
	for rows.Next() {
		var t Test
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.TimeLimitMin, &t.NumQuestions, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteTest(ctx context.Context, id string) error {
	// Questions go via ON DELETE CASCADE.
	res, err := s.db.ExecContext(ctx, `DELETE FROM tests WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) PutQuestion(ctx context.Context, q Question) error {
	var exist int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM tests WHERE id=$1`, q.TestID).Scan(&exist); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("test %s: %w", q.TestID, ErrNotFound)
		}
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO questions (id,test_id,type,text,options,correct,explanation,image)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (id) DO UPDATE SET type=EXCLUDED.type, text=EXCLUDED.text,
		   options=EXCLUDED.options, correct=EXCLUDED.correct,
		   explanation=EXCLUDED.explanation, image=EXCLUDED.image`,
		q.ID, q.TestID, string(q.Type), q.Text, q.Options, q.Correct, q.Explanation, q.Image)
	return err
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,test_id,type,text,options,correct,explanation,image FROM questions WHERE id=$1`, id)
	return scanQuestion(row)
}

func (s *SQLStore) ListQuestions(ctx context.Context, testID string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,test_id,type,text,options,correct,explanation,image FROM questions WHERE test_id=$1 ORDER BY id`,
		testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) CreateHistory(ctx context.Context, h History) (History, error) {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.Date == 0 {
		h.Date = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (id,user_id,test_id,mode,score,answers,date)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		h.ID, h.UserID, h.TestID, h.Mode, h.Score, h.Answers, h.Date)
	if err != nil {
		return History{}, err
	}
	return h, nil
}

func (s *SQLStore) ListHistory(ctx context.Context, userID string) ([]History, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,user_id,test_id,mode,score,answers,date FROM history WHERE user_id=$1 ORDER BY date DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []History
	for rows.Next() {
		var h History
		if err := rows.Scan(&h.ID, &h.UserID, &h.TestID, &h.Mode, &h.Score, &h.Answers, &h.Date); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanQuestion(row rowScanner) (Question, error) {
	var q Question
	var typ string
	if err := row.Scan(&q.ID, &q.TestID, &typ, &q.Text, &q.Options, &q.Correct, &q.Explanation, &q.Image); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Question{}, ErrNotFound
		}
		return Question{}, err
	}
	q.Type = QuestionType(typ)
	return q, nil
}
