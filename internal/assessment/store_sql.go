package assessment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/httpx/apperr"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

// answersBlob is what lands in attempts.answers_json: the raw responses
// plus the per-question scores frozen at submission time.
type answersBlob struct {
	Responses map[string]interface{} `json:"responses"`
	Items     []ItemScore            `json:"items"`
}

func (s *SQLStore) PutTest(ctx context.Context, t Test) error {
	qj, err := json.Marshal(t.Questions)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO tests
		(id,course_id,title,time_limit_sec,passing_score,max_attempts,active,show_results,defer_scoring,questions_json,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
			title=EXCLUDED.title, time_limit_sec=EXCLUDED.time_limit_sec,
			passing_score=EXCLUDED.passing_score, max_attempts=EXCLUDED.max_attempts,
			active=EXCLUDED.active, show_results=EXCLUDED.show_results,
			defer_scoring=EXCLUDED.defer_scoring, questions_json=EXCLUDED.questions_json`,
		t.ID, t.CourseID, t.Title, t.TimeLimitSec, t.PassingScore, t.MaxAttempts,
		t.Active, t.ShowResults, t.DeferScoring, string(qj), time.Now().Unix())
	return err
}

func (s *SQLStore) GetTest(ctx context.Context, id string) (Test, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,course_id,title,time_limit_sec,passing_score,max_attempts,active,show_results,defer_scoring,questions_json,created_at
		FROM tests WHERE id=$1`, id)
	return scanTest(row)
}

func (s *SQLStore) ListTests(ctx context.Context, courseID string, activeOnly bool) ([]Test, error) {
	q := `SELECT id,course_id,title,time_limit_sec,passing_score,max_attempts,active,show_results,defer_scoring,questions_json,created_at
		FROM tests WHERE course_id=$1`
	args := []interface{}{courseID}
	if activeOnly {
		q += ` AND active=$2`
		args = append(args, true)
	}
	q += ` ORDER BY created_at, id`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Test
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTest(row rowScanner) (Test, error) {
	var t Test
	var qjson string
	err := row.Scan(&t.ID, &t.CourseID, &t.Title, &t.TimeLimitSec, &t.PassingScore,
		&t.MaxAttempts, &t.Active, &t.ShowResults, &t.DeferScoring, &qjson, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Test{}, apperr.NewNotFoundError("test not found")
		}
		return Test{}, err
	}
	if err := json.Unmarshal([]byte(qjson), &t.Questions); err != nil {
		return Test{}, err
	}
	return t, nil
}

func (s *SQLStore) RecordAttempt(ctx context.Context, a Attempt) error {
	blob, err := json.Marshal(answersBlob{Responses: a.Responses, Items: a.Items})
	if err != nil {
		return err
	}
	// Single INSERT, so a cancelled client can never leave a partial
	// attempt. The UNIQUE (test_id,user_id,ordinal) index is the
	// backstop against a concurrent writer that slipped past the
	// in-process lock.
	_, err = s.db.ExecContext(ctx, `INSERT INTO attempts
		(id,test_id,user_id,ordinal,answers_json,score,percentage,verdict,retake_allowed,submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.TestID, a.UserID, a.Ordinal, string(blob), a.Score, a.Percentage,
		string(a.Verdict), a.RetakeAllowed, a.SubmittedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.NewConflictError("attempt %d for test %s already recorded", a.Ordinal, a.TestID)
		}
		return err
	}
	return nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,test_id,user_id,ordinal,answers_json,score,percentage,verdict,retake_allowed,submitted_at
		FROM attempts WHERE id=$1`, id)
	return scanAttempt(row)
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	q := `SELECT a.id,a.test_id,a.user_id,a.ordinal,a.answers_json,a.score,a.percentage,a.verdict,a.retake_allowed,a.submitted_at
		FROM attempts a`
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return placeholder(len(args))
	}
	if opts.CourseID != "" {
		q += ` JOIN tests t ON t.id = a.test_id`
		conds = append(conds, `t.course_id=`+arg(opts.CourseID))
	}
	if opts.TestID != "" {
		conds = append(conds, `a.test_id=`+arg(opts.TestID))
	}
	if opts.UserID != "" {
		conds = append(conds, `a.user_id=`+arg(opts.UserID))
	}
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	q += ` ORDER BY a.submitted_at DESC, a.ordinal DESC`
	if opts.Limit > 0 {
		q += ` LIMIT ` + arg(opts.Limit)
	}
	if opts.Offset > 0 {
		q += ` OFFSET ` + arg(opts.Offset)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) AttemptsFor(ctx context.Context, testID, userID string) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,test_id,user_id,ordinal,answers_json,score,percentage,verdict,retake_allowed,submitted_at
		FROM attempts WHERE test_id=$1 AND user_id=$2 ORDER BY ordinal`, testID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAttempt(row rowScanner) (Attempt, error) {
	var a Attempt
	var blob string
	var verdict string
	err := row.Scan(&a.ID, &a.TestID, &a.UserID, &a.Ordinal, &blob, &a.Score,
		&a.Percentage, &verdict, &a.RetakeAllowed, &a.SubmittedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, apperr.NewNotFoundError("attempt not found")
		}
		return Attempt{}, err
	}
	a.Verdict = Verdict(verdict)
	var ab answersBlob
	if err := json.Unmarshal([]byte(blob), &ab); err != nil {
		return Attempt{}, err
	}
	a.Responses = ab.Responses
	a.Items = ab.Items
	return a, nil
}

func (s *SQLStore) SetShowResults(ctx context.Context, testID string, show bool) error {
	return s.updateOne(ctx, `UPDATE tests SET show_results=$1 WHERE id=$2`, show, testID)
}

func (s *SQLStore) SetMaxAttempts(ctx context.Context, testID string, n int) error {
	return s.updateOne(ctx, `UPDATE tests SET max_attempts=$1 WHERE id=$2`, n, testID)
}

func (s *SQLStore) SetRetakeAllowed(ctx context.Context, attemptID string, allowed bool) error {
	return s.updateOne(ctx, `UPDATE attempts SET retake_allowed=$1 WHERE id=$2`, allowed, attemptID)
}

func (s *SQLStore) ReleaseAttempt(ctx context.Context, a Attempt) error {
	blob, err := json.Marshal(answersBlob{Responses: a.Responses, Items: a.Items})
	if err != nil {
		return err
	}
	return s.updateOne(ctx, `UPDATE attempts SET answers_json=$1, score=$2, percentage=$3, verdict=$4 WHERE id=$5`,
		string(blob), a.Score, a.Percentage, string(a.Verdict), a.ID)
}

func (s *SQLStore) AddViolation(ctx context.Context, v Violation) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO violations (id,attempt_id,typ,description,created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		v.ID, v.AttemptID, v.Type, v.Description, v.CreatedAt)
	return err
}

func (s *SQLStore) ListViolations(ctx context.Context, attemptID string) ([]Violation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,attempt_id,typ,description,created_at
		FROM violations WHERE attempt_id=$1 ORDER BY created_at, id`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Violation
	for rows.Next() {
		var v Violation
		if err := rows.Scan(&v.ID, &v.AttemptID, &v.Type, &v.Description, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLStore) updateOne(ctx context.Context, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NewNotFoundError("no such row")
	}
	return nil
}

// pgx and modernc sqlite both accept $N placeholders.
func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
