package enrollment

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/httpx/apperr"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Create(ctx context.Context, userID, courseID string) (Enrollment, error) {
	e := Enrollment{
		ID:                 uuid.NewString(),
		UserID:             userID,
		CourseID:           courseID,
		Status:             StatusPending,
		CompletedLessonIDs: map[string]struct{}{},
		EnrolledAt:         time.Now().Unix(),
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO enrollments (id,user_id,course_id,status,enrolled_at)
		VALUES ($1,$2,$3,$4,$5)`,
		e.ID, e.UserID, e.CourseID, string(e.Status), e.EnrolledAt)
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate") {
			return Enrollment{}, apperr.NewConflictError("user %s already enrolled in course %s", userID, courseID)
		}
		return Enrollment{}, err
	}
	return e, nil
}

func (s *SQLStore) Get(ctx context.Context, userID, courseID string) (Enrollment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,user_id,course_id,status,progress_hint,enrolled_at,last_access_at
		FROM enrollments WHERE user_id=$1 AND course_id=$2`, userID, courseID)
	var e Enrollment
	var status string
	var hint sql.NullInt64
	var lastAccess sql.NullInt64
	if err := row.Scan(&e.ID, &e.UserID, &e.CourseID, &status, &hint, &e.EnrolledAt, &lastAccess); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Enrollment{}, apperr.NewNotFoundError("no enrollment for user %s in course %s", userID, courseID)
		}
		return Enrollment{}, err
	}
	e.Status = Status(status)
	if hint.Valid {
		h := int(hint.Int64)
		e.ProgressHint = &h
	}
	if lastAccess.Valid {
		e.LastAccessAt = lastAccess.Int64
	}

	rows, err := s.db.QueryContext(ctx, `SELECT lesson_id FROM enrollment_lessons WHERE enrollment_id=$1`, e.ID)
	if err != nil {
		return Enrollment{}, err
	}
	defer rows.Close()
	e.CompletedLessonIDs = map[string]struct{}{}
	for rows.Next() {
		var lid string
		if err := rows.Scan(&lid); err != nil {
			return Enrollment{}, err
		}
		e.CompletedLessonIDs[lid] = struct{}{}
	}
	return e, rows.Err()
}

// CompleteLesson records a lesson as done. Re-completing is a no-op, not
// an error: the set is membership-only.
func (s *SQLStore) CompleteLesson(ctx context.Context, enrollmentID, lessonID string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO enrollment_lessons (enrollment_id,lesson_id,completed_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (enrollment_id,lesson_id) DO NOTHING`,
		enrollmentID, lessonID, time.Now().Unix())
	return err
}

func (s *SQLStore) SetStatus(ctx context.Context, enrollmentID string, st Status) error {
	res, err := s.db.ExecContext(ctx, `UPDATE enrollments SET status=$1 WHERE id=$2`, string(st), enrollmentID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NewNotFoundError("enrollment %s not found", enrollmentID)
	}
	return nil
}

func (s *SQLStore) TouchLastAccess(ctx context.Context, enrollmentID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE enrollments SET last_access_at=$1 WHERE id=$2`,
		time.Now().Unix(), enrollmentID)
	return err
}
