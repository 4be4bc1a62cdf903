// Package enrollments provides the PostgreSQL-backed enrollment relation.
//
// The relation is kept on two sides, course_enrolled_students and
// user_enrolled_courses. Callers that add a pair should do so for both sides
// inside one transaction.
package enrollments

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/coursecloud/internal/common"
	"github.com/dmitrijs2005/coursecloud/internal/dbx"
	"github.com/dmitrijs2005/coursecloud/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// AddStudent records userID on the course side. It reports false when the
// pair already existed.
func (r *PostgresRepository) AddStudent(ctx context.Context, courseID, userID string) (bool, error) {
	query :=
		`INSERT INTO course_enrolled_students (course_id, user_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`
	return r.insert(ctx, query, courseID, userID)
}

// AddCourse records courseID on the user side. It reports false when the
// pair already existed.
func (r *PostgresRepository) AddCourse(ctx context.Context, userID, courseID string) (bool, error) {
	query :=
		`INSERT INTO user_enrolled_courses (user_id, course_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`
	return r.insert(ctx, query, userID, courseID)
}

func (r *PostgresRepository) insert(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		switch {
		case dbx.IsForeignKeyViolation(err, "course_enrolled_students_course_id_fkey"),
			dbx.IsForeignKeyViolation(err, "user_enrolled_courses_course_id_fkey"):
			return false, common.ErrCourseNotFound
		case dbx.IsForeignKeyViolation(err, "course_enrolled_students_user_id_fkey"),
			dbx.IsForeignKeyViolation(err, "user_enrolled_courses_user_id_fkey"):
			return false, common.ErrUserNotFound
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

// IsEnrolled tests membership on the user side.
func (r *PostgresRepository) IsEnrolled(ctx context.Context, userID, courseID string) (bool, error) {
	query :=
		`SELECT EXISTS (
		   SELECT 1 FROM user_enrolled_courses WHERE user_id = $1 AND course_id = $2
		 )`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, userID, courseID).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) CourseIDs(ctx context.Context, userID string) ([]string, error) {
	query :=
		`SELECT course_id FROM user_enrolled_courses
		 WHERE user_id = $1
		 ORDER BY enrolled_at`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ids, nil
}

func (r *PostgresRepository) StudentsByCourse(ctx context.Context) (map[string][]*models.UserSummary, error) {
	query :=
		`SELECT s.course_id, u.id, u.name, u.email, u.photo_url
		 FROM course_enrolled_students s JOIN users u ON u.id = s.user_id
		 ORDER BY s.course_id, s.enrolled_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]*models.UserSummary)
	for rows.Next() {
		var courseID string
		s := &models.UserSummary{}
		if err := rows.Scan(&courseID, &s.ID, &s.Name, &s.Email, &s.PhotoURL); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result[courseID] = append(result[courseID], s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
