// Package lectures provides the PostgreSQL-backed lecture store.
package lectures

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/coursecloud/internal/common"
	"github.com/dmitrijs2005/coursecloud/internal/dbx"
	"github.com/dmitrijs2005/coursecloud/internal/server/models"
)

const lectureColumns = `l.id, l.course_id, l.position, l.title, l.video_url, l.public_id, l.is_preview_free, l.created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLecture(row rowScanner) (*models.Lecture, error) {
	l := &models.Lecture{}
	err := row.Scan(&l.ID, &l.CourseID, &l.Position, &l.Title, &l.VideoURL, &l.PublicID, &l.IsPreviewFree, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *PostgresRepository) Create(ctx context.Context, lecture *models.Lecture) (*models.Lecture, error) {
	query :=
		`INSERT INTO lectures (course_id, position, title, video_url, public_id, is_preview_free)
		 VALUES ($1, (SELECT COALESCE(MAX(position) + 1, 0) FROM lectures WHERE course_id = $1), $2, $3, $4, $5)
		 RETURNING id, position, created_at`

	err := r.db.QueryRowContext(ctx, query,
		lecture.CourseID, lecture.Title, lecture.VideoURL, lecture.PublicID, lecture.IsPreviewFree,
	).Scan(&lecture.ID, &lecture.Position, &lecture.CreatedAt)
	if err != nil {
		if dbx.IsForeignKeyViolation(err, "lectures_course_id_fkey") {
			return nil, common.ErrCourseNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return lecture, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Lecture, error) {
	query := `SELECT ` + lectureColumns + ` FROM lectures l WHERE l.id = $1`

	l, err := scanLecture(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return l, nil
}

// ListByCourse returns the course's lectures in curriculum order.
func (r *PostgresRepository) ListByCourse(ctx context.Context, courseID string) ([]*models.Lecture, error) {
	query := `SELECT ` + lectureColumns + `
		 FROM lectures l
		 WHERE l.course_id = $1
		 ORDER BY l.position, l.created_at`

	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Lecture, 0)
	for rows.Next() {
		l, err := scanLecture(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) ListByCreator(ctx context.Context, creatorID string) (map[string][]*models.Lecture, error) {
	query := `SELECT ` + lectureColumns + `
		 FROM lectures l JOIN courses c ON c.id = l.course_id
		 WHERE c.creator_id = $1
		 ORDER BY l.course_id, l.position, l.created_at`

	rows, err := r.db.QueryContext(ctx, query, creatorID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]*models.Lecture)
	for rows.Next() {
		l, err := scanLecture(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if l.CourseID != nil {
			result[*l.CourseID] = append(result[*l.CourseID], l)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id string, upd *models.LectureUpdate) (*models.Lecture, error) {
	query :=
		`UPDATE lectures l SET
		   title = COALESCE($2, l.title),
		   video_url = COALESCE($3, l.video_url),
		   public_id = COALESCE($4, l.public_id),
		   is_preview_free = COALESCE($5, l.is_preview_free)
		 WHERE l.id = $1
		 RETURNING ` + lectureColumns

	l, err := scanLecture(r.db.QueryRowContext(ctx, query, id, upd.Title, upd.VideoURL, upd.PublicID, upd.IsPreviewFree))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return l, nil
}

func (r *PostgresRepository) Attach(ctx context.Context, id string, courseID string) error {
	query :=
		`UPDATE lectures SET
		   course_id = $2,
		   position = (SELECT COALESCE(MAX(position) + 1, 0) FROM lectures WHERE course_id = $2)
		 WHERE id = $1 AND course_id IS DISTINCT FROM $2`

	if _, err := r.db.ExecContext(ctx, query, id, courseID); err != nil {
		if dbx.IsForeignKeyViolation(err, "lectures_course_id_fkey") {
			return common.ErrCourseNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Delete removes the lecture, which also takes it out of its course.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM lectures WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
