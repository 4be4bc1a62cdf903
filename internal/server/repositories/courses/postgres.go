// Package courses provides the PostgreSQL-backed course catalogue.
package courses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/coursecloud/internal/common"
	"github.com/dmitrijs2005/coursecloud/internal/dbx"
	"github.com/dmitrijs2005/coursecloud/internal/server/models"
	"github.com/shopspring/decimal"
)

const courseColumns = `c.id, c.creator_id, c.title, c.subtitle, c.description, c.category, c.level, c.price, c.thumbnail_url, c.is_published, c.created_at, c.updated_at`

const creatorColumns = `u.id, u.name, u.photo_url, u.description`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func courseDest(c *models.Course) []any {
	return []any{&c.ID, &c.CreatorID, &c.Title, &c.Subtitle, &c.Description, &c.Category, &c.Level,
		&c.Price, &c.ThumbnailURL, &c.IsPublished, &c.CreatedAt, &c.UpdatedAt}
}

func scanCourse(row rowScanner) (*models.Course, error) {
	c := &models.Course{}
	if err := row.Scan(courseDest(c)...); err != nil {
		return nil, err
	}
	return c, nil
}

func scanCourseWithCreator(row rowScanner) (*models.Course, error) {
	c := &models.Course{Creator: &models.UserSummary{}}
	dest := append(courseDest(c), &c.Creator.ID, &c.Creator.Name, &c.Creator.PhotoURL, &c.Creator.Description)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a draft course owned by course.CreatorID.
func (r *PostgresRepository) Create(ctx context.Context, course *models.Course) (*models.Course, error) {
	query :=
		`INSERT INTO courses (creator_id, title, category)
		 VALUES ($1, $2, $3)
		 RETURNING id, is_published, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, course.CreatorID, course.Title, course.Category).
		Scan(&course.ID, &course.IsPublished, &course.CreatedAt, &course.UpdatedAt)
	if err != nil {
		if dbx.IsForeignKeyViolation(err, "") {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return course, nil
}

// GetByID returns the course with its creator populated.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Course, error) {
	query := `SELECT ` + courseColumns + `, ` + creatorColumns + `
		 FROM courses c JOIN users u ON u.id = c.creator_id
		 WHERE c.id = $1`

	c, err := scanCourseWithCreator(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1)`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

// ListPublished returns published courses, newest first, with creators.
func (r *PostgresRepository) ListPublished(ctx context.Context) ([]*models.Course, error) {
	query := `SELECT ` + courseColumns + `, ` + creatorColumns + `
		 FROM courses c JOIN users u ON u.id = c.creator_id
		 WHERE c.is_published
		 ORDER BY c.created_at DESC`
	return r.list(ctx, scanCourseWithCreator, query)
}

func (r *PostgresRepository) ListByCreator(ctx context.Context, creatorID string) ([]*models.Course, error) {
	query := `SELECT ` + courseColumns + `
		 FROM courses c
		 WHERE c.creator_id = $1
		 ORDER BY c.created_at DESC`
	return r.list(ctx, scanCourse, query, creatorID)
}

// ListByStudent returns the courses on the user's side of the enrollment
// relation, in enrollment order.
func (r *PostgresRepository) ListByStudent(ctx context.Context, userID string) ([]*models.Course, error) {
	query := `SELECT ` + courseColumns + `
		 FROM courses c JOIN user_enrolled_courses e ON e.course_id = c.id
		 WHERE e.user_id = $1
		 ORDER BY e.enrolled_at`
	return r.list(ctx, scanCourse, query, userID)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]*models.Course, error) {
	query := `SELECT ` + courseColumns + `
		 FROM courses c
		 ORDER BY c.created_at DESC`
	return r.list(ctx, scanCourse, query)
}

func (r *PostgresRepository) list(ctx context.Context, scan func(rowScanner) (*models.Course, error), query string, args ...any) ([]*models.Course, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Course, 0)
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// Update applies the non-nil fields of upd and returns the stored course.
func (r *PostgresRepository) Update(ctx context.Context, id string, upd *models.CourseUpdate) (*models.Course, error) {
	query :=
		`UPDATE courses c SET
		   title = COALESCE($2, c.title),
		   subtitle = COALESCE($3, c.subtitle),
		   description = COALESCE($4, c.description),
		   category = COALESCE($5, c.category),
		   level = COALESCE($6, c.level),
		   price = COALESCE($7, c.price),
		   thumbnail_url = COALESCE($8, c.thumbnail_url),
		   updated_at = now()
		 WHERE c.id = $1
		 RETURNING ` + courseColumns

	var price decimal.NullDecimal
	if upd.Price != nil {
		price = decimal.NullDecimal{Decimal: *upd.Price, Valid: true}
	}

	c, err := scanCourse(r.db.QueryRowContext(ctx, query, id,
		upd.Title, upd.Subtitle, upd.Description, upd.Category, upd.Level, price, upd.ThumbnailURL))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

// TogglePublished flips the published flag and returns its new value.
func (r *PostgresRepository) TogglePublished(ctx context.Context, id string) (bool, error) {
	query :=
		`UPDATE courses SET is_published = NOT is_published, updated_at = now()
		 WHERE id = $1
		 RETURNING is_published`

	var published bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&published); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, common.ErrorNotFound
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return published, nil
}
