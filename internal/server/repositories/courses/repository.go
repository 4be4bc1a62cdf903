package courses

import (
	"context"

	"github.com/dmitrijs2005/coursecloud/internal/server/models"
)

// Repository stores courses. Lookups of a single course return
// common.ErrorNotFound when it is absent.
type Repository interface {
	Create(ctx context.Context, course *models.Course) (*models.Course, error)
	GetByID(ctx context.Context, id string) (*models.Course, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListPublished(ctx context.Context) ([]*models.Course, error)
	ListByCreator(ctx context.Context, creatorID string) ([]*models.Course, error)
	ListByStudent(ctx context.Context, userID string) ([]*models.Course, error)
	ListAll(ctx context.Context) ([]*models.Course, error)
	Update(ctx context.Context, id string, upd *models.CourseUpdate) (*models.Course, error)
	TogglePublished(ctx context.Context, id string) (bool, error)
}
