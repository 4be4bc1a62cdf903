package lectures

import (
	"context"

	"github.com/dmitrijs2005/coursecloud/internal/server/models"
)

// Repository stores lectures and their curriculum order.
type Repository interface {
	// Create appends the lecture at the end of its course's curriculum.
	Create(ctx context.Context, lecture *models.Lecture) (*models.Lecture, error)
	GetByID(ctx context.Context, id string) (*models.Lecture, error)
	ListByCourse(ctx context.Context, courseID string) ([]*models.Lecture, error)
	// ListByCreator groups the lectures of every course owned by creatorID
	// by course id.
	ListByCreator(ctx context.Context, creatorID string) (map[string][]*models.Lecture, error)
	Update(ctx context.Context, id string, upd *models.LectureUpdate) (*models.Lecture, error)
	// Attach moves the lecture to the end of courseID's curriculum unless it
	// already belongs to that course.
	Attach(ctx context.Context, id string, courseID string) error
	Delete(ctx context.Context, id string) error
}
