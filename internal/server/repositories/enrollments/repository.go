package enrollments

import (
	"context"

	"github.com/dmitrijs2005/coursecloud/internal/server/models"
)

// Repository stores both sides of the enrollment relation. Each side is a
// set: adding an existing pair is a no-op reported as false.
type Repository interface {
	AddStudent(ctx context.Context, courseID, userID string) (bool, error)
	AddCourse(ctx context.Context, userID, courseID string) (bool, error)
	IsEnrolled(ctx context.Context, userID, courseID string) (bool, error)
	CourseIDs(ctx context.Context, userID string) ([]string, error)
	// StudentsByCourse returns the enrolled students of every course, keyed
	// by course id.
	StudentsByCourse(ctx context.Context) (map[string][]*models.UserSummary, error)
}
