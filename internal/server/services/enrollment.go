package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/coursecloud/internal/common"
	"github.com/dmitrijs2005/coursecloud/internal/dbx"
	"github.com/dmitrijs2005/coursecloud/internal/logging"
	"github.com/dmitrijs2005/coursecloud/internal/server/models"
	"github.com/dmitrijs2005/coursecloud/internal/server/repositories/repomanager"
)

// EnrollmentService keeps the course and user sides of an enrollment in
// step.
type EnrollmentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewEnrollmentService(d Deps) *EnrollmentService {
	return &EnrollmentService{
		db:          d.DB,
		repomanager: d.Repos,
		logger:      d.logger("enrollments"),
	}
}

// Enroll adds the user to the course's students and the course to the
// user's courses in one transaction. A repeated call fails with
// common.ErrAlreadyEnrolled and changes nothing.
func (s *EnrollmentService) Enroll(ctx context.Context, userID, courseID string) error {
	if !validID(courseID) {
		return common.ErrCourseNotFound
	}
	if !validID(userID) {
		return common.ErrUserNotFound
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		exists, err := s.repomanager.Courses(tx).Exists(ctx, courseID)
		if err != nil {
			return err
		}
		if !exists {
			return common.ErrCourseNotFound
		}

		repo := s.repomanager.Enrollments(tx)

		added, err := repo.AddStudent(ctx, courseID, userID)
		if err != nil {
			return err
		}
		if !added {
			return common.ErrAlreadyEnrolled
		}

		if _, err := repo.AddCourse(ctx, userID, courseID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, common.ErrAlreadyEnrolled) && !errors.Is(err, common.ErrorNotFound) {
			s.logger.Error(ctx, "enroll failed", "user_id", userID, "course_id", courseID, "error", err)
		}
		return err
	}

	s.logger.Info(ctx, "user enrolled", "user_id", userID, "course_id", courseID)
	return nil
}

// ConfirmEnrollment records an enrollment after payment confirmation.
func (s *EnrollmentService) ConfirmEnrollment(ctx context.Context, userID, courseID string) error {
	return s.Enroll(ctx, userID, courseID)
}

// CheckEnrollment reports whether the user is enrolled in the course. An
// unknown user is not enrolled anywhere.
func (s *EnrollmentService) CheckEnrollment(ctx context.Context, userID, courseID string) (bool, error) {
	if !validID(userID) || !validID(courseID) {
		return false, nil
	}
	if _, err := s.repomanager.Users(s.db).GetByID(ctx, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}
	return s.repomanager.Enrollments(s.db).IsEnrolled(ctx, userID, courseID)
}

// EnrolledCourses lists the courses the user is enrolled in, oldest first.
func (s *EnrollmentService) EnrolledCourses(ctx context.Context, userID string) ([]*models.Course, error) {
	if !validID(userID) {
		return nil, common.ErrUserNotFound
	}
	if _, err := s.repomanager.Users(s.db).GetByID(ctx, userID); err != nil {
		return nil, notFoundAs(err, common.ErrUserNotFound)
	}
	return s.repomanager.Courses(s.db).ListByStudent(ctx, userID)
}
