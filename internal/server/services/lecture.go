package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/coursecloud/internal/common"
	"github.com/dmitrijs2005/coursecloud/internal/dbx"
	"github.com/dmitrijs2005/coursecloud/internal/logging"
	"github.com/dmitrijs2005/coursecloud/internal/server/models"
	"github.com/dmitrijs2005/coursecloud/internal/server/repositories/repomanager"
)

type createLectureInput struct {
	CourseID string `json:"courseId" validate:"required"`
	Title    string `json:"lectureTitle" validate:"required"`
}

// LectureEdit is a partial lecture edit.
type LectureEdit struct {
	Title         string
	VideoURL      string
	PublicID      string
	IsPreviewFree *bool
}

// LectureService manages course curricula.
type LectureService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewLectureService(d Deps) *LectureService {
	return &LectureService{
		db:          d.DB,
		repomanager: d.Repos,
		logger:      d.logger("lectures"),
	}
}

// Create appends a lecture to the end of the course's curriculum.
func (s *LectureService) Create(ctx context.Context, courseID, title string) (*models.Lecture, error) {
	if err := validateStruct(createLectureInput{CourseID: courseID, Title: title}); err != nil {
		return nil, err
	}
	if !validID(courseID) {
		return nil, common.ErrCourseNotFound
	}

	lecture, err := s.repomanager.Lectures(s.db).Create(ctx, &models.Lecture{
		CourseID: &courseID,
		Title:    title,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "lecture created", "lecture_id", lecture.ID, "course_id", courseID)
	return lecture, nil
}

// List returns the course's lectures in curriculum order.
func (s *LectureService) List(ctx context.Context, courseID string) ([]*models.Lecture, error) {
	if !validID(courseID) {
		return nil, common.ErrCourseNotFound
	}
	exists, err := s.repomanager.Courses(s.db).Exists(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, common.ErrCourseNotFound
	}
	return s.repomanager.Lectures(s.db).ListByCourse(ctx, courseID)
}

// Edit updates the lecture and attaches it to the course when it is not
// attached yet. A missing course leaves the lecture where it is.
func (s *LectureService) Edit(ctx context.Context, courseID, lectureID string, in LectureEdit) (*models.Lecture, error) {
	if !validID(lectureID) {
		return nil, common.ErrLectureNotFound
	}

	upd := &models.LectureUpdate{
		Title:         nonEmpty(in.Title),
		VideoURL:      nonEmpty(in.VideoURL),
		PublicID:      nonEmpty(in.PublicID),
		IsPreviewFree: in.IsPreviewFree,
	}

	var lecture *models.Lecture
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Lectures(tx)

		updated, err := repo.Update(ctx, lectureID, upd)
		if err != nil {
			return notFoundAs(err, common.ErrLectureNotFound)
		}

		exists := false
		if validID(courseID) {
			if exists, err = s.repomanager.Courses(tx).Exists(ctx, courseID); err != nil {
				return err
			}
		}
		if !exists {
			s.logger.Warn(ctx, "lecture edited for missing course", "lecture_id", lectureID, "course_id", courseID)
			lecture = updated
			return nil
		}

		if updated.CourseID == nil || *updated.CourseID != courseID {
			if err := repo.Attach(ctx, lectureID, courseID); err != nil {
				return err
			}
			if updated, err = repo.GetByID(ctx, lectureID); err != nil {
				return err
			}
		}

		lecture = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "lecture updated", "lecture_id", lectureID, "course_id", courseID)
	return lecture, nil
}

// Remove deletes the lecture, taking it out of its course.
func (s *LectureService) Remove(ctx context.Context, lectureID string) error {
	if !validID(lectureID) {
		return common.ErrLectureNotFound
	}
	if err := s.repomanager.Lectures(s.db).Delete(ctx, lectureID); err != nil {
		return notFoundAs(err, common.ErrLectureNotFound)
	}

	s.logger.Info(ctx, "lecture removed", "lecture_id", lectureID)
	return nil
}
