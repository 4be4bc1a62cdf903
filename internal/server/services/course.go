package services

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dmitrijs2005/coursecloud/internal/common"
	"github.com/dmitrijs2005/coursecloud/internal/logging"
	"github.com/dmitrijs2005/coursecloud/internal/server/media"
	"github.com/dmitrijs2005/coursecloud/internal/server/models"
	"github.com/dmitrijs2005/coursecloud/internal/server/repositories/repomanager"
	"github.com/shopspring/decimal"
)

type createCourseInput struct {
	Title    string `json:"courseTitle" validate:"required"`
	Category string `json:"category" validate:"required"`
}

// CourseEdit is a partial course edit. Empty strings and a nil thumbnail
// leave the stored values alone.
type CourseEdit struct {
	Title       string
	Subtitle    string
	Description string
	Category    string
	Level       string `json:"courseLevel" validate:"omitempty,oneof=Beginner Medium Advance"`
	Price       string
	Thumbnail   *media.File `validate:"-"`
}

// CourseService manages the course catalogue.
type CourseService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	uploader    media.Uploader
	logger      logging.Logger
}

func NewCourseService(d Deps) *CourseService {
	return &CourseService{
		db:          d.DB,
		repomanager: d.Repos,
		uploader:    d.Uploader,
		logger:      d.logger("courses"),
	}
}

// Create adds an unpublished course owned by creatorID.
func (s *CourseService) Create(ctx context.Context, creatorID, title, category string) (*models.Course, error) {
	if err := validateStruct(createCourseInput{Title: title, Category: category}); err != nil {
		return nil, err
	}

	course, err := s.repomanager.Courses(s.db).Create(ctx, &models.Course{
		CreatorID: creatorID,
		Title:     title,
		Category:  category,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "course created", "course_id", course.ID, "creator_id", creatorID)
	return course, nil
}

// ListPublished returns the public catalogue with creator details.
func (s *CourseService) ListPublished(ctx context.Context) ([]*models.Course, error) {
	return s.repomanager.Courses(s.db).ListPublished(ctx)
}

// ListByCreator returns the creator's courses with their lectures.
func (s *CourseService) ListByCreator(ctx context.Context, creatorID string) ([]*models.Course, error) {
	list, err := s.repomanager.Courses(s.db).ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	byCourse, err := s.repomanager.Lectures(s.db).ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	for _, c := range list {
		c.Lectures = byCourse[c.ID]
		if c.Lectures == nil {
			c.Lectures = []*models.Lecture{}
		}
	}
	return list, nil
}

// Get returns a course with its creator and lectures.
func (s *CourseService) Get(ctx context.Context, courseID string) (*models.Course, error) {
	if !validID(courseID) {
		return nil, common.ErrCourseNotFound
	}
	course, err := s.repomanager.Courses(s.db).GetByID(ctx, courseID)
	if err != nil {
		return nil, notFoundAs(err, common.ErrCourseNotFound)
	}

	course.Lectures, err = s.repomanager.Lectures(s.db).ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return course, nil
}

// Edit applies a partial update, uploading a new thumbnail when one is
// given.
func (s *CourseService) Edit(ctx context.Context, courseID string, in CourseEdit) (*models.Course, error) {
	if !validID(courseID) {
		return nil, common.ErrCourseNotFound
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	upd := &models.CourseUpdate{
		Title:       nonEmpty(in.Title),
		Subtitle:    nonEmpty(in.Subtitle),
		Description: nonEmpty(in.Description),
		Category:    nonEmpty(in.Category),
		Level:       nonEmpty(in.Level),
	}

	if in.Price != "" {
		price, err := decimal.NewFromString(strings.TrimSpace(in.Price))
		if err != nil || price.IsNegative() {
			return nil, common.NewValidationError(map[string]string{"coursePrice": "must be a non-negative amount"})
		}
		price = price.Round(2)
		upd.Price = &price
	}

	repo := s.repomanager.Courses(s.db)

	exists, err := repo.Exists(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, common.ErrCourseNotFound
	}

	if in.Thumbnail != nil {
		m, err := s.uploader.Upload(ctx, in.Thumbnail)
		if err != nil {
			return nil, err
		}
		upd.ThumbnailURL = &m.URL
	}

	if upd.IsEmpty() {
		return s.Get(ctx, courseID)
	}

	course, err := repo.Update(ctx, courseID, upd)
	if err != nil {
		return nil, notFoundAs(err, common.ErrCourseNotFound)
	}

	s.logger.Info(ctx, "course updated", "course_id", courseID)
	return course, nil
}

// TogglePublish flips the course's published flag and returns the new
// value.
func (s *CourseService) TogglePublish(ctx context.Context, courseID string) (bool, error) {
	if !validID(courseID) {
		return false, common.ErrCourseNotFound
	}
	published, err := s.repomanager.Courses(s.db).TogglePublished(ctx, courseID)
	if err != nil {
		return false, notFoundAs(err, common.ErrCourseNotFound)
	}

	s.logger.Info(ctx, "course publish toggled", "course_id", courseID, "published", published)
	return published, nil
}

// ListAllWithStudents returns every course with its enrolled students.
func (s *CourseService) ListAllWithStudents(ctx context.Context) ([]*models.Course, error) {
	list, err := s.repomanager.Courses(s.db).ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, common.ErrNoCourses
	}

	students, err := s.repomanager.Enrollments(s.db).StudentsByCourse(ctx)
	if err != nil {
		return nil, err
	}

	for _, c := range list {
		c.EnrolledStudents = students[c.ID]
		if c.EnrolledStudents == nil {
			c.EnrolledStudents = []*models.UserSummary{}
		}
	}
	return list, nil
}

func nonEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
