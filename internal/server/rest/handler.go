// Package rest exposes the CourseCloud services over HTTP.
package rest

import (
	"context"
	"time"

	"github.com/dmitrijs2005/coursecloud/internal/logging"
	"github.com/dmitrijs2005/coursecloud/internal/server/config"
	"github.com/dmitrijs2005/coursecloud/internal/server/media"
	"github.com/dmitrijs2005/coursecloud/internal/server/models"
	"github.com/dmitrijs2005/coursecloud/internal/server/services"
)

// UserService is the account and session API used by the handlers.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Verify(ctx context.Context, token string) error
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	Logout(ctx context.Context, userID string) error
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Authenticate(ctx context.Context, token string) (*services.Identity, error)
	ForgotPassword(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, otp string) error
	ChangePassword(ctx context.Context, email, newPassword, confirmPassword string) error
	UpdateProfile(ctx context.Context, userID string, in services.ProfileUpdate) (*models.User, error)
}

type CourseService interface {
	Create(ctx context.Context, creatorID, title, category string) (*models.Course, error)
	ListPublished(ctx context.Context) ([]*models.Course, error)
	ListByCreator(ctx context.Context, creatorID string) ([]*models.Course, error)
	Get(ctx context.Context, courseID string) (*models.Course, error)
	Edit(ctx context.Context, courseID string, in services.CourseEdit) (*models.Course, error)
	TogglePublish(ctx context.Context, courseID string) (bool, error)
	ListAllWithStudents(ctx context.Context) ([]*models.Course, error)
}

type LectureService interface {
	Create(ctx context.Context, courseID, title string) (*models.Lecture, error)
	List(ctx context.Context, courseID string) ([]*models.Lecture, error)
	Edit(ctx context.Context, courseID, lectureID string, in services.LectureEdit) (*models.Lecture, error)
	Remove(ctx context.Context, lectureID string) error
}

type EnrollmentService interface {
	Enroll(ctx context.Context, userID, courseID string) error
	ConfirmEnrollment(ctx context.Context, userID, courseID string) error
	CheckEnrollment(ctx context.Context, userID, courseID string) (bool, error)
	EnrolledCourses(ctx context.Context, userID string) ([]*models.Course, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Services groups the handler collaborators.
type Services struct {
	Users       UserService
	Courses     CourseService
	Lectures    LectureService
	Enrollments EnrollmentService
	Uploader    media.Uploader
	Checks      map[string]HealthCheck
}

// Handler serves the REST API.
type Handler struct {
	users       UserService
	courses     CourseService
	lectures    LectureService
	enrollments EnrollmentService
	uploader    media.Uploader
	checks      map[string]HealthCheck
	logger      logging.Logger

	cookieSecure  bool
	cookieMaxAge  time.Duration
	maxUploadSize int64
	allowedOrigin string
}

func NewHandler(cfg *config.Config, logger logging.Logger, s Services) *Handler {
	return &Handler{
		users:         s.Users,
		courses:       s.Courses,
		lectures:      s.Lectures,
		enrollments:   s.Enrollments,
		uploader:      s.Uploader,
		checks:        s.Checks,
		logger:        logger.With("module", "rest"),
		cookieSecure:  cfg.CookieSecure,
		cookieMaxAge:  cfg.AccessTokenValidityDuration,
		maxUploadSize: cfg.MaxUploadSize,
		allowedOrigin: cfg.AllowedOrigin,
	}
}
