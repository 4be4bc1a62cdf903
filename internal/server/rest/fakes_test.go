package rest

import (
	"context"
	"io"
	"time"

	"github.com/dmitrijs2005/coursecloud/internal/common"
	"github.com/dmitrijs2005/coursecloud/internal/logging"
	"github.com/dmitrijs2005/coursecloud/internal/server/config"
	"github.com/dmitrijs2005/coursecloud/internal/server/media"
	"github.com/dmitrijs2005/coursecloud/internal/server/models"
	"github.com/dmitrijs2005/coursecloud/internal/server/services"
)

// tokens maps access tokens to the identities or errors they resolve to.
type fakeUsers struct {
	tokens  map[string]*services.Identity
	authErr map[string]error

	registerErr error
	verifyErr   error
	loginErr    error
	logoutErr   error

	loggedOut string
	profile   services.ProfileUpdate
	photoBody string
	email     string
	otp       string
}

func (f *fakeUsers) Register(_ context.Context, in services.RegisterInput) (*models.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &models.User{ID: "u-1", Name: in.Name, Email: in.Email, Role: in.Role}, nil
}

func (f *fakeUsers) Verify(_ context.Context, token string) error {
	if token == "" {
		return common.ErrMissingCredential
	}
	return f.verifyErr
}

func (f *fakeUsers) Login(_ context.Context, email, _ string) (*services.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &services.LoginResult{
		TokenPair: services.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1", AccessExpiresAt: time.Now().Add(time.Hour)},
		User:      &models.User{ID: "u-1", Name: "Alice", Email: email, PasswordHash: "secret-hash"},
	}, nil
}

func (f *fakeUsers) Logout(_ context.Context, userID string) error {
	f.loggedOut = userID
	return f.logoutErr
}

func (f *fakeUsers) Refresh(_ context.Context, token string) (*services.TokenPair, error) {
	if token != "refresh-1" {
		return nil, common.ErrInvalidToken
	}
	return &services.TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
}

func (f *fakeUsers) Authenticate(_ context.Context, token string) (*services.Identity, error) {
	if token == "" {
		return nil, common.ErrMissingCredential
	}
	if err, ok := f.authErr[token]; ok {
		return nil, err
	}
	if id, ok := f.tokens[token]; ok {
		return id, nil
	}
	return nil, common.ErrInvalidToken
}

func (f *fakeUsers) ForgotPassword(_ context.Context, email string) error {
	f.email = email
	return nil
}

func (f *fakeUsers) VerifyOTP(_ context.Context, email, otp string) error {
	f.email, f.otp = email, otp
	if otp != "123456" {
		return common.ErrOTPMismatch
	}
	return nil
}

func (f *fakeUsers) ChangePassword(_ context.Context, email, newPassword, confirm string) error {
	f.email = email
	if newPassword != confirm {
		return common.ErrPasswordMismatch
	}
	return nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, userID string, in services.ProfileUpdate) (*models.User, error) {
	f.profile = in
	if in.Photo != nil {
		b, _ := io.ReadAll(in.Photo.Body)
		f.photoBody = string(b)
	}
	return &models.User{ID: userID, Name: in.Name, Description: in.Description}, nil
}

type fakeCourses struct {
	created [3]string
	edit    services.CourseEdit
	thumb   string
	listErr error
	toggled bool
}

func (f *fakeCourses) Create(_ context.Context, creatorID, title, category string) (*models.Course, error) {
	f.created = [3]string{creatorID, title, category}
	return &models.Course{ID: "c-1", CreatorID: creatorID, Title: title, Category: category}, nil
}

func (f *fakeCourses) ListPublished(context.Context) ([]*models.Course, error) {
	return []*models.Course{{ID: "c-1", Title: "Go", IsPublished: true}}, f.listErr
}

func (f *fakeCourses) ListByCreator(_ context.Context, creatorID string) ([]*models.Course, error) {
	return []*models.Course{{ID: "c-1", CreatorID: creatorID}}, nil
}

func (f *fakeCourses) Get(_ context.Context, courseID string) (*models.Course, error) {
	if courseID != "c-1" {
		return nil, common.ErrCourseNotFound
	}
	return &models.Course{ID: "c-1", Title: "Go"}, nil
}

func (f *fakeCourses) Edit(_ context.Context, courseID string, in services.CourseEdit) (*models.Course, error) {
	f.edit = in
	if in.Thumbnail != nil {
		b, _ := io.ReadAll(in.Thumbnail.Body)
		f.thumb = string(b)
	}
	return &models.Course{ID: courseID, Title: in.Title}, nil
}

func (f *fakeCourses) TogglePublish(context.Context, string) (bool, error) {
	f.toggled = !f.toggled
	return f.toggled, nil
}

func (f *fakeCourses) ListAllWithStudents(context.Context) ([]*models.Course, error) {
	return nil, common.ErrNoCourses
}

type fakeLectures struct {
	edit services.LectureEdit
	ids  [2]string
}

func (f *fakeLectures) Create(_ context.Context, courseID, title string) (*models.Lecture, error) {
	return &models.Lecture{ID: "l-1", CourseID: &courseID, Title: title}, nil
}

func (f *fakeLectures) List(context.Context, string) ([]*models.Lecture, error) {
	return []*models.Lecture{}, nil
}

func (f *fakeLectures) Edit(_ context.Context, courseID, lectureID string, in services.LectureEdit) (*models.Lecture, error) {
	f.edit, f.ids = in, [2]string{courseID, lectureID}
	return &models.Lecture{ID: lectureID, CourseID: &courseID, Title: in.Title}, nil
}

func (f *fakeLectures) Remove(_ context.Context, lectureID string) error {
	if lectureID != "l-1" {
		return common.ErrLectureNotFound
	}
	return nil
}

type fakeEnrollments struct {
	enrolled map[string]bool
}

func (f *fakeEnrollments) Enroll(_ context.Context, userID, courseID string) error {
	key := userID + "/" + courseID
	if f.enrolled[key] {
		return common.ErrAlreadyEnrolled
	}
	f.enrolled[key] = true
	return nil
}

func (f *fakeEnrollments) ConfirmEnrollment(ctx context.Context, userID, courseID string) error {
	return f.Enroll(ctx, userID, courseID)
}

func (f *fakeEnrollments) CheckEnrollment(_ context.Context, userID, courseID string) (bool, error) {
	return f.enrolled[userID+"/"+courseID], nil
}

func (f *fakeEnrollments) EnrolledCourses(context.Context, string) ([]*models.Course, error) {
	return []*models.Course{}, nil
}

type fakeUploader struct {
	err  error
	body string
}

func (f *fakeUploader) Upload(_ context.Context, file *media.File) (*models.Media, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, _ := io.ReadAll(file.Body)
	f.body = string(b)
	return &models.Media{URL: "http://s3.local/bucket/media/" + file.Name, PublicID: "media/" + file.Name}, nil
}

type testAPI struct {
	users       *fakeUsers
	courses     *fakeCourses
	lectures    *fakeLectures
	enrollments *fakeEnrollments
	uploader    *fakeUploader
	checks      map[string]HealthCheck
	cfg         *config.Config
}

func newTestAPI() *testAPI {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.MaxUploadSize = 1 << 10
	cfg.AllowedOrigin = "http://client.local"

	return &testAPI{
		users: &fakeUsers{
			tokens: map[string]*services.Identity{
				"good": {UserID: "u-1", Role: models.RoleStudent},
			},
			authErr: map[string]error{
				"expired": common.ErrTokenExpired,
				"ghost":   common.ErrUserNotFound,
			},
		},
		courses:     &fakeCourses{},
		lectures:    &fakeLectures{},
		enrollments: &fakeEnrollments{enrolled: map[string]bool{}},
		uploader:    &fakeUploader{},
		checks:      map[string]HealthCheck{},
		cfg:         cfg,
	}
}

func (a *testAPI) handler() *Handler {
	return NewHandler(a.cfg, logging.Nop(), Services{
		Users:       a.users,
		Courses:     a.courses,
		Lectures:    a.lectures,
		Enrollments: a.enrollments,
		Uploader:    a.uploader,
		Checks:      a.checks,
	})
}
