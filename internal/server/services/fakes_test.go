package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/coursecloud/internal/common"
	"github.com/dmitrijs2005/coursecloud/internal/dbx"
	"github.com/dmitrijs2005/coursecloud/internal/server/auth"
	"github.com/dmitrijs2005/coursecloud/internal/server/media"
	"github.com/dmitrijs2005/coursecloud/internal/server/models"
	"github.com/dmitrijs2005/coursecloud/internal/server/repositories/courses"
	"github.com/dmitrijs2005/coursecloud/internal/server/repositories/enrollments"
	"github.com/dmitrijs2005/coursecloud/internal/server/repositories/lectures"
	"github.com/dmitrijs2005/coursecloud/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/coursecloud/internal/server/repositories/users"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func newTestSessions(t *testing.T) (*miniredis.Miniredis, *sessions.RedisRepository) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, sessions.NewRedisRepository(client)
}

type testEnv struct {
	db      *sql.DB
	mock    sqlmock.Sqlmock
	store   *memStore
	redis   *miniredis.Miniredis
	mailer  *fakeMailer
	uploads *fakeUploader
	tokens  *auth.JWTService
	deps    Deps
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, mock := newSQLMockDB(t)
	mr, sess := newTestSessions(t)
	store := newMemStore()
	m := &fakeMailer{}
	up := &fakeUploader{}
	tokens := auth.NewJWTService([]byte("test-secret"))

	return &testEnv{
		db:      db,
		mock:    mock,
		store:   store,
		redis:   mr,
		mailer:  m,
		uploads: up,
		tokens:  tokens,
		deps: Deps{
			DB:       db,
			Repos:    &fakeRepos{store: store},
			Sessions: sess,
			Tokens:   tokens,
			Hasher:   auth.NewBcryptHasher(bcrypt.MinCost),
			Mailer:   m,
			Uploader: up,
		},
	}
}

// --- collaborators ---

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: htmlBody})
	return nil
}

type fakeUploader struct {
	files []*media.File
	err   error
}

func (f *fakeUploader) Upload(_ context.Context, file *media.File) (*models.Media, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.files = append(f.files, file)
	key := "media/2024/01/02/" + file.Name
	return &models.Media{URL: "http://s3.local/bucket/" + key, PublicID: key}, nil
}

// --- repositories ---

// memStore backs the fake repositories. It ignores the DBTX it is handed,
// so transactions are observed through sqlmock expectations only.
type memStore struct {
	mu sync.Mutex

	users    map[string]*models.User
	courses  map[string]*models.Course
	lectures map[string]*models.Lecture

	students map[string][]string // course -> users
	enrolled map[string][]string // user -> courses

	failAddCourse error
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*models.User{},
		courses:  map[string]*models.Course{},
		lectures: map[string]*models.Lecture{},
		students: map[string][]string{},
		enrolled: map[string][]string{},
	}
}

func (s *memStore) addUser(u *models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.users[u.ID] = u
	return u
}

func (s *memStore) addCourse(c *models.Course) *models.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.courses[c.ID] = c
	return c
}

func (s *memStore) user(id string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

type fakeRepos struct {
	store *memStore
}

func (f *fakeRepos) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepos) Users(dbx.DBTX) users.Repository { return &fakeUsers{f.store} }
func (f *fakeRepos) Courses(dbx.DBTX) courses.Repository { return &fakeCourses{f.store} }
func (f *fakeRepos) Lectures(dbx.DBTX) lectures.Repository { return &fakeLectures{f.store} }
func (f *fakeRepos) Enrollments(dbx.DBTX) enrollments.Repository { return &fakeEnrollments{f.store} }

type fakeUsers struct{ s *memStore }

func (f *fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, existing := range f.s.users {
		if existing.Email == u.Email {
			return nil, common.ErrDuplicateEmail
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	f.s.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, u := range f.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsers) with(id string, fn func(u *models.User) bool) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[id]
	if !ok {
		return false, common.ErrorNotFound
	}
	return fn(u), nil
}

func (f *fakeUsers) SetVerificationToken(_ context.Context, id, token string) error {
	_, err := f.with(id, func(u *models.User) bool { u.VerificationToken = &token; return true })
	return err
}

func (f *fakeUsers) MarkVerified(_ context.Context, id, token string) (bool, error) {
	return f.with(id, func(u *models.User) bool {
		if u.VerificationToken == nil || *u.VerificationToken != token {
			return false
		}
		u.VerificationToken = nil
		u.IsVerified = true
		return true
	})
}

func (f *fakeUsers) SetLoggedIn(_ context.Context, id string, loggedIn bool) error {
	_, err := f.with(id, func(u *models.User) bool { u.IsLoggedIn = loggedIn; return true })
	return err
}

func (f *fakeUsers) SetOTP(_ context.Context, id, otp string, expiry time.Time) error {
	_, err := f.with(id, func(u *models.User) bool { u.OTP = &otp; u.OTPExpiry = &expiry; return true })
	return err
}

func (f *fakeUsers) ClearOTP(_ context.Context, id, otp string) (bool, error) {
	return f.with(id, func(u *models.User) bool {
		if u.OTP == nil || *u.OTP != otp {
			return false
		}
		u.OTP, u.OTPExpiry = nil, nil
		return true
	})
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id, hash string) error {
	_, err := f.with(id, func(u *models.User) bool { u.PasswordHash = hash; return true })
	return err
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id string, name, description, photoURL *string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if name != nil {
		u.Name = *name
	}
	if description != nil {
		u.Description = *description
	}
	if photoURL != nil {
		u.PhotoURL = *photoURL
	}
	cp := *u
	return &cp, nil
}

type fakeCourses struct{ s *memStore }

func (f *fakeCourses) Create(_ context.Context, c *models.Course) (*models.Course, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.users[c.CreatorID]; !ok {
		return nil, common.ErrUserNotFound
	}
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now()
	f.s.courses[c.ID] = c
	cp := *c
	return &cp, nil
}

func (f *fakeCourses) GetByID(_ context.Context, id string) (*models.Course, error) {
	if err := checkUUID(id); err != nil {
		return nil, err
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c, ok := f.s.courses[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCourses) Exists(_ context.Context, id string) (bool, error) {
	if err := checkUUID(id); err != nil {
		return false, err
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	_, ok := f.s.courses[id]
	return ok, nil
}

func (f *fakeCourses) filter(keep func(*models.Course) bool) []*models.Course {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := make([]*models.Course, 0)
	for _, c := range f.s.courses {
		if keep(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

func (f *fakeCourses) ListPublished(context.Context) ([]*models.Course, error) {
	return f.filter(func(c *models.Course) bool { return c.IsPublished }), nil
}

func (f *fakeCourses) ListByCreator(_ context.Context, creatorID string) ([]*models.Course, error) {
	return f.filter(func(c *models.Course) bool { return c.CreatorID == creatorID }), nil
}

func (f *fakeCourses) ListByStudent(_ context.Context, userID string) ([]*models.Course, error) {
	f.s.mu.Lock()
	ids := append([]string(nil), f.s.enrolled[userID]...)
	f.s.mu.Unlock()

	out := make([]*models.Course, 0, len(ids))
	for _, id := range ids {
		c, err := f.GetByID(context.Background(), id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCourses) ListAll(context.Context) ([]*models.Course, error) {
	return f.filter(func(*models.Course) bool { return true }), nil
}

func (f *fakeCourses) Update(_ context.Context, id string, upd *models.CourseUpdate) (*models.Course, error) {
	if err := checkUUID(id); err != nil {
		return nil, err
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c, ok := f.s.courses[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&c.Title, upd.Title)
	set(&c.Subtitle, upd.Subtitle)
	set(&c.Description, upd.Description)
	set(&c.Category, upd.Category)
	set(&c.Level, upd.Level)
	set(&c.ThumbnailURL, upd.ThumbnailURL)
	if upd.Price != nil {
		c.Price.Decimal, c.Price.Valid = *upd.Price, true
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCourses) TogglePublished(_ context.Context, id string) (bool, error) {
	if err := checkUUID(id); err != nil {
		return false, err
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c, ok := f.s.courses[id]
	if !ok {
		return false, common.ErrorNotFound
	}
	c.IsPublished = !c.IsPublished
	return c.IsPublished, nil
}

type fakeLectures struct{ s *memStore }

func (f *fakeLectures) nextPosition(courseID string) int {
	next := 0
	for _, l := range f.s.lectures {
		if l.CourseID != nil && *l.CourseID == courseID && l.Position >= next {
			next = l.Position + 1
		}
	}
	return next
}

func (f *fakeLectures) Create(_ context.Context, l *models.Lecture) (*models.Lecture, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if l.CourseID != nil {
		if _, ok := f.s.courses[*l.CourseID]; !ok {
			return nil, common.ErrCourseNotFound
		}
		l.Position = f.nextPosition(*l.CourseID)
	}
	l.ID = uuid.NewString()
	f.s.lectures[l.ID] = l
	cp := *l
	return &cp, nil
}

func (f *fakeLectures) GetByID(_ context.Context, id string) (*models.Lecture, error) {
	if err := checkUUID(id); err != nil {
		return nil, err
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	l, ok := f.s.lectures[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLectures) ListByCourse(_ context.Context, courseID string) ([]*models.Lecture, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := make([]*models.Lecture, 0)
	for _, l := range f.s.lectures {
		if l.CourseID != nil && *l.CourseID == courseID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeLectures) ListByCreator(ctx context.Context, creatorID string) (map[string][]*models.Lecture, error) {
	f.s.mu.Lock()
	var ids []string
	for id, c := range f.s.courses {
		if c.CreatorID == creatorID {
			ids = append(ids, id)
		}
	}
	f.s.mu.Unlock()

	out := make(map[string][]*models.Lecture)
	for _, id := range ids {
		list, _ := f.ListByCourse(ctx, id)
		if len(list) > 0 {
			out[id] = list
		}
	}
	return out, nil
}

func (f *fakeLectures) Update(_ context.Context, id string, upd *models.LectureUpdate) (*models.Lecture, error) {
	if err := checkUUID(id); err != nil {
		return nil, err
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	l, ok := f.s.lectures[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if upd.Title != nil {
		l.Title = *upd.Title
	}
	if upd.VideoURL != nil {
		l.VideoURL = *upd.VideoURL
	}
	if upd.PublicID != nil {
		l.PublicID = *upd.PublicID
	}
	if upd.IsPreviewFree != nil {
		l.IsPreviewFree = *upd.IsPreviewFree
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLectures) Attach(_ context.Context, id, courseID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	l, ok := f.s.lectures[id]
	if !ok || (l.CourseID != nil && *l.CourseID == courseID) {
		return nil
	}
	if _, ok := f.s.courses[courseID]; !ok {
		return common.ErrCourseNotFound
	}
	l.Position = f.nextPosition(courseID)
	l.CourseID = &courseID
	return nil
}

func (f *fakeLectures) Delete(_ context.Context, id string) error {
	if err := checkUUID(id); err != nil {
		return err
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.lectures[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.s.lectures, id)
	return nil
}

type fakeEnrollments struct{ s *memStore }

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func (f *fakeEnrollments) AddStudent(_ context.Context, courseID, userID string) (bool, error) {
	if err := checkUUID(courseID); err != nil {
		return false, err
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.users[userID]; !ok {
		return false, common.ErrUserNotFound
	}
	if contains(f.s.students[courseID], userID) {
		return false, nil
	}
	f.s.students[courseID] = append(f.s.students[courseID], userID)
	return true, nil
}

func (f *fakeEnrollments) AddCourse(_ context.Context, userID, courseID string) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.failAddCourse != nil {
		return false, f.s.failAddCourse
	}
	if contains(f.s.enrolled[userID], courseID) {
		return false, nil
	}
	f.s.enrolled[userID] = append(f.s.enrolled[userID], courseID)
	return true, nil
}

func (f *fakeEnrollments) IsEnrolled(_ context.Context, userID, courseID string) (bool, error) {
	if err := checkUUID(courseID); err != nil {
		return false, err
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return contains(f.s.enrolled[userID], courseID), nil
}

func (f *fakeEnrollments) CourseIDs(_ context.Context, userID string) ([]string, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return append([]string{}, f.s.enrolled[userID]...), nil
}

func (f *fakeEnrollments) StudentsByCourse(context.Context) (map[string][]*models.UserSummary, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := make(map[string][]*models.UserSummary)
	for courseID, ids := range f.s.students {
		for _, id := range ids {
			u := f.s.users[id]
			out[courseID] = append(out[courseID], &models.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, PhotoURL: u.PhotoURL})
		}
	}
	return out, nil
}

var errBoom = errors.New("boom")

// errInvalidUUID is what Postgres reports for a malformed uuid literal.
var errInvalidUUID = errors.New("invalid input syntax for type uuid")

func checkUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("db error: %w", errInvalidUUID)
	}
	return nil
}
