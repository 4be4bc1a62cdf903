package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/coursecloud/internal/common"
	"github.com/dmitrijs2005/coursecloud/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var userCols = []string{"id", "name", "email", "password_hash", "role", "description", "photo_url",
	"is_verified", "verification_token", "otp", "otp_expiry", "is_logged_in", "created_at"}

const insertQ = `(?s)^INSERT\s+INTO\s+users\s*\(name,\s*email,\s*password_hash,\s*role,\s*is_verified,\s*verification_token\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*RETURNING\s+id,\s*created_at$`

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(insertQ).
		WithArgs("Alice", "a@x.com", "hash", models.RoleStudent, false, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("u-1", now))

	u := &models.User{Name: "Alice", Email: "a@x.com", PasswordHash: "hash", Role: models.RoleStudent}
	got, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.Equal(t, now, got.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), &models.User{Name: "Alice", Email: "a@x.com"})
	assert.ErrorIs(t, err, common.ErrDuplicateEmail)
	assert.ErrorIs(t, err, common.ErrorConflict)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{Name: "Alice"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expiry := time.Now().Add(10 * time.Minute)
	rows := sqlmock.NewRows(userCols).
		AddRow("u-1", "Alice", "a@x.com", "hash", "student", "", "", true, nil, "123456", expiry, false, time.Now())
	mock.ExpectQuery(`(?s)^SELECT\s+id,.*created_at\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1$`).
		WithArgs("a@x.com").
		WillReturnRows(rows)

	got, err := repo.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.True(t, got.IsVerified)
	assert.Nil(t, got.VerificationToken)
	require.NotNil(t, got.OTP)
	assert.Equal(t, "123456", *got.OTP)
	require.NotNil(t, got.OTPExpiry)
	assert.True(t, got.OTPExpiry.Equal(expiry))
	assert.True(t, got.HasPendingOTP())
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetByID_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT.*FROM\s+users`).WillReturnError(errors.New("boom"))

	_, err := repo.GetByID(context.Background(), "u-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorNotFound)
}

func TestMarkVerified(t *testing.T) {
	q := `(?s)^UPDATE\s+users\s+SET\s+is_verified\s*=\s*TRUE,\s*verification_token\s*=\s*NULL\s+WHERE\s+id\s*=\s*\$1\s+AND\s+verification_token\s*=\s*\$2$`

	t.Run("token matches", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectExec(q).WithArgs("u-1", "tok").WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.MarkVerified(context.Background(), "u-1", "tok")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("token already used", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectExec(q).WithArgs("u-1", "tok").WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.MarkVerified(context.Background(), "u-1", "tok")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestSetLoggedIn_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+is_logged_in\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs("u-1", true).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetLoggedIn(context.Background(), "u-1", true)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSetOTPAndClear(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expiry := time.Now().Add(10 * time.Minute)
	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+otp\s*=\s*\$2,\s*otp_expiry\s*=\s*\$3\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs("u-1", "042042", expiry).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+otp\s*=\s*NULL,\s*otp_expiry\s*=\s*NULL\s+WHERE\s+id\s*=\s*\$1\s+AND\s+otp\s*=\s*\$2$`).
		WithArgs("u-1", "042042").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetOTP(context.Background(), "u-1", "042042", expiry))
	ok, err := repo.ClearOTP(context.Background(), "u-1", "042042")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePassword_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+password_hash`).
		WithArgs("u-1", "newhash").
		WillReturnError(errors.New("db down"))

	err := repo.UpdatePassword(context.Background(), "u-1", "newhash")
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	name := "Alice B"
	rows := sqlmock.NewRows(userCols).
		AddRow("u-1", "Alice B", "a@x.com", "hash", "student", "bio", "", true, nil, nil, nil, true, time.Now())
	mock.ExpectQuery(`(?s)^UPDATE\s+users\s+SET\s+name\s*=\s*COALESCE\(\$2,\s*name\).*RETURNING\s+id,`).
		WithArgs("u-1", "Alice B", nil, nil).
		WillReturnRows(rows)

	got, err := repo.UpdateProfile(context.Background(), "u-1", &name, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Alice B", got.Name)
	assert.Equal(t, "bio", got.Description)
	assert.False(t, got.HasPendingOTP())
}
