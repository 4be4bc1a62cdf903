// Package users provides the PostgreSQL-backed credential store.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/coursecloud/internal/common"
	"github.com/dmitrijs2005/coursecloud/internal/dbx"
	"github.com/dmitrijs2005/coursecloud/internal/server/models"
)

const emailConstraint = "users_email_key"

const userColumns = `id, name, email, password_hash, role, description, photo_url, is_verified, verification_token, otp, otp_expiry, is_logged_in, created_at`

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Description, &u.PhotoURL,
		&u.IsVerified, &u.VerificationToken, &u.OTP, &u.OTPExpiry, &u.IsLoggedIn, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new user and fills in the generated id and creation time.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (name, email, password_hash, role, is_verified, verification_token)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Name, user.Email, user.PasswordHash, user.Role, user.IsVerified, user.VerificationToken,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err, emailConstraint) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// GetByID returns the user with the given id.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByEmail returns the user with the given email. Matching is exact.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.getOne(ctx, query, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) SetVerificationToken(ctx context.Context, id string, token string) error {
	query := `UPDATE users SET verification_token = $2 WHERE id = $1`
	return r.execOne(ctx, query, id, token)
}

func (r *PostgresRepository) MarkVerified(ctx context.Context, id string, token string) (bool, error) {
	query :=
		`UPDATE users SET is_verified = TRUE, verification_token = NULL
		 WHERE id = $1 AND verification_token = $2`
	return r.execMaybe(ctx, query, id, token)
}

func (r *PostgresRepository) SetLoggedIn(ctx context.Context, id string, loggedIn bool) error {
	query := `UPDATE users SET is_logged_in = $2 WHERE id = $1`
	return r.execOne(ctx, query, id, loggedIn)
}

// SetOTP stores a reset code and its expiry, replacing any pending one.
func (r *PostgresRepository) SetOTP(ctx context.Context, id string, otp string, expiry time.Time) error {
	query := `UPDATE users SET otp = $2, otp_expiry = $3 WHERE id = $1`
	return r.execOne(ctx, query, id, otp, expiry)
}

func (r *PostgresRepository) ClearOTP(ctx context.Context, id string, otp string) (bool, error) {
	query :=
		`UPDATE users SET otp = NULL, otp_expiry = NULL
		 WHERE id = $1 AND otp = $2`
	return r.execMaybe(ctx, query, id, otp)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2 WHERE id = $1`
	return r.execOne(ctx, query, id, passwordHash)
}

// UpdateProfile overwrites the non-nil fields and returns the updated user.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, name, description, photoURL *string) (*models.User, error) {
	query :=
		`UPDATE users SET
		   name = COALESCE($2, name),
		   description = COALESCE($3, description),
		   photo_url = COALESCE($4, photo_url)
		 WHERE id = $1
		 RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id, name, description, photoURL))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

// execOne runs an update that must touch exactly one user.
func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	ok, err := r.execMaybe(ctx, query, args...)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) execMaybe(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}
