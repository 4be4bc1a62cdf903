package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/coursecloud/internal/server/models"
)

// Repository is the credential store.
//
// Lookups return common.ErrorNotFound for absent users. Create returns
// common.ErrDuplicateEmail when the email is already taken.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	SetVerificationToken(ctx context.Context, id string, token string) error
	// MarkVerified clears the pending token and sets the verified flag, but
	// only when token is still the pending one. It reports whether it did.
	MarkVerified(ctx context.Context, id string, token string) (bool, error)

	SetLoggedIn(ctx context.Context, id string, loggedIn bool) error

	SetOTP(ctx context.Context, id string, otp string, expiry time.Time) error
	// ClearOTP removes the pending OTP when it still equals otp. It reports
	// whether it did.
	ClearOTP(ctx context.Context, id string, otp string) (bool, error)

	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	UpdateProfile(ctx context.Context, id string, name, description, photoURL *string) (*models.User, error)
}
