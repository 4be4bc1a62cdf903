package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/coursecloud/internal/common"
	"github.com/dmitrijs2005/coursecloud/internal/dbx"
	"github.com/dmitrijs2005/coursecloud/internal/logging"
	"github.com/dmitrijs2005/coursecloud/internal/server/auth"
	"github.com/dmitrijs2005/coursecloud/internal/server/config"
	"github.com/dmitrijs2005/coursecloud/internal/server/mailer"
	"github.com/dmitrijs2005/coursecloud/internal/server/media"
	"github.com/dmitrijs2005/coursecloud/internal/server/models"
	"github.com/dmitrijs2005/coursecloud/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/coursecloud/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/coursecloud/internal/server/secrets"
	"github.com/google/uuid"
)

// TokenPair bundles an access token and a refresh token.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	TokenPair
	User *models.User
}

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID string
	Role   string
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=student instructor"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type changePasswordInput struct {
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// ProfileUpdate carries a profile edit. Empty values are ignored.
type ProfileUpdate struct {
	Name        string
	Description string
	Photo       *media.File
}

// UserService implements registration and verification, login, logout and
// token refresh, the forgot-password flow, profile edits and request
// authentication.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sessions    sessions.Repository
	tokens      auth.TokenService
	hasher      auth.Hasher
	mailer      mailer.Mailer
	uploader    media.Uploader
	logger      logging.Logger

	accessTokenValidityDuration       time.Duration
	refreshTokenValidityDuration      time.Duration
	verificationTokenValidityDuration time.Duration
	otpValidityDuration               time.Duration
	strictSessions                    bool
	requireResetGrant                 bool
	clientURL                         string

	now       func() time.Time
	dummyHash string
}

// NewUserService constructs a UserService from its collaborators and the
// server config. It hashes a throwaway password once so that logins for
// unknown emails cost as much as real ones.
func NewUserService(d Deps, cfg *config.Config) (*UserService, error) {
	dummy, err := d.Hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("init dummy hash: %w", err)
	}

	return &UserService{
		db:                                d.DB,
		repomanager:                       d.Repos,
		sessions:                          d.Sessions,
		tokens:                            d.Tokens,
		hasher:                            d.Hasher,
		mailer:                            d.Mailer,
		uploader:                          d.Uploader,
		logger:                            d.logger("users"),
		accessTokenValidityDuration:       cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration:      cfg.RefreshTokenValidityDuration,
		verificationTokenValidityDuration: cfg.VerificationTokenValidityDuration,
		otpValidityDuration:               cfg.OTPValidityDuration,
		strictSessions:                    cfg.StrictSessions,
		requireResetGrant:                 cfg.RequireResetGrant,
		clientURL:                         cfg.ClientURL,
		now:                               time.Now,
		dummyHash:                         dummy,
	}, nil
}

// Register creates an unverified user and mails them a verification link.
//
// The user row, its pending token and the mail go together: if the mail
// cannot be sent the user is not created and registration can be retried.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var user *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		created, err := repo.Create(ctx, &models.User{
			Name:         in.Name,
			Email:        in.Email,
			PasswordHash: hash,
			Role:         in.Role,
		})
		if err != nil {
			return err
		}

		token, err := s.tokens.Issue(created.ID, auth.KindVerification, s.verificationTokenValidityDuration)
		if err != nil {
			return fmt.Errorf("issue verification token: %w", err)
		}
		if err := repo.SetVerificationToken(ctx, created.ID, token.Token); err != nil {
			return err
		}
		created.VerificationToken = &token.Token

		body, err := mailer.VerificationBody(s.clientURL, created.Name, token.Token, s.verificationTokenValidityDuration)
		if err != nil {
			return err
		}
		if err := s.mailer.Send(ctx, created.Email, mailer.SubjectVerification, body); err != nil {
			return err
		}

		user = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Verify completes email verification with the token from the link. The
// token must be the user's pending one, so it works only once.
func (s *UserService) Verify(ctx context.Context, token string) error {
	if token == "" {
		return common.ErrMissingCredential
	}

	claims, err := s.tokens.Verify(token, auth.KindVerification)
	if err != nil {
		return err
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return notFoundAs(err, common.ErrUserNotFound)
	}

	if err := secrets.Check(secrets.Pending{Value: user.VerificationToken}, token, s.now()); err != nil {
		return common.ErrInvalidToken
	}

	ok, err := repo.MarkVerified(ctx, user.ID, token)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrInvalidToken
	}

	s.logger.Info(ctx, "user verified", "user_id", user.ID)
	return nil
}

// Login checks credentials and starts a new session, replacing any previous
// one. Unknown emails and wrong passwords fail with the same error.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if err := validateStruct(loginInput{Email: email, Password: password}); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Matches(s.dummyHash, password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}

	matches := s.hasher.Matches(user.PasswordHash, password)
	if !user.IsVerified {
		return nil, common.ErrNotVerified
	}
	if !matches {
		return nil, common.ErrInvalidCredentials
	}

	pair, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if err := repo.SetLoggedIn(ctx, user.ID, true); err != nil {
		return nil, err
	}
	user.IsLoggedIn = true

	courseIDs, err := s.repomanager.Enrollments(s.db).CourseIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.EnrolledCourses = courseIDs

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return &LoginResult{TokenPair: *pair, User: user}, nil
}

// Logout ends every session of the user. Issued tokens stay valid until
// they expire unless strict sessions are enabled.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	if err := s.sessions.DeleteAll(ctx, userID); err != nil {
		return err
	}
	if err := s.repomanager.Users(s.db).SetLoggedIn(ctx, userID, false); err != nil {
		return notFoundAs(err, common.ErrUserNotFound)
	}

	s.logger.Info(ctx, "user logged out", "user_id", userID)
	return nil
}

// Refresh exchanges a refresh token for a new token pair and rotates the
// session.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, common.ErrMissingCredential
	}

	claims, err := s.tokens.Verify(refreshToken, auth.KindRefresh)
	if err != nil {
		return nil, err
	}

	if _, err := s.repomanager.Users(s.db).GetByID(ctx, claims.UserID); err != nil {
		return nil, notFoundAs(err, common.ErrUserNotFound)
	}

	if s.strictSessions {
		session, err := s.sessions.Get(ctx, claims.UserID)
		if err != nil {
			return nil, notFoundAs(err, common.ErrSessionRevoked)
		}
		if session.RefreshTokenID != claims.ID {
			return nil, common.ErrSessionRevoked
		}
	}

	return s.startSession(ctx, claims.UserID)
}

// Authenticate resolves an access token to the calling user.
func (s *UserService) Authenticate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, common.ErrMissingCredential
	}

	claims, err := s.tokens.Verify(token, auth.KindAccess)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, notFoundAs(err, common.ErrUserNotFound)
	}

	if s.strictSessions {
		session, err := s.sessions.Get(ctx, user.ID)
		if err != nil {
			return nil, notFoundAs(err, common.ErrSessionRevoked)
		}
		if session.AccessTokenID != claims.ID {
			return nil, common.ErrSessionRevoked
		}
	}

	return &Identity{UserID: user.ID, Role: user.Role}, nil
}

// ForgotPassword issues a reset OTP, replacing any pending one, and mails it.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return common.ErrMissingFields
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		return notFoundAs(err, common.ErrUserNotFound)
	}

	otp, err := secrets.GenerateOTP()
	if err != nil {
		return err
	}
	if err := repo.SetOTP(ctx, user.ID, otp, s.now().Add(s.otpValidityDuration)); err != nil {
		return err
	}

	body, err := mailer.OTPBody(otp, s.otpValidityDuration)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, user.Email, mailer.SubjectPasswordOTP, body); err != nil {
		return err
	}

	s.logger.Info(ctx, "password reset requested", "user_id", user.ID)
	return nil
}

// VerifyOTP consumes the pending reset OTP. On success the user may change
// the password once within the OTP validity window.
func (s *UserService) VerifyOTP(ctx context.Context, email, otp string) error {
	if otp == "" {
		return common.ErrMissingFields
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		return notFoundAs(err, common.ErrUserNotFound)
	}

	pending := secrets.Pending{Value: user.OTP, ExpiresAt: user.OTPExpiry}
	if err := secrets.Check(pending, otp, s.now()); err != nil {
		return err
	}

	ok, err := repo.ClearOTP(ctx, user.ID, otp)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrOTPNotRequested
	}

	if s.requireResetGrant {
		if err := s.sessions.PutResetGrant(ctx, user.ID, s.otpValidityDuration); err != nil {
			return err
		}
	}

	s.logger.Info(ctx, "password reset otp verified", "user_id", user.ID)
	return nil
}

// ChangePassword sets a new password for the user with the given email.
func (s *UserService) ChangePassword(ctx context.Context, email, newPassword, confirmPassword string) error {
	if err := validateStruct(changePasswordInput{NewPassword: newPassword, ConfirmPassword: confirmPassword}); err != nil {
		return err
	}
	if newPassword != confirmPassword {
		return common.ErrPasswordMismatch
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		return notFoundAs(err, common.ErrUserNotFound)
	}

	if s.requireResetGrant {
		ok, err := s.sessions.ConsumeResetGrant(ctx, user.ID)
		if err != nil {
			return err
		}
		if !ok {
			return common.ErrResetNotAuthorized
		}
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}

	s.logger.Info(ctx, "password changed", "user_id", user.ID)
	return nil
}

// UpdateProfile changes the user's name, description and photo.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	if _, err := repo.GetByID(ctx, userID); err != nil {
		return nil, notFoundAs(err, common.ErrUserNotFound)
	}

	var name, description, photoURL *string
	if in.Name != "" {
		name = &in.Name
	}
	if in.Description != "" {
		description = &in.Description
	}
	if in.Photo != nil {
		m, err := s.uploader.Upload(ctx, in.Photo)
		if err != nil {
			return nil, err
		}
		photoURL = &m.URL
	}

	user, err := repo.UpdateProfile(ctx, userID, name, description, photoURL)
	if err != nil {
		return nil, notFoundAs(err, common.ErrUserNotFound)
	}
	return user, nil
}

// startSession issues a token pair and makes it the user's only session.
func (s *UserService) startSession(ctx context.Context, userID string) (*TokenPair, error) {
	access, err := s.tokens.Issue(userID, auth.KindAccess, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.Issue(userID, auth.KindRefresh, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	session := &models.Session{
		ID:             uuid.NewString(),
		UserID:         userID,
		AccessTokenID:  access.ID,
		RefreshTokenID: refresh.ID,
		CreatedAt:      s.now(),
	}
	if err := s.sessions.Replace(ctx, session, s.refreshTokenValidityDuration); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:     access.Token,
		RefreshToken:    refresh.Token,
		AccessExpiresAt: access.ExpiresAt,
	}, nil
}
