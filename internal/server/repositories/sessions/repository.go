package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/coursecloud/internal/server/models"
)

// Repository keeps at most one live session per user, plus short-lived
// password reset grants.
type Repository interface {
	// Replace drops any existing session of the user and stores s.
	Replace(ctx context.Context, s *models.Session, ttl time.Duration) error
	// Get returns the live session or common.ErrorNotFound.
	Get(ctx context.Context, userID string) (*models.Session, error)
	DeleteAll(ctx context.Context, userID string) error

	PutResetGrant(ctx context.Context, userID string, ttl time.Duration) error
	// ConsumeResetGrant removes the grant and reports whether one existed.
	ConsumeResetGrant(ctx context.Context, userID string) (bool, error)
}
