// Package services contains server-side business logic: accounts and
// sessions, enrollment, and the course catalogue.
package services

import (
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/coursecloud/internal/common"
	"github.com/dmitrijs2005/coursecloud/internal/logging"
	"github.com/dmitrijs2005/coursecloud/internal/server/auth"
	"github.com/dmitrijs2005/coursecloud/internal/server/mailer"
	"github.com/dmitrijs2005/coursecloud/internal/server/media"
	"github.com/dmitrijs2005/coursecloud/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/coursecloud/internal/server/repositories/sessions"
	"github.com/google/uuid"
)

// Deps are the collaborators shared by the services.
type Deps struct {
	DB       *sql.DB
	Repos    repomanager.RepositoryManager
	Sessions sessions.Repository
	Tokens   auth.TokenService
	Hasher   auth.Hasher
	Mailer   mailer.Mailer
	Uploader media.Uploader
	Logger   logging.Logger
}

func (d Deps) logger(module string) logging.Logger {
	if d.Logger == nil {
		return logging.Nop().With("module", module)
	}
	return d.Logger.With("module", module)
}

// validID reports whether id can name a stored row. Row ids are UUIDs, so
// anything else is unknown without asking the database.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// notFoundAs replaces a repository not-found error with target.
func notFoundAs(err error, target error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return target
	}
	return err
}
