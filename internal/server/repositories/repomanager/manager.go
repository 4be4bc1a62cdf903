package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/coursecloud/internal/dbx"
	"github.com/dmitrijs2005/coursecloud/internal/server/repositories/courses"
	"github.com/dmitrijs2005/coursecloud/internal/server/repositories/enrollments"
	"github.com/dmitrijs2005/coursecloud/internal/server/repositories/lectures"
	"github.com/dmitrijs2005/coursecloud/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// runs against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Courses(db dbx.DBTX) courses.Repository
	Lectures(db dbx.DBTX) lectures.Repository
	Enrollments(db dbx.DBTX) enrollments.Repository
}
