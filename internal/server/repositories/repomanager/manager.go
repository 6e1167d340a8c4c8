package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/humanizone/internal/dbx"
	"github.com/dmitrijs2005/humanizone/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a connection or transaction
// and owns the schema.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}
