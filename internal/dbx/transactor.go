package dbx

import (
	"context"
	"database/sql"
)

// Transactor hands out a non-transactional handle for plain reads and runs
// units of work atomically.
type Transactor interface {
	DB() DBTX
	WithTx(ctx context.Context, fn TxFunc) error
}

// SQLTransactor is a Transactor over *sql.DB.
type SQLTransactor struct {
	db   *sql.DB
	opts *sql.TxOptions
}

// NewSQLTransactor returns a Transactor whose transactions run at
// READ COMMITTED; uniqueness constraints and row locks do the rest.
func NewSQLTransactor(db *sql.DB) *SQLTransactor {
	return &SQLTransactor{db: db, opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted}}
}

func (t *SQLTransactor) DB() DBTX { return t.db }

func (t *SQLTransactor) WithTx(ctx context.Context, fn TxFunc) error {
	return WithTx(ctx, t.db, t.opts, fn)
}
