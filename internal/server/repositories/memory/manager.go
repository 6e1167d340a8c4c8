// Package memory is an in-process implementation of the credential store and
// its transactor. Transactions are serialized and roll back by restoring a
// snapshot, which is enough to exercise the session manager without a database.
package memory

import (
	"context"
	"database/sql"
	"sync"

	"github.com/dmitrijs2005/humanizone/internal/dbx"
	"github.com/dmitrijs2005/humanizone/internal/server/models"
	"github.com/dmitrijs2005/humanizone/internal/server/repositories/users"
)

type txKey struct{}

// InMemoryRepositoryManager satisfies both repomanager.RepositoryManager and
// dbx.Transactor. It has no SQL handle; DB returns nil and repositories ignore
// the handle they are given.
type InMemoryRepositoryManager struct {
	txMu sync.Mutex // one transaction at a time
	mu   sync.Mutex // guards users
	byID map[string]*models.User
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{byID: make(map[string]*models.User)}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *InMemoryRepositoryManager) Users(dbx.DBTX) users.Repository {
	return &Repository{m: m}
}

func (m *InMemoryRepositoryManager) DB() dbx.DBTX {
	return nil
}

// WithTx runs fn with exclusive access to the store. On error or panic the
// store is restored to its state before fn; panics are rethrown.
func (m *InMemoryRepositoryManager) WithTx(ctx context.Context, fn dbx.TxFunc) (err error) {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snapshot := m.snapshot()

	defer func() {
		if p := recover(); p != nil {
			m.restore(snapshot)
			panic(p)
		}
		if err != nil {
			m.restore(snapshot)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, true), nil)
}

// Len returns the number of stored users.
func (m *InMemoryRepositoryManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// Get returns a copy of the stored user, if any.
func (m *InMemoryRepositoryManager) Get(id string) (*models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	return cloneUser(u), true
}

// Put stores a copy of u as is. Tests use it to seed state.
func (m *InMemoryRepositoryManager) Put(u *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[u.ID] = cloneUser(u)
}

// access runs fn under the data lock, additionally taking the transaction
// lock when ctx is not already inside WithTx.
func (m *InMemoryRepositoryManager) access(ctx context.Context, fn func()) {
	if inTx, _ := ctx.Value(txKey{}).(bool); !inTx {
		m.txMu.Lock()
		defer m.txMu.Unlock()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	fn()
}

func (m *InMemoryRepositoryManager) snapshot() map[string]*models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*models.User, len(m.byID))
	for id, u := range m.byID {
		out[id] = cloneUser(u)
	}
	return out
}

func (m *InMemoryRepositoryManager) restore(s map[string]*models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID = s
}

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.RefreshTokenExpiresAt != nil {
		t := *u.RefreshTokenExpiresAt
		c.RefreshTokenExpiresAt = &t
	}
	if u.SanctionDate != nil {
		t := *u.SanctionDate
		c.SanctionDate = &t
	}
	if u.Profile != nil {
		p := *u.Profile
		c.Profile = &p
	}
	return &c
}
