package memory

import (
	"context"
	"time"

	"github.com/dmitrijs2005/humanizone/internal/common"
	"github.com/dmitrijs2005/humanizone/internal/server/models"
	"github.com/dmitrijs2005/humanizone/internal/server/repositories/users"
)

// Repository implements users.Repository over the manager's map.
type Repository struct {
	m *InMemoryRepositoryManager
}

var _ users.Repository = (*Repository)(nil)

func (r *Repository) FindByEmailAndProvider(ctx context.Context, email string, provider models.Provider) (out *models.User, err error) {
	r.m.access(ctx, func() {
		if u := r.findLocked(email, provider); u != nil {
			out = cloneUser(u)
			return
		}
		err = common.ErrorNotFound
	})
	return out, err
}

func (r *Repository) FindByID(ctx context.Context, id string) (out *models.User, err error) {
	r.m.access(ctx, func() {
		u, ok := r.m.byID[id]
		if !ok {
			err = common.ErrorNotFound
			return
		}
		out = cloneUser(u)
	})
	return out, err
}

// FindByIDForUpdate needs no extra locking: transactions are already serialized.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id string) (*models.User, error) {
	return r.FindByID(ctx, id)
}

func (r *Repository) ExistsByEmail(ctx context.Context, email string) (exists bool, err error) {
	r.m.access(ctx, func() {
		for _, u := range r.m.byID {
			if u.Email == email {
				exists = true
				return
			}
		}
	})
	return exists, nil
}

func (r *Repository) InsertLocal(ctx context.Context, user *models.User) (out *models.User, err error) {
	if err := users.AssignIdentity(user); err != nil {
		return nil, err
	}
	user.Provider = models.ProviderLocal

	r.m.access(ctx, func() {
		if r.findLocked(user.Email, user.Provider) != nil {
			err = common.ErrorAlreadyExists
			return
		}
		now := time.Now().UTC()
		user.CreatedAt, user.UpdatedAt = now, now
		r.m.byID[user.ID] = cloneUser(user)
		out = user
	})
	return out, err
}

func (r *Repository) UpsertSocial(ctx context.Context, email string, provider models.Provider) (out *models.User, err error) {
	user := &models.User{Email: email, Provider: provider, Agreements: models.Agreements{Essential: true}}
	if err := users.AssignIdentity(user); err != nil {
		return nil, err
	}

	r.m.access(ctx, func() {
		if existing := r.findLocked(email, provider); existing != nil {
			out = cloneUser(existing)
			return
		}
		now := time.Now().UTC()
		user.CreatedAt, user.UpdatedAt = now, now
		r.m.byID[user.ID] = cloneUser(user)
		out = user
	})
	return out, nil
}

func (r *Repository) UpdateRefreshToken(ctx context.Context, userID, hash string, expiresAt time.Time) (err error) {
	r.m.access(ctx, func() {
		u, ok := r.m.byID[userID]
		if !ok {
			err = common.ErrorNotFound
			return
		}
		exp := expiresAt
		u.RefreshTokenHash = hash
		u.RefreshTokenExpiresAt = &exp
		u.UpdatedAt = time.Now().UTC()
	})
	return err
}

func (r *Repository) PatchAttributes(ctx context.Context, userID string, patch models.AttributePatch) (err error) {
	if patch.IsEmpty() {
		return nil
	}
	r.m.access(ctx, func() {
		u, ok := r.m.byID[userID]
		if !ok {
			err = common.ErrorNotFound
			return
		}
		patch.Apply(u)
		u.UpdatedAt = time.Now().UTC()
	})
	return err
}

func (r *Repository) findLocked(email string, provider models.Provider) *models.User {
	for _, u := range r.m.byID {
		if u.Email == email && u.Provider == provider {
			return u
		}
	}
	return nil
}
