// Package users is the credential store: lookups and writes of user accounts
// keyed by id or by the (email, provider) pair.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/humanizone/internal/common"
	"github.com/dmitrijs2005/humanizone/internal/server/models"
	"github.com/google/uuid"
)

// Repository is implemented by stores bound to a connection or transaction.
// Lookups return common.ErrorNotFound for absent rows; inserts that would
// duplicate an (email, provider) pair return common.ErrorAlreadyExists.
type Repository interface {
	FindByEmailAndProvider(ctx context.Context, email string, provider models.Provider) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	// FindByIDForUpdate is FindByID holding a row lock until the enclosing
	// transaction ends.
	FindByIDForUpdate(ctx context.Context, id string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	InsertLocal(ctx context.Context, user *models.User) (*models.User, error)
	// UpsertSocial returns the account for (email, provider), creating it
	// when absent. Concurrent calls converge on one row.
	UpsertSocial(ctx context.Context, email string, provider models.Provider) (*models.User, error)

	UpdateRefreshToken(ctx context.Context, userID, hash string, expiresAt time.Time) error
	PatchAttributes(ctx context.Context, userID string, patch models.AttributePatch) error
}

// userCodeBytes is the entropy of a generated user code.
const userCodeBytes = 8

// AssignIdentity fills in the id, user code and initial status of a new
// account where they are not already set.
func AssignIdentity(u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.UserCode == "" {
		code, err := common.MakeRandHexString(userCodeBytes)
		if err != nil {
			return err
		}
		u.UserCode = code
	}
	if u.Status == "" {
		u.Status = models.UserStatusActive
	}
	return nil
}
