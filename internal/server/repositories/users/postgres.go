package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/humanizone/internal/common"
	"github.com/dmitrijs2005/humanizone/internal/dbx"
	"github.com/dmitrijs2005/humanizone/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation      = "23505"
	emailProviderUniqueKey = "uq_users_email_provider"
)

const selectUser = `SELECT u.id, u.email, u.provider, COALESCE(u.password_hash, ''), u.user_code,
		COALESCE(u.refresh_token_hash, ''), u.refresh_token_expires_at,
		u.essential_agree, u.customized_service_agree, u.marketing_agree,
		COALESCE(u.name, ''), COALESCE(u.phone, ''), COALESCE(u.birth, ''),
		u.report_count, u.sanction_count, u.sanction_date, u.user_status, u.paid,
		u.created_at, u.updated_at, p.nickname, p.career
	FROM users u
	LEFT JOIN profiles p ON p.user_id = u.id
	`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByEmailAndProvider(ctx context.Context, email string, provider models.Provider) (*models.User, error) {
	query := selectUser + `WHERE u.email = $1 AND u.provider = $2`
	return r.queryUser(ctx, query, email, string(provider))
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := selectUser + `WHERE u.id = $1`
	return r.queryUser(ctx, query, id)
}

func (r *PostgresRepository) FindByIDForUpdate(ctx context.Context, id string) (*models.User, error) {
	query := selectUser + `WHERE u.id = $1 FOR UPDATE OF u`
	return r.queryUser(ctx, query, id)
}

func (r *PostgresRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) InsertLocal(ctx context.Context, user *models.User) (*models.User, error) {
	if err := AssignIdentity(user); err != nil {
		return nil, err
	}
	user.Provider = models.ProviderLocal

	query :=
		`INSERT INTO users (id, email, provider, password_hash, user_code,
			essential_agree, customized_service_agree, marketing_agree, user_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, string(user.Provider), user.PasswordHash, user.UserCode,
		user.Agreements.Essential, user.Agreements.CustomizedService, user.Agreements.Marketing,
		string(user.Status),
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if isEmailProviderConflict(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) UpsertSocial(ctx context.Context, email string, provider models.Provider) (*models.User, error) {
	user := &models.User{Email: email, Provider: provider}
	if err := AssignIdentity(user); err != nil {
		return nil, err
	}

	query :=
		`INSERT INTO users (id, email, provider, user_code, user_status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT ON CONSTRAINT uq_users_email_provider DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, string(user.Provider), user.UserCode, string(user.Status)); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return r.FindByEmailAndProvider(ctx, email, provider)
}

func (r *PostgresRepository) UpdateRefreshToken(ctx context.Context, userID, hash string, expiresAt time.Time) error {
	query :=
		`UPDATE users SET refresh_token_hash = $2, refresh_token_expires_at = $3, updated_at = now()
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, userID, hash, expiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireAffected(res)
}

// PatchAttributes updates only the fields set in patch. An empty patch is a
// no-op and does not touch the row.
func (r *PostgresRepository) PatchAttributes(ctx context.Context, userID string, patch models.AttributePatch) error {
	if patch.IsEmpty() {
		return nil
	}

	sets := make([]string, 0, 4)
	args := []any{userID}
	add := func(column string, v *string) {
		if v == nil {
			return
		}
		args = append(args, *v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("name", patch.Name)
	add("phone", patch.Phone)
	add("birth", patch.Birth)
	sets = append(sets, "updated_at = now()")

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository) queryUser(ctx context.Context, query string, args ...any) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u                models.User
		provider, status string
		refreshExp       sql.NullTime
		sanctionDate     sql.NullTime
		nickname, career sql.NullString
	)

	err := row.Scan(
		&u.ID, &u.Email, &provider, &u.PasswordHash, &u.UserCode,
		&u.RefreshTokenHash, &refreshExp,
		&u.Agreements.Essential, &u.Agreements.CustomizedService, &u.Agreements.Marketing,
		&u.Name, &u.Phone, &u.Birth,
		&u.ReportCount, &u.SanctionCount, &sanctionDate, &status, &u.Paid,
		&u.CreatedAt, &u.UpdatedAt, &nickname, &career,
	)
	if err != nil {
		return nil, err
	}

	u.Provider = models.Provider(provider)
	u.Status = models.UserStatus(status)
	if refreshExp.Valid {
		t := refreshExp.Time
		u.RefreshTokenExpiresAt = &t
	}
	if sanctionDate.Valid {
		t := sanctionDate.Time
		u.SanctionDate = &t
	}
	if nickname.Valid {
		u.Profile = &models.Profile{Nickname: nickname.String, Career: career.String}
	}
	return &u, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func isEmailProviderConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return pgErr.ConstraintName == "" || pgErr.ConstraintName == emailProviderUniqueKey
}
