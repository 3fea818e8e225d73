package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Astrolithia/qvtu-shopping/internal/domain"
	"github.com/Astrolithia/qvtu-shopping/pkg/database"
	apperrors "github.com/Astrolithia/qvtu-shopping/pkg/errors"
)

const userColumns = `id, email, password_hash, roles, is_active, last_login_at, created_at, updated_at`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	pool database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool database.DBTX) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts an account with no customer profile.
func (r *UserRepository) Create(ctx context.Context, u *domain.UserAccount) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateUser", "INSERT INTO users")
	defer func() { end(err) }()

	return insertUser(ctx, r.pool, u)
}

// GetByID returns the account with the given id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (_ *domain.UserAccount, err error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetUser", query)
	defer func() { end(err) }()

	u, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user", id)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByEmail looks an account up by email, case-insensitive.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (_ *domain.UserAccount, err error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`

	ctx, end := database.TraceQuery(ctx, "GetUserByEmail", query)
	defer func() { end(err) }()

	u, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// TouchLastLogin records a successful login.
func (r *UserRepository) TouchLastLogin(ctx context.Context, id string) (err error) {
	query := `UPDATE users SET last_login_at = NOW() WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "TouchLastLogin", query)
	defer func() { end(err) }()

	if _, err = r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}

// List returns a page of accounts, newest first, and the total count.
func (r *UserRepository) List(ctx context.Context, offset, limit int) (_ []domain.UserAccount, _ int, err error) {
	query := `
		SELECT ` + userColumns + `, count(*) OVER() AS total_count
		FROM users
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2`

	ctx, end := database.TraceQuery(ctx, "ListUsers", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var total int
	users := make([]domain.UserAccount, 0)
	for rows.Next() {
		u, err := scanUser(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate user rows: %w", err)
	}
	return users, total, nil
}

// Update writes the password hash, roles and active flag. The email is fixed
// at creation.
func (r *UserRepository) Update(ctx context.Context, u *domain.UserAccount) (err error) {
	query := `
		UPDATE users
		SET password_hash = $2, roles = $3, is_active = $4, updated_at = $5
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "UpdateUser", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, u.ID, u.PasswordHash, u.Roles, u.IsActive, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("user", u.ID)
	}
	return nil
}

// Delete removes an account. A customer profile attached to it survives as a
// guest profile.
func (r *UserRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, end := database.TraceQuery(ctx, "DeleteUser", "UPDATE customers; DELETE FROM users")
	defer func() { end(err) }()

	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE customers SET has_account = FALSE, user_id = NULL WHERE user_id = $1`, id,
		); err != nil {
			return fmt.Errorf("detach customer: %w", err)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NotFound("user", id)
		}
		return nil
	})
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertUser(ctx context.Context, db execer, u *domain.UserAccount) error {
	_, err := db.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, roles, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.PasswordHash, u.Roles, u.IsActive, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", mapUniqueViolation(err, "user", "email", u.Email))
	}
	return nil
}

// scanUser reads userColumns followed by any extra destinations.
func scanUser(row pgx.Row, extra ...any) (*domain.UserAccount, error) {
	var u domain.UserAccount
	dest := []any{
		&u.ID, &u.Email, &u.PasswordHash, &u.Roles, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &u, nil
}
