package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/shopledger/internal/model"
)

const userColumns = `id, public_id, first_name, last_name, email, password_hash, role, secure_token, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		u    model.User
		role string
	)
	err := row.Scan(&u.ID, &u.PublicID, &u.FirstName, &u.LastName, &u.Email,
		&u.PasswordHash, &role, &u.SecureToken, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Role = model.Role(role)
	return &u, nil
}

// CreateUser создаёт нового пользователя и заполняет его ID и время создания.
func (r *PostgresRepository) CreateUser(ctx context.Context, u *model.User) error {
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO users (public_id, first_name, last_name, email, password_hash, role, secure_token)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		u.PublicID, u.FirstName, u.LastName, u.Email, u.PasswordHash, string(u.Role), u.SecureToken,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrUserExists, u.Email)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByEmail возвращает неудалённого пользователя по email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 AND NOT is_deleted`, email))
}

// GetUserByPublicID возвращает неудалённого пользователя по публичному идентификатору.
func (r *PostgresRepository) GetUserByPublicID(ctx context.Context, publicID string) (*model.User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE public_id = $1 AND NOT is_deleted`, publicID))
}

// LockUser возвращает пользователя и блокирует его строку до конца транзакции.
// Используется для сериализации операций, меняющих баланс одного пользователя.
func (r *PostgresRepository) LockUser(ctx context.Context, publicID string) (*model.User, error) {
	if err := requireTx(ctx); err != nil {
		return nil, err
	}
	return scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE public_id = $1 AND NOT is_deleted FOR UPDATE`, publicID))
}

// UserUpdate содержит изменяемые поля профиля; nil означает «не менять».
type UserUpdate struct {
	FirstName    *string
	LastName     *string
	Email        *string
	PasswordHash []byte
}

// UpdateUser меняет только переданные поля профиля и возвращает пользователя после изменения.
func (r *PostgresRepository) UpdateUser(ctx context.Context, publicID string, u UserUpdate) (*model.User, error) {
	user, err := scanUser(r.conn(ctx).QueryRow(ctx,
		`UPDATE users
		 SET first_name = COALESCE($2, first_name),
		     last_name = COALESCE($3, last_name),
		     email = COALESCE($4, email),
		     password_hash = COALESCE($5, password_hash)
		 WHERE public_id = $1 AND NOT is_deleted
		 RETURNING `+userColumns,
		publicID, u.FirstName, u.LastName, u.Email, u.PasswordHash,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrUserExists, publicID)
		}
		return nil, err
	}
	return user, nil
}

// SoftDeleteUser помечает пользователя удалённым. Его проводки и заказы остаются в журнале.
func (r *PostgresRepository) SoftDeleteUser(ctx context.Context, publicID string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE users SET is_deleted = TRUE WHERE public_id = $1 AND NOT is_deleted`, publicID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
