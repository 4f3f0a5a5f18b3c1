package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/library-reading-room/internal/model"
	"github.com/iliyamo/library-reading-room/internal/schedule"
	"github.com/iliyamo/library-reading-room/internal/utils"
)

// ErrEmailExists is returned when registration or an email change would
// duplicate an existing account's address.
var ErrEmailExists = errors.New("email already exists")

// UserRepo persists application users. It implements
// schedule.UserDirectory for the scheduling engine.
type UserRepo struct{ DB *sql.DB }

// NewUserRepo returns a new UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id, email, password_hash, role, is_active, created_at, updated_at"

// Create inserts a user with a bcrypt-hashed password and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role) VALUES (?,?,?)",
		email, hash, role)
	if err != nil {
		// MySQL duplicate-key error code.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email. It returns an error
// wrapping schedule.ErrNotFound when no account matches.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1",
		email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("%w: user %s", schedule.ErrNotFound, email)
	}
	return u, err
}

// GetUserByID fetches a user by id. It returns an error wrapping
// schedule.ErrNotFound when the id is unknown.
func (r *UserRepo) GetUserByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("%w: user %d", schedule.ErrNotFound, id)
	}
	return u, err
}

// UpdateEmail replaces the account's address after verifying the new one
// is not taken. It returns ErrEmailExists on a duplicate and an error
// wrapping schedule.ErrNotFound when the old address is unknown.
func (r *UserRepo) UpdateEmail(ctx context.Context, oldEmail, newEmail string) error {
	oldEmail = strings.ToLower(strings.TrimSpace(oldEmail))
	newEmail = strings.ToLower(strings.TrimSpace(newEmail))
	var taken int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE email=?", newEmail).Scan(&taken); err != nil {
		return err
	}
	if taken > 0 {
		return ErrEmailExists
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET email=? WHERE email=?", newEmail, oldEmail)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: user %s", schedule.ErrNotFound, oldEmail)
	}
	return nil
}

// ListAll returns every user ordered by id.
func (r *UserRepo) ListAll(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := make([]model.User, 0)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive,
			&u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
