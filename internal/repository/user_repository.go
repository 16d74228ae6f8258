package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eventix/ticket-booking/internal/model"
)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// UserRepo provides access to the users table for the auth edge.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo returns a UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a user and populates the generated id. Registering an
// email that already exists returns ErrEmailTaken.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `INSERT INTO users (name, email, password_hash, role) VALUES (?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q, u.Name, u.Email, u.PasswordHash, u.Role)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetByEmail looks a user up by email for login.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	const q = `SELECT id, name, email, password_hash, role, created_at, updated_at FROM users WHERE email = ?`
	return r.scan(r.db.QueryRowContext(ctx, q, email))
}

// GetByID looks a user up by primary key.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	const q = `SELECT id, name, email, password_hash, role, created_at, updated_at FROM users WHERE id = ?`
	return r.scan(r.db.QueryRowContext(ctx, q, id))
}

func (r *UserRepo) scan(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}
