package db

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

// User is an account of the development data service
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    string
}

// CreateUser creates a new account
func (db *DB) CreateUser(ctx context.Context, id, email, passwordHash string) (*User, error) {
	u := &User{ID: id, Email: email, PasswordHash: passwordHash, CreatedAt: time.Now().UTC().Format(time.RFC3339Nano)}
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at) VALUES (`+
		db.placeholder(1)+`, `+db.placeholder(2)+`, `+db.placeholder(3)+`, `+db.placeholder(4)+`)
	`, u.ID, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByEmail retrieves an account by its email address
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	u := &User{}
	err := db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at
		FROM users WHERE email = `+db.placeholder(1), email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser retrieves an account by ID
func (db *DB) GetUser(ctx context.Context, id string) (*User, error) {
	u := &User{}
	err := db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at
		FROM users WHERE id = `+db.placeholder(1), id).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
