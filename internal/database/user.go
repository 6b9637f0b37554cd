package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type User struct {
	ID          string         `db:"id"`
	FirstName   string         `db:"first_name"`
	LastName    string         `db:"last_name"`
	Email       string         `db:"email"`
	PhoneNumber string         `db:"phone_number"`
	Status      string         `db:"status"`
	PinHash     sql.NullString `db:"pin_hash"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   sql.NullTime   `db:"updated_at"`
	DeletedAt   sql.NullTime   `db:"deleted_at"`
}

const (
	// UserAccountActiveStatus indicates that the user's account is active and fully functional.
	UserAccountActiveStatus = "active"

	// UserAccountLockedStatus indicates that the user's account has been locked,
	// either by an administrator or automatically for security reasons.
	// A locked account cannot trade until unlocked.
	UserAccountLockedStatus = "locked"
)

func (db *DB) GetUser(id string) (*User, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var user User

	query := `SELECT * FROM users WHERE id = $1 AND deleted_at IS NULL`

	err := db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return &user, true, nil
}

func (db *DB) SetTransactionPin(id, pinHash string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE users SET pin_hash = $1, updated_at = NOW() WHERE id = $2`

	_, err := db.ExecContext(ctx, query, pinHash, id)
	return err
}
