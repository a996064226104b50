package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"volt-data/db"
	"volt-data/models"
)

// UserStore handles database operations for volt_test_users.
type UserStore struct {
	db db.DBTX
}

// NewUserStore returns a store running its queries against conn.
func NewUserStore(conn db.DBTX) *UserStore {
	return &UserStore{db: conn}
}

// CreateUser adds a user and returns its id. An existing email keeps its id
// and takes the new name.
func (s *UserStore) CreateUser(ctx context.Context, user *models.TestUser) (int64, error) {
	if err := models.Validate(user); err != nil {
		return 0, fmt.Errorf("invalid user: %w", err)
	}
	query := `INSERT INTO volt_test_users (email, name) VALUES ($1, $2)
              ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
              RETURNING id`

	var id int64
	if err := s.db.QueryRowContext(ctx, query, user.Email, user.Name).Scan(&id); err != nil {
		return 0, fmt.Errorf("error creating user %s: %w", user.Email, err)
	}
	return id, nil
}

// GetUserByID retrieves a user by its ID.
func (s *UserStore) GetUserByID(ctx context.Context, id int64) (*models.TestUser, error) {
	query := `SELECT id, email, name, created_at, updated_at FROM volt_test_users WHERE id = $1`

	user := &models.TestUser{}
	var createdAt, updatedAt time.Time
	err := s.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Email, &user.Name, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with ID %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("error getting user by ID %d: %w", id, err)
	}
	user.CreatedAt = createdAt.Format(time.RFC3339)
	user.UpdatedAt = updatedAt.Format(time.RFC3339)
	return user, nil
}

// UpdateUserName changes the name of an existing user.
func (s *UserStore) UpdateUserName(ctx context.Context, id int64, name string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE volt_test_users SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return fmt.Errorf("error updating user with ID %d: %w", id, err)
	}
	return expectOneRow(result, "update", id)
}

// DeleteUser removes a user by its ID.
func (s *UserStore) DeleteUser(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM volt_test_users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting user with ID %d: %w", id, err)
	}
	return expectOneRow(result, "delete", id)
}

// ListUsers returns all users ordered by id.
func (s *UserStore) ListUsers(ctx context.Context) ([]models.TestUser, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, email, name, created_at, updated_at FROM volt_test_users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	defer rows.Close()

	var users []models.TestUser
	for rows.Next() {
		var u models.TestUser
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("error scanning user row: %w", err)
		}
		u.CreatedAt = createdAt.Format(time.RFC3339)
		u.UpdatedAt = updatedAt.Format(time.RFC3339)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}

func expectOneRow(result sql.Result, op string, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected for %s on user ID %d: %w", op, id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user with ID %d not found for %s: %w", id, op, ErrNotFound)
	}
	return nil
}
