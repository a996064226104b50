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

// ErrNotFound is returned when a row looked up by key does not exist.
var ErrNotFound = errors.New("not found")

// ComponentStore handles database operations for components.
type ComponentStore struct {
	db db.DBTX
}

// NewComponentStore returns a store running its queries against conn, which
// may be a connection pool or a transaction.
func NewComponentStore(conn db.DBTX) *ComponentStore {
	return &ComponentStore{db: conn}
}

const componentColumns = `id, name, fields, description, price, image, created_at, updated_at`

// UpsertComponent inserts a component or updates the existing row with the
// same id.
func (s *ComponentStore) UpsertComponent(ctx context.Context, component *models.Component) error {
	query := `INSERT INTO components (id, name, fields, description, price, image)
              VALUES ($1, $2, $3, $4, $5, $6)
              ON CONFLICT (id) DO UPDATE SET
                name = EXCLUDED.name,
                fields = EXCLUDED.fields,
                description = EXCLUDED.description,
                price = EXCLUDED.price,
                image = EXCLUDED.image`

	_, err := s.db.ExecContext(ctx, query,
		component.ID,
		component.Name,
		component.Fields,
		nullString(component.Description),
		component.Price,
		nullString(component.Image),
	)
	if err != nil {
		return fmt.Errorf("error upserting component %s: %w", component.ID, err)
	}
	return nil
}

// UpsertComponents upserts every component and returns how many were written.
func (s *ComponentStore) UpsertComponents(ctx context.Context, components []models.Component) (int, error) {
	for i := range components {
		if err := s.UpsertComponent(ctx, &components[i]); err != nil {
			return i, err
		}
	}
	return len(components), nil
}

// GetComponentByID retrieves a component by its ID.
func (s *ComponentStore) GetComponentByID(ctx context.Context, id string) (*models.Component, error) {
	query := `SELECT ` + componentColumns + ` FROM components WHERE id = $1`

	component, err := scanComponent(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("component with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("error getting component by ID %s: %w", id, err)
	}
	return component, nil
}

// ListComponents retrieves all components ordered by name.
func (s *ComponentStore) ListComponents(ctx context.Context) ([]*models.Component, error) {
	query := `SELECT ` + componentColumns + ` FROM components ORDER BY name, id`
	return s.queryComponents(ctx, query)
}

// SearchComponents returns components whose name or description contains
// term, case-insensitively.
func (s *ComponentStore) SearchComponents(ctx context.Context, term string) ([]*models.Component, error) {
	query := `SELECT ` + componentColumns + ` FROM components
              WHERE name ILIKE $1 OR description ILIKE $1
              ORDER BY name, id`
	return s.queryComponents(ctx, query, "%"+term+"%")
}

// ListComponentIDs returns every component id, sorted.
func (s *ComponentStore) ListComponentIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM components ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error listing component ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning component id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating component ids: %w", err)
	}
	return ids, nil
}

// CountComponents returns the number of rows in components.
func (s *ComponentStore) CountComponents(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM components`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting components: %w", err)
	}
	return n, nil
}

func (s *ComponentStore) queryComponents(ctx context.Context, query string, args ...interface{}) ([]*models.Component, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing components: %w", err)
	}
	defer rows.Close()

	var components []*models.Component
	for rows.Next() {
		component, err := scanComponent(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning component row: %w", err)
		}
		components = append(components, component)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating component rows: %w", err)
	}

	return components, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanComponent(row rowScanner) (*models.Component, error) {
	component := &models.Component{}
	var description, image sql.NullString
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&component.ID,
		&component.Name,
		&component.Fields,
		&description,
		&component.Price,
		&image,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	component.Description = description.String
	component.Image = image.String
	component.CreatedAt = createdAt.Format(time.RFC3339)
	component.UpdatedAt = updatedAt.Format(time.RFC3339)
	return component, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
