package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"volt-data/db"
	"volt-data/models"
)

// ErrLinkTarget is returned when PostgreSQL rejects a link row through the
// check_category_or_subcategory constraint.
var ErrLinkTarget = errors.New("link must reference exactly one of category or subcategory")

const (
	pqCheckViolation      = "23514"
	pqForeignKeyViolation = "23503"
)

// CategoryStore handles component_categories, component_subcategories and
// the component_category_components link table.
type CategoryStore struct {
	db db.DBTX
}

// NewCategoryStore returns a store running its queries against conn.
func NewCategoryStore(conn db.DBTX) *CategoryStore {
	return &CategoryStore{db: conn}
}

// UpsertCategory inserts a category or renames the existing one.
func (s *CategoryStore) UpsertCategory(ctx context.Context, c models.Category) error {
	query := `INSERT INTO component_categories (id, name)
              VALUES ($1, $2)
              ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`
	if _, err := s.db.ExecContext(ctx, query, c.ID, c.Name); err != nil {
		return fmt.Errorf("error upserting category %s: %w", c.ID, err)
	}
	return nil
}

// UpsertSubcategory inserts a subcategory or updates its name and parent.
func (s *CategoryStore) UpsertSubcategory(ctx context.Context, sub models.Subcategory) error {
	query := `INSERT INTO component_subcategories (id, category_id, name)
              VALUES ($1, $2, $3)
              ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, category_id = EXCLUDED.category_id`
	if _, err := s.db.ExecContext(ctx, query, sub.ID, sub.CategoryID, sub.Name); err != nil {
		return fmt.Errorf("error upserting subcategory %s: %w", sub.ID, err)
	}
	return nil
}

// LinkComponent stores a link and reports whether a new row was inserted.
// Existing links are left untouched.
func (s *CategoryStore) LinkComponent(ctx context.Context, link models.CategoryLink) (bool, error) {
	if err := link.Validate(); err != nil {
		return false, err
	}

	var query string
	var target string
	if link.CategoryID != "" {
		target = link.CategoryID
		query = `INSERT INTO component_category_components (category_id, subcategory_id, component_id)
                 VALUES ($1, NULL, $2)
                 ON CONFLICT (category_id, component_id) DO NOTHING`
	} else {
		target = link.SubcategoryID
		query = `INSERT INTO component_category_components (category_id, subcategory_id, component_id)
                 VALUES (NULL, $1, $2)
                 ON CONFLICT (subcategory_id, component_id) DO NOTHING`
	}

	result, err := s.db.ExecContext(ctx, query, target, link.ComponentID)
	if err != nil {
		return false, fmt.Errorf("error linking component %s to %s: %w", link.ComponentID, target, translateLinkError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error getting rows affected for link %s -> %s: %w", link.ComponentID, target, err)
	}
	return n > 0, nil
}

// translateLinkError maps constraint violations on the link table to
// package errors, keeping the driver error in the chain.
func translateLinkError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch string(pqErr.Code) {
	case pqCheckViolation:
		return fmt.Errorf("%w: %v", ErrLinkTarget, err)
	case pqForeignKeyViolation:
		return fmt.Errorf("%w: %s", ErrNotFound, pqErr.Detail)
	}
	return err
}

// ListCategories returns all categories ordered by id.
func (s *CategoryStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM component_categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error listing categories: %w", err)
	}
	defer rows.Close()

	var out []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("error scanning category row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category rows: %w", err)
	}
	return out, nil
}

// ListPlacements returns every link resolved to its category. Subcategory
// links carry the parent category id as well.
func (s *CategoryStore) ListPlacements(ctx context.Context) ([]models.Placement, error) {
	query := `SELECT l.component_id, COALESCE(l.category_id, sc.category_id), COALESCE(l.subcategory_id, '')
              FROM component_category_components l
              LEFT JOIN component_subcategories sc ON sc.id = l.subcategory_id
              ORDER BY l.id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing placements: %w", err)
	}
	defer rows.Close()

	var out []models.Placement
	for rows.Next() {
		var p models.Placement
		if err := rows.Scan(&p.ComponentID, &p.CategoryID, &p.SubcategoryID); err != nil {
			return nil, fmt.Errorf("error scanning placement row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating placement rows: %w", err)
	}
	return out, nil
}

// CountLinks returns the number of rows in the link table.
func (s *CategoryStore) CountLinks(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM component_category_components`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting links: %w", err)
	}
	return n, nil
}

// Summaries groups link counts per category. Subcategories maps each
// subcategory id to its component count; TotalCount includes direct links.
func (s *CategoryStore) Summaries(ctx context.Context) ([]models.CategorySummary, error) {
	direct := `SELECT c.id, c.name, COUNT(l.id)
               FROM component_categories c
               LEFT JOIN component_category_components l ON l.category_id = c.id
               GROUP BY c.id, c.name
               ORDER BY c.id`
	rows, err := s.db.QueryContext(ctx, direct)
	if err != nil {
		return nil, fmt.Errorf("error summarising categories: %w", err)
	}

	var out []models.CategorySummary
	index := map[string]int{}
	for rows.Next() {
		sum := models.CategorySummary{Subcategories: map[string]int{}}
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.TotalCount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error scanning category summary: %w", err)
		}
		index[sum.ID] = len(out)
		out = append(out, sum)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category summaries: %w", err)
	}

	nested := `SELECT sc.category_id, sc.id, COUNT(l.id)
               FROM component_subcategories sc
               LEFT JOIN component_category_components l ON l.subcategory_id = sc.id
               GROUP BY sc.category_id, sc.id`
	rows, err = s.db.QueryContext(ctx, nested)
	if err != nil {
		return nil, fmt.Errorf("error summarising subcategories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var categoryID, subID string
		var count int
		if err := rows.Scan(&categoryID, &subID, &count); err != nil {
			return nil, fmt.Errorf("error scanning subcategory summary: %w", err)
		}
		i, ok := index[categoryID]
		if !ok {
			continue
		}
		out[i].Subcategories[subID] = count
		out[i].TotalCount += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subcategory summaries: %w", err)
	}
	return out, nil
}
