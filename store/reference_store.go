package store

import (
	"context"
	"fmt"

	"volt-data/db"
	"volt-data/models"
)

// ReferenceStore handles the static reference tables fuse_types and
// circuit_templates.
type ReferenceStore struct {
	db db.DBTX
}

// NewReferenceStore returns a store running its queries against conn.
func NewReferenceStore(conn db.DBTX) *ReferenceStore {
	return &ReferenceStore{db: conn}
}

// ReplaceFuseTypes clears fuse_types and inserts fuseTypes in order. A rating
// already inserted for another phase is skipped because fuse_type is unique.
// It returns the number of rows actually inserted per phase type.
func (s *ReferenceStore) ReplaceFuseTypes(ctx context.Context, fuseTypes []models.FuseType) (map[string]int, error) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM fuse_types`); err != nil {
		return nil, fmt.Errorf("error clearing fuse types: %w", err)
	}

	query := `INSERT INTO fuse_types (fuse_type, phase_type)
              VALUES ($1, $2)
              ON CONFLICT (fuse_type) DO NOTHING`
	inserted := map[string]int{}
	for _, ft := range fuseTypes {
		result, err := s.db.ExecContext(ctx, query, ft.FuseType, ft.PhaseType)
		if err != nil {
			return nil, fmt.Errorf("error inserting fuse type %s (%s): %w", ft.FuseType, ft.PhaseType, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("error getting rows affected for fuse type %s: %w", ft.FuseType, err)
		}
		inserted[ft.PhaseType] += int(n)
	}
	return inserted, nil
}

// ListFuseTypes returns fuse types ordered by phase and numeric rating. An
// empty phase returns all of them.
func (s *ReferenceStore) ListFuseTypes(ctx context.Context, phase string) ([]models.FuseType, error) {
	query := `SELECT fuse_type, phase_type FROM fuse_types`
	var args []interface{}
	if phase != "" {
		query += ` WHERE phase_type = $1`
		args = append(args, phase)
	}
	query += ` ORDER BY phase_type, CAST(REPLACE(fuse_type, 'A', '') AS INTEGER)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing fuse types: %w", err)
	}
	defer rows.Close()

	var out []models.FuseType
	for rows.Next() {
		var ft models.FuseType
		if err := rows.Scan(&ft.FuseType, &ft.PhaseType); err != nil {
			return nil, fmt.Errorf("error scanning fuse type row: %w", err)
		}
		out = append(out, ft)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fuse type rows: %w", err)
	}
	return out, nil
}

// ReplaceCircuitTemplates clears circuit_templates and inserts templates.
func (s *ReferenceStore) ReplaceCircuitTemplates(ctx context.Context, templates []models.CircuitTemplate) (int, error) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM circuit_templates`); err != nil {
		return 0, fmt.Errorf("error clearing circuit templates: %w", err)
	}

	query := `INSERT INTO circuit_templates (description, zone, voltage, cable, power, phase, type)
              VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i, t := range templates {
		_, err := s.db.ExecContext(ctx, query, t.Description, t.Zone, t.Voltage, t.Cable, t.Power, t.Phase, t.Type)
		if err != nil {
			return i, fmt.Errorf("error inserting circuit template %q: %w", t.Description, err)
		}
	}
	return len(templates), nil
}

// ListCircuitTemplates returns templates in insertion order.
func (s *ReferenceStore) ListCircuitTemplates(ctx context.Context) ([]models.CircuitTemplate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, description, zone, voltage, cable, power, phase, type FROM circuit_templates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error listing circuit templates: %w", err)
	}
	defer rows.Close()

	var out []models.CircuitTemplate
	for rows.Next() {
		var t models.CircuitTemplate
		if err := rows.Scan(&t.ID, &t.Description, &t.Zone, &t.Voltage, &t.Cable, &t.Power, &t.Phase, &t.Type); err != nil {
			return nil, fmt.Errorf("error scanning circuit template row: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating circuit template rows: %w", err)
	}
	return out, nil
}
