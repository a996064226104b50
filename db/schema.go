package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Tables lists every table owned by the schema in drop order: link table
// first, then the tables it references.
var Tables = []string{
	"component_category_components",
	"component_subcategories",
	"component_categories",
	"components",
	"fuse_types",
	"circuit_templates",
	"volt_test_users",
}

// UserTable is the scratch table exercised by the CRUD demo.
const UserTable = "volt_test_users"

// Step is one named DDL statement of the schema.
type Step struct {
	Name string
	SQL  string
}

var tableSteps = []Step{
	{"circuit_templates", `
CREATE TABLE IF NOT EXISTS circuit_templates (
    id SERIAL PRIMARY KEY,
    description VARCHAR(255) NOT NULL,
    zone VARCHAR(20) NOT NULL CHECK (zone IN ('Parter', 'Piętro')),
    voltage INTEGER NOT NULL,
    cable VARCHAR(100) NOT NULL,
    power DECIMAL(10,2) NOT NULL,
    phase VARCHAR(10) NOT NULL CHECK (phase IN ('L1', 'L2', 'L3', '3Φ')),
    type VARCHAR(10) NOT NULL CHECK (type IN ('1φ', '3φ')),
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
)`},
	{"fuse_types", `
CREATE TABLE IF NOT EXISTS fuse_types (
    id SERIAL PRIMARY KEY,
    fuse_type VARCHAR(20) NOT NULL UNIQUE,
    phase_type VARCHAR(10) NOT NULL CHECK (phase_type IN ('1φ', '3φ')),
    created_at TIMESTAMP DEFAULT NOW()
)`},
	{"components", `
CREATE TABLE IF NOT EXISTS components (
    id VARCHAR(100) PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    fields INTEGER NOT NULL,
    description TEXT,
    price DECIMAL(10,2),
    image VARCHAR(500),
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
)`},
	{"component_categories", `
CREATE TABLE IF NOT EXISTS component_categories (
    id VARCHAR(100) PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
)`},
	{"component_subcategories", `
CREATE TABLE IF NOT EXISTS component_subcategories (
    id VARCHAR(100) PRIMARY KEY,
    category_id VARCHAR(100) NOT NULL REFERENCES component_categories(id) ON DELETE CASCADE,
    name VARCHAR(255) NOT NULL,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
)`},
	{"component_category_components", `
CREATE TABLE IF NOT EXISTS component_category_components (
    id SERIAL PRIMARY KEY,
    category_id VARCHAR(100) REFERENCES component_categories(id) ON DELETE CASCADE,
    subcategory_id VARCHAR(100) REFERENCES component_subcategories(id) ON DELETE CASCADE,
    component_id VARCHAR(100) NOT NULL REFERENCES components(id) ON DELETE CASCADE,
    created_at TIMESTAMP DEFAULT NOW(),
    CONSTRAINT unique_category_component UNIQUE (category_id, component_id),
    CONSTRAINT unique_subcategory_component UNIQUE (subcategory_id, component_id),
    CONSTRAINT check_category_or_subcategory CHECK (
        (category_id IS NOT NULL AND subcategory_id IS NULL) OR
        (category_id IS NULL AND subcategory_id IS NOT NULL)
    )
)`},
	{"volt_test_users", `
CREATE TABLE IF NOT EXISTS volt_test_users (
    id SERIAL PRIMARY KEY,
    email VARCHAR(255) NOT NULL UNIQUE,
    name VARCHAR(255) NOT NULL,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
)`},
}

var indexSteps = []Step{
	{"idx_circuit_templates_zone", `CREATE INDEX IF NOT EXISTS idx_circuit_templates_zone ON circuit_templates(zone)`},
	{"idx_circuit_templates_type", `CREATE INDEX IF NOT EXISTS idx_circuit_templates_type ON circuit_templates(type)`},
	{"idx_fuse_types_phase_type", `CREATE INDEX IF NOT EXISTS idx_fuse_types_phase_type ON fuse_types(phase_type)`},
	{"idx_component_subcategories_category", `CREATE INDEX IF NOT EXISTS idx_component_subcategories_category ON component_subcategories(category_id)`},
	{"idx_component_category_components_category", `CREATE INDEX IF NOT EXISTS idx_component_category_components_category ON component_category_components(category_id)`},
	{"idx_component_category_components_subcategory", `CREATE INDEX IF NOT EXISTS idx_component_category_components_subcategory ON component_category_components(subcategory_id)`},
	{"idx_component_category_components_component", `CREATE INDEX IF NOT EXISTS idx_component_category_components_component ON component_category_components(component_id)`},
}

const updatedAtFunction = `
CREATE OR REPLACE FUNCTION update_updated_at_column()
RETURNS TRIGGER AS $$
BEGIN
    NEW.updated_at = NOW();
    RETURN NEW;
END;
$$ language 'plpgsql'`

// triggerTables carry an updated_at column maintained by update_updated_at_column.
var triggerTables = []string{
	"circuit_templates",
	"components",
	"component_categories",
	"component_subcategories",
	"volt_test_users",
}

// SchemaSteps returns the ordered DDL statements that create the schema:
// tables, indexes, the updated_at function and its triggers.
func SchemaSteps() []Step {
	steps := make([]Step, 0, len(tableSteps)+len(indexSteps)+1+2*len(triggerTables))
	steps = append(steps, tableSteps...)
	steps = append(steps, indexSteps...)
	steps = append(steps, Step{"update_updated_at_column", updatedAtFunction})
	for _, table := range triggerTables {
		steps = append(steps, triggerSteps(table)...)
	}
	return steps
}

func triggerSteps(table string) []Step {
	trigger := "update_" + table + "_updated_at"
	return []Step{
		{trigger + " (drop)", fmt.Sprintf(`DROP TRIGGER IF EXISTS %s ON %s`, trigger, table)},
		{trigger, fmt.Sprintf(`CREATE TRIGGER %s
    BEFORE UPDATE ON %s
    FOR EACH ROW EXECUTE FUNCTION update_updated_at_column()`, trigger, table)},
	}
}

// UserTableSteps returns the statements that create volt_test_users and its
// updated_at trigger, leaving the catalog tables alone.
func UserTableSteps() []Step {
	var steps []Step
	for _, step := range tableSteps {
		if step.Name == UserTable {
			steps = append(steps, step)
		}
	}
	steps = append(steps, Step{"update_updated_at_column", updatedAtFunction})
	return append(steps, triggerSteps(UserTable)...)
}

// CreateSchema applies SchemaSteps in a single transaction. report, when not
// nil, is called after each statement succeeds.
func CreateSchema(ctx context.Context, conn *sql.DB, report func(Step)) error {
	return applySteps(ctx, conn, SchemaSteps(), report)
}

// CreateUserTable applies UserTableSteps in a single transaction.
func CreateUserTable(ctx context.Context, conn *sql.DB) error {
	return applySteps(ctx, conn, UserTableSteps(), nil)
}

func applySteps(ctx context.Context, conn *sql.DB, steps []Step, report func(Step)) error {
	return WithTx(ctx, conn, func(tx *sql.Tx) error {
		for _, step := range steps {
			if _, err := tx.ExecContext(ctx, step.SQL); err != nil {
				return fmt.Errorf("error creating %s: %w", step.Name, err)
			}
			if report != nil {
				report(step)
			}
		}
		return nil
	})
}

// DropSchema drops every table in Tables with CASCADE in a single transaction.
func DropSchema(ctx context.Context, conn *sql.DB, report func(table string)) error {
	return WithTx(ctx, conn, func(tx *sql.Tx) error {
		for _, table := range Tables {
			if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
				return fmt.Errorf("error dropping table %s: %w", table, err)
			}
			if report != nil {
				report(table)
			}
		}
		return nil
	})
}
