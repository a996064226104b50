// Package migrate loads catalog and reference data into PostgreSQL. Every
// logical batch runs in its own transaction and is rolled back on the first
// error.
package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"volt-data/catalog"
	"volt-data/db"
	"volt-data/store"
)

// Summary counts what a catalog migration would write.
type Summary struct {
	Components       int `json:"components"`
	Categories       int `json:"categories"`
	Subcategories    int `json:"subcategories"`
	Links            int `json:"links"`
	Classified       int `json:"classified"`
	FuseTypes        int `json:"fuse_types"`
	CircuitTemplates int `json:"circuit_templates"`
}

// Summarize builds the dry-run summary of f without touching the database.
func Summarize(f *catalog.File) Summary {
	plan := f.BuildPlan()
	return Summary{
		Components:       len(f.Components),
		Categories:       len(plan.Categories),
		Subcategories:    len(plan.Subcategories),
		Links:            len(plan.Links),
		Classified:       len(plan.Classified),
		FuseTypes:        len(f.FuseTypeModels()),
		CircuitTemplates: len(f.CircuitTemplates),
	}
}

// CatalogResult reports what a catalog migration wrote.
type CatalogResult struct {
	Components    int
	Categories    int
	Subcategories int
	// NewLinks counts inserted link rows; existing links are skipped.
	NewLinks   int
	Classified int
}

// ReferenceResult reports what a reference migration wrote.
type ReferenceResult struct {
	FuseTypes        map[string]int // inserted rows per phase type
	CircuitTemplates int
}

// Migrator runs migrations against one database connection.
type Migrator struct {
	conn   *sql.DB
	logger *zap.Logger
}

// New returns a Migrator. A nil logger disables logging.
func New(conn *sql.DB, logger *zap.Logger) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{conn: conn, logger: logger}
}

// Catalog validates f and upserts components, then categories, subcategories
// and links. Components and the category tree are separate transactions.
func (m *Migrator) Catalog(ctx context.Context, f *catalog.File) (CatalogResult, error) {
	var res CatalogResult
	if err := f.Validate(); err != nil {
		return res, fmt.Errorf("catalog validation failed: %w", err)
	}

	components := f.ComponentModels()
	err := db.WithTx(ctx, m.conn, func(tx *sql.Tx) error {
		n, err := store.NewComponentStore(tx).UpsertComponents(ctx, components)
		res.Components = n
		return err
	})
	if err != nil {
		m.logger.Error("component upsert rolled back", zap.Error(err))
		return CatalogResult{}, fmt.Errorf("components: %w", err)
	}
	m.logger.Info("components upserted", zap.Int("count", res.Components))

	plan := f.BuildPlan()
	err = db.WithTx(ctx, m.conn, func(tx *sql.Tx) error {
		cats := store.NewCategoryStore(tx)
		for _, c := range plan.Categories {
			if err := cats.UpsertCategory(ctx, c); err != nil {
				return err
			}
		}
		for _, sub := range plan.Subcategories {
			if err := cats.UpsertSubcategory(ctx, sub); err != nil {
				return err
			}
		}
		for _, link := range plan.Links {
			inserted, err := cats.LinkComponent(ctx, link)
			if err != nil {
				return err
			}
			if inserted {
				res.NewLinks++
			}
		}
		return nil
	})
	if err != nil {
		m.logger.Error("category upsert rolled back", zap.Error(err))
		return CatalogResult{Components: res.Components}, fmt.Errorf("categories: %w", err)
	}

	res.Categories = len(plan.Categories)
	res.Subcategories = len(plan.Subcategories)
	res.Classified = len(plan.Classified)
	for id, category := range plan.Classified {
		m.logger.Debug("component classified", zap.String("component_id", id), zap.String("category", string(category)))
	}
	m.logger.Info("categories upserted",
		zap.Int("categories", res.Categories),
		zap.Int("subcategories", res.Subcategories),
		zap.Int("new_links", res.NewLinks),
		zap.Int("classified", res.Classified),
	)
	return res, nil
}

// Reference replaces fuse_types and circuit_templates, one transaction each.
func (m *Migrator) Reference(ctx context.Context, f *catalog.File) (ReferenceResult, error) {
	var res ReferenceResult
	fuseTypes := f.FuseTypeModels()
	templates := f.TemplateModels()
	if err := f.Validate(); err != nil {
		return res, fmt.Errorf("reference data validation failed: %w", err)
	}

	err := db.WithTx(ctx, m.conn, func(tx *sql.Tx) error {
		inserted, err := store.NewReferenceStore(tx).ReplaceFuseTypes(ctx, fuseTypes)
		res.FuseTypes = inserted
		return err
	})
	if err != nil {
		m.logger.Error("fuse types rolled back", zap.Error(err))
		return ReferenceResult{}, fmt.Errorf("fuse types: %w", err)
	}
	for phase, n := range res.FuseTypes {
		m.logger.Info("fuse types inserted", zap.String("phase", phase), zap.Int("count", n))
	}

	err = db.WithTx(ctx, m.conn, func(tx *sql.Tx) error {
		n, err := store.NewReferenceStore(tx).ReplaceCircuitTemplates(ctx, templates)
		res.CircuitTemplates = n
		return err
	})
	if err != nil {
		m.logger.Error("circuit templates rolled back", zap.Error(err))
		return ReferenceResult{FuseTypes: res.FuseTypes}, fmt.Errorf("circuit templates: %w", err)
	}
	m.logger.Info("circuit templates inserted", zap.Int("count", res.CircuitTemplates))
	return res, nil
}
