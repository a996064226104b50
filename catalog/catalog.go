// Package catalog loads the switchboard component catalog and plans the
// category links written by the catalog migration.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"volt-data/classify"
	"volt-data/models"
)

//go:embed data/catalog.yaml
var embedded []byte

// ComponentRecord is a component as written in the catalog file.
type ComponentRecord struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Fields      int      `yaml:"fields"`
	Description string   `yaml:"description"`
	Price       *float64 `yaml:"price"`
	Image       string   `yaml:"image"`
}

// SubcategoryRecord is a subcategory with the ids of its components.
type SubcategoryRecord struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Components []string `yaml:"components"`
}

// CategoryRecord is a top-level category with direct components and
// subcategories.
type CategoryRecord struct {
	ID            string              `yaml:"id"`
	Name          string              `yaml:"name"`
	Components    []string            `yaml:"components"`
	Subcategories []SubcategoryRecord `yaml:"subcategories"`
}

// TemplateRecord is a circuit template as written in the catalog file.
type TemplateRecord struct {
	Description string  `yaml:"description"`
	Zone        string  `yaml:"zone"`
	Voltage     int     `yaml:"voltage"`
	Cable       string  `yaml:"cable"`
	Power       float64 `yaml:"power"`
	Phase       string  `yaml:"phase"`
	Type        string  `yaml:"type"`
}

// File is the parsed catalog document.
type File struct {
	Components       []ComponentRecord   `yaml:"components"`
	Categories       []CategoryRecord    `yaml:"categories"`
	FuseTypes        map[string][]string `yaml:"fuse_types"` // phase type -> ratings
	CircuitTemplates []TemplateRecord    `yaml:"circuit_templates"`
}

// Default returns the catalog embedded in the binary.
func Default() (*File, error) {
	return Parse(embedded)
}

// Load reads a catalog from path, or the embedded catalog when path is empty.
func Load(path string) (*File, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading catalog %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("error parsing catalog: %w", err)
	}
	return &f, nil
}

// ComponentModels converts the component records to models.
func (f *File) ComponentModels() []models.Component {
	out := make([]models.Component, 0, len(f.Components))
	for _, r := range f.Components {
		c := models.Component{
			ID:          r.ID,
			Name:        r.Name,
			Fields:      r.Fields,
			Description: r.Description,
			Image:       r.Image,
		}
		if r.Price != nil {
			c.Price = models.NewPrice(*r.Price)
		}
		out = append(out, c)
	}
	return out
}

// FuseTypeModels returns fuse types single-phase first, in file order within
// each phase.
func (f *File) FuseTypeModels() []models.FuseType {
	phases := make([]string, 0, len(f.FuseTypes))
	for phase := range f.FuseTypes {
		phases = append(phases, phase)
	}
	sort.Strings(phases)

	var out []models.FuseType
	for _, phase := range phases {
		for _, rating := range f.FuseTypes[phase] {
			out = append(out, models.FuseType{FuseType: rating, PhaseType: phase})
		}
	}
	return out
}

// TemplateModels converts the circuit template records to models.
func (f *File) TemplateModels() []models.CircuitTemplate {
	out := make([]models.CircuitTemplate, 0, len(f.CircuitTemplates))
	for _, r := range f.CircuitTemplates {
		out = append(out, models.CircuitTemplate{
			Description: r.Description,
			Zone:        r.Zone,
			Voltage:     r.Voltage,
			Cable:       r.Cable,
			Power:       decimal.NewFromFloat(r.Power).Round(2),
			Phase:       r.Phase,
			Type:        r.Type,
		})
	}
	return out
}

// Validate checks every record before anything is written. All problems are
// reported together.
func (f *File) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(f.Components))
	for _, c := range f.ComponentModels() {
		if err := models.Validate(c); err != nil {
			errs = append(errs, fmt.Errorf("component %q: %w", c.ID, err))
		}
		if seen[c.ID] {
			errs = append(errs, fmt.Errorf("component %q: duplicate id", c.ID))
		}
		seen[c.ID] = true
	}

	subSeen := map[string]bool{}
	for _, cat := range f.Categories {
		if err := models.Validate(models.Category{ID: cat.ID, Name: cat.Name}); err != nil {
			errs = append(errs, fmt.Errorf("category %q: %w", cat.ID, err))
		}
		for _, id := range cat.Components {
			if !seen[id] {
				errs = append(errs, fmt.Errorf("category %q: unknown component %q", cat.ID, id))
			}
		}
		for _, sub := range cat.Subcategories {
			if err := models.Validate(models.Subcategory{ID: sub.ID, CategoryID: cat.ID, Name: sub.Name}); err != nil {
				errs = append(errs, fmt.Errorf("subcategory %q: %w", sub.ID, err))
			}
			if subSeen[sub.ID] {
				errs = append(errs, fmt.Errorf("subcategory %q: duplicate id", sub.ID))
			}
			subSeen[sub.ID] = true
			for _, id := range sub.Components {
				if !seen[id] {
					errs = append(errs, fmt.Errorf("subcategory %q: unknown component %q", sub.ID, id))
				}
			}
		}
	}

	for _, ft := range f.FuseTypeModels() {
		if err := models.Validate(ft); err != nil {
			errs = append(errs, fmt.Errorf("fuse type %q: %w", ft.FuseType, err))
		}
	}
	for i, t := range f.TemplateModels() {
		if err := models.Validate(t); err != nil {
			errs = append(errs, fmt.Errorf("circuit template #%d (%s): %w", i+1, t.Description, err))
		}
	}
	return errors.Join(errs...)
}

// Plan is the set of rows the catalog migration writes for categories.
type Plan struct {
	Categories    []models.Category
	Subcategories []models.Subcategory
	Links         []models.CategoryLink
	// Classified maps components absent from every category list to the
	// category chosen by the classifier.
	Classified map[string]classify.Category
}

// BuildPlan expands the category tree into rows. Components not referenced
// by any category or subcategory are linked directly to the category returned
// by classify.Determine, and that category is added when the file does not
// define it.
func (f *File) BuildPlan() Plan {
	p := Plan{Classified: map[string]classify.Category{}}
	defined := map[string]bool{}
	linked := map[string]bool{}

	for _, cat := range f.Categories {
		p.Categories = append(p.Categories, models.Category{ID: cat.ID, Name: cat.Name})
		defined[cat.ID] = true
		for _, id := range cat.Components {
			p.Links = append(p.Links, models.CategoryLink{CategoryID: cat.ID, ComponentID: id})
			linked[id] = true
		}
		for _, sub := range cat.Subcategories {
			p.Subcategories = append(p.Subcategories, models.Subcategory{ID: sub.ID, CategoryID: cat.ID, Name: sub.Name})
			for _, id := range sub.Components {
				p.Links = append(p.Links, models.CategoryLink{SubcategoryID: sub.ID, ComponentID: id})
				linked[id] = true
			}
		}
	}

	for _, c := range f.Components {
		if linked[c.ID] {
			continue
		}
		category := classify.Determine(c.ID, c.Name, c.Description)
		p.Classified[c.ID] = category
		if !defined[string(category)] {
			p.Categories = append(p.Categories, models.Category{ID: string(category), Name: category.DisplayName()})
			defined[string(category)] = true
		}
		p.Links = append(p.Links, models.CategoryLink{CategoryID: string(category), ComponentID: c.ID})
	}
	return p
}
