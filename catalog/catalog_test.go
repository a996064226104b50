package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volt-data/classify"
	"volt-data/models"
)

const smallCatalog = `
components:
  - id: isolator
    name: "Rozłącznik izolacyjny modułowy"
    fields: 3
    price: 180
    image: /pictures/electricComponents/isolator.jpg
  - id: mcb_b16
    name: B16A
    fields: 1
    price: 32.499
  - id: cable_yky_3x15
    name: "Kabel YKY 3x1,5"
    fields: 0
  - id: widget
    name: "Gadżet"
    fields: 1
categories:
  - id: basic_protection
    name: "Zabezpieczenia podstawowe"
    components: [isolator]
  - id: overcurrent_protection
    name: "Zabezpieczenia nadprądowe"
    subcategories:
      - id: mcb_b
        name: "Charakterystyka B"
        components: [mcb_b16]
fuse_types:
  "3φ": [16A]
  "1φ": [6A, 10A]
circuit_templates:
  - {description: "Rekuperator", zone: "Piętro", voltage: 230, cable: "YDYpżo 3x2,5", power: 1.5, phase: "L3", type: "1φ"}
`

func TestParseAndConvert(t *testing.T) {
	f, err := Parse([]byte(smallCatalog))
	require.NoError(t, err)
	require.NoError(t, f.Validate())

	comps := f.ComponentModels()
	require.Len(t, comps, 4)
	assert.Equal(t, "32.5", comps[1].Price.Decimal.String())
	assert.False(t, comps[2].Price.Valid, "missing price stays NULL")

	fuses := f.FuseTypeModels()
	assert.Equal(t, []models.FuseType{
		{FuseType: "6A", PhaseType: models.PhaseSingle},
		{FuseType: "10A", PhaseType: models.PhaseSingle},
		{FuseType: "16A", PhaseType: models.PhaseThree},
	}, fuses)

	tmpl := f.TemplateModels()
	require.Len(t, tmpl, 1)
	assert.Equal(t, "1.5", tmpl[0].Power.String())
}

func TestBuildPlan(t *testing.T) {
	f, err := Parse([]byte(smallCatalog))
	require.NoError(t, err)

	p := f.BuildPlan()

	assert.Equal(t, map[string]classify.Category{
		"cable_yky_3x15": classify.Cables,
		"widget":         classify.Other,
	}, p.Classified)

	assert.Contains(t, p.Links, models.CategoryLink{CategoryID: "basic_protection", ComponentID: "isolator"})
	assert.Contains(t, p.Links, models.CategoryLink{SubcategoryID: "mcb_b", ComponentID: "mcb_b16"})
	assert.Contains(t, p.Links, models.CategoryLink{CategoryID: "cables", ComponentID: "cable_yky_3x15"})
	assert.Contains(t, p.Links, models.CategoryLink{CategoryID: "other", ComponentID: "widget"})
	for _, l := range p.Links {
		assert.NoError(t, l.Validate())
	}

	assert.Contains(t, p.Categories, models.Category{ID: "cables", Name: classify.Cables.DisplayName()})
	assert.Equal(t, []models.Subcategory{{ID: "mcb_b", CategoryID: "overcurrent_protection", Name: "Charakterystyka B"}}, p.Subcategories)
}

func TestValidateReportsAllProblems(t *testing.T) {
	f := &File{
		Components: []ComponentRecord{
			{ID: "a", Name: "A"},
			{ID: "a", Name: ""},
		},
		Categories: []CategoryRecord{
			{ID: "c", Name: "C", Components: []string{"missing"}},
		},
		FuseTypes: map[string][]string{"2φ": {"16A"}},
	}

	err := f.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `component "a": duplicate id`)
	assert.Contains(t, msg, "name is required")
	assert.Contains(t, msg, `unknown component "missing"`)
	assert.Contains(t, msg, `fuse type "16A"`)
}

func TestDefaultCatalog(t *testing.T) {
	f, err := Default()
	require.NoError(t, err)
	require.NoError(t, f.Validate())
	assert.NotEmpty(t, f.Components)
	assert.Len(t, f.FuseTypes[models.PhaseSingle], 10)
	assert.Len(t, f.FuseTypes[models.PhaseThree], 10)

	p := f.BuildPlan()
	linked := map[string]bool{}
	for _, l := range p.Links {
		linked[l.ComponentID] = true
	}
	for _, c := range f.Components {
		assert.True(t, linked[c.ID], "component %s has no category link", c.ID)
	}

	categoryIDs := map[string]bool{}
	for _, c := range p.Categories {
		categoryIDs[c.ID] = true
	}
	for id, category := range p.Classified {
		assert.True(t, category.Valid(), "component %s got unknown label %s", id, category)
		assert.True(t, categoryIDs[string(category)], "classified category %s is not planned", category)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(smallCatalog), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, f.Components, 4)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	f, err = Load("")
	require.NoError(t, err)
	assert.Greater(t, len(f.Components), 4)
}
