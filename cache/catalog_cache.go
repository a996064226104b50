// Package cache keeps a read-mostly copy of the component catalog in memory
// for the HTTP API.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"volt-data/models"
)

// UncategorizedKey groups components without any category link.
const UncategorizedKey = ""

// Item is a cached component with its place in the category tree.
type Item struct {
	models.Component
	Category    string
	Subcategory string
}

// ComponentLister lists components.
type ComponentLister interface {
	ListComponents(ctx context.Context) ([]*models.Component, error)
}

// CategoryLister lists placements and category summaries.
type CategoryLister interface {
	ListPlacements(ctx context.Context) ([]models.Placement, error)
	Summaries(ctx context.Context) ([]models.CategorySummary, error)
}

// FuseTypeLister lists fuse types ordered by phase and rating.
type FuseTypeLister interface {
	ListFuseTypes(ctx context.Context, phase string) ([]models.FuseType, error)
}

// CatalogCache holds the catalog. All getters return copies.
type CatalogCache struct {
	mu         sync.RWMutex
	itemsByID  map[string]*Item
	byCategory map[string][]*Item // key is the category id, or UncategorizedKey
	allItems   []*Item
	summaries  []models.CategorySummary
	fuseTypes  []models.FuseType
}

// NewCatalogCache returns an empty cache.
func NewCatalogCache() *CatalogCache {
	return &CatalogCache{
		itemsByID:  make(map[string]*Item),
		byCategory: make(map[string][]*Item),
		allItems:   make([]*Item, 0),
	}
}

// Load replaces the cache content with a fresh read of the stores. The
// previous content stays in place if any read fails.
func (c *CatalogCache) Load(ctx context.Context, components ComponentLister, categories CategoryLister, fuses FuseTypeLister) error {
	comps, err := components.ListComponents(ctx)
	if err != nil {
		return fmt.Errorf("failed to list components for cache: %w", err)
	}
	placements, err := categories.ListPlacements(ctx)
	if err != nil {
		return fmt.Errorf("failed to list placements for cache: %w", err)
	}
	summaries, err := categories.Summaries(ctx)
	if err != nil {
		return fmt.Errorf("failed to summarise categories for cache: %w", err)
	}
	fuseTypes, err := fuses.ListFuseTypes(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to list fuse types for cache: %w", err)
	}

	// A component linked more than once keeps its first placement.
	where := make(map[string]models.Placement, len(placements))
	for _, p := range placements {
		if _, seen := where[p.ComponentID]; !seen {
			where[p.ComponentID] = p
		}
	}

	itemsByID := make(map[string]*Item, len(comps))
	byCategory := make(map[string][]*Item)
	allItems := make([]*Item, 0, len(comps))
	for _, comp := range comps {
		item := &Item{Component: *comp}
		if p, ok := where[comp.ID]; ok {
			item.Category = p.CategoryID
			item.Subcategory = p.SubcategoryID
		}
		itemsByID[item.ID] = item
		allItems = append(allItems, item)
		byCategory[item.Category] = append(byCategory[item.Category], item)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.itemsByID = itemsByID
	c.byCategory = byCategory
	c.allItems = allItems
	c.summaries = summaries
	c.fuseTypes = fuseTypes
	return nil
}

// GetByID returns a copy of the item.
func (c *CatalogCache) GetByID(id string) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, found := c.itemsByID[id]
	if !found {
		return Item{}, false
	}
	return *item, true
}

// GetAll returns every item in load order.
func (c *CatalogCache) GetAll() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyItems(c.allItems)
}

// GetByCategory returns the items placed in category, directly or through a
// subcategory. It reports false when the category has no items.
func (c *CatalogCache) GetByCategory(category string) ([]Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	items, found := c.byCategory[category]
	if !found || len(items) == 0 {
		return []Item{}, false
	}
	return copyItems(items), true
}

// Search matches term case-insensitively against name, description and
// category id. An empty term returns everything.
func (c *CatalogCache) Search(term string) []Item {
	term = strings.ToLower(strings.TrimSpace(term))
	c.mu.RLock()
	defer c.mu.RUnlock()
	if term == "" {
		return copyItems(c.allItems)
	}
	out := make([]Item, 0)
	for _, it := range c.allItems {
		if strings.Contains(strings.ToLower(it.Name), term) ||
			strings.Contains(strings.ToLower(it.Description), term) ||
			strings.Contains(it.Category, term) {
			out = append(out, *it)
		}
	}
	return out
}

// Summaries returns category summaries keyed by category id.
func (c *CatalogCache) Summaries() map[string]models.CategorySummary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]models.CategorySummary, len(c.summaries))
	for _, s := range c.summaries {
		subs := make(map[string]int, len(s.Subcategories))
		for k, v := range s.Subcategories {
			subs[k] = v
		}
		s.Subcategories = subs
		out[s.ID] = s
	}
	return out
}

// FuseTypes returns fuse types for phase, or all of them when phase is empty.
func (c *CatalogCache) FuseTypes(phase string) []models.FuseType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.FuseType, 0, len(c.fuseTypes))
	for _, ft := range c.fuseTypes {
		if phase == "" || ft.PhaseType == phase {
			out = append(out, ft)
		}
	}
	return out
}

func copyItems(items []*Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		out = append(out, *it)
	}
	return out
}
