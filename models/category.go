package models

import "errors"

// ErrLinkExclusive is returned when a link row names both or neither of
// category and subcategory.
var ErrLinkExclusive = errors.New("category link must set exactly one of category_id or subcategory_id")

// Category is a top-level component group.
type Category struct {
	ID   string `json:"id" validate:"required,max=100"`
	Name string `json:"name" validate:"required,max=255"`
}

// Subcategory belongs to exactly one Category.
type Subcategory struct {
	ID         string `json:"id" validate:"required,max=100"`
	CategoryID string `json:"category_id" validate:"required,max=100"`
	Name       string `json:"name" validate:"required,max=255"`
}

// CategoryLink places a component either directly in a category or in a
// subcategory, never both.
type CategoryLink struct {
	CategoryID    string `json:"category_id,omitempty"`
	SubcategoryID string `json:"subcategory_id,omitempty"`
	ComponentID   string `json:"component_id" validate:"required"`
}

// Validate mirrors the check_category_or_subcategory constraint.
func (l CategoryLink) Validate() error {
	if l.ComponentID == "" {
		return errors.New("category link requires component_id")
	}
	if (l.CategoryID == "") == (l.SubcategoryID == "") {
		return ErrLinkExclusive
	}
	return nil
}

// CategorySummary is a category with the number of components linked to it
// directly and through its subcategories.
type CategorySummary struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Subcategories map[string]int `json:"subcategories"`
	TotalCount    int            `json:"totalCount"`
}

// Placement is where a component sits in the category tree. CategoryID is
// always set; SubcategoryID is empty for direct category links.
type Placement struct {
	ComponentID   string `json:"component_id"`
	CategoryID    string `json:"category_id"`
	SubcategoryID string `json:"subcategory_id,omitempty"`
}
