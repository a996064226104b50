package pipeline

import (
	"regexp"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"

	"volt-data/export"
)

// Price categories assigned by Transform.
const (
	PriceBudget   = "budget"
	PriceStandard = "standard"
	PricePremium  = "premium"
	PriceLuxury   = "luxury"
)

var (
	priceCeiling = decimal.NewFromInt(10000)
	priceBins    = []struct {
		upper decimal.Decimal
		label string
	}{
		{decimal.NewFromInt(100), PriceBudget},
		{decimal.NewFromInt(500), PriceStandard},
		{decimal.NewFromInt(1000), PricePremium},
	}

	// Unicode-aware, so Polish letters survive.
	nonWord = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
)

// Transformed is a cleaned component row as written to Parquet.
type Transformed struct {
	ID             string  `parquet:"id" json:"id"`
	Name           string  `parquet:"name" json:"name"`
	Fields         int64   `parquet:"fields" json:"fields"`
	Description    string  `parquet:"description" json:"description"`
	Price          float64 `parquet:"price" json:"price"`
	Image          string  `parquet:"image" json:"image"`
	Category       string  `parquet:"category" json:"category,omitempty"`
	Subcategory    string  `parquet:"subcategory" json:"subcategory,omitempty"`
	CreatedAt      string  `parquet:"created_at" json:"created_at"`
	UpdatedAt      string  `parquet:"updated_at" json:"updated_at"`
	PriceCategory  string  `parquet:"price_category" json:"price_category"`
	NameNormalized string  `parquet:"name_normalized" json:"name_normalized"`
}

// PriceCategory bins a price into right-closed intervals: (0,100] budget,
// (100,500] standard, (500,1000] premium, above that luxury. Non-positive
// prices have no category.
func PriceCategory(price decimal.Decimal) string {
	if !price.IsPositive() {
		return ""
	}
	for _, bin := range priceBins {
		if price.LessThanOrEqual(bin.upper) {
			return bin.label
		}
	}
	return PriceLuxury
}

// NormalizeName lower-cases name and strips punctuation.
func NormalizeName(name string) string {
	return nonWord.ReplaceAllString(strings.ToLower(name), "")
}

// Transform drops rows without a price or with a price outside (0, 10000)
// and derives price_category and name_normalized.
func Transform(records []export.Record) []Transformed {
	out := make([]Transformed, 0, len(records))
	for _, r := range records {
		if r.Price == nil {
			continue
		}
		price := decimal.NewFromFloat(*r.Price)
		if !price.IsPositive() || !price.LessThan(priceCeiling) {
			continue
		}
		out = append(out, Transformed{
			ID:             r.ID,
			Name:           r.Name,
			Fields:         int64(r.Fields),
			Description:    r.Description,
			Price:          *r.Price,
			Image:          r.Image,
			Category:       r.Category,
			Subcategory:    r.Subcategory,
			CreatedAt:      r.CreatedAt,
			UpdatedAt:      r.UpdatedAt,
			PriceCategory:  PriceCategory(price),
			NameNormalized: NormalizeName(r.Name),
		})
	}
	return out
}

// WriteParquetFile stores rows at path.
func WriteParquetFile(path string, rows []Transformed) error {
	return parquet.WriteFile(path, rows)
}

// ReadParquetFile loads rows written by WriteParquetFile.
func ReadParquetFile(path string) ([]Transformed, error) {
	return parquet.ReadFile[Transformed](path)
}
