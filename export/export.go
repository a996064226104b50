// Package export writes the component table to the data lake as JSON and
// CSV objects.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"volt-data/lake"
	"volt-data/models"
	"volt-data/s3store"
)

// Source metadata attached to every exported object.
const (
	MetaSource = "volt_postgresql"
	MetaTable  = "components"
)

// ErrNoData is returned when the component table is empty.
var ErrNoData = errors.New("no components to export")

// Record is the exported shape of a component row.
type Record struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Fields      int      `json:"fields"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	Image       string   `json:"image"`
	Category    string   `json:"category,omitempty"`
	Subcategory string   `json:"subcategory,omitempty"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// csvHeader is the column order of EncodeCSV.
var csvHeader = []string{"id", "name", "fields", "description", "price", "image", "category", "subcategory", "created_at", "updated_at"}

// Records converts components to export records. placements may be nil.
func Records(components []*models.Component, placements []models.Placement) []Record {
	where := make(map[string]models.Placement, len(placements))
	for _, p := range placements {
		where[p.ComponentID] = p
	}

	records := make([]Record, 0, len(components))
	for _, c := range components {
		r := Record{
			ID:          c.ID,
			Name:        c.Name,
			Fields:      c.Fields,
			Description: c.Description,
			Image:       c.Image,
			CreatedAt:   c.CreatedAt,
			UpdatedAt:   c.UpdatedAt,
		}
		if c.Price.Valid {
			price := c.PriceFloat()
			r.Price = &price
		}
		if p, ok := where[c.ID]; ok {
			r.Category = p.CategoryID
			r.Subcategory = p.SubcategoryID
		}
		records = append(records, r)
	}
	return records
}

// EncodeJSON renders records as an indented JSON array.
func EncodeJSON(records []Record) ([]byte, error) {
	return json.MarshalIndent(records, "", "  ")
}

// EncodeCSV renders records with a header row. NULL prices are empty cells.
func EncodeCSV(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, r := range records {
		price := ""
		if r.Price != nil {
			price = strconv.FormatFloat(*r.Price, 'f', 2, 64)
		}
		row := []string{r.ID, r.Name, strconv.Itoa(r.Fields), r.Description, price, r.Image, r.Category, r.Subcategory, r.CreatedAt, r.UpdatedAt}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Metadata is the S3 user metadata of an export object.
func Metadata(format string, count int, now time.Time) map[string]string {
	return map[string]string{
		"source":           MetaSource,
		"table":            MetaTable,
		"record_count":     strconv.Itoa(count),
		"export_timestamp": now.Format(time.RFC3339),
		"format":           format,
	}
}

// ComponentSource lists components.
type ComponentSource interface {
	ListComponents(ctx context.Context) ([]*models.Component, error)
}

// PlacementSource lists category placements.
type PlacementSource interface {
	ListPlacements(ctx context.Context) ([]models.Placement, error)
}

// Uploader stores one object. *s3store.Store implements it.
type Uploader interface {
	Put(ctx context.Context, in s3store.PutInput) s3store.UploadResult
}

// Exporter reads components from the database and uploads them.
type Exporter struct {
	components ComponentSource
	placements PlacementSource
	uploader   Uploader
	logger     *zap.Logger
	now        func() time.Time
}

// NewExporter returns an Exporter. placements may be nil to export without
// category columns.
func NewExporter(components ComponentSource, placements PlacementSource, uploader Uploader, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		components: components,
		placements: placements,
		uploader:   uploader,
		logger:     logger,
		now:        time.Now,
	}
}

// Load reads every component as an export record.
func (e *Exporter) Load(ctx context.Context) ([]Record, error) {
	components, err := e.components.ListComponents(ctx)
	if err != nil {
		return nil, fmt.Errorf("error reading components: %w", err)
	}
	var placements []models.Placement
	if e.placements != nil {
		placements, err = e.placements.ListPlacements(ctx)
		if err != nil {
			return nil, fmt.Errorf("error reading placements: %w", err)
		}
	}
	return Records(components, placements), nil
}

// Result describes one uploaded export.
type Result struct {
	Key     string
	URL     string
	Records int
}

// JSON uploads records as JSON under the dt=<partition> prefix, or under a
// timestamped name when partition is empty.
func (e *Exporter) JSON(ctx context.Context, records []Record, partition string) (Result, error) {
	now := e.now()
	body, err := EncodeJSON(records)
	if err != nil {
		return Result{}, fmt.Errorf("error encoding JSON: %w", err)
	}
	return e.upload(ctx, lake.ComponentsJSONKey(partition, now), body, "application/json", "json", len(records), now)
}

// CSV uploads records as CSV under today's partition.
func (e *Exporter) CSV(ctx context.Context, records []Record) (Result, error) {
	now := e.now()
	body, err := EncodeCSV(records)
	if err != nil {
		return Result{}, fmt.Errorf("error encoding CSV: %w", err)
	}
	return e.upload(ctx, lake.ComponentsCSVKey(now), body, "text/csv", "csv", len(records), now)
}

func (e *Exporter) upload(ctx context.Context, key string, body []byte, contentType, format string, count int, now time.Time) (Result, error) {
	if count == 0 {
		return Result{}, ErrNoData
	}
	res := e.uploader.Put(ctx, s3store.PutInput{
		Key:         key,
		Body:        body,
		ContentType: contentType,
		Metadata:    Metadata(format, count, now),
	})
	if res.Err != nil {
		return Result{}, res.Err
	}
	e.logger.Info("components exported", zap.String("format", format), zap.String("key", key), zap.Int("records", count))
	return Result{Key: key, URL: res.URL, Records: count}, nil
}
