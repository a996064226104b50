package lake

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"go.uber.org/zap"

	"volt-data/s3store"
)

// Directories lists the layer prefixes of the lake, partitioned by source and
// month in the raw layer.
var Directories = []string{
	"raw/source1/2025/01",
	"raw/source1/2025/02",
	"raw/source2",
	"staging/customers",
	"staging/orders",
	"mart/customer_summary",
	"mart/sales_dashboard",
}

// PlaceholderFiles are the staging and mart outputs stubbed by the scaffold.
var PlaceholderFiles = []string{
	"staging/customers/customers_cleaned.parquet",
	"staging/orders/orders_staging.parquet",
	"mart/customer_summary/customer_metrics.parquet",
	"mart/sales_dashboard/monthly_sales.parquet",
}

const placeholderContent = `# Placeholder for parquet file
# Replaced by processed data once the staging jobs run.
`

//go:embed readme.md.tmpl
var readmeTemplate string

var readmeTmpl = template.Must(template.New("readme").Parse(readmeTemplate))

// User is a sample raw user record.
type User struct {
	UserID           string `json:"user_id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	RegistrationDate string `json:"registration_date"`
	Country          string `json:"country"`
	Status           string `json:"status"`
}

// OrderItem is one line of a sample order.
type OrderItem struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Order is a sample raw order record.
type Order struct {
	OrderID     string      `json:"order_id"`
	UserID      string      `json:"user_id"`
	OrderDate   string      `json:"order_date"`
	TotalAmount float64     `json:"total_amount"`
	Currency    string      `json:"currency"`
	Status      string      `json:"status"`
	Items       []OrderItem `json:"items"`
}

// DailyFile is the content of one raw daily partition file.
type DailyFile struct {
	Users  []User  `json:"users"`
	Orders []Order `json:"orders"`
	Source string  `json:"source"`
	Date   string  `json:"date"`
}

var sampleUsers = []User{
	{UserID: "user_001", Name: "Jan Kowalski", Email: "jan.kowalski@example.com", RegistrationDate: "2025-01-01", Country: "Poland", Status: "active"},
	{UserID: "user_002", Name: "Anna Nowak", Email: "anna.nowak@example.com", RegistrationDate: "2025-01-01", Country: "Poland", Status: "active"},
	{UserID: "user_003", Name: "Piotr Wiśniewski", Email: "piotr.wisniewski@example.com", RegistrationDate: "2025-01-02", Country: "Poland", Status: "inactive"},
}

var sampleOrders = []Order{
	{OrderID: "order_001", UserID: "user_001", OrderDate: "2025-01-01", TotalAmount: 150, Currency: "PLN", Status: "completed",
		Items: []OrderItem{{ProductID: "prod_001", Quantity: 2, Price: 50}, {ProductID: "prod_002", Quantity: 1, Price: 50}}},
	{OrderID: "order_002", UserID: "user_002", OrderDate: "2025-01-02", TotalAmount: 75, Currency: "PLN", Status: "completed",
		Items: []OrderItem{{ProductID: "prod_003", Quantity: 1, Price: 75}}},
}

// SampleDays are the dates that get a raw source1 file.
var SampleDays = []string{"2025-01-01", "2025-01-02"}

// SampleDay returns the users registered and orders placed on date.
func SampleDay(date string) DailyFile {
	day := DailyFile{Users: []User{}, Orders: []Order{}, Source: "source1", Date: date}
	for _, u := range sampleUsers {
		if u.RegistrationDate == date {
			day.Users = append(day.Users, u)
		}
	}
	for _, o := range sampleOrders {
		if o.OrderDate == date {
			day.Orders = append(day.Orders, o)
		}
	}
	return day
}

// SampleKey is the raw key of the daily file for date (YYYY-MM-DD).
func SampleKey(date string) string {
	return fmt.Sprintf("raw/source1/%s/%s/data_%s.json", date[:4], date[5:7], date)
}

// Object is one file of the scaffold.
type Object struct {
	Key         string
	Body        []byte
	ContentType string
}

// Objects renders every file of the scaffold. root is the location shown in
// the README, e.g. "data-lake/" or "s3://volt-data-lake/".
func Objects(root string) ([]Object, error) {
	var objs []Object
	for _, date := range SampleDays {
		body, err := json.MarshalIndent(SampleDay(date), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode sample %s: %w", date, err)
		}
		objs = append(objs, Object{Key: SampleKey(date), Body: body, ContentType: "application/json"})
	}
	for _, key := range PlaceholderFiles {
		objs = append(objs, Object{Key: key, Body: []byte(placeholderContent), ContentType: "application/octet-stream"})
	}

	var readme bytes.Buffer
	if err := readmeTmpl.Execute(&readme, struct{ Root string }{root}); err != nil {
		return nil, fmt.Errorf("render README: %w", err)
	}
	objs = append(objs, Object{Key: "README.md", Body: readme.Bytes(), ContentType: "text/markdown"})
	return objs, nil
}

// Sink receives scaffold directories and files.
type Sink interface {
	MkdirAll(ctx context.Context, prefix string) error
	Put(ctx context.Context, obj Object) error
	// Location renders key for status output.
	Location(key string) string
}

// LocalSink writes the scaffold below a directory.
type LocalSink struct {
	Base string
}

func (l LocalSink) MkdirAll(_ context.Context, prefix string) error {
	return os.MkdirAll(filepath.Join(l.Base, filepath.FromSlash(prefix)), 0o755)
}

func (l LocalSink) Put(_ context.Context, obj Object) error {
	p := filepath.Join(l.Base, filepath.FromSlash(obj.Key))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, obj.Body, 0o644)
}

func (l LocalSink) Location(key string) string {
	return filepath.Join(l.Base, filepath.FromSlash(key))
}

// S3Sink writes the scaffold to the store's bucket. Prefixes need no
// placeholder objects.
type S3Sink struct {
	Store *s3store.Store
}

func (s S3Sink) MkdirAll(context.Context, string) error { return nil }

func (s S3Sink) Put(ctx context.Context, obj Object) error {
	res := s.Store.Put(ctx, s3store.PutInput{Key: obj.Key, Body: obj.Body, ContentType: obj.ContentType})
	return res.Err
}

func (s S3Sink) Location(key string) string {
	return s.Store.URI(key)
}

// Scaffold creates the directory layout and sample files in sink and returns
// the locations written, in order.
func Scaffold(ctx context.Context, sink Sink, root string, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var written []string
	for _, dir := range Directories {
		if err := sink.MkdirAll(ctx, dir); err != nil {
			return written, fmt.Errorf("create %s: %w", sink.Location(dir), err)
		}
	}

	objs, err := Objects(root)
	if err != nil {
		return nil, err
	}
	for _, obj := range objs {
		if err := sink.Put(ctx, obj); err != nil {
			return written, fmt.Errorf("write %s: %w", sink.Location(obj.Key), err)
		}
		loc := sink.Location(obj.Key)
		logger.Debug("lake object written", zap.String("location", loc), zap.Int("bytes", len(obj.Body)))
		written = append(written, loc)
	}
	return written, nil
}
