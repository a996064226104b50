package convert

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"volt-data/lake"
	"volt-data/s3store"
)

// MaxFileBytes is the largest CSV the handler converts.
const MaxFileBytes = 500 * 1024 * 1024

const metaSource = "lambda_csv_converter"

// Response is the Lambda result for an S3 event.
type Response struct {
	StatusCode int         `json:"statusCode"`
	Body       interface{} `json:"body"`
}

// SuccessBody is returned after a conversion.
type SuccessBody struct {
	Message          string `json:"message"`
	OriginalFile     string `json:"original_file"`
	ConvertedFile    string `json:"converted_file"`
	RowsProcessed    int    `json:"rows_processed"`
	ColumnsProcessed int    `json:"columns_processed"`
}

// ErrorBody is returned when a conversion fails.
type ErrorBody struct {
	Error string `json:"error"`
	File  string `json:"file"`
}

// Handler converts CSV objects announced by S3 notifications.
type Handler struct {
	client   s3store.Client
	logger   *zap.Logger
	now      func() time.Time
	maxBytes int
}

// NewHandler returns a Handler. A nil logger disables logging.
func NewHandler(client s3store.Client, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{client: client, logger: logger, now: time.Now, maxBytes: MaxFileBytes}
}

// Handle processes the records of event in order and answers for the first
// raw CSV it finds. Other keys are skipped.
func (h *Handler) Handle(ctx context.Context, event events.S3Event) (Response, error) {
	for _, record := range event.Records {
		bucket := record.S3.Bucket.Name
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			key = record.S3.Object.Key
		}
		h.logger.Info("processing object", zap.String("bucket", bucket), zap.String("key", key))

		if !lake.IsRawCSV(key) {
			h.logger.Info("skipping object outside raw/ or not CSV", zap.String("key", key))
			continue
		}
		return h.convertObject(ctx, bucket, key), nil
	}
	return Response{StatusCode: 200, Body: map[string]string{"message": "No CSV files to convert"}}, nil
}

func (h *Handler) convertObject(ctx context.Context, bucket, key string) Response {
	st := s3store.New(h.client, bucket, "", h.logger)
	original := st.URI(key)
	fail := func(err error) Response {
		msg := fmt.Sprintf("Error processing %s: %v", key, err)
		h.logger.Error("conversion failed", zap.String("key", key), zap.Error(err))
		return Response{StatusCode: 500, Body: ErrorBody{Error: msg, File: original}}
	}

	data, err := st.Get(ctx, key)
	if err != nil {
		return fail(err)
	}
	sizeMB := float64(len(data)) / (1024 * 1024)
	if len(data) > h.maxBytes {
		return fail(fmt.Errorf("file too large: %.1fMB (limit: %dMB)", sizeMB, h.maxBytes/(1024*1024)))
	}

	res, err := CSVToParquet(data)
	if err != nil {
		return fail(err)
	}
	h.logger.Info("csv loaded", zap.Int("rows", res.Rows), zap.Int("columns", res.Columns), zap.Float64("size_mb", sizeMB))

	target, _ := lake.StagingKey(key)
	up := st.Put(ctx, s3store.PutInput{
		Key:         target,
		Body:        res.Parquet,
		ContentType: "application/octet-stream",
		Metadata: map[string]string{
			"source":               metaSource,
			"original_csv_key":     key,
			"conversion_timestamp": h.now().Format(time.RFC3339),
			"row_count":            strconv.Itoa(res.Rows),
			"column_count":         strconv.Itoa(res.Columns),
			"file_size_mb":         fmt.Sprintf("%.2f", sizeMB),
		},
	})
	if up.Err != nil {
		return fail(up.Err)
	}

	h.logger.Info("converted", zap.String("target", up.URL))
	return Response{StatusCode: 200, Body: SuccessBody{
		Message:          "CSV to Parquet conversion completed",
		OriginalFile:     original,
		ConvertedFile:    up.URL,
		RowsProcessed:    res.Rows,
		ColumnsProcessed: res.Columns,
	}}
}
