// Package images moves component photos from local storage into the data
// lake and reports the outcome.
package images

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"volt-data/lake"
	"volt-data/s3store"
)

// DefaultBatchSize is the number of uploads per progress batch.
const DefaultBatchSize = 10

const (
	defaultContentType = "image/jpeg"
	uploadedFrom       = "volt_local_storage"
	tagSource          = "volt_migration"
	reportStamp        = "20060102_150405"
)

// Image is a local component photo.
type Image struct {
	Path        string
	Filename    string
	ComponentID string
	Size        int64
	Modified    time.Time
}

// Find lists the *.jpg files in dir, sorted by name. The component id is the
// file name up to its first dot.
func Find(dir string) ([]Image, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.jpg"))
	if err != nil {
		return nil, fmt.Errorf("error scanning %s: %w", dir, err)
	}
	sort.Strings(paths)

	images := make([]Image, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", p, err)
		}
		if info.IsDir() {
			continue
		}
		name := filepath.Base(p)
		images = append(images, Image{
			Path:        p,
			Filename:    name,
			ComponentID: strings.SplitN(name, ".", 2)[0],
			Size:        info.Size(),
			Modified:    info.ModTime(),
		})
	}
	return images, nil
}

// ContentType guesses the MIME type from the file extension.
func ContentType(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return defaultContentType
}

// Tagging is the S3 tag set of an uploaded image.
func Tagging(componentID string) string {
	v := url.Values{}
	v.Set("component_id", componentID)
	v.Set("source", tagSource)
	return v.Encode()
}

// Uploader stores one object. *s3store.Store implements it.
type Uploader interface {
	Put(ctx context.Context, in s3store.PutInput) s3store.UploadResult
}

// Result is the outcome of one image upload.
type Result struct {
	ComponentID string
	Filename    string
	Key         string
	URL         string
	Err         error
}

// Success reports whether the upload succeeded.
func (r Result) Success() bool { return r.Err == nil }

// Results collects a migration run.
type Results struct {
	Successful     []Result
	Failed         []Result
	TotalProcessed int
}

// Migrator uploads images in fixed-size batches.
type Migrator struct {
	uploader  Uploader
	batchSize int
	logger    *zap.Logger
	now       func() time.Time

	// OnBatch is called before each batch with its 1-based number, the batch
	// count and the batch length.
	OnBatch func(batch, batches, size int)
	// OnResult is called after each upload.
	OnResult func(Result)
}

// NewMigrator returns a Migrator. batchSize <= 0 selects DefaultBatchSize.
func NewMigrator(uploader Uploader, batchSize int, logger *zap.Logger) *Migrator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{uploader: uploader, batchSize: batchSize, logger: logger, now: time.Now}
}

// Upload sends one image with its metadata and tags.
func (m *Migrator) Upload(ctx context.Context, img Image) Result {
	res := Result{ComponentID: img.ComponentID, Filename: img.Filename}
	body, err := os.ReadFile(img.Path)
	if err != nil {
		res.Err = fmt.Errorf("error reading %s: %w", img.Path, err)
		return res
	}

	up := m.uploader.Put(ctx, s3store.PutInput{
		Key:         lake.ImageKey(img.ComponentID, img.Filename),
		Body:        body,
		ContentType: ContentType(img.Filename),
		Metadata: map[string]string{
			"component_id":      img.ComponentID,
			"original_filename": img.Filename,
			"uploaded_from":     uploadedFrom,
			"upload_timestamp":  m.now().Format(time.RFC3339),
			"file_size":         strconv.FormatInt(img.Size, 10),
			"last_modified":     img.Modified.Format(time.RFC3339),
		},
		Tagging: Tagging(img.ComponentID),
	})
	res.Key = up.Key
	res.URL = up.URL
	res.Err = up.Err
	return res
}

// Migrate uploads every image. Failed uploads are recorded and the run
// continues; only a cancelled context stops it early.
func (m *Migrator) Migrate(ctx context.Context, imgs []Image) Results {
	var results Results
	batches := (len(imgs) + m.batchSize - 1) / m.batchSize
	for i := 0; i < len(imgs); i += m.batchSize {
		end := i + m.batchSize
		if end > len(imgs) {
			end = len(imgs)
		}
		if m.OnBatch != nil {
			m.OnBatch(i/m.batchSize+1, batches, end-i)
		}
		for _, img := range imgs[i:end] {
			if ctx.Err() != nil {
				return results
			}
			res := m.Upload(ctx, img)
			results.TotalProcessed++
			if res.Success() {
				results.Successful = append(results.Successful, res)
			} else {
				results.Failed = append(results.Failed, res)
				m.logger.Warn("image upload failed", zap.String("component_id", res.ComponentID), zap.Error(res.Err))
			}
			if m.OnResult != nil {
				m.OnResult(res)
			}
		}
	}
	m.logger.Info("image migration finished",
		zap.Int("processed", results.TotalProcessed),
		zap.Int("successful", len(results.Successful)),
		zap.Int("failed", len(results.Failed)),
	)
	return results
}

// Report is the persisted summary of a migration run.
type Report struct {
	MigrationTimestamp   string   `json:"migration_timestamp"`
	TotalProcessed       int      `json:"total_processed"`
	SuccessfulUploads    int      `json:"successful_uploads"`
	FailedUploads        int      `json:"failed_uploads"`
	SuccessRate          string   `json:"success_rate"`
	SuccessfulComponents []string `json:"successful_components"`
	FailedComponents     []string `json:"failed_components"`
}

// NewReport summarizes results.
func NewReport(results Results, now time.Time) Report {
	r := Report{
		MigrationTimestamp:   now.Format(time.RFC3339),
		TotalProcessed:       results.TotalProcessed,
		SuccessfulUploads:    len(results.Successful),
		FailedUploads:        len(results.Failed),
		SuccessRate:          SuccessRate(len(results.Successful), results.TotalProcessed),
		SuccessfulComponents: []string{},
		FailedComponents:     []string{},
	}
	for _, res := range results.Successful {
		r.SuccessfulComponents = append(r.SuccessfulComponents, res.ComponentID)
	}
	for _, res := range results.Failed {
		r.FailedComponents = append(r.FailedComponents, res.ComponentID)
	}
	return r
}

// SuccessRate formats ok/total as a percentage with one decimal, or "0%"
// when nothing was processed.
func SuccessRate(ok, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(ok)/float64(total)*100)
}

// ReportFilename is the report file name for a run started at now.
func ReportFilename(now time.Time) string {
	return "migration_report_" + now.Format(reportStamp) + ".json"
}

// SaveReport writes report as indented JSON into dir and returns its path.
func SaveReport(dir string, report Report, now time.Time) (string, error) {
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error encoding report: %w", err)
	}
	p := filepath.Join(dir, ReportFilename(now))
	if err := os.WriteFile(p, body, 0o644); err != nil {
		return "", fmt.Errorf("error writing report: %w", err)
	}
	return p, nil
}
