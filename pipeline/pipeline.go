// Package pipeline runs the daily Volt data pipeline: check the database,
// extract components, transform them, load them to the lake and refresh
// image URLs. Temporary files are always cleaned up.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"volt-data/export"
	"volt-data/lake"
	"volt-data/presign"
	"volt-data/s3store"
)

// Task names, in run order.
const (
	TaskCheckDB      = "check_volt_database"
	TaskExtract      = "extract_volt_data"
	TaskTransform    = "transform_volt_data"
	TaskLoad         = "load_to_s3"
	TaskGenerateURLs = "generate_image_urls"
	TaskCleanup      = "cleanup_temp_files"
	TaskSuccessAlert = "success_alert"
	TaskFailureAlert = "failure_alert"
)

const (
	rawFile         = "volt_components_raw.json"
	transformedFile = "volt_components_transformed.parquet"
)

// Status is the outcome of a task.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// TaskResult records one task of a run.
type TaskResult struct {
	Name     string
	Status   Status
	Attempts int
	Duration time.Duration
	Err      error
}

// Report summarizes a run.
type Report struct {
	RunID     string
	Started   time.Time
	Finished  time.Time
	Tasks     []TaskResult
	Rows      map[string]int
	LoadedKey string
	Succeeded bool
}

// Database is the part of the component store the pipeline reads.
type Database interface {
	CountComponents(ctx context.Context) (int, error)
	ListComponentIDs(ctx context.Context) ([]string, error)
}

// Deps are the collaborators of a run. Placements may be nil.
type Deps struct {
	DB         Database
	Components export.ComponentSource
	Placements export.PlacementSource
	Uploader   export.Uploader
	Signer     presign.URLSigner
}

// Options tune a run.
type Options struct {
	// WorkDir holds the temporary files. Defaults to os.TempDir().
	WorkDir string
	// Retries is the number of extra attempts per task.
	Retries    int
	RetryDelay time.Duration
	// URLExpiry is the validity of generated image URLs, in whole hours.
	URLExpiry time.Duration
	// Out receives the alert lines.
	Out io.Writer
}

// Pipeline executes runs with fixed dependencies.
type Pipeline struct {
	deps    Deps
	opts    Options
	logger  *zap.Logger
	metrics *Metrics
	now     func() time.Time
}

// New returns a Pipeline. A nil logger disables logging.
func New(deps Deps, opts Options, logger *zap.Logger) *Pipeline {
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.URLExpiry < time.Hour {
		opts.URLExpiry = 168 * time.Hour
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{deps: deps, opts: opts, logger: logger, metrics: NewMetrics(), now: time.Now}
}

// Metrics returns the collectors of the last run.
func (p *Pipeline) Metrics() *Metrics {
	return p.metrics
}

// run is the per-run state shared by tasks.
type run struct {
	report          *Report
	rawPath         string
	transformedPath string
}

// Run executes every task once, in order. A failed task skips the remaining
// data tasks; cleanup and one alert always run. The returned error is the
// first task failure.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	p.metrics = NewMetrics()
	r := &run{
		report: &Report{
			RunID:   uuid.NewString(),
			Started: p.now(),
			Rows:    map[string]int{},
		},
		rawPath:         filepath.Join(p.opts.WorkDir, rawFile),
		transformedPath: filepath.Join(p.opts.WorkDir, transformedFile),
	}
	logger := p.logger.With(zap.String("run_id", r.report.RunID))
	logger.Info("pipeline started", zap.String("work_dir", p.opts.WorkDir))

	steps := []struct {
		name string
		fn   func(context.Context, *run) error
	}{
		{TaskCheckDB, p.checkDatabase},
		{TaskExtract, p.extract},
		{TaskTransform, p.transform},
		{TaskLoad, p.load},
		{TaskGenerateURLs, p.generateURLs},
	}

	var firstErr error
	for _, step := range steps {
		if firstErr != nil {
			r.report.Tasks = append(r.report.Tasks, TaskResult{Name: step.name, Status: StatusSkipped})
			continue
		}
		res := p.runTask(ctx, logger, step.name, p.opts.Retries, func(ctx context.Context) error {
			return step.fn(ctx, r)
		})
		r.report.Tasks = append(r.report.Tasks, res)
		if res.Err != nil {
			firstErr = fmt.Errorf("%s: %w", step.name, res.Err)
		}
	}

	r.report.Tasks = append(r.report.Tasks, p.runTask(ctx, logger, TaskCleanup, 0, func(context.Context) error {
		p.cleanup(logger, r)
		return nil
	}))

	r.report.Succeeded = firstErr == nil
	if r.report.Succeeded {
		r.report.Tasks = append(r.report.Tasks, p.runTask(ctx, logger, TaskSuccessAlert, 0, func(context.Context) error {
			return p.successAlert(r)
		}))
	} else {
		r.report.Tasks = append(r.report.Tasks, p.runTask(ctx, logger, TaskFailureAlert, 0, func(context.Context) error {
			return p.failureAlert(r, firstErr)
		}))
	}

	r.report.Finished = p.now()
	p.metrics.observeRun(r.report, r.report.Finished)
	logger.Info("pipeline finished",
		zap.Bool("succeeded", r.report.Succeeded),
		zap.Duration("duration", r.report.Finished.Sub(r.report.Started)),
	)
	return r.report, firstErr
}

// runTask runs fn with up to retries extra attempts spaced by RetryDelay.
func (p *Pipeline) runTask(ctx context.Context, logger *zap.Logger, name string, retries int, fn func(context.Context) error) TaskResult {
	res := TaskResult{Name: name}
	start := time.Now()

	op := func() error {
		res.Attempts++
		return fn(ctx)
	}
	var b backoff.BackOff = backoff.NewConstantBackOff(p.opts.RetryDelay)
	b = backoff.WithMaxRetries(b, uint64(retries))
	b = backoff.WithContext(b, ctx)

	err := backoff.RetryNotify(op, b, func(err error, wait time.Duration) {
		logger.Warn("task failed, retrying",
			zap.String("task", name),
			zap.Int("attempt", res.Attempts),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
	res.Duration = time.Since(start)
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		logger.Error("task failed", zap.String("task", name), zap.Int("attempts", res.Attempts), zap.Error(err))
	} else {
		res.Status = StatusSuccess
		logger.Info("task succeeded", zap.String("task", name), zap.Duration("duration", res.Duration))
	}
	p.metrics.observeTask(res)
	return res
}

func (p *Pipeline) checkDatabase(ctx context.Context, r *run) error {
	n, err := p.deps.DB.CountComponents(ctx)
	if err != nil {
		return fmt.Errorf("database unavailable: %w", err)
	}
	r.report.Rows["database"] = n
	return nil
}

func (p *Pipeline) extract(ctx context.Context, r *run) error {
	records, err := export.NewExporter(p.deps.Components, p.deps.Placements, p.deps.Uploader, p.logger).Load(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return export.ErrNoData
	}
	body, err := export.EncodeJSON(records)
	if err != nil {
		return err
	}
	if err := os.WriteFile(r.rawPath, body, 0o600); err != nil {
		return fmt.Errorf("error writing %s: %w", r.rawPath, err)
	}
	r.report.Rows["extracted"] = len(records)
	return nil
}

func (p *Pipeline) transform(_ context.Context, r *run) error {
	body, err := os.ReadFile(r.rawPath)
	if err != nil {
		return fmt.Errorf("error reading %s: %w", r.rawPath, err)
	}
	var records []export.Record
	if err := json.Unmarshal(body, &records); err != nil {
		return fmt.Errorf("error decoding %s: %w", r.rawPath, err)
	}

	rows := Transform(records)
	if err := WriteParquetFile(r.transformedPath, rows); err != nil {
		return fmt.Errorf("error writing %s: %w", r.transformedPath, err)
	}
	p.logger.Info("components transformed", zap.Int("in", len(records)), zap.Int("out", len(rows)))
	r.report.Rows["transformed"] = len(rows)
	return nil
}

func (p *Pipeline) load(ctx context.Context, r *run) error {
	rows, err := ReadParquetFile(r.transformedPath)
	if err != nil {
		return fmt.Errorf("error reading %s: %w", r.transformedPath, err)
	}
	if len(rows) == 0 {
		return export.ErrNoData
	}
	body, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}

	now := p.now()
	up := p.deps.Uploader.Put(ctx, s3store.PutInput{
		Key:         lake.ComponentsJSONKey("", now),
		Body:        body,
		ContentType: "application/json",
		Metadata:    export.Metadata("json", len(rows), now),
	})
	if up.Err != nil {
		return up.Err
	}
	r.report.LoadedKey = up.Key
	r.report.Rows["loaded"] = len(rows)
	return nil
}

func (p *Pipeline) generateURLs(ctx context.Context, r *run) error {
	ids, err := p.deps.DB.ListComponentIDs(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		p.logger.Warn("no components for image URLs")
		return nil
	}
	hours := int(p.opts.URLExpiry / time.Hour)
	batch := presign.NewService(p.deps.Signer, p.logger).Components(ctx, ids, hours)
	r.report.Rows["urls_generated"] = len(batch.Successful)
	r.report.Rows["urls_failed"] = len(batch.Failed)
	return nil
}

func (p *Pipeline) cleanup(logger *zap.Logger, r *run) {
	for _, path := range []string{r.rawPath, r.transformedPath} {
		err := os.Remove(path)
		switch {
		case err == nil:
			logger.Debug("temporary file removed", zap.String("path", path))
		case errors.Is(err, os.ErrNotExist):
		default:
			logger.Warn("could not remove temporary file", zap.String("path", path), zap.Error(err))
		}
	}
}

func (p *Pipeline) successAlert(r *run) error {
	_, err := fmt.Fprintf(p.opts.Out,
		"Volt pipeline %s succeeded: %d extracted, %d transformed, %d loaded (%s), %d image URLs\n",
		r.report.RunID, r.report.Rows["extracted"], r.report.Rows["transformed"], r.report.Rows["loaded"],
		r.report.LoadedKey, r.report.Rows["urls_generated"],
	)
	return err
}

func (p *Pipeline) failureAlert(r *run, cause error) error {
	_, err := fmt.Fprintf(p.opts.Out, "Volt pipeline %s failed: %v\n", r.report.RunID, cause)
	return err
}
