package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"volt-data/export"
	"volt-data/models"
	"volt-data/s3store"
)

type fakeDB struct {
	components []*models.Component
	countErrs  int // CountComponents fails this many times first
	calls      int
}

func (f *fakeDB) CountComponents(context.Context) (int, error) {
	f.calls++
	if f.calls <= f.countErrs {
		return 0, errors.New("connection refused")
	}
	return len(f.components), nil
}

func (f *fakeDB) ListComponentIDs(context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.components))
	for _, c := range f.components {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (f *fakeDB) ListComponents(context.Context) ([]*models.Component, error) {
	return f.components, nil
}

type memoryUploader struct {
	puts []s3store.PutInput
}

func (m *memoryUploader) Put(_ context.Context, in s3store.PutInput) s3store.UploadResult {
	m.puts = append(m.puts, in)
	return s3store.UploadResult{Success: true, Key: in.Key, URL: "s3://volt-data-lake/" + in.Key}
}

type fakeSigner struct {
	ttls []time.Duration
}

func (f *fakeSigner) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	f.ttls = append(f.ttls, ttl)
	return "https://example.test/" + key, nil
}

func testComponents() []*models.Component {
	return []*models.Component{
		{ID: "mcb_b16", Name: "Wyłącznik B16A!", Fields: 1, Price: models.NewPrice(32)},
		{ID: "rcd", Name: "RCD 40A/30mA", Fields: 2, Price: models.NewPrice(250)},
		{ID: "cable", Name: "Kabel", Fields: 0},
		{ID: "free", Name: "Gratis", Fields: 0, Price: models.NewPrice(0)},
		{ID: "lux", Name: "Rozdzielnica", Fields: 0, Price: models.NewPrice(12000)},
	}
}

func TestPriceCategory(t *testing.T) {
	tests := []struct {
		price string
		want  string
	}{
		{"0", ""},
		{"-5", ""},
		{"0.01", PriceBudget},
		{"100", PriceBudget},
		{"100.01", PriceStandard},
		{"500", PriceStandard},
		{"999.99", PricePremium},
		{"1000", PricePremium},
		{"1000.01", PriceLuxury},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PriceCategory(decimal.RequireFromString(tt.price)), tt.price)
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "wyłącznik b16a", NormalizeName("Wyłącznik B16A!"))
	assert.Equal(t, "rcd 40a30ma", NormalizeName("RCD 40A/30mA"))
	assert.Equal(t, "szyna_din", NormalizeName("Szyna_DIN"))
}

func TestTransformFilters(t *testing.T) {
	rows := Transform(export.Records(testComponents(), nil))
	require.Len(t, rows, 2)
	assert.Equal(t, "mcb_b16", rows[0].ID)
	assert.Equal(t, PriceBudget, rows[0].PriceCategory)
	assert.Equal(t, "wyłącznik b16a", rows[0].NameNormalized)
	assert.Equal(t, PriceStandard, rows[1].PriceCategory)
}

func TestParquetFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.parquet")
	rows := Transform(export.Records(testComponents(), nil))
	require.NoError(t, WriteParquetFile(path, rows))

	got, err := ReadParquetFile(path)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func newTestPipeline(t *testing.T, db *fakeDB, up *memoryUploader, signer *fakeSigner, out *bytes.Buffer) *Pipeline {
	p := New(Deps{DB: db, Components: db, Uploader: up, Signer: signer}, Options{
		WorkDir:   t.TempDir(),
		Retries:   2,
		URLExpiry: 168 * time.Hour,
		Out:       out,
	}, zaptest.NewLogger(t))
	p.now = func() time.Time { return time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC) }
	return p
}

func taskStatuses(rep *Report) map[string]Status {
	out := map[string]Status{}
	for _, task := range rep.Tasks {
		out[task.Name] = task.Status
	}
	return out
}

func TestRunSucceeds(t *testing.T) {
	db := &fakeDB{components: testComponents()}
	up := &memoryUploader{}
	signer := &fakeSigner{}
	var out bytes.Buffer
	p := newTestPipeline(t, db, up, signer, &out)

	rep, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.Succeeded)
	assert.NotEmpty(t, rep.RunID)

	assert.Equal(t, map[string]Status{
		TaskCheckDB:      StatusSuccess,
		TaskExtract:      StatusSuccess,
		TaskTransform:    StatusSuccess,
		TaskLoad:         StatusSuccess,
		TaskGenerateURLs: StatusSuccess,
		TaskCleanup:      StatusSuccess,
		TaskSuccessAlert: StatusSuccess,
	}, taskStatuses(rep))
	assert.Equal(t, map[string]int{
		"database":       5,
		"extracted":      5,
		"transformed":    2,
		"loaded":         2,
		"urls_generated": 5,
		"urls_failed":    0,
	}, rep.Rows)

	require.Len(t, up.puts, 1)
	assert.Equal(t, "raw/components/components_20240115_100000.json", up.puts[0].Key)
	assert.Equal(t, "2", up.puts[0].Metadata["record_count"])
	var loaded []Transformed
	require.NoError(t, json.Unmarshal(up.puts[0].Body, &loaded))
	assert.Len(t, loaded, 2)

	require.Len(t, signer.ttls, 5)
	assert.Equal(t, 168*time.Hour, signer.ttls[0])

	entries, err := os.ReadDir(p.opts.WorkDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary files are removed")

	assert.Contains(t, out.String(), "succeeded")
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics().RunSucceeded))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.Metrics().Rows.WithLabelValues("transformed")))
}

func TestRunRetriesTask(t *testing.T) {
	db := &fakeDB{components: testComponents(), countErrs: 2}
	p := newTestPipeline(t, db, &memoryUploader{}, &fakeSigner{}, &bytes.Buffer{})

	rep, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Tasks[0].Attempts)
	assert.Equal(t, 3.0, testutil.ToFloat64(p.Metrics().TaskAttempts.WithLabelValues(TaskCheckDB)))
}

func TestRunFailureSkipsRemainingTasks(t *testing.T) {
	db := &fakeDB{components: testComponents(), countErrs: 10}
	up := &memoryUploader{}
	var out bytes.Buffer
	p := newTestPipeline(t, db, up, &fakeSigner{}, &out)

	rep, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), TaskCheckDB)
	assert.False(t, rep.Succeeded)
	assert.Equal(t, 3, db.calls, "one attempt plus two retries")

	statuses := taskStatuses(rep)
	assert.Equal(t, StatusFailed, statuses[TaskCheckDB])
	assert.Equal(t, StatusSkipped, statuses[TaskExtract])
	assert.Equal(t, StatusSkipped, statuses[TaskGenerateURLs])
	assert.Equal(t, StatusSuccess, statuses[TaskCleanup])
	assert.Equal(t, StatusSuccess, statuses[TaskFailureAlert])
	assert.NotContains(t, statuses, TaskSuccessAlert)

	assert.Empty(t, up.puts)
	assert.True(t, strings.Contains(out.String(), "failed"))
	assert.Equal(t, 0.0, testutil.ToFloat64(p.Metrics().RunSucceeded))
}

func TestRunFailsOnEmptyDatabase(t *testing.T) {
	p := newTestPipeline(t, &fakeDB{}, &memoryUploader{}, &fakeSigner{}, &bytes.Buffer{})
	p.opts.Retries = 0

	rep, err := p.Run(context.Background())
	assert.ErrorIs(t, err, export.ErrNoData)
	assert.Equal(t, StatusFailed, taskStatuses(rep)[TaskExtract])
}

func TestWriteTextfile(t *testing.T) {
	p := newTestPipeline(t, &fakeDB{components: testComponents()}, &memoryUploader{}, &fakeSigner{}, &bytes.Buffer{})
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "volt_pipeline.prom")
	require.NoError(t, p.Metrics().WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "volt_pipeline_last_run_success 1")
	assert.Contains(t, string(data), `volt_pipeline_task_success{task="load_to_s3"} 1`)
}
