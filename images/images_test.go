package images

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"volt-data/s3store"
)

type fakeUploader struct {
	puts   []s3store.PutInput
	failID string
}

func (f *fakeUploader) Put(_ context.Context, in s3store.PutInput) s3store.UploadResult {
	f.puts = append(f.puts, in)
	if in.Metadata["component_id"] == f.failID {
		return s3store.UploadResult{Key: in.Key, Err: errors.New("access denied")}
	}
	return s3store.UploadResult{Success: true, Key: in.Key, URL: "s3://volt-data-lake/" + in.Key}
}

func writeImages(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("jpeg:"+n), 0o644))
	}
	return dir
}

func TestFind(t *testing.T) {
	dir := writeImages(t, "mcb_b16.jpg", "isolator.front.jpg", "notes.txt", "rcd.png")

	imgs, err := Find(dir)
	require.NoError(t, err)
	require.Len(t, imgs, 2)
	assert.Equal(t, "isolator", imgs[0].ComponentID)
	assert.Equal(t, "isolator.front.jpg", imgs[0].Filename)
	assert.Equal(t, "mcb_b16", imgs[1].ComponentID)
	assert.Equal(t, int64(len("jpeg:mcb_b16.jpg")), imgs[1].Size)

	imgs, err = Find(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, imgs)
}

func TestContentTypeAndTagging(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentType("a.jpg"))
	assert.Equal(t, "image/png", ContentType("a.png"))
	assert.Equal(t, "image/jpeg", ContentType("no-extension"))
	assert.Equal(t, "component_id=mcb_b16&source=volt_migration", Tagging("mcb_b16"))
}

func TestMigrateBatches(t *testing.T) {
	names := []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg"}
	dir := writeImages(t, names...)
	imgs, err := Find(dir)
	require.NoError(t, err)

	up := &fakeUploader{failID: "c"}
	m := NewMigrator(up, 2, zaptest.NewLogger(t))
	m.now = func() time.Time { return time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC) }

	var batches [][3]int
	m.OnBatch = func(batch, total, size int) { batches = append(batches, [3]int{batch, total, size}) }
	var seen int
	m.OnResult = func(Result) { seen++ }

	results := m.Migrate(context.Background(), imgs)
	assert.Equal(t, [][3]int{{1, 3, 2}, {2, 3, 2}, {3, 3, 1}}, batches)
	assert.Equal(t, 5, seen)
	assert.Equal(t, 5, results.TotalProcessed)
	assert.Len(t, results.Successful, 4)
	require.Len(t, results.Failed, 1)
	assert.Equal(t, "c", results.Failed[0].ComponentID)

	first := up.puts[0]
	assert.Equal(t, "images/components/a/a.jpg", first.Key)
	assert.Equal(t, "image/jpeg", first.ContentType)
	assert.Equal(t, "component_id=a&source=volt_migration", first.Tagging)
	assert.Equal(t, "volt_local_storage", first.Metadata["uploaded_from"])
	assert.Equal(t, "a.jpg", first.Metadata["original_filename"])
	assert.Equal(t, "2024-01-15T10:00:00Z", first.Metadata["upload_timestamp"])
	assert.Equal(t, "10", first.Metadata["file_size"])
}

func TestMigrateStopsOnCancel(t *testing.T) {
	dir := writeImages(t, "a.jpg", "b.jpg")
	imgs, err := Find(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := NewMigrator(&fakeUploader{}, 0, nil).Migrate(ctx, imgs)
	assert.Zero(t, results.TotalProcessed)
}

func TestSuccessRate(t *testing.T) {
	assert.Equal(t, "0%", SuccessRate(0, 0))
	assert.Equal(t, "100.0%", SuccessRate(3, 3))
	assert.Equal(t, "66.7%", SuccessRate(2, 3))
}

func TestReport(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	results := Results{
		Successful:     []Result{{ComponentID: "a"}, {ComponentID: "b"}},
		Failed:         []Result{{ComponentID: "c", Err: errors.New("x")}},
		TotalProcessed: 3,
	}
	report := NewReport(results, now)
	assert.Equal(t, "66.7%", report.SuccessRate)
	assert.Equal(t, []string{"a", "b"}, report.SuccessfulComponents)
	assert.Equal(t, []string{"c"}, report.FailedComponents)

	dir := t.TempDir()
	p, err := SaveReport(dir, report, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "migration_report_20240115_100000.json"), p)

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(3), decoded["total_processed"])
	assert.Equal(t, "66.7%", decoded["success_rate"])

	empty := NewReport(Results{}, now)
	assert.Equal(t, "0%", empty.SuccessRate)
	assert.NotNil(t, empty.FailedComponents)
}
