package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"volt-data/models"
	"volt-data/s3store"
)

type fakeComponents struct {
	components []*models.Component
	err        error
}

func (f fakeComponents) ListComponents(context.Context) ([]*models.Component, error) {
	return f.components, f.err
}

type fakePlacements []models.Placement

func (f fakePlacements) ListPlacements(context.Context) ([]models.Placement, error) {
	return f, nil
}

type recordingUploader struct {
	puts []s3store.PutInput
	err  error
}

func (r *recordingUploader) Put(_ context.Context, in s3store.PutInput) s3store.UploadResult {
	r.puts = append(r.puts, in)
	if r.err != nil {
		return s3store.UploadResult{Key: in.Key, Err: r.err}
	}
	return s3store.UploadResult{Success: true, Key: in.Key, URL: "s3://volt-data-lake/" + in.Key}
}

func testComponents() []*models.Component {
	return []*models.Component{
		{ID: "mcb_b16", Name: "B16A", Fields: 1, Description: "Wyłącznik, nadprądowy", Price: models.NewPrice(32)},
		{ID: "cable_yky", Name: "Kabel YKY", Fields: 0},
	}
}

func fixedExporter(t *testing.T, up *recordingUploader) *Exporter {
	e := NewExporter(
		fakeComponents{components: testComponents()},
		fakePlacements{{ComponentID: "mcb_b16", CategoryID: "overcurrent_protection", SubcategoryID: "mcb_b"}},
		up,
		zaptest.NewLogger(t),
	)
	e.now = func() time.Time { return time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC) }
	return e
}

func TestRecords(t *testing.T) {
	records := Records(testComponents(), []models.Placement{{ComponentID: "mcb_b16", CategoryID: "overcurrent_protection", SubcategoryID: "mcb_b"}})
	require.Len(t, records, 2)

	require.NotNil(t, records[0].Price)
	assert.Equal(t, 32.0, *records[0].Price)
	assert.Equal(t, "overcurrent_protection", records[0].Category)
	assert.Equal(t, "mcb_b", records[0].Subcategory)

	assert.Nil(t, records[1].Price)
	assert.Empty(t, records[1].Category)
}

func TestEncodeJSONKeepsNullPrice(t *testing.T) {
	body, err := EncodeJSON(Records(testComponents(), nil))
	require.NoError(t, err)

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Len(t, decoded, 2)
	assert.Nil(t, decoded[1]["price"])
	assert.True(t, strings.Contains(string(body), "\n  "), "output is indented")
}

func TestEncodeCSV(t *testing.T) {
	body, err := EncodeCSV(Records(testComponents(), nil))
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(body))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "Wyłącznik, nadprądowy", rows[1][3])
	assert.Equal(t, "32.00", rows[1][4])
	assert.Equal(t, "", rows[2][4])
}

func TestExportJSON(t *testing.T) {
	up := &recordingUploader{}
	e := fixedExporter(t, up)
	records, err := e.Load(context.Background())
	require.NoError(t, err)

	res, err := e.JSON(context.Background(), records, "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, "raw/components/dt=2024-01-01/components.json", res.Key)
	assert.Equal(t, 2, res.Records)

	require.Len(t, up.puts, 1)
	put := up.puts[0]
	assert.Equal(t, "application/json", put.ContentType)
	assert.Equal(t, map[string]string{
		"source":           "volt_postgresql",
		"table":            "components",
		"record_count":     "2",
		"export_timestamp": "2024-01-15T10:00:00Z",
		"format":           "json",
	}, put.Metadata)

	res, err = e.JSON(context.Background(), records, "")
	require.NoError(t, err)
	assert.Equal(t, "raw/components/components_20240115_100000.json", res.Key)
}

func TestExportCSV(t *testing.T) {
	up := &recordingUploader{}
	e := fixedExporter(t, up)
	records, err := e.Load(context.Background())
	require.NoError(t, err)

	res, err := e.CSV(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, "raw/components/dt=2024-01-15/components.csv", res.Key)
	assert.Equal(t, "text/csv", up.puts[0].ContentType)
	assert.Equal(t, "csv", up.puts[0].Metadata["format"])
}

func TestExportErrors(t *testing.T) {
	up := &recordingUploader{}
	e := fixedExporter(t, up)

	_, err := e.JSON(context.Background(), nil, "")
	assert.ErrorIs(t, err, ErrNoData)
	assert.Empty(t, up.puts)

	up.err = errors.New("access denied")
	records, err := e.Load(context.Background())
	require.NoError(t, err)
	_, err = e.CSV(context.Background(), records)
	assert.EqualError(t, err, "access denied")

	e = NewExporter(fakeComponents{err: errors.New("db down")}, nil, up, nil)
	_, err = e.Load(context.Background())
	assert.ErrorContains(t, err, "db down")
}
