package convert

import (
	"bytes"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "id,name,price,fields\n" +
	"1,B16A,32.5,1\n" +
	"2,,,\n" +
	"3,Kabel YKY,10,0\n"

type convertedRow struct {
	ID     *int64   `parquet:"id"`
	Name   *string  `parquet:"name"`
	Price  *float64 `parquet:"price"`
	Fields *int64   `parquet:"fields"`
}

func TestReadCSVInfersKinds(t *testing.T) {
	table, err := ReadCSV([]byte(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, []Column{
		{Name: "id", Kind: KindInt64},
		{Name: "name", Kind: KindString},
		{Name: "price", Kind: KindDouble},
		{Name: "fields", Kind: KindInt64},
	}, table.Columns)
	assert.Len(t, table.Rows, 3)
}

func TestReadCSVStripsByteOrderMark(t *testing.T) {
	for _, data := range []string{"\xef\xbb\xbfid,n\n1,2\n", "\xef\xbb\xbf\"id\",n\n1,2\n"} {
		table, err := ReadCSV([]byte(data))
		require.NoError(t, err, "%q", data)
		assert.Equal(t, []Column{
			{Name: "id", Kind: KindInt64},
			{Name: "n", Kind: KindInt64},
		}, table.Columns)
	}
}

func TestInferKind(t *testing.T) {
	rows := [][]string{{"1", "1.5", "x", "", "7"}, {"2", "2", "3", "", "a1"}}
	assert.Equal(t, KindInt64, inferKind(rows, 0))
	assert.Equal(t, KindDouble, inferKind(rows, 1))
	assert.Equal(t, KindString, inferKind(rows, 2))
	assert.Equal(t, KindDouble, inferKind(rows, 3), "all-null column")
	assert.Equal(t, KindString, inferKind(rows, 4))
}

func TestColumnNames(t *testing.T) {
	assert.Equal(t,
		[]string{"a", "a.1", "Unnamed: 2", "a.2", "b"},
		columnNames([]string{"a", "a", "", "a", "b"}),
	)
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(nil)
	assert.ErrorIs(t, err, ErrEmptyCSV)

	_, err = ReadCSV([]byte("id,name\n"))
	assert.ErrorIs(t, err, ErrEmptyCSV)

	_, err = ReadCSV([]byte("id,name\n1,a,extra\n"))
	assert.ErrorContains(t, err, "line 2")

	table, err := ReadCSV([]byte("id,name\n1\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", ""}, table.Rows[0], "short rows are padded")
}

func TestCSVToParquet(t *testing.T) {
	res, err := CSVToParquet([]byte(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, 4, res.Columns)

	f, err := parquet.OpenFile(bytes.NewReader(res.Parquet), int64(len(res.Parquet)))
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.NumRows())

	kinds := map[string]parquet.Kind{}
	for _, field := range f.Schema().Fields() {
		assert.True(t, field.Optional(), field.Name())
		kinds[field.Name()] = field.Type().Kind()
	}
	assert.Equal(t, map[string]parquet.Kind{
		"id":     parquet.Int64,
		"name":   parquet.ByteArray,
		"price":  parquet.Double,
		"fields": parquet.Int64,
	}, kinds)

	rows, err := parquet.Read[convertedRow](bytes.NewReader(res.Parquet), int64(len(res.Parquet)))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NotNil(t, rows[0].ID)
	assert.Equal(t, int64(1), *rows[0].ID)
	require.NotNil(t, rows[0].Name)
	assert.Equal(t, "B16A", *rows[0].Name)
	require.NotNil(t, rows[0].Price)
	assert.Equal(t, 32.5, *rows[0].Price)

	assert.Nil(t, rows[1].Name)
	assert.Nil(t, rows[1].Price)
	assert.Nil(t, rows[1].Fields)

	require.NotNil(t, rows[2].Fields)
	assert.Equal(t, int64(0), *rows[2].Fields)
}
