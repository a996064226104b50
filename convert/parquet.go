// Package convert turns CSV files into Parquet. Column types are inferred
// from the data and empty cells become nulls.
package convert

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// ErrEmptyCSV is returned for input without a header or without data rows.
var ErrEmptyCSV = errors.New("CSV file is empty")

// Kind is the inferred type of a column.
type Kind int

const (
	KindInt64 Kind = iota
	KindDouble
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInt64:
		return "int64"
	case KindDouble:
		return "double"
	default:
		return "string"
	}
}

// Column is one inferred CSV column.
type Column struct {
	Name string
	Kind Kind
}

// Table is a parsed CSV file. Cells are kept as text; empty cells are null.
type Table struct {
	Columns []Column
	Rows    [][]string
}

var utf8BOM = []byte("\xef\xbb\xbf")

// ReadCSV parses data with a header row and infers column types. Short rows
// are padded with nulls; rows longer than the header are an error. A leading
// UTF-8 byte order mark is ignored.
func ReadCSV(data []byte) (*Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, fmt.Errorf("error reading CSV header: %w", err)
	}

	names := columnNames(header)
	t := &Table{}
	line := 1
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		line++
		if len(rec) > len(names) {
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d", line, len(names), len(rec))
		}
		for len(rec) < len(names) {
			rec = append(rec, "")
		}
		t.Rows = append(t.Rows, rec)
	}
	if len(t.Rows) == 0 {
		return nil, ErrEmptyCSV
	}

	for i, name := range names {
		t.Columns = append(t.Columns, Column{Name: name, Kind: inferKind(t.Rows, i)})
	}
	return t, nil
}

// columnNames names blank headers "Unnamed: <i>" and suffixes duplicates
// with ".1", ".2", ...
func columnNames(header []string) []string {
	used := make(map[string]bool, len(header))
	dups := make(map[string]int)
	names := make([]string, len(header))
	for i, h := range header {
		name := h
		if strings.TrimSpace(name) == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		base := name
		for used[name] {
			dups[base]++
			name = base + "." + strconv.Itoa(dups[base])
		}
		used[name] = true
		names[i] = name
	}
	return names
}

// inferKind picks the narrowest type that parses every non-empty cell of
// column col. A column without values is double, like an all-NaN column.
func inferKind(rows [][]string, col int) Kind {
	kind := KindInt64
	for _, row := range rows {
		if row[col] == "" {
			continue
		}
		cell := strings.TrimSpace(row[col])
		if kind == KindInt64 {
			if _, err := strconv.ParseInt(cell, 10, 64); err == nil {
				continue
			}
			kind = KindDouble
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return KindString
		}
	}
	if kind == KindInt64 && allEmpty(rows, col) {
		return KindDouble
	}
	return kind
}

func allEmpty(rows [][]string, col int) bool {
	for _, row := range rows {
		if row[col] != "" {
			return false
		}
	}
	return true
}

// Schema builds the Parquet schema of t. Every column is optional.
func (t *Table) Schema() *parquet.Schema {
	group := parquet.Group{}
	for _, c := range t.Columns {
		var node parquet.Node
		switch c.Kind {
		case KindInt64:
			node = parquet.Int(64)
		case KindDouble:
			node = parquet.Leaf(parquet.DoubleType)
		default:
			node = parquet.String()
		}
		group[c.Name] = parquet.Optional(node)
	}
	return parquet.NewSchema("csv", group)
}

// WriteParquet encodes t as a Parquet file.
func (t *Table) WriteParquet(w io.Writer) error {
	schema := t.Schema()

	// Leaf order in the schema is not the CSV order.
	index := make(map[string]int, len(t.Columns))
	for i, path := range schema.Columns() {
		index[path[0]] = i
	}

	rows := make([]parquet.Row, 0, len(t.Rows))
	for n, rec := range t.Rows {
		row := make(parquet.Row, len(t.Columns))
		for i, c := range t.Columns {
			col := index[c.Name]
			v, err := cellValue(rec[i], c.Kind)
			if err != nil {
				return fmt.Errorf("row %d column %q: %w", n+1, c.Name, err)
			}
			row[col] = v.Level(0, definitionLevel(v), col)
		}
		rows = append(rows, row)
	}

	pw := parquet.NewGenericWriter[any](w, schema)
	if _, err := pw.WriteRows(rows); err != nil {
		return fmt.Errorf("error writing parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("error closing parquet writer: %w", err)
	}
	return nil
}

func definitionLevel(v parquet.Value) int {
	if v.IsNull() {
		return 0
	}
	return 1
}

func cellValue(cell string, kind Kind) (parquet.Value, error) {
	if cell == "" {
		return parquet.Value{}, nil
	}
	switch kind {
	case KindInt64:
		n, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 64)
		if err != nil {
			return parquet.Value{}, err
		}
		return parquet.Int64Value(n), nil
	case KindDouble:
		f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil {
			return parquet.Value{}, err
		}
		return parquet.DoubleValue(f), nil
	default:
		return parquet.ByteArrayValue([]byte(cell)), nil
	}
}

// Result describes a finished conversion.
type Result struct {
	Parquet []byte
	Rows    int
	Columns int
}

// CSVToParquet converts one CSV document.
func CSVToParquet(data []byte) (Result, error) {
	t, err := ReadCSV(data)
	if err != nil {
		return Result{}, err
	}
	var buf bytes.Buffer
	if err := t.WriteParquet(&buf); err != nil {
		return Result{}, err
	}
	return Result{Parquet: buf.Bytes(), Rows: len(t.Rows), Columns: len(t.Columns)}, nil
}
