package parquetread

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
)

const readBatchSize = 256

// Reader streams rows of a flat Parquet file as strings, one cell per leaf
// column. Null cells become "".
type Reader struct {
	file    *os.File
	pf      *parquet.File
	headers []string
}

// Open opens a Parquet file and validates that its schema is flat.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat parquet file: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	if err := ValidateSchema(pf.Schema()); err != nil {
		f.Close()
		return nil, err
	}

	cols := pf.Schema().Columns()
	headers := make([]string, len(cols))
	for i, path := range cols {
		headers[i] = strings.Join(path, ".")
	}
	return &Reader{file: f, pf: pf, headers: headers}, nil
}

// Headers returns the leaf column names in column-index order.
func (r *Reader) Headers() []string {
	return r.headers
}

// NumRows returns the total number of rows in the Parquet file.
func (r *Reader) NumRows() int64 {
	return r.pf.NumRows()
}

// ReadAll reads every row group and returns the rows as strings.
func (r *Reader) ReadAll() ([][]string, error) {
	out := make([][]string, 0, r.NumRows())
	buf := make([]parquet.Row, readBatchSize)

	for gi, rg := range r.pf.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for i := 0; i < n; i++ {
				out = append(out, r.toStrings(buf[i]))
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("read row group %d: %w", gi, err)
			}
		}
		if err := rows.Close(); err != nil {
			return nil, fmt.Errorf("close row group %d: %w", gi, err)
		}
	}
	return out, nil
}

func (r *Reader) toStrings(row parquet.Row) []string {
	cells := make([]string, len(r.headers))
	for _, v := range row {
		col := v.Column()
		if col < 0 || col >= len(cells) || v.IsNull() {
			continue
		}
		cells[col] = valueString(v)
	}
	return cells
}

func valueString(v parquet.Value) string {
	switch v.Kind() {
	case parquet.Boolean:
		return strconv.FormatBool(v.Boolean())
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'f', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64)
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}

// Close releases all resources.
func (r *Reader) Close() error {
	return r.file.Close()
}
