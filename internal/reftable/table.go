package reftable

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/gyeh/ripsfix/internal/normalize"
	"github.com/gyeh/ripsfix/internal/parquetread"
)

// Table is a tabular file read into memory: one header row plus data rows.
// Rows may be shorter than Headers; missing cells read as "".
type Table struct {
	Source  string
	Headers []string
	Rows    [][]string
}

// Cell returns row i, column col, or "" when the row is short.
func (t *Table) Cell(i, col int) string {
	r := t.Rows[i]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// Options controls how delimited text files are read. Delimiter and
// Encoding are never inferred.
type Options struct {
	Delimiter rune
	Encoding  string
	Sheet     string
}

// Open reads a reference table, dispatching on the file extension:
// .csv/.txt (delimited text), .xlsx (first or named sheet), .parquet.
func Open(path string, opts Options) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt", ".tsv":
		return readDelimited(path, opts)
	case ".xlsx", ".xlsm":
		return readWorkbook(path, opts.Sheet)
	case ".parquet":
		return readParquet(path)
	default:
		return nil, fmt.Errorf("unsupported reference file type %q", filepath.Ext(path))
	}
}

func readDelimited(path string, opts Options) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	src, err := decodingReader(file, opts.Encoding)
	if err != nil {
		return nil, err
	}
	bufReader := bufio.NewReaderSize(src, 256*1024)

	// Skip UTF-8 BOM if present
	bom, err := bufReader.Peek(3)
	if err == nil && len(bom) >= 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		bufReader.Discard(3)
	}

	reader := csv.NewReader(bufReader)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: empty file", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read header row: %w", err)
	}

	t := &Table{Source: path, Headers: cleanHeaders(headers)}
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+2, err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func decodingReader(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		return r, nil
	case "latin-1", "latin1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder().Reader(r), nil
	case "cp1252", "windows-1252":
		return charmap.Windows1252.NewDecoder().Reader(r), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}

func readWorkbook(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%s: workbook has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: sheet %q is empty", path, sheet)
	}
	return &Table{Source: path, Headers: cleanHeaders(rows[0]), Rows: rows[1:]}, nil
}

func readParquet(path string) (*Table, error) {
	r, err := parquetread.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	return &Table{Source: path, Headers: cleanHeaders(r.Headers()), Rows: rows}, nil
}

func cleanHeaders(raw []string) []string {
	out := make([]string, len(raw))
	for i, h := range raw {
		out[i] = normalize.CleanToken(h)
	}
	return out
}
