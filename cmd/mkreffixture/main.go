// mkreffixture converts a reference table (CSV, XLSX or Parquet) into the
// Parquet layout reftable reads, optionally keeping only the first N rows.
// Usage: go run ./cmd/mkreffixture --in testdata/reference.csv --out testdata/reference.parquet --rows 500
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	goparquet "github.com/parquet-go/parquet-go"

	"github.com/gyeh/ripsfix/internal/model"
	"github.com/gyeh/ripsfix/internal/normalize"
	"github.com/gyeh/ripsfix/internal/reftable"
)

func main() {
	in := flag.String("in", "testdata/reference.csv", "input reference table")
	out := flag.String("out", "testdata/reference.parquet", "output parquet")
	maxRows := flag.Int("rows", 0, "max rows to output (0 = all)")
	delimiter := flag.String("delimiter", ",", "field delimiter for delimited input")
	encoding := flag.String("encoding", "utf-8", "input encoding: utf-8, latin-1 or cp1252")
	dropBlank := flag.Bool("drop-blank", false, "skip rows without a patient number or diagnosis")
	flag.Parse()

	delim := []rune(*delimiter)
	if len(delim) != 1 {
		fmt.Fprintf(os.Stderr, "--delimiter must be a single character, got %q\n", *delimiter)
		os.Exit(1)
	}
	opts := reftable.Options{Delimiter: delim[0], Encoding: *encoding}
	rows, mapping, err := reftable.LoadReference(*in, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load reference: %v\n", err)
		os.Exit(1)
	}
	for role := reftable.RolePatientDocType; role <= reftable.RoleProfessionalDocNumber; role++ {
		fmt.Printf("%-30s <- %q\n", role, mapping.Header[role])
	}

	outRows := make([]model.ReferenceParquetRow, 0, len(rows))
	skipped := 0
	for _, r := range rows {
		if *maxRows > 0 && len(outRows) >= *maxRows {
			break
		}
		if *dropBlank && (normalize.IsSentinel(r.PatientDocNumber) || normalize.IsSentinel(r.DiagnosisCode)) {
			skipped++
			continue
		}
		outRows = append(outRows, model.ReferenceParquetRow{
			PatientDocType:        strings.TrimSpace(r.PatientDocType),
			PatientDocNumber:      strings.TrimSpace(r.PatientDocNumber),
			DiagnosisCode:         strings.TrimSpace(r.DiagnosisCode),
			ProfessionalDocType:   optional(r.ProfessionalDocType),
			ProfessionalDocNumber: optional(r.ProfessionalDocNumber),
		})
	}

	f, err := os.Create(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create output: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	w := goparquet.NewGenericWriter[model.ReferenceParquetRow](f)
	if _, err := w.Write(outRows); err != nil {
		fmt.Fprintf(os.Stderr, "write rows: %v\n", err)
		os.Exit(1)
	}
	if err := w.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close writer: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d rows to %s (%d read, %d skipped)\n", len(outRows), *out, len(rows), skipped)
}

func optional(s string) *string {
	return normalize.Some(s).Clean().Ptr()
}
