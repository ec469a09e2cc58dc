package parquetread

import (
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// ValidateSchema checks that the Parquet schema is flat (no nested groups or
// repeated columns) and has at least one column, so every row maps onto a
// single header line.
func ValidateSchema(schema *parquet.Schema) error {
	fields := schema.Fields()
	if len(fields) == 0 {
		return fmt.Errorf("parquet schema has no columns")
	}

	var nested []string
	for _, field := range fields {
		if !field.Leaf() || field.Repeated() {
			nested = append(nested, field.Name())
		}
	}
	if len(nested) > 0 {
		return fmt.Errorf("parquet schema must be flat; nested or repeated columns: %s",
			strings.Join(nested, ", "))
	}
	return nil
}
