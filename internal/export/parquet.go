package export

import (
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/sqlpeek/sqlpeek/internal/query"
)

// writeParquet stores every column as an optional string so columns that mix
// cell kinds survive; null cells are written as parquet nulls. Columns keep
// the header order.
func writeParquet(w io.Writer, header []string, rows [][]query.Cell) error {
	names := make([]string, len(header))
	for i, name := range header {
		// The parquet tag is comma separated.
		name = strings.ReplaceAll(name, ",", "_")
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		names[i] = name
	}
	names = query.UniqueColumns(names)

	schema := parquet.SchemaOf(reflect.New(rowType(names)).Elem().Interface())

	leaves := make([]int, len(names))
	for i, name := range names {
		leaf, ok := schema.Lookup(name)
		if !ok {
			return fmt.Errorf("column %q missing from schema", name)
		}
		leaves[i] = leaf.ColumnIndex
	}

	writer := parquet.NewGenericWriter[any](w, schema)
	batch := make([]parquet.Row, 0, len(rows))
	for _, cells := range rows {
		row := make(parquet.Row, len(names))
		for i, cell := range cells {
			if cell.IsNull() {
				row[leaves[i]] = parquet.Value{}.Level(0, 0, leaves[i])
				continue
			}
			row[leaves[i]] = parquet.ValueOf(cell.String()).Level(0, 1, leaves[i])
		}
		batch = append(batch, row)
	}
	if _, err := writer.WriteRows(batch); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// rowType builds a struct with one optional string field per column.
// parquet.Group sorts its fields by name, struct schemas keep field order.
func rowType(names []string) reflect.Type {
	fields := make([]reflect.StructField, len(names))
	for i, name := range names {
		fields[i] = reflect.StructField{
			Name: fmt.Sprintf("C%d", i),
			Type: reflect.TypeOf(""),
			Tag:  reflect.StructTag(`parquet:` + strconv.Quote(name+",optional")),
		}
	}
	return reflect.StructOf(fields)
}
