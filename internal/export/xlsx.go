package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sqlpeek/sqlpeek/internal/query"
)

func writeXLSX(w io.Writer, header []string, rows [][]query.Cell) error {
	book := excelize.NewFile()
	defer func() { _ = book.Close() }()

	if err := book.SetSheetName(book.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	stream, err := book.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("open sheet stream: %w", err)
	}

	values := make([]any, len(header))
	for i, name := range header {
		values[i] = name
	}
	if err := stream.SetRow("A1", values); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for r, row := range rows {
		values := make([]any, len(row))
		for i, cell := range row {
			values[i] = xlsxValue(cell)
		}
		ref, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := stream.SetRow(ref, values); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}
	if err := stream.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	return book.Write(w)
}

func xlsxValue(cell query.Cell) any {
	switch cell.Kind() {
	case query.CellNull:
		return nil
	case query.CellBool:
		b, _ := cell.BoolValue()
		return b
	case query.CellNumber:
		n, _ := cell.NumberValue()
		return n
	case query.CellDateTime:
		t, _ := cell.TimeValue()
		return t.Format(time.RFC3339Nano)
	default:
		return cell.String()
	}
}
