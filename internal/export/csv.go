package export

import (
	"encoding/csv"
	"io"

	"github.com/sqlpeek/sqlpeek/internal/query"
)

func writeCSV(w io.Writer, header []string, rows [][]query.Cell) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for _, row := range rows {
		for i, cell := range row {
			record[i] = cell.String()
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
