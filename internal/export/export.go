// Package export serializes a header and the full filtered, sorted row set
// into a downloadable file.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sqlpeek/sqlpeek/internal/query"
)

type Format string

const (
	FormatXLSX    Format = "xlsx"
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

const SheetName = "Query Results"

func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatParquet:
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

func (f Format) Extension() string {
	return string(f)
}

func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "application/vnd.apache.parquet"
	}
}

// FileName is query_results_YYYY-MM-DD.<ext> for the date of now.
func FileName(format Format, now time.Time) string {
	return "query_results_" + now.Format("2006-01-02") + "." + format.Extension()
}

// Write encodes header and rows to w. Nothing is written to w unless the
// whole file was produced.
func Write(w io.Writer, format Format, header []string, rows [][]query.Cell) error {
	for i, row := range rows {
		if len(row) != len(header) {
			return fmt.Errorf("row %d has %d cells, header has %d", i, len(row), len(header))
		}
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case FormatXLSX:
		err = writeXLSX(&buf, header, rows)
	case FormatCSV:
		err = writeCSV(&buf, header, rows)
	case FormatParquet:
		err = writeParquet(&buf, header, rows)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return fmt.Errorf("encode %s export: %w", format, err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("write %s export: %w", format, err)
	}
	return nil
}

// Encode returns the encoded file as bytes.
func Encode(format Format, header []string, rows [][]query.Cell) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, format, header, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
