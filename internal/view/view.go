// Package view derives the visible slice of a query result from a search,
// filter, sort and page settings. Every function here is pure.
package view

import (
	"cmp"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/sqlpeek/sqlpeek/internal/query"
)

const DefaultPageSize = 10

type Operator string

const (
	OpEquals      Operator = "equals"
	OpContains    Operator = "contains"
	OpStartsWith  Operator = "startsWith"
	OpEndsWith    Operator = "endsWith"
	OpGreaterThan Operator = "greaterThan"
	OpLessThan    Operator = "lessThan"
)

func (o Operator) Valid() bool {
	switch o {
	case OpEquals, OpContains, OpStartsWith, OpEndsWith, OpGreaterThan, OpLessThan:
		return true
	default:
		return false
	}
}

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type Filter struct {
	Column   string   `json:"column" yaml:"column"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    string   `json:"value" yaml:"value"`
}

type Spec struct {
	SearchText    string    `json:"searchText,omitempty"`
	Filters       []Filter  `json:"filters,omitempty"`
	SortColumn    string    `json:"sortColumn,omitempty"`
	SortDirection Direction `json:"sortDirection,omitempty"`
	PageIndex     int       `json:"pageIndex,omitempty"`
	PageSize      int       `json:"pageSize,omitempty"`
}

type Page struct {
	Rows              [][]query.Cell `json:"rows"`
	TotalFilteredRows int            `json:"totalFilteredRows"`
	TotalPages        int            `json:"totalPages"`
	PageIndex         int            `json:"pageIndex"`
	PageSize          int            `json:"pageSize"`
}

// Compute applies search, filters, sort and pagination in that order.
func Compute(result query.Result, spec Spec) Page {
	rows := FilterAndSort(result, spec)

	size := spec.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(rows)
	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	index := min(max(spec.PageIndex, 1), pages)

	start := min((index-1)*size, total)
	end := min(start+size, total)
	return Page{
		Rows:              rows[start:end:end],
		TotalFilteredRows: total,
		TotalPages:        pages,
		PageIndex:         index,
		PageSize:          size,
	}
}

// FilterAndSort returns every row that survives search and filters, in sort
// order. The input result is never modified.
func FilterAndSort(result query.Result, spec Spec) [][]query.Cell {
	fold := cases.Fold()
	rows := make([][]query.Cell, 0, len(result.Rows))

	needle := fold.String(spec.SearchText)
	for _, row := range result.Rows {
		if needle == "" || rowContains(row, needle, fold) {
			rows = append(rows, row)
		}
	}

	for _, filter := range spec.Filters {
		column := result.ColumnIndex(filter.Column)
		if column < 0 || !filter.Operator.Valid() {
			continue
		}
		match := filter.matcher(fold)
		kept := rows[:0:0]
		for _, row := range rows {
			if match(row[column]) {
				kept = append(kept, row)
			}
		}
		rows = kept
	}

	if column := result.ColumnIndex(spec.SortColumn); spec.SortColumn != "" && column >= 0 {
		sign := 1
		if spec.SortDirection == Desc {
			sign = -1
		}
		sort.SliceStable(rows, func(i, j int) bool {
			return sign*Compare(rows[i][column], rows[j][column]) < 0
		})
	}
	return rows
}

func rowContains(row []query.Cell, needle string, fold cases.Caser) bool {
	for _, cell := range row {
		if strings.Contains(fold.String(cell.String()), needle) {
			return true
		}
	}
	return false
}

func (f Filter) matcher(fold cases.Caser) func(query.Cell) bool {
	switch f.Operator {
	case OpGreaterThan, OpLessThan:
		want := parseNumber(f.Value)
		greater := f.Operator == OpGreaterThan
		return func(cell query.Cell) bool {
			got := cellNumber(cell)
			if math.IsNaN(got) || math.IsNaN(want) {
				return false
			}
			if greater {
				return got > want
			}
			return got < want
		}
	}

	want := fold.String(f.Value)
	var test func(string, string) bool
	switch f.Operator {
	case OpEquals:
		test = func(a, b string) bool { return a == b }
	case OpContains:
		test = strings.Contains
	case OpStartsWith:
		test = strings.HasPrefix
	default:
		test = strings.HasSuffix
	}
	return func(cell query.Cell) bool {
		return test(fold.String(cell.String()), want)
	}
}

// Compare orders two cells: nulls first, then by the natural order of the
// shared scalar type, falling back to their string forms.
func Compare(a, b query.Cell) int {
	switch {
	case a.IsNull() && b.IsNull():
		return 0
	case a.IsNull():
		return -1
	case b.IsNull():
		return 1
	}
	if a.Kind() == b.Kind() {
		switch a.Kind() {
		case query.CellNumber:
			x, _ := a.NumberValue()
			y, _ := b.NumberValue()
			return cmp.Compare(x, y)
		case query.CellBool:
			x, _ := a.BoolValue()
			y, _ := b.BoolValue()
			return compareBool(x, y)
		case query.CellDateTime:
			x, _ := a.TimeValue()
			y, _ := b.TimeValue()
			return x.Compare(y)
		}
	}
	return strings.Compare(a.String(), b.String())
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func cellNumber(cell query.Cell) float64 {
	if n, ok := cell.NumberValue(); ok {
		return n
	}
	return parseNumber(cell.String())
}

func parseNumber(raw string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return math.NaN()
	}
	return value
}
