package view

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/sqlpeek/sqlpeek/internal/query"
)

func fixture() query.Result {
	return query.Result{
		Columns: []string{"id", "name"},
		Rows: [][]query.Cell{
			{query.Number(1), query.Text("a")},
			{query.Number(2), query.Text("b")},
			{query.Number(3), query.Text("c")},
		},
	}
}

func people() query.Result {
	return query.Result{
		Columns: []string{"id", "name", "city", "score"},
		Rows: [][]query.Cell{
			{query.Number(1), query.Text("Ada"), query.Text("London"), query.Number(90)},
			{query.Number(2), query.Text("Grace"), query.Text("New York"), query.Number(75)},
			{query.Number(3), query.Text("Alan"), query.Text("london"), query.Null()},
			{query.Number(4), query.Text("Édith"), query.Text("Paris"), query.Number(75)},
			{query.Number(5), query.Text("Linus"), query.Null(), query.Text("n/a")},
			{query.Number(6), query.Text("Barbara"), query.Text("Boston"), query.Number(82.5)},
			{query.Number(7), query.Text("Ken"), query.Text("Berkeley"), query.Number(75)},
		},
	}
}

func ids(rows [][]query.Cell) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i], _ = row[0].NumberValue()
	}
	return out
}

func TestComputeSecondPage(t *testing.T) {
	page := Compute(fixture(), Spec{PageSize: 2, PageIndex: 2})
	want := [][]query.Cell{{query.Number(3), query.Text("c")}}
	if !reflect.DeepEqual(page.Rows, want) {
		t.Fatalf("Rows = %#v", page.Rows)
	}
	if page.TotalPages != 2 {
		t.Fatalf("TotalPages = %d", page.TotalPages)
	}
	if page.TotalFilteredRows != 3 {
		t.Fatalf("TotalFilteredRows = %d", page.TotalFilteredRows)
	}
}

func TestGreaterThanFilter(t *testing.T) {
	rows := FilterAndSort(fixture(), Spec{Filters: []Filter{{Column: "id", Operator: OpGreaterThan, Value: "1"}}})
	want := [][]query.Cell{
		{query.Number(2), query.Text("b")},
		{query.Number(3), query.Text("c")},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %#v", rows)
	}
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	rows := FilterAndSort(people(), Spec{SearchText: "LONDON"})
	if got := ids(rows); !reflect.DeepEqual(got, []float64{1, 3}) {
		t.Fatalf("ids = %v", got)
	}

	rows = FilterAndSort(people(), Spec{SearchText: "édith"})
	if got := ids(rows); !reflect.DeepEqual(got, []float64{4}) {
		t.Fatalf("ids = %v", got)
	}

	rows = FilterAndSort(people(), Spec{SearchText: "82.5"})
	if got := ids(rows); !reflect.DeepEqual(got, []float64{6}) {
		t.Fatalf("ids = %v", got)
	}
}

func TestStringOperators(t *testing.T) {
	tests := []struct {
		filter Filter
		want   []float64
	}{
		{Filter{Column: "city", Operator: OpEquals, Value: "LONDON"}, []float64{1, 3}},
		{Filter{Column: "city", Operator: OpContains, Value: "o"}, []float64{1, 2, 3, 6}},
		{Filter{Column: "name", Operator: OpStartsWith, Value: "a"}, []float64{1, 3}},
		{Filter{Column: "name", Operator: OpEndsWith, Value: "S"}, []float64{5}},
		{Filter{Column: "city", Operator: OpEquals, Value: ""}, []float64{5}},
	}
	for _, tc := range tests {
		rows := FilterAndSort(people(), Spec{Filters: []Filter{tc.filter}})
		if got := ids(rows); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("filter %#v ids = %v, want %v", tc.filter, got, tc.want)
		}
	}
}

func TestNumericFiltersDropNonNumericCells(t *testing.T) {
	rows := FilterAndSort(people(), Spec{Filters: []Filter{{Column: "score", Operator: OpLessThan, Value: "80"}}})
	if got := ids(rows); !reflect.DeepEqual(got, []float64{2, 4, 7}) {
		t.Fatalf("ids = %v", got)
	}

	rows = FilterAndSort(people(), Spec{Filters: []Filter{{Column: "score", Operator: OpGreaterThan, Value: "abc"}}})
	if len(rows) != 0 {
		t.Fatalf("rows = %#v, want none for NaN threshold", rows)
	}
}

func TestFiltersOnUnknownColumnAreNoOps(t *testing.T) {
	rows := FilterAndSort(people(), Spec{Filters: []Filter{
		{Column: "missing", Operator: OpEquals, Value: "x"},
		{Column: "name", Operator: "regex", Value: "x"},
	}})
	if len(rows) != len(people().Rows) {
		t.Fatalf("len(rows) = %d", len(rows))
	}
}

func TestFiltersAreConjunctive(t *testing.T) {
	filters := []Filter{
		{Column: "city", Operator: OpContains, Value: "o"},
		{Column: "score", Operator: OpGreaterThan, Value: "70"},
		{Column: "name", Operator: OpStartsWith, Value: "b"},
	}
	previous := len(people().Rows)
	for i := range filters {
		rows := FilterAndSort(people(), Spec{Filters: filters[:i+1]})
		if len(rows) > previous {
			t.Fatalf("adding filter %d grew result from %d to %d", i, previous, len(rows))
		}
		previous = len(rows)
	}
	if previous != 1 {
		t.Fatalf("final rows = %d, want 1", previous)
	}
}

func TestSortIsStable(t *testing.T) {
	rows := FilterAndSort(people(), Spec{SortColumn: "score"})
	if got := ids(rows); !reflect.DeepEqual(got, []float64{3, 2, 4, 7, 6, 1, 5}) {
		t.Fatalf("asc ids = %v", got)
	}

	rows = FilterAndSort(people(), Spec{SortColumn: "score", SortDirection: Desc})
	if got := ids(rows); !reflect.DeepEqual(got, []float64{5, 1, 6, 2, 4, 7, 3}) {
		t.Fatalf("desc ids = %v", got)
	}
}

func TestSortOnUnknownColumnKeepsOrder(t *testing.T) {
	rows := FilterAndSort(people(), Spec{SortColumn: "nope", SortDirection: Desc})
	if got := ids(rows); !reflect.DeepEqual(got, []float64{1, 2, 3, 4, 5, 6, 7}) {
		t.Fatalf("ids = %v", got)
	}
}

func TestCompare(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	tests := []struct {
		a, b query.Cell
		want int
	}{
		{query.Null(), query.Null(), 0},
		{query.Null(), query.Number(-1), -1},
		{query.Text(""), query.Null(), 1},
		{query.Number(2), query.Number(10), -1},
		{query.Text("2"), query.Text("10"), 1},
		{query.Bool(false), query.Bool(true), -1},
		{query.DateTime(late), query.DateTime(early), 1},
		{query.Number(5), query.Text("5"), 0},
	}
	for _, tc := range tests {
		if got := Compare(tc.a, tc.b); got != tc.want {
			t.Fatalf("Compare(%v, %v) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	spec := Spec{SearchText: "o", SortColumn: "name", SortDirection: Desc, PageSize: 2, PageIndex: 2}
	first := Compute(people(), spec)
	second := Compute(people(), spec)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Compute() not idempotent: %#v vs %#v", first, second)
	}
}

func TestPagesConcatenateToFullSequence(t *testing.T) {
	spec := Spec{SortColumn: "score", SortDirection: Desc}
	full := FilterAndSort(people(), spec)
	for _, size := range []int{1, 2, 3, 7, 20} {
		spec.PageSize = size
		first := Compute(people(), spec)
		var joined [][]query.Cell
		for index := 1; index <= first.TotalPages; index++ {
			spec.PageIndex = index
			page := Compute(people(), spec)
			if len(page.Rows) > size {
				t.Fatalf("size %d page %d has %d rows", size, index, len(page.Rows))
			}
			joined = append(joined, page.Rows...)
		}
		if !reflect.DeepEqual(joined, full) {
			t.Fatalf("size %d pages = %v, want %v", size, ids(joined), ids(full))
		}
		spec.PageIndex = 0
	}
}

func TestPaginationDefaultsAndClamping(t *testing.T) {
	page := Compute(query.Result{Columns: []string{"id"}}, Spec{})
	if page.TotalPages != 1 || page.PageIndex != 1 || page.PageSize != DefaultPageSize {
		t.Fatalf("page = %#v", page)
	}
	if len(page.Rows) != 0 {
		t.Fatalf("Rows = %#v", page.Rows)
	}

	page = Compute(fixture(), Spec{PageSize: 2, PageIndex: 99})
	if page.PageIndex != 2 || len(page.Rows) != 1 {
		t.Fatalf("page = %#v", page)
	}
	page = Compute(fixture(), Spec{PageSize: -5, PageIndex: -1})
	if page.PageIndex != 1 || page.PageSize != DefaultPageSize || len(page.Rows) != 3 {
		t.Fatalf("page = %#v", page)
	}
}

func TestComputeDoesNotMutateInput(t *testing.T) {
	result := people()
	before := people()
	_ = Compute(result, Spec{SortColumn: "name", Filters: []Filter{{Column: "id", Operator: OpLessThan, Value: "6"}}})
	if !reflect.DeepEqual(result, before) {
		t.Fatal("Compute() mutated its input")
	}
}

func TestParseNumber(t *testing.T) {
	if got := parseNumber(" 12.5 "); got != 12.5 {
		t.Fatalf("parseNumber() = %v", got)
	}
	if got := parseNumber("12abc"); !math.IsNaN(got) {
		t.Fatalf("parseNumber(12abc) = %v, want NaN", got)
	}
}

func TestRenames(t *testing.T) {
	renames := Renames{"id": "Identifier", "name": "  ", "ghost": "Boo"}
	got := renames.Header([]string{"id", "name", "city"})
	if !reflect.DeepEqual(got, []string{"Identifier", "name", "city"}) {
		t.Fatalf("Header() = %v", got)
	}
	cleaned := renames.Clean([]string{"id", "name"})
	if !reflect.DeepEqual(cleaned, Renames{"id": "Identifier"}) {
		t.Fatalf("Clean() = %v", cleaned)
	}

	page := Compute(fixture(), Spec{SortColumn: "id", SortDirection: Desc})
	if page.Rows[0][0] != query.Number(3) {
		t.Fatalf("renames must not affect sort on original identity: %#v", page.Rows)
	}
	if Renames(nil).DisplayName("x") != "x" {
		t.Fatal("nil Renames should return column name")
	}
}
