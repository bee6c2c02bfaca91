package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

type CellKind uint8

const (
	CellNull CellKind = iota
	CellBool
	CellNumber
	CellString
	CellDateTime
)

func (k CellKind) String() string {
	switch k {
	case CellNull:
		return "null"
	case CellBool:
		return "boolean"
	case CellNumber:
		return "number"
	case CellString:
		return "string"
	case CellDateTime:
		return "dateTime"
	default:
		return "unknown"
	}
}

// Cell is one scalar result value. The zero value is null.
type Cell struct {
	kind CellKind
	b    bool
	n    float64
	s    string
	t    time.Time
}

func Null() Cell {
	return Cell{}
}

func Bool(v bool) Cell {
	return Cell{kind: CellBool, b: v}
}

func Number(v float64) Cell {
	return Cell{kind: CellNumber, n: v}
}

func Text(v string) Cell {
	return Cell{kind: CellString, s: v}
}

func DateTime(v time.Time) Cell {
	return Cell{kind: CellDateTime, t: v}
}

func (c Cell) Kind() CellKind {
	return c.kind
}

func (c Cell) IsNull() bool {
	return c.kind == CellNull
}

func (c Cell) BoolValue() (bool, bool) {
	return c.b, c.kind == CellBool
}

func (c Cell) NumberValue() (float64, bool) {
	return c.n, c.kind == CellNumber
}

func (c Cell) TimeValue() (time.Time, bool) {
	return c.t, c.kind == CellDateTime
}

// String renders the cell the way search and filters see it. Null is empty.
func (c Cell) String() string {
	switch c.kind {
	case CellBool:
		return strconv.FormatBool(c.b)
	case CellNumber:
		return formatNumber(c.n)
	case CellString:
		return c.s
	case CellDateTime:
		return c.t.Format(time.RFC3339Nano)
	default:
		return ""
	}
}

func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case CellNull:
		return []byte("null"), nil
	case CellBool:
		return []byte(strconv.FormatBool(c.b)), nil
	case CellNumber:
		if math.IsNaN(c.n) || math.IsInf(c.n, 0) {
			return json.Marshal(formatNumber(c.n))
		}
		return []byte(formatNumber(c.n)), nil
	case CellString:
		return json.Marshal(c.s)
	case CellDateTime:
		return json.Marshal(c.t.Format(time.RFC3339Nano))
	default:
		return nil, fmt.Errorf("unknown cell kind %d", c.kind)
	}
}

func (c *Cell) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*c = Null()
	case bytes.Equal(trimmed, []byte("true")):
		*c = Bool(true)
	case bytes.Equal(trimmed, []byte("false")):
		*c = Bool(false)
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*c = Text(s)
	default:
		n, err := strconv.ParseFloat(string(trimmed), 64)
		if err != nil {
			return fmt.Errorf("unsupported cell value %s", trimmed)
		}
		*c = Number(n)
	}
	return nil
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
