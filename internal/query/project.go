package query

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// ProjectRow converts one positional driver row into cells aligned to columns.
// dbTypes may be nil or shorter than columns; missing entries mean "unknown type".
func ProjectRow(columns []string, values []any, dbTypes []string) ([]Cell, error) {
	if len(values) != len(columns) {
		return nil, fmt.Errorf("row has %d values for %d columns", len(values), len(columns))
	}
	cells := make([]Cell, len(columns))
	for i, value := range values {
		cells[i] = FromDriverValue(typeAt(dbTypes, i), value)
	}
	return cells, nil
}

// ProjectRecord re-keys a name keyed record into the declared column order.
// Keys absent from the record become null; keys not in columns are dropped.
func ProjectRecord(columns []string, record map[string]any, dbTypes []string) []Cell {
	cells := make([]Cell, len(columns))
	for i, column := range columns {
		value, ok := record[column]
		if !ok {
			cells[i] = Null()
			continue
		}
		cells[i] = FromDriverValue(typeAt(dbTypes, i), value)
	}
	return cells
}

// UniqueColumns suffixes repeated names with _2, _3, ... in encounter order.
func UniqueColumns(names []string) []string {
	seen := make(map[string]int, len(names))
	taken := make(map[string]bool, len(names))
	for _, name := range names {
		taken[name] = true
	}
	out := make([]string, len(names))
	for i, name := range names {
		seen[name]++
		if seen[name] == 1 {
			out[i] = name
			continue
		}
		n := seen[name]
		candidate := fmt.Sprintf("%s_%d", name, n)
		for taken[candidate] {
			n++
			candidate = fmt.Sprintf("%s_%d", name, n)
		}
		seen[name] = n
		taken[candidate] = true
		out[i] = candidate
	}
	return out
}

// FromDriverValue maps a database/sql or native driver value onto a Cell.
func FromDriverValue(dbType string, value any) Cell {
	switch typed := value.(type) {
	case nil:
		return Null()
	case Cell:
		return typed
	case bool:
		return Bool(typed)
	case int:
		return Number(float64(typed))
	case int8:
		return Number(float64(typed))
	case int16:
		return Number(float64(typed))
	case int32:
		return Number(float64(typed))
	case int64:
		return Number(float64(typed))
	case uint:
		return Number(float64(typed))
	case uint8:
		return Number(float64(typed))
	case uint16:
		return Number(float64(typed))
	case uint32:
		return Number(float64(typed))
	case uint64:
		return Number(float64(typed))
	case float32:
		return Number(float64(typed))
	case float64:
		return Number(typed)
	case time.Time:
		return DateTime(typed)
	case *time.Time:
		if typed == nil {
			return Null()
		}
		return DateTime(*typed)
	case []byte:
		if typed == nil {
			return Null()
		}
		return textOrNumber(dbType, string(typed))
	case string:
		return textOrNumber(dbType, typed)
	case *big.Int:
		if typed == nil {
			return Null()
		}
		f, _ := new(big.Float).SetInt(typed).Float64()
		return Number(f)
	case interface{ Float64() float64 }:
		return Number(typed.Float64())
	case fmt.Stringer:
		return textOrNumber(dbType, typed.String())
	default:
		return textOrNumber(dbType, fmt.Sprint(typed))
	}
}

func textOrNumber(dbType, raw string) Cell {
	if IsNumericType(dbType) {
		if n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return Number(n)
		}
	}
	return Text(raw)
}

var numericTypes = map[string]bool{
	"TINYINT": true, "SMALLINT": true, "MEDIUMINT": true, "INT": true, "INTEGER": true,
	"BIGINT": true, "INT2": true, "INT4": true, "INT8": true, "HUGEINT": true,
	"UTINYINT": true, "USMALLINT": true, "UINTEGER": true, "UBIGINT": true, "UHUGEINT": true,
	"DECIMAL": true, "NUMERIC": true, "NUMBER": true, "DEC": true,
	"FLOAT": true, "FLOAT4": true, "FLOAT8": true, "DOUBLE": true, "DOUBLE PRECISION": true,
	"REAL": true, "MONEY": true, "SMALLMONEY": true, "YEAR": true,
}

// IsNumericType reports whether a driver's database type name holds numbers.
// Parameters and sign qualifiers are ignored: "DECIMAL(10,2)" and "UNSIGNED BIGINT" are numeric.
func IsNumericType(dbType string) bool {
	normalized := strings.ToUpper(strings.TrimSpace(dbType))
	if normalized == "" {
		return false
	}
	if i := strings.IndexByte(normalized, '('); i >= 0 {
		normalized = strings.TrimSpace(normalized[:i])
	}
	normalized = strings.TrimPrefix(normalized, "UNSIGNED ")
	normalized = strings.TrimSuffix(normalized, " UNSIGNED")
	return numericTypes[normalized]
}

func typeAt(dbTypes []string, i int) string {
	if i < len(dbTypes) {
		return dbTypes[i]
	}
	return ""
}
