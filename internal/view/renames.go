package view

import "strings"

// Renames maps an original column name to the alias shown in headers. It is
// applied at render time only; Compute and FilterAndSort ignore it.
type Renames map[string]string

func (r Renames) DisplayName(column string) string {
	if alias := strings.TrimSpace(r[column]); alias != "" {
		return alias
	}
	return column
}

func (r Renames) Header(columns []string) []string {
	header := make([]string, len(columns))
	for i, column := range columns {
		header[i] = r.DisplayName(column)
	}
	return header
}

// Clean drops empty aliases and aliases for columns that are not present.
func (r Renames) Clean(columns []string) Renames {
	out := make(Renames)
	for _, column := range columns {
		if alias := strings.TrimSpace(r[column]); alias != "" && alias != column {
			out[column] = alias
		}
	}
	return out
}
